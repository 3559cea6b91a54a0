package report

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/credit-crawler/internal/config"
	"github.com/sells-group/credit-crawler/internal/model"
)

func fixtureProfiles() []model.CompanyCreditProfile {
	return []model.CompanyCreditProfile{
		{
			CioName: "宜昌建工集团",
			EqtName: "建筑业企业资质",
			Csf:     98,
			Qualifications: []model.QualificationRecord{
				{Zzmx: "施工总承包_建筑工程_壹级", Score: 97, Jcf: 90, Zxjf: 7},
				{Zzmx: "施工总承包_市政公用工程_贰级", Score: 95, Jcf: 90, Zxjf: 5},
			},
		},
		{
			CioName: "某劳务公司",
			EqtName: "劳务资质",
			Csf:     100,
			Qualifications: []model.QualificationRecord{
				{Score: 100, EqlID: "syn-1"}, // synthetic, no zzmx
			},
		},
	}
}

func TestExport_SheetLayoutAndFiltering(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir, nil) // default sheets
	e.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }

	path, err := e.Export(fixtureProfiles())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "企业信用报告_20260314_093000.xlsx"), path)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 3)

	all, ok := f.Sheet["全部数据"]
	require.True(t, ok)
	// Header + 3 qualification rows.
	require.Len(t, all.Rows, 4)
	require.Equal(t, "企业名称", all.Rows[0].Cells[0].String())
	require.Equal(t, "宜昌建工集团", all.Rows[1].Cells[0].String())

	constr, ok := f.Sheet["建筑工程"]
	require.True(t, ok)
	require.Len(t, constr.Rows, 2) // header + the one 建筑工程 row
	require.Contains(t, constr.Rows[1].Cells[7].String(), "建筑工程")

	muni, ok := f.Sheet["市政工程"]
	require.True(t, ok)
	require.Len(t, muni.Rows, 2)
	require.Contains(t, muni.Rows[1].Cells[7].String(), "市政公用工程")
}

func TestExport_CustomSheets(t *testing.T) {
	e := NewExporter(t.TempDir(), []config.SheetConfig{
		{Name: "everything"},
	})

	path, err := e.Export(fixtureProfiles())
	require.NoError(t, err)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	require.Equal(t, "everything", f.Sheets[0].Name)
}

func TestExport_EmptyProfileListStillWritesWorkbook(t *testing.T) {
	e := NewExporter(t.TempDir(), nil)

	path, err := e.Export(nil)
	require.NoError(t, err)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	for _, sheet := range f.Sheets {
		require.Len(t, sheet.Rows, 1, "sheet %s should only have a header", sheet.Name)
	}
}

func TestExport_NumericCells(t *testing.T) {
	e := NewExporter(t.TempDir(), []config.SheetConfig{{Name: "scores"}})

	path, err := e.Export(fixtureProfiles())
	require.NoError(t, err)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	row := f.Sheets[0].Rows[1]

	csf, err := row.Cells[2].Float()
	require.NoError(t, err)
	require.Equal(t, 98.0, csf)

	score, err := row.Cells[3].Float()
	require.NoError(t, err)
	require.Equal(t, 97.0, score)
}

func TestExport_BadDirectoryFails(t *testing.T) {
	e := NewExporter(string([]byte{0}), nil)
	_, err := e.Export(fixtureProfiles())
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "report:"))
}
