// Package report writes the crawl's profiles to a multi-sheet XLSX
// workbook. Sheets are data-driven: each one carries a substring filter
// over the qualification detail, so new report cuts are configuration,
// not code.
package report

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/credit-crawler/internal/config"
	"github.com/sells-group/credit-crawler/internal/model"
)

// header is the fixed column order of every sheet.
var header = []string{
	"企业名称", // company name
	"资质类别", // qualification type
	"初始分",  // initial score
	"诚信分值", // integrity score
	"基础分",  // base score
	"专项加分", // special bonus
	"扣分项",  // deductions
	"资质明细", // qualification detail
}

// Exporter writes XLSX reports under a fixed directory.
type Exporter struct {
	dir    string
	sheets []config.SheetConfig

	// now is swapped in tests to pin filenames.
	now func() time.Time
}

// NewExporter builds an exporter; empty sheets fall back to the default
// three-sheet layout.
func NewExporter(dir string, sheets []config.SheetConfig) *Exporter {
	if len(sheets) == 0 {
		sheets = config.DefaultSheets()
	}
	return &Exporter{dir: dir, sheets: sheets, now: time.Now}
}

// Export writes one workbook and returns its path. A failed save leaves
// no partial file behind.
func (e *Exporter) Export(profiles []model.CompanyCreditProfile) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", eris.Wrap(err, "report: create export dir")
	}

	file := xlsx.NewFile()
	for _, sc := range e.sheets {
		if err := e.fillSheet(file, sc, profiles); err != nil {
			return "", err
		}
	}

	path := filepath.Join(e.dir, "企业信用报告_"+e.now().Format("20060102_150405")+".xlsx")
	if err := file.Save(path); err != nil {
		_ = os.Remove(path)
		return "", eris.Wrapf(err, "report: save %s", path)
	}
	return path, nil
}

func (e *Exporter) fillSheet(file *xlsx.File, sc config.SheetConfig, profiles []model.CompanyCreditProfile) error {
	sheet, err := file.AddSheet(sc.Name)
	if err != nil {
		return eris.Wrapf(err, "report: add sheet %q", sc.Name)
	}

	hr := sheet.AddRow()
	for _, h := range header {
		hr.AddCell().SetString(h)
	}

	for _, p := range profiles {
		for _, q := range p.Qualifications {
			if sc.ZzmxContains != "" && !strings.Contains(q.Zzmx, sc.ZzmxContains) {
				continue
			}
			writeRow(sheet.AddRow(), p, q)
		}
	}
	return nil
}

func writeRow(row *xlsx.Row, p model.CompanyCreditProfile, q model.QualificationRecord) {
	row.AddCell().SetString(p.CioName)
	row.AddCell().SetString(p.EqtName)
	row.AddCell().SetFloat(p.Csf)
	row.AddCell().SetFloat(q.Score)
	row.AddCell().SetFloat(q.Jcf)
	row.AddCell().SetFloat(q.Zxjf)
	row.AddCell().SetFloat(q.Kf)
	row.AddCell().SetString(q.Zzmx)
}
