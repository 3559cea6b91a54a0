package report

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/credit-crawler/internal/config"
)

// LoadSheetsFile reads a sheet layout from a standalone YAML file. The
// file has a top-level "sheets" key so a layout can live next to other
// tooling config without colliding.
func LoadSheetsFile(path string) ([]config.SheetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "report: read sheets file %s", path)
	}

	var wrapper struct {
		Sheets []config.SheetConfig `yaml:"sheets"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "report: parse sheets file")
	}

	if len(wrapper.Sheets) == 0 {
		return nil, eris.Errorf("report: sheets file %s defines no sheets", path)
	}
	for i, sc := range wrapper.Sheets {
		if sc.Name == "" {
			return nil, eris.Errorf("report: sheet %d has no name", i)
		}
	}

	return wrapper.Sheets, nil
}
