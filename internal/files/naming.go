package files

import (
	"fmt"
	"path/filepath"
	"strings"

	"gscconsolidate/pkg/contracts/domain"
)

// consolidatedSuffix marks files produced by a consolidation
const consolidatedSuffix = "_consolide"

// OutputName derives the download name for a consolidated export of input.
// Workbooks filtered with a click threshold carry it in their name.
func OutputName(input string, format domain.OutputFormat, minClicks int) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "export"
	}

	name := stem + consolidatedSuffix
	if format == domain.OutputFormatExcel && minClicks > 0 {
		name += fmt.Sprintf("_min%dclics", minClicks)
	}
	return name + format.Extension()
}

// OutputPath places OutputName in dir, or next to input when dir is empty
func OutputPath(input, dir string, format domain.OutputFormat, minClicks int) string {
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, OutputName(input, format, minClicks))
}

// IsConsolidated reports whether name looks like one of our own outputs
func IsConsolidated(name string) bool {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.Contains(stem, consolidatedSuffix)
}
