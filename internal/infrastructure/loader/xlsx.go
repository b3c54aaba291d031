package loader

import (
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/docsearch/internal/core/domain"
)

// loadXLSX renders each sheet as one block: rows become lines, cells are
// tab-joined. Sheets are separated by blank lines so they chunk as
// paragraphs.
func loadXLSX(path string) (string, error) {
	workbook, err := excelize.OpenFile(path)
	if err != nil {
		return "", domain.WrapError(domain.ErrLoad, "open xlsx", err)
	}
	defer workbook.Close()

	var sheets []string
	for _, sheet := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			continue
		}
		lines := make([]string, 0, len(rows)+1)
		lines = append(lines, sheet)
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 1 {
			sheets = append(sheets, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(sheets, "\n\n"), nil
}
