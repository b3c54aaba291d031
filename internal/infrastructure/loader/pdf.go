package loader

import (
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/docsearch/internal/core/domain"
)

// loadPDF extracts text page by page, joined with blank lines. A page that
// yields nothing contributes an empty string; a bad page never aborts the
// whole document.
func loadPDF(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", domain.WrapError(domain.ErrLoad, "open pdf", err)
	}
	defer file.Close()

	pages := make([]string, 0, reader.NumPage())
	for n := 1; n <= reader.NumPage(); n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return strings.Join(pages, "\n\n"), nil
}
