package loader

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"

	"github.com/kirillkom/docsearch/internal/core/domain"
)

// loadDOCX pulls the non-empty paragraphs out of word/document.xml, joined
// with blank lines.
func loadDOCX(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", domain.WrapError(domain.ErrLoad, "open docx archive", err)
	}
	defer archive.Close()

	for _, file := range archive.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", domain.WrapError(domain.ErrLoad, "open docx document.xml", err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", domain.WrapError(domain.ErrLoad, "read docx document.xml", err)
		}
		return parseDocumentXML(raw)
	}
	return "", nil
}

type docxDocument struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []struct {
		Texts []string `xml:"t"`
	} `xml:"r"`
}

func parseDocumentXML(raw []byte) (string, error) {
	var doc docxDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return "", domain.WrapError(domain.ErrLoad, "parse docx xml", err)
	}

	paragraphs := make([]string, 0, len(doc.Body.Paragraphs))
	for _, p := range doc.Body.Paragraphs {
		var b strings.Builder
		for _, run := range p.Runs {
			for _, text := range run.Texts {
				b.WriteString(text)
			}
		}
		if trimmed := strings.TrimSpace(b.String()); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return strings.Join(paragraphs, "\n\n"), nil
}
