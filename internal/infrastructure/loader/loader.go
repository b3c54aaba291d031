package loader

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/docsearch/internal/core/domain"
)

// Format is the closed set of supported document types. Unrecognized
// extensions fall back to FormatText so ingestion never hard-fails on an
// unknown type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
	FormatText Format = "text"
)

var formatByExtension = map[string]Format{
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".xlsx": FormatXLSX,
	".json": FormatJSON,
}

// DetectFormat maps a file extension to its handler format.
func DetectFormat(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	if format, ok := formatByExtension[ext]; ok {
		return format
	}
	return FormatText
}

// Loader normalizes heterogeneous source documents into plain text plus
// loader-derived metadata.
type Loader struct{}

func New() *Loader {
	return &Loader{}
}

func (l *Loader) Load(ctx context.Context, path string) (string, map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	format := DetectFormat(path)

	var (
		content string
		err     error
	)
	switch format {
	case FormatPDF:
		content, err = loadPDF(path)
	case FormatDOCX:
		content, err = loadDOCX(path)
	case FormatXLSX:
		content, err = loadXLSX(path)
	case FormatJSON:
		content, err = loadJSON(path)
	default:
		content, err = loadText(path)
	}
	if err != nil {
		return "", nil, err
	}

	metadata := map[string]any{
		"source_file": filepath.Base(path),
		"file_type":   string(format),
		"extension":   strings.ToLower(filepath.Ext(path)),
		"loaded_at":   time.Now().UTC().Format(time.RFC3339),
		"char_count":  len(content),
	}
	return content, metadata, nil
}

func loadText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", domain.WrapError(domain.ErrLoad, "read file", err)
	}
	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrLoad, "decode file", errInvalidUTF8(path))
	}
	return string(raw), nil
}

// loadJSON re-serializes the document pretty-printed: structure survives for
// lexical search while the text stays embeddable.
func loadJSON(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", domain.WrapError(domain.ErrLoad, "read json file", err)
	}
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", domain.WrapError(domain.ErrLoad, "parse json file", err)
	}
	pretty, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return "", domain.WrapError(domain.ErrLoad, "reserialize json file", err)
	}
	return string(pretty), nil
}

type errInvalidUTF8 string

func (e errInvalidUTF8) Error() string {
	return "not valid utf-8 text: " + string(e)
}
