package ingest

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/documind/documind/internal/apperr"
)

// Extraction is the text pulled out of an uploaded file.
type Extraction struct {
	Text     string
	NumPages int
}

// Extractor pulls plain text from one file format.
type Extractor interface {
	Extract(content []byte) (*Extraction, error)
}

// ExtractorFor returns the extractor for a filename extension, or a
// validation error for unsupported types.
func ExtractorFor(filename string) (Extractor, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return PDFExtractor{}, nil
	case ".txt":
		return TextExtractor{}, nil
	default:
		return nil, apperr.Validation("unsupported file type: %s", filepath.Ext(filename))
	}
}

// TextExtractor treats the file as UTF-8 plain text.
type TextExtractor struct{}

func (TextExtractor) Extract(content []byte) (*Extraction, error) {
	return &Extraction{Text: string(content), NumPages: 1}, nil
}

// PDFExtractor pulls text page by page. Each non-empty page is prefixed
// with a page marker so chunk attribution can recover the page number.
type PDFExtractor struct{}

func (PDFExtractor) Extract(content []byte) (*Extraction, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, apperr.Processing("open pdf: %v", err)
	}

	numPages := reader.NumPage()
	var parts []string
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document.
			continue
		}
		if strings.TrimSpace(pageText) != "" {
			parts = append(parts, fmt.Sprintf("[Page %d]\n%s", pageNum, pageText))
		}
	}

	return &Extraction{
		Text:     strings.Join(parts, "\n\n"),
		NumPages: numPages,
	}, nil
}
