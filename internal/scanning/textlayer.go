package scanning

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
)

// DefaultMinTextLength is the shortest text layer accepted before falling
// back to OCR
const DefaultMinTextLength = 50

// TextLayer reads the embedded text of PDFs and plain text uploads
type TextLayer struct {
	MinLength int
}

// NewTextLayer creates a TextLayer scanner
func NewTextLayer(minLength int) *TextLayer {
	if minLength <= 0 {
		minLength = DefaultMinTextLength
	}
	return &TextLayer{MinLength: minLength}
}

// ScanDocument returns the text layer, or ErrNoText when it is missing or
// too short
func (t *TextLayer) ScanDocument(data []byte, contentType string) (*ScanResult, error) {
	mimeType := normalizeMimeType(contentType, data)
	if strings.HasPrefix(mimeType, "text/") {
		text := strings.TrimSpace(string(data))
		if text == "" {
			return nil, ErrNoText
		}
		return &ScanResult{Text: text, Method: MethodPlainText, Pages: 1}, nil
	}
	if mimeType != "application/pdf" {
		return nil, ErrNoText
	}

	res := &ScanResult{Method: MethodTextLayer}
	text, pages, err := fitzText(data)
	if err != nil {
		res.Warnings = append(res.Warnings, err.Error())
		slog.Warn("Reading PDF text layer with MuPDF failed", "error", err)
	}
	if len(strings.TrimSpace(text)) < t.MinLength {
		fallback, n, ferr := plainPDFText(data)
		if ferr != nil {
			res.Warnings = append(res.Warnings, ferr.Error())
		} else if len(strings.TrimSpace(fallback)) > len(strings.TrimSpace(text)) {
			text, pages = fallback, n
		}
	}

	text = strings.TrimSpace(text)
	if len(text) < t.MinLength {
		return nil, fmt.Errorf("text layer has %d characters: %w", len(text), ErrNoText)
	}
	res.Text = text
	res.Pages = pages
	return res, nil
}

// Close is a no-op
func (t *TextLayer) Close() error {
	return nil
}

// fitzText joins the page texts with form feeds
func fitzText(data []byte) (string, int, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", 0, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", 0, fmt.Errorf("reading page %d text: %w", i+1, err)
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\f"), len(pages), nil
}

// plainPDFText reads the text with the pure Go PDF reader, which copes with
// some files MuPDF renders without text
func plainPDFText(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading PDF text: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("opening PDF: %w", err)
	}
	reader, err := r.GetPlainText()
	if err != nil {
		return "", 0, fmt.Errorf("reading PDF text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return "", 0, fmt.Errorf("reading PDF text: %w", err)
	}
	return buf.String(), r.NumPage(), nil
}
