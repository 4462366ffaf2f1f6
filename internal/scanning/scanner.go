package scanning

import "errors"

// ErrNoText is returned when a document yields no usable text
var ErrNoText = errors.New("no text found in document")

// Scan methods recorded on a ScanResult
const (
	MethodPlainText = "plain_text"
	MethodTextLayer = "text_layer"
	MethodTesseract = "tesseract"
	MethodGemini    = "gemini"
	MethodOllama    = "ollama"
)

// ScanResult is the raw text read from an uploaded report
type ScanResult struct {
	Text     string   `json:"text"`
	Method   string   `json:"method"`
	Pages    int      `json:"pages"`
	Warnings []string `json:"warnings,omitempty"`
}

// Scanner defines the interface for reading the text of a report file
type Scanner interface {
	// ScanDocument reads the text of a PDF or image
	ScanDocument(data []byte, contentType string) (*ScanResult, error)
	// Close closes the scanner and releases resources
	Close() error
}
