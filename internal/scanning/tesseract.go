package scanning

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// minOCRHeight is the page height below which images are upscaled before OCR
const minOCRHeight = 1600

// Tesseract implements the Scanner interface with local Tesseract OCR
type Tesseract struct {
	language string
	maxPages int
}

// NewTesseract creates a Tesseract scanner, reading French when language is empty
func NewTesseract(language string, maxPages int) *Tesseract {
	if language == "" {
		language = "fra"
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Tesseract{language: language, maxPages: maxPages}
}

// ScanDocument runs OCR over every page and joins the page texts with form feeds
func (t *Tesseract) ScanDocument(data []byte, contentType string) (*ScanResult, error) {
	imgs, err := pageImages(data, contentType, t.maxPages)
	if err != nil {
		return nil, err
	}

	res := &ScanResult{Method: MethodTesseract, Pages: len(imgs)}
	texts := make([]string, 0, len(imgs))
	for i, img := range imgs {
		text, err := t.recognize(img)
		if err != nil {
			slog.Warn("OCR failed on page", "page", i+1, "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %v", i+1, err))
			continue
		}
		texts = append(texts, text)
	}

	res.Text = joinPages(texts)
	if res.Text == "" {
		return nil, ErrNoText
	}
	return res, nil
}

func (t *Tesseract) recognize(img image.Image) (string, error) {
	png, err := preprocess(img)
	if err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(t.language); err != nil {
		return "", fmt.Errorf("setting OCR language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", fmt.Errorf("setting page segmentation: %w", err)
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("loading page image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognizing text: %w", err)
	}
	return text, nil
}

// preprocess converts a page to a high contrast grayscale PNG
func preprocess(img image.Image) ([]byte, error) {
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 20)
	gray = imaging.Sharpen(gray, 1.0)
	if gray.Bounds().Dy() < minOCRHeight {
		gray = imaging.Resize(gray, 0, minOCRHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding OCR image: %w", err)
	}
	return buf.Bytes(), nil
}

// Close is a no-op; clients are created per page
func (t *Tesseract) Close() error {
	return nil
}
