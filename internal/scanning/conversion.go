package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"net/http"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// renderDPI is the resolution used when rasterizing PDF pages for OCR
const renderDPI = 200

// DefaultMaxPages bounds how many pages are rasterized per document
const DefaultMaxPages = 10

// renderPDF rasterizes up to maxPages pages of a PDF
func renderPDF(pdfData []byte, maxPages int) ([]image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}
	pages := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		img, err := doc.ImageDPI(i, renderDPI)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page %d: %w", i+1, err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}

// decodeImage decodes JPEG, PNG, GIF and HEIC/HEIF images
func decodeImage(imageData []byte, mimeType string) (image.Image, error) {
	// Go's standard image package doesn't support HEIC
	if isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		img, err := heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		if strings.Contains(err.Error(), "unknown format") || strings.Contains(err.Error(), "unsupported") {
			return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, HEIC, HEIF, PDF. Error: %w", err)
		}
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// pageImages returns one image per page of a PDF or image upload
func pageImages(data []byte, contentType string, maxPages int) ([]image.Image, error) {
	mimeType := normalizeMimeType(contentType, data)
	if mimeType == "application/pdf" {
		return renderPDF(data, maxPages)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("unsupported content type %q", mimeType)
	}
	img, err := decodeImage(data, mimeType)
	if err != nil {
		return nil, err
	}
	return []image.Image{img}, nil
}

// encodePNG encodes an image as PNG
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// pagePNGs returns the pages of a document encoded as PNG
func pagePNGs(data []byte, contentType string, maxPages int) ([][]byte, error) {
	mimeType := normalizeMimeType(contentType, data)
	if mimeType == "image/png" {
		return [][]byte{data}, nil
	}
	imgs, err := pageImages(data, mimeType, maxPages)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(imgs))
	for _, img := range imgs {
		b, err := encodePNG(img)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// isHEICFormat checks if the image data is in HEIC/HEIF format
// HEIC files carry an ftyp box at offset 4 with a HEIF brand
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// normalizeMimeType lower-cases the declared type, sniffing the content when
// it is missing or generic
func normalizeMimeType(contentType string, data []byte) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	switch {
	case bytes.HasPrefix(data, []byte("%PDF")):
		return "application/pdf"
	case isHEICFormat(data):
		return "image/heic"
	case mimeType == "" || mimeType == "application/octet-stream":
		sniffed := http.DetectContentType(data)
		if i := strings.IndexByte(sniffed, ';'); i >= 0 {
			sniffed = sniffed[:i]
		}
		return sniffed
	}
	return mimeType
}
