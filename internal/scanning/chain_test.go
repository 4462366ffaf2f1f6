package scanning

import (
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type mockScanner struct {
	result *ScanResult
	err    error
	calls  int
	closed bool
}

func (m *mockScanner) ScanDocument(data []byte, contentType string) (*ScanResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	res := *m.result
	return &res, nil
}

func (m *mockScanner) Close() error {
	m.closed = true
	return nil
}

var _ = Describe("Chain", func() {
	longText := strings.Repeat("Total HT 100,00 ", 5)

	It("returns the first result with enough text", func() {
		first := &mockScanner{err: ErrNoText}
		second := &mockScanner{result: &ScanResult{Text: longText, Method: MethodTesseract}}
		third := &mockScanner{result: &ScanResult{Text: longText, Method: MethodGemini}}

		res, err := NewChain(20, first, second, third).ScanDocument([]byte("x"), "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Method).To(Equal(MethodTesseract))
		Expect(res.Warnings).To(ConsistOf(ErrNoText.Error()))
		Expect(third.calls).To(BeZero())
	})

	It("falls back to the longest short result", func() {
		a := &mockScanner{result: &ScanResult{Text: "TVA", Method: MethodTextLayer}}
		b := &mockScanner{result: &ScanResult{Text: "Total TTC", Method: MethodTesseract}}

		res, err := NewChain(50, a, b).ScanDocument(nil, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Text).To(Equal("Total TTC"))
		Expect(res.Warnings).To(HaveLen(2))
	})

	It("returns ErrNoText with the scanner errors when nothing reads", func() {
		boom := errors.New("ollama down")
		_, err := NewChain(10, &mockScanner{err: ErrNoText}, &mockScanner{err: boom}).ScanDocument(nil, "")
		Expect(err).To(MatchError(ErrNoText))
		Expect(err).To(MatchError(boom))
	})

	It("closes every scanner", func() {
		a, b := &mockScanner{}, &mockScanner{}
		Expect(NewChain(0, a, b).Close()).To(Succeed())
		Expect(a.closed).To(BeTrue())
		Expect(b.closed).To(BeTrue())
	})
})

var _ = Describe("TextLayer", func() {
	It("reads plain text uploads", func() {
		res, err := NewTextLayer(0).ScanDocument([]byte("  Rapport d'expertise\nTotal TTC 120,00\n"), "text/plain")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Method).To(Equal(MethodPlainText))
		Expect(res.Text).To(Equal("Rapport d'expertise\nTotal TTC 120,00"))
		Expect(res.Pages).To(Equal(1))
	})

	It("has no text for images", func() {
		_, err := NewTextLayer(0).ScanDocument(testPNG(), "image/png")
		Expect(err).To(MatchError(ErrNoText))
	})

	It("rejects empty text uploads", func() {
		_, err := NewTextLayer(0).ScanDocument([]byte("   "), "text/plain")
		Expect(err).To(MatchError(ErrNoText))
	})
})
