package document_test

import (
	"encoding/json"

	"github.com/zombor/expertise-reader/internal/document"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Number", func() {
	It("encodes known values as numbers", func() {
		data, err := json.Marshal(document.Known(3.5))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("3.5"))
	})

	It("encodes unspecified values as a dash", func() {
		data, err := json.Marshal(document.Unspecified())
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`"-"`))
	})

	It("decodes both forms", func() {
		var line document.LaborLine
		Expect(json.Unmarshal([]byte(`{"type":"Forfait","hours":"-","rate":70,"total":120}`), &line)).To(Succeed())
		Expect(line.Hours.IsKnown()).To(BeFalse())
		rate, ok := line.Rate.Value()
		Expect(ok).To(BeTrue())
		Expect(rate).To(Equal(70.0))
	})

	It("falls back when unspecified", func() {
		Expect(document.Unspecified().Or(2)).To(Equal(2.0))
		Expect(document.Known(1).Or(2)).To(Equal(1.0))
	})
})

var _ = Describe("Document", func() {
	var doc *document.Document

	BeforeEach(func() {
		doc = document.New(0.20)
	})

	It("starts with unknown client names", func() {
		Expect(doc.Client.FirstName).To(Equal(document.Unknown))
		Expect(doc.Client.LastName).To(Equal(document.Unknown))
		Expect(doc.Report.ReportType).To(Equal(document.ReportGeneric))
		Expect(doc.TaxRate).To(Equal(0.20))
	})

	It("records warnings once", func() {
		doc.AddWarning(document.WarningAutoInterpreted)
		doc.AddWarning(document.WarningAutoInterpreted)
		Expect(doc.Warnings).To(Equal([]string{document.WarningAutoInterpreted}))
	})

	Describe("AddPart", func() {
		It("skips duplicates by description and price", func() {
			Expect(doc.AddPart(document.PartLine{Description: "Pare-choc AV", UnitPrice: 250})).To(BeTrue())
			Expect(doc.AddPart(document.PartLine{Description: "PARE-CHOC AV ", UnitPrice: 250.004})).To(BeFalse())
			Expect(doc.Parts).To(HaveLen(1))
		})

		It("defaults quantity and category", func() {
			doc.AddPart(document.PartLine{Description: "Optique", UnitPrice: 100})
			Expect(doc.Parts[0].Quantity).To(Equal(1.0))
			Expect(doc.Parts[0].Category).To(Equal(document.CategoryPiece))
		})

		It("rejects blank descriptions", func() {
			Expect(doc.AddPart(document.PartLine{Description: "  ", UnitPrice: 10})).To(BeFalse())
		})
	})

	It("clones without sharing slices", func() {
		doc.AddPart(document.PartLine{Description: "Aile", UnitPrice: 90})
		doc.TotalHT = document.Float(90)
		clone := doc.Clone()
		clone.Parts[0].UnitPrice = 1
		*clone.TotalHT = 1
		Expect(doc.Parts[0].UnitPrice).To(Equal(90.0))
		Expect(*doc.TotalHT).To(Equal(90.0))
	})
})
