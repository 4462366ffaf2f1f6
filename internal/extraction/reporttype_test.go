package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/expertise-reader/internal/document"
)

var _ = Describe("DetectReportType", func() {
	DescribeTable("classifies the report",
		func(text string, expected document.ReportType) {
			Expect(DetectReportType(text)).To(Equal(expected))
		},
		Entry("BCA phrase", "BCA Expertise - Rapport", document.ReportBCA),
		Entry("BCA wins over émetteur", "Émetteur : BCA Expertise", document.ReportBCA),
		Entry("independent expert", "ÉMETTEUR : Cabinet Martin", document.ReportIndependent),
		Entry("accent-free émetteur", "Emetteur: Cabinet Martin", document.ReportIndependent),
		Entry("parts list", "LISTE DES PIÈCES", document.ReportStructuredPDF),
		Entry("table header", "Réf. Libellé Qté", document.ReportStructuredPDF),
		Entry("nothing known", "Rapport d'expertise automobile", document.ReportGeneric),
		Entry("empty text", "", document.ReportGeneric),
	)
})
