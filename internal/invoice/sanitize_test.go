package invoice

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/expertise-reader/internal/document"
)

func decodeParts(raw string) []RawPart {
	var parts []RawPart
	ExpectWithOffset(1, json.Unmarshal([]byte(raw), &parts)).To(Succeed())
	return parts
}

var _ = Describe("SanitizeParts", func() {
	var (
		input  []RawPart
		output []document.PartLine
	)

	JustBeforeEach(func() {
		output = SanitizeParts(input)
	})

	When("a discount column table row has a remise", func() {
		BeforeEach(func() {
			input = decodeParts(`[{"description":"ROULEMENT","quantite":1,"montantHT":100,"remise":"25"}]`)
		})

		It("applies the discount to the unit price", func() {
			Expect(output).To(HaveLen(1))
			Expect(output[0].UnitPrice).To(Equal(75.0))
		})

		It("synthesizes a comment mentioning the remise", func() {
			Expect(output[0].Comment).To(Equal("Importé avec remise 25"))
		})

		It("removes the raw remise", func() {
			Expect(output[0].Remise).To(BeEmpty())
			data, err := json.Marshal(output[0])
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).NotTo(ContainSubstring("remise"))
		})
	})

	When("the remise is a percentage", func() {
		BeforeEach(func() {
			input = []RawPart{{Description: "Optique AVG", UnitPrice: "200,00", Remise: "10 %"}}
		})

		It("subtracts the percentage", func() {
			Expect(output[0].UnitPrice).To(Equal(180.0))
		})
	})

	When("a comment already exists", func() {
		BeforeEach(func() {
			input = []RawPart{{Description: "Calandre", UnitPrice: "50", Remise: "5", Comment: "Geste commercial"}}
		})

		It("keeps the existing comment", func() {
			Expect(output[0].Comment).To(Equal("Geste commercial"))
			Expect(output[0].UnitPrice).To(Equal(45.0))
		})
	})

	When("a net amount is present", func() {
		BeforeEach(func() {
			input = decodeParts(`[{"libelle":"Capot","prix":"400,00","vetusteDeduite":"320,00","remise":"10%"}]`)
		})

		It("uses the net amount verbatim", func() {
			Expect(output[0].UnitPrice).To(Equal(320.0))
			Expect(output[0].Comment).To(BeEmpty())
		})
	})

	When("quantities are missing or invalid", func() {
		BeforeEach(func() {
			input = []RawPart{
				{Description: "Agrafe", UnitPrice: "1,20"},
				{Description: "Vis", UnitPrice: "0,50", Quantity: "abc"},
				{Description: "Joint", UnitPrice: "3", Quantity: "4"},
			}
		})

		It("defaults to 1", func() {
			Expect(output[0].Quantity).To(Equal(1.0))
			Expect(output[1].Quantity).To(Equal(1.0))
			Expect(output[2].Quantity).To(Equal(4.0))
		})
	})

	When("quantities parse to zero or less", func() {
		BeforeEach(func() {
			input = []RawPart{
				{Description: "Agrafe", UnitPrice: "1,20", Quantity: "0"},
				{Description: "Vis", UnitPrice: "0,50", Quantity: "-2"},
			}
		})

		It("keeps the parsed value", func() {
			Expect(output[0].Quantity).To(Equal(0.0))
			Expect(output[1].Quantity).To(Equal(-2.0))
		})

		It("leaves them out of the invoice total", func() {
			items := ItemsFromParts(output)
			Expect(CalculateInvoiceTotal(items, 20).Subtotal).To(Equal(0.0))
		})
	})

	When("lines are not billable", func() {
		BeforeEach(func() {
			input = []RawPart{
				{Description: "  ", UnitPrice: "10"},
				{Description: "TVA 20%", UnitPrice: "20"},
				{Description: "20%", UnitPrice: "20"},
				{Description: "Taux horaire", UnitPrice: "70"},
				{Description: "Ingrédients peinture", UnitPrice: "85"},
				{Description: "Phare", UnitPrice: "n/a"},
				{Description: "Geste commercial", UnitPrice: "0"},
			}
		})

		It("keeps only billable lines including zero cost ones", func() {
			Expect(output).To(HaveLen(1))
			Expect(output[0].Description).To(Equal("Geste commercial"))
			Expect(output[0].UnitPrice).To(Equal(0.0))
		})
	})

	It("does not modify its input", func() {
		in := []RawPart{{Description: " Aile ", UnitPrice: "100", Remise: "10"}}
		SanitizeParts(in)
		Expect(in[0].Remise).To(Equal("10"))
		Expect(in[0].Description).To(Equal(" Aile "))
	})
})

var _ = Describe("SanitizeDocumentParts", func() {
	It("is idempotent", func() {
		first := SanitizeParts([]RawPart{
			{Description: "ROULEMENT", Quantity: "1", Price: "100", Remise: "25"},
			{Description: "Bouclier AV", Quantity: "2,5", UnitPrice: "1 234,56", Remise: "12,5%"},
			{Description: "Remise globale", UnitPrice: "-50", Category: document.CategoryDiscount},
			{Description: "Petites fournitures", UnitPrice: "0"},
		})
		second := SanitizeDocumentParts(first)

		a, err := json.Marshal(first)
		Expect(err).NotTo(HaveOccurred())
		b, err := json.Marshal(second)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(Equal(string(a)))
	})

	It("consumes a remise left by the extractor", func() {
		out := SanitizeDocumentParts([]document.PartLine{{Description: "Jante", Quantity: 1, UnitPrice: 300, Remise: "10%"}})
		Expect(out[0].UnitPrice).To(Equal(270.0))
		Expect(out[0].Remise).To(BeEmpty())
		Expect(out[0].Comment).To(ContainSubstring("10%"))
	})
})

var _ = Describe("ApplyDiscount", func() {
	DescribeTable("discounts",
		func(amount float64, remise string, expected float64, applied bool) {
			got, ok := ApplyDiscount(amount, remise)
			Expect(got).To(Equal(expected))
			Expect(ok).To(Equal(applied))
		},
		Entry("absolute", 100.0, "25", 75.0, true),
		Entry("percentage", 100.0, "25%", 75.0, true),
		Entry("percentage clamped", 100.0, "150%", 0.0, true),
		Entry("empty", 100.0, "", 100.0, false),
		Entry("unparseable", 100.0, "abc", 100.0, false),
		Entry("zero", 100.0, "0", 100.0, false),
	)
})
