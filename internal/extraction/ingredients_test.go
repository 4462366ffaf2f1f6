package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/expertise-reader/internal/document"
)

var _ = Describe("findIngredientLabor", func() {
	DescribeTable("applies the first heuristic that fires",
		func(text, heuristic string, total float64) {
			l, got, ok := findIngredientLabor(newSource(text, DefaultConfig()))
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(heuristic))
			Expect(l.Type).To(Equal("Ingrédients peinture"))
			Expect(l.Total).To(Equal(total))
		},
		Entry("inline HT and TTC", "Ingrédients peinture 85,00 102,00", "inline_ht_ttc", 85.0),
		Entry("HT and TTC on the next lines", "Ingrédients peinture\nHT 50,00\nTTC 60,00", "split_ht_ttc", 50.0),
		Entry("bare HT", "Ingredients de peinture : 42,00", "bare_ht", 42.0),
		Entry("hours, rate and total", "Ingrédients peinture 2,5 30,00 75,00", "hours_rate_total", 75.0),
	)

	It("keeps hours and rate from a triple", func() {
		l, _, _ := findIngredientLabor(newSource("Ingrédients peinture 2,5 30,00 75,00", DefaultConfig()))
		Expect(l.Hours).To(Equal(document.Known(2.5)))
		Expect(l.Rate).To(Equal(document.Known(30)))
	})

	It("finds nothing without an ingredient label", func() {
		_, _, ok := findIngredientLabor(newSource("Peinture 3,00 65,00 195,00", DefaultConfig()))
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("ingredient reconciliation", func() {
	var doc *document.Document

	When("an ingredient was read as a part", func() {
		BeforeEach(func() {
			doc = document.New(0.2)
			doc.Parts = []document.PartLine{
				{Description: "Ingrédients peinture", Quantity: 1, UnitPrice: 60, Category: document.CategoryPiece},
				{Description: "Baguette", Quantity: 1, UnitPrice: 60, Category: document.CategoryPiece},
			}
			reconcileIngredients(doc)
		})

		It("moves it to labour", func() {
			Expect(doc.LaborDetails).To(HaveLen(1))
			Expect(doc.LaborDetails[0].Type).To(Equal("Ingrédients peinture"))
			Expect(doc.LaborDetails[0].Total).To(Equal(60.0))
			Expect(doc.LaborDetails[0].Hours.IsKnown()).To(BeFalse())
		})

		It("keeps unrelated parts with the same amount and reports them", func() {
			Expect(doc.Parts).To(HaveLen(1))
			Expect(doc.Parts[0].Description).To(Equal("Baguette"))
			Expect(doc.Debug["ingredient_amount_collisions"]).To(Equal([]string{"Baguette"}))
		})
	})

	When("an ingredient labour line already exists", func() {
		BeforeEach(func() {
			doc = document.New(0.2)
			doc.LaborDetails = []document.LaborLine{{Type: "Ingrédients peinture", Hours: document.Unspecified(), Rate: document.Unspecified(), Total: 85}}
			doc.Parts = []document.PartLine{{Description: "Ingredients peinture", Quantity: 1, UnitPrice: 85}}
			reconcileIngredients(doc)
		})

		It("drops the duplicate part", func() {
			Expect(doc.Parts).To(BeEmpty())
			Expect(doc.LaborDetails).To(HaveLen(1))
		})
	})

	It("allows a single ingredient labour line", func() {
		doc = document.New(0.2)
		l := document.LaborLine{Type: "Ingrédients peinture", Hours: document.Unspecified(), Rate: document.Unspecified(), Total: 85}
		Expect(addLabor(doc, l)).To(BeTrue())
		l.Total = 90
		Expect(addLabor(doc, l)).To(BeFalse())
	})
})

var _ = Describe("looser labour formats", func() {
	It("reads an AlphaExpert single line", func() {
		doc := New(DefaultConfig(), nil).Extract("Tôlerie – 2,5 h – 60 €/h – 150 €")
		Expect(doc.LaborDetails).To(ContainElement(document.LaborLine{
			Type: "Tôlerie", Hours: document.Known(2.5), Rate: document.Known(60), Total: 150,
		}))
		Expect(doc.Warnings).To(ContainElement(document.WarningAutoInterpreted))
	})

	It("keeps the label intact when accents arrive decomposed", func() {
		doc := New(DefaultConfig(), nil).Extract("To\u0302lerie – 2,5 h – 60 €/h – 150 €")
		Expect(doc.LaborDetails).To(ContainElement(document.LaborLine{
			Type: "Tôlerie", Hours: document.Known(2.5), Rate: document.Known(60), Total: 150,
		}))
	})

	It("reads a forfait per shock section", func() {
		doc := New(DefaultConfig(), nil).Extract("Forfaits par choc\nNettoyage 35,00\nGéométrie 80,00\n")
		Expect(doc.LaborDetails).To(HaveLen(2))
		Expect(doc.LaborDetails[0].Type).To(Equal("Forfait Nettoyage"))
		Expect(doc.LaborDetails[1].Total).To(Equal(80.0))
	})
})

var _ = Describe("originalPrefix", func() {
	It("maps a folded prefix back onto decomposed accents", func() {
		Expect(originalPrefix("Ge\u0301ome\u0301trie 80,00", "geometrie")).To(Equal("Géométrie"))
	})

	It("maps a folded prefix back across ligatures", func() {
		Expect(originalPrefix("Main d'œuvre 120,00", "main d'oeuvre")).To(Equal("Main d'oeuvre"))
	})
})
