package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseLaborTable", func() {
	var (
		text string
		rows []LaborRow
	)

	JustBeforeEach(func() {
		rows = ParseLaborTable(text)
	})

	When("a forfait row carries an hour mark", func() {
		BeforeEach(func() {
			text = "FORFAITS 3h 75 225"
		})

		It("reads hours, rate and amount as separate columns", func() {
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].Label).To(Equal("FORFAITS"))
			Expect(rows[0].Hours).To(Equal(3.0))
			Expect(rows[0].Rate).To(Equal(75.0))
			Expect(rows[0].MontantHT).To(Equal(225.0))
			Expect(rows[0].MontantTVA).To(BeNil())
			Expect(rows[0].MontantTTC).To(BeNil())
		})
	})

	When("a row has VAT and TTC columns", func() {
		BeforeEach(func() {
			text = "T1 2,00 60,00 120,00 24,00 144,00"
		})

		It("reads the optional columns", func() {
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].Label).To(Equal("T1"))
			Expect(*rows[0].MontantTVA).To(Equal(24.0))
			Expect(*rows[0].MontantTTC).To(Equal(144.0))
		})
	})

	When("the amount uses space grouped thousands", func() {
		BeforeEach(func() {
			text = "Peinture 20,00 65,00 1 300,00"
		})

		It("keeps the grouped amount whole", func() {
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].MontantHT).To(Equal(1300.0))
		})
	})

	When("the table is pipe delimited across pages", func() {
		BeforeEach(func() {
			text = "| Tôlerie | 1,50 | 60,00 | 90,00 |\f| Peinture | 2,00 | 65,00 | 130,00 |"
		})

		It("reads a row per line", func() {
			Expect(rows).To(HaveLen(2))
			Expect(rows[0].Label).To(Equal("Tôlerie"))
			Expect(rows[1].MontantHT).To(Equal(130.0))
		})
	})

	When("a forfait line does not fit the column layout", func() {
		BeforeEach(func() {
			text = "Forfait réglage 1 x 45,00 = 45,00"
		})

		It("falls back to the first numeric tokens", func() {
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].Label).To(Equal("Forfait réglage"))
			Expect(rows[0].Hours).To(Equal(1.0))
			Expect(rows[0].Rate).To(Equal(45.0))
			Expect(rows[0].MontantHT).To(Equal(45.0))
		})
	})

	When("lines look like part rows", func() {
		BeforeEach(func() {
			text = "PARE-CHOC AV 1 245,00 245,00\nTél : 06 12 34 56 78"
		})

		It("does not read them as labour", func() {
			Expect(rows).To(BeEmpty())
		})
	})
})
