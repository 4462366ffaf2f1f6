package money_test

import (
	"encoding/json"
	"math"

	"github.com/zombor/expertise-reader/internal/money"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseNumber", func() {
	DescribeTable("parses formatted amounts",
		func(input string, expected float64) {
			Expect(money.ParseNumber(input)).To(Equal(expected))
		},
		Entry("french thousands with space", "1 234,56", 1234.56),
		Entry("english thousands with comma", "1,234.56", 1234.56),
		Entry("french thousands with dot", "1.234,56", 1234.56),
		Entry("comma decimal only", "12,5", 12.5),
		Entry("dot decimal only", "12.5", 12.5),
		Entry("integer", "225", 225.0),
		Entry("non breaking space", "2 500,00", 2500.0),
		Entry("euro suffix", "75,00 €", 75.0),
		Entry("negative", "-25,50", -25.5),
		Entry("rounds to two decimals", "636,345", 636.35),
		Entry("several thousands commas", "1,234,567.8", 1234567.8),
	)

	DescribeTable("returns NaN for non numeric input",
		func(input string) {
			Expect(math.IsNaN(money.ParseNumber(input))).To(BeTrue())
		},
		Entry("letters", "abc"),
		Entry("empty", ""),
		Entry("blank", "   "),
		Entry("mixed", "12abc"),
		Entry("separator only", ","),
	)
})

var _ = Describe("ParseValue", func() {
	It("accepts floats", func() {
		Expect(money.ParseValue(12.345)).To(Equal(12.35))
	})

	It("accepts ints", func() {
		Expect(money.ParseValue(3)).To(Equal(3.0))
	})

	It("accepts json numbers", func() {
		Expect(money.ParseValue(json.Number("75.5"))).To(Equal(75.5))
	})

	It("accepts strings", func() {
		Expect(money.ParseValue("1 234,56")).To(Equal(1234.56))
	})

	It("returns NaN for nil", func() {
		Expect(math.IsNaN(money.ParseValue(nil))).To(BeTrue())
	})

	It("returns NaN for other types", func() {
		Expect(math.IsNaN(money.ParseValue(true))).To(BeTrue())
	})
})

var _ = Describe("cents helpers", func() {
	It("converts to cents without drift", func() {
		Expect(money.ToCents(0.1 + 0.2)).To(Equal(int64(30)))
		Expect(money.ToCents(1272.69)).To(Equal(int64(127269)))
	})

	It("converts back from cents", func() {
		Expect(money.FromCents(127269)).To(Equal(1272.69))
	})

	It("multiplies exactly", func() {
		Expect(money.MulCents(636.345, 2)).To(Equal(int64(127269)))
	})

	It("applies a rate to cents", func() {
		Expect(money.PercentOfCents(10000, 0.2)).To(Equal(int64(2000)))
	})

	It("checks consistency within tolerance", func() {
		Expect(money.Consistent(100, 20, 120, money.Tolerance)).To(BeTrue())
		Expect(money.Consistent(100, 20, 120.01, money.Tolerance)).To(BeTrue())
		Expect(money.Consistent(100, 20, 119, money.Tolerance)).To(BeFalse())
	})
})
