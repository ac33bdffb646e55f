package proposal_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/studiooh/proposal-export-service/proposal"
)

func keys(fields []proposal.Field) []string {
	out := []string{}
	for _, f := range fields {
		out = append(out, f.Label)
	}
	return out
}

var _ = Describe("Fields", func() {
	DescribeTable("hidden field keys are matched ignoring case and punctuation",
		func(hidden string, expected []string) {
			Expect(keys(proposal.VisibleFields([]string{hidden}))).To(Equal(expected))
		},
		Entry("lowercase key", "price", []string{"Type", "Sub-Type", "Dimensions", "Traffic", "Availability"}),
		Entry("column label", "Sub-Type", []string{"Type", "Dimensions", "Traffic", "Price", "Availability"}),
		Entry("lowercase label", "sub-type", []string{"Type", "Dimensions", "Traffic", "Price", "Availability"}),
		Entry("unknown key", "colour", []string{"Type", "Sub-Type", "Dimensions", "Traffic", "Price", "Availability"}),
	)

	It("should never hide the name column", func() {
		Expect(keys(proposal.Columns([]string{"name", "Name", "type"}))).To(Equal(
			[]string{"Name", "Sub-Type", "Dimensions", "Traffic", "Price", "Availability"}))
	})

	It("should leave only the name column when every detail is hidden", func() {
		hidden := []string{"type", "subtype", "dimensions", "traffic", "price", "availability"}
		Expect(proposal.VisibleFields(hidden)).To(BeEmpty())
		Expect(keys(proposal.Columns(hidden))).To(Equal([]string{"Name"}))
	})
})

var _ = Describe("Formatting", func() {
	DescribeTable("FormatPrice",
		func(amount string, expected string) {
			Expect(proposal.FormatPrice(decimal.RequireFromString(amount))).To(Equal(expected))
		},
		Entry("whole amount", "500", "$500.00"),
		Entry("thousands", "1500", "$1,500.00"),
		Entry("cents", "1234567.891", "$1,234,567.89"),
		Entry("zero", "0", "$0.00"),
	)

	It("should format dimensions without trailing zeros", func() {
		w, h := 12.5, 3.0
		Expect(proposal.FormatDimensions(&w, &h)).To(Equal("12.5 x 3"))
		Expect(proposal.FormatDimensions(&w, nil)).To(Equal("N/A"))
		Expect(proposal.FormatDimensions(nil, nil)).To(Equal("N/A"))
	})
})
