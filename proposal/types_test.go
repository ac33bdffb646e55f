package proposal_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/studiooh/proposal-export-service/proposal"
)

var _ = Describe("MediaItem", func() {
	DescribeTable("availability is normalized at the boundary",
		func(raw string, expected bool) {
			var item proposal.MediaItem
			Expect(json.Unmarshal([]byte(`{"id":"x","availability":`+raw+`}`), &item)).To(Succeed())
			Expect(item.Available).To(Equal(expected))
		},
		Entry("boolean true", `true`, true),
		Entry("boolean false", `false`, false),
		Entry("display string", `"Available"`, true),
		Entry("negative display string", `"Not Available"`, false),
		Entry("null", `null`, false),
	)

	It("should reject an unknown availability string", func() {
		var item proposal.MediaItem
		Expect(json.Unmarshal([]byte(`{"availability":"maybe"}`), &item)).NotTo(Succeed())
	})

	It("should accept numeric traffic and prices", func() {
		var item proposal.MediaItem
		Expect(json.Unmarshal([]byte(`{"name":"Board","traffic":12000,"price":99.5,"image_urls":["u"]}`), &item)).To(Succeed())
		Expect(item.Name).To(Equal("Board"))
		Expect(item.Traffic).To(Equal("12000"))
		Expect(item.Price.String()).To(Equal("99.5"))
		Expect(item.ImageURLs).To(Equal([]string{"u"}))
	})
})

var _ = Describe("Options", func() {
	It("should default the colors", func() {
		opts := proposal.Options{FontColor: "#333333"}.WithDefaults()
		Expect(opts.BackgroundColor).To(Equal("#ffffff"))
		Expect(opts.FontColor).To(Equal("#333333"))
	})

	It("should list only the contact lines that are set", func() {
		c := proposal.ContactInfo{Email: "a@b.c", Address: "1 Main St"}
		Expect(c.Lines()).To(Equal([]string{"Email: a@b.c", "Address: 1 Main St"}))
		Expect(proposal.ContactInfo{}.Empty()).To(BeTrue())
	})
})
