package models_test

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	m "github.com/studiooh/proposal-export-service/models"
	"github.com/studiooh/proposal-export-service/proposal"
)

var _ = Describe("Models", func() {
	Describe("Media.Item", func() {
		It("should copy the listing into a pipeline snapshot", func() {
			width := 40.0
			city := "Austin"
			media := &m.Media{
				ID:           uuid.New(),
				Name:         "Main St Board",
				Type:         "Billboard",
				City:         &city,
				Width:        &width,
				Price:        decimal.RequireFromString("1500.50"),
				Availability: true,
				Geolocation:  datatypes.JSON(`{"latitude": 30.26, "longitude": -97.74}`),
				ImageURLs:    pq.StringArray{"https://img/1.png", "https://img/2.png"},
			}

			item := media.Item()
			Expect(item.ID).To(Equal(media.ID.String()))
			Expect(item.City).To(Equal("Austin"))
			Expect(item.Subtype).To(BeEmpty())
			Expect(item.Traffic).To(BeEmpty())
			Expect(*item.Width).To(Equal(40.0))
			Expect(item.Height).To(BeNil())
			Expect(item.Price.String()).To(Equal("1500.5"))
			Expect(item.Available).To(BeTrue())
			Expect(item.ImageURLs).To(Equal([]string{"https://img/1.png", "https://img/2.png"}))
			Expect(*item.Latitude).To(Equal(30.26))
			Expect(*item.Longitude).To(Equal(-97.74))
		})

		It("should ignore a malformed geolocation", func() {
			media := &m.Media{ID: uuid.New(), Geolocation: datatypes.JSON(`"somewhere"`)}
			item := media.Item()
			Expect(item.Latitude).To(BeNil())
			Expect(item.Longitude).To(BeNil())
		})
	})

	Describe("Branding", func() {
		It("should expose the contact block with missing values blank", func() {
			email := "sales@studiooh.example"
			b := &m.Branding{ContactEmail: &email}
			Expect(b.ContactInfo()).To(Equal(proposal.ContactInfo{Email: email}))
			Expect(b.Logo()).To(BeEmpty())
		})
	})

	Describe("ExportedProposal options", func() {
		It("should return zero options when none were stored", func() {
			ep := &m.ExportedProposal{}
			opts, err := ep.GetOptions()
			Expect(err).To(BeNil())
			Expect(opts).To(Equal(proposal.Options{}))
		})

		It("should keep the hidden fields chosen for the run", func() {
			ep := &m.ExportedProposal{}
			Expect(ep.SetOptions(proposal.Options{ClientName: "Acme", HiddenFields: []string{"price"}})).To(Succeed())
			opts, err := ep.GetOptions()
			Expect(err).To(BeNil())
			Expect(opts.ClientName).To(Equal("Acme"))
			Expect(opts.HiddenFields).To(ConsistOf("price"))
		})
	})
})
