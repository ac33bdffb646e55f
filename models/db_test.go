package models_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	m "github.com/studiooh/proposal-export-service/models"
	"github.com/studiooh/proposal-export-service/utils"
)

var _ = Describe("Db", func() {
	var (
		exportedProposal *m.ExportedProposal
		user             m.User
	)

	BeforeEach(func() {
		setupTest(testGormDB)
		user = m.User{AccountID: "1234", OrganizationID: "5678", Username: "batman"}
		exportedProposal = &m.ExportedProposal{
			RequestID:    "request-123",
			Format:       m.PDF,
			ClientName:   "Wayne Enterprises",
			CampaignName: "Night Lights",
			MediaIDs:     pq.StringArray{uuid.NewString()},
			User:         user,
		}
	})

	Describe("Create", func() {
		It("should assign an id and a pending status", func() {
			Expect(proposalDB.Create(exportedProposal)).To(Succeed())
			Expect(exportedProposal.ID).NotTo(Equal(uuid.Nil))
			Expect(exportedProposal.Status).To(Equal(m.Pending))
		})
	})

	Describe("Get", func() {
		It("should return the stored proposal", func() {
			Expect(proposalDB.Create(exportedProposal)).To(Succeed())

			result, err := proposalDB.Get(exportedProposal.ID)
			Expect(err).To(BeNil())
			Expect(result.ClientName).To(Equal("Wayne Enterprises"))
			Expect(result.User).To(Equal(user))
		})

		It("should return ErrRecordNotFound for an unknown id", func() {
			_, err := proposalDB.Get(uuid.New())
			Expect(err).To(Equal(m.ErrRecordNotFound))
		})
	})

	Describe("GetWithUser", func() {
		It("should not return another user's proposal", func() {
			Expect(proposalDB.Create(exportedProposal)).To(Succeed())

			_, err := proposalDB.GetWithUser(exportedProposal.ID, m.User{AccountID: "1", OrganizationID: "2", Username: "joker"})
			Expect(err).To(Equal(m.ErrRecordNotFound))

			result, err := proposalDB.GetWithUser(exportedProposal.ID, user)
			Expect(err).To(BeNil())
			Expect(result.ID).To(Equal(exportedProposal.ID))
		})
	})

	Describe("Updates", func() {
		It("should persist status and progress", func() {
			Expect(proposalDB.Create(exportedProposal)).To(Succeed())
			Expect(proposalDB.Updates(exportedProposal, map[string]interface{}{"status": m.Complete, "progress": 100})).To(Succeed())

			result, err := proposalDB.Get(exportedProposal.ID)
			Expect(err).To(BeNil())
			Expect(result.Status).To(Equal(m.Complete))
			Expect(result.Progress).To(Equal(100))
		})
	})

	Describe("Delete", func() {
		It("should delete the proposal", func() {
			Expect(proposalDB.Create(exportedProposal)).To(Succeed())
			Expect(proposalDB.Delete(exportedProposal.ID, user)).To(Succeed())
			Expect(proposalDB.Delete(exportedProposal.ID, user)).To(Equal(m.ErrRecordNotFound))
		})
	})

	Describe("APIList", func() {
		It("should filter by format and honour the sort order", func() {
			Expect(proposalDB.Create(exportedProposal)).To(Succeed())
			second := &m.ExportedProposal{Format: m.Excel, ClientName: "Acme", User: user}
			Expect(proposalDB.Create(second)).To(Succeed())
			third := &m.ExportedProposal{Format: m.PDF, ClientName: "Acme", User: user}
			Expect(proposalDB.Create(third)).To(Succeed())

			all, err := proposalDB.APIList(user, m.ListParams{Sort: []string{"client_name asc", "created_at asc"}})
			Expect(err).To(BeNil())
			Expect(all).To(HaveLen(3))
			Expect(all[0].ID).To(Equal(second.ID))
			Expect(all[2].ID).To(Equal(exportedProposal.ID))

			pdfs, err := proposalDB.APIList(user, m.ListParams{Format: "pdf"})
			Expect(err).To(BeNil())
			Expect(pdfs).To(HaveLen(2))

			others, err := proposalDB.APIList(m.User{OrganizationID: "other"}, m.ListParams{})
			Expect(err).To(BeNil())
			Expect(others).To(BeEmpty())
		})
	})

	Describe("DeleteExpired", func() {
		DescribeTable("Test that proposals are purged correctly",
			func(expires time.Time, remaining int) {
				exportedProposal.Expires = &expires
				Expect(proposalDB.Create(exportedProposal)).To(Succeed())

				expired, err := proposalDB.ListExpired(time.Now())
				Expect(err).To(BeNil())
				Expect(expired).To(HaveLen(1 - remaining))

				_, err = proposalDB.DeleteExpired(time.Now())
				Expect(err).To(BeNil())

				var count int64
				testGormDB.Model(&m.ExportedProposal{}).Where("id = ?", exportedProposal.ID).Count(&count)
				Expect(int(count)).To(Equal(remaining))
			},
			Entry("Proposal should be purged", time.Now().AddDate(0, 0, -8), 0),
			Entry("Proposal should NOT be purged", time.Now().Add(time.Hour), 1),
		)
	})

	Describe("ListMedia", func() {
		It("should only return media of the requested organization", func() {
			mine := utils.MediaFixture(user.OrganizationID, "Mine")
			theirs := utils.MediaFixture("someone-else", "Theirs")
			Expect(testGormDB.Create(mine).Error).To(BeNil())
			Expect(testGormDB.Create(theirs).Error).To(BeNil())

			result, err := proposalDB.ListMedia(context.Background(), user.OrganizationID, []uuid.UUID{mine.ID, theirs.ID})
			Expect(err).To(BeNil())
			Expect(result).To(HaveLen(1))
			Expect(result[0].Name).To(Equal("Mine"))
			Expect(result[0].Price.StringFixed(2)).To(Equal("500.00"))
		})

		It("should not query for an empty id list", func() {
			result, err := proposalDB.ListMedia(context.Background(), user.OrganizationID, nil)
			Expect(err).To(BeNil())
			Expect(result).To(BeEmpty())
		})
	})

	Describe("Selection", func() {
		It("should upsert and delete the user's selection", func() {
			_, err := proposalDB.GetSelection(user)
			Expect(err).To(Equal(m.ErrRecordNotFound))

			first := uuid.NewString()
			Expect(proposalDB.SaveSelection(&m.Selection{OrganizationID: user.OrganizationID, Username: user.Username, MediaIDs: pq.StringArray{first}})).To(Succeed())
			second := uuid.NewString()
			Expect(proposalDB.SaveSelection(&m.Selection{OrganizationID: user.OrganizationID, Username: user.Username, MediaIDs: pq.StringArray{second, first}})).To(Succeed())

			sel, err := proposalDB.GetSelection(user)
			Expect(err).To(BeNil())
			Expect([]string(sel.MediaIDs)).To(Equal([]string{second, first}))

			Expect(proposalDB.DeleteSelection(user)).To(Succeed())
			_, err = proposalDB.GetSelection(user)
			Expect(err).To(Equal(m.ErrRecordNotFound))
		})
	})

	Describe("GetBranding", func() {
		It("should look the branding up by username", func() {
			logo := "logos/batman.png"
			Expect(testGormDB.Create(&m.Branding{ID: uuid.New(), ClerkUserID: user.Username, LogoImgURL: &logo}).Error).To(BeNil())

			b, err := proposalDB.GetBranding(user)
			Expect(err).To(BeNil())
			Expect(b.Logo()).To(Equal(logo))

			_, err = proposalDB.GetBranding(m.User{Username: "robin"})
			Expect(err).To(Equal(m.ErrRecordNotFound))
		})
	})
})
