package exports_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/studiooh/proposal-export-service/exports"
	"github.com/studiooh/proposal-export-service/models"
)

var _ = Describe("CleanExpired", func() {
	var (
		db      *memoryDB
		storage *memoryStorage
		now     time.Time
	)

	BeforeEach(func() {
		db = newMemoryDB()
		storage = newMemoryStorage()
		now = time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)
	})

	addProposal := func(key string, expires *time.Time) *models.ExportedProposal {
		p := &models.ExportedProposal{Format: models.PDF, Status: models.Complete, S3Key: key, Expires: expires}
		Expect(db.Create(p)).To(Succeed())
		if key != "" {
			Expect(storage.Upload(context.Background(), key, "application/pdf", []byte("pdf"))).To(Succeed())
		}
		return p
	}

	It("removes expired proposals and their artifacts only", func() {
		past := now.Add(-time.Hour)
		future := now.Add(time.Hour)
		expired := addProposal("org/a/Proposal.pdf", &past)
		fresh := addProposal("org/b/Proposal.pdf", &future)
		pending := addProposal("", nil)

		deleted, err := exports.CleanExpired(context.Background(), db, storage, now, log)
		Expect(err).ToNot(HaveOccurred())
		Expect(deleted).To(Equal(int64(1)))

		_, err = db.Get(expired.ID)
		Expect(err).To(MatchError(models.ErrRecordNotFound))
		_, err = db.Get(fresh.ID)
		Expect(err).ToNot(HaveOccurred())
		_, err = db.Get(pending.ID)
		Expect(err).ToNot(HaveOccurred())

		Expect(storage.objects).To(HaveKey("org/b/Proposal.pdf"))
		Expect(storage.objects).ToNot(HaveKey("org/a/Proposal.pdf"))
	})

	It("does nothing when nothing has expired", func() {
		deleted, err := exports.CleanExpired(context.Background(), db, storage, now, log)
		Expect(err).ToNot(HaveOccurred())
		Expect(deleted).To(BeZero())
	})
})
