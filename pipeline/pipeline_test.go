package pipeline_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/studiooh/proposal-export-service/models"
	"github.com/studiooh/proposal-export-service/pipeline"
	"github.com/studiooh/proposal-export-service/proposal"
	"github.com/studiooh/proposal-export-service/render"
)

var log = zap.NewNop().Sugar()

var _ = Describe("Collector", func() {
	var (
		ctx       context.Context
		source    *memorySource
		collector *pipeline.Collector
		user      models.User
		a, b, c   *models.Media
	)

	BeforeEach(func() {
		ctx = context.Background()
		a, b, c = mediaRow("a"), mediaRow("b"), mediaRow("c")
		source = &memorySource{media: map[string][]*models.Media{
			"org-1": {a, b, c},
			"org-2": {mediaRow("other")},
		}}
		collector = pipeline.NewCollector(source, log)
		user = models.User{OrganizationID: "org-1", Username: "user_1"}
	})

	It("should return media in selection order", func() {
		items, err := collector.Collect(ctx, user, []string{c.ID.String(), a.ID.String()})
		Expect(err).ToNot(HaveOccurred())
		Expect(items).To(HaveLen(2))
		Expect(items[0].Name).To(Equal("c"))
		Expect(items[1].Name).To(Equal("a"))
		Expect(source.queries).To(Equal(1))
	})

	It("should keep the first occurrence of a duplicated id", func() {
		items, err := collector.Collect(ctx, user, []string{b.ID.String(), a.ID.String(), b.ID.String()})
		Expect(err).ToNot(HaveOccurred())
		Expect(items).To(HaveLen(2))
		Expect(items[0].Name).To(Equal("b"))
		Expect(items[1].Name).To(Equal("a"))
	})

	It("should drop ids that do not resolve", func() {
		foreign := source.media["org-2"][0].ID.String()
		items, err := collector.Collect(ctx, user, []string{"not-a-uuid", foreign, a.ID.String()})
		Expect(err).ToNot(HaveOccurred())
		Expect(items).To(HaveLen(1))
		Expect(items[0].Name).To(Equal("a"))
	})

	It("should not query for an empty selection", func() {
		items, err := collector.Collect(ctx, user, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(items).To(BeEmpty())
		Expect(source.queries).To(Equal(0))
	})

	It("should wrap data store failures", func() {
		source.err = errors.New("connection refused")
		_, err := collector.Collect(ctx, user, []string{a.ID.String()})
		Expect(err).To(MatchError(ContainSubstring("connection refused")))
	})
})

var _ = Describe("Exclude", func() {
	It("should remove excluded ids and keep order", func() {
		Expect(pipeline.Exclude([]string{"1", "2", "3", "4"}, []string{"3", "1"})).To(Equal([]string{"2", "4"}))
	})

	It("should return the selection untouched when nothing is excluded", func() {
		Expect(pipeline.Exclude([]string{"1", "2"}, nil)).To(Equal([]string{"1", "2"}))
	})
})

var _ = Describe("Pipeline", func() {
	var (
		ctx      context.Context
		source   *memorySource
		renderer *fakeRenderer
		p        *pipeline.Pipeline
		user     models.User
		a, b     *models.Media
		progress *proposal.Progress
		seen     []int
	)

	BeforeEach(func() {
		ctx = context.Background()
		a, b = mediaRow("a"), mediaRow("b")
		source = &memorySource{media: map[string][]*models.Media{"org-1": {a, b}}}
		renderer = &fakeRenderer{format: "ppt", steps: true}
		p = pipeline.New(pipeline.NewCollector(source, log), render.Registry{"ppt": renderer}, 0, log)
		user = models.User{OrganizationID: "org-1"}
		seen = nil
		progress = proposal.NewProgress(func(percent int) { seen = append(seen, percent) })
	})

	It("should render the selection into an artifact", func() {
		artifact, err := p.Run(ctx, pipeline.Request{
			Format:   "ppt",
			User:     user,
			MediaIDs: []string{b.ID.String(), a.ID.String()},
			Options:  proposal.Options{ClientName: "Acme"},
		}, progress)
		Expect(err).ToNot(HaveOccurred())
		Expect(artifact.Filename).To(Equal("proposal.ppt"))
		Expect(artifact.Data).To(Equal([]byte("document")))
		Expect(artifact.MediaCount).To(Equal(2))

		Expect(renderer.slides).To(HaveLen(4))
		Expect(renderer.slides[0].Title.ClientName).To(Equal("Acme"))
		Expect(renderer.slides[1].Media.Name).To(Equal("b"))
		Expect(renderer.slides[2].Media.Name).To(Equal("a"))
		Expect(progress.Percent()).To(Equal(100))
		Expect(seen).To(Equal([]int{0, 25, 50, 75, 100}))
	})

	It("should skip excluded media", func() {
		_, err := p.Run(ctx, pipeline.Request{
			Format:           "ppt",
			User:             user,
			MediaIDs:         []string{a.ID.String(), b.ID.String()},
			ExcludedMediaIDs: []string{a.ID.String()},
		}, progress)
		Expect(err).ToNot(HaveOccurred())
		Expect(proposal.MediaCount(renderer.slides)).To(Equal(1))
		Expect(renderer.slides[1].Media.Name).To(Equal("b"))
	})

	It("should refuse an empty selection without rendering", func() {
		_, err := p.Run(ctx, pipeline.Request{Format: "ppt", User: user}, progress)
		Expect(err).To(MatchError(proposal.ErrNothingSelected))
		Expect(pipeline.IsUserError(err)).To(BeTrue())
		Expect(renderer.calls).To(Equal(0))
		Expect(progress.Percent()).To(Equal(100))
	})

	It("should name an unsupported format", func() {
		_, err := p.Run(ctx, pipeline.Request{Format: "docx", User: user, MediaIDs: []string{a.ID.String()}}, progress)
		var unsupported *pipeline.UnsupportedFormatError
		Expect(errors.As(err, &unsupported)).To(BeTrue())
		Expect(unsupported.Format).To(Equal("docx"))
		Expect(unsupported.Supported).ToNot(BeEmpty())
		Expect(err.Error()).To(ContainSubstring("docx"))
		Expect(pipeline.IsUserError(err)).To(BeTrue())
		Expect(source.queries).To(Equal(0))
	})

	It("should wrap renderer failures and still finish progress", func() {
		renderer.err = errRender
		renderer.steps = false
		_, err := p.Run(ctx, pipeline.Request{Format: "ppt", User: user, MediaIDs: []string{a.ID.String()}}, progress)
		var exportErr *pipeline.ExportError
		Expect(errors.As(err, &exportErr)).To(BeTrue())
		Expect(exportErr.Format).To(Equal("ppt"))
		Expect(err).To(MatchError(errRender))
		Expect(pipeline.IsUserError(err)).To(BeFalse())
		Expect(seen).To(Equal([]int{0, 100}))
	})

	It("should reset progress between runs", func() {
		req := pipeline.Request{Format: "ppt", User: user, MediaIDs: []string{a.ID.String()}}
		_, err := p.Run(ctx, req, progress)
		Expect(err).ToNot(HaveOccurred())
		seen = nil
		_, err = p.Run(ctx, req, progress)
		Expect(err).ToNot(HaveOccurred())
		Expect(seen[0]).To(Equal(0))
		Expect(seen[len(seen)-1]).To(Equal(100))
	})

	It("should render items supplied directly", func() {
		items := []proposal.MediaItem{a.Item()}
		artifact, err := p.Render(ctx, "ppt", items, proposal.Options{GeneratedAt: time.Now()}, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(artifact.MediaCount).To(Equal(1))
		Expect(source.queries).To(Equal(0))
	})
})
