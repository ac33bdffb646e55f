package render_test

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"

	"github.com/studiooh/proposal-export-service/proposal"
	"github.com/studiooh/proposal-export-service/render"
)

func unzip(data []byte) map[string]string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	Expect(err).ToNot(HaveOccurred())
	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		Expect(err).ToNot(HaveOccurred())
		b, err := io.ReadAll(rc)
		Expect(err).ToNot(HaveOccurred())
		Expect(rc.Close()).To(Succeed())
		files[f.Name] = string(b)
	}
	return files
}

func expectShown(actual interface{}, matcher OmegaMatcher, shown bool, label string) {
	GinkgoHelper()
	if shown {
		Expect(actual).To(matcher, label)
	} else {
		Expect(actual).ToNot(matcher, label)
	}
}

func headerRow(data []byte) []string {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	Expect(err).ToNot(HaveOccurred())
	defer f.Close()
	header := []string{}
	for col := 1; ; col++ {
		name, err := excelize.CoordinatesToCellName(col, 9)
		Expect(err).ToNot(HaveOccurred())
		v, err := f.GetCellValue(render.SheetName, name)
		Expect(err).ToNot(HaveOccurred())
		if v == "" {
			return header
		}
		header = append(header, v)
	}
}

var _ = Describe("Registry", func() {
	It("should register the three formats with their download names", func() {
		reg := render.NewRegistry(newLoader(), log)
		Expect(reg.Formats()).To(Equal([]string{"excel", "pdf", "ppt"}))

		pdf, ok := reg.Get("pdf")
		Expect(ok).To(BeTrue())
		Expect(pdf.Filename()).To(Equal("OOH_Media_Portfolio.pdf"))
		Expect(pdf.ContentType()).To(Equal("application/pdf"))

		xlsx, _ := reg.Get("excel")
		Expect(xlsx.Filename()).To(Equal("Media_Export.xlsx"))

		ppt, _ := reg.Get("ppt")
		Expect(ppt.Filename()).To(Equal("Media_Presentation.pptx"))

		_, ok = reg.Get("docx")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("SpreadsheetRenderer", func() {
	var (
		ctx    context.Context
		slides []proposal.Slide
		opts   proposal.Options
	)

	BeforeEach(func() {
		ctx = context.Background()
		opts = sampleOptions()
		slides = proposal.BuildContentModel(sampleItems(), opts)
	})

	It("should write every column when nothing is hidden", func() {
		data, err := render.NewSpreadsheetRenderer(newLoader(), log).Render(ctx, slides, opts, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(headerRow(data)).To(Equal([]string{
			"Name", "Type", "Sub-Type", "Dimensions", "Traffic", "Price", "Availability",
		}))
	})

	It("should write the run header and one row per media item", func() {
		data, err := render.NewSpreadsheetRenderer(newLoader(), log).Render(ctx, slides, opts, nil)
		Expect(err).ToNot(HaveOccurred())

		f, err := excelize.OpenReader(bytes.NewReader(data))
		Expect(err).ToNot(HaveOccurred())
		defer f.Close()

		get := func(axis string) string {
			v, err := f.GetCellValue(render.SheetName, axis)
			Expect(err).ToNot(HaveOccurred())
			return v
		}
		Expect(get("A5")).To(Equal("CLIENT"))
		Expect(get("B5")).To(Equal("Acme"))
		Expect(get("B6")).To(Equal("Spring Launch"))
		Expect(get("B7")).To(Equal("3/7/2025"))
		Expect(get("A10")).To(Equal("Main St Board"))
		Expect(get("F10")).To(Equal("$2,500.00"))
		Expect(get("G10")).To(Equal("Available"))
		Expect(get("A11")).To(Equal("Airport Screen"))
		Expect(get("D12")).To(Equal("N/A"))
		Expect(get("A14")).To(Equal("Made with Studiooh"))
	})

	It("should drop hidden columns", func() {
		opts.HiddenFields = []string{"price", "Sub-Type"}
		slides = proposal.BuildContentModel(sampleItems(), opts)
		data, err := render.NewSpreadsheetRenderer(newLoader(), log).Render(ctx, slides, opts, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(headerRow(data)).To(Equal([]string{"Name", "Type", "Dimensions", "Traffic", "Availability"}))
	})

	It("should render without a logo when the logo cannot be loaded", func() {
		opts.LogoPath = "https://cdn.example.com/gone.png"
		data, err := render.NewSpreadsheetRenderer(newLoader(), log).Render(ctx, slides, opts, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(headerRow(data)).To(HaveLen(7))
	})
})

var _ = Describe("SlideDeckRenderer", func() {
	var (
		ctx    context.Context
		slides []proposal.Slide
		opts   proposal.Options
	)

	BeforeEach(func() {
		ctx = context.Background()
		opts = sampleOptions()
		slides = proposal.BuildContentModel(sampleItems(), opts)
	})

	It("should write one slide per content model entry", func() {
		data, err := render.NewSlideDeckRenderer(newLoader(), log).Render(ctx, slides, opts, nil)
		Expect(err).ToNot(HaveOccurred())

		files := unzip(data)
		Expect(files).To(HaveKey("[Content_Types].xml"))
		Expect(files).To(HaveKey("ppt/presentation.xml"))
		for i := 1; i <= len(slides); i++ {
			Expect(files).To(HaveKey(fmt.Sprintf("ppt/slides/slide%d.xml", i)))
		}
		Expect(files).ToNot(HaveKey("ppt/slides/slide6.xml"))
		Expect(files["docProps/app.xml"]).To(ContainSubstring("<Slides>5</Slides>"))
	})

	It("should lay out title, details and contact text", func() {
		data, err := render.NewSlideDeckRenderer(newLoader(), log).Render(ctx, slides, opts, nil)
		Expect(err).ToNot(HaveOccurred())
		files := unzip(data)

		title := files["ppt/slides/slide1.xml"]
		Expect(title).To(ContainSubstring("<a:t>Media Presentation</a:t>"))
		Expect(title).To(ContainSubstring("<a:t>Client: Acme</a:t>"))
		Expect(title).To(ContainSubstring("<a:t>Generated on: 3/7/2025</a:t>"))
		Expect(title).To(ContainSubstring(`<a:srgbClr val="F5F5F5"/>`))
		Expect(title).To(ContainSubstring(`<a:srgbClr val="16161D"/>`))

		media := files["ppt/slides/slide2.xml"]
		Expect(media).To(ContainSubstring("<a:t>Main St Board</a:t>"))
		Expect(media).To(ContainSubstring("<a:t>Price: $2,500.00</a:t>"))

		closing := files["ppt/slides/slide5.xml"]
		Expect(closing).To(ContainSubstring("<a:t>Email: sales@example.com</a:t>"))
		Expect(closing).To(ContainSubstring("<a:t>Phone: 555-0100</a:t>"))
	})

	It("should use the requested font color", func() {
		opts.FontColor = "#ff0000"
		data, err := render.NewSlideDeckRenderer(newLoader(), log).Render(ctx, slides, opts, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(unzip(data)["ppt/slides/slide1.xml"]).To(ContainSubstring(`<a:srgbClr val="FF0000"/>`))
	})

	It("should escape markup in user text", func() {
		opts.ClientName = "Smith & <Sons>"
		slides = proposal.BuildContentModel(sampleItems(), opts)
		data, err := render.NewSlideDeckRenderer(newLoader(), log).Render(ctx, slides, opts, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(unzip(data)["ppt/slides/slide1.xml"]).To(ContainSubstring("Client: Smith &amp; &lt;Sons&gt;"))
	})

	It("should stamp the badge on every slide", func() {
		data, err := render.NewSlideDeckRenderer(newLoader(), log).Render(ctx, slides, opts, nil)
		Expect(err).ToNot(HaveOccurred())
		files := unzip(data)
		for name, body := range files {
			if strings.HasPrefix(name, "ppt/slides/slide") {
				Expect(body).To(ContainSubstring("<p:pic>"), name)
			}
		}
	})

	It("should report monotonic progress ending at 100", func() {
		var reported []int
		_, err := render.NewSlideDeckRenderer(newLoader(), log).Render(ctx, slides, opts, func(p int) {
			reported = append(reported, p)
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(reported).To(Equal([]int{20, 40, 60, 80, 100}))
	})

	It("should stop when the context is cancelled", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := render.NewSlideDeckRenderer(newLoader(), log).Render(cancelled, slides, opts, nil)
		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("PDFRenderer", func() {
	var (
		ctx    context.Context
		slides []proposal.Slide
		opts   proposal.Options
	)

	BeforeEach(func() {
		ctx = context.Background()
		opts = sampleOptions()
		slides = proposal.BuildContentModel(sampleItems(), opts)
	})

	It("should write a pdf with a page per content model entry", func() {
		data, err := render.NewPDFRenderer(newLoader(), log).WithCompression(false).Render(ctx, slides, opts, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data[:5])).To(Equal("%PDF-"))
		Expect(strings.Count(string(data), "/Type /Page\n")).To(Equal(len(slides)))
		Expect(string(data)).To(ContainSubstring("(Media Presentation) Tj"))
		Expect(string(data)).To(ContainSubstring("(Thank You!) Tj"))
		Expect(string(data)).To(ContainSubstring("(Made with Studiooh) Tj"))
	})

	It("should fall back to text when the logo cannot be loaded", func() {
		opts.LogoPath = "https://cdn.example.com/gone.png"
		data, err := render.NewPDFRenderer(newLoader(), log).WithCompression(false).Render(ctx, slides, opts, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("(Company Logo) Tj"))
	})
})

var _ = Describe("All renderers", func() {
	var (
		ctx    context.Context
		slides []proposal.Slide
		opts   proposal.Options
		loader *stubLoader
	)

	BeforeEach(func() {
		ctx = context.Background()
		opts = sampleOptions()
		opts.HiddenFields = []string{"traffic"}
		slides = proposal.BuildContentModel(sampleItems(), opts)
		loader = newLoader()
	})

	It("should show the same visible fields in every format", func() {
		visible := proposal.VisibleFields(opts.HiddenFields)

		pdf, err := render.NewPDFRenderer(loader, log).WithCompression(false).Render(ctx, slides, opts, nil)
		Expect(err).ToNot(HaveOccurred())
		xlsx, err := render.NewSpreadsheetRenderer(loader, log).Render(ctx, slides, opts, nil)
		Expect(err).ToNot(HaveOccurred())
		pptx, err := render.NewSlideDeckRenderer(loader, log).Render(ctx, slides, opts, nil)
		Expect(err).ToNot(HaveOccurred())

		header := headerRow(xlsx)
		mediaSlide := unzip(pptx)["ppt/slides/slide2.xml"]
		for _, f := range proposal.DetailFields {
			shown := false
			for _, v := range visible {
				shown = shown || v.Key == f.Key
			}
			expectShown(string(pdf), ContainSubstring("("+f.Label+") Tj"), shown, f.Label)
			expectShown(header, ContainElement(f.Label), shown, f.Label)
			expectShown(mediaSlide, ContainSubstring("<a:t>"+f.Label+": "), shown, f.Label)
		}
	})

	It("should still produce a document when a media image is unreachable", func() {
		for _, format := range []string{render.FormatPDF, render.FormatExcel, render.FormatPPT} {
			r, ok := render.NewRegistry(loader, log).Get(format)
			Expect(ok).To(BeTrue())
			data, err := r.Render(ctx, slides, opts, nil)
			Expect(err).ToNot(HaveOccurred(), format)
			Expect(data).ToNot(BeEmpty(), format)
		}
		Expect(loader.calls).To(ContainElement("https://cdn.example.com/missing.png"))
		Expect(loader.calls).ToNot(ContainElement(proposal.PlaceholderImage))
	})

	It("should label missing photos in the pdf and embed the ones that loaded", func() {
		pdf, err := render.NewPDFRenderer(loader, log).WithCompression(false).Render(ctx, slides, opts, nil)
		Expect(err).ToNot(HaveOccurred())
		// logo and main photo, each embedded once however often drawn
		Expect(strings.Count(string(pdf), "/Subtype /Image")).To(Equal(2))
		// one unreachable photo and one media item without any
		Expect(strings.Count(string(pdf), "(Media Image) Tj")).To(Equal(2))
	})

	It("should draw a placeholder picture in the deck for missing photos", func() {
		pptx, err := render.NewSlideDeckRenderer(loader, log).Render(ctx, slides, opts, nil)
		Expect(err).ToNot(HaveOccurred())
		files := unzip(pptx)
		// slide 3 has an unreachable photo, slide 4 has none at all
		Expect(strings.Count(files["ppt/slides/slide3.xml"], "<p:pic>")).To(Equal(2))
		Expect(strings.Count(files["ppt/slides/slide4.xml"], "<p:pic>")).To(Equal(2))
	})
})
