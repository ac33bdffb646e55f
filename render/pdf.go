package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/studiooh/proposal-export-service/assets"
	"github.com/studiooh/proposal-export-service/proposal"
)

// page geometry, millimetres on landscape A4
const (
	pdfMargin      = 10.0
	pdfLogoW       = 50.0
	pdfLogoH       = 30.0
	pdfImageW      = 158.0
	pdfImageH      = 89.0
	pdfContentTop  = 60.0
	pdfRowH        = 8.0
	pdfLineH       = 5.0
	pdfFont        = "Helvetica"
	pdfLabelColumn = 0.4
)

type PDFRenderer struct {
	base
	compress bool
}

func NewPDFRenderer(loader assets.Loader, log *zap.SugaredLogger) *PDFRenderer {
	return &PDFRenderer{base: base{loader: loader, log: log}, compress: true}
}

// WithCompression toggles content stream compression. Uncompressed output
// keeps page text searchable.
func (r *PDFRenderer) WithCompression(compress bool) *PDFRenderer {
	r.compress = compress
	return r
}

func (r *PDFRenderer) Format() string      { return FormatPDF }
func (r *PDFRenderer) Filename() string    { return "OOH_Media_Portfolio.pdf" }
func (r *PDFRenderer) ContentType() string { return "application/pdf" }

// pdfDoc is the state of one render.
type pdfDoc struct {
	pdf      *fpdf.Fpdf
	tr       func(string) string
	opts     proposal.Options
	logo     *assets.Image
	bg       [3]int
	fg       [3]int
	pageW    float64
	pageH    float64
	imageIDs map[*assets.Image]string
	log      *zap.SugaredLogger
}

// Render reports no intermediate progress; the caller moves straight to 100.
func (r *PDFRenderer) Render(ctx context.Context, slides []proposal.Slide, opts proposal.Options, _ ProgressFunc) ([]byte, error) {
	opts = opts.WithDefaults()

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("Studiooh", true)
	pdf.SetTitle(proposal.PresentationTitle, true)

	bgR, bgG, bgB := rgb(parseColor(opts.BackgroundColor, proposal.DefaultBackgroundColor))
	fgR, fgG, fgB := rgb(parseColor(opts.FontColor, proposal.DefaultFontColor))
	pageW, pageH := pdf.GetPageSize()

	doc := &pdfDoc{
		pdf:      pdf,
		tr:       pdf.UnicodeTranslatorFromDescriptor(""),
		opts:     opts,
		logo:     r.loadLogo(ctx, opts.LogoPath),
		bg:       [3]int{bgR, bgG, bgB},
		fg:       [3]int{fgR, fgG, fgB},
		pageW:    pageW,
		pageH:    pageH,
		imageIDs: map[*assets.Image]string{},
		log:      r.log,
	}

	for _, slide := range slides {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		pdf.AddPage()
		doc.drawLogo()
		switch slide.Kind {
		case proposal.TitleSlide:
			doc.drawTitle(slide.Title)
		case proposal.MediaSlide:
			doc.drawMedia(slide.Media, r.loadImage(ctx, slide.Media.Image))
		case proposal.ClosingSlide:
			doc.drawClosing(slide.Closing)
		default:
			return nil, fmt.Errorf("unknown slide kind %q", slide.Kind)
		}
		doc.drawFooter()
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("failed to build pdf: %w", err)
		}
	}

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *pdfDoc) text(x, y float64, size float64, style string, s string) {
	d.pdf.SetFont(pdfFont, style, size)
	d.pdf.Text(x, y, d.tr(s))
}

func (d *pdfDoc) setFontColor() {
	d.pdf.SetTextColor(d.fg[0], d.fg[1], d.fg[2])
}

// embed registers an image once per document. A false return means fpdf
// rejected it; the sticky error is cleared so the page can carry on.
func (d *pdfDoc) embed(img *assets.Image) (string, bool) {
	if id, ok := d.imageIDs[img]; ok {
		return id, true
	}
	id := fmt.Sprintf("img%d", len(d.imageIDs)+1)
	d.pdf.RegisterImageOptionsReader(id, fpdf.ImageOptions{ImageType: strings.ToUpper(img.Format)}, bytes.NewReader(img.Data))
	if !d.pdf.Ok() {
		d.log.Warnw("failed to embed image in pdf", "error", d.pdf.Error())
		d.pdf.ClearError()
		return "", false
	}
	d.imageIDs[img] = id
	return id, true
}

// place draws img inside the box, aspect ratio preserved.
func (d *pdfDoc) place(img *assets.Image, x, y, w, h float64) bool {
	id, ok := d.embed(img)
	if !ok {
		return false
	}
	dx, dy, iw, ih := img.FitBox(w, h)
	d.pdf.ImageOptions(id, x+dx, y+dy, iw, ih, false, fpdf.ImageOptions{}, 0, "")
	return true
}

func (d *pdfDoc) drawLogo() {
	if d.logo != nil && d.place(d.logo, pdfMargin, pdfMargin, pdfLogoW, pdfLogoH) {
		return
	}
	if d.opts.LogoPath == "" {
		return
	}
	d.setFontColor()
	d.text(pdfMargin, pdfMargin+10, 12, "", "Company Logo")
}

func (d *pdfDoc) drawFooter() {
	d.pdf.SetFont(pdfFont, "", 10)
	d.pdf.SetTextColor(150, 150, 150)
	footer := d.tr(assets.Attribution)
	width := d.pdf.GetStringWidth(footer)
	d.pdf.Text((d.pageW-width)/2, d.pageH-10, footer)
}

func (d *pdfDoc) drawTitle(t *proposal.TitleContent) {
	d.setFontColor()
	d.text(pdfMargin, pdfContentTop, 24, "B", t.Title)

	y := pdfContentTop + 10
	for _, line := range []struct{ label, value string }{
		{"Client", t.ClientName},
		{"Campaign", t.CampaignName},
		{"Generated on", t.Date},
	} {
		if line.value == "" {
			continue
		}
		d.text(pdfMargin, y, 14, "", line.label+": "+line.value)
		y += 10
	}
}

func (d *pdfDoc) drawMedia(m *proposal.MediaContent, img *assets.Image) {
	d.setFontColor()
	d.text(pdfMargin, 50, 18, "B", m.Name)

	imageX := d.pageW - pdfImageW - pdfMargin
	if img == nil || !d.place(img, imageX, pdfContentTop, pdfImageW, pdfImageH) {
		d.setFontColor()
		d.text(imageX, pdfContentTop+20, 12, "", "Media Image")
	}

	d.drawDetails(m.Details, imageX-pdfMargin-5)
}

// drawDetails draws the Property/Value grid at the left of a media page.
func (d *pdfDoc) drawDetails(details []proposal.Detail, width float64) {
	labelW := width * pdfLabelColumn
	valueW := width - labelW
	pdf := d.pdf

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.SetXY(pdfMargin, pdfContentTop)
	pdf.SetFont(pdfFont, "B", 11)
	pdf.SetFillColor(d.bg[0], d.bg[1], d.bg[2])
	d.setFontColor()
	pdf.CellFormat(labelW, pdfRowH, d.tr("Property"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(valueW, pdfRowH, d.tr("Value"), "1", 1, "L", true, 0, "")

	pdf.SetFont(pdfFont, "", 10)
	y := pdfContentTop + pdfRowH
	for _, detail := range details {
		label := pdf.SplitText(d.tr(detail.Label), labelW-2)
		value := pdf.SplitText(d.tr(detail.Value), valueW-2)
		lines := max(len(label), len(value), 1)
		h := max(pdfRowH, float64(lines)*pdfLineH+3)

		pdf.Rect(pdfMargin, y, labelW, h, "D")
		pdf.Rect(pdfMargin+labelW, y, valueW, h, "D")
		d.cellLines(pdfMargin, y, labelW, label)
		d.cellLines(pdfMargin+labelW, y, valueW, value)
		y += h
	}
}

func (d *pdfDoc) cellLines(x, y, w float64, lines []string) {
	for i, line := range lines {
		d.pdf.SetXY(x, y+1.5+float64(i)*pdfLineH)
		d.pdf.CellFormat(w, pdfLineH, line, "", 0, "L", false, 0, "")
	}
}

func (d *pdfDoc) drawClosing(c *proposal.ClosingContent) {
	d.setFontColor()
	d.text(pdfMargin, pdfContentTop, 24, "B", c.Title)

	y := pdfContentTop + 20
	for _, line := range c.ContactInfo.Lines() {
		d.text(pdfMargin, y, 14, "", line)
		y += 10
	}
}
