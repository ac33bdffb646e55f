package render

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/studiooh/proposal-export-service/assets"
	"github.com/studiooh/proposal-export-service/proposal"
)

// deck geometry in inches, 16:9
const (
	deckW       = 10.0
	deckH       = 5.625
	deckDPI     = 150
	deckFont    = "Inter"
	deckFgColor = "16161D"
)

type rect struct{ x, y, w, h float64 }

var (
	titleLogoBox   = rect{0.5, 0.5, 2.6, 1.5}
	titleTextBox   = rect{0.5, 3, 9, 0.73}
	captionBoxes   = []rect{{0.5, 3.73, 9, 0.29}, {0.5, 4.02, 9, 0.29}, {0.5, 4.31, 9, 0.29}}
	mediaNameBox   = rect{0.5, 1, 3, 0.5}
	mediaDetailBox = rect{0.5, 3, 3, 1.8}
	mediaImageBox  = rect{3.78, 0, 6.22, 5.625}
	closingLogoBox = rect{0.5, 2.03, 2.6, 2.6}
	contactBox     = rect{4.1, 2, 5, 1}
	badgeBox       = rect{8.48, 4.96, 1.25, 0.27}
)

func emu(inches float64) int64 {
	return int64(math.Round(inches * emuPerInch))
}

func pixels(inches float64) int {
	return int(math.Round(inches * deckDPI))
}

type SlideDeckRenderer struct {
	base
}

func NewSlideDeckRenderer(loader assets.Loader, log *zap.SugaredLogger) *SlideDeckRenderer {
	return &SlideDeckRenderer{base: base{loader: loader, log: log}}
}

func (r *SlideDeckRenderer) Format() string   { return FormatPPT }
func (r *SlideDeckRenderer) Filename() string { return "Media_Presentation.pptx" }
func (r *SlideDeckRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
}

type textBox struct {
	Lines   []string
	Size    int // hundredths of a point
	Bold    bool
	Spacing int
	Color   string
	Font    string
}

type shape struct {
	ID         int
	X, Y, W, H int64
	Text       *textBox
	RelID      string
}

type deckSlide struct {
	Background string
	Shapes     []shape
	rels       []relationship
	media      map[string]string
}

// deck collects the package parts of one render.
type deck struct {
	slides []*deckSlide
	// media part name per image, so a logo used twice is stored once
	mediaParts map[*assets.Image]string
	mediaData  map[string][]byte
	mediaOrder []string
	background string
	fontColor  string
}

func (d *deck) newSlide() *deckSlide {
	s := &deckSlide{
		Background: d.background,
		rels:       []relationship{{ID: "rId1", Type: relSlideLayout, Target: "../slideLayouts/slideLayout1.xml"}},
		media:      map[string]string{},
	}
	d.slides = append(d.slides, s)
	return s
}

func (d *deck) addText(s *deckSlide, box rect, size float64, bold bool, lines ...string) {
	if len(lines) == 0 {
		return
	}
	s.Shapes = append(s.Shapes, shape{
		ID: len(s.Shapes) + 2,
		X:  emu(box.x), Y: emu(box.y), W: emu(box.w), H: emu(box.h),
		Text: &textBox{
			Lines:   lines,
			Size:    int(size * 100),
			Bold:    bold,
			Spacing: 100,
			Color:   d.fontColor,
			Font:    deckFont,
		},
	})
}

func (d *deck) addPicture(s *deckSlide, img *assets.Image, box rect) {
	part, ok := d.mediaParts[img]
	if !ok {
		part = fmt.Sprintf("image%d.%s", len(d.mediaParts)+1, img.Extension())
		d.mediaParts[img] = part
		d.mediaData[part] = img.Data
		d.mediaOrder = append(d.mediaOrder, part)
	}
	relID, ok := s.media[part]
	if !ok {
		relID = fmt.Sprintf("rId%d", len(s.rels)+1)
		s.media[part] = relID
		s.rels = append(s.rels, relationship{ID: relID, Type: relImage, Target: "../media/" + part})
	}
	s.Shapes = append(s.Shapes, shape{
		ID: len(s.Shapes) + 2,
		X:  emu(box.x), Y: emu(box.y), W: emu(box.w), H: emu(box.h),
		RelID: relID,
	})
}

// Render builds one slide per content model entry and reports
// round((i+1)/total*100) after each.
func (r *SlideDeckRenderer) Render(ctx context.Context, slides []proposal.Slide, opts proposal.Options, onProgress ProgressFunc) ([]byte, error) {
	fontColor := deckFgColor
	if opts.FontColor != "" {
		fontColor = hexNoHash(parseColor(opts.FontColor, "#"+deckFgColor))
	}
	opts = opts.WithDefaults()

	d := &deck{
		mediaParts: map[*assets.Image]string{},
		mediaData:  map[string][]byte{},
		background: hexNoHash(parseColor(opts.BackgroundColor, proposal.DefaultBackgroundColor)),
		fontColor:  fontColor,
	}

	logo := r.loadLogo(ctx, opts.LogoPath)
	var titleLogo, closingLogo *assets.Image
	if logo != nil {
		titleLogo = r.transform(logo, "cover", func(img *assets.Image) (*assets.Image, error) {
			return img.Fill(pixels(titleLogoBox.w), pixels(titleLogoBox.h))
		})
		closingLogo = logo
	}
	badge := r.badge()

	total := len(slides)
	for i, slide := range slides {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		s := d.newSlide()
		switch slide.Kind {
		case proposal.TitleSlide:
			r.titleSlide(d, s, slide.Title, titleLogo)
		case proposal.MediaSlide:
			r.mediaSlide(ctx, d, s, slide.Media)
		case proposal.ClosingSlide:
			r.closingSlide(d, s, slide.Closing, closingLogo)
		default:
			return nil, fmt.Errorf("unknown slide kind %q", slide.Kind)
		}
		// badge last so it sits above everything else on the slide
		if badge != nil {
			d.addPicture(s, badge, badgeBox)
		}
		report(onProgress, int(math.Round(float64(i+1)/float64(total)*100)))
	}

	generated := opts.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	return d.write(generated.UTC())
}

func (r *SlideDeckRenderer) transform(img *assets.Image, what string, fn func(*assets.Image) (*assets.Image, error)) *assets.Image {
	out, err := fn(img)
	if err != nil {
		r.log.Warnw("failed to resize image, using original", "resize", what, "error", err)
		return img
	}
	return out
}

func (r *SlideDeckRenderer) titleSlide(d *deck, s *deckSlide, t *proposal.TitleContent, logo *assets.Image) {
	if logo != nil {
		d.addPicture(s, logo, titleLogoBox)
	}
	d.addText(s, titleTextBox, 45, false, t.Title)
	captions := []string{
		"Client: " + t.ClientName,
		"Campaign: " + t.CampaignName,
		"Generated on: " + t.Date,
	}
	for i, caption := range captions {
		d.addText(s, captionBoxes[i], 14, false, caption)
	}
}

func (r *SlideDeckRenderer) mediaSlide(ctx context.Context, d *deck, s *deckSlide, m *proposal.MediaContent) {
	d.addText(s, mediaNameBox, 16, false, m.Name)

	w, h := pixels(mediaImageBox.w), pixels(mediaImageBox.h)
	var img *assets.Image
	if photo := r.loadImage(ctx, m.Image); photo != nil {
		filled, err := photo.Fill(w, h)
		if err != nil {
			r.log.Warnw("failed to crop media image, using placeholder", "image", m.Image, "error", err)
		} else {
			img = filled
		}
	}
	if img == nil {
		placeholder, err := assets.Placeholder(w, h, "Media Image")
		if err != nil {
			r.log.Errorw("failed to draw placeholder", "error", err)
		}
		img = placeholder
	}
	if img != nil {
		d.addPicture(s, img, mediaImageBox)
	}

	lines := make([]string, 0, len(m.Details))
	for _, detail := range m.Details {
		lines = append(lines, detail.Label+": "+detail.Value)
	}
	d.addText(s, mediaDetailBox, 10, false, lines...)
}

func (r *SlideDeckRenderer) closingSlide(d *deck, s *deckSlide, c *proposal.ClosingContent, logo *assets.Image) {
	if logo != nil {
		x, y, w, h := logo.FitBox(closingLogoBox.w, closingLogoBox.h)
		d.addPicture(s, logo, rect{closingLogoBox.x + x, closingLogoBox.y + y, w, h})
	}
	d.addText(s, contactBox, 8, false, c.ContactInfo.Lines()...)
}

type zipPart struct {
	name string
	data []byte
}

func (d *deck) parts(created time.Time) ([]zipPart, error) {
	n := len(d.slides)
	numbers := make([]int, n)
	presRels := []relationship{{ID: "rId1", Type: relSlideMaster, Target: "slideMasters/slideMaster1.xml"}}
	for i := range d.slides {
		numbers[i] = i + 1
		presRels = append(presRels, relationship{ID: fmt.Sprintf("rId%d", i+2), Type: relSlide, Target: fmt.Sprintf("slides/slide%d.xml", i+1)})
	}
	presRels = append(presRels,
		relationship{ID: fmt.Sprintf("rId%d", n+2), Type: relTheme, Target: "theme/theme1.xml"},
		relationship{ID: fmt.Sprintf("rId%d", n+3), Type: relPresProps, Target: "presProps.xml"},
		relationship{ID: fmt.Sprintf("rId%d", n+4), Type: relViewProps, Target: "viewProps.xml"},
		relationship{ID: fmt.Sprintf("rId%d", n+5), Type: relTableStyles, Target: "tableStyles.xml"},
	)

	var parts []zipPart
	add := func(name string, data []byte, err error) error {
		if err != nil {
			return fmt.Errorf("failed to build %s: %w", name, err)
		}
		parts = append(parts, zipPart{name, data})
		return nil
	}

	data, err := execute(contentTypesTemplate, numbers)
	if err := add("[Content_Types].xml", data, err); err != nil {
		return nil, err
	}
	data, err = execute(relsTemplate, []relationship{
		{ID: "rId1", Type: relBase + "officeDocument", Target: "ppt/presentation.xml"},
		{ID: "rId2", Type: "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties", Target: "docProps/core.xml"},
		{ID: "rId3", Type: relBase + "extended-properties", Target: "docProps/app.xml"},
	})
	if err := add("_rels/.rels", data, err); err != nil {
		return nil, err
	}
	data, err = execute(coreTemplate, map[string]string{"Title": proposal.PresentationTitle, "Created": created.Format(time.RFC3339)})
	if err := add("docProps/core.xml", data, err); err != nil {
		return nil, err
	}
	data, err = execute(appTemplate, n)
	if err := add("docProps/app.xml", data, err); err != nil {
		return nil, err
	}
	data, err = execute(presentationTemplate, map[string]interface{}{
		"Slides": numbers,
		"Width":  emu(deckW),
		"Height": emu(deckH),
	})
	if err := add("ppt/presentation.xml", data, err); err != nil {
		return nil, err
	}
	data, err = execute(relsTemplate, presRels)
	if err := add("ppt/_rels/presentation.xml.rels", data, err); err != nil {
		return nil, err
	}

	parts = append(parts,
		zipPart{"ppt/slideMasters/slideMaster1.xml", []byte(slideMasterXML)},
		zipPart{"ppt/slideLayouts/slideLayout1.xml", []byte(slideLayoutXML)},
		zipPart{"ppt/theme/theme1.xml", []byte(themeXML)},
		zipPart{"ppt/presProps.xml", []byte(presPropsXML)},
		zipPart{"ppt/viewProps.xml", []byte(viewPropsXML)},
		zipPart{"ppt/tableStyles.xml", []byte(tableStylesXML)},
	)
	data, err = execute(relsTemplate, []relationship{
		{ID: "rId1", Type: relSlideLayout, Target: "../slideLayouts/slideLayout1.xml"},
		{ID: "rId2", Type: relTheme, Target: "../theme/theme1.xml"},
	})
	if err := add("ppt/slideMasters/_rels/slideMaster1.xml.rels", data, err); err != nil {
		return nil, err
	}
	data, err = execute(relsTemplate, []relationship{
		{ID: "rId1", Type: relSlideMaster, Target: "../slideMasters/slideMaster1.xml"},
	})
	if err := add("ppt/slideLayouts/_rels/slideLayout1.xml.rels", data, err); err != nil {
		return nil, err
	}

	for i, s := range d.slides {
		data, err = execute(slideTemplate, s)
		if err := add(fmt.Sprintf("ppt/slides/slide%d.xml", i+1), data, err); err != nil {
			return nil, err
		}
		data, err = execute(relsTemplate, s.rels)
		if err := add(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", i+1), data, err); err != nil {
			return nil, err
		}
	}

	for _, name := range d.mediaOrder {
		parts = append(parts, zipPart{"ppt/media/" + name, d.mediaData[name]})
	}
	return parts, nil
}

func (d *deck) write(created time.Time) ([]byte, error) {
	parts, err := d.parts(created)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for _, part := range parts {
		method := zip.Deflate
		if strings.HasPrefix(part.name, "ppt/media/") {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: part.name, Method: method, Modified: created})
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", part.name, err)
		}
		if _, err := w.Write(part.data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish pptx: %w", err)
	}
	return buf.Bytes(), nil
}
