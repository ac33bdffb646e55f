package proposal

import (
	"errors"
	"time"
)

const (
	PresentationTitle = "Media Presentation"
	ClosingTitle      = "Thank You!"
	// PlaceholderImage stands in for media without photos. Renderers draw
	// their own placeholder when they meet it.
	PlaceholderImage = "/placeholder.svg"
)

// ErrNothingSelected is returned when an export run resolves to no media.
var ErrNothingSelected = errors.New("no media selected for export")

// BuildContentModel maps the selected media and options into the ordered
// slide sequence [title, media..., closing] consumed by every renderer.
func BuildContentModel(items []MediaItem, opts Options) []Slide {
	generated := opts.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	slides := make([]Slide, 0, len(items)+2)
	slides = append(slides, Slide{
		Kind: TitleSlide,
		Title: &TitleContent{
			Title:        PresentationTitle,
			ClientName:   opts.ClientName,
			CampaignName: opts.CampaignName,
			Date:         FormatDate(generated),
		},
	})

	fields := VisibleFields(opts.HiddenFields)
	for _, item := range items {
		slides = append(slides, Slide{Kind: MediaSlide, Media: buildMediaContent(item, fields)})
	}

	slides = append(slides, Slide{
		Kind: ClosingSlide,
		Closing: &ClosingContent{
			Title:       ClosingTitle,
			ContactInfo: opts.ContactInfo,
		},
	})
	return slides
}

func buildMediaContent(item MediaItem, fields []Field) *MediaContent {
	image := PlaceholderImage
	if len(item.ImageURLs) > 0 && item.ImageURLs[0] != "" {
		image = item.ImageURLs[0]
	}

	details := make([]Detail, 0, len(fields))
	for _, f := range fields {
		details = append(details, Detail{Label: f.Label, Value: detailValue(item, f.Key)})
	}
	return &MediaContent{Name: item.Name, Image: image, Details: details}
}

func detailValue(item MediaItem, key string) string {
	switch key {
	case "type":
		return item.Type
	case "subtype":
		return item.Subtype
	case "dimensions":
		return FormatDimensions(item.Width, item.Height)
	case "traffic":
		return item.Traffic
	case "price":
		return FormatPrice(item.Price)
	case "availability":
		return FormatAvailability(item.Available)
	}
	return ""
}

// MediaCount returns the number of media slides in a content model.
func MediaCount(slides []Slide) int {
	n := 0
	for _, s := range slides {
		if s.Kind == MediaSlide {
			n++
		}
	}
	return n
}
