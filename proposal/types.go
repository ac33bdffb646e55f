package proposal

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MediaItem is a read-only snapshot of a bookable ad placement.
type MediaItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Location  string          `json:"location"`
	City      string          `json:"city"`
	Type      string          `json:"type"`
	Subtype   string          `json:"subtype"`
	Width     *float64        `json:"width"`
	Height    *float64        `json:"height"`
	Price     decimal.Decimal `json:"price"`
	Traffic   string          `json:"traffic"`
	Available bool            `json:"availability"`
	ImageURLs []string        `json:"image_urls"`
	Latitude  *float64        `json:"latitude,omitempty"`
	Longitude *float64        `json:"longitude,omitempty"`
}

// UnmarshalJSON accepts availability as a bool or as one of the display
// strings older listings carry ("Available", "Not Available").
func (m *MediaItem) UnmarshalJSON(data []byte) error {
	type alias MediaItem
	aux := struct {
		*alias
		Available json.RawMessage `json:"availability"`
		Traffic   json.RawMessage `json:"traffic"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	available, err := parseAvailability(aux.Available)
	if err != nil {
		return err
	}
	m.Available = available
	m.Traffic = rawString(aux.Traffic)
	return nil
}

func parseAvailability(raw json.RawMessage) (bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, fmt.Errorf("invalid availability %s", string(raw))
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "available", "true", "yes":
		return true, nil
	case "not available", "unavailable", "false", "no", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid availability %q", s)
}

// rawString renders traffic values that arrive as strings or numbers.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

type ContactInfo struct {
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Empty reports whether no contact line would be rendered.
func (c ContactInfo) Empty() bool {
	return c.Email == "" && c.Phone == "" && c.Address == ""
}

// Lines returns the labelled contact lines in display order, skipping blanks.
func (c ContactInfo) Lines() []string {
	lines := []string{}
	if c.Email != "" {
		lines = append(lines, "Email: "+c.Email)
	}
	if c.Phone != "" {
		lines = append(lines, "Phone: "+c.Phone)
	}
	if c.Address != "" {
		lines = append(lines, "Address: "+c.Address)
	}
	return lines
}

const (
	DefaultBackgroundColor = "#ffffff"
	DefaultFontColor       = "#000000"
)

// Options are the per-run branding and visibility choices.
type Options struct {
	ClientName      string      `json:"client_name"`
	CampaignName    string      `json:"campaign_name"`
	BackgroundColor string      `json:"background_color" validate:"omitempty,hexcolor"`
	FontColor       string      `json:"font_color" validate:"omitempty,hexcolor"`
	HiddenFields    []string    `json:"hidden_fields"`
	LogoPath        string      `json:"logo_path"`
	ContactInfo     ContactInfo `json:"contact_info"`
	// GeneratedAt pins the date printed on the title slide. Zero means now.
	GeneratedAt time.Time `json:"generated_at,omitempty"`
}

// WithDefaults fills the colors left empty by the caller.
func (o Options) WithDefaults() Options {
	if o.BackgroundColor == "" {
		o.BackgroundColor = DefaultBackgroundColor
	}
	if o.FontColor == "" {
		o.FontColor = DefaultFontColor
	}
	return o
}

type SlideKind string

const (
	TitleSlide   SlideKind = "title"
	MediaSlide   SlideKind = "media"
	ClosingSlide SlideKind = "closing"
)

type TitleContent struct {
	Title        string `json:"title"`
	ClientName   string `json:"clientName"`
	CampaignName string `json:"campaignName"`
	Date         string `json:"date"`
}

type Detail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type MediaContent struct {
	Name    string   `json:"name"`
	Image   string   `json:"image"`
	Details []Detail `json:"details"`
}

// Value returns the detail whose label matches key, ignoring case and punctuation.
func (m *MediaContent) Value(key string) (string, bool) {
	k := FieldKey(key)
	for _, d := range m.Details {
		if FieldKey(d.Label) == k {
			return d.Value, true
		}
	}
	return "", false
}

type ClosingContent struct {
	Title       string      `json:"title"`
	ContactInfo ContactInfo `json:"contactInfo"`
}

// Slide is one entry of the content model. Exactly one of the content
// pointers is set, matching Kind.
type Slide struct {
	Kind    SlideKind
	Title   *TitleContent
	Media   *MediaContent
	Closing *ClosingContent
}

func (s Slide) MarshalJSON() ([]byte, error) {
	var content interface{}
	switch s.Kind {
	case TitleSlide:
		content = s.Title
	case MediaSlide:
		content = s.Media
	case ClosingSlide:
		content = s.Closing
	default:
		return nil, fmt.Errorf("unknown slide kind %q", s.Kind)
	}
	return json.Marshal(struct {
		Type    SlideKind   `json:"type"`
		Content interface{} `json:"content"`
	}{s.Kind, content})
}
