package proposal

import (
	"strings"
	"unicode"
)

// Field is one column of the details table shared by every renderer.
type Field struct {
	Key   string
	Label string
}

// NameField always leads the spreadsheet columns and cannot be hidden.
var NameField = Field{Key: "name", Label: "Name"}

// DetailFields is the fixed, ordered set of details shown for each media item.
var DetailFields = []Field{
	{Key: "type", Label: "Type"},
	{Key: "subtype", Label: "Sub-Type"},
	{Key: "dimensions", Label: "Dimensions"},
	{Key: "traffic", Label: "Traffic"},
	{Key: "price", Label: "Price"},
	{Key: "availability", Label: "Availability"},
}

// FieldKey normalizes a label or user-supplied key for comparison:
// "Sub-Type", "sub type" and "subtype" all yield "subtype".
func FieldKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HiddenFields is the normalized set of hidden field keys.
type HiddenFields map[string]struct{}

func NewHiddenFields(keys []string) HiddenFields {
	h := HiddenFields{}
	for _, k := range keys {
		if nk := FieldKey(k); nk != "" && nk != NameField.Key {
			h[nk] = struct{}{}
		}
	}
	return h
}

// Hides reports whether the field with the given key or label is hidden.
func (h HiddenFields) Hides(keyOrLabel string) bool {
	_, ok := h[FieldKey(keyOrLabel)]
	return ok
}

// VisibleFields returns DetailFields minus the hidden ones, in fixed order.
func VisibleFields(hidden []string) []Field {
	h := NewHiddenFields(hidden)
	fields := make([]Field, 0, len(DetailFields))
	for _, f := range DetailFields {
		if !h.Hides(f.Key) {
			fields = append(fields, f)
		}
	}
	return fields
}

// Columns returns the spreadsheet header: Name followed by the visible fields.
func Columns(hidden []string) []Field {
	return append([]Field{NameField}, VisibleFields(hidden)...)
}
