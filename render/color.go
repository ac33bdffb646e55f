package render

import (
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// parseColor accepts "#rrggbb", "#rgb" or the same without '#'. Anything
// else yields fallback, which must itself be valid.
func parseColor(hex, fallback string) colorful.Color {
	if c, err := colorful.Hex(normalizeHex(hex)); err == nil {
		return c
	}
	c, _ := colorful.Hex(normalizeHex(fallback))
	return c
}

func normalizeHex(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	return strings.ToLower(s)
}

func rgb(c colorful.Color) (int, int, int) {
	r, g, b := c.RGB255()
	return int(r), int(g), int(b)
}

// hexNoHash renders the color as RRGGBB, the form OOXML expects.
func hexNoHash(c colorful.Color) string {
	return strings.ToUpper(strings.TrimPrefix(c.Clamped().Hex(), "#"))
}
