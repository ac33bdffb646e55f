package assets

import (
	"fmt"
	"image/color"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Attribution is the text of the badge stamped on every exported page.
const Attribution = "Made with Studiooh"

var (
	regularFont *truetype.Font
	boldFont    *truetype.Font
	fontErr     error
	fontOnce    sync.Once

	badge     *Image
	badgeErr  error
	badgeOnce sync.Once
)

func fonts() (*truetype.Font, *truetype.Font, error) {
	fontOnce.Do(func() {
		regularFont, fontErr = truetype.Parse(goregular.TTF)
		if fontErr != nil {
			return
		}
		boldFont, fontErr = truetype.Parse(gobold.TTF)
	})
	return regularFont, boldFont, fontErr
}

// Placeholder draws a light gray panel with a centered label, used in place
// of a media photo that could not be loaded.
func Placeholder(width, height int, label string) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid placeholder size %dx%d", width, height)
	}
	regular, _, err := fonts()
	if err != nil {
		return nil, err
	}

	c := gg.NewContext(width, height)
	c.SetColor(color.RGBA{R: 229, G: 231, B: 235, A: 255})
	c.DrawRectangle(0, 0, float64(width), float64(height))
	c.Fill()

	c.SetColor(color.RGBA{R: 156, G: 163, B: 175, A: 255})
	c.SetLineWidth(4)
	inset := float64(min(width, height)) / 10
	c.DrawRectangle(inset, inset, float64(width)-2*inset, float64(height)-2*inset)
	c.Stroke()

	size := float64(height) / 10
	if size < 10 {
		size = 10
	}
	c.SetColor(color.RGBA{R: 107, G: 114, B: 128, A: 255})
	c.SetFontFace(truetype.NewFace(regular, &truetype.Options{Size: size}))
	c.DrawStringAnchored(label, float64(width)/2, float64(height)/2, 0.5, 0.5)

	return FromImage(c.Image())
}

// Badge returns the attribution badge. It is rendered once per process.
func Badge() (*Image, error) {
	badgeOnce.Do(func() {
		badge, badgeErr = drawBadge()
	})
	return badge, badgeErr
}

func drawBadge() (*Image, error) {
	_, bold, err := fonts()
	if err != nil {
		return nil, err
	}

	// 1.25in x 0.27in at 192 dpi
	const w, h = 240, 52
	c := gg.NewContext(w, h)
	c.SetColor(color.RGBA{R: 22, G: 22, B: 29, A: 230})
	c.DrawRoundedRectangle(0, 0, w, h, h/2)
	c.Fill()

	c.SetColor(color.White)
	c.SetFontFace(truetype.NewFace(bold, &truetype.Options{Size: 20}))
	c.DrawStringAnchored(Attribution, w/2, h/2, 0.5, 0.35)

	return FromImage(c.Image())
}
