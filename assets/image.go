package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/webp"
)

const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
)

var ErrUnsupportedType = errors.New("unsupported image type")

// Image is a decoded asset together with an encoding every renderer can
// embed as is: 8-bit non-interlaced PNG or baseline JPEG.
type Image struct {
	Img    image.Image
	Data   []byte
	Format string
}

func (i *Image) Width() int {
	return i.Img.Bounds().Dx()
}

func (i *Image) Height() int {
	return i.Img.Bounds().Dy()
}

// Extension returns the file extension matching Format.
func (i *Image) Extension() string {
	if i.Format == FormatJPEG {
		return "jpeg"
	}
	return "png"
}

func (i *Image) ContentType() string {
	return "image/" + i.Extension()
}

// DefaultMaxPixels caps the area of a decoded image when no limit is
// configured.
const DefaultMaxPixels = 32_000_000

// Decode sniffs and decodes raw image bytes. PNG, JPEG, GIF and WebP are
// accepted; anything else, SVG included, is ErrUnsupportedType.
func Decode(data []byte) (*Image, error) {
	return DecodeLimited(data, DefaultMaxPixels)
}

// DecodeLimited is Decode with an explicit pixel budget. The header is read
// first so an oversized image is refused before any pixel is allocated. A
// maxPixels of zero or less disables the check.
func DecodeLimited(data []byte, maxPixels int) (*Image, error) {
	mime := mimetype.Detect(data)
	decode := imaging.Decode
	switch {
	case mime.Is("image/jpeg"), mime.Is("image/png"), mime.Is("image/gif"):
	case mime.Is("image/webp"):
		decode = func(r io.Reader, _ ...imaging.DecodeOption) (image.Image, error) { return webp.Decode(r) }
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mime.String())
	}

	if maxPixels > 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s header: %w", mime.String(), err)
		}
		if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
			return nil, fmt.Errorf("%w: %dx%d pixels", ErrTooLarge, cfg.Width, cfg.Height)
		}
	}

	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", mime.String(), err)
	}
	if mime.Is("image/jpeg") {
		return &Image{Img: img, Data: data, Format: FormatJPEG}, nil
	}
	return FromImage(img)
}

// FromImage re-encodes img as an 8-bit PNG.
func FromImage(img image.Image) (*Image, error) {
	flat := imaging.Clone(img)
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, flat, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return &Image{Img: flat, Data: buf.Bytes(), Format: FormatPNG}, nil
}

// Fill scales and center-crops the image to exactly w x h pixels.
func (i *Image) Fill(w, h int) (*Image, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid fill size %dx%d", w, h)
	}
	return FromImage(imaging.Fill(i.Img, w, h, imaging.Center, imaging.Lanczos))
}

// Fit scales the image down to fit within w x h, keeping its aspect ratio.
func (i *Image) Fit(w, h int) (*Image, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid fit size %dx%d", w, h)
	}
	return FromImage(imaging.Fit(i.Img, w, h, imaging.Lanczos))
}

// FitBox returns the largest w x h with the image's aspect ratio that fits
// within boxW x boxH, centered offsets included.
func (i *Image) FitBox(boxW, boxH float64) (x, y, w, h float64) {
	iw, ih := float64(i.Width()), float64(i.Height())
	if iw == 0 || ih == 0 {
		return 0, 0, boxW, boxH
	}
	scale := boxW / iw
	if ih*scale > boxH {
		scale = boxH / ih
	}
	w, h = iw*scale, ih*scale
	return (boxW - w) / 2, (boxH - h) / 2, w, h
}
