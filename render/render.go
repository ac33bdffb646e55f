package render

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/studiooh/proposal-export-service/assets"
	"github.com/studiooh/proposal-export-service/metrics"
	"github.com/studiooh/proposal-export-service/proposal"
)

// ProgressFunc receives the percent complete of a render.
type ProgressFunc func(percent int)

// Renderer turns a content model into one downloadable document.
type Renderer interface {
	Format() string
	Filename() string
	ContentType() string
	Render(ctx context.Context, slides []proposal.Slide, opts proposal.Options, onProgress ProgressFunc) ([]byte, error)
}

const (
	FormatPDF   = "pdf"
	FormatExcel = "excel"
	FormatPPT   = "ppt"
)

// Registry maps a format selector to its renderer.
type Registry map[string]Renderer

// NewRegistry returns the three production renderers sharing one asset loader.
func NewRegistry(loader assets.Loader, log *zap.SugaredLogger) Registry {
	return Registry{
		FormatPDF:   NewPDFRenderer(loader, log),
		FormatExcel: NewSpreadsheetRenderer(loader, log),
		FormatPPT:   NewSlideDeckRenderer(loader, log),
	}
}

func (r Registry) Get(format string) (Renderer, bool) {
	renderer, ok := r[format]
	return renderer, ok
}

// Formats lists the registered selectors in a stable order.
func (r Registry) Formats() []string {
	formats := make([]string, 0, len(r))
	for f := range r {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// base carries what every renderer needs to resolve branding and photos.
type base struct {
	loader assets.Loader
	log    *zap.SugaredLogger
}

// loadLogo returns nil when there is no logo or it cannot be loaded; a
// broken logo never fails a render.
func (b *base) loadLogo(ctx context.Context, ref string) *assets.Image {
	if ref == "" {
		return nil
	}
	img, err := b.loader.Load(ctx, ref)
	if err != nil {
		b.log.Warnw("failed to load logo, using fallback", "logo", ref, "error", err)
		metrics.AssetFallback("logo")
		return nil
	}
	return img
}

// loadImage returns nil for the placeholder reference or a photo that
// cannot be loaded; the caller draws its own placeholder.
func (b *base) loadImage(ctx context.Context, ref string) *assets.Image {
	if ref == "" || ref == proposal.PlaceholderImage {
		return nil
	}
	img, err := b.loader.Load(ctx, ref)
	if err != nil {
		b.log.Warnw("failed to load media image, using placeholder", "image", ref, "error", err)
		metrics.AssetFallback("image")
		return nil
	}
	return img
}

func (b *base) badge() *assets.Image {
	img, err := assets.Badge()
	if err != nil {
		b.log.Errorw("failed to draw attribution badge", "error", err)
		metrics.AssetFallback("badge")
		return nil
	}
	return img
}

func report(onProgress ProgressFunc, percent int) {
	if onProgress != nil {
		onProgress(percent)
	}
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("render cancelled: %w", err)
	}
	return nil
}
