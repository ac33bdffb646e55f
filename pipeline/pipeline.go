package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/studiooh/proposal-export-service/metrics"
	"github.com/studiooh/proposal-export-service/models"
	"github.com/studiooh/proposal-export-service/proposal"
	"github.com/studiooh/proposal-export-service/render"
)

// Request describes one export run.
type Request struct {
	Format           string
	User             models.User
	MediaIDs         []string
	ExcludedMediaIDs []string
	Options          proposal.Options
}

// Artifact is a finished document ready for download.
type Artifact struct {
	Format      string
	Filename    string
	ContentType string
	Data        []byte
	MediaCount  int
}

type Pipeline struct {
	Collector *Collector
	Renderers render.Registry
	// Timeout bounds a run. Zero disables it.
	Timeout time.Duration
	Log     *zap.SugaredLogger
}

func New(collector *Collector, renderers render.Registry, timeout time.Duration, log *zap.SugaredLogger) *Pipeline {
	return &Pipeline{Collector: collector, Renderers: renderers, Timeout: timeout, Log: log}
}

// Run collects the selection, builds the content model and renders it.
// progress starts at 0 and always ends at 100, whatever the outcome.
func (p *Pipeline) Run(ctx context.Context, req Request, progress *proposal.Progress) (*Artifact, error) {
	if progress == nil {
		progress = proposal.NewProgress(nil)
	}
	progress.Reset()
	defer progress.Complete()

	renderer, ok := p.Renderers.Get(req.Format)
	if !ok {
		return nil, p.Unsupported(req.Format)
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	items, err := p.Collector.Collect(ctx, req.User, Exclude(req.MediaIDs, req.ExcludedMediaIDs))
	if err != nil {
		metrics.ObserveExport(req.Format, metrics.OutcomeFailed, 0, 0)
		return nil, err
	}
	return p.render(ctx, renderer, items, req.Options, progress)
}

// Unsupported describes a format no renderer is registered for.
func (p *Pipeline) Unsupported(format string) error {
	return &UnsupportedFormatError{Format: format, Supported: p.Renderers.Formats()}
}

// Render runs the build and render stages on items already collected.
func (p *Pipeline) Render(ctx context.Context, format string, items []proposal.MediaItem, opts proposal.Options, progress *proposal.Progress) (*Artifact, error) {
	if progress == nil {
		progress = proposal.NewProgress(nil)
	}
	progress.Reset()
	defer progress.Complete()

	renderer, ok := p.Renderers.Get(format)
	if !ok {
		return nil, p.Unsupported(format)
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.render(ctx, renderer, items, opts, progress)
}

func (p *Pipeline) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.Timeout > 0 {
		return context.WithTimeout(ctx, p.Timeout)
	}
	return context.WithCancel(ctx)
}

func (p *Pipeline) render(ctx context.Context, renderer render.Renderer, items []proposal.MediaItem, opts proposal.Options, progress *proposal.Progress) (*Artifact, error) {
	format := renderer.Format()
	if len(items) == 0 {
		metrics.ObserveExport(format, metrics.OutcomeEmptySelected, 0, 0)
		return nil, proposal.ErrNothingSelected
	}

	start := time.Now()
	slides := proposal.BuildContentModel(items, opts)
	metrics.ObserveSlides(len(slides))

	data, err := renderer.Render(ctx, slides, opts, progress.Report)
	if err != nil {
		metrics.ObserveExport(format, metrics.OutcomeFailed, time.Since(start).Seconds(), 0)
		p.Log.Errorw("export failed", "format", format, "media", len(items), "error", err)
		return nil, &ExportError{Format: format, Err: err}
	}

	elapsed := time.Since(start)
	metrics.ObserveExport(format, metrics.OutcomeSuccess, elapsed.Seconds(), len(data))
	p.Log.Infow("export rendered", "format", format, "media", len(items), "bytes", len(data), "duration", elapsed)

	return &Artifact{
		Format:      format,
		Filename:    renderer.Filename(),
		ContentType: renderer.ContentType(),
		Data:        data,
		MediaCount:  len(items),
	}, nil
}

// IsUserError reports whether err comes from the request rather than the
// service, so callers can answer 400 instead of 500.
func IsUserError(err error) bool {
	var unsupported *UnsupportedFormatError
	return errors.Is(err, proposal.ErrNothingSelected) || errors.As(err, &unsupported)
}
