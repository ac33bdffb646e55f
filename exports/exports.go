/*

Copyright 2022 Red Hat Inc.
SPDX-License-Identifier: Apache-2.0

*/
package exports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/redhatinsights/platform-go-middlewares/v2/request_id"
	"go.uber.org/zap"

	perrors "github.com/studiooh/proposal-export-service/errors"
	"github.com/studiooh/proposal-export-service/kafka"
	"github.com/studiooh/proposal-export-service/logger"
	"github.com/studiooh/proposal-export-service/middleware"
	"github.com/studiooh/proposal-export-service/models"
	"github.com/studiooh/proposal-export-service/pipeline"
	"github.com/studiooh/proposal-export-service/proposal"
	es3 "github.com/studiooh/proposal-export-service/s3"
)

// Storage keeps finished artifacts.
type Storage interface {
	Upload(ctx context.Context, key, contentType string, data []byte) error
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Export handles the public proposal routes.
type Export struct {
	DB         models.DBInterface
	Pipeline   *pipeline.Pipeline
	Storage    Storage
	Publisher  kafka.Publisher
	ExpiryDays int
	Log        *zap.SugaredLogger

	validate *validator.Validate
	runs     sync.WaitGroup
}

func New(db models.DBInterface, p *pipeline.Pipeline, storage Storage, publisher kafka.Publisher, expiryDays int, log *zap.SugaredLogger) *Export {
	return &Export{
		DB:         db,
		Pipeline:   p,
		Storage:    storage,
		Publisher:  publisher,
		ExpiryDays: expiryDays,
		Log:        log,
		validate:   validator.New(),
	}
}

// PublicRouter mounts the proposal routes.
func (e *Export) PublicRouter(r chi.Router) {
	r.Route("/exports", func(sub chi.Router) {
		sub.Post("/", e.PostExport)
		sub.With(middleware.PaginationCtx).Get("/", e.ListExports)
		sub.Route("/{proposalUUID}", func(item chi.Router) {
			item.Use(middleware.ProposalUUIDCtx)
			item.Get("/", e.GetExport)
			item.Delete("/", e.DeleteExport)
			item.Get("/status", e.GetExportStatus)
		})
	})
	r.Route("/selection", func(sub chi.Router) {
		sub.Get("/", e.GetSelection)
		sub.Put("/", e.PutSelection)
		sub.Delete("/", e.DeleteSelection)
	})
}

// Wait blocks until every background export run has finished.
func (e *Export) Wait() {
	e.runs.Wait()
}

func (e *Export) validator() *validator.Validate {
	if e.validate == nil {
		e.validate = validator.New()
	}
	return e.validate
}

// PostExport records a proposal and renders it in the background. The
// selection is resolved before answering so an empty one is a 400.
func (e *Export) PostExport(w http.ResponseWriter, r *http.Request) {
	reqID := request_id.GetReqID(r.Context())
	user := middleware.GetUserIdentity(r.Context())

	var payload ProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		perrors.BadRequestError(w, r, err.Error())
		return
	}
	if err := e.validator().Struct(payload); err != nil {
		perrors.BadRequestError(w, r, err.Error())
		return
	}

	payload.Format = strings.ToLower(strings.TrimSpace(payload.Format))
	if _, ok := e.Pipeline.Renderers.Get(payload.Format); !ok {
		perrors.BadRequestError(w, r, e.Pipeline.Unsupported(payload.Format))
		return
	}

	ids := payload.MediaIDs
	if ids == nil {
		selection, err := e.DB.GetSelection(user)
		switch {
		case errors.Is(err, models.ErrRecordNotFound):
		case err != nil:
			e.Log.Errorw("error reading saved selection", "error", err)
			perrors.InternalServerError(w, r, err)
			return
		default:
			ids = selection.MediaIDs
		}
	}

	items, err := e.Pipeline.Collector.Collect(r.Context(), user, pipeline.Exclude(ids, payload.ExcludedMediaIDs))
	if err != nil {
		e.Log.Errorw("error collecting selection", "error", err)
		perrors.InternalServerError(w, r, err)
		return
	}
	if len(items) == 0 {
		perrors.BadRequestError(w, r, proposal.ErrNothingSelected)
		return
	}

	opts := e.withBranding(user, payload.Options)

	record := &models.ExportedProposal{
		RequestID:    reqID,
		Format:       models.ProposalFormat(payload.Format),
		Status:       models.Pending,
		ClientName:   opts.ClientName,
		CampaignName: opts.CampaignName,
		MediaIDs:     mediaIDs(items),
		User:         user,
	}
	if err := record.SetOptions(opts); err != nil {
		perrors.InternalServerError(w, r, err)
		return
	}
	if err := e.DB.Create(record); err != nil {
		e.Log.Errorw("error creating proposal entry", "error", err)
		perrors.InternalServerError(w, r, err)
		return
	}

	// the run updates its record in place
	running := *record
	e.runs.Add(1)
	go e.run(context.WithoutCancel(r.Context()), &running, items, opts)

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, record)
}

// withBranding fills the logo and contact block from the user's profile
// when the request leaves them empty.
func (e *Export) withBranding(user models.User, opts proposal.Options) proposal.Options {
	if opts.LogoPath != "" && !opts.ContactInfo.Empty() {
		return opts
	}
	branding, err := e.DB.GetBranding(user)
	if err != nil {
		if !errors.Is(err, models.ErrRecordNotFound) {
			e.Log.Warnw("failed to read branding", "username", user.Username, "error", err)
		}
		return opts
	}
	if opts.LogoPath == "" {
		opts.LogoPath = branding.Logo()
	}
	if opts.ContactInfo.Empty() {
		opts.ContactInfo = branding.ContactInfo()
	}
	return opts
}

func mediaIDs(items []proposal.MediaItem) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

// run renders the proposal, stores the artifact and records the outcome.
func (e *Export) run(ctx context.Context, record *models.ExportedProposal, items []proposal.MediaItem, opts proposal.Options) {
	defer e.runs.Done()

	log := e.Log.With(
		logger.ProposalIDField(record.ID.String()),
		logger.RequestIDField(record.RequestID),
		logger.OrgIDField(record.OrganizationID),
		logger.FormatField(string(record.Format)),
	)

	if err := e.DB.Updates(record, map[string]interface{}{"status": models.Running}); err != nil {
		log.Errorw("failed to mark proposal running", "error", err)
	}

	progress := proposal.NewProgress(func(percent int) {
		if err := e.DB.Updates(record, map[string]interface{}{"progress": percent}); err != nil {
			log.Warnw("failed to save progress", "progress", percent, "error", err)
		}
	})

	artifact, err := e.Pipeline.Render(ctx, string(record.Format), items, opts, progress)
	if err != nil {
		e.fail(record, err, log)
		return
	}

	key := es3.ArtifactKey(record.OrganizationID, record.ID.String(), artifact.Filename)
	if err := e.Storage.Upload(ctx, key, artifact.ContentType, artifact.Data); err != nil {
		e.fail(record, fmt.Errorf("failed to store %s export: %w", artifact.Format, err), log)
		return
	}

	now := time.Now()
	expires := now.AddDate(0, 0, e.ExpiryDays)
	err = e.DB.Updates(record, map[string]interface{}{
		"status":       models.Complete,
		"completed_at": now,
		"expires":      expires,
		"filename":     artifact.Filename,
		"s3_key":       key,
	})
	if err != nil {
		log.Errorw("failed to mark proposal complete", "error", err)
		return
	}
	log.Infow("proposal exported", "format", artifact.Format, "media", artifact.MediaCount, "key", key)

	e.Publisher.Publish(kafka.ProposalEvent{
		ProposalID:     record.ID,
		OrganizationID: record.OrganizationID,
		Username:       record.Username,
		Format:         artifact.Format,
		Status:         string(models.Complete),
		MediaCount:     artifact.MediaCount,
		Filename:       artifact.Filename,
		Timestamp:      now,
	}, kafka.EventHeader{Application: kafka.Application, RequestID: record.RequestID})
}

func (e *Export) fail(record *models.ExportedProposal, cause error, log *zap.SugaredLogger) {
	log.Errorw("proposal export failed", "error", cause)
	msg := cause.Error()
	err := e.DB.Updates(record, map[string]interface{}{
		"status":  models.Failed,
		"message": msg,
	})
	if err != nil {
		log.Errorw("failed to mark proposal failed", "error", err)
	}
	e.Publisher.Publish(kafka.ProposalEvent{
		ProposalID:     record.ID,
		OrganizationID: record.OrganizationID,
		Username:       record.Username,
		Format:         string(record.Format),
		Status:         string(models.Failed),
		MediaCount:     len(record.MediaIDs),
		Message:        msg,
		Timestamp:      time.Now(),
	}, kafka.EventHeader{Application: kafka.Application, RequestID: record.RequestID})
}

// ListExports returns the user's proposals, newest first unless sorted.
func (e *Export) ListExports(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserIdentity(r.Context())
	page := middleware.GetPagination(r.Context())

	q := r.URL.Query()
	params := models.ListParams{
		Format: e.readString(q, "format", ""),
		Status: e.readString(q, "status", ""),
		Sort:   e.convertSortParams(e.readCSV(q, "sort", []string{"-created"})),
	}
	if params.Format != "" {
		if _, ok := e.Pipeline.Renderers.Get(params.Format); !ok {
			perrors.BadRequestError(w, r, e.Pipeline.Unsupported(params.Format))
			return
		}
	}
	if params.Status != "" && !validStatus(params.Status) {
		perrors.BadRequestError(w, r, fmt.Sprintf("'%s' is not a valid status", params.Status))
		return
	}

	proposals, err := e.DB.APIList(user, params)
	if err != nil {
		e.Log.Errorw("error listing proposals", "error", err)
		perrors.InternalServerError(w, r, err)
		return
	}
	resp, err := middleware.GetPaginatedResponse(r.URL, page, proposals)
	if err != nil {
		e.Log.Errorw("error while paginating data", "error", err)
		perrors.BadRequestError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

func validStatus(s string) bool {
	switch models.ProposalStatus(s) {
	case models.Pending, models.Running, models.Complete, models.Failed:
		return true
	}
	return false
}

// getProposal loads the proposal named in the url, answering 404 itself.
func (e *Export) getProposal(w http.ResponseWriter, r *http.Request) (*models.ExportedProposal, bool) {
	params := middleware.GetURLParams(r.Context())
	user := middleware.GetUserIdentity(r.Context())

	record, err := e.DB.GetWithUser(params.ProposalUUID, user)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			perrors.NotFoundError(w, r, fmt.Sprintf("proposal '%s' not found", params.ProposalUUID))
			return nil, false
		}
		e.Log.Errorw("error querying for proposal", "error", err)
		perrors.InternalServerError(w, r, err)
		return nil, false
	}
	return record, true
}

// GetExport streams the finished artifact.
func (e *Export) GetExport(w http.ResponseWriter, r *http.Request) {
	record, ok := e.getProposal(w, r)
	if !ok {
		return
	}
	if record.Status != models.Complete {
		perrors.NotReadyError(w, r, fmt.Sprintf("proposal '%s' is not ready for download", record.ID))
		return
	}

	data, err := e.Storage.Download(r.Context(), record.S3Key)
	if err != nil {
		e.Log.Errorw("failed to download artifact", "key", record.S3Key, "error", err)
		perrors.InternalServerError(w, r, err)
		return
	}

	contentType := "application/octet-stream"
	if renderer, ok := e.Pipeline.Renderers.Get(string(record.Format)); ok {
		contentType = renderer.ContentType()
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", record.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		e.Log.Errorw("failed to write artifact", "error", err)
	}
}

func (e *Export) GetExportStatus(w http.ResponseWriter, r *http.Request) {
	record, ok := e.getProposal(w, r)
	if !ok {
		return
	}
	if err := render.Render(w, r, newAPIProposalStatus(record)); err != nil {
		e.Log.Errorw("error while rendering status", "error", err)
		perrors.InternalServerError(w, r, err)
	}
}

// DeleteExport removes the proposal and its stored artifact.
func (e *Export) DeleteExport(w http.ResponseWriter, r *http.Request) {
	record, ok := e.getProposal(w, r)
	if !ok {
		return
	}
	if err := e.DB.Delete(record.ID, record.User); err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			perrors.NotFoundError(w, r, fmt.Sprintf("proposal '%s' not found", record.ID))
			return
		}
		e.Log.Errorw("error deleting proposal", "error", err)
		perrors.InternalServerError(w, r, err)
		return
	}
	if record.S3Key != "" {
		if err := e.Storage.Delete(r.Context(), record.S3Key); err != nil {
			e.Log.Warnw("failed to delete artifact", "key", record.S3Key, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
