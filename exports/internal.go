/*

Copyright 2022 Red Hat Inc.
SPDX-License-Identifier: Apache-2.0

*/
package exports

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	perrors "github.com/studiooh/proposal-export-service/errors"
	"github.com/studiooh/proposal-export-service/models"
	"github.com/studiooh/proposal-export-service/pipeline"
)

// Internal serves the private render endpoint used by other services.
type Internal struct {
	Pipeline *pipeline.Pipeline
	Log      *zap.SugaredLogger

	validate *validator.Validate
}

func NewInternal(p *pipeline.Pipeline, log *zap.SugaredLogger) *Internal {
	return &Internal{Pipeline: p, Log: log, validate: validator.New()}
}

// InternalRouter mounts the routes that are reached with a PSK or a service
// token.
func (i *Internal) InternalRouter(r chi.Router) {
	r.Post("/render/{format}", i.PostRender)
}

// PostRender renders synchronously and answers with the document itself.
func (i *Internal) PostRender(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")

	var payload RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		perrors.BadRequestError(w, r, err.Error())
		return
	}
	if i.validate == nil {
		i.validate = validator.New()
	}
	if err := i.validate.Struct(payload); err != nil {
		perrors.BadRequestError(w, r, err.Error())
		return
	}

	var (
		artifact *pipeline.Artifact
		err      error
	)
	if len(payload.Items) > 0 {
		artifact, err = i.Pipeline.Render(r.Context(), format, payload.Items, payload.Options, nil)
	} else {
		artifact, err = i.Pipeline.Run(r.Context(), pipeline.Request{
			Format:           format,
			User:             models.User{OrganizationID: payload.OrganizationID},
			MediaIDs:         payload.MediaIDs,
			ExcludedMediaIDs: payload.ExcludedMediaIDs,
			Options:          payload.Options,
		}, nil)
	}
	if err != nil {
		if pipeline.IsUserError(err) {
			perrors.BadRequestError(w, r, err)
			return
		}
		var exportErr *pipeline.ExportError
		if !errors.As(err, &exportErr) {
			i.Log.Errorw("render request failed", "format", format, "error", err)
		}
		perrors.InternalServerError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", artifact.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifact.Data); err != nil {
		i.Log.Errorw("failed to write artifact", "error", err)
	}
}
