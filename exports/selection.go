package exports

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/render"

	perrors "github.com/studiooh/proposal-export-service/errors"
	"github.com/studiooh/proposal-export-service/middleware"
	"github.com/studiooh/proposal-export-service/models"
)

// GetSelection returns the saved selection, or an empty one.
func (e *Export) GetSelection(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserIdentity(r.Context())

	selection, err := e.DB.GetSelection(user)
	if errors.Is(err, models.ErrRecordNotFound) {
		selection = &models.Selection{MediaIDs: []string{}}
	} else if err != nil {
		e.Log.Errorw("error reading selection", "error", err)
		perrors.InternalServerError(w, r, err)
		return
	}
	render.JSON(w, r, selection)
}

// PutSelection replaces the saved selection. Duplicates are dropped, first
// occurrence wins.
func (e *Export) PutSelection(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserIdentity(r.Context())

	var payload SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		perrors.BadRequestError(w, r, err.Error())
		return
	}
	if err := e.validator().Struct(payload); err != nil {
		perrors.BadRequestError(w, r, err.Error())
		return
	}

	seen := map[string]bool{}
	ids := []string{}
	for _, id := range payload.MediaIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	selection := &models.Selection{
		OrganizationID: user.OrganizationID,
		Username:       user.Username,
		MediaIDs:       ids,
	}
	if err := e.DB.SaveSelection(selection); err != nil {
		e.Log.Errorw("error saving selection", "error", err)
		perrors.InternalServerError(w, r, err)
		return
	}
	render.JSON(w, r, selection)
}

func (e *Export) DeleteSelection(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserIdentity(r.Context())
	if err := e.DB.DeleteSelection(user); err != nil {
		e.Log.Errorw("error deleting selection", "error", err)
		perrors.InternalServerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
