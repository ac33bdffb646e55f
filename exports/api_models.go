package exports

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/studiooh/proposal-export-service/models"
	"github.com/studiooh/proposal-export-service/proposal"
)

// ProposalRequest is the body of POST /exports. When MediaIDs is omitted the
// user's saved selection is used.
type ProposalRequest struct {
	Format           string           `json:"format" validate:"required"`
	MediaIDs         []string         `json:"media_ids"`
	ExcludedMediaIDs []string         `json:"excluded_media_ids"`
	Options          proposal.Options `json:"options"`
}

// RenderRequest is the body of the private render endpoint. Items, when
// present, are rendered as given; otherwise MediaIDs are read from the
// organization's listings.
type RenderRequest struct {
	OrganizationID   string               `json:"org_id" validate:"required_without=Items"`
	MediaIDs         []string             `json:"media_ids"`
	ExcludedMediaIDs []string             `json:"excluded_media_ids"`
	Items            []proposal.MediaItem `json:"items"`
	Options          proposal.Options     `json:"options"`
}

// SelectionRequest is the body of PUT /selection.
type SelectionRequest struct {
	MediaIDs []string `json:"media_ids" validate:"required,dive,uuid"`
}

// APIProposalStatus is the polling view of a proposal.
type APIProposalStatus struct {
	ID       uuid.UUID `json:"id"`
	Status   string    `json:"status"`
	Progress int       `json:"progress"`
	Message  string    `json:"message,omitempty"`
}

func newAPIProposalStatus(p *models.ExportedProposal) *APIProposalStatus {
	status := &APIProposalStatus{
		ID:       p.ID,
		Status:   string(p.Status),
		Progress: p.Progress,
	}
	if p.Message != nil {
		status.Message = *p.Message
	}
	return status
}

func (s *APIProposalStatus) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}
