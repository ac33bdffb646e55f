package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// APIProposal represents select fields of the ExportedProposal which are returned to the user
type APIProposal struct {
	ID           uuid.UUID  `json:"id"`
	CreatedAt    time.Time  `json:"created"`
	CompletedAt  *time.Time `json:"completed,omitempty"`
	Expires      *time.Time `json:"expires,omitempty"`
	Format       string     `json:"format"`
	Status       string     `json:"status"`
	Progress     int        `json:"progress"`
	ClientName   string     `json:"client_name"`
	CampaignName string     `json:"campaign_name"`
	Filename     string     `json:"filename"`
}

// ListParams narrows and orders APIList results. Sort entries are already
// validated "column asc|desc" clauses.
type ListParams struct {
	Format string
	Status string
	Sort   []string
}

type ProposalDB struct {
	DB *gorm.DB
}

type DBInterface interface {
	APIList(user User, params ListParams) (result []*APIProposal, err error)

	Create(proposal *ExportedProposal) error
	Delete(proposalUUID uuid.UUID, user User) error
	Get(proposalUUID uuid.UUID) (*ExportedProposal, error)
	GetWithUser(proposalUUID uuid.UUID, user User) (*ExportedProposal, error)
	Updates(m *ExportedProposal, values interface{}) error
	ListExpired(now time.Time) (result []*ExportedProposal, err error)
	DeleteExpired(now time.Time) (int64, error)

	ListMedia(ctx context.Context, organizationID string, ids []uuid.UUID) (result []*Media, err error)
	GetBranding(user User) (*Branding, error)
	GetSelection(user User) (*Selection, error)
	SaveSelection(selection *Selection) error
	DeleteSelection(user User) error
}

var ErrRecordNotFound = errors.New("record not found")

func (pm *ProposalDB) Create(proposal *ExportedProposal) error {
	return pm.DB.Create(proposal).Error
}

func (pm *ProposalDB) Delete(proposalUUID uuid.UUID, user User) error {
	result := pm.DB.Where(&ExportedProposal{ID: proposalUUID, User: user}).Delete(&ExportedProposal{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (pm *ProposalDB) Get(proposalUUID uuid.UUID) (*ExportedProposal, error) {
	result := &ExportedProposal{}
	err := pm.DB.Where(&ExportedProposal{ID: proposalUUID}).First(result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	return result, err
}

func (pm *ProposalDB) GetWithUser(proposalUUID uuid.UUID, user User) (*ExportedProposal, error) {
	result := &ExportedProposal{}
	err := pm.DB.Where(&ExportedProposal{ID: proposalUUID, User: user}).First(result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	return result, err
}

func (pm *ProposalDB) APIList(user User, params ListParams) (result []*APIProposal, err error) {
	query := pm.DB.Model(&ExportedProposal{}).Where(&ExportedProposal{User: user})
	if params.Format != "" {
		query = query.Where("format = ?", params.Format)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if len(params.Sort) == 0 {
		query = query.Order("created_at desc")
	}
	for _, s := range params.Sort {
		query = query.Order(s)
	}
	result = []*APIProposal{}
	err = query.Find(&result).Error
	return
}

func (pm *ProposalDB) Updates(m *ExportedProposal, values interface{}) error {
	return pm.DB.Model(m).Updates(values).Error
}

func (pm *ProposalDB) ListExpired(now time.Time) (result []*ExportedProposal, err error) {
	err = pm.DB.Where("expires < ?", now).Find(&result).Error
	return
}

func (pm *ProposalDB) DeleteExpired(now time.Time) (int64, error) {
	result := pm.DB.Where("expires < ?", now).Delete(&ExportedProposal{})
	return result.RowsAffected, result.Error
}

// ListMedia reads the requested media of one organization in a single query.
// Order of the result is unspecified.
func (pm *ProposalDB) ListMedia(ctx context.Context, organizationID string, ids []uuid.UUID) (result []*Media, err error) {
	result = []*Media{}
	if len(ids) == 0 {
		return result, nil
	}
	err = pm.DB.WithContext(ctx).
		Where("organization_id = ? AND id IN ?", organizationID, ids).
		Find(&result).Error
	return
}

func (pm *ProposalDB) GetBranding(user User) (*Branding, error) {
	result := &Branding{}
	err := pm.DB.Where(&Branding{ClerkUserID: user.Username}).First(result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	return result, err
}

func (pm *ProposalDB) GetSelection(user User) (*Selection, error) {
	result := &Selection{}
	err := pm.DB.Where(&Selection{OrganizationID: user.OrganizationID, Username: user.Username}).First(result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	return result, err
}

func (pm *ProposalDB) SaveSelection(selection *Selection) error {
	return pm.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "organization_id"}, {Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"media_ids", "updated_at"}),
	}).Create(selection).Error
}

func (pm *ProposalDB) DeleteSelection(user User) error {
	return pm.DB.Where(&Selection{OrganizationID: user.OrganizationID, Username: user.Username}).Delete(&Selection{}).Error
}
