/*

Copyright 2022 Red Hat Inc.
SPDX-License-Identifier: Apache-2.0

*/
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/studiooh/proposal-export-service/proposal"
)

type ProposalFormat string

const (
	PDF   ProposalFormat = "pdf"
	Excel ProposalFormat = "excel"
	PPT   ProposalFormat = "ppt"
)

type ProposalStatus string

const (
	Pending  ProposalStatus = "pending"
	Running  ProposalStatus = "running"
	Complete ProposalStatus = "complete"
	Failed   ProposalStatus = "failed"
)

// URLParams represent the `proposalUUID` found in the url. It is added to the
// request context by the ProposalUUID middleware.
type URLParams struct {
	ProposalUUID uuid.UUID
}

type User struct {
	AccountID      string `json:"-"`
	OrganizationID string `json:"-"`
	Username       string `json:"-"`
}

// Media is a bookable placement as stored by the listings application.
// The export service only ever reads it.
type Media struct {
	ID             uuid.UUID       `gorm:"type:uuid;primarykey"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"`
	OrganizationID string          `gorm:"index"`
	UserID         string
	Code           *string
	Name           string
	Type           string
	Subtype        *string
	Location       string
	City           *string
	Width          *float64
	Height         *float64
	Price          decimal.Decimal `gorm:"type:numeric(12,2)"`
	Traffic        *string
	Availability   bool
	Geolocation    datatypes.JSON `gorm:"type:jsonb"`
	ImageURLs      pq.StringArray `gorm:"type:text[];column:image_urls"`
}

func (Media) TableName() string {
	return "media"
}

type geolocation struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Item returns the snapshot handed to the content model builder.
func (m *Media) Item() proposal.MediaItem {
	item := proposal.MediaItem{
		ID:        m.ID.String(),
		Name:      m.Name,
		Location:  m.Location,
		City:      deref(m.City),
		Type:      m.Type,
		Subtype:   deref(m.Subtype),
		Width:     m.Width,
		Height:    m.Height,
		Price:     m.Price,
		Traffic:   deref(m.Traffic),
		Available: m.Availability,
		ImageURLs: append([]string(nil), m.ImageURLs...),
	}
	if len(m.Geolocation) > 0 {
		var geo geolocation
		if err := json.Unmarshal(m.Geolocation, &geo); err == nil {
			item.Latitude = geo.Latitude
			item.Longitude = geo.Longitude
		}
	}
	return item
}

// Branding is the per-user logo and contact block kept on the users table.
type Branding struct {
	ID             uuid.UUID `gorm:"type:uuid;primarykey"`
	ClerkUserID    string    `gorm:"column:clerk_user_id;uniqueIndex"`
	OrganizationID string
	LogoImgURL     *string `gorm:"column:logo_img_url"`
	ContactEmail   *string
	Phone          *string
	Address        *string
}

func (Branding) TableName() string {
	return "users"
}

func (b *Branding) ContactInfo() proposal.ContactInfo {
	return proposal.ContactInfo{
		Email:   deref(b.ContactEmail),
		Phone:   deref(b.Phone),
		Address: deref(b.Address),
	}
}

func (b *Branding) Logo() string {
	return deref(b.LogoImgURL)
}

// Selection is the list of media a user picked on the listings page.
type Selection struct {
	OrganizationID string         `gorm:"primaryKey" json:"-"`
	Username       string         `gorm:"primaryKey" json:"-"`
	MediaIDs       pq.StringArray `gorm:"type:text[]" json:"media_ids"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// ExportedProposal records one export run and, once complete, its artifact.
type ExportedProposal struct {
	ID           uuid.UUID      `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Expires      *time.Time     `json:"expires,omitempty"`
	RequestID    string         `json:"request_id"`
	Format       ProposalFormat `gorm:"type:string" json:"format"`
	Status       ProposalStatus `gorm:"type:string" json:"status"`
	Progress     int            `json:"progress"`
	ClientName   string         `json:"client_name"`
	CampaignName string         `json:"campaign_name"`
	MediaIDs     pq.StringArray `gorm:"type:text[]" json:"media_ids"`
	Options      datatypes.JSON `gorm:"type:json" json:"-"`
	Filename     string         `json:"filename"`
	Message      *string        `json:"message,omitempty"`
	S3Key        string         `json:"-"`
	User
}

func (ep *ExportedProposal) BeforeCreate(tx *gorm.DB) error {
	if ep.ID == uuid.Nil {
		ep.ID = uuid.New()
	}
	if ep.Status == "" {
		ep.Status = Pending
	}
	return nil
}

func (ep *ExportedProposal) GetOptions() (proposal.Options, error) {
	var opts proposal.Options
	if len(ep.Options) == 0 {
		return opts, nil
	}
	err := json.Unmarshal(ep.Options, &opts)
	return opts, err
}

func (ep *ExportedProposal) SetOptions(opts proposal.Options) error {
	out, err := json.Marshal(opts)
	ep.Options = out
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
