package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Lead status pipeline.
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusQualified = "qualified"
	LeadStatusConverted = "converted"
	LeadStatusLost      = "lost"
)

type Lead struct {
	bun.BaseModel `bun:"table:leads"`

	ID           string    `bun:"id,pk" json:"id"`
	FullName     string    `bun:"full_name,notnull" json:"full_name"`
	Email        string    `bun:"email,notnull" json:"email"`
	Phone        string    `bun:"phone,nullzero" json:"phone,omitempty"`
	Source       string    `bun:"source,nullzero" json:"source,omitempty"`
	Status       string    `bun:"status,notnull" json:"status"`
	Interest     string    `bun:"interest,nullzero" json:"interest,omitempty"`
	CounsellorID string    `bun:"counsellor_id,nullzero" json:"counsellor_id,omitempty"`
	RegionID     string    `bun:"region_id,nullzero" json:"region_id,omitempty"`
	BranchID     string    `bun:"branch_id,nullzero" json:"branch_id,omitempty"`
	Partner      string    `bun:"partner,nullzero" json:"partner,omitempty"`
	Notes        string    `bun:"notes,nullzero" json:"notes,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

type LeadRequest struct {
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Source       string `json:"source"`
	Interest     string `json:"interest"`
	CounsellorID string `json:"counsellor_id"`
	RegionID     string `json:"region_id"`
	BranchID     string `json:"branch_id"`
	Partner      string `json:"partner"`
	Notes        string `json:"notes"`
}
