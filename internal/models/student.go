package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Student struct {
	bun.BaseModel `bun:"table:students"`

	ID           string    `bun:"id,pk" json:"id"`
	Code         string    `bun:"code,unique,notnull" json:"code"`
	LeadID       string    `bun:"lead_id,nullzero" json:"lead_id,omitempty"`
	FullName     string    `bun:"full_name,notnull" json:"full_name"`
	Email        string    `bun:"email,notnull" json:"email"`
	Phone        string    `bun:"phone,nullzero" json:"phone,omitempty"`
	DateOfBirth  time.Time `bun:"date_of_birth,nullzero" json:"date_of_birth,omitempty"`
	Passport     string    `bun:"passport,nullzero" json:"passport,omitempty"`
	CounsellorID string    `bun:"counsellor_id,nullzero" json:"counsellor_id,omitempty"`
	RegionID     string    `bun:"region_id,nullzero" json:"region_id,omitempty"`
	BranchID     string    `bun:"branch_id,nullzero" json:"branch_id,omitempty"`
	Partner      string    `bun:"partner,nullzero" json:"partner,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

type StudentRequest struct {
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Passport     string `json:"passport"`
	CounsellorID string `json:"counsellor_id"`
	RegionID     string `json:"region_id"`
	BranchID     string `json:"branch_id"`
	Partner      string `json:"partner"`
}
