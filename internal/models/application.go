package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Application status machine. Transitions are enforced by the service layer.
const (
	ApplicationStatusDraft       = "draft"
	ApplicationStatusSubmitted   = "submitted"
	ApplicationStatusUnderReview = "under_review"
	ApplicationStatusOfferIssued = "offer_issued"
	ApplicationStatusAccepted    = "accepted"
	ApplicationStatusRejected    = "rejected"
)

type Application struct {
	bun.BaseModel `bun:"table:applications"`

	ID                 string    `bun:"id,pk" json:"id"`
	Code               string    `bun:"code,unique,notnull" json:"code"`
	StudentID          string    `bun:"student_id,notnull" json:"student_id"`
	UniversityID       string    `bun:"university_id,notnull" json:"university_id"`
	Program            string    `bun:"program,notnull" json:"program"`
	Intake             string    `bun:"intake,nullzero" json:"intake,omitempty"`
	Status             string    `bun:"status,notnull" json:"status"`
	CounsellorID       string    `bun:"counsellor_id,nullzero" json:"counsellor_id,omitempty"`
	AdmissionOfficerID string    `bun:"admission_officer_id,nullzero" json:"admission_officer_id,omitempty"`
	RegionID           string    `bun:"region_id,nullzero" json:"region_id,omitempty"`
	BranchID           string    `bun:"branch_id,nullzero" json:"branch_id,omitempty"`
	CreatedAt          time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt          time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`

	Student    *Student    `bun:"rel:belongs-to,join:student_id=id" json:"student,omitempty"`
	University *University `bun:"rel:belongs-to,join:university_id=id" json:"university,omitempty"`
}

// AdmissionDecision records the outcome issued against an application.
type AdmissionDecision struct {
	bun.BaseModel `bun:"table:admission_decisions"`

	ID            string    `bun:"id,pk" json:"id"`
	ApplicationID string    `bun:"application_id,notnull" json:"application_id"`
	Decision      string    `bun:"decision,notnull" json:"decision"` // offer, conditional_offer, rejection
	Conditions    string    `bun:"conditions,nullzero" json:"conditions,omitempty"`
	DecidedBy     string    `bun:"decided_by,notnull" json:"decided_by"`
	DecidedAt     time.Time `bun:"decided_at,notnull,default:current_timestamp" json:"decided_at"`
}

type ApplicationRequest struct {
	StudentID          string `json:"student_id"`
	UniversityID       string `json:"university_id"`
	Program            string `json:"program"`
	Intake             string `json:"intake"`
	CounsellorID       string `json:"counsellor_id"`
	AdmissionOfficerID string `json:"admission_officer_id"`
	RegionID           string `json:"region_id"`
	BranchID           string `json:"branch_id"`
}
