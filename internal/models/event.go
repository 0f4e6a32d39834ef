package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	RegistrationStatusConfirmed = "confirmed"
	RegistrationStatusPending   = "pending_payment"
	RegistrationStatusCancelled = "cancelled"
	RegistrationStatusAttended  = "attended"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          string    `bun:"id,pk" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Description string    `bun:"description,nullzero" json:"description,omitempty"`
	Venue       string    `bun:"venue,nullzero" json:"venue,omitempty"`
	StartsAt    time.Time `bun:"starts_at,notnull" json:"starts_at"`
	EndsAt      time.Time `bun:"ends_at,notnull" json:"ends_at"`
	Capacity    int       `bun:"capacity,notnull,default:0" json:"capacity"` // 0 means unlimited
	Fee         int64     `bun:"fee,notnull,default:0" json:"fee"`           // cents; 0 means free
	RegionID    string    `bun:"region_id,nullzero" json:"region_id,omitempty"`
	BranchID    string    `bun:"branch_id,nullzero" json:"branch_id,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

type EventRegistration struct {
	bun.BaseModel `bun:"table:event_registrations"`

	ID              string    `bun:"id,pk" json:"id"`
	Code            string    `bun:"code,unique,notnull" json:"code"`
	EventID         string    `bun:"event_id,notnull" json:"event_id"`
	AttendeeName    string    `bun:"attendee_name,notnull" json:"attendee_name"`
	AttendeeEmail   string    `bun:"attendee_email,notnull" json:"attendee_email"`
	AttendeePhone   string    `bun:"attendee_phone,nullzero" json:"attendee_phone,omitempty"`
	LeadID          string    `bun:"lead_id,nullzero" json:"lead_id,omitempty"`
	Status          string    `bun:"status,notnull" json:"status"`
	PaymentIntentID string    `bun:"payment_intent_id,nullzero" json:"payment_intent_id,omitempty"`
	QRCode          []byte    `bun:"qr_code,nullzero,type:bytea" json:"qr_code,omitempty"`
	RegionID        string    `bun:"region_id,nullzero" json:"region_id,omitempty"`
	BranchID        string    `bun:"branch_id,nullzero" json:"branch_id,omitempty"`
	CreatedAt       time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`

	Event *Event `bun:"rel:belongs-to,join:event_id=id" json:"event,omitempty"`
}

type EventRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Venue       string    `json:"venue"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Capacity    int       `json:"capacity"`
	Fee         int64     `json:"fee"`
	RegionID    string    `json:"region_id"`
	BranchID    string    `json:"branch_id"`
}

type RegistrationRequest struct {
	AttendeeName  string `json:"attendee_name"`
	AttendeeEmail string `json:"attendee_email"`
	AttendeePhone string `json:"attendee_phone"`
	LeadID        string `json:"lead_id"`
}
