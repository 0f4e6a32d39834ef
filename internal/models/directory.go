package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Role values carried in JWT claims and user records.
const (
	RoleSuperAdmin       = "super_admin"
	RoleAdminStaff       = "admin_staff"
	RoleRegionalManager  = "regional_manager"
	RoleBranchManager    = "branch_manager"
	RoleCounselor        = "counselor"
	RoleAdmissionOfficer = "admission_officer"
	RolePartner          = "partner"
	RoleProcessing       = "processing"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID        string    `bun:"id,pk" json:"id"`
	Email     string    `bun:"email,unique,notnull" json:"email"`
	FullName  string    `bun:"full_name,notnull" json:"full_name"`
	Role      string    `bun:"role,notnull" json:"role"`
	RegionID  string    `bun:"region_id,nullzero" json:"region_id,omitempty"`
	BranchID  string    `bun:"branch_id,nullzero" json:"branch_id,omitempty"`
	Active    bool      `bun:"active,notnull,default:true" json:"active"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

type Region struct {
	bun.BaseModel `bun:"table:regions"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,unique,notnull" json:"name"`
	Country   string    `bun:"country,nullzero" json:"country,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

type Branch struct {
	bun.BaseModel `bun:"table:branches"`

	ID        string    `bun:"id,pk" json:"id"`
	RegionID  string    `bun:"region_id,notnull" json:"region_id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Address   string    `bun:"address,nullzero" json:"address,omitempty"`
	Phone     string    `bun:"phone,nullzero" json:"phone,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`

	Region *Region `bun:"rel:belongs-to,join:region_id=id" json:"region,omitempty"`
}

type University struct {
	bun.BaseModel `bun:"table:universities"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Country   string    `bun:"country,notnull" json:"country"`
	City      string    `bun:"city,nullzero" json:"city,omitempty"`
	Website   string    `bun:"website,nullzero" json:"website,omitempty"`
	Ranking   int       `bun:"ranking,nullzero" json:"ranking,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
