package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"edu-crm/internal/models"
	"edu-crm/internal/scope"
)

// ScopeFields names the visibility columns the leads table carries.
var ScopeFields = scope.Fields{
	Counsellor: "counsellor_id",
	Partner:    "partner",
	Region:     "region_id",
	Branch:     "branch_id",
}

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateLead(ctx context.Context, lead models.Lead) error {
	_, err := d.Bun.NewInsert().Model(&lead).Exec(ctx)
	return err
}

func (d *DB) GetLeadByID(ctx context.Context, id string) (*models.Lead, error) {
	var lead models.Lead
	err := d.Bun.NewSelect().
		Model(&lead).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// ListLeads returns the leads visible to the caller, newest first.
func (d *DB) ListLeads(ctx context.Context, sc scope.Scope) ([]models.Lead, error) {
	var leads []models.Lead
	q := d.Bun.NewSelect().Model(&leads)
	q = scope.Apply(q, sc, ScopeFields)
	err := q.Order("created_at DESC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	if leads == nil {
		leads = []models.Lead{}
	}
	return leads, nil
}

// ListLeadsByStatus narrows the scoped listing to one pipeline status.
func (d *DB) ListLeadsByStatus(ctx context.Context, sc scope.Scope, status string) ([]models.Lead, error) {
	var leads []models.Lead
	q := d.Bun.NewSelect().Model(&leads).Where("status = ?", status)
	q = scope.Apply(q, sc, ScopeFields)
	err := q.Order("created_at DESC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	if leads == nil {
		leads = []models.Lead{}
	}
	return leads, nil
}

func (d *DB) UpdateLead(ctx context.Context, lead models.Lead) error {
	_, err := d.Bun.NewUpdate().
		Model(&lead).
		Column("full_name", "email", "phone", "source", "status", "interest",
			"counsellor_id", "region_id", "branch_id", "partner", "notes", "updated_at").
		Where("id = ?", lead.ID).
		Exec(ctx)
	return err
}

func (d *DB) DeleteLead(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Lead)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}
