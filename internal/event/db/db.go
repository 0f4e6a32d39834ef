package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"edu-crm/internal/models"
	"edu-crm/internal/scope"
)

// ScopeFields names the visibility columns the events table carries.
// Events have no per-user attribution; only organizational scoping applies.
var ScopeFields = scope.Fields{
	Region: "region_id",
	Branch: "branch_id",
}

// RegistrationScopeFields covers the event_registrations table, which
// inherits its event's region and branch at registration time.
var RegistrationScopeFields = scope.Fields{
	Region: "region_id",
	Branch: "branch_id",
}

type DB struct {
	Bun *bun.DB
}

// ---------------- EVENTS ----------------

func (d *DB) CreateEvent(ctx context.Context, event models.Event) error {
	_, err := d.Bun.NewInsert().Model(&event).Exec(ctx)
	return err
}

func (d *DB) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ListEvents returns the events visible to the caller, newest first.
func (d *DB) ListEvents(ctx context.Context, sc scope.Scope) ([]models.Event, error) {
	var events []models.Event
	q := d.Bun.NewSelect().Model(&events)
	q = scope.Apply(q, sc, ScopeFields)
	err := q.Order("created_at DESC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

func (d *DB) UpdateEvent(ctx context.Context, event models.Event) error {
	_, err := d.Bun.NewUpdate().
		Model(&event).
		Column("name", "description", "venue", "starts_at", "ends_at",
			"capacity", "fee", "region_id", "branch_id", "updated_at").
		Where("id = ?", event.ID).
		Exec(ctx)
	return err
}

func (d *DB) DeleteEvent(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Event)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// ---------------- REGISTRATIONS ----------------

func (d *DB) CreateRegistration(ctx context.Context, reg models.EventRegistration) error {
	_, err := d.Bun.NewInsert().Model(&reg).Exec(ctx)
	return err
}

func (d *DB) GetRegistrationByID(ctx context.Context, id string) (*models.EventRegistration, error) {
	var reg models.EventRegistration
	err := d.Bun.NewSelect().
		Model(&reg).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (d *DB) GetRegistrationByCode(ctx context.Context, code string) (*models.EventRegistration, error) {
	var reg models.EventRegistration
	err := d.Bun.NewSelect().
		Model(&reg).
		Where("code = ?", code).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (d *DB) GetRegistrationByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.EventRegistration, error) {
	var reg models.EventRegistration
	err := d.Bun.NewSelect().
		Model(&reg).
		Where("payment_intent_id = ?", paymentIntentID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// ListRegistrationsByEvent returns an event's registrations, newest first.
func (d *DB) ListRegistrationsByEvent(ctx context.Context, eventID string) ([]models.EventRegistration, error) {
	var regs []models.EventRegistration
	err := d.Bun.NewSelect().
		Model(&regs).
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if regs == nil {
		regs = []models.EventRegistration{}
	}
	return regs, nil
}

// CountActiveRegistrations counts registrations occupying capacity.
func (d *DB) CountActiveRegistrations(ctx context.Context, eventID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.EventRegistration)(nil)).
		Where("event_id = ?", eventID).
		Where("status != ?", models.RegistrationStatusCancelled).
		Count(ctx)
}

func (d *DB) UpdateRegistration(ctx context.Context, reg models.EventRegistration) error {
	_, err := d.Bun.NewUpdate().
		Model(&reg).
		Column("attendee_name", "attendee_email", "attendee_phone", "status",
			"payment_intent_id", "qr_code", "updated_at").
		Where("id = ?", reg.ID).
		Exec(ctx)
	return err
}
