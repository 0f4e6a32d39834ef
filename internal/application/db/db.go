package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"edu-crm/internal/models"
	"edu-crm/internal/scope"
)

// ScopeFields names the visibility columns the applications table carries.
// Applications are the one entity scoped by admission officer as well as
// counsellor.
var ScopeFields = scope.Fields{
	Counsellor:       "counsellor_id",
	AdmissionOfficer: "admission_officer_id",
	Region:           "region_id",
	Branch:           "branch_id",
}

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateApplication(ctx context.Context, app models.Application) error {
	_, err := d.Bun.NewInsert().Model(&app).Exec(ctx)
	return err
}

func (d *DB) GetApplicationByID(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	err := d.Bun.NewSelect().
		Model(&app).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (d *DB) GetApplicationByCode(ctx context.Context, code string) (*models.Application, error) {
	var app models.Application
	err := d.Bun.NewSelect().
		Model(&app).
		Where("code = ?", code).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// ListApplications returns the applications visible to the caller, newest
// first, optionally narrowed to one status.
func (d *DB) ListApplications(ctx context.Context, sc scope.Scope, status string) ([]models.Application, error) {
	var apps []models.Application
	q := d.Bun.NewSelect().Model(&apps)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	q = scope.Apply(q, sc, ScopeFields)
	err := q.Order("created_at DESC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	if apps == nil {
		apps = []models.Application{}
	}
	return apps, nil
}

// ListApplicationsByStudent returns a student's applications, newest first.
// Visibility of the student is checked by the caller.
func (d *DB) ListApplicationsByStudent(ctx context.Context, studentID string) ([]models.Application, error) {
	var apps []models.Application
	err := d.Bun.NewSelect().
		Model(&apps).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if apps == nil {
		apps = []models.Application{}
	}
	return apps, nil
}

func (d *DB) UpdateApplication(ctx context.Context, app models.Application) error {
	_, err := d.Bun.NewUpdate().
		Model(&app).
		Column("program", "intake", "status", "counsellor_id",
			"admission_officer_id", "region_id", "branch_id", "updated_at").
		Where("id = ?", app.ID).
		Exec(ctx)
	return err
}

func (d *DB) DeleteApplication(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Application)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// ---------------- ADMISSION DECISIONS ----------------

func (d *DB) CreateDecision(ctx context.Context, decision models.AdmissionDecision) error {
	_, err := d.Bun.NewInsert().Model(&decision).Exec(ctx)
	return err
}

func (d *DB) GetDecisionsByApplication(ctx context.Context, applicationID string) ([]models.AdmissionDecision, error) {
	var decisions []models.AdmissionDecision
	err := d.Bun.NewSelect().
		Model(&decisions).
		Where("application_id = ?", applicationID).
		Order("decided_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if decisions == nil {
		decisions = []models.AdmissionDecision{}
	}
	return decisions, nil
}

// GetApplicant resolves the student a decision notice goes to.
func (d *DB) GetApplicant(ctx context.Context, studentID string) (*models.Student, error) {
	var student models.Student
	err := d.Bun.NewSelect().
		Model(&student).
		Where("id = ?", studentID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &student, nil
}
