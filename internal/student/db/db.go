package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"edu-crm/internal/models"
	"edu-crm/internal/scope"
)

// ScopeFields names the visibility columns the students table carries.
var ScopeFields = scope.Fields{
	Counsellor: "counsellor_id",
	Partner:    "partner",
	Region:     "region_id",
	Branch:     "branch_id",
}

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateStudent(ctx context.Context, student models.Student) error {
	_, err := d.Bun.NewInsert().Model(&student).Exec(ctx)
	return err
}

func (d *DB) GetStudentByID(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	err := d.Bun.NewSelect().
		Model(&student).
		Where("id = ?", id).
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

func (d *DB) GetStudentByCode(ctx context.Context, code string) (*models.Student, error) {
	var student models.Student
	err := d.Bun.NewSelect().
		Model(&student).
		Where("code = ?", code).
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

// ListStudents returns the students visible to the caller, newest first.
func (d *DB) ListStudents(ctx context.Context, sc scope.Scope) ([]models.Student, error) {
	var students []models.Student
	q := d.Bun.NewSelect().Model(&students)
	q = scope.Apply(q, sc, ScopeFields)
	err := q.Order("created_at DESC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, nil
}

func (d *DB) UpdateStudent(ctx context.Context, student models.Student) error {
	_, err := d.Bun.NewUpdate().
		Model(&student).
		Column("full_name", "email", "phone", "passport", "lead_id",
			"counsellor_id", "region_id", "branch_id", "partner", "updated_at").
		Where("id = ?", student.ID).
		Exec(ctx)
	return err
}

func (d *DB) DeleteStudent(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Student)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}
