package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"edu-crm/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- USERS ----------------

func (d *DB) CreateUser(ctx context.Context, user models.User) error {
	_, err := d.Bun.NewInsert().Model(&user).Exec(ctx)
	return err
}

func (d *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := d.Bun.NewSelect().
		Model(&users).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

func (d *DB) UpdateUser(ctx context.Context, user models.User) error {
	_, err := d.Bun.NewUpdate().
		Model(&user).
		Column("email", "full_name", "role", "region_id", "branch_id", "active", "updated_at").
		Where("id = ?", user.ID).
		Exec(ctx)
	return err
}

// ---------------- REGIONS / BRANCHES ----------------

func (d *DB) CreateRegion(ctx context.Context, region models.Region) error {
	_, err := d.Bun.NewInsert().Model(&region).Exec(ctx)
	return err
}

func (d *DB) ListRegions(ctx context.Context) ([]models.Region, error) {
	var regions []models.Region
	err := d.Bun.NewSelect().Model(&regions).Order("name ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	if regions == nil {
		regions = []models.Region{}
	}
	return regions, nil
}

func (d *DB) CreateBranch(ctx context.Context, branch models.Branch) error {
	_, err := d.Bun.NewInsert().Model(&branch).Exec(ctx)
	return err
}

func (d *DB) ListBranches(ctx context.Context, regionID string) ([]models.Branch, error) {
	var branches []models.Branch
	q := d.Bun.NewSelect().Model(&branches)
	if regionID != "" {
		q = q.Where("region_id = ?", regionID)
	}
	err := q.Order("name ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	if branches == nil {
		branches = []models.Branch{}
	}
	return branches, nil
}

// ---------------- UNIVERSITIES ----------------

func (d *DB) CreateUniversity(ctx context.Context, uni models.University) error {
	_, err := d.Bun.NewInsert().Model(&uni).Exec(ctx)
	return err
}

func (d *DB) GetUniversityByID(ctx context.Context, id string) (*models.University, error) {
	var uni models.University
	err := d.Bun.NewSelect().
		Model(&uni).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &uni, nil
}

func (d *DB) ListUniversities(ctx context.Context, country string) ([]models.University, error) {
	var unis []models.University
	q := d.Bun.NewSelect().Model(&unis)
	if country != "" {
		q = q.Where("country = ?", country)
	}
	err := q.Order("name ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	if unis == nil {
		unis = []models.University{}
	}
	return unis, nil
}
