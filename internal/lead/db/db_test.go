package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	leaddb "edu-crm/internal/lead/db"
	"edu-crm/internal/models"
	"edu-crm/internal/scope"
)

func setupLeadDB(t *testing.T) *leaddb.DB {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	if err := bunDB.ResetModel(context.Background(), (*models.Lead)(nil)); err != nil {
		t.Fatalf("Failed to create tables: %v", err)
	}
	return &leaddb.DB{Bun: bunDB}
}

func seedLead(t *testing.T, d *leaddb.DB, lead models.Lead) models.Lead {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.Status == "" {
		lead.Status = models.LeadStatusNew
	}
	if lead.FullName == "" {
		lead.FullName = "Test Lead"
	}
	if lead.Email == "" {
		lead.Email = lead.ID + "@example.com"
	}
	lead.CreatedAt = time.Now()
	if err := d.CreateLead(context.Background(), lead); err != nil {
		t.Fatalf("Failed to seed lead: %v", err)
	}
	return lead
}

func TestGetLeadByIDNotFound(t *testing.T) {
	d := setupLeadDB(t)
	defer d.Bun.Close()

	_, err := d.GetLeadByID(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateAndGetLead(t *testing.T) {
	d := setupLeadDB(t)
	defer d.Bun.Close()

	lead := seedLead(t, d, models.Lead{
		FullName:     "Nimal Perera",
		Email:        "nimal@example.com",
		Status:       models.LeadStatusContacted,
		CounsellorID: "c1",
		RegionID:     "r1",
		BranchID:     "b1",
	})

	got, err := d.GetLeadByID(context.Background(), lead.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Nimal Perera", got.FullName)
	assert.Equal(t, models.LeadStatusContacted, got.Status)
	assert.Equal(t, "c1", got.CounsellorID)
}

func TestListLeadsScoped(t *testing.T) {
	d := setupLeadDB(t)
	defer d.Bun.Close()

	seedLead(t, d, models.Lead{CounsellorID: "c1", RegionID: "r1", BranchID: "b1"})
	seedLead(t, d, models.Lead{CounsellorID: "c2", RegionID: "r1", BranchID: "b1"})
	seedLead(t, d, models.Lead{CounsellorID: "c3", RegionID: "r2", BranchID: "b2"})

	ctx := context.Background()

	mine, err := d.ListLeads(ctx, scope.Scope{UserID: "c1", Role: models.RoleCounselor, RegionID: "r1", BranchID: "b1"})
	assert.NoError(t, err)
	assert.Len(t, mine, 1)
	assert.Equal(t, "c1", mine[0].CounsellorID)

	branch, err := d.ListLeads(ctx, scope.Scope{UserID: "m1", Role: models.RoleBranchManager, RegionID: "r1", BranchID: "b1"})
	assert.NoError(t, err)
	assert.Len(t, branch, 2)

	all, err := d.ListLeads(ctx, scope.Scope{UserID: "root", Role: models.RoleSuperAdmin})
	assert.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListLeadsByStatus(t *testing.T) {
	d := setupLeadDB(t)
	defer d.Bun.Close()

	seedLead(t, d, models.Lead{Status: models.LeadStatusNew, RegionID: "r1", BranchID: "b1"})
	seedLead(t, d, models.Lead{Status: models.LeadStatusQualified, RegionID: "r1", BranchID: "b1"})
	seedLead(t, d, models.Lead{Status: models.LeadStatusQualified, RegionID: "r2", BranchID: "b2"})

	admin := scope.Scope{UserID: "root", Role: models.RoleSuperAdmin}
	qualified, err := d.ListLeadsByStatus(context.Background(), admin, models.LeadStatusQualified)
	assert.NoError(t, err)
	assert.Len(t, qualified, 2)

	regional := scope.Scope{UserID: "m1", Role: models.RoleRegionalManager, RegionID: "r2"}
	qualified, err = d.ListLeadsByStatus(context.Background(), regional, models.LeadStatusQualified)
	assert.NoError(t, err)
	assert.Len(t, qualified, 1)
	assert.Equal(t, "r2", qualified[0].RegionID)
}

func TestUpdateLead(t *testing.T) {
	d := setupLeadDB(t)
	defer d.Bun.Close()

	lead := seedLead(t, d, models.Lead{Status: models.LeadStatusNew, RegionID: "r1", BranchID: "b1"})

	lead.Status = models.LeadStatusContacted
	lead.CounsellorID = "c9"
	lead.UpdatedAt = time.Now()
	err := d.UpdateLead(context.Background(), lead)
	assert.NoError(t, err)

	got, err := d.GetLeadByID(context.Background(), lead.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.LeadStatusContacted, got.Status)
	assert.Equal(t, "c9", got.CounsellorID)
}

func TestDeleteLead(t *testing.T) {
	d := setupLeadDB(t)
	defer d.Bun.Close()

	lead := seedLead(t, d, models.Lead{RegionID: "r1", BranchID: "b1"})

	err := d.DeleteLead(context.Background(), lead.ID)
	assert.NoError(t, err)

	_, err = d.GetLeadByID(context.Background(), lead.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
