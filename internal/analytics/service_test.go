package analytics_test

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

	"edu-crm/internal/analytics"
	"edu-crm/internal/models"
	"edu-crm/internal/scope"
)

func setupAnalyticsDB(t *testing.T) *bun.DB {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	if err := bunDB.ResetModel(context.Background(), (*models.Lead)(nil)); err != nil {
		t.Fatalf("Failed to create tables: %v", err)
	}
	return bunDB
}

func insertLead(t *testing.T, bunDB *bun.DB, status, counsellorID, regionID, branchID string) {
	lead := models.Lead{
		ID:           uuid.NewString(),
		FullName:     "Funnel Lead",
		Email:        uuid.NewString() + "@example.com",
		Status:       status,
		CounsellorID: counsellorID,
		RegionID:     regionID,
		BranchID:     branchID,
		CreatedAt:    time.Now(),
	}
	if _, err := bunDB.NewInsert().Model(&lead).Exec(context.Background()); err != nil {
		t.Fatalf("Failed to insert lead: %v", err)
	}
}

func TestGetLeadFunnelCountsAndConversionRate(t *testing.T) {
	bunDB := setupAnalyticsDB(t)
	defer bunDB.Close()

	insertLead(t, bunDB, models.LeadStatusNew, "c1", "r1", "b1")
	insertLead(t, bunDB, models.LeadStatusQualified, "c1", "r1", "b1")
	insertLead(t, bunDB, models.LeadStatusConverted, "c1", "r1", "b1")
	insertLead(t, bunDB, models.LeadStatusConverted, "c2", "r1", "b1")

	svc := analytics.NewService(bunDB)
	admin := scope.Scope{UserID: "root", Role: models.RoleSuperAdmin}

	funnel, err := svc.GetLeadFunnel(context.Background(), admin)
	assert.NoError(t, err)
	assert.Equal(t, 4, funnel.TotalLeads)
	assert.Equal(t, 2, funnel.ConvertedLeads)
	assert.InDelta(t, 0.5, funnel.ConversionRate, 0.001)

	byStatus := map[string]int{}
	for _, stage := range funnel.Stages {
		byStatus[stage.Status] = stage.Count
	}
	assert.Equal(t, 1, byStatus[models.LeadStatusNew])
	assert.Equal(t, 1, byStatus[models.LeadStatusQualified])
	assert.Equal(t, 2, byStatus[models.LeadStatusConverted])
}

func TestGetLeadFunnelIsScoped(t *testing.T) {
	bunDB := setupAnalyticsDB(t)
	defer bunDB.Close()

	insertLead(t, bunDB, models.LeadStatusNew, "c1", "r1", "b1")
	insertLead(t, bunDB, models.LeadStatusConverted, "c1", "r1", "b1")
	insertLead(t, bunDB, models.LeadStatusConverted, "c2", "r1", "b1")

	svc := analytics.NewService(bunDB)
	counselor := scope.Scope{UserID: "c1", Role: models.RoleCounselor, RegionID: "r1", BranchID: "b1"}

	funnel, err := svc.GetLeadFunnel(context.Background(), counselor)
	assert.NoError(t, err)
	assert.Equal(t, 2, funnel.TotalLeads)
	assert.Equal(t, 1, funnel.ConvertedLeads)
	assert.InDelta(t, 0.5, funnel.ConversionRate, 0.001)
}

func TestGetLeadFunnelEmptyScope(t *testing.T) {
	bunDB := setupAnalyticsDB(t)
	defer bunDB.Close()

	insertLead(t, bunDB, models.LeadStatusConverted, "c1", "r1", "b1")

	svc := analytics.NewService(bunDB)
	detached := scope.Scope{UserID: "m1", Role: models.RoleBranchManager}

	funnel, err := svc.GetLeadFunnel(context.Background(), detached)
	assert.NoError(t, err)
	assert.Equal(t, 0, funnel.TotalLeads)
	assert.Equal(t, 0, funnel.ConvertedLeads)
	assert.Equal(t, 0.0, funnel.ConversionRate)
	assert.Empty(t, funnel.Stages)
}
