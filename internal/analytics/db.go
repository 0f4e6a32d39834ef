package analytics

import (
	"context"

	"github.com/uptrace/bun"

	applicationdb "edu-crm/internal/application/db"
	eventdb "edu-crm/internal/event/db"
	leaddb "edu-crm/internal/lead/db"
	"edu-crm/internal/models"
	"edu-crm/internal/scope"
	studentdb "edu-crm/internal/student/db"
)

// DB runs the aggregate queries behind the analytics endpoints. Every
// query is narrowed by the caller's scope before grouping.
type DB struct {
	bun *bun.DB
}

func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

// StatusCountData is one row of a status breakdown
type StatusCountData struct {
	Status string `bun:"status"`
	Count  int    `bun:"count"`
}

// GetLeadFunnel counts visible leads per status
func (db *DB) GetLeadFunnel(ctx context.Context, sc scope.Scope) ([]StatusCountData, error) {
	var rows []StatusCountData
	q := db.bun.NewSelect().
		Model((*models.Lead)(nil)).
		ColumnExpr("status").
		ColumnExpr("COUNT(*) AS count").
		GroupExpr("status").
		OrderExpr("status")
	err := scope.Apply(q, sc, leaddb.ScopeFields).Scan(ctx, &rows)
	return rows, err
}

// GetApplicationPipeline counts visible applications per status
func (db *DB) GetApplicationPipeline(ctx context.Context, sc scope.Scope) ([]StatusCountData, error) {
	var rows []StatusCountData
	q := db.bun.NewSelect().
		Model((*models.Application)(nil)).
		ColumnExpr("status").
		ColumnExpr("COUNT(*) AS count").
		GroupExpr("status").
		OrderExpr("status")
	err := scope.Apply(q, sc, applicationdb.ScopeFields).Scan(ctx, &rows)
	return rows, err
}

// GetStudentCount counts visible students
func (db *DB) GetStudentCount(ctx context.Context, sc scope.Scope) (int, error) {
	q := db.bun.NewSelect().Model((*models.Student)(nil))
	return scope.Apply(q, sc, studentdb.ScopeFields).Count(ctx)
}

// EventRegistrationData is the registration breakdown for one event
type EventRegistrationData struct {
	EventID string `bun:"event_id"`
	Status  string `bun:"status"`
	Count   int    `bun:"count"`
}

// GetEventRegistrations counts registrations per visible event and
// status
func (db *DB) GetEventRegistrations(ctx context.Context, sc scope.Scope) ([]EventRegistrationData, error) {
	var rows []EventRegistrationData
	q := db.bun.NewSelect().
		Model((*models.EventRegistration)(nil)).
		ColumnExpr("event_id").
		ColumnExpr("status").
		ColumnExpr("COUNT(*) AS count").
		GroupExpr("event_id, status").
		OrderExpr("event_id, status")
	err := scope.Apply(q, sc, eventdb.RegistrationScopeFields).Scan(ctx, &rows)
	return rows, err
}

// ConversionData captures the lead to student conversion counts
type ConversionData struct {
	TotalLeads     int `bun:"total_leads"`
	ConvertedLeads int `bun:"converted_leads"`
}

// GetLeadConversion counts visible leads and how many converted
func (db *DB) GetLeadConversion(ctx context.Context, sc scope.Scope) (ConversionData, error) {
	var data ConversionData
	q := db.bun.NewSelect().
		Model((*models.Lead)(nil)).
		ColumnExpr("COUNT(*) AS total_leads").
		ColumnExpr("COUNT(*) FILTER (WHERE status = ?) AS converted_leads", models.LeadStatusConverted)
	err := scope.Apply(q, sc, leaddb.ScopeFields).Scan(ctx, &data)
	return data, err
}
