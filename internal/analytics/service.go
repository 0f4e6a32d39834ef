package analytics

import (
	"context"

	"github.com/uptrace/bun"

	"edu-crm/internal/models"
	"edu-crm/internal/scope"
)

// Service assembles the reporting views. All figures are computed over
// the rows the caller's scope can see, so two users may get different
// numbers from the same endpoint.
type Service struct {
	db *DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: NewDB(db)}
}

// FunnelStage is one step of the lead funnel
type FunnelStage struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// LeadFunnel reports lead counts per status plus the conversion rate
type LeadFunnel struct {
	Stages         []FunnelStage `json:"stages"`
	TotalLeads     int           `json:"total_leads"`
	ConvertedLeads int           `json:"converted_leads"`
	ConversionRate float64       `json:"conversion_rate"`
}

// PipelineStage is one status bucket of the application pipeline
type PipelineStage struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// ApplicationPipeline reports application counts per status
type ApplicationPipeline struct {
	Stages            []PipelineStage `json:"stages"`
	TotalApplications int             `json:"total_applications"`
}

// EventAttendance reports registration counts for one event
type EventAttendance struct {
	EventID    string         `json:"event_id"`
	ByStatus   map[string]int `json:"by_status"`
	Registered int            `json:"registered"`
	Attended   int            `json:"attended"`
}

// Summary is the dashboard snapshot
type Summary struct {
	Leads        LeadFunnel          `json:"leads"`
	Students     int                 `json:"students"`
	Applications ApplicationPipeline `json:"applications"`
	Events       []EventAttendance   `json:"events"`
}

// GetLeadFunnel builds the scoped lead funnel
func (s *Service) GetLeadFunnel(ctx context.Context, sc scope.Scope) (*LeadFunnel, error) {
	rows, err := s.db.GetLeadFunnel(ctx, sc)
	if err != nil {
		return nil, err
	}
	conversion, err := s.db.GetLeadConversion(ctx, sc)
	if err != nil {
		return nil, err
	}

	funnel := &LeadFunnel{
		Stages:         []FunnelStage{},
		TotalLeads:     conversion.TotalLeads,
		ConvertedLeads: conversion.ConvertedLeads,
	}
	for _, row := range rows {
		funnel.Stages = append(funnel.Stages, FunnelStage{Status: row.Status, Count: row.Count})
	}
	if funnel.TotalLeads > 0 {
		funnel.ConversionRate = float64(funnel.ConvertedLeads) / float64(funnel.TotalLeads)
	}
	return funnel, nil
}

// GetApplicationPipeline builds the scoped application status breakdown
func (s *Service) GetApplicationPipeline(ctx context.Context, sc scope.Scope) (*ApplicationPipeline, error) {
	rows, err := s.db.GetApplicationPipeline(ctx, sc)
	if err != nil {
		return nil, err
	}

	pipeline := &ApplicationPipeline{Stages: []PipelineStage{}}
	for _, row := range rows {
		pipeline.Stages = append(pipeline.Stages, PipelineStage{Status: row.Status, Count: row.Count})
		pipeline.TotalApplications += row.Count
	}
	return pipeline, nil
}

// GetEventAttendance builds per-event registration breakdowns for the
// events the caller can see
func (s *Service) GetEventAttendance(ctx context.Context, sc scope.Scope) ([]EventAttendance, error) {
	rows, err := s.db.GetEventRegistrations(ctx, sc)
	if err != nil {
		return nil, err
	}

	byEvent := make(map[string]*EventAttendance)
	order := []string{}
	for _, row := range rows {
		att, ok := byEvent[row.EventID]
		if !ok {
			att = &EventAttendance{EventID: row.EventID, ByStatus: map[string]int{}}
			byEvent[row.EventID] = att
			order = append(order, row.EventID)
		}
		att.ByStatus[row.Status] = row.Count
		if row.Status != models.RegistrationStatusCancelled {
			att.Registered += row.Count
		}
		if row.Status == models.RegistrationStatusAttended {
			att.Attended += row.Count
		}
	}

	result := make([]EventAttendance, 0, len(order))
	for _, id := range order {
		result = append(result, *byEvent[id])
	}
	return result, nil
}

// GetSummary assembles the full dashboard snapshot
func (s *Service) GetSummary(ctx context.Context, sc scope.Scope) (*Summary, error) {
	leads, err := s.GetLeadFunnel(ctx, sc)
	if err != nil {
		return nil, err
	}
	students, err := s.db.GetStudentCount(ctx, sc)
	if err != nil {
		return nil, err
	}
	applications, err := s.GetApplicationPipeline(ctx, sc)
	if err != nil {
		return nil, err
	}
	events, err := s.GetEventAttendance(ctx, sc)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Leads:        *leads,
		Students:     students,
		Applications: *applications,
		Events:       events,
	}, nil
}
