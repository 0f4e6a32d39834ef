package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"edu-crm/internal/lead/db"
	"edu-crm/internal/models"
	"edu-crm/internal/scope"
)

type DBLayer interface {
	CreateLead(ctx context.Context, lead models.Lead) error
	GetLeadByID(ctx context.Context, id string) (*models.Lead, error)
	ListLeads(ctx context.Context, sc scope.Scope) ([]models.Lead, error)
	ListLeadsByStatus(ctx context.Context, sc scope.Scope, status string) ([]models.Lead, error)
	UpdateLead(ctx context.Context, lead models.Lead) error
	DeleteLead(ctx context.Context, id string) error
}

type Publisher interface {
	PublishLeadEvent(action string, lead models.Lead) error
}

type LeadService struct {
	DB    DBLayer
	Kafka Publisher
}

func NewLeadService(dbLayer DBLayer, kafka Publisher) *LeadService {
	return &LeadService{DB: dbLayer, Kafka: kafka}
}

// CreateLead registers a new lead. A lead created by an attached caller
// inherits the caller's branch/region when the request leaves them blank,
// so the creator can always see what they just created.
func (s *LeadService) CreateLead(ctx context.Context, sc scope.Scope, req models.LeadRequest) (*models.Lead, error) {
	lead := models.Lead{
		ID:           uuid.NewString(),
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		Source:       req.Source,
		Status:       models.LeadStatusNew,
		Interest:     req.Interest,
		CounsellorID: req.CounsellorID,
		RegionID:     req.RegionID,
		BranchID:     req.BranchID,
		Partner:      req.Partner,
		Notes:        req.Notes,
		CreatedAt:    time.Now(),
	}
	if lead.CounsellorID == "" && sc.Role == models.RoleCounselor {
		lead.CounsellorID = sc.UserID
	}
	if lead.Partner == "" && sc.Role == models.RolePartner {
		lead.Partner = sc.UserID
	}
	if lead.BranchID == "" {
		lead.BranchID = sc.BranchID
	}
	if lead.RegionID == "" {
		lead.RegionID = sc.RegionID
	}

	if err := s.DB.CreateLead(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}

	if s.Kafka != nil {
		// Event delivery is best effort; the lead is already committed.
		_ = s.Kafka.PublishLeadEvent("created", lead)
	}
	return &lead, nil
}

func (s *LeadService) GetLead(ctx context.Context, sc scope.Scope, id string) (*models.Lead, error) {
	lead, err := s.DB.GetLeadByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(sc, db.ScopeFields, leadRow(*lead)) {
		return nil, models.ErrNotFound
	}
	return lead, nil
}

func (s *LeadService) ListLeads(ctx context.Context, sc scope.Scope, status string) ([]models.Lead, error) {
	if status != "" {
		return s.DB.ListLeadsByStatus(ctx, sc, status)
	}
	return s.DB.ListLeads(ctx, sc)
}

func (s *LeadService) UpdateLead(ctx context.Context, sc scope.Scope, id string, req models.LeadRequest) (*models.Lead, error) {
	lead, err := s.GetLead(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	lead.FullName = req.FullName
	lead.Email = req.Email
	lead.Phone = req.Phone
	lead.Source = req.Source
	lead.Interest = req.Interest
	lead.Notes = req.Notes
	if req.CounsellorID != "" {
		lead.CounsellorID = req.CounsellorID
	}
	if req.RegionID != "" {
		lead.RegionID = req.RegionID
	}
	if req.BranchID != "" {
		lead.BranchID = req.BranchID
	}
	lead.UpdatedAt = time.Now()

	if err := s.DB.UpdateLead(ctx, *lead); err != nil {
		return nil, fmt.Errorf("failed to update lead %s: %w", id, err)
	}

	if s.Kafka != nil {
		_ = s.Kafka.PublishLeadEvent("updated", *lead)
	}
	return lead, nil
}

// UpdateStatus moves a lead along the pipeline.
func (s *LeadService) UpdateStatus(ctx context.Context, sc scope.Scope, id, status string) (*models.Lead, error) {
	switch status {
	case models.LeadStatusNew, models.LeadStatusContacted, models.LeadStatusQualified,
		models.LeadStatusConverted, models.LeadStatusLost:
	default:
		return nil, fmt.Errorf("unknown lead status %q", status)
	}

	lead, err := s.GetLead(ctx, sc, id)
	if err != nil {
		return nil, err
	}
	lead.Status = status
	lead.UpdatedAt = time.Now()

	if err := s.DB.UpdateLead(ctx, *lead); err != nil {
		return nil, fmt.Errorf("failed to update lead %s: %w", id, err)
	}
	if s.Kafka != nil {
		_ = s.Kafka.PublishLeadEvent("status_changed", *lead)
	}
	return lead, nil
}

// AssignCounsellor hands a lead to a counselor.
func (s *LeadService) AssignCounsellor(ctx context.Context, sc scope.Scope, id, counsellorID string) (*models.Lead, error) {
	lead, err := s.GetLead(ctx, sc, id)
	if err != nil {
		return nil, err
	}
	lead.CounsellorID = counsellorID
	lead.UpdatedAt = time.Now()

	if err := s.DB.UpdateLead(ctx, *lead); err != nil {
		return nil, fmt.Errorf("failed to assign lead %s: %w", id, err)
	}
	if s.Kafka != nil {
		_ = s.Kafka.PublishLeadEvent("assigned", *lead)
	}
	return lead, nil
}

func (s *LeadService) DeleteLead(ctx context.Context, sc scope.Scope, id string) error {
	if _, err := s.GetLead(ctx, sc, id); err != nil {
		return err
	}
	if err := s.DB.DeleteLead(ctx, id); err != nil {
		return fmt.Errorf("failed to delete lead %s: %w", id, err)
	}
	return nil
}

// MarkConverted flips a lead to converted after a student record is
// created from it. Called by the student service.
func (s *LeadService) MarkConverted(ctx context.Context, id string) error {
	lead, err := s.DB.GetLeadByID(ctx, id)
	if err != nil {
		return err
	}
	lead.Status = models.LeadStatusConverted
	lead.UpdatedAt = time.Now()
	return s.DB.UpdateLead(ctx, *lead)
}

func leadRow(l models.Lead) scope.Row {
	return scope.Row{
		CounsellorID: l.CounsellorID,
		Partner:      l.Partner,
		RegionID:     l.RegionID,
		BranchID:     l.BranchID,
	}
}
