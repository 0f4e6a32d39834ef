package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"edu-crm/internal/application/db"
	"edu-crm/internal/models"
	"edu-crm/internal/scope"
	"edu-crm/internal/sequence"
)

// Applications are coded APP-YYMMDD-NNN.
const (
	codePrefix = "APP"
	codeWidth  = 3
)

// ErrBadTransition rejects status changes the pipeline does not allow.
var ErrBadTransition = errors.New("invalid application status transition")

// transitions is the forward edge set of the application pipeline.
var transitions = map[string][]string{
	models.ApplicationStatusDraft:       {models.ApplicationStatusSubmitted},
	models.ApplicationStatusSubmitted:   {models.ApplicationStatusUnderReview, models.ApplicationStatusRejected},
	models.ApplicationStatusUnderReview: {models.ApplicationStatusOfferIssued, models.ApplicationStatusRejected},
	models.ApplicationStatusOfferIssued: {models.ApplicationStatusAccepted, models.ApplicationStatusRejected},
}

type DBLayer interface {
	CreateApplication(ctx context.Context, app models.Application) error
	GetApplicationByID(ctx context.Context, id string) (*models.Application, error)
	GetApplicationByCode(ctx context.Context, code string) (*models.Application, error)
	ListApplications(ctx context.Context, sc scope.Scope, status string) ([]models.Application, error)
	ListApplicationsByStudent(ctx context.Context, studentID string) ([]models.Application, error)
	UpdateApplication(ctx context.Context, app models.Application) error
	DeleteApplication(ctx context.Context, id string) error
	CreateDecision(ctx context.Context, decision models.AdmissionDecision) error
	GetDecisionsByApplication(ctx context.Context, applicationID string) ([]models.AdmissionDecision, error)
	GetApplicant(ctx context.Context, studentID string) (*models.Student, error)
}

type CodeAllocator interface {
	Next(ctx context.Context, entityPrefix string, width int) (string, error)
}

type Publisher interface {
	PublishApplicationEvent(action string, app models.Application) error
}

// Mailer notifies the applicant on decisions. Delivery is a collaborator
// concern; failures never roll back the decision.
type Mailer interface {
	SendDecisionNotice(ctx context.Context, app models.Application, decision models.AdmissionDecision) error
}

type ApplicationService struct {
	DB        DBLayer
	Allocator CodeAllocator
	Kafka     Publisher
	Mailer    Mailer
}

func NewApplicationService(dbLayer DBLayer, allocator CodeAllocator, kafka Publisher, mailer Mailer) *ApplicationService {
	return &ApplicationService{DB: dbLayer, Allocator: allocator, Kafka: kafka, Mailer: mailer}
}

func (s *ApplicationService) CreateApplication(ctx context.Context, sc scope.Scope, req models.ApplicationRequest) (*models.Application, error) {
	code, err := s.Allocator.Next(ctx, codePrefix, codeWidth)
	if err != nil {
		return nil, err
	}

	app := models.Application{
		ID:                 uuid.NewString(),
		Code:               code,
		StudentID:          req.StudentID,
		UniversityID:       req.UniversityID,
		Program:            req.Program,
		Intake:             req.Intake,
		Status:             models.ApplicationStatusDraft,
		CounsellorID:       req.CounsellorID,
		AdmissionOfficerID: req.AdmissionOfficerID,
		RegionID:           req.RegionID,
		BranchID:           req.BranchID,
		CreatedAt:          time.Now(),
	}
	if app.CounsellorID == "" && sc.Role == models.RoleCounselor {
		app.CounsellorID = sc.UserID
	}
	if app.AdmissionOfficerID == "" && sc.Role == models.RoleAdmissionOfficer {
		app.AdmissionOfficerID = sc.UserID
	}
	if app.BranchID == "" {
		app.BranchID = sc.BranchID
	}
	if app.RegionID == "" {
		app.RegionID = sc.RegionID
	}

	if err := s.DB.CreateApplication(ctx, app); err != nil {
		if sequence.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: code %s taken at insert", sequence.ErrAllocationFailed, code)
		}
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	if s.Kafka != nil {
		_ = s.Kafka.PublishApplicationEvent("created", app)
	}
	return &app, nil
}

func (s *ApplicationService) GetApplication(ctx context.Context, sc scope.Scope, id string) (*models.Application, error) {
	app, err := s.DB.GetApplicationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(sc, db.ScopeFields, applicationRow(*app)) {
		return nil, models.ErrNotFound
	}
	return app, nil
}

func (s *ApplicationService) GetApplicationByCode(ctx context.Context, sc scope.Scope, code string) (*models.Application, error) {
	app, err := s.DB.GetApplicationByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(sc, db.ScopeFields, applicationRow(*app)) {
		return nil, models.ErrNotFound
	}
	return app, nil
}

func (s *ApplicationService) ListApplications(ctx context.Context, sc scope.Scope, status string) ([]models.Application, error) {
	return s.DB.ListApplications(ctx, sc, status)
}

// ListByStudent returns a visible student's applications. The student
// visibility check happens here so a denied student leaks nothing.
func (s *ApplicationService) ListByStudent(ctx context.Context, sc scope.Scope, student models.Student) ([]models.Application, error) {
	return s.DB.ListApplicationsByStudent(ctx, student.ID)
}

func (s *ApplicationService) UpdateApplication(ctx context.Context, sc scope.Scope, id string, req models.ApplicationRequest) (*models.Application, error) {
	app, err := s.GetApplication(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	app.Program = req.Program
	app.Intake = req.Intake
	if req.CounsellorID != "" {
		app.CounsellorID = req.CounsellorID
	}
	if req.AdmissionOfficerID != "" {
		app.AdmissionOfficerID = req.AdmissionOfficerID
	}
	app.UpdatedAt = time.Now()

	if err := s.DB.UpdateApplication(ctx, *app); err != nil {
		return nil, fmt.Errorf("failed to update application %s: %w", id, err)
	}
	if s.Kafka != nil {
		_ = s.Kafka.PublishApplicationEvent("updated", *app)
	}
	return app, nil
}

// Transition moves an application along the pipeline, rejecting edges the
// status machine does not define.
func (s *ApplicationService) Transition(ctx context.Context, sc scope.Scope, id, next string) (*models.Application, error) {
	app, err := s.GetApplication(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, to := range transitions[app.Status] {
		if to == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s -> %s", ErrBadTransition, app.Status, next)
	}

	app.Status = next
	app.UpdatedAt = time.Now()
	if err := s.DB.UpdateApplication(ctx, *app); err != nil {
		return nil, fmt.Errorf("failed to transition application %s: %w", id, err)
	}
	if s.Kafka != nil {
		_ = s.Kafka.PublishApplicationEvent("status_changed", *app)
	}
	return app, nil
}

// RecordDecision stores an admission decision and advances the
// application: an offer moves it to offer_issued, a rejection to rejected.
func (s *ApplicationService) RecordDecision(ctx context.Context, sc scope.Scope, id, decision, conditions string) (*models.AdmissionDecision, error) {
	app, err := s.GetApplication(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	var next string
	switch decision {
	case "offer", "conditional_offer":
		next = models.ApplicationStatusOfferIssued
	case "rejection":
		next = models.ApplicationStatusRejected
	default:
		return nil, fmt.Errorf("unknown decision %q", decision)
	}

	if _, err := s.Transition(ctx, sc, id, next); err != nil {
		return nil, err
	}

	record := models.AdmissionDecision{
		ID:            uuid.NewString(),
		ApplicationID: app.ID,
		Decision:      decision,
		Conditions:    conditions,
		DecidedBy:     sc.UserID,
		DecidedAt:     time.Now(),
	}
	if err := s.DB.CreateDecision(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record decision for %s: %w", app.Code, err)
	}

	if s.Mailer != nil {
		if student, err := s.DB.GetApplicant(ctx, app.StudentID); err == nil {
			app.Student = student
		}
		_ = s.Mailer.SendDecisionNotice(ctx, *app, record)
	}
	return &record, nil
}

func (s *ApplicationService) GetDecisions(ctx context.Context, sc scope.Scope, id string) ([]models.AdmissionDecision, error) {
	if _, err := s.GetApplication(ctx, sc, id); err != nil {
		return nil, err
	}
	return s.DB.GetDecisionsByApplication(ctx, id)
}

func (s *ApplicationService) DeleteApplication(ctx context.Context, sc scope.Scope, id string) error {
	app, err := s.GetApplication(ctx, sc, id)
	if err != nil {
		return err
	}
	if app.Status != models.ApplicationStatusDraft {
		return errors.New("only draft applications can be deleted")
	}
	if err := s.DB.DeleteApplication(ctx, id); err != nil {
		return fmt.Errorf("failed to delete application %s: %w", id, err)
	}
	return nil
}

func applicationRow(app models.Application) scope.Row {
	return scope.Row{
		CounsellorID:       app.CounsellorID,
		AdmissionOfficerID: app.AdmissionOfficerID,
		RegionID:           app.RegionID,
		BranchID:           app.BranchID,
	}
}
