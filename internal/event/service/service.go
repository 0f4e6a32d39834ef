package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"edu-crm/internal/event/db"
	"edu-crm/internal/models"
	"edu-crm/internal/scope"
	"edu-crm/internal/sequence"
)

// Registrations are coded EVT-YYMMDD-NNNN; one digit wider than the other
// entities because walk-in events outpace student intake.
const (
	codePrefix = "EVT"
	codeWidth  = 4
)

// ErrEventFull rejects registrations past an event's capacity.
var ErrEventFull = errors.New("event is at capacity")

type DBLayer interface {
	CreateEvent(ctx context.Context, event models.Event) error
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context, sc scope.Scope) ([]models.Event, error)
	UpdateEvent(ctx context.Context, event models.Event) error
	DeleteEvent(ctx context.Context, id string) error
	CreateRegistration(ctx context.Context, reg models.EventRegistration) error
	GetRegistrationByID(ctx context.Context, id string) (*models.EventRegistration, error)
	GetRegistrationByCode(ctx context.Context, code string) (*models.EventRegistration, error)
	GetRegistrationByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.EventRegistration, error)
	ListRegistrationsByEvent(ctx context.Context, eventID string) ([]models.EventRegistration, error)
	CountActiveRegistrations(ctx context.Context, eventID string) (int, error)
	UpdateRegistration(ctx context.Context, reg models.EventRegistration) error
}

type CodeAllocator interface {
	Next(ctx context.Context, entityPrefix string, width int) (string, error)
}

type Publisher interface {
	PublishRegistrationEvent(action string, reg models.EventRegistration) error
}

type Mailer interface {
	SendRegistrationConfirmation(ctx context.Context, event models.Event, reg models.EventRegistration) error
}

type EventService struct {
	DB        DBLayer
	Allocator CodeAllocator
	Passes    *PassGenerator
	Kafka     Publisher
	Mailer    Mailer
}

func NewEventService(dbLayer DBLayer, allocator CodeAllocator, passes *PassGenerator, kafka Publisher, mailer Mailer) *EventService {
	return &EventService{DB: dbLayer, Allocator: allocator, Passes: passes, Kafka: kafka, Mailer: mailer}
}

// ---------------- EVENTS ----------------

func (s *EventService) CreateEvent(ctx context.Context, sc scope.Scope, req models.EventRequest) (*models.Event, error) {
	event := models.Event{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Venue:       req.Venue,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Capacity:    req.Capacity,
		Fee:         req.Fee,
		RegionID:    req.RegionID,
		BranchID:    req.BranchID,
		CreatedAt:   time.Now(),
	}
	if event.BranchID == "" {
		event.BranchID = sc.BranchID
	}
	if event.RegionID == "" {
		event.RegionID = sc.RegionID
	}

	if err := s.DB.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return &event, nil
}

func (s *EventService) GetEvent(ctx context.Context, sc scope.Scope, id string) (*models.Event, error) {
	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(sc, db.ScopeFields, scope.Row{RegionID: event.RegionID, BranchID: event.BranchID}) {
		return nil, models.ErrNotFound
	}
	return event, nil
}

func (s *EventService) ListEvents(ctx context.Context, sc scope.Scope) ([]models.Event, error) {
	return s.DB.ListEvents(ctx, sc)
}

func (s *EventService) UpdateEvent(ctx context.Context, sc scope.Scope, id string, req models.EventRequest) (*models.Event, error) {
	event, err := s.GetEvent(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	event.Name = req.Name
	event.Description = req.Description
	event.Venue = req.Venue
	event.StartsAt = req.StartsAt
	event.EndsAt = req.EndsAt
	event.Capacity = req.Capacity
	event.Fee = req.Fee
	event.UpdatedAt = time.Now()

	if err := s.DB.UpdateEvent(ctx, *event); err != nil {
		return nil, fmt.Errorf("failed to update event %s: %w", id, err)
	}
	return event, nil
}

func (s *EventService) DeleteEvent(ctx context.Context, sc scope.Scope, id string) error {
	if _, err := s.GetEvent(ctx, sc, id); err != nil {
		return err
	}
	if err := s.DB.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event %s: %w", id, err)
	}
	return nil
}

// ---------------- REGISTRATIONS ----------------

// Register books an attendee onto an event. Free events confirm
// immediately and get their QR pass; paid events park in pending_payment
// until the payment webhook fires.
func (s *EventService) Register(ctx context.Context, sc scope.Scope, eventID string, req models.RegistrationRequest) (*models.EventRegistration, error) {
	event, err := s.GetEvent(ctx, sc, eventID)
	if err != nil {
		return nil, err
	}

	if event.Capacity > 0 {
		taken, err := s.DB.CountActiveRegistrations(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("failed to count registrations for %s: %w", eventID, err)
		}
		if taken >= event.Capacity {
			return nil, ErrEventFull
		}
	}

	code, err := s.Allocator.Next(ctx, codePrefix, codeWidth)
	if err != nil {
		return nil, err
	}

	reg := models.EventRegistration{
		ID:            uuid.NewString(),
		Code:          code,
		EventID:       event.ID,
		AttendeeName:  req.AttendeeName,
		AttendeeEmail: req.AttendeeEmail,
		AttendeePhone: req.AttendeePhone,
		LeadID:        req.LeadID,
		Status:        models.RegistrationStatusConfirmed,
		RegionID:      event.RegionID,
		BranchID:      event.BranchID,
		CreatedAt:     time.Now(),
	}
	if event.Fee > 0 {
		reg.Status = models.RegistrationStatusPending
	}

	if reg.Status == models.RegistrationStatusConfirmed && s.Passes != nil {
		qr, err := s.Passes.Generate(reg)
		if err != nil {
			return nil, fmt.Errorf("failed to generate entry pass: %w", err)
		}
		reg.QRCode = qr
	}

	if err := s.DB.CreateRegistration(ctx, reg); err != nil {
		if sequence.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: code %s taken at insert", sequence.ErrAllocationFailed, code)
		}
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}

	if s.Kafka != nil {
		_ = s.Kafka.PublishRegistrationEvent("created", reg)
	}
	if reg.Status == models.RegistrationStatusConfirmed && s.Mailer != nil {
		_ = s.Mailer.SendRegistrationConfirmation(ctx, *event, reg)
	}
	return &reg, nil
}

func (s *EventService) GetRegistration(ctx context.Context, sc scope.Scope, id string) (*models.EventRegistration, error) {
	reg, err := s.DB.GetRegistrationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(sc, db.RegistrationScopeFields, scope.Row{RegionID: reg.RegionID, BranchID: reg.BranchID}) {
		return nil, models.ErrNotFound
	}
	return reg, nil
}

func (s *EventService) ListRegistrations(ctx context.Context, sc scope.Scope, eventID string) ([]models.EventRegistration, error) {
	if _, err := s.GetEvent(ctx, sc, eventID); err != nil {
		return nil, err
	}
	return s.DB.ListRegistrationsByEvent(ctx, eventID)
}

// ConfirmPayment flips a pending registration to confirmed once its
// payment intent succeeds, issuing the QR pass. Called from the Stripe
// webhook path, so there is no caller scope.
func (s *EventService) ConfirmPayment(ctx context.Context, paymentIntentID string) (*models.EventRegistration, error) {
	reg, err := s.DB.GetRegistrationByPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	if reg.Status != models.RegistrationStatusPending {
		return reg, nil
	}

	reg.Status = models.RegistrationStatusConfirmed
	reg.UpdatedAt = time.Now()
	if s.Passes != nil {
		if qr, err := s.Passes.Generate(*reg); err == nil {
			reg.QRCode = qr
		}
	}
	if err := s.DB.UpdateRegistration(ctx, *reg); err != nil {
		return nil, fmt.Errorf("failed to confirm registration %s: %w", reg.Code, err)
	}

	if s.Kafka != nil {
		_ = s.Kafka.PublishRegistrationEvent("confirmed", *reg)
	}
	if s.Mailer != nil {
		if event, err := s.DB.GetEventByID(ctx, reg.EventID); err == nil {
			_ = s.Mailer.SendRegistrationConfirmation(ctx, *event, *reg)
		}
	}
	return reg, nil
}

// CancelRegistration frees the attendee's slot.
func (s *EventService) CancelRegistration(ctx context.Context, sc scope.Scope, id string) (*models.EventRegistration, error) {
	reg, err := s.GetRegistration(ctx, sc, id)
	if err != nil {
		return nil, err
	}
	if reg.Status == models.RegistrationStatusCancelled {
		return reg, nil
	}

	reg.Status = models.RegistrationStatusCancelled
	reg.UpdatedAt = time.Now()
	if err := s.DB.UpdateRegistration(ctx, *reg); err != nil {
		return nil, fmt.Errorf("failed to cancel registration %s: %w", reg.Code, err)
	}
	if s.Kafka != nil {
		_ = s.Kafka.PublishRegistrationEvent("cancelled", *reg)
	}
	return reg, nil
}

// CheckIn marks attendance by registration code at the venue door.
func (s *EventService) CheckIn(ctx context.Context, sc scope.Scope, code string) (*models.EventRegistration, error) {
	reg, err := s.DB.GetRegistrationByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(sc, db.RegistrationScopeFields, scope.Row{RegionID: reg.RegionID, BranchID: reg.BranchID}) {
		return nil, models.ErrNotFound
	}
	if reg.Status != models.RegistrationStatusConfirmed {
		return nil, fmt.Errorf("registration %s is %s, cannot check in", reg.Code, reg.Status)
	}

	reg.Status = models.RegistrationStatusAttended
	reg.UpdatedAt = time.Now()
	if err := s.DB.UpdateRegistration(ctx, *reg); err != nil {
		return nil, fmt.Errorf("failed to check in %s: %w", reg.Code, err)
	}
	return reg, nil
}

// CheckInByPass opens a scanned entry pass and checks in the registration
// it names. The pass encodes the event it was issued for, so a pass scanned
// at the wrong event is rejected.
func (s *EventService) CheckInByPass(ctx context.Context, sc scope.Scope, eventID, pass string) (*models.EventRegistration, error) {
	if s.Passes == nil {
		return nil, fmt.Errorf("entry passes are not configured")
	}
	code, passEventID, err := s.Passes.Open(pass)
	if err != nil {
		return nil, models.ErrNotFound
	}
	if passEventID != eventID {
		return nil, models.ErrNotFound
	}
	return s.CheckIn(ctx, sc, code)
}
