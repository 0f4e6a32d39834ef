package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"edu-crm/internal/models"
	"edu-crm/internal/scope"
	"edu-crm/internal/sequence"
	"edu-crm/internal/student/db"
)

// Students are coded STD-YYMMDD-NNN.
const (
	codePrefix = "STD"
	codeWidth  = 3
)

type DBLayer interface {
	CreateStudent(ctx context.Context, student models.Student) error
	GetStudentByID(ctx context.Context, id string) (*models.Student, error)
	GetStudentByCode(ctx context.Context, code string) (*models.Student, error)
	ListStudents(ctx context.Context, sc scope.Scope) ([]models.Student, error)
	UpdateStudent(ctx context.Context, student models.Student) error
	DeleteStudent(ctx context.Context, id string) error
}

type CodeAllocator interface {
	Next(ctx context.Context, entityPrefix string, width int) (string, error)
}

// LeadMarker lets a conversion flip the source lead without importing the
// lead service.
type LeadMarker interface {
	MarkConverted(ctx context.Context, id string) error
}

type Publisher interface {
	PublishStudentEvent(action string, student models.Student) error
}

type StudentService struct {
	DB        DBLayer
	Allocator CodeAllocator
	Leads     LeadMarker
	Kafka     Publisher
}

func NewStudentService(dbLayer DBLayer, allocator CodeAllocator, leads LeadMarker, kafka Publisher) *StudentService {
	return &StudentService{DB: dbLayer, Allocator: allocator, Leads: leads, Kafka: kafka}
}

// CreateStudent allocates a code and inserts the record. An insert-time
// uniqueness violation on the code means the allocator lost a late race;
// the request fails and is safe to retry whole.
func (s *StudentService) CreateStudent(ctx context.Context, sc scope.Scope, req models.StudentRequest) (*models.Student, error) {
	code, err := s.Allocator.Next(ctx, codePrefix, codeWidth)
	if err != nil {
		return nil, err
	}

	student := models.Student{
		ID:           uuid.NewString(),
		Code:         code,
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		Passport:     req.Passport,
		CounsellorID: req.CounsellorID,
		RegionID:     req.RegionID,
		BranchID:     req.BranchID,
		Partner:      req.Partner,
		CreatedAt:    time.Now(),
	}
	if student.CounsellorID == "" && sc.Role == models.RoleCounselor {
		student.CounsellorID = sc.UserID
	}
	if student.BranchID == "" {
		student.BranchID = sc.BranchID
	}
	if student.RegionID == "" {
		student.RegionID = sc.RegionID
	}

	if err := s.DB.CreateStudent(ctx, student); err != nil {
		if sequence.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: code %s taken at insert", sequence.ErrAllocationFailed, code)
		}
		return nil, fmt.Errorf("failed to create student: %w", err)
	}

	if s.Kafka != nil {
		_ = s.Kafka.PublishStudentEvent("created", student)
	}
	return &student, nil
}

// ConvertLead creates a student from a qualified lead and marks the lead
// converted.
func (s *StudentService) ConvertLead(ctx context.Context, sc scope.Scope, lead models.Lead) (*models.Student, error) {
	student, err := s.CreateStudent(ctx, sc, models.StudentRequest{
		FullName:     lead.FullName,
		Email:        lead.Email,
		Phone:        lead.Phone,
		CounsellorID: lead.CounsellorID,
		RegionID:     lead.RegionID,
		BranchID:     lead.BranchID,
		Partner:      lead.Partner,
	})
	if err != nil {
		return nil, err
	}
	student.LeadID = lead.ID
	student.UpdatedAt = time.Now()
	if err := s.DB.UpdateStudent(ctx, *student); err != nil {
		return nil, fmt.Errorf("failed to link student to lead %s: %w", lead.ID, err)
	}

	if s.Leads != nil {
		if err := s.Leads.MarkConverted(ctx, lead.ID); err != nil {
			return nil, fmt.Errorf("student %s created but lead %s not marked converted: %w", student.Code, lead.ID, err)
		}
	}
	return student, nil
}

func (s *StudentService) GetStudent(ctx context.Context, sc scope.Scope, id string) (*models.Student, error) {
	student, err := s.DB.GetStudentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(sc, db.ScopeFields, studentRow(*student)) {
		return nil, models.ErrNotFound
	}
	return student, nil
}

func (s *StudentService) GetStudentByCode(ctx context.Context, sc scope.Scope, code string) (*models.Student, error) {
	student, err := s.DB.GetStudentByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(sc, db.ScopeFields, studentRow(*student)) {
		return nil, models.ErrNotFound
	}
	return student, nil
}

func (s *StudentService) ListStudents(ctx context.Context, sc scope.Scope) ([]models.Student, error) {
	return s.DB.ListStudents(ctx, sc)
}

func (s *StudentService) UpdateStudent(ctx context.Context, sc scope.Scope, id string, req models.StudentRequest) (*models.Student, error) {
	student, err := s.GetStudent(ctx, sc, id)
	if err != nil {
		return nil, err
	}

	student.FullName = req.FullName
	student.Email = req.Email
	student.Phone = req.Phone
	student.Passport = req.Passport
	if req.CounsellorID != "" {
		student.CounsellorID = req.CounsellorID
	}
	if req.RegionID != "" {
		student.RegionID = req.RegionID
	}
	if req.BranchID != "" {
		student.BranchID = req.BranchID
	}
	student.UpdatedAt = time.Now()

	if err := s.DB.UpdateStudent(ctx, *student); err != nil {
		return nil, fmt.Errorf("failed to update student %s: %w", id, err)
	}
	if s.Kafka != nil {
		_ = s.Kafka.PublishStudentEvent("updated", *student)
	}
	return student, nil
}

func (s *StudentService) DeleteStudent(ctx context.Context, sc scope.Scope, id string) error {
	if _, err := s.GetStudent(ctx, sc, id); err != nil {
		return err
	}
	if err := s.DB.DeleteStudent(ctx, id); err != nil {
		return fmt.Errorf("failed to delete student %s: %w", id, err)
	}
	return nil
}

func studentRow(st models.Student) scope.Row {
	return scope.Row{
		CounsellorID: st.CounsellorID,
		Partner:      st.Partner,
		RegionID:     st.RegionID,
		BranchID:     st.BranchID,
	}
}
