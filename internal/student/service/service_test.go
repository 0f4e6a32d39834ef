package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"edu-crm/internal/models"
	"edu-crm/internal/scope"
	"edu-crm/internal/sequence"
	"edu-crm/internal/student/service"
)

type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) CreateStudent(ctx context.Context, student models.Student) error {
	args := m.Called(ctx, student)
	return args.Error(0)
}

func (m *MockDBLayer) GetStudentByID(ctx context.Context, id string) (*models.Student, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Student), args.Error(1)
}

func (m *MockDBLayer) GetStudentByCode(ctx context.Context, code string) (*models.Student, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Student), args.Error(1)
}

func (m *MockDBLayer) ListStudents(ctx context.Context, sc scope.Scope) ([]models.Student, error) {
	args := m.Called(ctx, sc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Student), args.Error(1)
}

func (m *MockDBLayer) UpdateStudent(ctx context.Context, student models.Student) error {
	args := m.Called(ctx, student)
	return args.Error(0)
}

func (m *MockDBLayer) DeleteStudent(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockAllocator struct {
	mock.Mock
}

func (m *MockAllocator) Next(ctx context.Context, entityPrefix string, width int) (string, error) {
	args := m.Called(ctx, entityPrefix, width)
	return args.String(0), args.Error(1)
}

type MockLeadMarker struct {
	mock.Mock
}

func (m *MockLeadMarker) MarkConverted(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func counselorScope() scope.Scope {
	return scope.Scope{UserID: "c1", Role: models.RoleCounselor, RegionID: "r1", BranchID: "b1"}
}

func TestCreateStudentAllocatesCode(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockAlloc := new(MockAllocator)
	svc := service.NewStudentService(mockDB, mockAlloc, nil, nil)

	mockAlloc.On("Next", mock.Anything, "STD", 3).Return("STD-250307-001", nil)
	mockDB.On("CreateStudent", mock.Anything, mock.MatchedBy(func(st models.Student) bool {
		return st.Code == "STD-250307-001" && st.CounsellorID == "c1" && st.BranchID == "b1"
	})).Return(nil)

	student, err := svc.CreateStudent(context.Background(), counselorScope(), models.StudentRequest{
		FullName: "Nadia Perera",
		Email:    "nadia@example.com",
	})

	assert.NoError(t, err)
	assert.Equal(t, "STD-250307-001", student.Code)
	mockAlloc.AssertExpectations(t)
	mockDB.AssertExpectations(t)
}

func TestCreateStudentAllocatorFailureAborts(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockAlloc := new(MockAllocator)
	svc := service.NewStudentService(mockDB, mockAlloc, nil, nil)

	mockAlloc.On("Next", mock.Anything, "STD", 3).Return("", sequence.ErrAllocationFailed)

	_, err := svc.CreateStudent(context.Background(), counselorScope(), models.StudentRequest{
		FullName: "Nadia Perera",
	})

	assert.ErrorIs(t, err, sequence.ErrAllocationFailed)
	mockDB.AssertNotCalled(t, "CreateStudent")
}

func TestCreateStudentInsertRaceSurfacesAllocationFailure(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockAlloc := new(MockAllocator)
	svc := service.NewStudentService(mockDB, mockAlloc, nil, nil)

	mockAlloc.On("Next", mock.Anything, "STD", 3).Return("STD-250307-005", nil)
	// The unique index on the code column caught a race the allocator
	// missed.
	mockDB.On("CreateStudent", mock.Anything, mock.Anything).Return(&pq.Error{Code: "23505"})

	_, err := svc.CreateStudent(context.Background(), counselorScope(), models.StudentRequest{
		FullName: "Nadia Perera",
	})

	assert.ErrorIs(t, err, sequence.ErrAllocationFailed)
}

func TestCreateStudentOtherInsertErrorsPassThrough(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockAlloc := new(MockAllocator)
	svc := service.NewStudentService(mockDB, mockAlloc, nil, nil)

	boom := errors.New("connection reset")
	mockAlloc.On("Next", mock.Anything, "STD", 3).Return("STD-250307-005", nil)
	mockDB.On("CreateStudent", mock.Anything, mock.Anything).Return(boom)

	_, err := svc.CreateStudent(context.Background(), counselorScope(), models.StudentRequest{
		FullName: "Nadia Perera",
	})

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, sequence.ErrAllocationFailed)
}

func TestConvertLead(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockAlloc := new(MockAllocator)
	mockLeads := new(MockLeadMarker)
	svc := service.NewStudentService(mockDB, mockAlloc, mockLeads, nil)

	lead := models.Lead{
		ID:           "lead1",
		FullName:     "Nadia Perera",
		Email:        "nadia@example.com",
		Phone:        "+94 77 123 4567",
		Status:       models.LeadStatusQualified,
		CounsellorID: "c1",
		RegionID:     "r1",
		BranchID:     "b1",
	}

	mockAlloc.On("Next", mock.Anything, "STD", 3).Return("STD-250307-001", nil)
	mockDB.On("CreateStudent", mock.Anything, mock.MatchedBy(func(st models.Student) bool {
		return st.FullName == lead.FullName && st.CounsellorID == "c1"
	})).Return(nil)
	mockDB.On("UpdateStudent", mock.Anything, mock.MatchedBy(func(st models.Student) bool {
		return st.LeadID == "lead1"
	})).Return(nil)
	mockLeads.On("MarkConverted", mock.Anything, "lead1").Return(nil)

	student, err := svc.ConvertLead(context.Background(), counselorScope(), lead)

	assert.NoError(t, err)
	assert.Equal(t, "lead1", student.LeadID)
	assert.Equal(t, "STD-250307-001", student.Code)
	mockLeads.AssertExpectations(t)
}

func TestConvertLeadMarkFailureSurfaces(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockAlloc := new(MockAllocator)
	mockLeads := new(MockLeadMarker)
	svc := service.NewStudentService(mockDB, mockAlloc, mockLeads, nil)

	mockAlloc.On("Next", mock.Anything, "STD", 3).Return("STD-250307-001", nil)
	mockDB.On("CreateStudent", mock.Anything, mock.Anything).Return(nil)
	mockDB.On("UpdateStudent", mock.Anything, mock.Anything).Return(nil)
	mockLeads.On("MarkConverted", mock.Anything, "lead1").Return(errors.New("lead gone"))

	_, err := svc.ConvertLead(context.Background(), counselorScope(), models.Lead{ID: "lead1"})
	assert.Error(t, err)
}

func TestGetStudentScopeDenied(t *testing.T) {
	mockDB := new(MockDBLayer)
	svc := service.NewStudentService(mockDB, nil, nil, nil)

	mockDB.On("GetStudentByID", mock.Anything, "s1").Return(&models.Student{
		ID:           "s1",
		Code:         "STD-250307-001",
		CounsellorID: "c2",
		BranchID:     "b2",
	}, nil)

	_, err := svc.GetStudent(context.Background(), counselorScope(), "s1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetStudentByCode(t *testing.T) {
	mockDB := new(MockDBLayer)
	svc := service.NewStudentService(mockDB, nil, nil, nil)

	mockDB.On("GetStudentByCode", mock.Anything, "STD-250307-001").Return(&models.Student{
		ID:           "s1",
		Code:         "STD-250307-001",
		CounsellorID: "c1",
	}, nil)

	student, err := svc.GetStudentByCode(context.Background(), counselorScope(), "STD-250307-001")
	assert.NoError(t, err)
	assert.Equal(t, "s1", student.ID)
}
