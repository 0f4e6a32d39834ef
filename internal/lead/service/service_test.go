package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"edu-crm/internal/lead/service"
	"edu-crm/internal/models"
	"edu-crm/internal/scope"
)

type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) CreateLead(ctx context.Context, lead models.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockDBLayer) GetLeadByID(ctx context.Context, id string) (*models.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *MockDBLayer) ListLeads(ctx context.Context, sc scope.Scope) ([]models.Lead, error) {
	args := m.Called(ctx, sc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Lead), args.Error(1)
}

func (m *MockDBLayer) ListLeadsByStatus(ctx context.Context, sc scope.Scope, status string) ([]models.Lead, error) {
	args := m.Called(ctx, sc, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Lead), args.Error(1)
}

func (m *MockDBLayer) UpdateLead(ctx context.Context, lead models.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockDBLayer) DeleteLead(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishLeadEvent(action string, lead models.Lead) error {
	args := m.Called(action, lead)
	return args.Error(0)
}

func counselorScope() scope.Scope {
	return scope.Scope{UserID: "c1", Role: models.RoleCounselor, RegionID: "r1", BranchID: "b1"}
}

func TestCreateLeadInheritsCallerAttachment(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockPublisher)
	svc := service.NewLeadService(mockDB, mockKafka)

	mockDB.On("CreateLead", mock.Anything, mock.MatchedBy(func(lead models.Lead) bool {
		return lead.CounsellorID == "c1" && lead.BranchID == "b1" && lead.RegionID == "r1" &&
			lead.Status == models.LeadStatusNew
	})).Return(nil)
	mockKafka.On("PublishLeadEvent", "created", mock.Anything).Return(nil)

	lead, err := svc.CreateLead(context.Background(), counselorScope(), models.LeadRequest{
		FullName: "Nadia Perera",
		Email:    "nadia@example.com",
	})

	assert.NoError(t, err)
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, "c1", lead.CounsellorID)
	mockDB.AssertExpectations(t)
	mockKafka.AssertExpectations(t)
}

func TestCreateLeadKeepsExplicitAssignment(t *testing.T) {
	mockDB := new(MockDBLayer)
	svc := service.NewLeadService(mockDB, nil)

	mockDB.On("CreateLead", mock.Anything, mock.MatchedBy(func(lead models.Lead) bool {
		return lead.CounsellorID == "c9" && lead.BranchID == "b2"
	})).Return(nil)

	lead, err := svc.CreateLead(context.Background(), counselorScope(), models.LeadRequest{
		FullName:     "Nadia Perera",
		Email:        "nadia@example.com",
		CounsellorID: "c9",
		BranchID:     "b2",
	})

	assert.NoError(t, err)
	assert.Equal(t, "c9", lead.CounsellorID)
	mockDB.AssertExpectations(t)
}

func TestGetLeadHidesOutOfScopeRows(t *testing.T) {
	mockDB := new(MockDBLayer)
	svc := service.NewLeadService(mockDB, nil)

	// The row exists but belongs to another counselor.
	mockDB.On("GetLeadByID", mock.Anything, "lead1").Return(&models.Lead{
		ID:           "lead1",
		CounsellorID: "c2",
		BranchID:     "b1",
		RegionID:     "r1",
	}, nil)

	_, err := svc.GetLead(context.Background(), counselorScope(), "lead1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetLeadVisibleRow(t *testing.T) {
	mockDB := new(MockDBLayer)
	svc := service.NewLeadService(mockDB, nil)

	mockDB.On("GetLeadByID", mock.Anything, "lead1").Return(&models.Lead{
		ID:           "lead1",
		CounsellorID: "c1",
	}, nil)

	lead, err := svc.GetLead(context.Background(), counselorScope(), "lead1")
	assert.NoError(t, err)
	assert.Equal(t, "lead1", lead.ID)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	mockDB := new(MockDBLayer)
	svc := service.NewLeadService(mockDB, nil)

	_, err := svc.UpdateStatus(context.Background(), counselorScope(), "lead1", "archived")
	assert.Error(t, err)
	mockDB.AssertNotCalled(t, "GetLeadByID")
}

func TestUpdateStatusMovesLead(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockPublisher)
	svc := service.NewLeadService(mockDB, mockKafka)

	mockDB.On("GetLeadByID", mock.Anything, "lead1").Return(&models.Lead{
		ID:           "lead1",
		CounsellorID: "c1",
		Status:       models.LeadStatusNew,
	}, nil)
	mockDB.On("UpdateLead", mock.Anything, mock.MatchedBy(func(lead models.Lead) bool {
		return lead.Status == models.LeadStatusContacted
	})).Return(nil)
	mockKafka.On("PublishLeadEvent", "status_changed", mock.Anything).Return(nil)

	lead, err := svc.UpdateStatus(context.Background(), counselorScope(), "lead1", models.LeadStatusContacted)
	assert.NoError(t, err)
	assert.Equal(t, models.LeadStatusContacted, lead.Status)
	mockDB.AssertExpectations(t)
}

func TestAssignCounsellor(t *testing.T) {
	mockDB := new(MockDBLayer)
	svc := service.NewLeadService(mockDB, nil)

	mockDB.On("GetLeadByID", mock.Anything, "lead1").Return(&models.Lead{
		ID:     "lead1",
		Status: models.LeadStatusNew,
	}, nil)
	mockDB.On("UpdateLead", mock.Anything, mock.MatchedBy(func(lead models.Lead) bool {
		return lead.CounsellorID == "c7"
	})).Return(nil)

	admin := scope.Scope{UserID: "root", Role: models.RoleSuperAdmin}
	lead, err := svc.AssignCounsellor(context.Background(), admin, "lead1", "c7")
	assert.NoError(t, err)
	assert.Equal(t, "c7", lead.CounsellorID)
}

func TestMarkConverted(t *testing.T) {
	mockDB := new(MockDBLayer)
	svc := service.NewLeadService(mockDB, nil)

	mockDB.On("GetLeadByID", mock.Anything, "lead1").Return(&models.Lead{
		ID:     "lead1",
		Status: models.LeadStatusQualified,
	}, nil)
	mockDB.On("UpdateLead", mock.Anything, mock.MatchedBy(func(lead models.Lead) bool {
		return lead.Status == models.LeadStatusConverted
	})).Return(nil)

	err := svc.MarkConverted(context.Background(), "lead1")
	assert.NoError(t, err)
	mockDB.AssertExpectations(t)
}

func TestDeleteLeadDeniedLeaksNothing(t *testing.T) {
	mockDB := new(MockDBLayer)
	svc := service.NewLeadService(mockDB, nil)

	mockDB.On("GetLeadByID", mock.Anything, "lead1").Return(&models.Lead{
		ID:           "lead1",
		CounsellorID: "c2",
	}, nil)

	err := svc.DeleteLead(context.Background(), counselorScope(), "lead1")
	assert.ErrorIs(t, err, models.ErrNotFound)
	mockDB.AssertNotCalled(t, "DeleteLead")
}
