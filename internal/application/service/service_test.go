package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"edu-crm/internal/application/service"
	"edu-crm/internal/models"
	"edu-crm/internal/scope"
)

type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) CreateApplication(ctx context.Context, app models.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *MockDBLayer) GetApplicationByID(ctx context.Context, id string) (*models.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *MockDBLayer) GetApplicationByCode(ctx context.Context, code string) (*models.Application, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *MockDBLayer) ListApplications(ctx context.Context, sc scope.Scope, status string) ([]models.Application, error) {
	args := m.Called(ctx, sc, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Application), args.Error(1)
}

func (m *MockDBLayer) ListApplicationsByStudent(ctx context.Context, studentID string) ([]models.Application, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Application), args.Error(1)
}

func (m *MockDBLayer) UpdateApplication(ctx context.Context, app models.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *MockDBLayer) DeleteApplication(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDBLayer) CreateDecision(ctx context.Context, decision models.AdmissionDecision) error {
	args := m.Called(ctx, decision)
	return args.Error(0)
}

func (m *MockDBLayer) GetDecisionsByApplication(ctx context.Context, applicationID string) ([]models.AdmissionDecision, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AdmissionDecision), args.Error(1)
}

func (m *MockDBLayer) GetApplicant(ctx context.Context, studentID string) (*models.Student, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Student), args.Error(1)
}

type MockAllocator struct {
	mock.Mock
}

func (m *MockAllocator) Next(ctx context.Context, entityPrefix string, width int) (string, error) {
	args := m.Called(ctx, entityPrefix, width)
	return args.String(0), args.Error(1)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendDecisionNotice(ctx context.Context, app models.Application, decision models.AdmissionDecision) error {
	args := m.Called(ctx, app, decision)
	return args.Error(0)
}

func officerScope() scope.Scope {
	return scope.Scope{UserID: "o1", Role: models.RoleAdmissionOfficer}
}

func TestCreateApplicationStartsAsDraft(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockAlloc := new(MockAllocator)
	svc := service.NewApplicationService(mockDB, mockAlloc, nil, nil)

	mockAlloc.On("Next", mock.Anything, "APP", 3).Return("APP-250307-001", nil)
	mockDB.On("CreateApplication", mock.Anything, mock.MatchedBy(func(app models.Application) bool {
		return app.Code == "APP-250307-001" &&
			app.Status == models.ApplicationStatusDraft &&
			app.AdmissionOfficerID == "o1"
	})).Return(nil)

	app, err := svc.CreateApplication(context.Background(), officerScope(), models.ApplicationRequest{
		StudentID:    "s1",
		UniversityID: "uni1",
		Program:      "MSc Computer Science",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusDraft, app.Status)
	mockDB.AssertExpectations(t)
}

func TestTransitionFollowsPipeline(t *testing.T) {
	cases := []struct {
		from string
		to   string
		ok   bool
	}{
		{models.ApplicationStatusDraft, models.ApplicationStatusSubmitted, true},
		{models.ApplicationStatusSubmitted, models.ApplicationStatusUnderReview, true},
		{models.ApplicationStatusSubmitted, models.ApplicationStatusRejected, true},
		{models.ApplicationStatusUnderReview, models.ApplicationStatusOfferIssued, true},
		{models.ApplicationStatusOfferIssued, models.ApplicationStatusAccepted, true},
		{models.ApplicationStatusOfferIssued, models.ApplicationStatusRejected, true},
		{models.ApplicationStatusDraft, models.ApplicationStatusOfferIssued, false},
		{models.ApplicationStatusSubmitted, models.ApplicationStatusAccepted, false},
		{models.ApplicationStatusRejected, models.ApplicationStatusSubmitted, false},
		{models.ApplicationStatusAccepted, models.ApplicationStatusRejected, false},
	}

	for _, tc := range cases {
		mockDB := new(MockDBLayer)
		svc := service.NewApplicationService(mockDB, nil, nil, nil)

		mockDB.On("GetApplicationByID", mock.Anything, "app1").Return(&models.Application{
			ID:                 "app1",
			Status:             tc.from,
			AdmissionOfficerID: "o1",
		}, nil)
		if tc.ok {
			mockDB.On("UpdateApplication", mock.Anything, mock.MatchedBy(func(app models.Application) bool {
				return app.Status == tc.to
			})).Return(nil)
		}

		_, err := svc.Transition(context.Background(), officerScope(), "app1", tc.to)
		if tc.ok {
			assert.NoError(t, err, "%s -> %s should be allowed", tc.from, tc.to)
		} else {
			assert.ErrorIs(t, err, service.ErrBadTransition, "%s -> %s should be rejected", tc.from, tc.to)
		}
	}
}

func TestRecordDecisionOffer(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockMailer := new(MockMailer)
	svc := service.NewApplicationService(mockDB, nil, nil, mockMailer)

	mockDB.On("GetApplicationByID", mock.Anything, "app1").Return(&models.Application{
		ID:                 "app1",
		Code:               "APP-250307-001",
		StudentID:          "s1",
		Status:             models.ApplicationStatusUnderReview,
		AdmissionOfficerID: "o1",
	}, nil)
	mockDB.On("UpdateApplication", mock.Anything, mock.MatchedBy(func(app models.Application) bool {
		return app.Status == models.ApplicationStatusOfferIssued
	})).Return(nil)
	mockDB.On("CreateDecision", mock.Anything, mock.MatchedBy(func(d models.AdmissionDecision) bool {
		return d.ApplicationID == "app1" && d.Decision == "offer" && d.DecidedBy == "o1"
	})).Return(nil)
	mockDB.On("GetApplicant", mock.Anything, "s1").Return(&models.Student{
		ID:       "s1",
		FullName: "Nadia Perera",
		Email:    "nadia@example.com",
	}, nil)
	mockMailer.On("SendDecisionNotice", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	decision, err := svc.RecordDecision(context.Background(), officerScope(), "app1", "offer", "")

	assert.NoError(t, err)
	assert.Equal(t, "offer", decision.Decision)
	mockDB.AssertExpectations(t)
	mockMailer.AssertExpectations(t)
}

func TestRecordDecisionRejectionFromSubmitted(t *testing.T) {
	mockDB := new(MockDBLayer)
	svc := service.NewApplicationService(mockDB, nil, nil, nil)

	mockDB.On("GetApplicationByID", mock.Anything, "app1").Return(&models.Application{
		ID:                 "app1",
		StudentID:          "s1",
		Status:             models.ApplicationStatusSubmitted,
		AdmissionOfficerID: "o1",
	}, nil)
	mockDB.On("UpdateApplication", mock.Anything, mock.MatchedBy(func(app models.Application) bool {
		return app.Status == models.ApplicationStatusRejected
	})).Return(nil)
	mockDB.On("CreateDecision", mock.Anything, mock.Anything).Return(nil)

	decision, err := svc.RecordDecision(context.Background(), officerScope(), "app1", "rejection", "")
	assert.NoError(t, err)
	assert.Equal(t, "rejection", decision.Decision)
}

func TestRecordDecisionUnknownKind(t *testing.T) {
	mockDB := new(MockDBLayer)
	svc := service.NewApplicationService(mockDB, nil, nil, nil)

	mockDB.On("GetApplicationByID", mock.Anything, "app1").Return(&models.Application{
		ID:                 "app1",
		Status:             models.ApplicationStatusUnderReview,
		AdmissionOfficerID: "o1",
	}, nil)

	_, err := svc.RecordDecision(context.Background(), officerScope(), "app1", "waitlist", "")
	assert.Error(t, err)
	mockDB.AssertNotCalled(t, "CreateDecision")
}

func TestGetApplicationScopeDenied(t *testing.T) {
	mockDB := new(MockDBLayer)
	svc := service.NewApplicationService(mockDB, nil, nil, nil)

	mockDB.On("GetApplicationByID", mock.Anything, "app1").Return(&models.Application{
		ID:                 "app1",
		AdmissionOfficerID: "o2",
	}, nil)

	_, err := svc.GetApplication(context.Background(), officerScope(), "app1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteApplicationOnlyDrafts(t *testing.T) {
	mockDB := new(MockDBLayer)
	svc := service.NewApplicationService(mockDB, nil, nil, nil)

	mockDB.On("GetApplicationByID", mock.Anything, "app1").Return(&models.Application{
		ID:                 "app1",
		Status:             models.ApplicationStatusSubmitted,
		AdmissionOfficerID: "o1",
	}, nil)

	err := svc.DeleteApplication(context.Background(), officerScope(), "app1")
	assert.Error(t, err)
	mockDB.AssertNotCalled(t, "DeleteApplication")
}
