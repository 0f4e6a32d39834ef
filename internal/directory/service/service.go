package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"edu-crm/internal/models"
)

type DBLayer interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user models.User) error
	CreateRegion(ctx context.Context, region models.Region) error
	ListRegions(ctx context.Context) ([]models.Region, error)
	CreateBranch(ctx context.Context, branch models.Branch) error
	ListBranches(ctx context.Context, regionID string) ([]models.Branch, error)
	CreateUniversity(ctx context.Context, uni models.University) error
	GetUniversityByID(ctx context.Context, id string) (*models.University, error)
	ListUniversities(ctx context.Context, country string) ([]models.University, error)
}

// ScopeInvalidator drops a user's cached attachment after a directory
// change moves them.
type ScopeInvalidator interface {
	Invalidate(ctx context.Context, userID string)
}

// DirectoryService owns the organizational reference data: users, the
// region/branch tree and the university catalog.
type DirectoryService struct {
	DB     DBLayer
	Scopes ScopeInvalidator
}

func NewDirectoryService(dbLayer DBLayer, scopes ScopeInvalidator) *DirectoryService {
	return &DirectoryService{DB: dbLayer, Scopes: scopes}
}

// GetUser satisfies the auth resolver's lookup.
func (s *DirectoryService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.DB.GetUserByID(ctx, id)
}

func (s *DirectoryService) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Active = true
	user.CreatedAt = time.Now()
	if err := s.DB.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

func (s *DirectoryService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.DB.ListUsers(ctx)
}

// UpdateUser persists directory changes and invalidates the user's cached
// scope so the new attachment applies on their next request.
func (s *DirectoryService) UpdateUser(ctx context.Context, id string, update models.User) (*models.User, error) {
	user, err := s.DB.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Email = update.Email
	user.FullName = update.FullName
	if update.Role != "" {
		user.Role = update.Role
	}
	user.RegionID = update.RegionID
	user.BranchID = update.BranchID
	user.Active = update.Active
	user.UpdatedAt = time.Now()

	if err := s.DB.UpdateUser(ctx, *user); err != nil {
		return nil, fmt.Errorf("failed to update user %s: %w", id, err)
	}
	if s.Scopes != nil {
		s.Scopes.Invalidate(ctx, id)
	}
	return user, nil
}

func (s *DirectoryService) CreateRegion(ctx context.Context, region models.Region) (*models.Region, error) {
	if region.ID == "" {
		region.ID = uuid.NewString()
	}
	region.CreatedAt = time.Now()
	if err := s.DB.CreateRegion(ctx, region); err != nil {
		return nil, fmt.Errorf("failed to create region: %w", err)
	}
	return &region, nil
}

func (s *DirectoryService) ListRegions(ctx context.Context) ([]models.Region, error) {
	return s.DB.ListRegions(ctx)
}

func (s *DirectoryService) CreateBranch(ctx context.Context, branch models.Branch) (*models.Branch, error) {
	if branch.ID == "" {
		branch.ID = uuid.NewString()
	}
	branch.CreatedAt = time.Now()
	if err := s.DB.CreateBranch(ctx, branch); err != nil {
		return nil, fmt.Errorf("failed to create branch: %w", err)
	}
	return &branch, nil
}

func (s *DirectoryService) ListBranches(ctx context.Context, regionID string) ([]models.Branch, error) {
	return s.DB.ListBranches(ctx, regionID)
}

func (s *DirectoryService) CreateUniversity(ctx context.Context, uni models.University) (*models.University, error) {
	if uni.ID == "" {
		uni.ID = uuid.NewString()
	}
	uni.CreatedAt = time.Now()
	if err := s.DB.CreateUniversity(ctx, uni); err != nil {
		return nil, fmt.Errorf("failed to create university: %w", err)
	}
	return &uni, nil
}

func (s *DirectoryService) ListUniversities(ctx context.Context, country string) ([]models.University, error) {
	return s.DB.ListUniversities(ctx, country)
}
