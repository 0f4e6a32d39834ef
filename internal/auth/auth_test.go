package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"edu-crm/internal/auth"
	"edu-crm/internal/logger"
	"edu-crm/internal/models"
)

const testSecret = "test-signing-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func TestHMACVerifierAcceptsValidToken(t *testing.T) {
	verifier, err := auth.NewHMACVerifier(testSecret)
	assert.NoError(t, err)

	raw := signToken(t, testSecret, jwt.MapClaims{
		"sub":       "u1",
		"role":      models.RoleCounselor,
		"region_id": "r1",
		"branch_id": "b1",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	claims, err := verifier.Verify(context.Background(), raw)
	assert.NoError(t, err)
	assert.Equal(t, "u1", claims.Sub)
	assert.Equal(t, models.RoleCounselor, claims.Role)
	assert.Equal(t, "r1", claims.RegionID)
	assert.Equal(t, "b1", claims.BranchID)
}

func TestHMACVerifierRejectsWrongSecret(t *testing.T) {
	verifier, _ := auth.NewHMACVerifier(testSecret)

	raw := signToken(t, "some-other-secret", jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := verifier.Verify(context.Background(), raw)
	assert.Error(t, err)
}

func TestHMACVerifierRejectsExpiredToken(t *testing.T) {
	verifier, _ := auth.NewHMACVerifier(testSecret)

	raw := signToken(t, testSecret, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := verifier.Verify(context.Background(), raw)
	assert.Error(t, err)
}

func TestHMACVerifierRequiresSubject(t *testing.T) {
	verifier, _ := auth.NewHMACVerifier(testSecret)

	raw := signToken(t, testSecret, jwt.MapClaims{
		"role": models.RoleCounselor,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	_, err := verifier.Verify(context.Background(), raw)
	assert.Error(t, err)
}

func TestNewHMACVerifierRejectsEmptySecret(t *testing.T) {
	_, err := auth.NewHMACVerifier("")
	assert.Error(t, err)
}

func TestExtractTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer abc123")

	token, err := auth.ExtractTokenFromRequest(r)
	assert.NoError(t, err)
	assert.Equal(t, "abc123", token)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	_, err = auth.ExtractTokenFromRequest(r)
	assert.Error(t, err)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic abc123")
	_, err = auth.ExtractTokenFromRequest(r)
	assert.Error(t, err)
}

type MockUserLookup struct {
	mock.Mock
}

func (m *MockUserLookup) GetUser(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func TestResolveCompleteClaimsSkipDirectory(t *testing.T) {
	users := new(MockUserLookup)
	resolver := auth.NewScopeResolver(users, nil, time.Minute)

	p, err := resolver.Resolve(context.Background(), auth.Claims{
		Sub:      "u1",
		Role:     models.RoleCounselor,
		RegionID: "r1",
		BranchID: "b1",
	})

	assert.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "b1", p.BranchID)
	users.AssertNotCalled(t, "GetUser")
}

func TestResolveSuperAdminNeedsNoAttachment(t *testing.T) {
	users := new(MockUserLookup)
	resolver := auth.NewScopeResolver(users, nil, time.Minute)

	p, err := resolver.Resolve(context.Background(), auth.Claims{
		Sub:  "root",
		Role: models.RoleSuperAdmin,
	})

	assert.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, p.Role)
	users.AssertNotCalled(t, "GetUser")
}

func TestResolveFillsAttachmentFromDirectory(t *testing.T) {
	users := new(MockUserLookup)
	resolver := auth.NewScopeResolver(users, nil, time.Minute)

	users.On("GetUser", mock.Anything, "u1").Return(&models.User{
		ID:       "u1",
		Role:     models.RoleCounselor,
		RegionID: "r1",
		BranchID: "b1",
	}, nil)

	p, err := resolver.Resolve(context.Background(), auth.Claims{Sub: "u1", Role: models.RoleCounselor})

	assert.NoError(t, err)
	assert.Equal(t, "r1", p.RegionID)
	assert.Equal(t, "b1", p.BranchID)
	users.AssertExpectations(t)
}

func TestMiddlewareSetsPrincipal(t *testing.T) {
	verifier, _ := auth.NewHMACVerifier(testSecret)
	resolver := auth.NewScopeResolver(nil, nil, time.Minute)
	log := logger.NewLogger()
	defer log.Close()

	var got auth.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	raw := signToken(t, testSecret, jwt.MapClaims{
		"sub":       "u1",
		"role":      models.RoleCounselor,
		"region_id": "r1",
		"branch_id": "b1",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	r := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	r.Header.Set("Authorization", "Bearer "+raw)
	w := httptest.NewRecorder()

	auth.Middleware(verifier, resolver, log)(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, models.RoleCounselor, got.Role)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	verifier, _ := auth.NewHMACVerifier(testSecret)
	resolver := auth.NewScopeResolver(nil, nil, time.Minute)
	log := logger.NewLogger()
	defer log.Close()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	r := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	w := httptest.NewRecorder()

	auth.Middleware(verifier, resolver, log)(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoles(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	gate := auth.RequireRoles(models.RoleSuperAdmin, models.RoleAdminStaff)(next)

	admin := auth.Principal{UserID: "root", Role: models.RoleSuperAdmin}
	r := httptest.NewRequest(http.MethodPost, "/api/users", nil)
	r = r.WithContext(auth.WithPrincipal(r.Context(), admin))
	w := httptest.NewRecorder()
	gate.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	counselor := auth.Principal{UserID: "c1", Role: models.RoleCounselor}
	r = httptest.NewRequest(http.MethodPost, "/api/users", nil)
	r = r.WithContext(auth.WithPrincipal(r.Context(), counselor))
	w = httptest.NewRecorder()
	gate.ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)

	r = httptest.NewRequest(http.MethodPost, "/api/users", nil)
	w = httptest.NewRecorder()
	gate.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
