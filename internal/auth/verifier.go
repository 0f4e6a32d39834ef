package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token fields this service reads. Region and branch may be
// absent from the token, in which case the scope resolver fills them from
// the user directory.
type Claims struct {
	Sub      string `json:"sub"`
	Role     string `json:"role"`
	RegionID string `json:"region_id"`
	BranchID string `json:"branch_id"`
}

// Verifier checks a raw bearer token and extracts claims. The token issuer
// is an external collaborator; this service only verifies.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (Claims, error)
}

// HMACVerifier validates tokens signed with a shared HMAC secret.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) (*HMACVerifier, error) {
	if secret == "" {
		return nil, errors.New("JWT secret is empty")
	}
	return &HMACVerifier{secret: []byte(secret)}, nil
}

func (v *HMACVerifier) Verify(_ context.Context, rawToken string) (Claims, error) {
	if rawToken == "" {
		return Claims{}, errors.New("empty token")
	}

	token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("failed to parse token: %w", err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, errors.New("invalid token claims")
	}

	return claimsFromMap(mapClaims)
}

// OIDCVerifier validates tokens against an OIDC issuer's published keys.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDCVerifier(ctx context.Context, issuer string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{SkipClientIDCheck: true}),
	}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (Claims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return Claims{}, fmt.Errorf("invalid token: %w", err)
	}

	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return Claims{}, fmt.Errorf("failed to parse claims: %w", err)
	}
	if claims.Sub == "" {
		return Claims{}, errors.New("subject claim not found in token")
	}
	return claims, nil
}

func claimsFromMap(m jwt.MapClaims) (Claims, error) {
	sub, _ := m["sub"].(string)
	if sub == "" {
		return Claims{}, errors.New("subject claim not found in token")
	}
	role, _ := m["role"].(string)
	regionID, _ := m["region_id"].(string)
	branchID, _ := m["branch_id"].(string)
	return Claims{Sub: sub, Role: role, RegionID: regionID, BranchID: branchID}, nil
}
