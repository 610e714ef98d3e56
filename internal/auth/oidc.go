package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCVerifier checks ID tokens issued by an OpenID Connect provider such as
// Keycloak.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer's keys. An empty clientID skips the
// audience check.
func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	return &OIDCVerifier{verifier: provider.Verifier(oidcConfig(clientID))}, nil
}

// NewOIDCVerifierWithKeys verifies against a fixed key set instead of the
// issuer's discovery document.
func NewOIDCVerifierWithKeys(issuer, clientID string, keySet oidc.KeySet) *OIDCVerifier {
	return &OIDCVerifier{verifier: oidc.NewVerifier(issuer, keySet, oidcConfig(clientID))}
}

func oidcConfig(clientID string) *oidc.Config {
	return &oidc.Config{
		ClientID:          clientID,
		SkipClientIDCheck: clientID == "",
	}
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims struct {
		Sub               string `json:"sub"`
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
		Role              string `json:"role"`
		RealmAccess       struct {
			Roles []string `json:"roles"`
		} `json:"realm_access"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}
	if claims.Sub == "" {
		return nil, errors.New("sub claim not found in token")
	}

	id := &Identity{UserID: claims.Sub, Name: claims.Name, Role: claims.Role}
	if id.Name == "" {
		id.Name = claims.PreferredUsername
	}
	if id.Role == "" {
		id.Role = roleFromRealm(claims.RealmAccess.Roles)
	}
	return id, nil
}

// roleFromRealm picks the strongest engine role among Keycloak realm roles.
func roleFromRealm(roles []string) string {
	for _, r := range []string{RoleAdmin, RoleStaff} {
		if slices.Contains(roles, r) {
			return r
		}
	}
	return RoleCustomer
}
