package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://auth.example.test/realms/canteen"

func newTestOIDC(t *testing.T, clientID string) (*OIDCVerifier, *rsa.PrivateKey) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keys := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	return NewOIDCVerifierWithKeys(testIssuer, clientID, keys), key
}

func signRS256(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return raw
}

func TestOIDCVerifier_Claims(t *testing.T) {
	v, key := newTestOIDC(t, "")

	raw := signRS256(t, key, jwt.MapClaims{
		"iss":                testIssuer,
		"sub":                "kc-user-1",
		"preferred_username": "asha",
		"realm_access":       map[string]interface{}{"roles": []string{"offline_access", "staff"}},
		"exp":                time.Now().Add(time.Hour).Unix(),
	})

	id, err := v.Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "kc-user-1", id.UserID)
	assert.Equal(t, "asha", id.Name)
	assert.Equal(t, RoleStaff, id.Role)
}

func TestOIDCVerifier_Rejects(t *testing.T) {
	v, key := newTestOIDC(t, "preorder")
	ctx := context.Background()
	valid := jwt.MapClaims{"iss": testIssuer, "sub": "u", "aud": "preorder", "exp": time.Now().Add(time.Hour).Unix()}

	id, err := v.Verify(ctx, signRS256(t, key, valid))
	require.NoError(t, err)
	assert.Equal(t, RoleCustomer, id.Role)

	tests := map[string]jwt.MapClaims{
		"other issuer":   {"iss": "https://evil.test", "sub": "u", "aud": "preorder", "exp": valid["exp"]},
		"other audience": {"iss": testIssuer, "sub": "u", "aud": "billing", "exp": valid["exp"]},
		"expired":        {"iss": testIssuer, "sub": "u", "aud": "preorder", "exp": time.Now().Add(-time.Hour).Unix()},
	}
	for name, claims := range tests {
		_, err := v.Verify(ctx, signRS256(t, key, claims))
		assert.Error(t, err, name)
	}

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	_, err = v.Verify(ctx, signRS256(t, otherKey, valid))
	assert.Error(t, err, "foreign signing key")

	// HS256 tokens are not accepted by the OIDC verifier
	hs, err := SignToken(Identity{UserID: "u", Role: RoleAdmin}, testSecret, time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(ctx, hs)
	assert.Error(t, err)
}

func TestMiddleware_OIDC(t *testing.T) {
	v, key := newTestOIDC(t, "")
	h := Middleware(v, "token", nil)(echoIdentity())

	raw := signRS256(t, key, jwt.MapClaims{
		"iss":  testIssuer,
		"sub":  "kc-admin",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "kc-admin/admin", rec.Body.String())
}
