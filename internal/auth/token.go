package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in the token's role claim.
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

type Identity struct {
	UserID string
	Name   string
	Role   string
}

// TokenVerifier turns a raw bearer token into the caller's identity.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

// HS256Verifier checks tokens signed with a shared secret.
type HS256Verifier struct {
	Secret string
}

func (v HS256Verifier) Verify(_ context.Context, rawToken string) (*Identity, error) {
	return ParseToken(rawToken, v.Secret)
}

// ExtractTokenFromRequest reads the token from the auth cookie, falling back
// to a Bearer Authorization header.
func ExtractTokenFromRequest(r *http.Request, cookieName string) (string, error) {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("no token found in cookies or authorization header")
	}

	// Bearer token format: "Bearer {token}"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}

	return parts[1], nil
}

// ParseToken verifies an HS256 token and extracts the caller's identity.
func ParseToken(tokenString, secret string) (*Identity, error) {
	if tokenString == "" {
		return nil, errors.New("empty token")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	id := &Identity{Role: RoleCustomer}
	switch v := claims["user_id"].(type) {
	case string:
		id.UserID = v
	case float64:
		// numeric ids from the user table
		id.UserID = strconv.FormatFloat(v, 'f', -1, 64)
	}
	if id.UserID == "" {
		if sub, _ := claims["sub"].(string); sub != "" {
			id.UserID = sub
		}
	}
	if id.UserID == "" {
		return nil, errors.New("user id claim not found in token")
	}

	if role, _ := claims["role"].(string); role != "" {
		id.Role = role
	}
	id.Name, _ = claims["name"].(string)
	return id, nil
}

// SignToken issues a token in the format ParseToken accepts.
func SignToken(id Identity, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": id.UserID,
		"name":    id.Name,
		"role":    id.Role,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
