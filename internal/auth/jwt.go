// Package auth issues and validates the session tokens the front-ends carry.
// A token wraps the caller's Redmine API key so every downstream read and
// write happens under Redmine's own permissions for that user.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role values carried in session tokens, matching the "User Type" custom
// field on Redmine accounts.
const (
	RoleMLOwner        = "mlOwner"
	RoleGSMBOfficer    = "gsmbOfficer"
	RoleMiningEngineer = "miningEngineer"
	RolePoliceOfficer  = "policeOfficer"
	RoleGSMBManagement = "GSMBManagement"
)

// Claims is the session token payload.
type Claims struct {
	UserID int    `json:"user_id"`
	APIKey string `json:"api_key"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and verifies session tokens with an HMAC secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager validates the secret and returns a ready Manager.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("auth: JWT secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl}, nil
}

// Issue creates a signed token for the given Redmine account.
func (m *Manager) Issue(userID int, apiKey, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		APIKey: apiKey,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Parse validates the signature and expiry and returns the claims. Tokens
// without an embedded API key are rejected even when well signed.
func (m *Manager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("auth: invalid token")
	}
	if claims.APIKey == "" {
		return nil, errors.New("auth: invalid or missing API key in the token")
	}
	return claims, nil
}
