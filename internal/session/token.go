package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what can be read from a token without its signing key. It is
// for display only.
type TokenInfo struct {
	Subject   string    `json:"subject,omitempty"`
	TokenType string    `json:"token_type,omitempty"`
	IssuedAt  time.Time `json:"issued_at,omitzero"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// Expired reports whether the token carries an expiry at or before now.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// Remaining returns the time left until expiry, zero when expired or unknown.
func (i TokenInfo) Remaining(now time.Time) time.Duration {
	if i.ExpiresAt.IsZero() || i.Expired(now) {
		return 0
	}
	return i.ExpiresAt.Sub(now)
}

type tokenClaims struct {
	jwt.RegisteredClaims
	UserID    any    `json:"user_id,omitempty"`
	TokenType string `json:"token_type,omitempty"`
}

// InspectToken decodes a JWT without verifying its signature. The server
// identifies users with a user_id claim; sub is used when it is absent.
func InspectToken(token string) (TokenInfo, error) {
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return TokenInfo{}, fmt.Errorf("decode token: %w", err)
	}

	info := TokenInfo{
		Subject:   claims.Subject,
		TokenType: claims.TokenType,
	}
	if claims.UserID != nil {
		info.Subject = fmt.Sprint(claims.UserID)
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
