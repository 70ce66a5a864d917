// Package jwt implements generation and parsing of the JWT tokens used to
// authenticate lawdesk users.
package jwt

import (
	"time"
)

// Maker generates and parses JWT tokens with lawdesk custom claims.
type Maker interface {
	// GenerateToken creates a signed token carrying username, role and user uid.
	GenerateToken(username, role, userUID string) (string, error)
	// ParseToken validates a token and returns its custom claims.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl implements Maker with an HMAC secret and a token lifetime.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewJWTMaker returns a MakerImpl signing with secretKey, tokens valid for ttl.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}
