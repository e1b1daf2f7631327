// Package auth issues and verifies the signed tokens the API accepts:
// access tokens identifying a user and share tokens granting read access to
// one setlist.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"setlister/internal/store"
)

// Token types carried in the typ claim.
const (
	TypeAccess = "access"
	TypeShare  = "share"
)

// MinSecretLength is the shortest signing secret NewIssuer accepts.
const MinSecretLength = 16

// Claims are the JWT claims of every token. Subject holds the user id for
// access tokens and the setlist id for share tokens.
type Claims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret    []byte
	accessTTL time.Duration
	shareTTL  time.Duration
	now       func() time.Time
}

// NewIssuer validates the secret and TTLs and returns an Issuer.
func NewIssuer(secret []byte, accessTTL, shareTTL time.Duration) (*Issuer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)
	}
	if accessTTL <= 0 || shareTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	return &Issuer{secret: secret, accessTTL: accessTTL, shareTTL: shareTTL, now: time.Now}, nil
}

// IssueAccess signs an access token for a user.
func (i *Issuer) IssueAccess(userID uuid.UUID) (string, time.Time, error) {
	return i.issue(TypeAccess, userID, i.accessTTL)
}

// ParseAccess verifies an access token and returns the user id.
func (i *Issuer) ParseAccess(token string) (uuid.UUID, error) {
	return i.parse(token, TypeAccess)
}

// IssueShare signs a share token for a setlist.
func (i *Issuer) IssueShare(setlistID uuid.UUID) (string, time.Time, error) {
	return i.issue(TypeShare, setlistID, i.shareTTL)
}

// ParseShare verifies a share token and returns the setlist id.
func (i *Issuer) ParseShare(token string) (uuid.UUID, error) {
	return i.parse(token, TypeShare)
}

func (i *Issuer) issue(typ string, subject uuid.UUID, ttl time.Duration) (string, time.Time, error) {
	now := i.now()
	expires := now.Add(ttl)
	claims := &Claims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, expires, nil
}

func (i *Issuer) parse(raw, typ string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, store.ErrUnauthorized
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("%w: %w", store.ErrUnauthorized, err)
	}
	if claims.TokenType != typ {
		return uuid.Nil, fmt.Errorf("%w: expected %s token", store.ErrUnauthorized, typ)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", store.ErrUnauthorized)
	}
	return id, nil
}
