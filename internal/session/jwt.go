package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/VivreleHpi/crohn-companion-app/internal/logging"
)

var ErrNoSubject = errors.New("token has no subject")

// Claims mirrors the access tokens issued by the hosted auth service.
type Claims struct {
	jwt.RegisteredClaims
	Email        string       `json:"email,omitempty"`
	UserMetadata UserMetadata `json:"user_metadata,omitempty"`
}

type UserMetadata struct {
	FullName string `json:"full_name,omitempty"`
}

// IssueToken signs an HS256 access token for id, valid for ttl.
func IssueToken(id Identity, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:        id.Email,
		UserMetadata: UserMetadata{FullName: id.FullName},
	})
	return token.SignedString(secret)
}

// ParseToken verifies tokenString and maps its claims to an Identity.
func ParseToken(tokenString string, secret []byte) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return Identity{}, ErrNoSubject
	}
	return Identity{
		ID:       claims.Subject,
		Email:    claims.Email,
		FullName: claims.UserMetadata.FullName,
	}, nil
}

// JWT resolves the identity from the current access token on every call, so
// an expired token signs the user out.
type JWT struct {
	secret []byte
	log    logging.Logger

	mu    sync.RWMutex
	token string
}

func NewJWT(secret []byte, token string, log logging.Logger) *JWT {
	return &JWT{secret: secret, token: token, log: log}
}

func (p *JWT) SetToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = token
}

func (p *JWT) CurrentIdentity(ctx context.Context) (Identity, bool) {
	p.mu.RLock()
	token := p.token
	p.mu.RUnlock()

	if token == "" {
		return Identity{}, false
	}
	id, err := ParseToken(token, p.secret)
	if err != nil {
		p.log.Warn(ctx, "access token rejected", "error", err)
		return Identity{}, false
	}
	return id, true
}
