package auth

import (
	"errors"
	"time"

	"github.com/fjod/natal_store/internal/config"
	"github.com/fjod/natal_store/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	TokenTypeAccess TokenType = "access"
	TokenTypeReset  TokenType = "reset"
)

// Claims are the JWT claims of session and password-reset tokens. Subject
// is the user id and ID the token id used for revocation.
type Claims struct {
	jwt.RegisteredClaims
	Name  string      `json:"name,omitempty"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role,omitempty"`
	Type  TokenType   `json:"token_type"`
}

// TokenManager signs and validates HS256 tokens.
type TokenManager struct {
	secret   []byte
	issuer   string
	ttl      time.Duration
	resetTTL time.Duration
	now      func() time.Time
}

func NewTokenManager(cfg config.JWTConfig) *TokenManager {
	return &TokenManager{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		ttl:      cfg.TTL,
		resetTTL: cfg.ResetTTL,
		now:      time.Now,
	}
}

// TTL is the lifetime of a session token.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// IssueAccess returns a session token for user.
func (m *TokenManager) IssueAccess(user *domain.User) (string, *Claims, error) {
	claims := m.claims(user, TokenTypeAccess, m.ttl)
	claims.Name = user.Name
	claims.Role = user.Role
	token, err := m.sign(claims)
	return token, claims, err
}

// IssueReset returns a single-purpose password reset token for user.
func (m *TokenManager) IssueReset(user *domain.User) (string, *Claims, error) {
	claims := m.claims(user, TokenTypeReset, m.resetTTL)
	token, err := m.sign(claims)
	return token, claims, err
}

func (m *TokenManager) claims(user *domain.User, typ TokenType, ttl time.Duration) *Claims {
	now := m.now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    m.issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: user.Email,
		Type:  typ,
	}
}

func (m *TokenManager) sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse validates signature, issuer, expiry and token type.
func (m *TokenManager) Parse(tokenString string, expected TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}
	if claims.Type != expected {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// remaining is how long the token stays valid after now.
func (m *TokenManager) remaining(c *Claims) time.Duration {
	if c.ExpiresAt == nil {
		return m.ttl
	}
	return max(c.ExpiresAt.Sub(m.now()), time.Second)
}
