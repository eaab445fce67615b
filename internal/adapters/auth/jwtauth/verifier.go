// Package jwtauth verifica tokens HS256 firmados con un secreto compartido.
// Es la alternativa a Odin para despliegues sin IAM externo.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pet-health-tracker/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotConfigured = errors.New("jwt secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// Claims: el user ID va en user_id; si falta se usa sub.
type Claims struct {
	UserID   string `json:"user_id,omitempty"`
	Email    string `json:"email,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

type Config struct {
	Secret string
	// Issuer vacío no se valida.
	Issuer string
	Leeway time.Duration
}

type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

var _ auth.AuthVerifier = (*Verifier)(nil)

func NewVerifier(cfg Config) (*Verifier, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, ErrNotConfigured
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}

	return &Verifier{secret: []byte(secret), parser: jwt.NewParser(opts...)}, nil
}

func (v *Verifier) Verify(_ context.Context, token string) (auth.Claims, error) {
	var c Claims
	_, err := v.parser.ParseWithClaims(strings.TrimSpace(token), &c, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	uid := strings.TrimSpace(c.UserID)
	if uid == "" {
		uid = strings.TrimSpace(c.Subject)
	}
	if uid == "" {
		return auth.Claims{}, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}

	return auth.Claims{
		UserID:   uid,
		Email:    strings.TrimSpace(c.Email),
		TenantID: strings.TrimSpace(c.TenantID),
		Source:   auth.SourceJWT,
	}, nil
}

// Sign emite un token para Claims. Lo usan los tests y el comando de CLI
// que genera tokens de desarrollo.
func Sign(secret string, c Claims) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", ErrNotConfigured
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return s, nil
}
