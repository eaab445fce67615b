package odin

import (
	"context"
	"fmt"
	"strings"

	"pet-health-tracker/internal/ports/auth"
)

// Verifier implementa auth.AuthVerifier sobre Odin. Se instancia en main
// cuando auth.mode es "odin".
type Verifier struct {
	client *Client
}

var _ auth.AuthVerifier = (*Verifier)(nil)

func NewVerifier(client *Client) *Verifier {
	return &Verifier{client: client}
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if v == nil || v.client == nil {
		return auth.Claims{}, ErrOdinNotConfigured
	}
	claims, err := v.client.VerifyToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return auth.Claims{}, fmt.Errorf("odin verify failed: %w", err)
	}
	return claims, nil
}
