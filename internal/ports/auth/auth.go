// Package auth define el puerto de verificación de identidad. Los adaptadores
// viven en internal/adapters/auth.
package auth

import "context"

// Source indica qué mecanismo autenticó al usuario.
type Source string

const (
	SourceDebug Source = "debug"
	SourceOdin  Source = "odin"
	SourceJWT   Source = "jwt"
)

// Claims es lo que el resto de la app sabe del usuario autenticado.
type Claims struct {
	UserID   string
	Email    string
	TenantID string
	Source   Source
}

// AuthVerifier valida un bearer token.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// VerifierFunc adapta una función a AuthVerifier.
type VerifierFunc func(ctx context.Context, token string) (Claims, error)

func (f VerifierFunc) Verify(ctx context.Context, token string) (Claims, error) {
	return f(ctx, token)
}
