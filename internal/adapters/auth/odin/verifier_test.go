package odin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pet-health-tracker/internal/ports/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOdin(t *testing.T, handler http.HandlerFunc) *Verifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL + "/", APIKey: "k-1"})
	require.NoError(t, err)
	return NewVerifier(client)
}

func TestNewClient_RequiresConfig(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "http://odin"})
	assert.ErrorIs(t, err, ErrOdinNotConfigured)

	_, err = NewClient(Config{APIKey: "k"})
	assert.ErrorIs(t, err, ErrOdinNotConfigured)

	_, err = NewClient(Config{BaseURL: "not a url", APIKey: "k"})
	assert.Error(t, err)
}

func TestVerify_OK(t *testing.T) {
	v := newOdin(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, verifyPath, r.URL.Path)
		assert.Equal(t, "k-1", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tok", body["token"])

		_ = json.NewEncoder(w).Encode(map[string]string{
			"user_id": " u-1 ", "email": "ana@example.com",
		})
	})

	claims, err := v.Verify(context.Background(), " tok ")
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, auth.SourceOdin, claims.Source)
}

func TestVerify_Unauthorized(t *testing.T) {
	v := newOdin(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := v.Verify(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrOdinUnauthorized)
}

func TestVerify_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"invalid json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("{"))
		}},
		{"missing user", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"email":"x@example.com"}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newOdin(t, tt.handler)
			_, err := v.Verify(context.Background(), "tok")
			assert.ErrorIs(t, err, ErrOdinUpstream)
		})
	}
}

func TestVerify_EmptyToken(t *testing.T) {
	called := false
	v := newOdin(t, func(http.ResponseWriter, *http.Request) { called = true })

	_, err := v.Verify(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrOdinUnauthorized)
	assert.False(t, called)
}
