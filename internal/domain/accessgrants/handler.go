package accessgrants

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"pet-health-tracker/internal/middleware"
	"pet-health-tracker/internal/platform/respond"
	"pet-health-tracker/internal/platform/validate"

	"github.com/go-chi/chi/v5"
)

// PetOwnerLookup evita importar el paquete pets (rompe ciclos).
type PetOwnerLookup interface {
	OwnerOf(ctx context.Context, petID string) (string, error)
}

func RegisterRoutes(r chi.Router, svc *Service, petOwners PetOwnerLookup) {
	r.Route("/pets/{petID}/grants", func(gr chi.Router) {
		gr.Post("/", inviteGrantHandler(svc, petOwners))
		gr.Get("/", listGrantsByPetHandler(svc, petOwners))
	})

	r.Route("/grants/{grantID}", func(gr chi.Router) {
		gr.Post("/accept", acceptGrantHandler(svc))
		gr.Post("/revoke", revokeGrantHandler(svc))
	})

	r.Get("/me/grants", listMyGrantsHandler(svc))
}

type inviteGrantRequest struct {
	GranteeUserID string     `json:"grantee_user_id" validate:"required,max=128"`
	Scopes        []Scope    `json:"scopes" enums:"pet:read,pet:edit_profile,care:read,care:write,metrics:read,metrics:create"`
	ExpiresAt     *time.Time `json:"expires_at"` // RFC3339 opcional
}

type grantResponse struct {
	ID            string     `json:"id"`
	PetID         string     `json:"pet_id"`
	OwnerUserID   string     `json:"owner_user_id"`
	GranteeUserID string     `json:"grantee_user_id"`
	Scopes        []Scope    `json:"scopes"`
	Status        Status     `json:"status" enums:"invited,active,revoked,expired"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
}

// inviteGrantHandler godoc
// @Summary Compartir mascota
// @Description Sólo el dueño invita. Sin scopes se aplican pet:read, care:read y metrics:read. Re-invitar al mismo usuario actualiza la invitación existente.
// @Tags grants
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Param payload body inviteGrantRequest true "Delegado, scopes y vencimiento opcional"
// @Success 201 {object} grantResponse
// @Failure 400 {string} string "invalid json / scope desconocido"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/grants [post]
func inviteGrantHandler(svc *Service, petOwners PetOwnerLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireOwner(w, r, petOwners)
		if !ok {
			return
		}

		var req inviteGrantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		g, err := svc.Invite(r.Context(), InviteInput{
			PetID:         chi.URLParam(r, "petID"),
			OwnerUserID:   userID,
			GranteeUserID: req.GranteeUserID,
			Scopes:        req.Scopes,
			ExpiresAt:     req.ExpiresAt,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		respond.JSON(w, http.StatusCreated, toGrantResponse(g, svc.clock.Now()))
	}
}

// listGrantsByPetHandler godoc
// @Summary Grants de una mascota
// @Tags grants
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Success 200 {array} grantResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/grants [get]
func listGrantsByPetHandler(svc *Service, petOwners PetOwnerLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireOwner(w, r, petOwners); !ok {
			return
		}

		items, err := svc.ListByPet(r.Context(), chi.URLParam(r, "petID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, toGrantResponses(items, svc.clock.Now()))
	}
}

// listMyGrantsHandler godoc
// @Summary Mis invitaciones y grants
// @Tags grants
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param status query string false "CSV de invited,active,revoked,expired"
// @Success 200 {array} grantResponse
// @Failure 401 {string} string "unauthorized"
// @Router /me/grants [get]
func listMyGrantsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok {
			respond.Unauthorized(w)
			return
		}

		items, err := svc.ListByGrantee(r.Context(), claims.UserID, parseStatuses(r.URL.Query().Get("status"))...)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, toGrantResponses(items, svc.clock.Now()))
	}
}

// acceptGrantHandler godoc
// @Summary Aceptar invitación
// @Tags grants
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param grantID path string true "ID del grant"
// @Success 200 {object} grantResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "grant not found"
// @Failure 409 {string} string "revocado o vencido"
// @Router /grants/{grantID}/accept [post]
func acceptGrantHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok {
			respond.Unauthorized(w)
			return
		}

		g, err := svc.Accept(r.Context(), chi.URLParam(r, "grantID"), claims.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, toGrantResponse(g, svc.clock.Now()))
	}
}

// revokeGrantHandler godoc
// @Summary Revocar grant
// @Tags grants
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param grantID path string true "ID del grant"
// @Success 200 {object} grantResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "grant not found"
// @Router /grants/{grantID}/revoke [post]
func revokeGrantHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok {
			respond.Unauthorized(w)
			return
		}

		g, err := svc.Revoke(r.Context(), chi.URLParam(r, "grantID"), claims.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, toGrantResponse(g, svc.clock.Now()))
	}
}

// requireOwner corta con 401/404/403 si el usuario no es dueño de {petID}.
func requireOwner(w http.ResponseWriter, r *http.Request, petOwners PetOwnerLookup) (string, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		respond.Unauthorized(w)
		return "", false
	}

	ownerID, err := petOwners.OwnerOf(r.Context(), chi.URLParam(r, "petID"))
	if err != nil || ownerID == "" {
		http.Error(w, "pet not found", http.StatusNotFound)
		return "", false
	}
	if ownerID != claims.UserID {
		respond.Forbidden(w)
		return "", false
	}
	return claims.UserID, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		respond.Forbidden(w)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "grant not found", http.StatusNotFound)
	case errors.Is(err, ErrBadState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		respond.Internal(w)
	}
}

func toGrantResponse(g Grant, now time.Time) grantResponse {
	return grantResponse{
		ID:            g.ID,
		PetID:         g.PetID,
		OwnerUserID:   g.OwnerUserID,
		GranteeUserID: g.GranteeUserID,
		Scopes:        g.Scopes,
		Status:        g.EffectiveStatus(now),
		ExpiresAt:     g.ExpiresAt,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
		RevokedAt:     g.RevokedAt,
	}
}

func toGrantResponses(gs []Grant, now time.Time) []grantResponse {
	out := make([]grantResponse, 0, len(gs))
	for _, g := range gs {
		out = append(out, toGrantResponse(g, now))
	}
	return out
}

// parseStatuses lee "invited,active" (CSV opcional).
func parseStatuses(raw string) []Status {
	var out []Status
	for _, p := range strings.Split(raw, ",") {
		if s := Status(strings.TrimSpace(p)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
