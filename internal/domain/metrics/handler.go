package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pet-health-tracker/internal/domain/accessgrants"
	"pet-health-tracker/internal/domain/pets"
	"pet-health-tracker/internal/middleware"
	"pet-health-tracker/internal/platform/respond"
	"pet-health-tracker/internal/platform/validate"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, petsSvc *pets.Service, grantsSvc *accessgrants.Service) {
	r.Route("/pets/{petID}/metrics", func(mr chi.Router) {
		mr.Post("/", createRecordHandler(svc, petsSvc, grantsSvc))
		mr.Get("/", listRecordsHandler(svc, petsSvc, grantsSvc))
		mr.Get("/{recordID}", getRecordHandler(svc, petsSvc, grantsSvc))
	})
}

// createRecordRequest es el cuerpo para registrar una observación de salud.
type createRecordRequest struct {
	RecordedAt    string   `json:"recorded_at"` // RFC3339, opcional (default: ahora)
	WeightKg      *float64 `json:"weight_kg" validate:"omitempty,gt=0"`
	ActivityLevel *int     `json:"activity_level" validate:"omitempty,gte=1,lte=10"`
	FoodIntake    string   `json:"food_intake" validate:"max=64"`
	SleepHours    *float64 `json:"sleep_hours" validate:"omitempty,gte=0,lte=24"`
	Behavior      string   `json:"behavior" validate:"max=120"`
	Notes         string   `json:"notes" validate:"max=2000"`
	Source        Source   `json:"source" validate:"omitempty,oneof=manual integration" enums:"manual,integration"`
}

type recordResponse struct {
	ID            string    `json:"id"`
	PetID         string    `json:"pet_id"`
	RecordedAt    time.Time `json:"recorded_at"`
	CreatedAt     time.Time `json:"created_at"`
	WeightKg      *float64  `json:"weight_kg,omitempty"`
	ActivityLevel *int      `json:"activity_level,omitempty"`
	FoodIntake    string    `json:"food_intake,omitempty"`
	SleepHours    *float64  `json:"sleep_hours,omitempty"`
	Behavior      string    `json:"behavior,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	ActorType     ActorType `json:"actor_type"`
	ActorID       string    `json:"actor_id"`
	Source        Source    `json:"source"`
}

// createRecordHandler godoc
// @Summary Registrar métricas de la mascota
// @Description Registra una observación (peso, actividad, ingesta, sueño, comportamiento, notas). Debe venir al menos un campo. El dueño siempre puede registrar. Un delegado necesita un grant activo con scope `metrics:create`. Autenticación: `X-Debug-User-ID` (dev) o `Authorization: Bearer <token>` (prod).
// @Tags metrics
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Param payload body createRecordRequest true "Observación; recorded_at en formato RFC3339"
// @Success 201 {object} recordResponse
// @Failure 400 {string} string "invalid json / recorded_at inválido / rangos"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/metrics [post]
func createRecordHandler(svc *Service, petsSvc *pets.Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, userID, delegate, ok := authorizePet(w, r, petsSvc, grantsSvc, accessgrants.ScopeMetricsCreate)
		if !ok {
			return
		}

		var req createRecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var at time.Time
		if v := strings.TrimSpace(req.RecordedAt); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				http.Error(w, "recorded_at must be RFC3339", http.StatusBadRequest)
				return
			}
			at = t
		}

		actor := Actor{Type: ActorTypeOwnerUser, ID: userID}
		if delegate {
			actor.Type = ActorTypeDelegateUser
		}

		rec, err := svc.Create(r.Context(), p.ID, p.OwnerUserID, actor, CreateInput{
			RecordedAt:    at,
			WeightKg:      req.WeightKg,
			ActivityLevel: req.ActivityLevel,
			FoodIntake:    req.FoodIntake,
			SleepHours:    req.SleepHours,
			Behavior:      req.Behavior,
			Notes:         req.Notes,
			Source:        req.Source,
		})
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			respond.Internal(w)
			return
		}

		respond.JSON(w, http.StatusCreated, toRecordResponse(rec))
	}
}

// listRecordsHandler godoc
// @Summary Listar métricas de una mascota
// @Description Lista observaciones en orden cronológico. Un delegado necesita scope `metrics:read`.
// @Tags metrics
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Param from query string false "Fecha/hora mínima recorded_at (RFC3339)"
// @Param to query string false "Fecha/hora máxima recorded_at (RFC3339)"
// @Param limit query int false "Máximo de registros (1-500). Por defecto 100"
// @Success 200 {array} recordResponse
// @Failure 400 {string} string "Parámetros de filtro inválidos"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Failure 500 {string} string "internal error"
// @Router /pets/{petID}/metrics [get]
func listRecordsHandler(svc *Service, petsSvc *pets.Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _, _, ok := authorizePet(w, r, petsSvc, grantsSvc, accessgrants.ScopeMetricsRead)
		if !ok {
			return
		}

		filter, err := parseListFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		items, err := svc.ListByPet(r.Context(), p.OwnerUserID, p.ID, filter)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			respond.Internal(w)
			return
		}

		out := make([]recordResponse, 0, len(items))
		for _, rec := range items {
			out = append(out, toRecordResponse(rec))
		}
		respond.JSON(w, http.StatusOK, out)
	}
}

// getRecordHandler godoc
// @Summary Obtener un registro de métricas
// @Tags metrics
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Param recordID path string true "ID del registro"
// @Success 200 {object} recordResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "record not found"
// @Router /pets/{petID}/metrics/{recordID} [get]
func getRecordHandler(svc *Service, petsSvc *pets.Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _, _, ok := authorizePet(w, r, petsSvc, grantsSvc, accessgrants.ScopeMetricsRead)
		if !ok {
			return
		}

		rec, err := svc.GetByID(r.Context(), chi.URLParam(r, "recordID"))
		if err != nil || rec.PetID != p.ID {
			http.Error(w, "record not found", http.StatusNotFound)
			return
		}
		respond.JSON(w, http.StatusOK, toRecordResponse(rec))
	}
}

// authorizePet resuelve claims, mascota y permisos. Si devuelve ok=false ya
// escribió la respuesta.
func authorizePet(w http.ResponseWriter, r *http.Request, petsSvc *pets.Service, grantsSvc *accessgrants.Service, scope accessgrants.Scope) (pets.Pet, string, bool, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		respond.Unauthorized(w)
		return pets.Pet{}, "", false, false
	}

	p, err := petsSvc.GetByID(r.Context(), chi.URLParam(r, "petID"))
	if err != nil {
		http.Error(w, "pet not found", http.StatusNotFound)
		return pets.Pet{}, "", false, false
	}

	delegate, err := grantsSvc.Authorize(r.Context(), p.ID, p.OwnerUserID, claims.UserID, scope)
	if err != nil {
		respond.Forbidden(w)
		return pets.Pet{}, "", false, false
	}
	return p, claims.UserID, delegate, true
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	filter := ListFilter{Limit: limit}

	if v := strings.TrimSpace(r.URL.Query().Get("from")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return ListFilter{}, errors.New("from must be RFC3339")
		}
		filter.From = &t
	}
	if v := strings.TrimSpace(r.URL.Query().Get("to")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return ListFilter{}, errors.New("to must be RFC3339")
		}
		filter.To = &t
	}

	return filter, nil
}

func toRecordResponse(rec Record) recordResponse {
	return recordResponse{
		ID:            rec.ID,
		PetID:         rec.PetID,
		RecordedAt:    rec.RecordedAt,
		CreatedAt:     rec.CreatedAt,
		WeightKg:      rec.WeightKg,
		ActivityLevel: rec.ActivityLevel,
		FoodIntake:    rec.FoodIntake,
		SleepHours:    rec.SleepHours,
		Behavior:      rec.Behavior,
		Notes:         rec.Notes,
		ActorType:     rec.Actor.Type,
		ActorID:       rec.Actor.ID,
		Source:        rec.Source,
	}
}
