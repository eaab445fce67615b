package calendar

import (
	"net/http"
	"strings"
	"time"

	"pet-health-tracker/internal/domain/accessgrants"
	"pet-health-tracker/internal/domain/pets"
	"pet-health-tracker/internal/middleware"
	"pet-health-tracker/internal/platform/caldate"
	"pet-health-tracker/internal/platform/respond"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, petsSvc *pets.Service, grantsSvc *accessgrants.Service) {
	r.Get("/pets/{petID}/calendar", monthHandler(svc, petsSvc, grantsSvc))
	r.Get("/pets/{petID}/timeline", timelineHandler(svc, petsSvc, grantsSvc))
}

// monthHandler godoc
// @Summary Calendario mensual de salud
// @Description Por cada día del mes: tipos de métrica registrados, cantidad de registros y ocurrencias proyectadas de medicaciones y vacunas. Un delegado necesita scopes `care:read` y `metrics:read`.
// @Tags calendar
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Param month query string false "Mes YYYY-MM (default: mes actual)"
// @Param tz query string false "Zona IANA (default UTC)"
// @Success 200 {object} Month
// @Failure 400 {string} string "month/tz inválidos"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Failure 500 {string} string "internal error"
// @Router /pets/{petID}/calendar [get]
func monthHandler(svc *Service, petsSvc *pets.Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := authorizePet(w, r, petsSvc, grantsSvc)
		if !ok {
			return
		}
		loc, ok := locationParam(w, r)
		if !ok {
			return
		}

		today := svc.Today(loc)
		year, month := today.Year(), today.Month()
		if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
			t, err := time.Parse("2006-01", v)
			if err != nil {
				http.Error(w, "month must be YYYY-MM", http.StatusBadRequest)
				return
			}
			year, month = t.Year(), t.Month()
		}

		out, err := svc.Month(r.Context(), p.OwnerUserID, p.ID, year, month, loc)
		if err != nil {
			respond.Internal(w)
			return
		}
		respond.JSON(w, http.StatusOK, out)
	}
}

// timelineHandler godoc
// @Summary Timeline de un día
// @Description Métricas (una entrada por campo) y ocurrencias de cuidados del día, ordenadas por hora. Un delegado necesita scopes `care:read` y `metrics:read`.
// @Tags calendar
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Param date query string false "Día YYYY-MM-DD (default: hoy)"
// @Param tz query string false "Zona IANA (default UTC)"
// @Success 200 {array} TimelineEntry
// @Failure 400 {string} string "date/tz inválidos"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Failure 500 {string} string "internal error"
// @Router /pets/{petID}/timeline [get]
func timelineHandler(svc *Service, petsSvc *pets.Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := authorizePet(w, r, petsSvc, grantsSvc)
		if !ok {
			return
		}
		loc, ok := locationParam(w, r)
		if !ok {
			return
		}

		date := svc.Today(loc)
		if v := strings.TrimSpace(r.URL.Query().Get("date")); v != "" {
			d, err := caldate.Parse(v)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			date = d
		}

		out, err := svc.Timeline(r.Context(), p.OwnerUserID, p.ID, date, loc)
		if err != nil {
			respond.Internal(w)
			return
		}
		respond.JSON(w, http.StatusOK, out)
	}
}

// authorizePet: el calendario mezcla cuidados y métricas, el delegado necesita ambos scopes.
func authorizePet(w http.ResponseWriter, r *http.Request, petsSvc *pets.Service, grantsSvc *accessgrants.Service) (pets.Pet, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		respond.Unauthorized(w)
		return pets.Pet{}, false
	}

	p, err := petsSvc.GetByID(r.Context(), chi.URLParam(r, "petID"))
	if err != nil {
		http.Error(w, "pet not found", http.StatusNotFound)
		return pets.Pet{}, false
	}

	for _, scope := range []accessgrants.Scope{accessgrants.ScopeCareRead, accessgrants.ScopeMetricsRead} {
		if _, err := grantsSvc.Authorize(r.Context(), p.ID, p.OwnerUserID, claims.UserID, scope); err != nil {
			respond.Forbidden(w)
			return pets.Pet{}, false
		}
	}
	return p, true
}

func locationParam(w http.ResponseWriter, r *http.Request) (*time.Location, bool) {
	tz := strings.TrimSpace(r.URL.Query().Get("tz"))
	if tz == "" {
		return time.UTC, true
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		http.Error(w, "tz must be an IANA time zone", http.StatusBadRequest)
		return nil, false
	}
	return loc, true
}
