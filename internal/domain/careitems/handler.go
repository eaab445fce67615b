package careitems

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"pet-health-tracker/internal/domain/accessgrants"
	"pet-health-tracker/internal/domain/pets"
	"pet-health-tracker/internal/middleware"
	"pet-health-tracker/internal/platform/caldate"
	"pet-health-tracker/internal/platform/respond"
	"pet-health-tracker/internal/platform/validate"

	"github.com/go-chi/chi/v5"
)

// maxOccurrenceRangeDays acota /occurrences (un año bisiesto completo).
const maxOccurrenceRangeDays = 366

func RegisterRoutes(r chi.Router, svc *Service, petsSvc *pets.Service, grantsSvc *accessgrants.Service) {
	r.Route("/pets/{petID}/care-items", func(cr chi.Router) {
		cr.Post("/", createCareItemHandler(svc, petsSvc, grantsSvc))
		cr.Get("/", listCareItemsHandler(svc, petsSvc, grantsSvc))
		cr.Get("/occurrences", listOccurrencesHandler(svc, petsSvc, grantsSvc))

		cr.Get("/{itemID}", getCareItemHandler(svc, petsSvc, grantsSvc))
		cr.Patch("/{itemID}", updateCareItemHandler(svc, petsSvc, grantsSvc))
		cr.Delete("/{itemID}", deleteCareItemHandler(svc, petsSvc, grantsSvc))

		cr.Post("/{itemID}/complete", completeCareItemHandler(svc, petsSvc, grantsSvc))
		cr.Post("/{itemID}/delay", delayCareItemHandler(svc, petsSvc, grantsSvc))
	})
}

// createCareItemRequest es el cuerpo para agendar una medicación o vacuna.
type createCareItemRequest struct {
	Kind               Kind               `json:"kind" validate:"required,oneof=medication vaccination" enums:"medication,vaccination"`
	Name               string             `json:"name" validate:"required,max=120"`
	DueDate            caldate.Date       `json:"due_date" swaggertype:"string" example:"2024-01-01"`
	DueTime            *caldate.TimeOfDay `json:"due_time" swaggertype:"string" example:"08:30"`
	Repeat             bool               `json:"repeat"`
	RepeatIntervalDays int                `json:"repeat_interval_days" validate:"gte=0,lte=3650"`
	ExpiresAt          *time.Time         `json:"expires_at"` // RFC3339, sólo medicaciones
	Dosage             string             `json:"dosage" validate:"max=120"`
	Notes              string             `json:"notes" validate:"max=2000"`
}

type updateCareItemRequest struct {
	// Punteros para PATCH real: nil = no tocar. due_time/expires_at en null = limpiar.
	Name               *string            `json:"name" validate:"omitempty,min=1,max=120"`
	Dosage             *string            `json:"dosage" validate:"omitempty,max=120"`
	Notes              *string            `json:"notes" validate:"omitempty,max=2000"`
	DueDate            *caldate.Date      `json:"due_date" swaggertype:"string"`
	DueTime            *caldate.TimeOfDay `json:"due_time" swaggertype:"string"`
	Repeat             *bool              `json:"repeat"`
	RepeatIntervalDays *int               `json:"repeat_interval_days" validate:"omitempty,gte=0,lte=3650"`
	ExpiresAt          *time.Time         `json:"expires_at"`
}

type careItemResponse struct {
	ID                 string             `json:"id"`
	PetID              string             `json:"pet_id"`
	Kind               Kind               `json:"kind"`
	Name               string             `json:"name"`
	DueDate            caldate.Date       `json:"due_date" swaggertype:"string"`
	DueTime            *caldate.TimeOfDay `json:"due_time,omitempty" swaggertype:"string"`
	Repeat             bool               `json:"repeat"`
	RepeatIntervalDays int                `json:"repeat_interval_days,omitempty"`
	Completed          bool               `json:"completed"`
	CompletedAt        *time.Time         `json:"completed_at,omitempty"`
	ExpiresAt          *time.Time         `json:"expires_at,omitempty"`
	Dosage             string             `json:"dosage,omitempty"`
	Notes              string             `json:"notes,omitempty"`
	PreviousID         string             `json:"previous_id,omitempty"`
	Status             Status             `json:"status"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

type completeResponse struct {
	Outcome   Outcome           `json:"outcome"`
	Completed careItemResponse  `json:"completed"`
	Successor *careItemResponse `json:"successor,omitempty"`
}

type occurrenceResponse struct {
	Occurrence
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
}

// createCareItemHandler godoc
// @Summary Agendar medicación o vacuna
// @Description Crea un item de cuidado. Si repeat es true, repeat_interval_days debe ser > 0. El vencimiento no puede ser anterior al nacimiento de la mascota. El dueño siempre puede crear. Un delegado necesita scope `care:write`.
// @Tags care-items
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Param tz query string false "Zona IANA para calcular status (default UTC)"
// @Param payload body createCareItemRequest true "Item; due_date YYYY-MM-DD, due_time HH:MM"
// @Success 201 {object} careItemResponse
// @Failure 400 {string} string "invalid json / reglas de negocio"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/care-items [post]
func createCareItemHandler(svc *Service, petsSvc *pets.Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := authorizePet(w, r, petsSvc, grantsSvc, accessgrants.ScopeCareWrite)
		if !ok {
			return
		}
		loc, ok := locationParam(w, r)
		if !ok {
			return
		}

		var req createCareItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		item, err := svc.Create(r.Context(), p.ID, p.OwnerUserID, CreateInput{
			Kind:               req.Kind,
			Name:               req.Name,
			DueDate:            req.DueDate,
			DueTime:            req.DueTime,
			Repeat:             req.Repeat,
			RepeatIntervalDays: req.RepeatIntervalDays,
			ExpiresAt:          req.ExpiresAt,
			Dosage:             req.Dosage,
			Notes:              req.Notes,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		respond.JSON(w, http.StatusCreated, toCareItemResponse(item, svc.Now(), loc))
	}
}

// listCareItemsHandler godoc
// @Summary Listar agenda de cuidados
// @Description Lista los items ordenados por vencimiento. Antes de responder repara sucesores pendientes de series repetitivas. Un delegado necesita scope `care:read`.
// @Tags care-items
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Param kind query string false "medication | vaccination"
// @Param include_completed query bool false "Incluir completados (default false)"
// @Param tz query string false "Zona IANA para calcular status (default UTC)"
// @Success 200 {array} careItemResponse
// @Failure 400 {string} string "Parámetros inválidos"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Failure 500 {string} string "internal error"
// @Router /pets/{petID}/care-items [get]
func listCareItemsHandler(svc *Service, petsSvc *pets.Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := authorizePet(w, r, petsSvc, grantsSvc, accessgrants.ScopeCareRead)
		if !ok {
			return
		}
		loc, ok := locationParam(w, r)
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
			respond.Internal(w)
			return
		}

		now := svc.Now()
		out := make([]careItemResponse, 0, len(items))
		for _, it := range items {
			out = append(out, toCareItemResponse(it, now, loc))
		}
		respond.JSON(w, http.StatusOK, out)
	}
}

// listOccurrencesHandler godoc
// @Summary Proyectar ocurrencias
// @Description Expande los items pendientes (repetitivos o no) sobre el rango [from, to], como máximo 366 días.
// @Tags care-items
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Param from query string true "Fecha inicial YYYY-MM-DD"
// @Param to query string true "Fecha final YYYY-MM-DD"
// @Param kind query string false "medication | vaccination"
// @Success 200 {array} occurrenceResponse
// @Failure 400 {string} string "Rango inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/care-items/occurrences [get]
func listOccurrencesHandler(svc *Service, petsSvc *pets.Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := authorizePet(w, r, petsSvc, grantsSvc, accessgrants.ScopeCareRead)
		if !ok {
			return
		}

		q := r.URL.Query()
		from, err := caldate.Parse(q.Get("from"))
		if err != nil {
			http.Error(w, "from must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		to, err := caldate.Parse(q.Get("to"))
		if err != nil {
			http.Error(w, "to must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		if from.After(to) || from.DaysUntil(to) >= maxOccurrenceRangeDays {
			http.Error(w, "range must be ascending and at most 366 days", http.StatusBadRequest)
			return
		}

		filter, err := parseListFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.IncludeCompleted = false

		items, err := svc.ListByPet(r.Context(), p.OwnerUserID, p.ID, filter)
		if err != nil {
			respond.Internal(w)
			return
		}

		out := make([]occurrenceResponse, 0)
		for _, it := range items {
			for _, occ := range ProjectOccurrences(it, from, to) {
				out = append(out, occurrenceResponse{Occurrence: occ, Kind: it.Kind, Name: it.Name})
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i], out[j]
			if c := a.Date.Compare(b.Date); c != 0 {
				return c < 0
			}
			if a.Time != b.Time {
				return a.Time < b.Time
			}
			return a.CareItemID < b.CareItemID
		})

		respond.JSON(w, http.StatusOK, out)
	}
}

// getCareItemHandler godoc
// @Summary Obtener item de cuidado
// @Tags care-items
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Param itemID path string true "ID del item"
// @Param tz query string false "Zona IANA para calcular status (default UTC)"
// @Success 200 {object} careItemResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "care item not found"
// @Router /pets/{petID}/care-items/{itemID} [get]
func getCareItemHandler(svc *Service, petsSvc *pets.Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := authorizePet(w, r, petsSvc, grantsSvc, accessgrants.ScopeCareRead)
		if !ok {
			return
		}
		loc, ok := locationParam(w, r)
		if !ok {
			return
		}

		item, ok := loadItem(w, r, svc, p)
		if !ok {
			return
		}
		respond.JSON(w, http.StatusOK, toCareItemResponse(item, svc.Now(), loc))
	}
}

// updateCareItemHandler godoc
// @Summary Editar item de cuidado
// @Description PATCH parcial. Cambios de fecha, hora o repetición sólo sobre items pendientes (409 si está completado). due_time y expires_at aceptan null para limpiar.
// @Tags care-items
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Param itemID path string true "ID del item"
// @Param tz query string false "Zona IANA para calcular status (default UTC)"
// @Param payload body updateCareItemRequest true "Campos a modificar"
// @Success 200 {object} careItemResponse
// @Failure 400 {string} string "invalid json / reglas de negocio"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "care item not found"
// @Failure 409 {string} string "invalid state"
// @Router /pets/{petID}/care-items/{itemID} [patch]
func updateCareItemHandler(svc *Service, petsSvc *pets.Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := authorizePet(w, r, petsSvc, grantsSvc, accessgrants.ScopeCareWrite)
		if !ok {
			return
		}
		loc, ok := locationParam(w, r)
		if !ok {
			return
		}
		if _, ok := loadItem(w, r, svc, p); !ok {
			return
		}

		// Mismo truco que el PATCH de mascotas: decodificar a map para
		// distinguir "null" de "no enviado".
		var raw map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		var req updateCareItemRequest
		{
			b, _ := json.Marshal(raw)
			if err := json.Unmarshal(b, &req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		in := UpdateInput{
			Name:               req.Name,
			Dosage:             req.Dosage,
			Notes:              req.Notes,
			DueDate:            req.DueDate,
			DueTime:            req.DueTime,
			Repeat:             req.Repeat,
			RepeatIntervalDays: req.RepeatIntervalDays,
			ExpiresAt:          req.ExpiresAt,
		}
		if v, exists := raw["due_time"]; exists && string(v) == "null" {
			in.ClearDueTime = true
		}
		if v, exists := raw["expires_at"]; exists && string(v) == "null" {
			in.ClearExpiresAt = true
		}

		updated, err := svc.Update(r.Context(), chi.URLParam(r, "itemID"), in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, toCareItemResponse(updated, svc.Now(), loc))
	}
}

// deleteCareItemHandler godoc
// @Summary Eliminar item de cuidado
// @Tags care-items
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Param itemID path string true "ID del item"
// @Success 204
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "care item not found"
// @Router /pets/{petID}/care-items/{itemID} [delete]
func deleteCareItemHandler(svc *Service, petsSvc *pets.Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := authorizePet(w, r, petsSvc, grantsSvc, accessgrants.ScopeCareWrite)
		if !ok {
			return
		}
		if _, ok := loadItem(w, r, svc, p); !ok {
			return
		}

		if err := svc.Delete(r.Context(), chi.URLParam(r, "itemID")); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// completeCareItemHandler godoc
// @Summary Completar item de cuidado
// @Description Marca la ocurrencia actual como completada. Si el item se repite, crea el siguiente con vencimiento + repeat_interval_days. outcome=completed_with_pending_successor indica que el sucesor se generará en la próxima lectura.
// @Tags care-items
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Param itemID path string true "ID del item"
// @Param tz query string false "Zona IANA para calcular status (default UTC)"
// @Success 200 {object} completeResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "care item not found"
// @Failure 409 {string} string "invalid state"
// @Router /pets/{petID}/care-items/{itemID}/complete [post]
func completeCareItemHandler(svc *Service, petsSvc *pets.Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := authorizePet(w, r, petsSvc, grantsSvc, accessgrants.ScopeCareWrite)
		if !ok {
			return
		}
		loc, ok := locationParam(w, r)
		if !ok {
			return
		}
		if _, ok := loadItem(w, r, svc, p); !ok {
			return
		}

		res, err := svc.Complete(r.Context(), chi.URLParam(r, "itemID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		now := svc.Now()
		out := completeResponse{
			Outcome:   res.Outcome,
			Completed: toCareItemResponse(res.Completed, now, loc),
		}
		if res.Successor != nil {
			s := toCareItemResponse(*res.Successor, now, loc)
			out.Successor = &s
		}
		respond.JSON(w, http.StatusOK, out)
	}
}

// delayCareItemHandler godoc
// @Summary Posponer un día
// @Description Corre el vencimiento exactamente un día. Sólo items pendientes.
// @Tags care-items
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Param itemID path string true "ID del item"
// @Param tz query string false "Zona IANA para calcular status (default UTC)"
// @Success 200 {object} careItemResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "care item not found"
// @Failure 409 {string} string "invalid state"
// @Router /pets/{petID}/care-items/{itemID}/delay [post]
func delayCareItemHandler(svc *Service, petsSvc *pets.Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := authorizePet(w, r, petsSvc, grantsSvc, accessgrants.ScopeCareWrite)
		if !ok {
			return
		}
		loc, ok := locationParam(w, r)
		if !ok {
			return
		}
		if _, ok := loadItem(w, r, svc, p); !ok {
			return
		}

		delayed, err := svc.Delay(r.Context(), chi.URLParam(r, "itemID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, toCareItemResponse(delayed, svc.Now(), loc))
	}
}

// authorizePet: owner bypass, delegado con grant activo + scope.
func authorizePet(w http.ResponseWriter, r *http.Request, petsSvc *pets.Service, grantsSvc *accessgrants.Service, scope accessgrants.Scope) (pets.Pet, bool) {
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

	if _, err := grantsSvc.Authorize(r.Context(), p.ID, p.OwnerUserID, claims.UserID, scope); err != nil {
		respond.Forbidden(w)
		return pets.Pet{}, false
	}
	return p, true
}

// loadItem verifica que el item exista y pertenezca a la mascota de la URL.
func loadItem(w http.ResponseWriter, r *http.Request, svc *Service, p pets.Pet) (CareItem, bool) {
	item, err := svc.GetByID(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil || item.PetID != p.ID {
		http.Error(w, "care item not found", http.StatusNotFound)
		return CareItem{}, false
	}
	return item, true
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

func parseListFilter(r *http.Request) (ListFilter, error) {
	var filter ListFilter
	q := r.URL.Query()

	if v := strings.TrimSpace(q.Get("kind")); v != "" {
		k := Kind(strings.ToLower(v))
		if !k.Valid() {
			return ListFilter{}, errors.New("kind must be medication or vaccination")
		}
		filter.Kind = k
	}
	if v := strings.TrimSpace(q.Get("include_completed")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ListFilter{}, errors.New("include_completed must be a boolean")
		}
		filter.IncludeCompleted = b
	}
	return filter, nil
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "care item not found", http.StatusNotFound)
	case errors.Is(err, ErrBadState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		respond.Internal(w)
	}
}

func toCareItemResponse(it CareItem, now time.Time, loc *time.Location) careItemResponse {
	return careItemResponse{
		ID:                 it.ID,
		PetID:              it.PetID,
		Kind:               it.Kind,
		Name:               it.Name,
		DueDate:            it.DueDate,
		DueTime:            it.DueTime,
		Repeat:             it.Repeat,
		RepeatIntervalDays: it.RepeatIntervalDays,
		Completed:          it.Completed,
		CompletedAt:        it.CompletedAt,
		ExpiresAt:          it.ExpiresAt,
		Dosage:             it.Dosage,
		Notes:              it.Notes,
		PreviousID:         it.PreviousID,
		Status:             Classify(it, now, loc),
		CreatedAt:          it.CreatedAt,
		UpdatedAt:          it.UpdatedAt,
	}
}
