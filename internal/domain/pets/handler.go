package pets

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"pet-health-tracker/internal/domain/accessgrants"
	"pet-health-tracker/internal/middleware"
	"pet-health-tracker/internal/platform/caldate"
	"pet-health-tracker/internal/platform/respond"
	"pet-health-tracker/internal/platform/validate"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, grantsSvc *accessgrants.Service) {
	r.Route("/pets", func(pr chi.Router) {
		pr.Post("/", createPetHandler(svc))
		pr.Get("/", listPetsHandler(svc))
		pr.Get("/{petID}", getPetHandler(svc, grantsSvc))
		pr.Patch("/{petID}", updatePetHandler(svc, grantsSvc))
	})

	r.Get("/me/pets", listMySharedPetsHandler(svc, grantsSvc))
}

type createPetRequest struct {
	Name      string        `json:"name" validate:"required,max=80"`
	Species   string        `json:"species" enums:"dog,cat,other"`
	Breed     string        `json:"breed" validate:"max=80"`
	Sex       string        `json:"sex" enums:"male,female,unknown"`
	BirthDate *caldate.Date `json:"birth_date" swaggertype:"string" example:"2020-03-01"`
	Microchip string        `json:"microchip" validate:"max=40"`
	Notes     string        `json:"notes" validate:"max=2000"`
}

type updatePetRequest struct {
	Name      *string      `json:"name" validate:"omitempty,min=1,max=80"`
	Species   *string      `json:"species"`
	Breed     *string      `json:"breed" validate:"omitempty,max=80"`
	Sex       *string      `json:"sex"`
	BirthDate OptionalDate `json:"birth_date" swaggertype:"string"` // null = limpiar
	Microchip *string      `json:"microchip" validate:"omitempty,max=40"`
	Notes     *string      `json:"notes" validate:"omitempty,max=2000"`
}

type petResponse struct {
	ID          string        `json:"id"`
	OwnerUserID string        `json:"owner_user_id"`
	Name        string        `json:"name"`
	Species     Species       `json:"species"`
	Breed       string        `json:"breed,omitempty"`
	Sex         Sex           `json:"sex"`
	BirthDate   *caldate.Date `json:"birth_date,omitempty" swaggertype:"string"`
	Microchip   string        `json:"microchip,omitempty"`
	Notes       string        `json:"notes,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type sharedPetResponse struct {
	Pet     petResponse          `json:"pet"`
	GrantID string               `json:"grant_id"`
	Scopes  []accessgrants.Scope `json:"scopes"`
}

// createPetHandler godoc
// @Summary Registrar mascota
// @Description Crea una mascota cuyo dueño es el usuario autenticado.
// @Tags pets
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body createPetRequest true "Datos de la mascota; birth_date en formato YYYY-MM-DD"
// @Success 201 {object} petResponse
// @Failure 400 {string} string "invalid json / birth_date inválido"
// @Failure 401 {string} string "unauthorized"
// @Router /pets [post]
func createPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok {
			respond.Unauthorized(w)
			return
		}

		var req createPetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		p, err := svc.Create(r.Context(), claims.UserID, CreateInput{
			Name:      req.Name,
			Species:   req.Species,
			Breed:     req.Breed,
			Sex:       req.Sex,
			BirthDate: req.BirthDate,
			Microchip: req.Microchip,
			Notes:     req.Notes,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		respond.JSON(w, http.StatusCreated, toPetResponse(p))
	}
}

// listPetsHandler godoc
// @Summary Mis mascotas
// @Description Sólo las mascotas propias; las compartidas están en /me/pets.
// @Tags pets
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} petResponse
// @Failure 401 {string} string "unauthorized"
// @Router /pets [get]
func listPetsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok {
			respond.Unauthorized(w)
			return
		}

		items, err := svc.ListByOwner(r.Context(), claims.UserID)
		if err != nil {
			respond.Internal(w)
			return
		}

		out := make([]petResponse, 0, len(items))
		for _, p := range items {
			out = append(out, toPetResponse(p))
		}
		respond.JSON(w, http.StatusOK, out)
	}
}

// getPetHandler godoc
// @Summary Perfil de mascota
// @Description El dueño siempre puede verlo. Un delegado necesita un grant activo con scope `pet:read`.
// @Tags pets
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Success 200 {object} petResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID} [get]
func getPetHandler(svc *Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := authorizePet(w, r, svc, grantsSvc, accessgrants.ScopePetRead)
		if !ok {
			return
		}
		respond.JSON(w, http.StatusOK, toPetResponse(p))
	}
}

// updatePetHandler godoc
// @Summary Editar perfil
// @Description PATCH parcial. `birth_date: null` limpia la fecha. Un delegado necesita scope `pet:edit_profile`.
// @Tags pets
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Param payload body updatePetRequest true "Campos a modificar"
// @Success 200 {object} petResponse
// @Failure 400 {string} string "invalid json / reglas de negocio"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID} [patch]
func updatePetHandler(svc *Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := authorizePet(w, r, svc, grantsSvc, accessgrants.ScopePetEditProfile)
		if !ok {
			return
		}

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req updatePetRequest
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		updated, err := svc.UpdateProfile(r.Context(), p.ID, UpdateProfileInput{
			Name:      req.Name,
			Species:   req.Species,
			Breed:     req.Breed,
			Sex:       req.Sex,
			BirthDate: req.BirthDate,
			Microchip: req.Microchip,
			Notes:     req.Notes,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		respond.JSON(w, http.StatusOK, toPetResponse(updated))
	}
}

// listMySharedPetsHandler godoc
// @Summary Mascotas compartidas conmigo
// @Description Mascotas con un grant activo y vigente que incluye `pet:read`.
// @Tags pets
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} sharedPetResponse
// @Failure 401 {string} string "unauthorized"
// @Router /me/pets [get]
func listMySharedPetsHandler(svc *Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok {
			respond.Unauthorized(w)
			return
		}

		grants, err := grantsSvc.ListByGrantee(r.Context(), claims.UserID, accessgrants.StatusActive)
		if err != nil {
			respond.Internal(w)
			return
		}

		seen := map[string]struct{}{}
		out := make([]sharedPetResponse, 0, len(grants))
		for _, g := range grants {
			if !g.Has(accessgrants.ScopePetRead) {
				continue
			}
			if _, dup := seen[g.PetID]; dup {
				continue
			}
			seen[g.PetID] = struct{}{}

			p, err := svc.GetByID(r.Context(), g.PetID)
			if err != nil {
				// grant huérfano
				continue
			}
			out = append(out, sharedPetResponse{Pet: toPetResponse(p), GrantID: g.ID, Scopes: g.Scopes})
		}

		respond.JSON(w, http.StatusOK, out)
	}
}

func authorizePet(w http.ResponseWriter, r *http.Request, svc *Service, grantsSvc *accessgrants.Service, scope accessgrants.Scope) (Pet, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		respond.Unauthorized(w)
		return Pet{}, false
	}

	p, err := svc.GetByID(r.Context(), chi.URLParam(r, "petID"))
	if err != nil {
		writeServiceError(w, err)
		return Pet{}, false
	}

	if _, err := grantsSvc.Authorize(r.Context(), p.ID, p.OwnerUserID, claims.UserID, scope); err != nil {
		respond.Forbidden(w)
		return Pet{}, false
	}
	return p, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "pet not found", http.StatusNotFound)
	default:
		respond.Internal(w)
	}
}

func toPetResponse(p Pet) petResponse {
	return petResponse{
		ID:          p.ID,
		OwnerUserID: p.OwnerUserID,
		Name:        p.Name,
		Species:     p.Species,
		Breed:       p.Breed,
		Sex:         p.Sex,
		BirthDate:   p.BirthDate,
		Microchip:   p.Microchip,
		Notes:       p.Notes,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
