package pets

import (
	"context"

	"pet-health-tracker/internal/platform/caldate"
)

// OwnerOf lo usa accessgrants sin importar este paquete.
func (s *Service) OwnerOf(ctx context.Context, petID string) (string, error) {
	p, err := s.GetByID(ctx, petID)
	if err != nil {
		return "", err
	}
	return p.OwnerUserID, nil
}

// BirthDateOf alimenta la regla "ningún vencimiento antes del nacimiento" de careitems.
func (s *Service) BirthDateOf(ctx context.Context, petID string) (*caldate.Date, error) {
	p, err := s.GetByID(ctx, petID)
	if err != nil {
		return nil, err
	}
	return p.BirthDate, nil
}
