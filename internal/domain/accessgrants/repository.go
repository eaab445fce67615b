package accessgrants

import "context"

// Repository devuelve ErrNotFound cuando el grant no existe.
type Repository interface {
	Create(ctx context.Context, g Grant) error
	Update(ctx context.Context, g Grant) error
	GetByID(ctx context.Context, id string) (Grant, error)
	ListByPet(ctx context.Context, petID string) ([]Grant, error)
	ListByGrantee(ctx context.Context, granteeUserID string) ([]Grant, error)
	// FindActive devuelve el grant activo más reciente (por UpdatedAt) del delegado.
	FindActive(ctx context.Context, petID, granteeUserID string) (Grant, error)
}
