package pets

import "context"

// Repository devuelve ErrNotFound cuando la mascota no existe.
// ListByOwner ordena por CreatedAt ascendente.
type Repository interface {
	Create(ctx context.Context, p Pet) error
	Update(ctx context.Context, p Pet) error
	GetByID(ctx context.Context, id string) (Pet, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]Pet, error)
}
