package metrics

import "context"

type Repository interface {
	Create(ctx context.Context, r Record) error
	GetByID(ctx context.Context, id string) (Record, error)
	// ListByPet devuelve los registros ordenados por RecordedAt ascendente.
	ListByPet(ctx context.Context, ownerUserID, petID string, filter ListFilter) ([]Record, error)
}
