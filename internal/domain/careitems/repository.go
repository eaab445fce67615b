package careitems

import (
	"context"

	"pet-health-tracker/internal/platform/caldate"
)

type Repository interface {
	// Create devuelve ErrAlreadyExists si el id ya está tomado.
	Create(ctx context.Context, item CareItem) error
	Update(ctx context.Context, item CareItem) error
	// CompletePending guarda item sólo si la versión almacenada sigue pendiente.
	// Si otro request ya la completó devuelve ErrBadState.
	CompletePending(ctx context.Context, item CareItem) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (CareItem, error)
	// ListByPet devuelve todos los items de la mascota ordenados por vencimiento.
	ListByPet(ctx context.Context, ownerUserID, petID string) ([]CareItem, error)
	// ListPendingDueBy devuelve items no completados con vencimiento <= date (todas las mascotas).
	ListPendingDueBy(ctx context.Context, date caldate.Date) ([]CareItem, error)
}

// AtomicCompleter lo implementan los stores que pueden marcar completado y
// crear el sucesor en una sola operación (transacción). Igual que
// CompletePending, falla con ErrBadState si el item ya estaba completado, y con
// ErrAlreadyExists si el id del sucesor está tomado.
type AtomicCompleter interface {
	CompleteAndSpawn(ctx context.Context, completed CareItem, successor CareItem) error
}
