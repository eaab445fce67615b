package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"pet-health-tracker/internal/domain/careitems"
	"pet-health-tracker/internal/platform/caldate"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type CareItemsRepo struct {
	db *sql.DB
}

func NewCareItemsRepo(db *sql.DB) *CareItemsRepo {
	return &CareItemsRepo{db: db}
}

const careItemColumns = `
	id, pet_id, owner_user_id,
	kind, name,
	due_date, due_time,
	repeat, repeat_interval_days,
	completed, completed_at, expires_at,
	dosage, notes,
	previous_id, pending_successor_id,
	created_at, updated_at`

// execer lo cumplen *sql.DB y *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *CareItemsRepo) Create(ctx context.Context, item careitems.CareItem) error {
	return insertCareItem(ctx, r.db, item)
}

func (r *CareItemsRepo) Update(ctx context.Context, item careitems.CareItem) error {
	return updateCareItem(ctx, r.db, item, false)
}

func (r *CareItemsRepo) CompletePending(ctx context.Context, item careitems.CareItem) error {
	return updateCareItem(ctx, r.db, item, true)
}

func (r *CareItemsRepo) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return careitems.ErrNotFound
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM care_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return careitems.ErrNotFound
	}
	return nil
}

func (r *CareItemsRepo) GetByID(ctx context.Context, id string) (careitems.CareItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return careitems.CareItem{}, careitems.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+careItemColumns+` FROM care_items WHERE id = $1`, id)
	item, err := scanCareItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return careitems.CareItem{}, careitems.ErrNotFound
		}
		return careitems.CareItem{}, err
	}
	return item, nil
}

func (r *CareItemsRepo) ListByPet(ctx context.Context, ownerUserID, petID string) ([]careitems.CareItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+careItemColumns+`
		FROM care_items
		WHERE owner_user_id = $1 AND pet_id = $2
		ORDER BY due_date ASC, COALESCE(due_time, 0) ASC, id ASC
	`, ownerUserID, petID)
	if err != nil {
		return nil, err
	}
	return collectCareItems(rows)
}

func (r *CareItemsRepo) ListPendingDueBy(ctx context.Context, date caldate.Date) ([]careitems.CareItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+careItemColumns+`
		FROM care_items
		WHERE completed = FALSE AND due_date <= $1
		ORDER BY due_date ASC, COALESCE(due_time, 0) ASC, id ASC
	`, date)
	if err != nil {
		return nil, err
	}
	return collectCareItems(rows)
}

// CompleteAndSpawn marca el completado e inserta el sucesor en una transacción.
func (r *CareItemsRepo) CompleteAndSpawn(ctx context.Context, completed careitems.CareItem, successor careitems.CareItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := updateCareItem(ctx, tx, completed, true); err != nil {
		return err
	}
	if err := insertCareItem(ctx, tx, successor); err != nil {
		return err
	}
	return tx.Commit()
}

func insertCareItem(ctx context.Context, db execer, item careitems.CareItem) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO care_items (`+careItemColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`,
		item.ID,
		item.PetID,
		item.OwnerUserID,
		string(item.Kind),
		item.Name,
		item.DueDate,
		toNullTimeOfDay(item.DueTime),
		item.Repeat,
		item.RepeatIntervalDays,
		item.Completed,
		toNullTime(item.CompletedAt),
		toNullTime(item.ExpiresAt),
		item.Dosage,
		item.Notes,
		toNullString(item.PreviousID),
		toNullString(item.PendingSuccessorID),
		item.CreatedAt,
		item.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return careitems.ErrAlreadyExists
	}
	return err
}

// updateCareItem con onlyPending exige completed = FALSE en la fila; la
// condición se evalúa con el lock de fila tomado, así que de dos completes
// concurrentes sólo uno afecta la fila.
func updateCareItem(ctx context.Context, db execer, item careitems.CareItem, onlyPending bool) error {
	query := `
		UPDATE care_items
		SET
			name = $2,
			due_date = $3,
			due_time = $4,
			repeat = $5,
			repeat_interval_days = $6,
			completed = $7,
			completed_at = $8,
			expires_at = $9,
			dosage = $10,
			notes = $11,
			pending_successor_id = $12,
			updated_at = $13
		WHERE id = $1`
	if onlyPending {
		query += ` AND completed = FALSE`
	}

	res, err := db.ExecContext(ctx, query,
		item.ID,
		item.Name,
		item.DueDate,
		toNullTimeOfDay(item.DueTime),
		item.Repeat,
		item.RepeatIntervalDays,
		item.Completed,
		toNullTime(item.CompletedAt),
		toNullTime(item.ExpiresAt),
		item.Dosage,
		item.Notes,
		toNullString(item.PendingSuccessorID),
		item.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return nil
	}
	if !onlyPending {
		return careitems.ErrNotFound
	}

	var exists bool
	if err := db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM care_items WHERE id = $1)`, item.ID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return careitems.ErrBadState
	}
	return careitems.ErrNotFound
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCareItem(row rowScanner) (careitems.CareItem, error) {
	var (
		item                 careitems.CareItem
		kind                 string
		dueTime              sql.NullInt16
		completedAt, expires sql.NullTime
		prevID, pendingID    sql.NullString
	)
	if err := row.Scan(
		&item.ID,
		&item.PetID,
		&item.OwnerUserID,
		&kind,
		&item.Name,
		&item.DueDate,
		&dueTime,
		&item.Repeat,
		&item.RepeatIntervalDays,
		&item.Completed,
		&completedAt,
		&expires,
		&item.Dosage,
		&item.Notes,
		&prevID,
		&pendingID,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return careitems.CareItem{}, err
	}

	item.Kind = careitems.Kind(kind)
	if dueTime.Valid {
		t := caldate.TimeOfDay(dueTime.Int16)
		item.DueTime = &t
	}
	item.CompletedAt = fromNullTime(completedAt)
	item.ExpiresAt = fromNullTime(expires)
	item.PreviousID = prevID.String
	item.PendingSuccessorID = pendingID.String
	return item, nil
}

func collectCareItems(rows *sql.Rows) ([]careitems.CareItem, error) {
	defer rows.Close()

	out := make([]careitems.CareItem, 0)
	for rows.Next() {
		item, err := scanCareItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func toNullTimeOfDay(t *caldate.TimeOfDay) sql.NullInt16 {
	if t == nil {
		return sql.NullInt16{}
	}
	return sql.NullInt16{Int16: int16(*t), Valid: true}
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
