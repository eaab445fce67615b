package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"pet-health-tracker/internal/domain/accessgrants"
)

type AccessGrantsRepo struct {
	db *sql.DB
}

func NewAccessGrantsRepo(db *sql.DB) *AccessGrantsRepo {
	return &AccessGrantsRepo{db: db}
}

const grantColumns = `
	id, pet_id, owner_user_id, grantee_user_id,
	scopes, status, expires_at,
	created_at, updated_at, revoked_at`

func (r *AccessGrantsRepo) Create(ctx context.Context, g accessgrants.Grant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO access_grants (`+grantColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		g.ID,
		g.PetID,
		g.OwnerUserID,
		g.GranteeUserID,
		scopesToText(g.Scopes),
		string(g.Status),
		toNullTime(g.ExpiresAt),
		g.CreatedAt,
		g.UpdatedAt,
		toNullTime(g.RevokedAt),
	)
	return err
}

func (r *AccessGrantsRepo) Update(ctx context.Context, g accessgrants.Grant) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE access_grants
		SET scopes = $2, status = $3, expires_at = $4, updated_at = $5, revoked_at = $6
		WHERE id = $1
	`,
		g.ID,
		scopesToText(g.Scopes),
		string(g.Status),
		toNullTime(g.ExpiresAt),
		g.UpdatedAt,
		toNullTime(g.RevokedAt),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return accessgrants.ErrNotFound
	}
	return nil
}

func (r *AccessGrantsRepo) GetByID(ctx context.Context, id string) (accessgrants.Grant, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return accessgrants.Grant{}, accessgrants.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+grantColumns+` FROM access_grants WHERE id = $1`, id)
	return scanOneGrant(row)
}

func (r *AccessGrantsRepo) ListByPet(ctx context.Context, petID string) ([]accessgrants.Grant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+grantColumns+`
		FROM access_grants
		WHERE pet_id = $1
		ORDER BY created_at ASC
	`, strings.TrimSpace(petID))
	if err != nil {
		return nil, err
	}
	return collectGrants(rows)
}

func (r *AccessGrantsRepo) ListByGrantee(ctx context.Context, granteeUserID string) ([]accessgrants.Grant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+grantColumns+`
		FROM access_grants
		WHERE grantee_user_id = $1
		ORDER BY updated_at DESC, created_at DESC
	`, strings.TrimSpace(granteeUserID))
	if err != nil {
		return nil, err
	}
	return collectGrants(rows)
}

func (r *AccessGrantsRepo) FindActive(ctx context.Context, petID, granteeUserID string) (accessgrants.Grant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+grantColumns+`
		FROM access_grants
		WHERE pet_id = $1 AND grantee_user_id = $2 AND status = 'active'
		ORDER BY updated_at DESC, created_at DESC
		LIMIT 1
	`, strings.TrimSpace(petID), strings.TrimSpace(granteeUserID))
	return scanOneGrant(row)
}

func scanOneGrant(row rowScanner) (accessgrants.Grant, error) {
	g, err := scanGrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return accessgrants.Grant{}, accessgrants.ErrNotFound
	}
	return g, err
}

func scanGrant(row rowScanner) (accessgrants.Grant, error) {
	var (
		g                    accessgrants.Grant
		status               string
		scopes               []string
		expiresAt, revokedAt sql.NullTime
	)
	if err := row.Scan(
		&g.ID,
		&g.PetID,
		&g.OwnerUserID,
		&g.GranteeUserID,
		&scopes,
		&status,
		&expiresAt,
		&g.CreatedAt,
		&g.UpdatedAt,
		&revokedAt,
	); err != nil {
		return accessgrants.Grant{}, err
	}

	g.Status = accessgrants.Status(status)
	g.Scopes = textToScopes(scopes)
	g.ExpiresAt = fromNullTime(expiresAt)
	g.RevokedAt = fromNullTime(revokedAt)
	return g, nil
}

func collectGrants(rows *sql.Rows) ([]accessgrants.Grant, error) {
	defer rows.Close()

	out := make([]accessgrants.Grant, 0)
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scopesToText(in []accessgrants.Scope) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}

func textToScopes(in []string) []accessgrants.Scope {
	out := make([]accessgrants.Scope, 0, len(in))
	for _, s := range in {
		out = append(out, accessgrants.Scope(s))
	}
	return out
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
