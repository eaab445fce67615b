package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"pet-health-tracker/internal/domain/metrics"
)

type MetricsRepo struct {
	db *sql.DB
}

func NewMetricsRepo(db *sql.DB) *MetricsRepo {
	return &MetricsRepo{db: db}
}

const metricColumns = `
	id, pet_id, owner_user_id,
	recorded_at, created_at,
	weight_kg, activity_level, food_intake, sleep_hours, behavior, notes,
	actor_type, actor_id, source`

func (r *MetricsRepo) Create(ctx context.Context, rec metrics.Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metric_records (`+metricColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		rec.ID,
		rec.PetID,
		rec.OwnerUserID,
		rec.RecordedAt,
		rec.CreatedAt,
		toNullFloat(rec.WeightKg),
		toNullInt(rec.ActivityLevel),
		rec.FoodIntake,
		toNullFloat(rec.SleepHours),
		rec.Behavior,
		rec.Notes,
		string(rec.Actor.Type),
		rec.Actor.ID,
		string(rec.Source),
	)
	return err
}

func (r *MetricsRepo) GetByID(ctx context.Context, id string) (metrics.Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return metrics.Record{}, metrics.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+metricColumns+` FROM metric_records WHERE id = $1`, id)
	rec, err := scanMetric(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return metrics.Record{}, metrics.ErrNotFound
		}
		return metrics.Record{}, err
	}
	return rec, nil
}

func (r *MetricsRepo) ListByPet(ctx context.Context, ownerUserID, petID string, filter metrics.ListFilter) ([]metrics.Record, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + metricColumns + ` FROM metric_records WHERE owner_user_id = $1 AND pet_id = $2`)

	args := []any{ownerUserID, petID}
	argN := 3

	if filter.From != nil {
		sb.WriteString(fmt.Sprintf(" AND recorded_at >= $%d", argN))
		args = append(args, *filter.From)
		argN++
	}
	if filter.To != nil {
		sb.WriteString(fmt.Sprintf(" AND recorded_at <= $%d", argN))
		args = append(args, *filter.To)
		argN++
	}

	sb.WriteString(" ORDER BY recorded_at ASC, id ASC")
	if filter.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", argN))
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]metrics.Record, 0)
	for rows.Next() {
		rec, err := scanMetric(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanMetric(row rowScanner) (metrics.Record, error) {
	var (
		rec               metrics.Record
		weight, sleep     sql.NullFloat64
		activity          sql.NullInt32
		actorType, source string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.PetID,
		&rec.OwnerUserID,
		&rec.RecordedAt,
		&rec.CreatedAt,
		&weight,
		&activity,
		&rec.FoodIntake,
		&sleep,
		&rec.Behavior,
		&rec.Notes,
		&actorType,
		&rec.Actor.ID,
		&source,
	); err != nil {
		return metrics.Record{}, err
	}

	if weight.Valid {
		v := weight.Float64
		rec.WeightKg = &v
	}
	if activity.Valid {
		v := int(activity.Int32)
		rec.ActivityLevel = &v
	}
	if sleep.Valid {
		v := sleep.Float64
		rec.SleepHours = &v
	}
	rec.Actor.Type = metrics.ActorType(actorType)
	rec.Source = metrics.Source(source)
	return rec, nil
}

func toNullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func toNullInt(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}
