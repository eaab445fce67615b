package calendar

import (
	"context"
	"fmt"
	"time"

	"pet-health-tracker/internal/domain/careitems"
	"pet-health-tracker/internal/domain/metrics"
	"pet-health-tracker/internal/platform/caldate"
	"pet-health-tracker/internal/platform/clock"

	"golang.org/x/sync/errgroup"
)

// Los implementan careitems.Service y metrics.Service.
type CareItemLister interface {
	ListByPet(ctx context.Context, ownerUserID, petID string, filter careitems.ListFilter) ([]careitems.CareItem, error)
}

type RecordLister interface {
	ListByPet(ctx context.Context, ownerUserID, petID string, filter metrics.ListFilter) ([]metrics.Record, error)
}

type Service struct {
	care    CareItemLister
	metrics RecordLister
	clock   clock.Clock
}

func NewService(care CareItemLister, records RecordLister, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{care: care, metrics: records, clock: clk}
}

// Today es la fecha actual vista desde loc.
func (s *Service) Today(loc *time.Location) caldate.Date {
	return caldate.In(s.clock.Now(), loc)
}

// Month arma el calendario mensual de la mascota.
func (s *Service) Month(ctx context.Context, ownerUserID, petID string, year int, month time.Month, loc *time.Location) (Month, error) {
	if loc == nil {
		loc = time.UTC
	}
	first, last := MonthRange(year, month)

	records, items, err := s.load(ctx, ownerUserID, petID, first, last, loc)
	if err != nil {
		return Month{}, err
	}
	return BuildMonth(year, month, loc, records, items), nil
}

// Timeline devuelve las entradas de un día.
func (s *Service) Timeline(ctx context.Context, ownerUserID, petID string, date caldate.Date, loc *time.Location) ([]TimelineEntry, error) {
	if loc == nil {
		loc = time.UTC
	}

	records, items, err := s.load(ctx, ownerUserID, petID, date, date, loc)
	if err != nil {
		return nil, err
	}
	return AggregateDay(date, loc, records, items), nil
}

// load trae medicaciones, vacunas y métricas en paralelo (una goroutine por colección).
func (s *Service) load(ctx context.Context, ownerUserID, petID string, first, last caldate.Date, loc *time.Location) ([]metrics.Record, []careitems.CareItem, error) {
	var (
		meds, vacs []careitems.CareItem
		records    []metrics.Record
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)

	g.Go(func() error {
		var err error
		meds, err = s.care.ListByPet(gctx, ownerUserID, petID, careitems.ListFilter{Kind: careitems.KindMedication})
		if err != nil {
			return fmt.Errorf("load medications: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		vacs, err = s.care.ListByPet(gctx, ownerUserID, petID, careitems.ListFilter{Kind: careitems.KindVaccination})
		if err != nil {
			return fmt.Errorf("load vaccinations: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		from := first.Midnight(loc)
		to := last.AddDays(1).Midnight(loc).Add(-time.Nanosecond)
		var err error
		records, err = s.metrics.ListByPet(gctx, ownerUserID, petID, metrics.ListFilter{From: &from, To: &to})
		if err != nil {
			return fmt.Errorf("load metric records: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	items := make([]careitems.CareItem, 0, len(meds)+len(vacs))
	items = append(items, meds...)
	items = append(items, vacs...)
	return records, items, nil
}
