package reminders

import (
	"context"
	"fmt"
	"time"

	"pet-health-tracker/internal/domain/careitems"
	"pet-health-tracker/internal/platform/caldate"
	"pet-health-tracker/internal/platform/clock"
	"pet-health-tracker/internal/platform/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
)

var (
	remindersSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "care_reminders_sent_total",
		Help: "Care reminders handed to the notifier, by item status",
	}, []string{"status"})

	remindersFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "care_reminders_failed_total",
		Help: "Care reminders the notifier could not deliver",
	})
)

// PendingLister lo implementa careitems.Service.
type PendingLister interface {
	ListPendingDueBy(ctx context.Context, date caldate.Date) ([]careitems.CareItem, error)
}

type Options struct {
	Interval time.Duration
	// Location define qué es "hoy" (nil => UTC).
	Location *time.Location
	// Timeout de cada corrida.
	Timeout time.Duration

	// Dedup nil => MemoryDeduper.
	Dedup    Deduper
	DedupTTL time.Duration
}

// Checker corre RunOnce cada Interval con robfig/cron.
type Checker struct {
	items    PendingLister
	notifier Notifier
	clock    clock.Clock
	log      logger.Logger
	opts     Options
	cron     *cron.Cron
}

func NewChecker(items PendingLister, notifier Notifier, opts Options, clk clock.Clock, log logger.Logger) *Checker {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	if clk == nil {
		clk = clock.System{}
	}
	if opts.Dedup == nil {
		opts.Dedup = NewMemoryDeduper(clk)
	}
	if opts.DedupTTL <= 0 {
		opts.DedupTTL = 36 * time.Hour
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Checker{
		items:    items,
		notifier: notifier,
		clock:    clk,
		log:      log.With(map[string]any{"component": "reminders"}),
		opts:     opts,
		cron:     cron.New(cron.WithLocation(opts.Location)),
	}
}

func (c *Checker) Start() error {
	spec := fmt.Sprintf("@every %s", c.opts.Interval.String())

	if _, err := c.cron.AddFunc(spec, c.tick); err != nil {
		return fmt.Errorf("add reminders job: %w", err)
	}

	c.cron.Start()
	c.log.Info("reminders started", map[string]any{"interval": c.opts.Interval.String()})
	return nil
}

// Stop espera a que termine la corrida en curso.
func (c *Checker) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
	c.log.Info("reminders stopped", nil)
}

func (c *Checker) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.Timeout)
	defer cancel()

	if _, err := c.RunOnce(ctx); err != nil {
		c.log.Error("reminders run failed", map[string]any{"err": err.Error()})
	}
}

// RunOnce avisa por cada item pendiente que vence hoy o ya venció, a lo sumo
// una vez por item y día. Las medicaciones expiradas no se recuerdan.
// Devuelve cuántos avisos salieron.
func (c *Checker) RunOnce(ctx context.Context) (int, error) {
	now := c.clock.Now()
	today := caldate.In(now, c.opts.Location)

	items, err := c.items.ListPendingDueBy(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("list pending care items: %w", err)
	}

	sent := 0
	for _, it := range items {
		status := careitems.Classify(it, now, c.opts.Location)
		if status != careitems.StatusOverdue && status != careitems.StatusDueToday {
			continue
		}

		r := Reminder{
			CareItemID:   it.ID,
			PetID:        it.PetID,
			OwnerUserID:  it.OwnerUserID,
			Kind:         it.Kind,
			Name:         it.Name,
			Dosage:       it.Dosage,
			DueDate:      it.DueDate,
			DueTime:      it.DueTime,
			Status:       status,
			GeneratedAt:  now,
			GeneratedFor: today,
		}

		key := dedupKey(r)
		claimed, err := c.opts.Dedup.Claim(ctx, key, c.opts.DedupTTL)
		if err != nil {
			// Si el dedup falla se avisa igual.
			c.log.Warn("reminder dedup unavailable", map[string]any{
				"care_item_id": it.ID,
				"err":          err.Error(),
			})
		} else if !claimed {
			continue
		}

		if err := c.notifier.Notify(ctx, r); err != nil {
			remindersFailed.Inc()
			c.log.Warn("reminder not delivered", map[string]any{
				"care_item_id": it.ID,
				"err":          err.Error(),
			})
			if claimed {
				if err := c.opts.Dedup.Release(ctx, key); err != nil {
					c.log.Warn("reminder dedup release failed", map[string]any{"key": key, "err": err.Error()})
				}
			}
			continue
		}
		remindersSent.WithLabelValues(string(status)).Inc()
		sent++
	}

	c.log.Debug("reminders run completed", map[string]any{
		"pending": len(items),
		"sent":    sent,
	})
	return sent, nil
}
