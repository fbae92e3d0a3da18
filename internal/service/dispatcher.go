package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "mensageiro/internal/errors"
	"mensageiro/internal/metrics"
	"mensageiro/internal/models"

	"github.com/sirupsen/logrus"
)

// ScheduledStore is the slice of the ledger the dispatcher needs.
type ScheduledStore interface {
	ClaimDueScheduled(ctx context.Context, now time.Time, batch int, staleAfter time.Duration) ([]*models.ScheduledMessage, error)
	FinalizeScheduled(ctx context.Context, id int64, status models.ScheduledStatus, errorDetail *string) error
}

// Dispatcher drains due scheduled messages on a fixed interval. Each pass
// claims a batch atomically, so concurrent passes never double-send, and
// sends sequentially with a pause between sends to stay under provider rate
// limits. One bad entry never aborts the rest of the batch.
type Dispatcher struct {
	db     ScheduledStore
	sender *SendService
	cfg    models.DispatcherConfig
	logger *logrus.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewDispatcher(db ScheduledStore, sender *SendService, cfg models.DispatcherConfig, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		db:     db,
		sender: sender,
		cfg:    cfg,
		logger: logger,
	}
}

func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return nil
	}
	d.running = true
	d.stopCh = make(chan struct{})

	d.wg.Add(1)
	go d.loop(ctx)

	d.logger.WithField("interval_sec", d.cfg.IntervalSec).Info("Dispatcher started")
	return nil
}

func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopCh)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("Dispatcher stopped")
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(time.Duration(d.cfg.IntervalSec) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		case <-ticker.C:
			if err := d.RunDispatchPass(ctx); err != nil {
				d.logger.WithError(err).Error("Dispatch pass failed")
			}
		}
	}
}

// RunDispatchPass claims and sends one batch of due scheduled messages.
// Entries stuck in processing longer than the stale cutoff are reclaimed,
// covering crashes between claim and finalize.
func (d *Dispatcher) RunDispatchPass(ctx context.Context) error {
	staleAfter := time.Duration(d.cfg.ProcessingStaleMin) * time.Minute
	claimed, err := d.db.ClaimDueScheduled(ctx, time.Now().UTC(), d.cfg.BatchSize, staleAfter)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to claim due messages")
	}
	if len(claimed) == 0 {
		return nil
	}

	d.logger.WithField("count", len(claimed)).Info("Dispatching scheduled messages")

	interSendDelay := time.Duration(d.cfg.InterSendDelayMs) * time.Millisecond
	for i, entry := range claimed {
		d.dispatchOne(ctx, entry)

		if i < len(claimed)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interSendDelay):
			}
		}
	}
	return nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, entry *models.ScheduledMessage) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.WithFields(logrus.Fields{
				"scheduled_id": entry.ID,
				"panic":        r,
			}).Error("Recovered from panic while dispatching")
			detail := fmt.Sprintf("panic: %v", r)
			d.finalize(ctx, entry.ID, models.ScheduledStatusFailed, &detail)
		}
	}()

	outcome, err := d.sender.Send(ctx, SendRequest{
		Channel:      entry.Channel,
		Destination:  entry.Recipient,
		TemplateSlug: entry.TemplateSlug,
		Variables:    entry.Variables,
		ContactID:    entry.ContactID,
		LeaderID:     entry.LeaderID,
		SourceKind:   sourceKindScheduled(),
		SourceID:     &entry.ID,
	})
	if err != nil {
		detail := err.Error()
		d.finalize(ctx, entry.ID, models.ScheduledStatusFailed, &detail)
		metrics.IncrementCounter("scheduled_dispatched_total",
			map[string]string{"outcome": "failed"}, "Scheduled messages by dispatch outcome")
		return
	}

	if outcome.Status == models.MessageStatusFailed {
		detail := outcome.ErrorText
		d.finalize(ctx, entry.ID, models.ScheduledStatusFailed, &detail)
		metrics.IncrementCounter("scheduled_dispatched_total",
			map[string]string{"outcome": "failed"}, "Scheduled messages by dispatch outcome")
		return
	}

	d.finalize(ctx, entry.ID, models.ScheduledStatusSent, nil)
	metrics.IncrementCounter("scheduled_dispatched_total",
		map[string]string{"outcome": "sent"}, "Scheduled messages by dispatch outcome")
}

func (d *Dispatcher) finalize(ctx context.Context, id int64, status models.ScheduledStatus, errorDetail *string) {
	if err := d.db.FinalizeScheduled(ctx, id, status, errorDetail); err != nil {
		// The stale-processing reclaim picks the entry up on a later pass.
		d.logger.WithError(err).WithField("scheduled_id", id).Error("Failed to finalize scheduled message")
	}
}

func sourceKindScheduled() *string {
	kind := "scheduled"
	return &kind
}
