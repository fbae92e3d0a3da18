package service

import (
	"context"
	"sync"
	"time"

	"mensageiro/internal/models"
	"mensageiro/internal/retry"

	"github.com/sirupsen/logrus"
)

// StatusPoller runs the reconciliation sweep on a fixed interval. A sweep
// that fails is retried with backoff within the tick; a tick whose retries
// are exhausted waits for the next interval.
type StatusPoller struct {
	reconciler *Reconciler
	interval   time.Duration
	retryCfg   models.RetryConfig
	logger     *logrus.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewStatusPoller(reconciler *Reconciler, cfg models.ReconcilerConfig, retryCfg models.RetryConfig, logger *logrus.Logger) *StatusPoller {
	return &StatusPoller{
		reconciler: reconciler,
		interval:   time.Duration(cfg.PollIntervalSec) * time.Second,
		retryCfg:   retryCfg,
		logger:     logger,
	}
}

func (p *StatusPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	p.running = true
	p.stopCh = make(chan struct{})

	p.wg.Add(1)
	go p.loop(ctx)

	p.logger.WithField("interval", p.interval).Info("Status poller started")
	return nil
}

func (p *StatusPoller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("Status poller stopped")
}

func (p *StatusPoller) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *StatusPoller) sweep(ctx context.Context) {
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(p.retryCfg.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(p.retryCfg.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  p.retryCfg.MaxAttempts,
		Jitter:       true,
	})
	err := backoff.Retry(ctx, func() error {
		return p.reconciler.ReconcilePending(ctx)
	})
	if err != nil {
		p.logger.WithError(err).Error("Reconciliation sweep failed")
	}
}
