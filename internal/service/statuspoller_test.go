package service

import (
	"context"
	"testing"
	"time"

	"mensageiro/internal/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStatusPoller_StartStop(t *testing.T) {
	ledger := &mockLedger{}
	ledger.On("ListStuckMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*models.Message{}, nil).Maybe()

	reconciler := NewReconciler(ledger, testRegistry(models.WhatsAppRouterConfig{}), models.ReconcilerConfig{
		PollIntervalSec:  1,
		BatchSize:        5,
		StuckFloorSec:    60,
		StuckWindowHours: 48,
		SweepLimit:       100,
	}, testLogger())

	poller := NewStatusPoller(reconciler, models.ReconcilerConfig{PollIntervalSec: 1},
		models.RetryConfig{InitialBackoffMs: 1, MaxBackoffMs: 10, MaxAttempts: 1}, testLogger())

	ctx := context.Background()
	require.NoError(t, poller.Start(ctx))
	require.NoError(t, poller.Start(ctx)) // second start is a no-op

	time.Sleep(10 * time.Millisecond)
	poller.Stop()
	poller.Stop() // second stop is a no-op
}

func TestStatusPoller_StopsOnContextCancel(t *testing.T) {
	ledger := &mockLedger{}
	ledger.On("ListStuckMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*models.Message{}, nil).Maybe()

	reconciler := NewReconciler(ledger, testRegistry(models.WhatsAppRouterConfig{}),
		models.ReconcilerConfig{SweepLimit: 100, BatchSize: 5, StuckFloorSec: 60, StuckWindowHours: 48}, testLogger())
	poller := NewStatusPoller(reconciler, models.ReconcilerConfig{PollIntervalSec: 1},
		models.RetryConfig{InitialBackoffMs: 1, MaxBackoffMs: 10, MaxAttempts: 1}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, poller.Start(ctx))
	cancel()

	done := make(chan struct{})
	go func() {
		poller.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller loop did not exit after context cancellation")
	}
}
