package service

import (
	"context"
	"time"

	"mensageiro/internal/models"
	"mensageiro/internal/template"

	"github.com/stretchr/testify/mock"
)

type mockTransport struct {
	mock.Mock
	name string
}

func (m *mockTransport) Name() string {
	return m.name
}

func (m *mockTransport) Send(ctx context.Context, payload SendPayload) (*SendResult, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SendResult), args.Error(1)
}

// mockFetchingTransport additionally implements StatusFetcher.
type mockFetchingTransport struct {
	mockTransport
}

func (m *mockFetchingTransport) FetchStatus(ctx context.Context, externalID string) (*models.StatusUpdate, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StatusUpdate), args.Error(1)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) RecordMessage(ctx context.Context, msg *models.Message) (int64, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLedger) GetMessageByExternalID(ctx context.Context, provider, externalID string) (*models.Message, error) {
	args := m.Called(ctx, provider, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *mockLedger) TransitionMessage(ctx context.Context, id int64, newStatus models.MessageStatus, errorDetail *string) error {
	args := m.Called(ctx, id, newStatus, errorDetail)
	return args.Error(0)
}

func (m *mockLedger) ListStuckMessages(ctx context.Context, floor, window time.Duration, limit int) ([]*models.Message, error) {
	args := m.Called(ctx, floor, window, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Message), args.Error(1)
}

type mockScheduledStore struct {
	mock.Mock
}

func (m *mockScheduledStore) ClaimDueScheduled(ctx context.Context, now time.Time, batch int, staleAfter time.Duration) ([]*models.ScheduledMessage, error) {
	args := m.Called(ctx, now, batch, staleAfter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ScheduledMessage), args.Error(1)
}

func (m *mockScheduledStore) FinalizeScheduled(ctx context.Context, id int64, status models.ScheduledStatus, errorDetail *string) error {
	args := m.Called(ctx, id, status, errorDetail)
	return args.Error(0)
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, slug string, vars map[string]string) (*template.Resolved, error) {
	args := m.Called(ctx, slug, vars)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*template.Resolved), args.Error(1)
}

type mockVariator struct {
	mock.Mock
}

func (m *mockVariator) Vary(ctx context.Context, content string) string {
	args := m.Called(ctx, content)
	return args.String(0)
}
