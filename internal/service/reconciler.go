package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	apperrors "mensageiro/internal/errors"
	"mensageiro/internal/metrics"
	"mensageiro/internal/models"

	"github.com/sirupsen/logrus"
)

// StatusStore is the slice of the ledger the reconciler needs.
type StatusStore interface {
	GetMessageByExternalID(ctx context.Context, provider, externalID string) (*models.Message, error)
	TransitionMessage(ctx context.Context, id int64, newStatus models.MessageStatus, errorDetail *string) error
	RecordMessage(ctx context.Context, msg *models.Message) (int64, error)
	ListStuckMessages(ctx context.Context, floor, window time.Duration, limit int) ([]*models.Message, error)
}

// Reconciler converges the ledger with provider-reported delivery state,
// fed by webhooks and by the periodic poll sweep. All paths funnel through
// ApplyStatusUpdate so the transition rules live in one place.
type Reconciler struct {
	db       StatusStore
	registry *ProviderRegistry
	cfg      models.ReconcilerConfig
	logger   *logrus.Logger
}

func NewReconciler(db StatusStore, registry *ProviderRegistry, cfg models.ReconcilerConfig, logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		db:       db,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
}

// ParseSMSCallback extracts a status update from the SMS provider's callback,
// which arrives either form-encoded or as JSON depending on the account's API
// generation, with the id and status code each under one of several names.
func ParseSMSCallback(body []byte, contentType string) (*models.StatusUpdate, error) {
	var cb models.SMSStatusCallback

	if strings.Contains(contentType, "application/x-www-form-urlencoded") {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "malformed form callback")
		}
		cb = models.SMSStatusCallback{
			ID:        values.Get("id"),
			MsgID:     values.Get("msg_id"),
			MessageID: values.Get("message_id"),
			Situacao:  values.Get("situacao"),
			Status:    values.Get("status"),
			Codigo:    values.Get("codigo"),
			Code:      values.Get("code"),
		}
	} else {
		if err := json.Unmarshal(body, &cb); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "malformed json callback")
		}
	}

	externalID := firstNonEmpty(cb.ID, cb.MsgID, cb.MessageID)
	if externalID == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "callback carries no message id")
	}
	rawStatus := firstNonEmpty(cb.Situacao, cb.Status, cb.Codigo, cb.Code)

	return &models.StatusUpdate{
		ExternalID: externalID,
		Status:     MapSMSStatus(rawStatus),
	}, nil
}

// ParseWACloudEnvelope splits a cloud API webhook into status updates for
// outbound messages and inbound messages from constituents. Non-text inbound
// messages are recorded with a type marker instead of a body.
func ParseWACloudEnvelope(body []byte) ([]models.StatusUpdate, []*models.Message, error) {
	var envelope models.WACloudEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "malformed webhook envelope")
	}

	var updates []models.StatusUpdate
	var inbound []*models.Message

	for _, entry := range envelope.Entry {
		for _, change := range entry.Changes {
			for _, status := range change.Value.Statuses {
				update := models.StatusUpdate{
					ExternalID: status.ID,
					Status:     MapWhatsAppStatus(status.Status),
				}
				if len(status.Errors) > 0 {
					update.ErrorDetail = fmt.Sprintf("%d: %s", status.Errors[0].Code,
						firstNonEmpty(status.Errors[0].Message, status.Errors[0].Title))
				}
				updates = append(updates, update)
			}
			for _, m := range change.Value.Messages {
				content := "[" + m.Type + "]"
				if m.Text != nil {
					content = m.Text.Body
				}
				externalID := m.ID
				inbound = append(inbound, &models.Message{
					Channel:     models.ChannelWhatsApp,
					Direction:   models.DirectionInbound,
					Provider:    ProviderWACloud,
					ExternalID:  &externalID,
					Destination: m.From,
					Content:     content,
					Status:      models.MessageStatusReceived,
				})
			}
		}
	}

	return updates, inbound, nil
}

// ParseZAPICallback extracts a status update from transport B's callback.
func ParseZAPICallback(body []byte) (*models.StatusUpdate, error) {
	var cb models.ZAPICallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "malformed callback")
	}

	externalID := firstNonEmpty(cb.MessageID, cb.ID)
	if externalID == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "callback carries no message id")
	}

	return &models.StatusUpdate{
		ExternalID:  externalID,
		Status:      MapWhatsAppStatus(cb.Status),
		ErrorDetail: cb.Error,
	}, nil
}

// ApplyStatusUpdate moves one ledger entry to the reported status. Updates
// for unknown external ids are logged and dropped: callbacks can outlive
// their messages or belong to sends made outside this system. Updates that
// would move a message backwards are silent no-ops by the transition rules.
func (r *Reconciler) ApplyStatusUpdate(ctx context.Context, provider string, update *models.StatusUpdate) error {
	if update.Status == models.MessageStatusPending {
		// Unknown provider code: nothing to converge.
		return nil
	}

	msg, err := r.db.GetMessageByExternalID(ctx, provider, update.ExternalID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to look up message")
	}
	if msg == nil {
		r.logger.WithFields(logrus.Fields{
			"provider":    provider,
			"external_id": update.ExternalID,
			"status":      update.Status,
		}).Debug("Status update for unknown message, ignoring")
		metrics.IncrementCounter("status_updates_orphaned_total",
			map[string]string{"provider": provider}, "Status updates with no matching message")
		return nil
	}

	var errorDetail *string
	if update.ErrorDetail != "" {
		errorDetail = &update.ErrorDetail
	}
	if err := r.db.TransitionMessage(ctx, msg.ID, update.Status, errorDetail); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to transition message")
	}

	metrics.IncrementCounter("status_updates_applied_total", map[string]string{
		"provider": provider,
		"status":   string(update.Status),
	}, "Status updates applied to the ledger")
	return nil
}

// RecordInbound stores a constituent-originated message, deduplicating on the
// provider's message id since webhooks are delivered at-least-once.
func (r *Reconciler) RecordInbound(ctx context.Context, msg *models.Message) error {
	if msg.ExternalID != nil {
		existing, err := r.db.GetMessageByExternalID(ctx, msg.Provider, *msg.ExternalID)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to check for duplicate")
		}
		if existing != nil {
			return nil
		}
	}

	id, err := r.db.RecordMessage(ctx, msg)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to record inbound message")
	}

	r.logger.WithFields(logrus.Fields{
		"message_id": id,
		"provider":   msg.Provider,
	}).Info("Recorded inbound message")
	metrics.IncrementCounter("messages_received_total",
		map[string]string{"provider": msg.Provider}, "Inbound messages recorded")
	return nil
}

// ReconcilePending polls providers for messages stuck in a non-terminal
// status, in small concurrent batches with a pause in between so the sweep
// never hammers a provider API.
func (r *Reconciler) ReconcilePending(ctx context.Context) error {
	floor := time.Duration(r.cfg.StuckFloorSec) * time.Second
	window := time.Duration(r.cfg.StuckWindowHours) * time.Hour

	stuck, err := r.db.ListStuckMessages(ctx, floor, window, r.cfg.SweepLimit)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to list stuck messages")
	}
	if len(stuck) == 0 {
		return nil
	}

	r.logger.WithField("count", len(stuck)).Debug("Reconciling stuck messages")

	batchSize := r.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	interBatchDelay := time.Duration(r.cfg.InterBatchDelayMs) * time.Millisecond

	for start := 0; start < len(stuck); start += batchSize {
		end := start + batchSize
		if end > len(stuck) {
			end = len(stuck)
		}

		var wg sync.WaitGroup
		for _, msg := range stuck[start:end] {
			wg.Add(1)
			go func(msg *models.Message) {
				defer wg.Done()
				r.pollOne(ctx, msg)
			}(msg)
		}
		wg.Wait()

		if end < len(stuck) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interBatchDelay):
			}
		}
	}
	return nil
}

func (r *Reconciler) pollOne(ctx context.Context, msg *models.Message) {
	fetcher, ok := r.registry.StatusFetcherFor(msg.Provider)
	if !ok {
		// Webhook-only provider, nothing to poll.
		return
	}
	if msg.ExternalID == nil {
		return
	}

	update, err := fetcher.FetchStatus(ctx, *msg.ExternalID)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"message_id": msg.ID,
			"provider":   msg.Provider,
		}).Warn("Status poll failed")
		return
	}
	if update == nil {
		return
	}
	update.ExternalID = *msg.ExternalID

	if err := r.ApplyStatusUpdate(ctx, msg.Provider, update); err != nil {
		r.logger.WithError(err).WithField("message_id", msg.ID).Warn("Failed to apply polled status")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
