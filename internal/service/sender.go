package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "mensageiro/internal/errors"
	"mensageiro/internal/metrics"
	"mensageiro/internal/models"
	"mensageiro/internal/privacy"
	"mensageiro/internal/template"
	"mensageiro/pkg/smsdev"

	"github.com/sirupsen/logrus"
)

// MessageRecorder is the slice of the ledger the send path needs.
type MessageRecorder interface {
	RecordMessage(ctx context.Context, msg *models.Message) (int64, error)
}

// Resolver resolves a template slug into final content.
type Resolver interface {
	Resolve(ctx context.Context, slug string, vars map[string]string) (*template.Resolved, error)
}

// ContentVariator paraphrases content best-effort; it never fails the send.
type ContentVariator interface {
	Vary(ctx context.Context, content string) string
}

// SendRequest describes one outbound send, immediate or dispatched.
type SendRequest struct {
	Channel      models.Channel
	Destination  string
	TemplateSlug string
	Variables    map[string]string
	Content      string
	Subject      string
	ContactID    *int64
	LeaderID     *int64
	SourceKind   *string
	SourceID     *int64
}

// SendOutcome reports what was recorded in the ledger for a send attempt.
type SendOutcome struct {
	MessageID  int64
	Status     models.MessageStatus
	ExternalID string
	Provider   string
	ErrorText  string
}

// SendService runs the full send path: resolve, vary, transmit, record.
// Configuration and validation problems fail fast without a ledger entry;
// transport problems always land in the ledger as a failed message and are
// never surfaced as raw errors.
type SendService struct {
	registry           *ProviderRegistry
	store              Resolver
	variator           ContentVariator
	db                 MessageRecorder
	disabledCategories map[string]bool
	logger             *logrus.Logger
}

func NewSendService(registry *ProviderRegistry, store Resolver, variator ContentVariator, db MessageRecorder, disabledCategories []string, logger *logrus.Logger) *SendService {
	disabled := make(map[string]bool, len(disabledCategories))
	for _, c := range disabledCategories {
		disabled[strings.ToLower(c)] = true
	}
	return &SendService{
		registry:           registry,
		store:              store,
		variator:           variator,
		db:                 db,
		disabledCategories: disabled,
		logger:             logger,
	}
}

func (s *SendService) Send(ctx context.Context, req SendRequest) (*SendOutcome, error) {
	if strings.TrimSpace(req.Destination) == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "destination is required")
	}

	content := req.Content
	channel := req.Channel

	if req.TemplateSlug != "" {
		resolved, err := s.store.Resolve(ctx, req.TemplateSlug, req.Variables)
		if err != nil {
			return nil, err
		}
		if s.disabledCategories[strings.ToLower(resolved.Category)] {
			return nil, apperrors.New(apperrors.ErrCodeCategoryDisabled,
				fmt.Sprintf("automated sends of category %q are disabled", resolved.Category))
		}

		content = resolved.Text
		if channel == "" {
			channel = resolved.Channel
		}
		if resolved.VariationEnabled && s.variator != nil {
			content = s.variator.Vary(ctx, content)
		}
	}

	if !channel.Valid() {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, fmt.Sprintf("invalid channel: %q", channel))
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "message content is required: pass content or a template slug")
	}

	destination, err := canonicalDestination(channel, req.Destination)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "invalid destination")
	}
	req.Destination = destination

	transport, err := s.registry.SenderFor(channel)
	if err != nil {
		return nil, err
	}

	if !s.registry.AllowedDestination(channel, req.Destination) {
		reason := "test mode: destination not in allowlist, send suppressed"
		s.logger.WithFields(logrus.Fields{
			"channel":     channel,
			"provider":    transport.Name(),
			"destination": privacy.MaskDestination(req.Destination),
		}).Warn("Suppressing send to non-allowlisted destination")
		return s.recordFailure(ctx, req, channel, transport.Name(), content, reason)
	}

	result, providerName, sendErr := s.transmit(ctx, channel, transport, SendPayload{
		Destination: req.Destination,
		Content:     content,
		Subject:     req.Subject,
	})
	if sendErr != nil {
		return s.recordFailure(ctx, req, channel, providerName, content, sendErr.Error())
	}

	now := time.Now().UTC()
	msg := &models.Message{
		Channel:     channel,
		Direction:   models.DirectionOutbound,
		Provider:    providerName,
		ExternalID:  &result.ExternalID,
		Destination: req.Destination,
		Content:     content,
		Status:      result.Status,
		ContactID:   req.ContactID,
		LeaderID:    req.LeaderID,
		SourceKind:  req.SourceKind,
		SourceID:    req.SourceID,
		SentAt:      &now,
	}
	id, err := s.db.RecordMessage(ctx, msg)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to record message")
	}

	metrics.IncrementCounter("messages_sent_total", map[string]string{
		"channel":  string(channel),
		"provider": providerName,
		"status":   string(result.Status),
	}, "Outbound messages by outcome")

	s.logger.WithFields(logrus.Fields{
		"message_id":  id,
		"channel":     channel,
		"provider":    providerName,
		"external_id": result.ExternalID,
		"status":      result.Status,
	}).Info("Message accepted by provider")

	return &SendOutcome{
		MessageID:  id,
		Status:     result.Status,
		ExternalID: result.ExternalID,
		Provider:   providerName,
	}, nil
}

// transmit issues the provider call, trying the secondary WhatsApp transport
// when the primary fails outright and fallback is enabled. The returned
// error text keeps the primary transport's failure first for diagnostics.
func (s *SendService) transmit(ctx context.Context, channel models.Channel, primary Transport, payload SendPayload) (*SendResult, string, error) {
	result, err := primary.Send(ctx, payload)
	if err == nil {
		return result, primary.Name(), nil
	}

	secondary, ok := s.registry.Fallback(channel, primary.Name())
	if !ok {
		return nil, primary.Name(), err
	}

	s.logger.WithError(err).WithFields(logrus.Fields{
		"primary":  primary.Name(),
		"fallback": secondary.Name(),
	}).Warn("Primary transport failed, attempting fallback")
	metrics.IncrementCounter("provider_fallbacks_total", map[string]string{
		"from": primary.Name(),
		"to":   secondary.Name(),
	}, "WhatsApp fallback attempts")

	fallbackResult, fallbackErr := secondary.Send(ctx, payload)
	if fallbackErr != nil {
		combined := fmt.Errorf("%s: %v (fallback %s: %v)", primary.Name(), err, secondary.Name(), fallbackErr)
		return nil, secondary.Name(), combined
	}
	return fallbackResult, secondary.Name(), nil
}

// canonicalDestination reduces the caller-supplied destination to the single
// form the ledger stores: bare digits with country code for phone channels, a
// lowercased address for email. Transports and status lookups then all see
// the same value.
func canonicalDestination(channel models.Channel, destination string) (string, error) {
	if channel == models.ChannelEmail {
		return strings.ToLower(strings.TrimSpace(destination)), nil
	}
	return smsdev.NormalizePhone(destination)
}

// recordFailure converts a transport failure into exactly one failed ledger
// entry carrying the raw provider error text.
func (s *SendService) recordFailure(ctx context.Context, req SendRequest, channel models.Channel, providerName, content, errorText string) (*SendOutcome, error) {
	msg := &models.Message{
		Channel:     channel,
		Direction:   models.DirectionOutbound,
		Provider:    providerName,
		Destination: req.Destination,
		Content:     content,
		Status:      models.MessageStatusFailed,
		ErrorDetail: &errorText,
		ContactID:   req.ContactID,
		LeaderID:    req.LeaderID,
		SourceKind:  req.SourceKind,
		SourceID:    req.SourceID,
	}
	id, err := s.db.RecordMessage(ctx, msg)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to record failed message")
	}

	metrics.IncrementCounter("messages_sent_total", map[string]string{
		"channel":  string(channel),
		"provider": providerName,
		"status":   string(models.MessageStatusFailed),
	}, "Outbound messages by outcome")

	s.logger.WithFields(logrus.Fields{
		"message_id":  id,
		"channel":     channel,
		"provider":    providerName,
		"destination": privacy.MaskDestination(req.Destination),
		"error":       errorText,
	}).Warn("Message failed at transport")

	return &SendOutcome{
		MessageID: id,
		Status:    models.MessageStatusFailed,
		Provider:  providerName,
		ErrorText: errorText,
	}, nil
}
