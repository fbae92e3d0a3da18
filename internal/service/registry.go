package service

import (
	"context"
	"fmt"
	"time"

	apperrors "mensageiro/internal/errors"
	"mensageiro/internal/models"
	"mensageiro/pkg/mailer"
	"mensageiro/pkg/smsdev"
	"mensageiro/pkg/wacloud"
	"mensageiro/pkg/zapi"
)

// Transport names as stored in the ledger's provider column.
const (
	ProviderSMSDev  = "smsdev"
	ProviderWACloud = "wacloud"
	ProviderZAPI    = "zapi"
	ProviderMailer  = "mailer"
)

// SendPayload is the channel-agnostic input to a transport.
type SendPayload struct {
	Destination string
	Content     string
	Subject     string
}

// SendResult normalizes the provider-specific acknowledgement.
type SendResult struct {
	ExternalID string
	Status     models.MessageStatus
}

// Transport is the uniform send interface implemented per provider.
type Transport interface {
	Name() string
	Send(ctx context.Context, payload SendPayload) (*SendResult, error)
}

// StatusFetcher is implemented by transports whose API exposes a status
// lookup endpoint; the polling reconciler skips providers without one.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, externalID string) (*models.StatusUpdate, error)
}

// ProviderRegistry is the dispatch table from channel to transport, honoring
// the active-provider selector and the fallback flag. It is built once per
// invocation from ProviderConfig; nothing reads provider state ad hoc.
type ProviderRegistry struct {
	cfg        models.ProviderConfig
	transports map[string]Transport
}

func NewProviderRegistry(cfg models.ProviderConfig) *ProviderRegistry {
	transports := make(map[string]Transport)

	if cfg.SMS.Enabled {
		transports[ProviderSMSDev] = &smsTransport{client: smsdev.NewClient(smsdev.ClientConfig{
			BaseURL: cfg.SMS.APIBaseURL,
			APIKey:  cfg.SMS.APIKey,
			Timeout: time.Duration(cfg.SMS.TimeoutSec) * time.Second,
		})}
	}
	if cfg.WACloud.Enabled {
		transports[ProviderWACloud] = &waCloudTransport{client: wacloud.NewClient(wacloud.ClientConfig{
			BaseURL:       cfg.WACloud.APIBaseURL,
			PhoneNumberID: cfg.WACloud.PhoneNumberID,
			AccessToken:   cfg.WACloud.AccessToken,
			Timeout:       time.Duration(cfg.WACloud.TimeoutSec) * time.Second,
		})}
	}
	if cfg.ZAPI.Enabled {
		transports[ProviderZAPI] = &zapiTransport{client: zapi.NewClient(zapi.ClientConfig{
			BaseURL:     cfg.ZAPI.APIBaseURL,
			InstanceID:  cfg.ZAPI.InstanceID,
			ClientToken: cfg.ZAPI.ClientToken,
			Timeout:     time.Duration(cfg.ZAPI.TimeoutSec) * time.Second,
		})}
	}
	if cfg.Email.Enabled {
		transports[ProviderMailer] = &emailTransport{client: mailer.NewClient(mailer.ClientConfig{
			BaseURL:   cfg.Email.APIBaseURL,
			APIKey:    cfg.Email.APIKey,
			FromEmail: cfg.Email.FromEmail,
			FromName:  cfg.Email.FromName,
			Timeout:   time.Duration(cfg.Email.TimeoutSec) * time.Second,
		})}
	}

	return &ProviderRegistry{cfg: cfg, transports: transports}
}

// WithTransport overrides or injects a transport by name. Intended for tests.
func (r *ProviderRegistry) WithTransport(name string, t Transport) *ProviderRegistry {
	r.transports[name] = t
	return r
}

// SenderFor resolves the transport for a channel, failing fast when the
// provider is disabled or unknown.
func (r *ProviderRegistry) SenderFor(channel models.Channel) (Transport, error) {
	var name string
	switch channel {
	case models.ChannelSMS:
		name = ProviderSMSDev
	case models.ChannelWhatsApp:
		name = r.cfg.WhatsApp.ActiveProvider
	case models.ChannelEmail:
		name = ProviderMailer
	default:
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, fmt.Sprintf("unknown channel: %s", channel))
	}

	t, ok := r.transports[name]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeProviderDisabled,
			fmt.Sprintf("provider %s is not enabled for channel %s", name, channel))
	}
	return t, nil
}

// Fallback returns the secondary WhatsApp transport when fallback is enabled
// and the failed transport was the active one. Only WhatsApp has two
// interchangeable transports.
func (r *ProviderRegistry) Fallback(channel models.Channel, failedName string) (Transport, bool) {
	if channel != models.ChannelWhatsApp || !r.cfg.WhatsApp.FallbackEnabled {
		return nil, false
	}

	var secondary string
	switch failedName {
	case ProviderWACloud:
		secondary = ProviderZAPI
	case ProviderZAPI:
		secondary = ProviderWACloud
	default:
		return nil, false
	}

	t, ok := r.transports[secondary]
	return t, ok
}

// StatusFetcherFor returns the polling interface for a provider name, when
// that provider exposes status lookup.
func (r *ProviderRegistry) StatusFetcherFor(name string) (StatusFetcher, bool) {
	t, ok := r.transports[name]
	if !ok {
		return nil, false
	}
	f, ok := t.(StatusFetcher)
	return f, ok
}

// AllowedDestination applies WhatsApp test mode: while enabled, only
// allow-listed destinations receive real sends.
func (r *ProviderRegistry) AllowedDestination(channel models.Channel, destination string) bool {
	if channel != models.ChannelWhatsApp || !r.cfg.WhatsApp.TestMode {
		return true
	}
	for _, allowed := range r.cfg.WhatsApp.TestAllowlist {
		if allowed == destination {
			return true
		}
	}
	return false
}
