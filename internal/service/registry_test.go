package service

import (
	"testing"

	apperrors "mensageiro/internal/errors"
	"mensageiro/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderRegistry_OnlyEnabledTransports(t *testing.T) {
	registry := NewProviderRegistry(models.ProviderConfig{
		SMS:   models.SMSProviderConfig{Enabled: true, APIKey: "k"},
		Email: models.EmailProviderConfig{Enabled: true, APIKey: "k", FromEmail: "c@g.example"},
	})

	_, err := registry.SenderFor(models.ChannelSMS)
	assert.NoError(t, err)
	_, err = registry.SenderFor(models.ChannelEmail)
	assert.NoError(t, err)

	_, err = registry.SenderFor(models.ChannelWhatsApp)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeProviderDisabled))
}

func TestSenderFor_HonorsActiveWhatsAppProvider(t *testing.T) {
	wacloud := &mockTransport{name: ProviderWACloud}
	zapi := &mockTransport{name: ProviderZAPI}

	registry := testRegistry(models.WhatsAppRouterConfig{ActiveProvider: ProviderZAPI}).
		WithTransport(ProviderWACloud, wacloud).
		WithTransport(ProviderZAPI, zapi)

	transport, err := registry.SenderFor(models.ChannelWhatsApp)
	require.NoError(t, err)
	assert.Equal(t, ProviderZAPI, transport.Name())
}

func TestSenderFor_UnknownChannel(t *testing.T) {
	registry := testRegistry(models.WhatsAppRouterConfig{})
	_, err := registry.SenderFor(models.Channel("fax"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidInput))
}

func TestFallback(t *testing.T) {
	wacloud := &mockTransport{name: ProviderWACloud}
	zapi := &mockTransport{name: ProviderZAPI}

	registry := testRegistry(models.WhatsAppRouterConfig{
		ActiveProvider:  ProviderWACloud,
		FallbackEnabled: true,
	}).WithTransport(ProviderWACloud, wacloud).WithTransport(ProviderZAPI, zapi)

	secondary, ok := registry.Fallback(models.ChannelWhatsApp, ProviderWACloud)
	require.True(t, ok)
	assert.Equal(t, ProviderZAPI, secondary.Name())

	secondary, ok = registry.Fallback(models.ChannelWhatsApp, ProviderZAPI)
	require.True(t, ok)
	assert.Equal(t, ProviderWACloud, secondary.Name())

	// Fallback only applies to the two WhatsApp transports.
	_, ok = registry.Fallback(models.ChannelSMS, ProviderSMSDev)
	assert.False(t, ok)
	_, ok = registry.Fallback(models.ChannelWhatsApp, ProviderSMSDev)
	assert.False(t, ok)
}

func TestFallback_Disabled(t *testing.T) {
	registry := testRegistry(models.WhatsAppRouterConfig{ActiveProvider: ProviderWACloud}).
		WithTransport(ProviderZAPI, &mockTransport{name: ProviderZAPI})

	_, ok := registry.Fallback(models.ChannelWhatsApp, ProviderWACloud)
	assert.False(t, ok)
}

func TestStatusFetcherFor(t *testing.T) {
	fetching := &mockFetchingTransport{}
	fetching.name = ProviderSMSDev
	plain := &mockTransport{name: ProviderWACloud}

	registry := testRegistry(models.WhatsAppRouterConfig{}).
		WithTransport(ProviderSMSDev, fetching).
		WithTransport(ProviderWACloud, plain)

	_, ok := registry.StatusFetcherFor(ProviderSMSDev)
	assert.True(t, ok)

	_, ok = registry.StatusFetcherFor(ProviderWACloud)
	assert.False(t, ok)

	_, ok = registry.StatusFetcherFor("desconhecido")
	assert.False(t, ok)
}

func TestAllowedDestination(t *testing.T) {
	registry := testRegistry(models.WhatsAppRouterConfig{
		TestMode:      true,
		TestAllowlist: []string{"5511999990000"},
	})

	assert.True(t, registry.AllowedDestination(models.ChannelWhatsApp, "5511999990000"))
	assert.False(t, registry.AllowedDestination(models.ChannelWhatsApp, "5511987654321"))

	// Test mode only gates WhatsApp.
	assert.True(t, registry.AllowedDestination(models.ChannelSMS, "11987654321"))

	open := testRegistry(models.WhatsAppRouterConfig{})
	assert.True(t, open.AllowedDestination(models.ChannelWhatsApp, "5511987654321"))
}
