package service

import (
	"context"
	"testing"

	"mensageiro/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testReconciler(db StatusStore, registry *ProviderRegistry) *Reconciler {
	return NewReconciler(db, registry, models.ReconcilerConfig{
		BatchSize:        2,
		StuckFloorSec:    60,
		StuckWindowHours: 48,
		SweepLimit:       100,
	}, testLogger())
}

func TestParseSMSCallback_JSON(t *testing.T) {
	update, err := ParseSMSCallback([]byte(`{"id":"123","situacao":"ENTREGUE"}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, "123", update.ExternalID)
	assert.Equal(t, models.MessageStatusDelivered, update.Status)
}

func TestParseSMSCallback_FormEncoded(t *testing.T) {
	update, err := ParseSMSCallback([]byte("msg_id=456&status=ERRO"), "application/x-www-form-urlencoded")
	require.NoError(t, err)
	assert.Equal(t, "456", update.ExternalID)
	assert.Equal(t, models.MessageStatusFailed, update.Status)
}

func TestParseSMSCallback_AlternateFieldNames(t *testing.T) {
	update, err := ParseSMSCallback([]byte(`{"message_id":"789","codigo":"2"}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, "789", update.ExternalID)
	assert.Equal(t, models.MessageStatusSent, update.Status)
}

func TestParseSMSCallback_MissingID(t *testing.T) {
	_, err := ParseSMSCallback([]byte(`{"situacao":"ENTREGUE"}`), "application/json")
	assert.Error(t, err)
}

func TestParseWACloudEnvelope_StatusesAndInbound(t *testing.T) {
	body := []byte(`{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "1",
			"changes": [{
				"field": "messages",
				"value": {
					"messaging_product": "whatsapp",
					"statuses": [{"id": "wamid.A", "status": "delivered", "recipient_id": "5511987654321"}],
					"messages": [{"id": "wamid.B", "from": "5511987654321", "type": "text", "text": {"body": "Obrigada!"}}]
				}
			}]
		}]
	}`)

	updates, inbound, err := ParseWACloudEnvelope(body)
	require.NoError(t, err)

	require.Len(t, updates, 1)
	assert.Equal(t, "wamid.A", updates[0].ExternalID)
	assert.Equal(t, models.MessageStatusDelivered, updates[0].Status)

	require.Len(t, inbound, 1)
	assert.Equal(t, models.DirectionInbound, inbound[0].Direction)
	assert.Equal(t, models.MessageStatusReceived, inbound[0].Status)
	assert.Equal(t, "Obrigada!", inbound[0].Content)
	assert.Equal(t, "5511987654321", inbound[0].Destination)
}

func TestParseWACloudEnvelope_FailedStatusCarriesError(t *testing.T) {
	body := []byte(`{
		"entry": [{"changes": [{"value": {
			"statuses": [{"id": "wamid.C", "status": "failed",
				"errors": [{"code": 131026, "title": "Undeliverable", "message": "Message undeliverable"}]}]
		}}]}]
	}`)

	updates, _, err := ParseWACloudEnvelope(body)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, models.MessageStatusFailed, updates[0].Status)
	assert.Contains(t, updates[0].ErrorDetail, "131026")
}

func TestParseZAPICallback(t *testing.T) {
	update, err := ParseZAPICallback([]byte(`{"messageId":"3EB0", "status":"READ", "phone":"5511987654321"}`))
	require.NoError(t, err)
	assert.Equal(t, "3EB0", update.ExternalID)
	assert.Equal(t, models.MessageStatusRead, update.Status)
}

func TestApplyStatusUpdate_TransitionsMatchedMessage(t *testing.T) {
	ledger := &mockLedger{}
	r := testReconciler(ledger, testRegistry(models.WhatsAppRouterConfig{}))

	ledger.On("GetMessageByExternalID", mock.Anything, ProviderSMSDev, "123").
		Return(&models.Message{ID: 10, Status: models.MessageStatusSent}, nil).Once()
	ledger.On("TransitionMessage", mock.Anything, int64(10), models.MessageStatusDelivered, (*string)(nil)).
		Return(nil).Once()

	err := r.ApplyStatusUpdate(context.Background(), ProviderSMSDev, &models.StatusUpdate{
		ExternalID: "123",
		Status:     models.MessageStatusDelivered,
	})
	require.NoError(t, err)
	ledger.AssertExpectations(t)
}

func TestApplyStatusUpdate_OrphanIsIgnored(t *testing.T) {
	ledger := &mockLedger{}
	r := testReconciler(ledger, testRegistry(models.WhatsAppRouterConfig{}))

	ledger.On("GetMessageByExternalID", mock.Anything, ProviderSMSDev, "999").
		Return(nil, nil).Once()

	err := r.ApplyStatusUpdate(context.Background(), ProviderSMSDev, &models.StatusUpdate{
		ExternalID: "999",
		Status:     models.MessageStatusDelivered,
	})
	require.NoError(t, err)
	ledger.AssertNotCalled(t, "TransitionMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyStatusUpdate_UnknownCodeIsNoOp(t *testing.T) {
	ledger := &mockLedger{}
	r := testReconciler(ledger, testRegistry(models.WhatsAppRouterConfig{}))

	err := r.ApplyStatusUpdate(context.Background(), ProviderSMSDev, &models.StatusUpdate{
		ExternalID: "123",
		Status:     models.MessageStatusPending,
	})
	require.NoError(t, err)
	ledger.AssertNotCalled(t, "GetMessageByExternalID", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordInbound_DeduplicatesByExternalID(t *testing.T) {
	ledger := &mockLedger{}
	r := testReconciler(ledger, testRegistry(models.WhatsAppRouterConfig{}))

	extID := "wamid.B"
	msg := &models.Message{
		Channel:     models.ChannelWhatsApp,
		Direction:   models.DirectionInbound,
		Provider:    ProviderWACloud,
		ExternalID:  &extID,
		Destination: "5511987654321",
		Content:     "Obrigada!",
		Status:      models.MessageStatusReceived,
	}

	ledger.On("GetMessageByExternalID", mock.Anything, ProviderWACloud, "wamid.B").
		Return(nil, nil).Once()
	ledger.On("RecordMessage", mock.Anything, msg).Return(int64(11), nil).Once()

	require.NoError(t, r.RecordInbound(context.Background(), msg))

	// Redelivery of the same webhook records nothing.
	ledger.On("GetMessageByExternalID", mock.Anything, ProviderWACloud, "wamid.B").
		Return(&models.Message{ID: 11}, nil).Once()
	require.NoError(t, r.RecordInbound(context.Background(), msg))

	ledger.AssertExpectations(t)
	ledger.AssertNumberOfCalls(t, "RecordMessage", 1)
}

func TestReconcilePending_PollsAndApplies(t *testing.T) {
	transport := &mockFetchingTransport{}
	transport.name = ProviderSMSDev
	registry := testRegistry(models.WhatsAppRouterConfig{}).WithTransport(ProviderSMSDev, transport)
	ledger := &mockLedger{}
	r := testReconciler(ledger, registry)

	extID := "123"
	stuck := []*models.Message{{
		ID:         10,
		Provider:   ProviderSMSDev,
		ExternalID: &extID,
		Status:     models.MessageStatusSent,
	}}

	ledger.On("ListStuckMessages", mock.Anything, mock.Anything, mock.Anything, 100).
		Return(stuck, nil).Once()
	transport.On("FetchStatus", mock.Anything, "123").
		Return(&models.StatusUpdate{Status: models.MessageStatusDelivered}, nil).Once()
	ledger.On("GetMessageByExternalID", mock.Anything, ProviderSMSDev, "123").
		Return(&models.Message{ID: 10, Status: models.MessageStatusSent}, nil).Once()
	ledger.On("TransitionMessage", mock.Anything, int64(10), models.MessageStatusDelivered, (*string)(nil)).
		Return(nil).Once()

	require.NoError(t, r.ReconcilePending(context.Background()))
	ledger.AssertExpectations(t)
	transport.AssertExpectations(t)
}

func TestReconcilePending_SkipsWebhookOnlyProviders(t *testing.T) {
	// A plain transport without status lookup must simply be skipped.
	transport := &mockTransport{name: ProviderWACloud}
	registry := testRegistry(models.WhatsAppRouterConfig{ActiveProvider: ProviderWACloud}).
		WithTransport(ProviderWACloud, transport)
	ledger := &mockLedger{}
	r := testReconciler(ledger, registry)

	extID := "wamid.A"
	stuck := []*models.Message{{
		ID:         12,
		Provider:   ProviderWACloud,
		ExternalID: &extID,
		Status:     models.MessageStatusSent,
	}}

	ledger.On("ListStuckMessages", mock.Anything, mock.Anything, mock.Anything, 100).
		Return(stuck, nil).Once()

	require.NoError(t, r.ReconcilePending(context.Background()))
	ledger.AssertNotCalled(t, "TransitionMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
