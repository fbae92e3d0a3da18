package service

import (
	"testing"

	"mensageiro/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestMapSMSStatus(t *testing.T) {
	tests := []struct {
		code string
		want models.MessageStatus
	}{
		{"OK", models.MessageStatusQueued},
		{"FILA", models.MessageStatusQueued},
		{"1", models.MessageStatusQueued},
		{"ENVIADA", models.MessageStatusSent},
		{"2", models.MessageStatusSent},
		{"entregue", models.MessageStatusDelivered},
		{" ENTREGUE ", models.MessageStatusDelivered},
		{"3", models.MessageStatusDelivered},
		{"ERRO", models.MessageStatusFailed},
		{"BLOQUEADO", models.MessageStatusFailed},
		{"CANCELADO", models.MessageStatusFailed},
		{"NOVO_CODIGO_DESCONHECIDO", models.MessageStatusPending},
		{"", models.MessageStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, MapSMSStatus(tt.code))
		})
	}
}

func TestMapWhatsAppStatus(t *testing.T) {
	tests := []struct {
		code string
		want models.MessageStatus
	}{
		{"accepted", models.MessageStatusQueued},
		{"SENT", models.MessageStatusSent},
		{"delivered", models.MessageStatusDelivered},
		{"RECEIVED", models.MessageStatusDelivered},
		{"read", models.MessageStatusRead},
		{"played", models.MessageStatusRead},
		{"failed", models.MessageStatusFailed},
		{"error", models.MessageStatusFailed},
		{"something-new", models.MessageStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, MapWhatsAppStatus(tt.code))
		})
	}
}
