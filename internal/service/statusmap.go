package service

import (
	"strings"

	"mensageiro/internal/models"
)

// smsStatusMap converges the SMS provider's situational codes (textual and
// numeric, depending on API generation) onto the canonical status set.
var smsStatusMap = map[string]models.MessageStatus{
	"OK":        models.MessageStatusQueued,
	"FILA":      models.MessageStatusQueued,
	"1":         models.MessageStatusQueued,
	"ENVIADA":   models.MessageStatusSent,
	"2":         models.MessageStatusSent,
	"ENTREGUE":  models.MessageStatusDelivered,
	"3":         models.MessageStatusDelivered,
	"ERRO":      models.MessageStatusFailed,
	"BLOQUEADO": models.MessageStatusFailed,
	"CANCELADO": models.MessageStatusFailed,
	"4":         models.MessageStatusFailed,
	"5":         models.MessageStatusFailed,
}

// waStatusMap converges both WhatsApp transports' status strings.
var waStatusMap = map[string]models.MessageStatus{
	"accepted":  models.MessageStatusQueued,
	"queued":    models.MessageStatusQueued,
	"pending":   models.MessageStatusQueued,
	"sent":      models.MessageStatusSent,
	"delivered": models.MessageStatusDelivered,
	"received":  models.MessageStatusDelivered,
	"read":      models.MessageStatusRead,
	"played":    models.MessageStatusRead,
	"failed":    models.MessageStatusFailed,
	"error":     models.MessageStatusFailed,
}

// MapSMSStatus maps a raw SMS situational code to a canonical status.
// Unknown codes map to pending so payload drift never becomes an error.
func MapSMSStatus(code string) models.MessageStatus {
	if status, ok := smsStatusMap[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return status
	}
	return models.MessageStatusPending
}

// MapWhatsAppStatus maps a raw WhatsApp status string to a canonical status.
func MapWhatsAppStatus(code string) models.MessageStatus {
	if status, ok := waStatusMap[strings.ToLower(strings.TrimSpace(code))]; ok {
		return status
	}
	return models.MessageStatusPending
}
