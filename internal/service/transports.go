package service

import (
	"context"
	"fmt"

	"mensageiro/internal/models"
	"mensageiro/pkg/mailer"
	"mensageiro/pkg/smsdev"
	"mensageiro/pkg/wacloud"
	"mensageiro/pkg/zapi"
)

// smsTransport adapts the SMS client to the uniform Transport interface.
type smsTransport struct {
	client *smsdev.Client
}

func (t *smsTransport) Name() string { return ProviderSMSDev }

func (t *smsTransport) Send(ctx context.Context, payload SendPayload) (*SendResult, error) {
	resp, err := t.client.Send(ctx, payload.Destination, payload.Content)
	if err != nil {
		return nil, err
	}

	switch resp.Situacao {
	case smsdev.SituationOK, smsdev.SituationQueued:
		return &SendResult{ExternalID: resp.ID, Status: models.MessageStatusQueued}, nil
	default:
		detail := resp.Descricao
		if detail == "" {
			detail = resp.Situacao
		}
		return nil, fmt.Errorf("sms rejected (%s): %s", resp.Situacao, detail)
	}
}

func (t *smsTransport) FetchStatus(ctx context.Context, externalID string) (*models.StatusUpdate, error) {
	resp, err := t.client.GetStatus(ctx, externalID)
	if err != nil {
		return nil, err
	}
	return &models.StatusUpdate{
		ExternalID:  externalID,
		Status:      MapSMSStatus(resp.Situacao),
		ErrorDetail: resp.Descricao,
	}, nil
}

// waCloudTransport adapts the cloud-API WhatsApp client. The cloud API has
// no status lookup endpoint; its delivery state arrives via webhook only, so
// this transport does not implement StatusFetcher.
type waCloudTransport struct {
	client *wacloud.Client
}

func (t *waCloudTransport) Name() string { return ProviderWACloud }

func (t *waCloudTransport) Send(ctx context.Context, payload SendPayload) (*SendResult, error) {
	resp, err := t.client.SendText(ctx, payload.Destination, payload.Content)
	if err != nil {
		return nil, err
	}
	if resp.MessageID() == "" {
		return nil, fmt.Errorf("cloud API accepted the request but returned no message id")
	}
	return &SendResult{ExternalID: resp.MessageID(), Status: models.MessageStatusQueued}, nil
}

// zapiTransport adapts the QR-paired WhatsApp gateway.
type zapiTransport struct {
	client *zapi.Client
}

func (t *zapiTransport) Name() string { return ProviderZAPI }

func (t *zapiTransport) Send(ctx context.Context, payload SendPayload) (*SendResult, error) {
	resp, err := t.client.SendText(ctx, payload.Destination, payload.Content)
	if err != nil {
		return nil, err
	}
	id := resp.MessageID
	if id == "" {
		id = resp.ZaapID
	}
	if id == "" {
		return nil, fmt.Errorf("gateway accepted the request but returned no message id")
	}
	return &SendResult{ExternalID: id, Status: models.MessageStatusQueued}, nil
}

func (t *zapiTransport) FetchStatus(ctx context.Context, externalID string) (*models.StatusUpdate, error) {
	resp, err := t.client.GetStatus(ctx, externalID)
	if err != nil {
		return nil, err
	}
	return &models.StatusUpdate{
		ExternalID:  externalID,
		Status:      MapWhatsAppStatus(resp.Status),
		ErrorDetail: resp.Error,
	}, nil
}

// emailTransport adapts the transactional email client. Email providers ack
// synchronously; the message is considered sent on acceptance.
type emailTransport struct {
	client *mailer.Client
}

func (t *emailTransport) Name() string { return ProviderMailer }

func (t *emailTransport) Send(ctx context.Context, payload SendPayload) (*SendResult, error) {
	subject := payload.Subject
	if subject == "" {
		subject = "Mensagem do gabinete"
	}

	resp, err := t.client.Send(ctx, payload.Destination, subject, payload.Content)
	if err != nil {
		return nil, err
	}

	return &SendResult{ExternalID: resp.ID, Status: models.MessageStatusSent}, nil
}
