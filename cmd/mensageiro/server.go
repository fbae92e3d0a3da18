package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mensageiro/internal/constants"
	"mensageiro/internal/database"
	apperrors "mensageiro/internal/errors"
	"mensageiro/internal/metrics"
	"mensageiro/internal/models"
	"mensageiro/internal/service"
	"mensageiro/pkg/wacloud"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const maxWebhookBodyBytes = 1 << 20

type Server struct {
	router      *mux.Router
	logger      *logrus.Logger
	cfg         *models.Config
	sendService *service.SendService
	reconciler  *service.Reconciler
	db          *database.Database
	server      *http.Server
}

func NewServer(cfg *models.Config, sendService *service.SendService, reconciler *service.Reconciler, db *database.Database, logger *logrus.Logger) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		logger:      logger,
		cfg:         cfg,
		sendService: sendService,
		reconciler:  reconciler,
		db:          db,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/messages").Subrouter()
	api.HandleFunc("/send", s.handleSend()).Methods(http.MethodPost)
	api.HandleFunc("/schedule", s.handleSchedule()).Methods(http.MethodPost)

	s.router.HandleFunc("/webhook/sms", s.handleSMSWebhook()).Methods(http.MethodPost)
	s.router.HandleFunc("/webhook/whatsapp", s.handleWACloudVerify()).Methods(http.MethodGet)
	s.router.HandleFunc("/webhook/whatsapp", s.handleWACloudWebhook()).Methods(http.MethodPost)
	s.router.HandleFunc("/webhook/zapi", s.handleZAPIWebhook()).Methods(http.MethodPost)
}

func (s *Server) Start() error {
	port := s.cfg.Server.Port
	if port == 0 {
		port = constants.DefaultServerPort
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  constants.DefaultServerReadTimeoutSec * time.Second,
		WriteTimeout: constants.DefaultServerWriteTimeoutSec * time.Second,
		IdleTimeout:  constants.DefaultServerIdleTimeoutSec * time.Second,
	}

	s.logger.Infof("Starting server on port %d", port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

// Request bodies accept camelCase keys (messageType, recipient, templateSlug,
// contactId, ...) as aliases for the snake_case fields; snake_case wins when a
// request carries both spellings.
type sendRequestBody struct {
	Channel      string            `json:"channel"`
	Destination  string            `json:"destination"`
	TemplateSlug string            `json:"template_slug,omitempty"`
	Variables    map[string]string `json:"variables,omitempty"`
	Content      string            `json:"content,omitempty"`
	Subject      string            `json:"subject,omitempty"`
	ContactID    *int64            `json:"contact_id,omitempty"`
	LeaderID     *int64            `json:"leader_id,omitempty"`
	SourceKind   *string           `json:"source_kind,omitempty"`
	SourceID     *int64            `json:"source_id,omitempty"`

	MessageType       string  `json:"messageType,omitempty"`
	Recipient         string  `json:"recipient,omitempty"`
	TemplateSlugAlias string  `json:"templateSlug,omitempty"`
	ContactIDAlias    *int64  `json:"contactId,omitempty"`
	LeaderIDAlias     *int64  `json:"leaderId,omitempty"`
	SourceKindAlias   *string `json:"sourceKind,omitempty"`
	SourceIDAlias     *int64  `json:"sourceId,omitempty"`
}

func (b *sendRequestBody) normalize() {
	if b.Channel == "" {
		b.Channel = b.MessageType
	}
	if b.Destination == "" {
		b.Destination = b.Recipient
	}
	if b.TemplateSlug == "" {
		b.TemplateSlug = b.TemplateSlugAlias
	}
	if b.ContactID == nil {
		b.ContactID = b.ContactIDAlias
	}
	if b.LeaderID == nil {
		b.LeaderID = b.LeaderIDAlias
	}
	if b.SourceKind == nil {
		b.SourceKind = b.SourceKindAlias
	}
	if b.SourceID == nil {
		b.SourceID = b.SourceIDAlias
	}
}

func (s *Server) handleSend() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body sendRequestBody
		if err := json.NewDecoder(io.LimitReader(r.Body, maxWebhookBodyBytes)).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		body.normalize()

		outcome, err := s.sendService.Send(r.Context(), service.SendRequest{
			Channel:      models.Channel(body.Channel),
			Destination:  body.Destination,
			TemplateSlug: body.TemplateSlug,
			Variables:    body.Variables,
			Content:      body.Content,
			Subject:      body.Subject,
			ContactID:    body.ContactID,
			LeaderID:     body.LeaderID,
			SourceKind:   body.SourceKind,
			SourceID:     body.SourceID,
		})
		if err != nil {
			status := http.StatusBadRequest
			if apperrors.IsCode(err, apperrors.ErrCodeDatabaseQuery) {
				status = http.StatusInternalServerError
			}
			s.writeError(w, status, err.Error())
			return
		}

		s.writeJSON(w, http.StatusCreated, map[string]interface{}{
			"message_id":  outcome.MessageID,
			"status":      outcome.Status,
			"provider":    outcome.Provider,
			"external_id": outcome.ExternalID,
			"error":       outcome.ErrorText,
		})
	}
}

type scheduleRequestBody struct {
	Channel      string            `json:"channel"`
	Recipient    string            `json:"recipient"`
	TemplateSlug string            `json:"template_slug"`
	Variables    map[string]string `json:"variables,omitempty"`
	ScheduledFor time.Time         `json:"scheduled_for"`
	ContactID    *int64            `json:"contact_id,omitempty"`
	LeaderID     *int64            `json:"leader_id,omitempty"`

	MessageType       string    `json:"messageType,omitempty"`
	TemplateSlugAlias string    `json:"templateSlug,omitempty"`
	ScheduledForAlias time.Time `json:"scheduledFor"`
	ContactIDAlias    *int64    `json:"contactId,omitempty"`
	LeaderIDAlias     *int64    `json:"leaderId,omitempty"`
}

func (b *scheduleRequestBody) normalize() {
	if b.Channel == "" {
		b.Channel = b.MessageType
	}
	if b.TemplateSlug == "" {
		b.TemplateSlug = b.TemplateSlugAlias
	}
	if b.ScheduledFor.IsZero() {
		b.ScheduledFor = b.ScheduledForAlias
	}
	if b.ContactID == nil {
		b.ContactID = b.ContactIDAlias
	}
	if b.LeaderID == nil {
		b.LeaderID = b.LeaderIDAlias
	}
}

func (s *Server) handleSchedule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body scheduleRequestBody
		if err := json.NewDecoder(io.LimitReader(r.Body, maxWebhookBodyBytes)).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		body.normalize()

		channel := models.Channel(body.Channel)
		switch {
		case !channel.Valid():
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid channel: %q", body.Channel))
			return
		case body.Recipient == "":
			s.writeError(w, http.StatusBadRequest, "recipient is required")
			return
		case body.TemplateSlug == "":
			s.writeError(w, http.StatusBadRequest, "template_slug is required")
			return
		case body.ScheduledFor.IsZero():
			s.writeError(w, http.StatusBadRequest, "scheduled_for is required")
			return
		}

		id, err := s.db.CreateScheduledMessage(r.Context(), &models.ScheduledMessage{
			Channel:      channel,
			Recipient:    body.Recipient,
			TemplateSlug: body.TemplateSlug,
			Variables:    body.Variables,
			ScheduledFor: body.ScheduledFor.UTC(),
			ContactID:    body.ContactID,
			LeaderID:     body.LeaderID,
		})
		if err != nil {
			s.logger.WithError(err).Error("Failed to create scheduled message")
			s.writeError(w, http.StatusInternalServerError, "failed to schedule message")
			return
		}

		s.writeJSON(w, http.StatusCreated, map[string]interface{}{
			"scheduled_id":  id,
			"status":        models.ScheduledStatusPending,
			"scheduled_for": body.ScheduledFor.UTC(),
		})
	}
}

// Webhook handlers acknowledge with 200 even for malformed payloads and for
// payloads that reference unknown messages: returning an error would only make
// the provider retry a callback we will never be able to apply, and some
// providers disable the webhook entirely after repeated non-2xx responses.
func (s *Server) handleSMSWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "failed to read body")
			return
		}

		update, err := service.ParseSMSCallback(body, r.Header.Get("Content-Type"))
		if err != nil {
			s.ignoreMalformed(w, service.ProviderSMSDev, err)
			return
		}

		if err := s.reconciler.ApplyStatusUpdate(r.Context(), service.ProviderSMSDev, update); err != nil {
			s.logger.WithError(err).Error("Failed to apply SMS status update")
			s.writeError(w, http.StatusInternalServerError, "failed to apply update")
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// handleWACloudVerify answers the cloud API's subscription handshake.
func (s *Server) handleWACloudVerify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		challenge, err := wacloud.VerifyWebhook(
			q.Get("hub.mode"),
			q.Get("hub.verify_token"),
			q.Get("hub.challenge"),
			s.cfg.Providers.WACloud.VerifyToken,
		)
		if err != nil {
			s.logger.WithError(err).Warn("Webhook verification rejected")
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
	}
}

func (s *Server) handleWACloudWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "failed to read body")
			return
		}

		updates, inbound, err := service.ParseWACloudEnvelope(body)
		if err != nil {
			s.ignoreMalformed(w, service.ProviderWACloud, err)
			return
		}

		for i := range updates {
			if err := s.reconciler.ApplyStatusUpdate(r.Context(), service.ProviderWACloud, &updates[i]); err != nil {
				s.logger.WithError(err).Error("Failed to apply status update")
			}
		}
		for _, msg := range inbound {
			if err := s.reconciler.RecordInbound(r.Context(), msg); err != nil {
				s.logger.WithError(err).Error("Failed to record inbound message")
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) handleZAPIWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "failed to read body")
			return
		}

		update, err := service.ParseZAPICallback(body)
		if err != nil {
			s.ignoreMalformed(w, service.ProviderZAPI, err)
			return
		}

		if err := s.reconciler.ApplyStatusUpdate(r.Context(), service.ProviderZAPI, update); err != nil {
			s.logger.WithError(err).Error("Failed to apply status update")
			s.writeError(w, http.StatusInternalServerError, "failed to apply update")
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// ignoreMalformed logs and counts an unparseable webhook payload, then acks
// it so the provider stops retrying.
func (s *Server) ignoreMalformed(w http.ResponseWriter, provider string, err error) {
	s.logger.WithError(err).WithField("provider", provider).Warn("Ignoring malformed webhook payload")
	metrics.IncrementCounter("status_updates_malformed_total", map[string]string{
		"provider": provider,
	}, "Webhook payloads that could not be parsed")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
