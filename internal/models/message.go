package models

import (
	"time"
)

type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelSMS, ChannelWhatsApp, ChannelEmail:
		return true
	}
	return false
}

type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusQueued    MessageStatus = "queued"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
	MessageStatusReceived  MessageStatus = "received"
)

// statusRank orders the outbound lifecycle. failed and received sit outside
// the ordering: failed is terminal from any non-terminal state, received is
// inbound-only.
var statusRank = map[MessageStatus]int{
	MessageStatusPending:   0,
	MessageStatusQueued:    1,
	MessageStatusSent:      2,
	MessageStatusDelivered: 3,
	MessageStatusRead:      4,
}

func (s MessageStatus) Terminal() bool {
	return s == MessageStatusRead || s == MessageStatusFailed || s == MessageStatusReceived
}

// CanTransition reports whether moving from one status to another is a real
// state change. Re-applying the current or an earlier status is not an error,
// it is simply not a transition.
func CanTransition(from, to MessageStatus) bool {
	if from == to {
		return false
	}
	if from == MessageStatusFailed || from == MessageStatusReceived {
		return false
	}
	if to == MessageStatusFailed {
		return from != MessageStatusRead
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// TimestampColumn names the ledger column set when a message first reaches
// the given status, or "" when the status carries no timestamp of its own.
func (s MessageStatus) TimestampColumn() string {
	switch s {
	case MessageStatusQueued, MessageStatusSent:
		return "sent_at"
	case MessageStatusDelivered:
		return "delivered_at"
	case MessageStatusRead:
		return "read_at"
	}
	return ""
}

// Message is one row of the delivery ledger: a single attempt to move content
// to or from a destination, never deleted, only transitioned.
type Message struct {
	ID          int64         `db:"id"`
	Channel     Channel       `db:"channel"`
	Direction   Direction     `db:"direction"`
	Provider    string        `db:"provider"`
	ExternalID  *string       `db:"external_id"`
	Destination string        `db:"destination"`
	Content     string        `db:"content"`
	Status      MessageStatus `db:"status"`
	ErrorDetail *string       `db:"error_detail"`
	ContactID   *int64        `db:"contact_id"`
	LeaderID    *int64        `db:"leader_id"`
	SourceKind  *string       `db:"source_kind"`
	SourceID    *int64        `db:"source_id"`
	CreatedAt   time.Time     `db:"created_at"`
	SentAt      *time.Time    `db:"sent_at"`
	DeliveredAt *time.Time    `db:"delivered_at"`
	ReadAt      *time.Time    `db:"read_at"`
}

type ScheduledStatus string

const (
	ScheduledStatusPending    ScheduledStatus = "pending"
	ScheduledStatusProcessing ScheduledStatus = "processing"
	ScheduledStatusSent       ScheduledStatus = "sent"
	ScheduledStatusFailed     ScheduledStatus = "failed"
)

// ScheduledMessage is a queued future send, consumed by exactly one dispatch
// pass.
type ScheduledMessage struct {
	ID           int64             `db:"id"`
	Channel      Channel           `db:"channel"`
	Recipient    string            `db:"recipient"`
	TemplateSlug string            `db:"template_slug"`
	Variables    map[string]string `db:"-"`
	ScheduledFor time.Time         `db:"scheduled_for"`
	Status       ScheduledStatus   `db:"status"`
	ErrorDetail  *string           `db:"error_detail"`
	ContactID    *int64            `db:"contact_id"`
	LeaderID     *int64            `db:"leader_id"`
	ProcessedAt  *time.Time        `db:"processed_at"`
	CreatedAt    time.Time         `db:"created_at"`
}

// StatusUpdate is the canonical result of parsing a provider callback or a
// status-lookup response, independent of the wire shape it arrived in.
type StatusUpdate struct {
	ExternalID  string
	Status      MessageStatus
	ErrorDetail string
}
