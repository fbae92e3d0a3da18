package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mensageiro/internal/models"
)

const messageColumns = `id, channel, direction, provider, external_id, destination,
	content, status, error_detail, contact_id, leader_id, source_kind, source_id,
	created_at, sent_at, delivered_at, read_at`

// RecordMessage appends one ledger row. Rows are never deleted, only
// transitioned.
func (d *Database) RecordMessage(ctx context.Context, msg *models.Message) (int64, error) {
	encryptedDestination, err := d.encryptor.EncryptIfEnabled(msg.Destination)
	if err != nil {
		return 0, fmt.Errorf("failed to encrypt destination: %w", err)
	}

	encryptedContent, err := d.encryptor.EncryptIfEnabled(msg.Content)
	if err != nil {
		return 0, fmt.Errorf("failed to encrypt content: %w", err)
	}

	var encryptedExternalID *string
	if msg.ExternalID != nil {
		encrypted, err := d.encryptor.EncryptForLookupIfEnabled(*msg.ExternalID)
		if err != nil {
			return 0, fmt.Errorf("failed to encrypt external ID: %w", err)
		}
		encryptedExternalID = &encrypted
	}

	status := msg.Status
	if status == "" {
		status = models.MessageStatusPending
	}
	direction := msg.Direction
	if direction == "" {
		direction = models.DirectionOutbound
	}

	query := `
		INSERT INTO messages (
			channel, direction, provider, external_id, destination, content,
			status, error_detail, contact_id, leader_id, source_kind, source_id, sent_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := d.db.ExecContext(ctx, query,
		msg.Channel,
		direction,
		msg.Provider,
		encryptedExternalID,
		encryptedDestination,
		encryptedContent,
		status,
		msg.ErrorDetail,
		msg.ContactID,
		msg.LeaderID,
		msg.SourceKind,
		msg.SourceID,
		msg.SentAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get message id: %w", err)
	}
	msg.ID = id
	return id, nil
}

// TransitionMessage applies a status change. Re-applying the current status,
// moving backwards, or touching a terminal row is a silent no-op. Timestamp
// columns are only ever set once. The update is guarded on the status it was
// decided against, so a concurrent writer (webhook racing the poller) cannot
// move a row backwards: losing the race means re-reading and re-checking.
func (d *Database) TransitionMessage(ctx context.Context, id int64, newStatus models.MessageStatus, errorDetail *string) error {
	for {
		var current models.MessageStatus
		err := d.db.QueryRowContext(ctx, `SELECT status FROM messages WHERE id = ?`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return fmt.Errorf("no message found with id %d", id)
		}
		if err != nil {
			return fmt.Errorf("failed to read message status: %w", err)
		}

		if !models.CanTransition(current, newStatus) {
			return nil
		}

		query := `UPDATE messages SET status = ?, error_detail = COALESCE(?, error_detail)`
		if col := newStatus.TimestampColumn(); col != "" {
			query += fmt.Sprintf(", %s = COALESCE(%s, CURRENT_TIMESTAMP)", col, col)
		}
		query += ` WHERE id = ? AND status = ?`

		result, err := d.db.ExecContext(ctx, query, newStatus, errorDetail, id, current)
		if err != nil {
			return fmt.Errorf("failed to transition message: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to transition message: %w", err)
		}
		if affected > 0 {
			return nil
		}
	}
}

// SetMessageExternalID attaches the provider-assigned id once the provider
// accepts the message.
func (d *Database) SetMessageExternalID(ctx context.Context, id int64, externalID string) error {
	encrypted, err := d.encryptor.EncryptForLookupIfEnabled(externalID)
	if err != nil {
		return fmt.Errorf("failed to encrypt external ID: %w", err)
	}

	if _, err := d.db.ExecContext(ctx, `UPDATE messages SET external_id = ? WHERE id = ?`, encrypted, id); err != nil {
		return fmt.Errorf("failed to set external ID: %w", err)
	}
	return nil
}

// GetMessage retrieves a ledger row by internal id; (nil, nil) when absent.
func (d *Database) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	return d.scanMessage(row)
}

// GetMessageByExternalID locates the ledger row for a provider callback or
// poll result; (nil, nil) when no row matches.
func (d *Database) GetMessageByExternalID(ctx context.Context, provider, externalID string) (*models.Message, error) {
	encrypted, err := d.encryptor.EncryptForLookupIfEnabled(externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt external ID: %w", err)
	}

	row := d.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE provider = ? AND external_id = ?`,
		provider, encrypted)
	return d.scanMessage(row)
}

// ListStuckMessages returns outbound messages that have sat in a non-terminal
// state for longer than floor but less than window, oldest first. Messages
// past the window have aged out of reconciliation.
func (d *Database) ListStuckMessages(ctx context.Context, floor, window time.Duration, limit int) ([]*models.Message, error) {
	now := time.Now().UTC()
	newest := now.Add(-floor)
	oldest := now.Add(-window)

	rows, err := d.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE direction = 'outbound'
		  AND status IN ('pending', 'queued', 'sent')
		  AND external_id IS NOT NULL
		  AND created_at <= ?
		  AND created_at >= ?
		ORDER BY created_at ASC
		LIMIT ?`,
		newest, oldest, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stuck messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg, err := d.scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (d *Database) scanMessage(row rowScanner) (*models.Message, error) {
	msg := &models.Message{}
	var encryptedExternalID *string
	var encryptedDestination, encryptedContent string

	err := row.Scan(
		&msg.ID,
		&msg.Channel,
		&msg.Direction,
		&msg.Provider,
		&encryptedExternalID,
		&encryptedDestination,
		&encryptedContent,
		&msg.Status,
		&msg.ErrorDetail,
		&msg.ContactID,
		&msg.LeaderID,
		&msg.SourceKind,
		&msg.SourceID,
		&msg.CreatedAt,
		&msg.SentAt,
		&msg.DeliveredAt,
		&msg.ReadAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}

	if encryptedExternalID != nil {
		decrypted, err := d.encryptor.DecryptIfEnabled(*encryptedExternalID)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt external ID: %w", err)
		}
		msg.ExternalID = &decrypted
	}

	msg.Destination, err = d.encryptor.DecryptIfEnabled(encryptedDestination)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt destination: %w", err)
	}

	msg.Content, err = d.encryptor.DecryptIfEnabled(encryptedContent)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt content: %w", err)
	}

	return msg, nil
}
