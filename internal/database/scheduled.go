package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"mensageiro/internal/models"
)

const scheduledColumns = `id, channel, recipient, template_slug, variables,
	scheduled_for, status, error_detail, contact_id, leader_id, processed_at, created_at`

// CreateScheduledMessage queues a future send.
func (d *Database) CreateScheduledMessage(ctx context.Context, sm *models.ScheduledMessage) (int64, error) {
	encryptedRecipient, err := d.encryptor.EncryptIfEnabled(sm.Recipient)
	if err != nil {
		return 0, fmt.Errorf("failed to encrypt recipient: %w", err)
	}

	vars := sm.Variables
	if vars == nil {
		vars = map[string]string{}
	}
	varsJSON, err := json.Marshal(vars)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal variables: %w", err)
	}
	encryptedVars, err := d.encryptor.EncryptIfEnabled(string(varsJSON))
	if err != nil {
		return 0, fmt.Errorf("failed to encrypt variables: %w", err)
	}

	query := `
		INSERT INTO scheduled_messages (
			channel, recipient, template_slug, variables, scheduled_for,
			status, contact_id, leader_id
		) VALUES (?, ?, ?, ?, ?, 'pending', ?, ?)
	`

	result, err := d.db.ExecContext(ctx, query,
		sm.Channel,
		encryptedRecipient,
		sm.TemplateSlug,
		encryptedVars,
		sm.ScheduledFor.UTC(),
		sm.ContactID,
		sm.LeaderID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create scheduled message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get scheduled message id: %w", err)
	}
	sm.ID = id
	return id, nil
}

// ClaimDueScheduled marks due pending entries as processing in a single
// statement and returns them, due-time ascending, bounded by batch. Entries
// already processing whose claim is older than staleAfter are reclaimed: a
// pass that died mid-batch must not orphan its rows.
func (d *Database) ClaimDueScheduled(ctx context.Context, now time.Time, batch int, staleAfter time.Duration) ([]*models.ScheduledMessage, error) {
	staleBefore := now.Add(-staleAfter)

	rows, err := d.db.QueryContext(ctx, `
		UPDATE scheduled_messages
		SET status = 'processing', processed_at = ?
		WHERE id IN (
			SELECT id FROM scheduled_messages
			WHERE (status = 'pending' AND scheduled_for <= ?)
			   OR (status = 'processing' AND processed_at <= ?)
			ORDER BY scheduled_for ASC
			LIMIT ?
		)
		RETURNING `+scheduledColumns,
		now.UTC(), now.UTC(), staleBefore.UTC(), batch)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due scheduled messages: %w", err)
	}
	defer rows.Close()

	var claimed []*models.ScheduledMessage
	for rows.Next() {
		sm, err := d.scanScheduled(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, sm)
	}
	return claimed, rows.Err()
}

// FinalizeScheduled consumes a claimed entry. Failed entries are not
// auto-retried.
func (d *Database) FinalizeScheduled(ctx context.Context, id int64, status models.ScheduledStatus, errorDetail *string) error {
	if status != models.ScheduledStatusSent && status != models.ScheduledStatusFailed {
		return fmt.Errorf("invalid final scheduled status: %s", status)
	}

	result, err := d.db.ExecContext(ctx, `
		UPDATE scheduled_messages
		SET status = ?, error_detail = ?, processed_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'processing'`,
		status, errorDetail, id)
	if err != nil {
		return fmt.Errorf("failed to finalize scheduled message: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no processing scheduled message with id %d", id)
	}
	return nil
}

// GetScheduledMessage retrieves one entry by id; (nil, nil) when absent.
func (d *Database) GetScheduledMessage(ctx context.Context, id int64) (*models.ScheduledMessage, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+scheduledColumns+` FROM scheduled_messages WHERE id = ?`, id)
	sm, err := d.scanScheduled(row)
	if err == errScheduledNotFound {
		return nil, nil
	}
	return sm, err
}

var errScheduledNotFound = fmt.Errorf("scheduled message not found")

func (d *Database) scanScheduled(row rowScanner) (*models.ScheduledMessage, error) {
	sm := &models.ScheduledMessage{}
	var encryptedRecipient, encryptedVars string

	err := row.Scan(
		&sm.ID,
		&sm.Channel,
		&encryptedRecipient,
		&sm.TemplateSlug,
		&encryptedVars,
		&sm.ScheduledFor,
		&sm.Status,
		&sm.ErrorDetail,
		&sm.ContactID,
		&sm.LeaderID,
		&sm.ProcessedAt,
		&sm.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errScheduledNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan scheduled message: %w", err)
	}

	sm.Recipient, err = d.encryptor.DecryptIfEnabled(encryptedRecipient)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt recipient: %w", err)
	}

	varsJSON, err := d.encryptor.DecryptIfEnabled(encryptedVars)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt variables: %w", err)
	}
	if varsJSON != "" {
		if err := json.Unmarshal([]byte(varsJSON), &sm.Variables); err != nil {
			return nil, fmt.Errorf("failed to unmarshal variables: %w", err)
		}
	}

	return sm, nil
}
