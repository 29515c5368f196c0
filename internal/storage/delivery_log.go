package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Delivery statuses stored in delivery_log.status.
const (
	StatusSent     = "sent"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

// DeliveryLog is one send attempt.
type DeliveryLog struct {
	ID         uuid.UUID `json:"id"`
	MessageID  uuid.UUID `json:"message_id"`
	Client     string    `json:"client,omitempty"`
	Source     string    `json:"source,omitempty"`
	Provider   string    `json:"provider"`
	Sender     string    `json:"sender"`
	Recipients int       `json:"recipients"`
	Subject    string    `json:"subject"`
	Status     string    `json:"status"`
	StatusCode int       `json:"status_code,omitempty"`
	Permanent  bool      `json:"permanent,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListDeliveryLogsParams filters ListDeliveryLogs.
type ListDeliveryLogsParams struct {
	// Client restricts results to one client when set.
	Client string
	Limit  int
	Offset int
}

const insertDeliveryLog = `
INSERT INTO delivery_log (
    id, message_id, client, source, provider, sender, recipients, subject,
    status, status_code, permanent, error, duration_ms, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

// InsertDeliveryLog stores a delivery attempt. A zero ID or CreatedAt is
// filled in before the insert.
func (db *DB) InsertDeliveryLog(ctx context.Context, l *DeliveryLog) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}

	_, err := db.Pool.Exec(ctx, insertDeliveryLog,
		l.ID, l.MessageID, l.Client, l.Source, l.Provider, l.Sender, l.Recipients, l.Subject,
		l.Status, l.StatusCode, l.Permanent, l.Error, l.DurationMS, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery log: %w", err)
	}
	return nil
}

const listDeliveryLogs = `
SELECT id, message_id, client, source, provider, sender, recipients, subject,
       status, status_code, permanent, error, duration_ms, created_at
FROM delivery_log
WHERE ($1 = '' OR client = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

// ListDeliveryLogs returns the most recent delivery attempts, newest first.
func (db *DB) ListDeliveryLogs(ctx context.Context, p ListDeliveryLogsParams) ([]DeliveryLog, error) {
	if p.Limit <= 0 {
		p.Limit = 50
	}

	rows, err := db.Pool.Query(ctx, listDeliveryLogs, p.Client, p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("list delivery logs: %w", err)
	}

	logs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (DeliveryLog, error) {
		var l DeliveryLog
		err := row.Scan(
			&l.ID, &l.MessageID, &l.Client, &l.Source, &l.Provider, &l.Sender, &l.Recipients, &l.Subject,
			&l.Status, &l.StatusCode, &l.Permanent, &l.Error, &l.DurationMS, &l.CreatedAt,
		)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan delivery logs: %w", err)
	}
	return logs, nil
}
