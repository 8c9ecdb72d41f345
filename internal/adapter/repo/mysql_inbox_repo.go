package repo

import (
	"context"
	"database/sql"

	"github.com/aq2208/gorder-bridge/internal/usecase"
)

// MySQLInboxRepo stores forwarded messages in the inbox table.
// A redelivered message with the same id is a no-op.
type MySQLInboxRepo struct{ db *sql.DB }

func NewMySQLInboxRepo(db *sql.DB) *MySQLInboxRepo { return &MySQLInboxRepo{db: db} }

func (r *MySQLInboxRepo) Forward(ctx context.Context, env usecase.Envelope) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO inbox (id,routing_key,content_type,body,redelivered,status,received_at)
VALUES (?, ?, ?, ?, ?, 'PENDING', ?)
ON DUPLICATE KEY UPDATE id = id
`, env.ID, env.RoutingKey, env.ContentType, env.Body, env.Redelivered, env.ReceivedAt)
	return err
}

var _ usecase.Sink = (*MySQLInboxRepo)(nil)
