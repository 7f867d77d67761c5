package repository

import (
	"context"
	"fmt"

	"filmcrew-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRepository handles database operations for messages
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, conversation_id, sender_id, content, type, sent_at, delivered`

func scanMessage(row pgx.Row) (*models.Message, error) {
	var msg models.Message
	err := row.Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content,
		&msg.Type, &msg.SentAt, &msg.Delivered,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// Insert stores a message. The insert is idempotent on the message ID:
// re-sending the same ID leaves the stored row untouched and returns it,
// so a retried send never produces a duplicate.
func (r *MessageRepository) Insert(ctx context.Context, msg *models.Message) (*models.Message, bool, error) {
	query := `
		INSERT INTO messages (id, conversation_id, sender_id, content, type, sent_at, delivered)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	result, err := r.db.Exec(ctx, query,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Content,
		msg.Type, msg.SentAt, msg.Delivered,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert message: %w", err)
	}

	if result.RowsAffected() == 0 {
		existing, err := r.GetByID(ctx, msg.ID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	return msg, true, nil
}

// GetByID retrieves a message by ID
func (r *MessageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	msg, err := scanMessage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("message not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

// ListByConversation retrieves the full history of a conversation in
// display order (oldest first)
func (r *MessageRepository) ListByConversation(ctx context.Context, convID string) ([]*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1
		ORDER BY sent_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, convID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// LatestByConversation retrieves the most recent message of a conversation,
// or nil if the conversation has none
func (r *MessageRepository) LatestByConversation(ctx context.Context, convID string) (*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1
		ORDER BY sent_at DESC, id DESC
		LIMIT 1
	`
	msg, err := scanMessage(r.db.QueryRow(ctx, query, convID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest message: %w", err)
	}
	return msg, nil
}

// MarkDelivered flags a message as delivered to its recipients
func (r *MessageRepository) MarkDelivered(ctx context.Context, id string) error {
	query := `UPDATE messages SET delivered = true WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark message delivered: %w", err)
	}
	return nil
}
