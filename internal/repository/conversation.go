package repository

import (
	"context"
	"fmt"
	"time"

	"filmcrew-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConversationRepository handles database operations for conversations
type ConversationRepository struct {
	db *pgxpool.Pool
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

const conversationColumns = `id, is_group, is_city_group, city_id, participant_ids,
	name, last_message, last_message_at, created_at`

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	var conv models.Conversation
	err := row.Scan(
		&conv.ID, &conv.IsGroup, &conv.IsCityGroup, &conv.CityID,
		&conv.ParticipantIDs, &conv.Name, &conv.LastMessage,
		&conv.LastMessageAt, &conv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// CreateDirect inserts a direct conversation. Callers pass the participant
// pair in normalized order; the insert is idempotent on that pair, so two
// concurrent first messages between the same users land in one row.
// Returns the pair's conversation either way.
func (r *ConversationRepository) CreateDirect(ctx context.Context, conv *models.Conversation) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (id, is_group, is_city_group, city_id, participant_ids,
			name, last_message, last_message_at, created_at)
		VALUES ($1, false, false, NULL, $2, $3, NULL, NULL, $4)
		ON CONFLICT ((participant_ids[1]), (participant_ids[2])) WHERE NOT is_group DO NOTHING
	`
	_, err := r.db.Exec(ctx, query,
		conv.ID, conv.ParticipantIDs, conv.Name, conv.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create direct conversation: %w", err)
	}
	return r.FindDirect(ctx, conv.ParticipantIDs[0], conv.ParticipantIDs[1])
}

// GetByID retrieves a conversation by ID
func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	conv, err := scanConversation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("conversation not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// ListByParticipant retrieves all conversations a user participates in,
// most recently active first. Conversations that never received a message
// sort by creation time.
func (r *ConversationRepository) ListByParticipant(ctx context.Context, userID string) ([]*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE participant_ids @> ARRAY[$1]::text[]
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var convs []*models.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return convs, nil
}

// FindDirect retrieves the non-group conversation between exactly two users
func (r *ConversationRepository) FindDirect(ctx context.Context, userAID, userBID string) (*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE is_group = false
			AND participant_ids @> ARRAY[$1, $2]::text[]
			AND cardinality(participant_ids) = 2
		LIMIT 1
	`
	conv, err := scanConversation(r.db.QueryRow(ctx, query, userAID, userBID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("conversation not found: %w", err)
		}
		return nil, fmt.Errorf("failed to find direct conversation: %w", err)
	}
	return conv, nil
}

// CreateCityGroup inserts the group conversation for a city. The insert is
// idempotent: a concurrent insert for the same city leaves the existing row
// untouched. Returns the conversation for the city either way.
func (r *ConversationRepository) CreateCityGroup(ctx context.Context, conv *models.Conversation) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (id, is_group, is_city_group, city_id, participant_ids,
			name, last_message, last_message_at, created_at)
		VALUES ($1, true, true, $2, $3, $4, NULL, NULL, $5)
		ON CONFLICT (city_id) WHERE is_city_group DO NOTHING
	`
	_, err := r.db.Exec(ctx, query,
		conv.ID, conv.CityID, conv.ParticipantIDs, conv.Name, conv.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create city group: %w", err)
	}
	return r.GetCityGroup(ctx, *conv.CityID)
}

// GetCityGroup retrieves the group conversation for a city
func (r *ConversationRepository) GetCityGroup(ctx context.Context, cityID string) (*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE is_city_group = true AND city_id = $1
	`
	conv, err := scanConversation(r.db.QueryRow(ctx, query, cityID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("conversation not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get city group: %w", err)
	}
	return conv, nil
}

// AddParticipant appends a user to a conversation's participant list if not
// already present
func (r *ConversationRepository) AddParticipant(ctx context.Context, convID, userID string) error {
	query := `
		UPDATE conversations
		SET participant_ids = array_append(participant_ids, $2)
		WHERE id = $1 AND NOT participant_ids @> ARRAY[$2]::text[]
	`
	_, err := r.db.Exec(ctx, query, convID, userID)
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

// UpdateLastMessage updates the denormalized last-message snapshot
func (r *ConversationRepository) UpdateLastMessage(ctx context.Context, convID, content string, at time.Time) error {
	query := `UPDATE conversations SET last_message = $1, last_message_at = $2 WHERE id = $3`
	_, err := r.db.Exec(ctx, query, content, at, convID)
	if err != nil {
		return fmt.Errorf("failed to update last message: %w", err)
	}
	return nil
}
