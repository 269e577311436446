package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

// CanonicalKey derives the order-independent conversation key for a pair of
// users: the smaller id first, joined with an underscore. Both directions of
// a pair resolve to the same key.
func CanonicalKey(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d_%d", a, b)
}

// ConversationStore abstracts the durable conversation and message store.
type ConversationStore interface {
	Append(ctx context.Context, msg models.Message) error
	History(ctx context.Context, userA, userB int) ([]models.Message, error)
	ConversationsFor(ctx context.Context, userID int) ([]models.Conversation, error)
}

// ConversationRepo is a sqlx implementation of ConversationStore.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// Append stores the immutable message and merge-updates the conversation
// summary. The two writes are one logical operation from the caller's view:
// any failure surfaces as a failure of the whole append. The summary upsert
// sets only the last-message fields on conflict, so participants written on
// first contact are never touched again.
func (r *ConversationRepo) Append(ctx context.Context, msg models.Message) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_key, sender_id, receiver_id, body, image_url, sender_username, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		msg.ID, msg.ConversationKey, msg.SenderID, msg.ReceiverID, msg.Body, msg.ImageURL, msg.SenderUsername, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	user1, user2 := msg.SenderID, msg.ReceiverID
	if user1 > user2 {
		user1, user2 = user2, user1
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO conversations (key, user1_id, user2_id, last_message, last_message_time, last_sender_id)
         VALUES ($1, $2, $3, $4, $5, $6)
         ON CONFLICT (key) DO UPDATE SET
             last_message = EXCLUDED.last_message,
             last_message_time = EXCLUDED.last_message_time,
             last_sender_id = EXCLUDED.last_sender_id`,
		msg.ConversationKey, user1, user2, msg.Body, msg.CreatedAt, msg.SenderID)
	if err != nil {
		return fmt.Errorf("update conversation summary: %w", err)
	}
	return nil
}

// History returns the full message sequence for the pair, oldest first. Ties
// on created_at fall back to insertion order.
func (r *ConversationRepo) History(ctx context.Context, userA, userB int) ([]models.Message, error) {
	key := CanonicalKey(userA, userB)
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT id, conversation_key, sender_id, receiver_id, body, image_url, sender_username, created_at
         FROM messages
         WHERE conversation_key = $1
         ORDER BY created_at ASC, seq ASC`, key)
	return msgs, err
}

// ConversationsFor returns the summaries of every conversation the user
// participates in, most recently active first.
func (r *ConversationRepo) ConversationsFor(ctx context.Context, userID int) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.SelectContext(ctx, &convs,
		`SELECT key, user1_id, user2_id, last_message, last_message_time, last_sender_id
         FROM conversations
         WHERE user1_id = $1 OR user2_id = $1
         ORDER BY last_message_time DESC`, userID)
	return convs, err
}
