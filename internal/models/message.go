package models

import "time"

// Message is an immutable direct message. The sender's display name is
// denormalized at write time and never refreshed.
type Message struct {
	ID              string    `db:"id" json:"id"`
	ConversationKey string    `db:"conversation_key" json:"conversationKey"`
	SenderID        int       `db:"sender_id" json:"senderId"`
	ReceiverID      int       `db:"receiver_id" json:"receiverId"`
	Body            string    `db:"body" json:"body"`
	ImageURL        *string   `db:"image_url" json:"imageUrl"`
	SenderUsername  string    `db:"sender_username" json:"senderUsername"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// MessagePayload is the outward-facing delivery shape. The same payload is
// returned as the send acknowledgment, pushed over the websocket, and served
// from history, so clients keep a single deserialization path.
type MessagePayload struct {
	ChatID         string    `json:"chatId"`
	SenderID       int       `json:"senderId"`
	ReceiverID     int       `json:"receiverId"`
	Message        string    `json:"message"`
	DateTime       time.Time `json:"dateTime"`
	SenderUsername string    `json:"senderUsername"`
	ImageURL       *string   `json:"imageUrl"`
}

// Payload converts the stored message into its delivery shape.
func (m Message) Payload() MessagePayload {
	return MessagePayload{
		ChatID:         m.ID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Message:        m.Body,
		DateTime:       m.CreatedAt,
		SenderUsername: m.SenderUsername,
		ImageURL:       m.ImageURL,
	}
}

// RelayEvent is the frame written to a live websocket connection. Payload is
// field-identical to the send acknowledgement body, wrapped in a typed
// envelope so clients can dispatch on Type.
type RelayEvent struct {
	Type    string          `json:"type"`
	Payload *MessagePayload `json:"payload,omitempty"`
}
