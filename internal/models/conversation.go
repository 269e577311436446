package models

import "time"

// Conversation is the durable summary of a direct-message thread between two
// users. It is addressed by the canonical pair key and mutated on every
// append; the participant columns are written once and never change.
type Conversation struct {
	Key             string    `db:"key" json:"key"`
	User1ID         int       `db:"user1_id" json:"user1Id"`
	User2ID         int       `db:"user2_id" json:"user2Id"`
	LastMessage     string    `db:"last_message" json:"lastMessage"`
	LastMessageTime time.Time `db:"last_message_time" json:"lastMessageTime"`
	LastSenderID    int       `db:"last_sender_id" json:"lastSenderId"`
}

// OtherParticipant returns the participant that is not userID.
func (c Conversation) OtherParticipant(userID int) int {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// ConversationSummary is the API view of a conversation for one user, with
// the other participant's display fields resolved from the user directory.
type ConversationSummary struct {
	UserID          int       `json:"userId"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	LastMessage     string    `json:"lastMessage"`
	LastMessageTime time.Time `json:"lastMessageTime"`
}
