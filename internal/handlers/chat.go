package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messaging-service/internal/directory"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
)

// Pusher is the live-delivery primitive the send path uses for online
// recipients.
type Pusher interface {
	PushIfOnline(userID int, payload models.MessagePayload) bool
}

// ChatHandler orchestrates sends and conversation reads.
type ChatHandler struct {
	store     repositories.ConversationStore
	directory directory.Directory
	relay     Pusher
	emitter   *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(store repositories.ConversationStore, dir directory.Directory, relay Pusher, emitter *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{
		store:     store,
		directory: dir,
		relay:     relay,
		emitter:   emitter,
	}
}

// Send persists a message and attempts best-effort live delivery. The message
// is durable before any push happens; a failed or dropped push never fails
// the send.
func (h *ChatHandler) Send(c *gin.Context) {
	var req struct {
		SenderID   int     `json:"senderId" binding:"required"`
		ReceiverID int     `json:"receiverId" binding:"required"`
		Message    string  `json:"message"`
		ImageURL   *string `json:"imageUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if userID != req.SenderID {
		c.JSON(http.StatusForbidden, gin.H{"error": "sender does not match authenticated user"})
		return
	}
	if req.SenderID == req.ReceiverID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot message yourself"})
		return
	}
	if req.ImageURL != nil && *req.ImageURL == "" {
		req.ImageURL = nil
	}
	if strings.TrimSpace(req.Message) == "" && req.ImageURL == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is empty"})
		return
	}

	sender, err := h.directory.Lookup(c.Request.Context(), req.SenderID)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown sender"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load user info"})
		return
	}

	// The receiver must exist too, before anything is written.
	if _, err := h.directory.Lookup(c.Request.Context(), req.ReceiverID); err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown receiver"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load user info"})
		return
	}

	msg := models.Message{
		ID:              uuid.NewString(),
		ConversationKey: repositories.CanonicalKey(req.SenderID, req.ReceiverID),
		SenderID:        req.SenderID,
		ReceiverID:      req.ReceiverID,
		Body:            req.Message,
		ImageURL:        req.ImageURL,
		SenderUsername:  sender.Username,
		CreatedAt:       time.Now().UTC(),
	}

	if err := h.store.Append(c.Request.Context(), msg); err != nil {
		log.Printf("message append failed: %v", err)
		h.emitter.Emit(c.Request.Context(), "ERROR", "message append failed", requestIDFromContext(c), auditUserID(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	payload := msg.Payload()

	_ = observability.PublishEvent(c.Request.Context(), "chat.message_sent", observability.EventEnvelope{
		EventType: "chat_events",
		EventName: "message_sent",
		Payload: map[string]interface{}{
			"message_id":       msg.ID,
			"conversation_key": msg.ConversationKey,
			"sender_id":        msg.SenderID,
			"receiver_id":      msg.ReceiverID,
			"has_image":        msg.ImageURL != nil,
		},
	}, observability.BuildHeaders(requestIDFromContext(c), ""))

	// Best effort: the hub logs and counts the outcome. A message is sent
	// once persisted, whether or not the receiver was online.
	h.relay.PushIfOnline(req.ReceiverID, payload)

	c.JSON(http.StatusCreated, payload)
}

// ListConversations returns the caller's conversation summaries, most
// recently active first, with the other participant's display data resolved
// from the user directory.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	requestedID, err := strconv.Atoi(c.Query("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	if c.GetInt("userID") != requestedID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	convs, err := h.store.ConversationsFor(c.Request.Context(), requestedID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	otherIDs := make([]int, 0, len(convs))
	seen := map[int]struct{}{}
	for _, conv := range convs {
		other := conv.OtherParticipant(requestedID)
		if _, ok := seen[other]; !ok {
			seen[other] = struct{}{}
			otherIDs = append(otherIDs, other)
		}
	}

	// Display fields are cosmetic: a directory outage degrades them to a
	// placeholder instead of failing the read.
	userByID := map[int]directory.User{}
	users, err := h.directory.BulkLookup(c.Request.Context(), otherIDs)
	if err != nil {
		log.Printf("directory bulk lookup failed: %v", err)
	} else {
		for _, u := range users {
			userByID[u.ID] = u
		}
	}

	summaries := make([]models.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		other := conv.OtherParticipant(requestedID)
		user, ok := userByID[other]
		if !ok {
			user = directory.User{ID: other, Username: "unknown"}
		}
		summaries = append(summaries, models.ConversationSummary{
			UserID:          other,
			Username:        user.Username,
			Email:           user.Email,
			LastMessage:     conv.LastMessage,
			LastMessageTime: conv.LastMessageTime,
		})
	}

	c.JSON(http.StatusOK, summaries)
}

// GetHistory returns the full message sequence between the caller and the
// other user, oldest first. Sender display names were denormalized at send
// time, so no directory calls are needed here.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	otherID, err := strconv.Atoi(c.Param("other_user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	currentID, err := strconv.Atoi(c.Query("currentUserId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	if c.GetInt("userID") != currentID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	msgs, err := h.store.History(c.Request.Context(), currentID, otherID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	payloads := make([]models.MessagePayload, 0, len(msgs))
	for _, m := range msgs {
		payloads = append(payloads, m.Payload())
	}

	c.JSON(http.StatusOK, payloads)
}
