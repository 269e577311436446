package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/models"
)

func newMockRepo(t *testing.T) (*ConversationRepo, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return NewConversationRepo(sqlx.NewDb(mockDB, "sqlmock")), mock
}

const (
	insertMessagePattern = `INSERT INTO messages \(id, conversation_key, sender_id, receiver_id, body, image_url, sender_username, created_at\)\s+VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8\)`

	// Anchored at the end of the statement: the conflict clause may update
	// the last-* columns and nothing else, so participants written on first
	// contact are never touched again.
	upsertSummaryPattern = `INSERT INTO conversations \(key, user1_id, user2_id, last_message, last_message_time, last_sender_id\)\s+VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\)\s+ON CONFLICT \(key\) DO UPDATE SET\s+last_message = EXCLUDED\.last_message,\s+last_message_time = EXCLUDED\.last_message_time,\s+last_sender_id = EXCLUDED\.last_sender_id\s*$`

	historyPattern = `SELECT id, conversation_key, sender_id, receiver_id, body, image_url, sender_username, created_at\s+FROM messages\s+WHERE conversation_key = \$1\s+ORDER BY created_at ASC, seq ASC\s*$`

	conversationsForPattern = `SELECT key, user1_id, user2_id, last_message, last_message_time, last_sender_id\s+FROM conversations\s+WHERE user1_id = \$1 OR user2_id = \$1\s+ORDER BY last_message_time DESC\s*$`
)

func TestAppendWritesMessageThenSummary(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// Sender 9, receiver 5: the summary participants are still stored in
	// ascending order under the canonical key.
	mock.ExpectExec(insertMessagePattern).
		WithArgs("m1", "5_9", 9, 5, "Hey", nil, "bob", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsertSummaryPattern).
		WithArgs("5_9", 5, 9, "Hey", ts, 9).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(context.Background(), models.Message{
		ID:              "m1",
		ConversationKey: "5_9",
		SenderID:        9,
		ReceiverID:      5,
		Body:            "Hey",
		SenderUsername:  "bob",
		CreatedAt:       ts,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepeatedAppendSummaryReflectsLatest(t *testing.T) {
	repo, mock := newMockRepo(t)
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Minute)

	mock.ExpectExec(insertMessagePattern).
		WithArgs("m1", "5_9", 5, 9, "Hello", nil, "alice", first).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsertSummaryPattern).
		WithArgs("5_9", 5, 9, "Hello", first, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertMessagePattern).
		WithArgs("m2", "5_9", 9, 5, "Hey back", nil, "bob", second).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsertSummaryPattern).
		WithArgs("5_9", 5, 9, "Hey back", second, 9).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Append(context.Background(), models.Message{
		ID: "m1", ConversationKey: "5_9", SenderID: 5, ReceiverID: 9,
		Body: "Hello", SenderUsername: "alice", CreatedAt: first,
	}))
	require.NoError(t, repo.Append(context.Background(), models.Message{
		ID: "m2", ConversationKey: "5_9", SenderID: 9, ReceiverID: 5,
		Body: "Hey back", SenderUsername: "bob", CreatedAt: second,
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendMessageInsertFailureSkipsSummary(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(insertMessagePattern).WillReturnError(assert.AnError)

	err := repo.Append(context.Background(), models.Message{
		ID: "m1", ConversationKey: "5_9", SenderID: 5, ReceiverID: 9,
		Body: "Hello", CreatedAt: time.Now(),
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendSummaryFailureSurfaces(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(insertMessagePattern).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsertSummaryPattern).WillReturnError(assert.AnError)

	err := repo.Append(context.Background(), models.Message{
		ID: "m1", ConversationKey: "5_9", SenderID: 5, ReceiverID: 9,
		Body: "Hello", CreatedAt: time.Now(),
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryCanonicalizesPairAndKeepsOrder(t *testing.T) {
	repo, mock := newMockRepo(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "conversation_key", "sender_id", "receiver_id",
		"body", "image_url", "sender_username", "created_at",
	}).
		AddRow("m1", "5_9", 5, 9, "Hello", nil, "alice", base).
		AddRow("m2", "5_9", 9, 5, "Hey", nil, "bob", base).
		AddRow("m3", "5_9", 5, 9, "", "https://img/1.png", "alice", base.Add(time.Minute))

	// History(9, 5) must query the same conversation as History(5, 9).
	mock.ExpectQuery(historyPattern).WithArgs("5_9").WillReturnRows(rows)

	msgs, err := repo.History(context.Background(), 9, 5)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
	}
	assert.Equal(t, "m1", msgs[0].ID)
	require.NotNil(t, msgs[2].ImageURL)
	assert.Equal(t, "https://img/1.png", *msgs[2].ImageURL)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationsForMatchesEitherParticipant(t *testing.T) {
	repo, mock := newMockRepo(t)
	newer := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	older := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"key", "user1_id", "user2_id", "last_message", "last_message_time", "last_sender_id",
	}).
		AddRow("5_9", 5, 9, "Hi", newer, 5).
		AddRow("3_9", 3, 9, "ok", older, 9)

	mock.ExpectQuery(conversationsForPattern).WithArgs(9).WillReturnRows(rows)

	convs, err := repo.ConversationsFor(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "5_9", convs[0].Key)
	assert.Equal(t, 5, convs[0].OtherParticipant(9))
	assert.True(t, convs[0].LastMessageTime.After(convs[1].LastMessageTime))
	require.NoError(t, mock.ExpectationsWereMet())
}
