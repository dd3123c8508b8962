package telegram

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	storedb "ai-meal-coach/internal/database/store_db"
)

// ChatState remembers which planning session a Telegram user is working on,
// and the start date of a confirmation waiting on the Replace/Cancel answer.
type ChatState struct {
	UserID           string
	ChatID           int64
	SessionID        string
	PendingStartDate string
	UpdatedAt        time.Time
}

// SessionRepository provides access to chat state persistence.
type SessionRepository struct {
	queries *storedb.Queries
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{queries: storedb.New(db)}
}

// Get returns the state for userID, or nil when the user has none.
func (sr *SessionRepository) Get(ctx context.Context, userID string) (*ChatState, error) {
	row, err := sr.queries.GetChatSession(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get chat state for %s: %w", userID, err)
	}
	return &ChatState{
		UserID:           row.UserID,
		ChatID:           row.ChatID,
		SessionID:        row.SessionID.String,
		PendingStartDate: row.PendingStartDate.String,
		UpdatedAt:        row.UpdatedAt,
	}, nil
}

// Save creates or replaces the state for st.UserID.
func (sr *SessionRepository) Save(ctx context.Context, st ChatState) error {
	err := sr.queries.UpsertChatSession(ctx, storedb.UpsertChatSessionParams{
		UserID:           st.UserID,
		ChatID:           st.ChatID,
		SessionID:        nullString(st.SessionID),
		PendingStartDate: nullString(st.PendingStartDate),
		UpdatedAt:        time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to save chat state for %s: %w", st.UserID, err)
	}
	return nil
}

// Delete forgets the user's state.
func (sr *SessionRepository) Delete(ctx context.Context, userID string) error {
	if err := sr.queries.DeleteChatSession(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete chat state for %s: %w", userID, err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
