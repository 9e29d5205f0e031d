package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"insightportal/internal/apperr"
	"insightportal/internal/models"
	"insightportal/internal/storage"
)

// History keeps the conversation of one login session. Rows reference the
// auth token, so revoking the token drops the conversation with it.
type History struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewHistory(db *sqlx.DB, logger *zap.Logger) *History {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &History{db: db, logger: logger}
}

// List returns the messages of token in order. A conversation that has not
// started yet is seeded with the greeting.
func (h *History) List(ctx context.Context, token string) ([]models.Message, error) {
	if token == "" {
		return nil, apperr.New(apperr.CodeValidation, "session token is required")
	}
	messages, err := h.list(ctx, token)
	if err != nil {
		return nil, err
	}
	if len(messages) > 0 {
		return messages, nil
	}
	greeting, err := h.append(ctx, h.db, token, models.MessageRoleAssistant, Greeting)
	if err != nil {
		return nil, err
	}
	return []models.Message{*greeting}, nil
}

// Send stores content from the user followed by the assistant's reply and
// returns both.
func (h *History) Send(ctx context.Context, token, content string) ([]models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.New(apperr.CodeValidation, "message content is required")
	}
	if _, err := h.List(ctx, token); err != nil {
		return nil, err
	}

	tx, err := h.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorageUnavailable, err, "begin chat tx")
	}
	defer tx.Rollback()

	userMsg, err := h.append(ctx, tx, token, models.MessageRoleUser, content)
	if err != nil {
		return nil, err
	}
	reply, err := h.append(ctx, tx, token, models.MessageRoleAssistant, Respond(content))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(apperr.CodeStorageUnavailable, err, "commit chat tx")
	}
	return []models.Message{*userMsg, *reply}, nil
}

// Reset deletes the conversation and leaves only the cleared notice.
func (h *History) Reset(ctx context.Context, token string) (*models.Message, error) {
	if token == "" {
		return nil, apperr.New(apperr.CodeValidation, "session token is required")
	}
	tx, err := h.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorageUnavailable, err, "begin chat tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM chat_messages WHERE token = ?`), token); err != nil {
		return nil, apperr.Wrap(apperr.CodeStorageUnavailable, err, "clear chat")
	}
	msg, err := h.append(ctx, tx, token, models.MessageRoleAssistant, ClearedReply)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(apperr.CodeStorageUnavailable, err, "commit chat tx")
	}
	h.logger.Debug("chat reset")
	return msg, nil
}

func (h *History) list(ctx context.Context, token string) ([]models.Message, error) {
	var messages []models.Message
	err := h.db.SelectContext(ctx, &messages,
		h.db.Rebind(`SELECT id, role, content, created_at FROM chat_messages WHERE token = ? ORDER BY id ASC`),
		token,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorageUnavailable, err, "list chat messages")
	}
	return messages, nil
}

func (h *History) append(ctx context.Context, ext sqlx.ExtContext, token string, role models.MessageRole, content string) (*models.Message, error) {
	now := time.Now().UTC()
	id, err := storage.InsertID(ctx, ext,
		`INSERT INTO chat_messages (token, role, content, created_at) VALUES (?, ?, ?, ?)`,
		token, role, content, now,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorageUnavailable, err, fmt.Sprintf("store %s message", role))
	}
	return &models.Message{ID: id, Role: role, Content: content, CreatedAt: now}, nil
}
