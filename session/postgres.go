// Package session persists each user's conversation state so the shop flow
// can resume after a restart. Only the state name is stored.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/MelnikovEI/fish-shop/core/logger"
	"github.com/MelnikovEI/fish-shop/shop"
	"log/slog"
)

// Postgres stores sessions in the sessions table, one row per user.
// Rows are created on the first transition and never deleted.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an open database handle as a session store.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Get returns the user's current state; first contact yields CHOOSING.
func (s *Postgres) Get(ctx context.Context, userID int64) (shop.State, error) {
	var state string
	err := s.db.GetContext(ctx, &state, `SELECT state FROM sessions WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return shop.StateChoosing, nil
	}
	if err != nil {
		return "", fmt.Errorf("session get: %w", err)
	}
	return shop.State(state), nil
}

// SetState upserts the user's state.
func (s *Postgres) SetState(ctx context.Context, userID int64, st shop.State) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`,
		userID, string(st),
	)
	if err != nil {
		return fmt.Errorf("session set: %w", err)
	}
	logger.SESS.Debug("state persisted",
		slog.String("event", "session.set"),
		slog.Int64("user_id", userID),
		slog.String("state", string(st)),
	)
	return nil
}
