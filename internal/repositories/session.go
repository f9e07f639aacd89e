package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/jonboulle/clockwork"
)

// SessionStore persists [models.FlowState] and [models.TokenSet] entries for the current session.
//
// Safe for concurrent use.
type SessionStore struct {
	db    *sql.DB
	clock clockwork.Clock
}

// NewSessionStore creates a SessionStore over a migrated database.
//
// A nil clock uses the real clock.
func NewSessionStore(db *sql.DB, clock clockwork.Clock) *SessionStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionStore{db: db, clock: clock}
}

// OpenSessionStore opens and migrates the database at path and returns a store over it.
func OpenSessionStore(path string, clock clockwork.Clock) (*SessionStore, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return NewSessionStore(db, clock), nil
}

// Close drops the session tables and closes the underlying database, so no flow state
// or token outlives the process even when the database is a file.
func (s *SessionStore) Close() error {
	if err := shared.RollbackMigrations(s.db); err != nil {
		s.db.Close()
		return fmt.Errorf("failed to drop session tables: %w", err)
	}
	return s.db.Close()
}

// SaveFlow stores the flow state for flowID, replacing any previous attempt.
func (s *SessionStore) SaveFlow(ctx context.Context, flowID string, flow models.FlowState) error {
	if flowID == "" {
		return fmt.Errorf("%w: empty flow id", shared.ErrInvalidInput)
	}

	query := `
		INSERT OR REPLACE INTO flow_states (flow_id, code_verifier, state, redirect_uri, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, flowID, flow.CodeVerifier, flow.State, flow.RedirectURI, s.clock.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save flow state: %w", err)
	}
	return nil
}

// Flow returns the flow state for flowID or [shared.ErrFlowNotFound].
func (s *SessionStore) Flow(ctx context.Context, flowID string) (*models.FlowState, error) {
	query := `SELECT code_verifier, state, redirect_uri FROM flow_states WHERE flow_id = ?`

	var flow models.FlowState
	err := s.db.QueryRowContext(ctx, query, flowID).Scan(&flow.CodeVerifier, &flow.State, &flow.RedirectURI)
	if err != nil {
		return nil, notFound(err, shared.ErrFlowNotFound, "load flow state")
	}
	return &flow, nil
}

// DeleteFlow removes the flow state for flowID. Deleting a missing entry is not an error.
func (s *SessionStore) DeleteFlow(ctx context.Context, flowID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM flow_states WHERE flow_id = ?`, flowID); err != nil {
		return fmt.Errorf("failed to delete flow state: %w", err)
	}
	return nil
}

// SaveToken stores the token set for flowID.
func (s *SessionStore) SaveToken(ctx context.Context, flowID string, token models.TokenSet) error {
	if token.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", shared.ErrInvalidInput)
	}

	query := `
		INSERT OR REPLACE INTO token_sets (flow_id, access_token, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, flowID, token.AccessToken, token.ExpiresAt.UTC(), s.clock.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Token returns a usable token set for flowID.
//
// Returns [shared.ErrNotAuthenticated] when none was stored and [shared.ErrTokenExpired]
// (after removing the entry) once it has expired.
func (s *SessionStore) Token(ctx context.Context, flowID string) (*models.TokenSet, error) {
	query := `SELECT access_token, expires_at FROM token_sets WHERE flow_id = ?`

	var token models.TokenSet
	err := s.db.QueryRowContext(ctx, query, flowID).Scan(&token.AccessToken, &token.ExpiresAt)
	if err != nil {
		return nil, notFound(err, shared.ErrNotAuthenticated, "load token")
	}

	if token.Expired(s.clock.Now()) {
		if err := s.DeleteToken(ctx, flowID); err != nil {
			return nil, err
		}
		return nil, shared.ErrTokenExpired
	}

	return &token, nil
}

// DeleteToken removes the token set for flowID.
func (s *SessionStore) DeleteToken(ctx context.Context, flowID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM token_sets WHERE flow_id = ?`, flowID); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// Clear removes every entry for flowID.
func (s *SessionStore) Clear(ctx context.Context, flowID string) error {
	if err := s.DeleteFlow(ctx, flowID); err != nil {
		return err
	}
	return s.DeleteToken(ctx, flowID)
}
