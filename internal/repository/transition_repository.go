package repository

import (
	"context"
	"database/sql"

	"github.com/akylbek/payment-system/cod-verifier/internal/interfaces"
	"github.com/akylbek/payment-system/cod-verifier/internal/models"
)

var _ interfaces.TransitionRepository = (*TransitionRepository)(nil)

type TransitionRepository struct {
	db *sql.DB
}

func NewTransitionRepository(db *sql.DB) *TransitionRepository {
	return &TransitionRepository{db: db}
}

func (r *TransitionRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS verification_transitions (
			id BIGSERIAL PRIMARY KEY,
			session_id VARCHAR(64) NOT NULL,
			flow VARCHAR(16) NOT NULL,
			state VARCHAR(50) NOT NULL,
			previous_state VARCHAR(50),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_verification_transitions_session ON verification_transitions(session_id)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

func (r *TransitionRepository) Insert(ctx context.Context, event models.TransitionEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verification_transitions (session_id, flow, state, previous_state, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, event.SessionID, event.Flow, event.State, event.PreviousState, event.Timestamp)
	return err
}

func (r *TransitionRepository) ListBySession(ctx context.Context, sessionID string) ([]models.TransitionEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, flow, state, COALESCE(previous_state, ''), created_at
		FROM verification_transitions WHERE session_id = $1
		ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.TransitionEvent
	for rows.Next() {
		var e models.TransitionEvent
		if err := rows.Scan(&e.SessionID, &e.Flow, &e.State, &e.PreviousState, &e.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
