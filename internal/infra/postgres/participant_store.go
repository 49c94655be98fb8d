package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"expo-quiz-service/internal/domain"
)

// ParticipantStore persists registered users in Postgres. Listing order is
// registration order (created_at, then user_id), which the leaderboard uses
// as its stable tie-break.
type ParticipantStore struct {
	pool *pgxpool.Pool
}

func NewParticipantStore(pool *pgxpool.Pool) *ParticipantStore {
	return &ParticipantStore{pool: pool}
}

func (s *ParticipantStore) List(ctx context.Context) ([]domain.Participant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, display_name, is_admin, created_at
		FROM participants
		ORDER BY created_at, user_id`)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.UserID, &p.DisplayName, &p.IsAdmin, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (s *ParticipantStore) Get(ctx context.Context, userID string) (domain.Participant, bool, error) {
	var p domain.Participant
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, display_name, is_admin, created_at
		FROM participants WHERE user_id=$1`, userID).
		Scan(&p.UserID, &p.DisplayName, &p.IsAdmin, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Participant{}, false, nil
	}
	if err != nil {
		return domain.Participant{}, false, fmt.Errorf("load participant: %w", err)
	}
	return p, true, nil
}

func (s *ParticipantStore) Register(ctx context.Context, p domain.Participant) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO participants (user_id, display_name, is_admin, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET display_name=EXCLUDED.display_name`,
		p.UserID, p.DisplayName, p.IsAdmin, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("register participant: %w", err)
	}
	return nil
}

func (s *ParticipantStore) DeleteNonAdmin(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM participants WHERE NOT is_admin`); err != nil {
		return fmt.Errorf("delete participants: %w", err)
	}
	return nil
}
