package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"expo-quiz-service/internal/domain"
)

// QuestionStore persists the question set in Postgres.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

func (s *QuestionStore) All(ctx context.Context) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, question, option_a, option_b, option_c, option_d, correct_answer, question_order
		FROM quiz_questions
		ORDER BY question_order`)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		var correct string
		if err := rows.Scan(&q.ID, &q.Text, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &correct, &q.Order); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.CorrectOption = domain.Option(correct)
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *QuestionStore) ByID(ctx context.Context, id string) (domain.Question, error) {
	var q domain.Question
	var correct string
	err := s.pool.QueryRow(ctx, `
		SELECT id, question, option_a, option_b, option_c, option_d, correct_answer, question_order
		FROM quiz_questions WHERE id=$1`, id).
		Scan(&q.ID, &q.Text, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &correct, &q.Order)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	q.CorrectOption = domain.Option(correct)
	return q, nil
}

// Replace swaps the full question set in one transaction, matching the bulk
// upload step that clears old questions before inserting the new batch.
func (s *QuestionStore) Replace(ctx context.Context, questions []domain.Question) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM quiz_questions`); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}
	for _, q := range questions {
		if _, err := tx.Exec(ctx, `
			INSERT INTO quiz_questions (id, question, option_a, option_b, option_c, option_d, correct_answer, question_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			q.ID, q.Text, q.OptionA, q.OptionB, q.OptionC, q.OptionD, string(q.CorrectOption), q.Order); err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}
	}
	return tx.Commit(ctx)
}
