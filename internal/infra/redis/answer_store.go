package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"expo-quiz-service/internal/domain"
)

// AnswerStore keeps one hash per session:
//
//	HSET quiz:answers:{sessionID} {questionID}:{userID} {answer JSON}
//
// HSET on an existing field is the upsert: a resubmission for the same
// question overwrites the prior answer in one round trip.
type AnswerStore struct {
	client *redis.Client
}

func NewAnswerStore(client *redis.Client) *AnswerStore {
	return &AnswerStore{client: client}
}

func (s *AnswerStore) Upsert(ctx context.Context, a domain.Answer) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}
	field := a.QuestionID + ":" + a.UserID
	if err := s.client.HSet(ctx, s.key(a.SessionID), field, payload).Err(); err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	return nil
}

func (s *AnswerStore) ListBySession(ctx context.Context, sessionID string) ([]domain.Answer, error) {
	fields, err := s.client.HGetAll(ctx, s.key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	answers := make([]domain.Answer, 0, len(fields))
	for _, raw := range fields {
		var a domain.Answer
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, fmt.Errorf("unmarshal answer: %w", err)
		}
		answers = append(answers, a)
	}
	return answers, nil
}

func (s *AnswerStore) DeleteBySession(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete answers: %w", err)
	}
	return nil
}

func (s *AnswerStore) key(sessionID string) string {
	return "quiz:answers:" + sessionID
}
