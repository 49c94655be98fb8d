package cli

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"expo-quiz-service/internal/config"
	"expo-quiz-service/internal/domain"
	redisstore "expo-quiz-service/internal/infra/redis"
)

func TestEnsureNoActiveRunRefusesDuringQuiz(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	end := time.Now().Add(40 * time.Second)
	_, err := redisstore.NewSessionRepository(client).OperatorUpdate(ctx, domain.Session{
		ID:                    "session-1",
		IsActive:              true,
		Phase:                 domain.PhaseQuestion,
		CurrentQuestionID:     "q-1",
		CurrentQuestionNumber: 1,
		TotalQuestions:        2,
		PhaseEndTime:          &end,
		CreatedAt:             time.Now(),
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}

	var cfg config.Config
	cfg.Redis.Addr = mr.Addr()
	if err := ensureNoActiveRun(ctx, cfg, zap.NewNop()); !errors.Is(err, domain.ErrQuizActive) {
		t.Fatalf("expected ErrQuizActive, got %v", err)
	}
}

func TestEnsureNoActiveRunAllowsIdleSession(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	_, err := redisstore.NewSessionRepository(client).OperatorUpdate(ctx, domain.Session{
		ID:        "session-1",
		Phase:     domain.PhaseFinished,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}

	var cfg config.Config
	cfg.Redis.Addr = mr.Addr()
	if err := ensureNoActiveRun(ctx, cfg, zap.NewNop()); err != nil {
		t.Fatalf("expected idle session to pass, got %v", err)
	}
}

func TestEnsureNoActiveRunWithoutRedisWarnsAndProceeds(t *testing.T) {
	var cfg config.Config
	if err := ensureNoActiveRun(context.Background(), cfg, zap.NewNop()); err != nil {
		t.Fatalf("expected pass without redis, got %v", err)
	}
}

func TestLoadQuestionFileAcceptsBothShapes(t *testing.T) {
	raw := []map[string]any{
		{"question": "Pick B", "options": []string{"a", "b", "c", "d"}, "correct_answer": "B"},
		{"question": "Pick D", "option_a": "w", "option_b": "x", "option_c": "y", "option_d": "z", "answer": "D"},
	}
	data, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "questions.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	questions, err := loadQuestionFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if questions[0].Order != 1 || questions[0].CorrectOption != domain.OptionB {
		t.Fatalf("unexpected first question: %+v", questions[0])
	}
	if questions[1].OptionC != "y" || questions[1].CorrectOption != domain.OptionD {
		t.Fatalf("unexpected second question: %+v", questions[1])
	}
}
