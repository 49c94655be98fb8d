package app_test

import (
	"context"
	"testing"
	"time"

	"expo-quiz-service/internal/app"
	"expo-quiz-service/internal/domain"
	"expo-quiz-service/internal/infra/memory"
)

type countingQuestionStore struct {
	*memory.QuestionStore
	calls int
}

func (s *countingQuestionStore) All(ctx context.Context) ([]domain.Question, error) {
	s.calls++
	return s.QuestionStore.All(ctx)
}

func TestQuestionCacheCaches(t *testing.T) {
	ctx := context.Background()
	store := &countingQuestionStore{QuestionStore: memory.NewQuestionStore(twoQuestions()...)}
	cache := app.NewQuestionCache(store, time.Minute)

	if _, err := cache.All(ctx); err != nil {
		t.Fatalf("all: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected store hit once, got %d", store.calls)
	}

	question, err := cache.ByID(ctx, "q-2")
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if question.CorrectOption != domain.OptionA {
		t.Fatalf("unexpected question: %+v", question)
	}
	if store.calls != 1 {
		t.Fatalf("ByID must reuse the cached set, got %d calls", store.calls)
	}

	if _, err := cache.ByID(ctx, "missing"); err != domain.ErrQuestionNotFound {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestQuestionCacheInvalidatesOnReplace(t *testing.T) {
	ctx := context.Background()
	store := &countingQuestionStore{QuestionStore: memory.NewQuestionStore(twoQuestions()...)}
	cache := app.NewQuestionCache(store, time.Minute)

	if _, err := cache.All(ctx); err != nil {
		t.Fatalf("all: %v", err)
	}

	replacement := []domain.Question{
		{ID: "r-1", Text: "New?", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d", CorrectOption: domain.OptionD, Order: 1},
	}
	if err := cache.Replace(ctx, replacement); err != nil {
		t.Fatalf("replace: %v", err)
	}

	questions, err := cache.All(ctx)
	if err != nil {
		t.Fatalf("all after replace: %v", err)
	}
	if len(questions) != 1 || questions[0].ID != "r-1" {
		t.Fatalf("expected replaced set, got %+v", questions)
	}
	if store.calls != 2 {
		t.Fatalf("replace must drop the cache, got %d calls", store.calls)
	}
}
