package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"expo-quiz-service/internal/domain"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func questionSession(now time.Time) domain.Session {
	end := now.Add(40 * time.Second)
	return domain.Session{
		ID:                    "session-1",
		IsActive:              true,
		Phase:                 domain.PhaseQuestion,
		CurrentQuestionID:     "q-1",
		CurrentQuestionNumber: 1,
		TotalQuestions:        2,
		PhaseEndTime:          &end,
		CreatedAt:             now,
	}
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(newTestClient(t))

	if _, ok, err := repo.GetCurrent(ctx); err != nil || ok {
		t.Fatalf("expected no session, ok=%v err=%v", ok, err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 123456789, time.UTC)
	session := questionSession(now)
	if _, err := repo.OperatorUpdate(ctx, session); err != nil {
		t.Fatalf("operator update: %v", err)
	}

	got, ok, err := repo.GetCurrent(ctx)
	if err != nil || !ok {
		t.Fatalf("get current: ok=%v err=%v", ok, err)
	}
	if got.ID != session.ID || got.Phase != session.Phase || !got.IsActive {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.PhaseEndTime == nil || !got.PhaseEndTime.Equal(*session.PhaseEndTime) {
		t.Fatalf("deadline did not round-trip: %v vs %v", got.PhaseEndTime, session.PhaseEndTime)
	}
	if got.CurrentQuestionNumber != 1 || got.TotalQuestions != 2 {
		t.Fatalf("counters did not round-trip: %+v", got)
	}
}

func TestConditionalUpdateAppliesOnceThenStale(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(newTestClient(t))

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	session := questionSession(now)
	if _, err := repo.OperatorUpdate(ctx, session); err != nil {
		t.Fatalf("operator update: %v", err)
	}

	// Re-read so the expectation carries exactly what the store returned,
	// the way the engine uses the repository.
	current, _, err := repo.GetCurrent(ctx)
	if err != nil {
		t.Fatalf("get current: %v", err)
	}

	resultsEnd := now.Add(60 * time.Second)
	next := current
	next.Phase = domain.PhaseResults
	next.PhaseEndTime = &resultsEnd

	updated, applied, err := repo.ConditionalUpdate(ctx, current.Phase, current.PhaseEndTime, next)
	if err != nil || !applied {
		t.Fatalf("expected applied, applied=%v err=%v", applied, err)
	}
	if updated.Phase != domain.PhaseResults {
		t.Fatalf("unexpected updated session: %+v", updated)
	}

	stale, applied, err := repo.ConditionalUpdate(ctx, current.Phase, current.PhaseEndTime, next)
	if err != nil {
		t.Fatalf("stale attempt: %v", err)
	}
	if applied {
		t.Fatalf("duplicate trigger must observe stale")
	}
	if stale.Phase != domain.PhaseResults {
		t.Fatalf("stale attempt must return current state, got %+v", stale)
	}
}

func TestConditionalUpdateOnMissingRecord(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(newTestClient(t))

	next := questionSession(time.Now())
	if _, applied, err := repo.ConditionalUpdate(ctx, domain.PhaseQuestion, nil, next); err != nil || applied {
		t.Fatalf("missing record must read as stale, applied=%v err=%v", applied, err)
	}
}

func TestConditionalUpdateNilDeadline(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(newTestClient(t))

	session := domain.Session{ID: "session-1", Phase: domain.PhasePreQuiz, CreatedAt: time.Now()}
	if _, err := repo.OperatorUpdate(ctx, session); err != nil {
		t.Fatalf("operator update: %v", err)
	}

	next := session
	next.Phase = domain.PhaseFinished
	if _, applied, err := repo.ConditionalUpdate(ctx, domain.PhasePreQuiz, nil, next); err != nil || !applied {
		t.Fatalf("nil deadline expectation must match empty stored value, applied=%v err=%v", applied, err)
	}
}
