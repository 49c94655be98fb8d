package app_test

import (
	"context"
	"testing"

	"expo-quiz-service/internal/app"
	"expo-quiz-service/internal/domain"
)

func newTestService(questions ...domain.Question) (*app.Service, *fixture) {
	f := newFixture(questions...)
	aggregator := app.NewAggregator(f.participants, f.answers)
	service := app.NewService(f.engine, f.ledger, aggregator, f.sessions, f.questions, f.participants, f.feed).
		WithClock(f.clock.Now)
	return service, f
}

func TestSnapshotDefaultsToPreQuiz(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	snap, err := service.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Session.Phase != domain.PhasePreQuiz || snap.Session.IsActive || snap.Session.RegistrationOpen {
		t.Fatalf("missing record must read as closed pre-quiz, got %+v", snap.Session)
	}
	if snap.Question != nil {
		t.Fatalf("no current question expected, got %+v", snap.Question)
	}
	if snap.Remaining != app.NotTimed {
		t.Fatalf("expected NotTimed, got %v", snap.Remaining)
	}
}

func TestSnapshotCarriesQuestionAndLeaderboard(t *testing.T) {
	ctx := context.Background()
	service, f := newTestService(twoQuestions()...)

	_ = f.participants.Register(ctx, domain.Participant{UserID: "u1", DisplayName: "Alice", CreatedAt: f.clock.Now()})
	if _, err := f.engine.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	snap, err := service.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Question == nil || snap.Question.ID != "q-1" {
		t.Fatalf("expected current question q-1, got %+v", snap.Question)
	}
	if len(snap.Leaderboard.Entries) != 1 || snap.Leaderboard.Entries[0].UserID != "u1" {
		t.Fatalf("expected Alice on the leaderboard, got %+v", snap.Leaderboard.Entries)
	}
	if snap.Remaining <= 0 {
		t.Fatalf("question phase must have time remaining, got %v", snap.Remaining)
	}
}

func TestRegisterGatedByRegistrationWindow(t *testing.T) {
	ctx := context.Background()
	service, f := newTestService(twoQuestions()...)

	// No session at all: registration is implicitly closed.
	if _, err := service.Register(ctx, "u1", "Alice"); err != domain.ErrRegistrationClosed {
		t.Fatalf("expected ErrRegistrationClosed, got %v", err)
	}

	if _, err := f.engine.SetRegistration(ctx, true); err != nil {
		t.Fatalf("open registration: %v", err)
	}
	participant, err := service.Register(ctx, "u1", "Alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if participant.IsAdmin {
		t.Fatalf("self-registration must never grant admin")
	}

	if _, err := f.engine.SetRegistration(ctx, false); err != nil {
		t.Fatalf("close registration: %v", err)
	}
	// Returning participants reconnect after registration closes.
	if _, err := service.Register(ctx, "u1", "Alice L."); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	got, ok, _ := f.participants.Get(ctx, "u1")
	if !ok || got.DisplayName != "Alice L." {
		t.Fatalf("expected refreshed display name, got %+v", got)
	}
	// Unknown users stay locked out.
	if _, err := service.Register(ctx, "u2", "Bob"); err != domain.ErrRegistrationClosed {
		t.Fatalf("expected ErrRegistrationClosed for new user, got %v", err)
	}
}

func TestIsAdmin(t *testing.T) {
	ctx := context.Background()
	service, f := newTestService()

	_ = f.participants.Register(ctx, domain.Participant{UserID: "admin", DisplayName: "Admin", IsAdmin: true, CreatedAt: f.clock.Now()})
	_ = f.participants.Register(ctx, domain.Participant{UserID: "u1", DisplayName: "Alice", CreatedAt: f.clock.Now()})

	if ok, _ := service.IsAdmin(ctx, "admin"); !ok {
		t.Fatalf("expected admin capability")
	}
	if ok, _ := service.IsAdmin(ctx, "u1"); ok {
		t.Fatalf("regular participant must not be admin")
	}
	if ok, _ := service.IsAdmin(ctx, "ghost"); ok {
		t.Fatalf("unknown user must not be admin")
	}
}
