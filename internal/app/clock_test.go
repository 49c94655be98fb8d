package app_test

import (
	"testing"
	"time"

	"expo-quiz-service/internal/app"
	"expo-quiz-service/internal/domain"
)

func TestRemaining(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(30 * time.Second)

	session := domain.Session{Phase: domain.PhaseQuestion, PhaseEndTime: &end}
	if got := app.Remaining(session, now); got != 30*time.Second {
		t.Fatalf("expected 30s remaining, got %v", got)
	}
	if got := app.Remaining(session, now.Add(time.Minute)); got != 0 {
		t.Fatalf("remaining must clamp at zero, got %v", got)
	}

	untimed := domain.Session{Phase: domain.PhasePreQuiz}
	if got := app.Remaining(untimed, now); got != app.NotTimed {
		t.Fatalf("expected NotTimed sentinel, got %v", got)
	}
}

func TestExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(10 * time.Second)

	session := domain.Session{Phase: domain.PhaseQuestion, PhaseEndTime: &end}
	if app.Expired(session, now) {
		t.Fatalf("not expired yet")
	}
	if !app.Expired(session, end) {
		t.Fatalf("expected expiry exactly at the deadline")
	}

	finished := domain.Session{Phase: domain.PhaseFinished}
	if app.Expired(finished, now.Add(time.Hour)) {
		t.Fatalf("untimed phases never expire")
	}
}
