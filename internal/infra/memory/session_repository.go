package memory

import (
	"context"
	"sync"
	"time"

	"expo-quiz-service/internal/domain"
)

// SessionRepository is the in-memory record store for the session singleton.
// The compare-and-swap semantics match the Redis implementation so the
// engine behaves identically against either.
type SessionRepository struct {
	mu      sync.Mutex
	session domain.Session
	exists  bool
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{}
}

func (r *SessionRepository) GetCurrent(_ context.Context) (domain.Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session, r.exists, nil
}

func (r *SessionRepository) ConditionalUpdate(_ context.Context, expectedPhase domain.Phase, expectedEnd *time.Time, next domain.Session) (domain.Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.exists {
		return domain.Session{}, false, nil
	}
	if r.session.Phase != expectedPhase || !sameTime(r.session.PhaseEndTime, expectedEnd) {
		return r.session, false, nil
	}
	r.session = next
	return r.session, true, nil
}

func (r *SessionRepository) OperatorUpdate(_ context.Context, next domain.Session) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = next
	r.exists = true
	return r.session, nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
