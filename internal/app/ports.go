package app

import (
	"context"
	"time"

	"expo-quiz-service/internal/domain"
)

// SessionRepository owns the single session record (in-memory, Redis, etc).
// GetCurrent returns the most recently created record, if any. All
// phase-engine mutations go through ConditionalUpdate so that duplicate
// triggers racing on the same expiry apply exactly one transition;
// OperatorUpdate is unconditional and reserved for single-operator actions.
type SessionRepository interface {
	GetCurrent(ctx context.Context) (domain.Session, bool, error)
	// ConditionalUpdate replaces the record with next only when the stored
	// (phase, phaseEndTime) still equals the expected pair read by the
	// caller. A false return means another actor got there first; that is a
	// normal outcome, not an error.
	ConditionalUpdate(ctx context.Context, expectedPhase domain.Phase, expectedEnd *time.Time, next domain.Session) (domain.Session, bool, error)
	OperatorUpdate(ctx context.Context, next domain.Session) (domain.Session, error)
}

// QuestionSource reads quiz content. All returns questions ascending by
// order; implementations may cache since questions are immutable mid-run.
type QuestionSource interface {
	All(ctx context.Context) ([]domain.Question, error)
	ByID(ctx context.Context, id string) (domain.Question, error)
}

// QuestionStore extends QuestionSource with the bulk upload step.
type QuestionStore interface {
	QuestionSource
	// Replace swaps the whole question set atomically.
	Replace(ctx context.Context, questions []domain.Question) error
}

// ParticipantStore persists registered users. List returns participants in
// registration order, which doubles as the leaderboard tie-break.
type ParticipantStore interface {
	List(ctx context.Context) ([]domain.Participant, error)
	Get(ctx context.Context, userID string) (domain.Participant, bool, error)
	Register(ctx context.Context, p domain.Participant) error
	// DeleteNonAdmin removes every non-admin participant (full reset cascade).
	DeleteNonAdmin(ctx context.Context) error
}

// AnswerStore is the answer ledger's persistence: one effective answer per
// (userID, sessionID, questionID), Upsert being last-write-wins.
type AnswerStore interface {
	Upsert(ctx context.Context, a domain.Answer) error
	ListBySession(ctx context.Context, sessionID string) ([]domain.Answer, error)
	DeleteBySession(ctx context.Context, sessionID string) error
}

// ChangeFeed fans change events out to observers. Publish is best-effort:
// the feed is a latency optimization and every consumer also polls, so a
// dropped event only delays convergence.
type ChangeFeed interface {
	Publish(ctx context.Context, e domain.Event) error
	Subscribe(ctx context.Context) (<-chan domain.Event, func(), error)
}
