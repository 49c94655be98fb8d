package app

import (
	"context"
	"time"

	"expo-quiz-service/internal/domain"
)

// Service bundles the core use cases behind one surface for the transport
// layer. State reads always re-derive from the stores; the change feed only
// tells observers when to re-read.
type Service struct {
	engine       *Engine
	ledger       *Ledger
	aggregator   *Aggregator
	sessions     SessionRepository
	questions    QuestionSource
	participants ParticipantStore
	feed         ChangeFeed
	clock        func() time.Time
}

func NewService(engine *Engine, ledger *Ledger, aggregator *Aggregator, sessions SessionRepository, questions QuestionSource, participants ParticipantStore, feed ChangeFeed) *Service {
	return &Service{
		engine:       engine,
		ledger:       ledger,
		aggregator:   aggregator,
		sessions:     sessions,
		questions:    questions,
		participants: participants,
		feed:         feed,
		clock:        time.Now,
	}
}

// WithClock overrides the service's time source for deterministic tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.clock = now
	return s
}

// Snapshot is the authoritative state observers re-derive on every change
// event or poll tick.
type Snapshot struct {
	Session     domain.Session
	Question    *domain.Question
	Leaderboard domain.Leaderboard
	Remaining   time.Duration
}

// Snapshot assembles session, current question, and leaderboard. A missing
// session record reads as an inactive pre-quiz session with registration
// closed.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	session, ok, err := s.sessions.GetCurrent(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if !ok {
		session = domain.Session{Phase: domain.PhasePreQuiz}
	}

	snap := Snapshot{
		Session:   session,
		Remaining: Remaining(session, s.clock()),
	}
	if session.CurrentQuestionID != "" {
		question, err := s.questions.ByID(ctx, session.CurrentQuestionID)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Question = &question
	}
	if session.ID != "" {
		leaderboard, err := s.aggregator.Compute(ctx, session)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Leaderboard = leaderboard
	}
	return snap, nil
}

// Register adds a participant while registration is open. Re-registering an
// existing user refreshes the display name and is not gated, so returning
// participants can reconnect after registration closes.
func (s *Service) Register(ctx context.Context, userID, displayName string) (domain.Participant, error) {
	existing, ok, err := s.participants.Get(ctx, userID)
	if err != nil {
		return domain.Participant{}, err
	}
	if ok {
		existing.DisplayName = displayName
		if err := s.participants.Register(ctx, existing); err != nil {
			return domain.Participant{}, err
		}
		return existing, nil
	}

	session, sessionExists, err := s.sessions.GetCurrent(ctx)
	if err != nil {
		return domain.Participant{}, err
	}
	if !sessionExists || !session.RegistrationOpen {
		return domain.Participant{}, domain.ErrRegistrationClosed
	}

	participant := domain.Participant{
		UserID:      userID,
		DisplayName: displayName,
		CreatedAt:   s.clock(),
	}
	if err := s.participants.Register(ctx, participant); err != nil {
		return domain.Participant{}, err
	}
	return participant, nil
}

// IsAdmin is the single capability check the operator-command boundary
// consumes; the state machine itself is capability-agnostic.
func (s *Service) IsAdmin(ctx context.Context, userID string) (bool, error) {
	participant, ok, err := s.participants.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return ok && participant.IsAdmin, nil
}

// SubmitAnswer forwards to the answer ledger.
func (s *Service) SubmitAnswer(ctx context.Context, userID, sessionID, questionID string, selected domain.Option) (domain.Answer, error) {
	return s.ledger.Submit(ctx, userID, sessionID, questionID, selected)
}

// Operator commands, dispatched by the boundary after the IsAdmin check.

func (s *Service) StartQuiz(ctx context.Context) (domain.Session, error) {
	return s.engine.Start(ctx)
}

func (s *Service) StopQuiz(ctx context.Context) (domain.Session, error) {
	return s.engine.Stop(ctx)
}

func (s *Service) ResetQuiz(ctx context.Context) (domain.Session, error) {
	return s.engine.Reset(ctx)
}

func (s *Service) SetRegistration(ctx context.Context, open bool) (domain.Session, error) {
	return s.engine.SetRegistration(ctx, open)
}

// Subscribe exposes the change feed. The caller must invoke the returned
// cancel function to avoid leaks.
func (s *Service) Subscribe(ctx context.Context) (<-chan domain.Event, func(), error) {
	return s.feed.Subscribe(ctx)
}
