package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"expo-quiz-service/internal/domain"
)

// Durations holds the configurable phase lengths.
type Durations struct {
	Question time.Duration
	Results  time.Duration
}

// DefaultDurations mirrors the product defaults: 40s questions, 20s results.
var DefaultDurations = Durations{Question: 40 * time.Second, Results: 20 * time.Second}

// Engine is the phase state machine. Operator actions (Start, Stop, Reset,
// SetRegistration) are assumed serialized by a single human operator and use
// unconditional writes; clock-triggered advancement goes through the
// repository's conditional update and is safe to attempt concurrently from
// any number of instances.
type Engine struct {
	sessions     SessionRepository
	questions    QuestionSource
	participants ParticipantStore
	answers      AnswerStore
	feed         ChangeFeed
	durations    Durations
	clock        func() time.Time
	log          *zap.Logger
}

func NewEngine(sessions SessionRepository, questions QuestionSource, participants ParticipantStore, answers AnswerStore, feed ChangeFeed, durations Durations, log *zap.Logger) *Engine {
	return &Engine{
		sessions:     sessions,
		questions:    questions,
		participants: participants,
		answers:      answers,
		feed:         feed,
		durations:    durations,
		clock:        time.Now,
		log:          log,
	}
}

// WithClock overrides the engine's time source for deterministic tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.clock = now
	return e
}

// Start begins the quiz at the first question. It fails without mutation
// when no questions are uploaded or a run is already active.
func (e *Engine) Start(ctx context.Context) (domain.Session, error) {
	questions, err := e.questions.All(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	if len(questions) == 0 {
		return domain.Session{}, domain.ErrNoQuestions
	}

	cur, ok, err := e.sessions.GetCurrent(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	if ok && cur.IsActive {
		return domain.Session{}, domain.ErrQuizActive
	}

	now := e.clock()
	next := e.baseSession(cur, ok, now)
	end := now.Add(e.durations.Question)
	next.IsActive = true
	next.RegistrationOpen = false
	next.Phase = domain.PhaseQuestion
	next.CurrentQuestionID = questions[0].ID
	next.CurrentQuestionNumber = 1
	next.TotalQuestions = len(questions)
	next.PhaseEndTime = &end

	updated, err := e.sessions.OperatorUpdate(ctx, next)
	if err != nil {
		return domain.Session{}, err
	}
	e.log.Info("quiz started",
		zap.String("session", updated.ID),
		zap.Int("questions", updated.TotalQuestions))
	e.notify(ctx, updated.ID)
	return updated, nil
}

// Advance applies the due clock-triggered transition, if any. The returned
// bool reports whether this call won the conditional update; false covers
// both "nothing due" and "another trigger already applied it".
func (e *Engine) Advance(ctx context.Context) (bool, error) {
	cur, ok, err := e.sessions.GetCurrent(ctx)
	if err != nil {
		return false, err
	}
	if !ok || !cur.Phase.Timed() {
		return false, nil
	}
	now := e.clock()
	if !Expired(cur, now) {
		return false, nil
	}

	next := cur
	switch cur.Phase {
	case domain.PhaseQuestion:
		end := now.Add(e.durations.Results)
		next.Phase = domain.PhaseResults
		next.PhaseEndTime = &end
	case domain.PhaseResults:
		questions, err := e.questions.All(ctx)
		if err != nil {
			return false, err
		}
		following := questionAfter(questions, cur.CurrentQuestionNumber)
		if following != nil {
			end := now.Add(e.durations.Question)
			next.Phase = domain.PhaseQuestion
			next.CurrentQuestionID = following.ID
			next.CurrentQuestionNumber = cur.CurrentQuestionNumber + 1
			next.PhaseEndTime = &end
		} else {
			// Final results are over; keep the question ID for review.
			next.Phase = domain.PhaseFinished
			next.IsActive = false
			next.PhaseEndTime = nil
		}
	}

	updated, applied, err := e.sessions.ConditionalUpdate(ctx, cur.Phase, cur.PhaseEndTime, next)
	if err != nil {
		return false, err
	}
	if !applied {
		e.log.Debug("stale transition attempt", zap.String("from", string(cur.Phase)))
		return false, nil
	}
	e.log.Info("phase advanced",
		zap.String("from", string(cur.Phase)),
		zap.String("to", string(updated.Phase)),
		zap.Int("questionNumber", updated.CurrentQuestionNumber))
	e.notify(ctx, updated.ID)
	return true, nil
}

// Stop ends the quiz immediately, bypassing the clock.
func (e *Engine) Stop(ctx context.Context) (domain.Session, error) {
	cur, ok, err := e.sessions.GetCurrent(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	next := cur
	next.Phase = domain.PhaseFinished
	next.IsActive = false
	next.PhaseEndTime = nil

	updated, err := e.sessions.OperatorUpdate(ctx, next)
	if err != nil {
		return domain.Session{}, err
	}
	e.log.Info("quiz stopped", zap.String("session", updated.ID))
	e.notify(ctx, updated.ID)
	return updated, nil
}

// Reset returns the session to pre-quiz and cascades: all answers and every
// non-admin participant are deleted. Registration stays closed until the
// operator explicitly reopens it.
func (e *Engine) Reset(ctx context.Context) (domain.Session, error) {
	cur, ok, err := e.sessions.GetCurrent(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	if ok {
		if err := e.answers.DeleteBySession(ctx, cur.ID); err != nil {
			return domain.Session{}, err
		}
	}
	if err := e.participants.DeleteNonAdmin(ctx); err != nil {
		return domain.Session{}, err
	}

	now := e.clock()
	next := e.baseSession(cur, ok, now)
	next.IsActive = false
	next.RegistrationOpen = false
	next.Phase = domain.PhasePreQuiz
	next.CurrentQuestionID = ""
	next.CurrentQuestionNumber = 0
	next.TotalQuestions = 0
	next.PhaseEndTime = nil

	updated, err := e.sessions.OperatorUpdate(ctx, next)
	if err != nil {
		return domain.Session{}, err
	}
	e.log.Info("quiz reset", zap.String("session", updated.ID))
	e.notify(ctx, updated.ID)
	return updated, nil
}

// SetRegistration opens or closes registration. Only meaningful in pre-quiz;
// it never touches phase or timing fields.
func (e *Engine) SetRegistration(ctx context.Context, open bool) (domain.Session, error) {
	cur, ok, err := e.sessions.GetCurrent(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	now := e.clock()
	next := e.baseSession(cur, ok, now)
	next.RegistrationOpen = open

	updated, err := e.sessions.OperatorUpdate(ctx, next)
	if err != nil {
		return domain.Session{}, err
	}
	e.log.Info("registration toggled", zap.Bool("open", open))
	e.notify(ctx, updated.ID)
	return updated, nil
}

// baseSession carries the current record forward, or mints a fresh pre-quiz
// record when none exists yet.
func (e *Engine) baseSession(cur domain.Session, exists bool, now time.Time) domain.Session {
	if exists {
		return cur
	}
	return domain.Session{
		ID:        domain.NewSessionID(now),
		Phase:     domain.PhasePreQuiz,
		CreatedAt: now,
	}
}

func (e *Engine) notify(ctx context.Context, sessionID string) {
	event := domain.Event{Kind: domain.EventSession, SessionID: sessionID, At: e.clock()}
	if err := e.feed.Publish(ctx, event); err != nil {
		// Observers poll as fallback, so a dropped event only adds latency.
		e.log.Warn("publish session event", zap.Error(err))
	}
}

// questionAfter returns the first question whose order exceeds number, or
// nil. Questions are sorted ascending by order.
func questionAfter(questions []domain.Question, number int) *domain.Question {
	for i := range questions {
		if questions[i].Order > number {
			return &questions[i]
		}
	}
	return nil
}
