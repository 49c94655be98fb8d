package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"expo-quiz-service/internal/domain"
)

// Ledger accepts participant answers. It is the sole authority for
// correctness: the selected option is compared against the question's stored
// answer, never against anything the client claims.
type Ledger struct {
	sessions  SessionRepository
	questions QuestionSource
	answers   AnswerStore
	feed      ChangeFeed
	clock     func() time.Time
	log       *zap.Logger
}

func NewLedger(sessions SessionRepository, questions QuestionSource, answers AnswerStore, feed ChangeFeed, log *zap.Logger) *Ledger {
	return &Ledger{
		sessions:  sessions,
		questions: questions,
		answers:   answers,
		feed:      feed,
		clock:     time.Now,
		log:       log,
	}
}

// WithClock overrides the ledger's time source for deterministic tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.clock = now
	return l
}

// Submit records one effective answer per (user, session, question).
// Resubmitting before the deadline overwrites the prior answer. Submissions
// outside the question window are rejected, not silently recorded.
func (l *Ledger) Submit(ctx context.Context, userID, sessionID, questionID string, selected domain.Option) (domain.Answer, error) {
	if !selected.Valid() {
		return domain.Answer{}, domain.ErrInvalidOption
	}

	session, ok, err := l.sessions.GetCurrent(ctx)
	if err != nil {
		return domain.Answer{}, err
	}
	if !ok || session.Phase != domain.PhaseQuestion {
		return domain.Answer{}, domain.ErrWrongPhase
	}
	if session.ID != sessionID || session.CurrentQuestionID != questionID {
		return domain.Answer{}, domain.ErrWrongQuestion
	}

	question, err := l.questions.ByID(ctx, questionID)
	if err != nil {
		return domain.Answer{}, err
	}

	answer := domain.Answer{
		UserID:     userID,
		SessionID:  sessionID,
		QuestionID: questionID,
		Selected:   selected,
		Correct:    question.CorrectOption == selected,
		AnsweredAt: l.clock(),
	}
	if err := l.answers.Upsert(ctx, answer); err != nil {
		return domain.Answer{}, err
	}

	if err := l.feed.Publish(ctx, domain.Event{Kind: domain.EventAnswer, SessionID: sessionID, At: answer.AnsweredAt}); err != nil {
		l.log.Warn("publish answer event", zap.Error(err))
	}
	return answer, nil
}
