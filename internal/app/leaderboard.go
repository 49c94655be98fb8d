package app

import (
	"context"
	"sort"
	"time"

	"expo-quiz-service/internal/domain"
)

// Aggregator derives the leaderboard from the participant and answer sets.
type Aggregator struct {
	participants ParticipantStore
	answers      AnswerStore
	clock        func() time.Time
}

func NewAggregator(participants ParticipantStore, answers AnswerStore) *Aggregator {
	return &Aggregator{participants: participants, answers: answers, clock: time.Now}
}

// Compute fetches both sets and delegates to ComputeLeaderboard.
func (a *Aggregator) Compute(ctx context.Context, session domain.Session) (domain.Leaderboard, error) {
	participants, err := a.participants.List(ctx)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	answers, err := a.answers.ListBySession(ctx, session.ID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return ComputeLeaderboard(session, participants, answers, a.clock()), nil
}

// ComputeLeaderboard ranks every non-admin participant by correct answers.
//
// Answers to settled questions always count; the answer to the still-open
// question only counts once the phase is results or finished, so a leader
// cannot be inferred from the question in play and a banked score never drops
// when the session moves on to the next question. The latest answer for the
// current question is surfaced regardless of phase; it tells UIs who has
// answered without revealing whether they were right until results.
//
// Ties keep registration order, which is stable across recomputation.
func ComputeLeaderboard(session domain.Session, participants []domain.Participant, answers []domain.Answer, now time.Time) domain.Leaderboard {
	revealCurrent := session.Phase == domain.PhaseResults || session.Phase == domain.PhaseFinished

	entries := make([]domain.LeaderboardEntry, 0, len(participants))
	index := make(map[string]int, len(participants))
	for _, p := range participants {
		if p.IsAdmin {
			continue
		}
		index[p.UserID] = len(entries)
		entries = append(entries, domain.LeaderboardEntry{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
		})
	}

	for _, answer := range answers {
		i, ok := index[answer.UserID]
		if !ok {
			continue
		}
		current := session.CurrentQuestionID != "" && answer.QuestionID == session.CurrentQuestionID
		if answer.Correct && (!current || revealCurrent) {
			entries[i].Score++
		}
		if current {
			selected := answer.Selected
			correct := answer.Correct
			entries[i].LatestAnswer = &selected
			entries[i].LatestCorrect = &correct
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	return domain.Leaderboard{
		SessionID: session.ID,
		Entries:   entries,
		UpdatedAt: now,
	}
}
