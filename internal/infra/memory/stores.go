package memory

import (
	"context"
	"sort"
	"sync"

	"expo-quiz-service/internal/domain"
)

// QuestionStore keeps the question set in memory, sorted by order.
type QuestionStore struct {
	mu        sync.RWMutex
	questions []domain.Question
}

func NewQuestionStore(questions ...domain.Question) *QuestionStore {
	s := &QuestionStore{}
	if len(questions) > 0 {
		_ = s.Replace(context.Background(), questions)
	}
	return s
}

func (s *QuestionStore) All(_ context.Context) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, len(s.questions))
	copy(out, s.questions)
	return out, nil
}

func (s *QuestionStore) ByID(_ context.Context, id string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.questions {
		if q.ID == id {
			return q, nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (s *QuestionStore) Replace(_ context.Context, questions []domain.Question) error {
	next := make([]domain.Question, len(questions))
	copy(next, questions)
	sort.Slice(next, func(i, j int) bool { return next[i].Order < next[j].Order })

	s.mu.Lock()
	s.questions = next
	s.mu.Unlock()
	return nil
}

// ParticipantStore keeps participants in registration order.
type ParticipantStore struct {
	mu           sync.RWMutex
	participants []domain.Participant
}

func NewParticipantStore() *ParticipantStore {
	return &ParticipantStore{}
}

func (s *ParticipantStore) List(_ context.Context) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Participant, len(s.participants))
	copy(out, s.participants)
	return out, nil
}

func (s *ParticipantStore) Get(_ context.Context, userID string) (domain.Participant, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.participants {
		if p.UserID == userID {
			return p, true, nil
		}
	}
	return domain.Participant{}, false, nil
}

func (s *ParticipantStore) Register(_ context.Context, p domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.participants {
		if s.participants[i].UserID == p.UserID {
			s.participants[i] = p
			return nil
		}
	}
	s.participants = append(s.participants, p)
	return nil
}

func (s *ParticipantStore) DeleteNonAdmin(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.participants[:0]
	for _, p := range s.participants {
		if p.IsAdmin {
			kept = append(kept, p)
		}
	}
	s.participants = kept
	return nil
}

// AnswerStore keys answers by (session, question, user); Upsert overwrites.
type AnswerStore struct {
	mu      sync.RWMutex
	answers map[string]map[answerKey]domain.Answer // sessionID -> answers
}

type answerKey struct {
	questionID string
	userID     string
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{answers: make(map[string]map[answerKey]domain.Answer)}
}

func (s *AnswerStore) Upsert(_ context.Context, a domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bySession, ok := s.answers[a.SessionID]
	if !ok {
		bySession = make(map[answerKey]domain.Answer)
		s.answers[a.SessionID] = bySession
	}
	bySession[answerKey{questionID: a.QuestionID, userID: a.UserID}] = a
	return nil
}

func (s *AnswerStore) ListBySession(_ context.Context, sessionID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bySession := s.answers[sessionID]
	out := make([]domain.Answer, 0, len(bySession))
	for _, a := range bySession {
		out = append(out, a)
	}
	return out, nil
}

func (s *AnswerStore) DeleteBySession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.answers, sessionID)
	return nil
}
