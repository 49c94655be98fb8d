package domain

import (
	"fmt"
	"time"
)

// Phase is the coarse state of the shared quiz session.
type Phase string

const (
	PhasePreQuiz  Phase = "pre-quiz"
	PhaseQuestion Phase = "question"
	PhaseResults  Phase = "results"
	PhaseFinished Phase = "finished"
)

// Timed reports whether the phase runs against a deadline.
func (p Phase) Timed() bool {
	return p == PhaseQuestion || p == PhaseResults
}

// Option is one of the four answer choices of a question.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
	OptionC Option = "C"
	OptionD Option = "D"
)

// Valid reports whether the option is one of A-D.
func (o Option) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// Session is the single shared quiz session record. At most one session is
// current at a time; readers treat a missing record as an inactive pre-quiz
// session with registration closed.
type Session struct {
	ID                    string     `json:"id"`
	IsActive              bool       `json:"isActive"`
	RegistrationOpen      bool       `json:"registrationOpen"`
	Phase                 Phase      `json:"phase"`
	CurrentQuestionID     string     `json:"currentQuestionId,omitempty"`
	CurrentQuestionNumber int        `json:"currentQuestionNumber"`
	TotalQuestions        int        `json:"totalQuestions"`
	PhaseEndTime          *time.Time `json:"phaseEndTime,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
}

// NewSessionID derives a session identifier from its creation time.
func NewSessionID(now time.Time) string {
	return fmt.Sprintf("session-%d", now.UnixNano())
}

// Question is an MCQ question with four fixed options. Questions are
// immutable once a quiz has started.
type Question struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	OptionA       string `json:"optionA"`
	OptionB       string `json:"optionB"`
	OptionC       string `json:"optionC"`
	OptionD       string `json:"optionD"`
	CorrectOption Option `json:"correctOption"`
	Order         int    `json:"order"`
}

// OptionText returns the text of the given option, or "" for an invalid one.
func (q Question) OptionText(o Option) string {
	switch o {
	case OptionA:
		return q.OptionA
	case OptionB:
		return q.OptionB
	case OptionC:
		return q.OptionC
	case OptionD:
		return q.OptionD
	}
	return ""
}

// Participant is a registered quiz user. Admin participants control the
// session and are excluded from the leaderboard.
type Participant struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	IsAdmin     bool      `json:"isAdmin"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Answer is the single effective answer of one participant to one question
// within a session. Resubmission overwrites it (last write wins). Correct is
// computed server-side and never trusted from callers.
type Answer struct {
	UserID     string    `json:"userId"`
	SessionID  string    `json:"sessionId"`
	QuestionID string    `json:"questionId"`
	Selected   Option    `json:"selected"`
	Correct    bool      `json:"correct"`
	AnsweredAt time.Time `json:"answeredAt"`
}

// LeaderboardEntry is a derived, never persisted ranking row. LatestAnswer
// and LatestCorrect refer to the session's current question and are nil when
// the participant has not answered it.
type LeaderboardEntry struct {
	UserID        string  `json:"userId"`
	DisplayName   string  `json:"displayName"`
	Score         int     `json:"score"`
	LatestAnswer  *Option `json:"latestAnswer,omitempty"`
	LatestCorrect *bool   `json:"latestCorrect,omitempty"`
}

// Leaderboard captures the ordered scoreboard for a session.
type Leaderboard struct {
	SessionID string             `json:"sessionId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// EventKind tags a change-feed event with the record type that mutated.
type EventKind string

const (
	EventSession EventKind = "session"
	EventAnswer  EventKind = "answer"
)

// Event is a change notification. Delivery is at-least-once and unordered;
// consumers re-fetch authoritative state on receipt.
type Event struct {
	Kind      EventKind `json:"kind"`
	SessionID string    `json:"sessionId,omitempty"`
	At        time.Time `json:"at"`
}
