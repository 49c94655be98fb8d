package app

import (
	"time"

	"expo-quiz-service/internal/domain"
)

// NotTimed is the sentinel Remaining returns for phases without a deadline.
const NotTimed = time.Duration(-1)

// Remaining computes how long the session's current phase has left, clamped
// at zero. Pure; drives both UI countdowns and the expiry check.
func Remaining(s domain.Session, now time.Time) time.Duration {
	if s.PhaseEndTime == nil {
		return NotTimed
	}
	left := s.PhaseEndTime.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether a timed phase has run out.
func Expired(s domain.Session, now time.Time) bool {
	if !s.Phase.Timed() || s.PhaseEndTime == nil {
		return false
	}
	return Remaining(s, now) == 0
}
