package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"expo-quiz-service/internal/domain"
)

const sessionKey = "quiz:session:current"

// casScript applies the patch only while the stored (phase, phase_end_time)
// still matches what the caller read. Running compare and write in one
// script makes the transition all-or-nothing under concurrent triggers.
var casScript = redis.NewScript(`
local phase = redis.call('HGET', KEYS[1], 'phase')
if phase == false then
  return 0
end
local endtime = redis.call('HGET', KEYS[1], 'phase_end_time')
if endtime == false then
  endtime = ''
end
if phase ~= ARGV[1] or endtime ~= ARGV[2] then
  return 0
end
for i = 3, #ARGV, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
end
return 1
`)

// SessionRepository stores the session singleton as a Redis hash under a
// well-known key. The design assumes one logical quiz session cluster-wide.
type SessionRepository struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

func (r *SessionRepository) GetCurrent(ctx context.Context) (domain.Session, bool, error) {
	fields, err := r.client.HGetAll(ctx, sessionKey).Result()
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("read session: %w", err)
	}
	if len(fields) == 0 {
		return domain.Session{}, false, nil
	}
	session, err := sessionFromFields(fields)
	if err != nil {
		return domain.Session{}, false, err
	}
	return session, true, nil
}

func (r *SessionRepository) ConditionalUpdate(ctx context.Context, expectedPhase domain.Phase, expectedEnd *time.Time, next domain.Session) (domain.Session, bool, error) {
	args := []interface{}{string(expectedPhase), encodeTime(expectedEnd)}
	for field, value := range sessionToFields(next) {
		args = append(args, field, value)
	}

	applied, err := casScript.Run(ctx, r.client, []string{sessionKey}, args...).Int()
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("conditional update: %w", err)
	}
	if applied == 0 {
		current, _, err := r.GetCurrent(ctx)
		return current, false, err
	}
	return next, true, nil
}

func (r *SessionRepository) OperatorUpdate(ctx context.Context, next domain.Session) (domain.Session, error) {
	if err := r.client.HSet(ctx, sessionKey, sessionToFields(next)).Err(); err != nil {
		return domain.Session{}, fmt.Errorf("write session: %w", err)
	}
	return next, nil
}

func sessionToFields(s domain.Session) map[string]interface{} {
	return map[string]interface{}{
		"id":                      s.ID,
		"is_active":               encodeBool(s.IsActive),
		"registration_open":       encodeBool(s.RegistrationOpen),
		"phase":                   string(s.Phase),
		"current_question_id":     s.CurrentQuestionID,
		"current_question_number": strconv.Itoa(s.CurrentQuestionNumber),
		"total_questions":         strconv.Itoa(s.TotalQuestions),
		"phase_end_time":          encodeTime(s.PhaseEndTime),
		"created_at":              s.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func sessionFromFields(fields map[string]string) (domain.Session, error) {
	number, err := strconv.Atoi(fields["current_question_number"])
	if err != nil {
		return domain.Session{}, fmt.Errorf("parse question number: %w", err)
	}
	total, err := strconv.Atoi(fields["total_questions"])
	if err != nil {
		return domain.Session{}, fmt.Errorf("parse total questions: %w", err)
	}
	end, err := decodeTime(fields["phase_end_time"])
	if err != nil {
		return domain.Session{}, fmt.Errorf("parse phase end time: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return domain.Session{}, fmt.Errorf("parse created at: %w", err)
	}

	return domain.Session{
		ID:                    fields["id"],
		IsActive:              fields["is_active"] == "1",
		RegistrationOpen:      fields["registration_open"] == "1",
		Phase:                 domain.Phase(fields["phase"]),
		CurrentQuestionID:     fields["current_question_id"],
		CurrentQuestionNumber: number,
		TotalQuestions:        total,
		PhaseEndTime:          end,
		CreatedAt:             createdAt,
	}, nil
}

func encodeBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// encodeTime round-trips deadlines byte-identically so the CAS comparison
// in Lua matches exactly what a prior read returned.
func encodeTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
