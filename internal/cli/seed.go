package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"expo-quiz-service/internal/config"
	"expo-quiz-service/internal/domain"
	pgstore "expo-quiz-service/internal/infra/postgres"
	redisstore "expo-quiz-service/internal/infra/redis"
	"expo-quiz-service/pkg/logger"
)

// NewSeedCmd uploads the question set and optionally registers an admin.
// Questions are refused while a quiz run is active since they are immutable
// once started.
func NewSeedCmd(configPath *string) *cobra.Command {
	var questionsFile string
	var adminID string
	var adminName string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upload quiz questions and register admins",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logger.New(cfg.Server.Debug)
			defer log.Sync()
			return runSeed(cmd, cfg, questionsFile, adminID, adminName, log)
		},
	}
	cmd.Flags().StringVar(&questionsFile, "file", "", "path to a JSON question file")
	cmd.Flags().StringVar(&adminID, "admin-id", "", "user ID to register as admin")
	cmd.Flags().StringVar(&adminName, "admin-name", "Admin", "display name for the admin")
	return cmd
}

func runSeed(cmd *cobra.Command, cfg config.Config, questionsFile, adminID, adminName string, log *zap.Logger) error {
	ctx := cmd.Context()
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if questionsFile != "" {
		if err := ensureNoActiveRun(ctx, cfg, log); err != nil {
			return err
		}

		questions, err := loadQuestionFile(questionsFile)
		if err != nil {
			return err
		}
		if err := pgstore.NewQuestionStore(pool).Replace(ctx, questions); err != nil {
			return err
		}
		log.Info("questions uploaded", zap.Int("count", len(questions)))
	}

	if adminID != "" {
		participants := pgstore.NewParticipantStore(pool)
		err := participants.Register(ctx, domain.Participant{
			UserID:      adminID,
			DisplayName: adminName,
			IsAdmin:     true,
			CreatedAt:   time.Now(),
		})
		if err != nil {
			return err
		}
		log.Info("admin registered", zap.String("userId", adminID))
	}
	return nil
}

// ensureNoActiveRun refuses the upload while a quiz run is in flight, since
// questions are immutable once started. Without a configured redis the
// session record cannot be checked; the upload proceeds with a warning.
func ensureNoActiveRun(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	if cfg.Redis.Addr == "" {
		log.Warn("redis not configured, skipping active-run check before replacing questions")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	session, ok, err := redisstore.NewSessionRepository(client).GetCurrent(ctx)
	if err != nil {
		return err
	}
	if ok && session.IsActive {
		return domain.ErrQuizActive
	}
	return nil
}

// uploadQuestion tolerates both shapes the upload form accepted: an options
// array or explicit option_a..option_d fields, and correct_answer or answer.
type uploadQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	OptionA       string   `json:"option_a"`
	OptionB       string   `json:"option_b"`
	OptionC       string   `json:"option_c"`
	OptionD       string   `json:"option_d"`
	CorrectAnswer string   `json:"correct_answer"`
	Answer        string   `json:"answer"`
}

func loadQuestionFile(path string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var uploads []uploadQuestion
	if err := json.Unmarshal(data, &uploads); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}
	if len(uploads) == 0 {
		return nil, fmt.Errorf("question file is empty")
	}

	questions := make([]domain.Question, 0, len(uploads))
	for i, u := range uploads {
		q, err := u.toQuestion(i + 1)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (u uploadQuestion) toQuestion(order int) (domain.Question, error) {
	q := domain.Question{
		ID:      fmt.Sprintf("q-%d", order),
		Text:    u.Question,
		OptionA: u.OptionA,
		OptionB: u.OptionB,
		OptionC: u.OptionC,
		OptionD: u.OptionD,
		Order:   order,
	}
	if len(u.Options) > 0 {
		if len(u.Options) != 4 {
			return domain.Question{}, fmt.Errorf("expected 4 options, got %d", len(u.Options))
		}
		q.OptionA, q.OptionB, q.OptionC, q.OptionD = u.Options[0], u.Options[1], u.Options[2], u.Options[3]
	}
	if q.Text == "" {
		return domain.Question{}, fmt.Errorf("missing question text")
	}
	if q.OptionA == "" || q.OptionB == "" || q.OptionC == "" || q.OptionD == "" {
		return domain.Question{}, fmt.Errorf("missing option text")
	}

	correct := u.CorrectAnswer
	if correct == "" {
		correct = u.Answer
	}
	q.CorrectOption = domain.Option(correct)
	if !q.CorrectOption.Valid() {
		return domain.Question{}, fmt.Errorf("invalid correct answer %q", correct)
	}
	return q, nil
}
