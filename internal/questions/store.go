package questions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/principlequiz/backend/internal/generator"
	"github.com/principlequiz/backend/internal/models"
)

var ErrRunNotFound = errors.New("generation run not found")

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Generation Runs ─────────────────────────────────────

// CreateRun inserts run with status generating and fills in its ID and
// creation time.
func (s *Store) CreateRun(ctx context.Context, run *models.GenerationRun) error {
	run.ID = uuid.NewString()
	run.Status = models.RunGenerating
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO generation_runs
		 (id, status, difficulty, principle_count, questions_requested, model_used, estimated_cost_usd)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		run.ID, run.Status, run.Difficulty, run.PrincipleCount, run.QuestionsRequested,
		run.ModelUsed, run.EstimatedCostUSD,
	).Scan(&run.CreatedAt)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (s *Store) CompleteRun(ctx context.Context, run *models.GenerationRun) error {
	run.Status = models.RunCompleted
	err := s.db.QueryRowContext(ctx,
		`UPDATE generation_runs
		 SET status = $1, questions_saved = $2, questions_rejected = $3, used_fallback = $4,
		     model_used = $5, prompt_tokens = $6, output_tokens = $7, actual_cost_usd = $8,
		     generation_time_ms = $9, error_message = $10, completed_at = NOW()
		 WHERE id = $11
		 RETURNING completed_at`,
		run.Status, run.QuestionsSaved, run.QuestionsRejected, run.UsedFallback,
		run.ModelUsed, run.PromptTokens, run.OutputTokens, run.ActualCostUSD,
		run.GenerationTimeMs, run.ErrorMessage, run.ID,
	).Scan(&run.CompletedAt)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", run.ID, err)
	}
	return nil
}

func (s *Store) FailRun(ctx context.Context, runID string, errMsg string, timeMs int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE generation_runs
		 SET status = $1, error_message = $2, generation_time_ms = $3, completed_at = NOW()
		 WHERE id = $4`,
		models.RunFailed, errMsg, timeMs, runID,
	)
	return err
}

const runCols = `id, status, difficulty, principle_count, questions_requested, questions_saved,
		questions_rejected, used_fallback, model_used, prompt_tokens, output_tokens,
		estimated_cost_usd, actual_cost_usd, generation_time_ms, error_message, created_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.GenerationRun, error) {
	var r models.GenerationRun
	var model sql.NullString
	err := row.Scan(&r.ID, &r.Status, &r.Difficulty, &r.PrincipleCount, &r.QuestionsRequested,
		&r.QuestionsSaved, &r.QuestionsRejected, &r.UsedFallback, &model, &r.PromptTokens,
		&r.OutputTokens, &r.EstimatedCostUSD, &r.ActualCostUSD, &r.GenerationTimeMs,
		&r.ErrorMessage, &r.CreatedAt, &r.CompletedAt)
	if err != nil {
		return nil, err
	}
	r.ModelUsed = model.String
	return &r, nil
}

func (s *Store) GetRun(ctx context.Context, runID string) (*models.GenerationRun, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runCols+` FROM generation_runs WHERE id = $1`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

func (s *Store) ListRuns(ctx context.Context, status *models.RunStatus, limit, offset int) ([]models.GenerationRun, error) {
	var rows *sql.Rows
	var err error

	if status != nil {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+runCols+` FROM generation_runs WHERE status = $1
			 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			*status, limit, offset,
		)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+runCols+` FROM generation_runs
			 ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			limit, offset,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.GenerationRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// ── Question Storage ────────────────────────────────────

// SaveQuestions stores a run's questions in one transaction and returns them
// with their assigned IDs and timestamps.
func (s *Store) SaveQuestions(ctx context.Context, runID string, difficulty models.Difficulty, source models.QuestionSource, generated []generator.GeneratedQuestion) ([]models.Question, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO questions
		 (id, principle_id, run_id, question, options, correct_answer, explanation, difficulty, source)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9)
		 RETURNING created_at`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var run *string
	if runID != "" {
		run = &runID
	}

	saved := make([]models.Question, 0, len(generated))
	for _, gq := range generated {
		options, err := json.Marshal(gq.Options)
		if err != nil {
			return nil, fmt.Errorf("encode options: %w", err)
		}

		q := models.Question{
			ID:            uuid.NewString(),
			PrincipleID:   gq.PrincipleID,
			RunID:         run,
			Question:      gq.Question,
			Options:       gq.Options,
			CorrectAnswer: gq.CorrectAnswer,
			Explanation:   gq.Explanation,
			Difficulty:    difficulty,
			Source:        source,
		}
		err = stmt.QueryRowContext(ctx,
			q.ID, q.PrincipleID, q.RunID, q.Question, string(options), q.CorrectAnswer,
			nullString(q.Explanation), q.Difficulty, q.Source,
		).Scan(&q.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert question: %w", err)
		}
		saved = append(saved, q)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit questions: %w", err)
	}
	return saved, nil
}

func (s *Store) ListByPrinciple(ctx context.Context, principleID string) ([]models.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, principle_id, run_id, question, options, correct_answer,
		        COALESCE(explanation, ''), difficulty, source, created_at
		 FROM questions WHERE principle_id = $1
		 ORDER BY created_at, id`,
		principleID,
	)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []models.Question
	for rows.Next() {
		var q models.Question
		var options []byte
		if err := rows.Scan(&q.ID, &q.PrincipleID, &q.RunID, &q.Question, &options,
			&q.CorrectAnswer, &q.Explanation, &q.Difficulty, &q.Source, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("decode options for %s: %w", q.ID, err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ── Statistics ──────────────────────────────────────────

func (s *Store) GetStats(ctx context.Context) (*models.QuestionStats, error) {
	stats := &models.QuestionStats{
		BySource:     map[string]int{},
		ByDifficulty: map[string]int{},
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM principles),
		        (SELECT COUNT(DISTINCT principle_id) FROM questions),
		        (SELECT COUNT(*) FROM questions)`,
	).Scan(&stats.TotalPrinciples, &stats.PrinciplesWithQuestions, &stats.TotalQuestions)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}

	if err := s.countBy(ctx, "source", stats.BySource); err != nil {
		return nil, err
	}
	if err := s.countBy(ctx, "difficulty", stats.ByDifficulty); err != nil {
		return nil, err
	}

	positions := map[string]int{}
	if err := s.countBy(ctx, "correct_answer", positions); err != nil {
		return nil, err
	}
	for i := range stats.CorrectAnswerPositions {
		stats.CorrectAnswerPositions[i] = positions[fmt.Sprint(i)]
	}

	if stats.PrinciplesWithQuestions > 0 {
		stats.AvgQuestionsPerPrinciple = float64(stats.TotalQuestions) / float64(stats.PrinciplesWithQuestions)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE status = 'completed'),
		        COUNT(*) FILTER (WHERE status = 'failed'),
		        COALESCE(SUM(actual_cost_usd), 0)
		 FROM generation_runs`,
	).Scan(&stats.RunsCompleted, &stats.RunsFailed, &stats.TotalCostUSD)
	if err != nil {
		return nil, fmt.Errorf("run stats: %w", err)
	}

	return stats, nil
}

// countBy groups questions by a fixed column name; column is never user input.
func (s *Store) countBy(ctx context.Context, column string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s::text, COUNT(*) FROM questions GROUP BY %s`, column, column))
	if err != nil {
		return fmt.Errorf("count by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scan %s count: %w", column, err)
		}
		into[key] = n
	}
	return rows.Err()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
