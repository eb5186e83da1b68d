package questions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/principlequiz/backend/internal/generator"
	"github.com/principlequiz/backend/internal/llm"
	"github.com/principlequiz/backend/internal/models"
)

const (
	defaultQuestionsPerPrinciple = 5
	defaultGroupSize             = 5
)

// CostLimitError is returned when a request's estimated cost is above the
// configured ceiling. Nothing is sent to the completion service.
type CostLimitError struct {
	Estimate generator.CostEstimate
	LimitUSD float64
}

func (e *CostLimitError) Error() string {
	return fmt.Sprintf("estimated cost $%.2f exceeds limit $%.2f", e.Estimate.EstimatedCostUSD, e.LimitUSD)
}

// UnknownPrinciplesError lists requested principle IDs that do not exist.
type UnknownPrinciplesError struct {
	IDs []string
}

func (e *UnknownPrinciplesError) Error() string {
	return "unknown principles: " + strings.Join(e.IDs, ", ")
}

type principleStore interface {
	Get(ctx context.Context, id string) (*models.Principle, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Principle, error)
	ListWithoutQuestions(ctx context.Context) ([]models.Principle, error)
}

type questionStore interface {
	CreateRun(ctx context.Context, run *models.GenerationRun) error
	CompleteRun(ctx context.Context, run *models.GenerationRun) error
	FailRun(ctx context.Context, runID string, errMsg string, timeMs int64) error
	GetRun(ctx context.Context, runID string) (*models.GenerationRun, error)
	ListRuns(ctx context.Context, status *models.RunStatus, limit, offset int) ([]models.GenerationRun, error)
	SaveQuestions(ctx context.Context, runID string, difficulty models.Difficulty, source models.QuestionSource, generated []generator.GeneratedQuestion) ([]models.Question, error)
	ListByPrinciple(ctx context.Context, principleID string) ([]models.Question, error)
	GetStats(ctx context.Context) (*models.QuestionStats, error)
}

type questionGenerator interface {
	GenerateQuestions(ctx context.Context, req generator.Request) (*generator.Result, error)
	GenerateBatch(ctx context.Context, reqs []generator.Request) *generator.BatchResult
	GenerateFallbackQuestions(principles []models.Principle) []generator.GeneratedQuestion
	ModelName() string
}

type ServiceConfig struct {
	// MaxCostUSD rejects requests whose estimate is above it. Zero disables
	// the check.
	MaxCostUSD float64
	GroupSize  int
}

type Service struct {
	store      questionStore
	principles principleStore
	generator  questionGenerator
	maxCostUSD float64
	groupSize  int
}

func NewService(store questionStore, principles principleStore, gen questionGenerator, cfg ServiceConfig) *Service {
	if cfg.GroupSize <= 0 {
		cfg.GroupSize = defaultGroupSize
	}

	log.Printf("Service: model=%s maxCost=$%.2f groupSize=%d", gen.ModelName(), cfg.MaxCostUSD, cfg.GroupSize)

	return &Service{
		store:      store,
		principles: principles,
		generator:  gen,
		maxCostUSD: cfg.MaxCostUSD,
		groupSize:  cfg.GroupSize,
	}
}

func (s *Service) MaxCostUSD() float64 {
	return s.maxCostUSD
}

func (s *Service) checkCost(est generator.CostEstimate) error {
	if s.maxCostUSD > 0 && est.EstimatedCostUSD > s.maxCostUSD {
		return &CostLimitError{Estimate: est, LimitUSD: s.maxCostUSD}
	}
	return nil
}

// ── Question Generation ─────────────────────────────────

// Generate runs the pipeline for the requested principles and stores the
// result. A failed or empty generation is replaced with fallback questions so
// every call that gets past validation leaves usable content behind.
func (s *Service) Generate(ctx context.Context, req models.GenerateRequest) (*models.GenerateResponse, error) {
	if req.QuestionsPerPrinciple == 0 {
		req.QuestionsPerPrinciple = defaultQuestionsPerPrinciple
	}

	ids := dedupe(req.PrincipleIDs)
	if len(ids) == 0 {
		return nil, &generator.RequestError{Msg: "at least one principle is required"}
	}

	principles, err := s.principles.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load principles: %w", err)
	}
	if missing := missingIDs(ids, principles); len(missing) > 0 {
		return nil, &UnknownPrinciplesError{IDs: missing}
	}

	genReq := generator.Request{
		Principles:            principles,
		QuestionsPerPrinciple: req.QuestionsPerPrinciple,
		Difficulty:            req.Difficulty,
	}
	if err := genReq.Validate(); err != nil {
		return nil, err
	}

	est := generator.EstimateTokenCost(principles, genReq.QuestionsPerPrinciple)
	if err := s.checkCost(est); err != nil {
		return nil, err
	}

	run := newRun(genReq, est, s.generator.ModelName())
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	start := time.Now()
	res, genErr := s.generator.GenerateQuestions(ctx, genReq)

	saved, err := s.finishRun(ctx, run, genReq, res, genErr, start)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Saved %d questions for %d principles", len(saved), len(principles))
	if run.UsedFallback {
		msg += " using fallback questions"
	}

	return &models.GenerateResponse{
		RunID:             run.ID,
		Status:            run.Status,
		QuestionsSaved:    len(saved),
		QuestionsRejected: run.QuestionsRejected,
		UsedFallback:      run.UsedFallback,
		Questions:         saved,
		Message:           msg,
	}, nil
}

func newRun(req generator.Request, est generator.CostEstimate, model string) *models.GenerationRun {
	return &models.GenerationRun{
		Difficulty:         req.Difficulty,
		PrincipleCount:     len(req.Principles),
		QuestionsRequested: len(req.Principles) * req.QuestionsPerPrinciple,
		ModelUsed:          model,
		EstimatedCostUSD:   est.EstimatedCostUSD,
	}
}

// finishRun applies the fallback policy to one group's pipeline outcome,
// stores the questions and closes the run record.
func (s *Service) finishRun(ctx context.Context, run *models.GenerationRun, req generator.Request,
	res *generator.Result, genErr error, start time.Time) ([]models.Question, error) {

	var questions []generator.GeneratedQuestion
	source := models.SourceAI

	if res != nil {
		run.PromptTokens = res.Usage.InputTokens
		run.OutputTokens = res.Usage.OutputTokens
		if res.Model != "" {
			run.ModelUsed = res.Model
		}
		if cost := llm.LookupCost(run.ModelUsed); cost != nil {
			actual := cost.Cost(res.Usage.InputTokens, res.Usage.OutputTokens)
			run.ActualCostUSD = &actual
		}

		var foreign int
		questions, foreign = keepKnownPrinciples(res.Questions, req.Principles)
		run.QuestionsRejected = len(res.Rejected) + foreign
	}

	switch {
	case genErr != nil:
		log.Printf("WARN: run %s: generation failed, using fallback questions: %v", run.ID, genErr)
		msg := genErr.Error()
		run.ErrorMessage = &msg
		run.UsedFallback = true
	case len(questions) == 0:
		log.Printf("WARN: run %s: no valid questions generated, using fallback questions", run.ID)
		run.UsedFallback = true
	}
	if run.UsedFallback {
		questions = s.generator.GenerateFallbackQuestions(req.Principles)
		source = models.SourceFallback
	}

	run.GenerationTimeMs = time.Since(start).Milliseconds()

	saved, err := s.store.SaveQuestions(ctx, run.ID, req.Difficulty, source, questions)
	if err != nil {
		if failErr := s.store.FailRun(ctx, run.ID, err.Error(), run.GenerationTimeMs); failErr != nil {
			log.Printf("WARN: run %s: mark failed: %v", run.ID, failErr)
		}
		run.Status = models.RunFailed
		return nil, fmt.Errorf("save questions: %w", err)
	}

	run.QuestionsSaved = len(saved)
	if err := s.store.CompleteRun(ctx, run); err != nil {
		return nil, err
	}

	log.Printf("Run %s complete: saved=%d rejected=%d fallback=%v source=%s time=%dms",
		run.ID, run.QuestionsSaved, run.QuestionsRejected, run.UsedFallback, source, run.GenerationTimeMs)
	return saved, nil
}

// keepKnownPrinciples drops questions that reference a principle outside the
// request and returns how many were dropped.
func keepKnownPrinciples(questions []generator.GeneratedQuestion, principles []models.Principle) ([]generator.GeneratedQuestion, int) {
	known := make(map[string]bool, len(principles))
	for _, p := range principles {
		known[p.ID] = true
	}

	kept := make([]generator.GeneratedQuestion, 0, len(questions))
	for _, q := range questions {
		if !known[q.PrincipleID] {
			log.Printf("WARN: dropping question for unknown principle %q", q.PrincipleID)
			continue
		}
		kept = append(kept, q)
	}
	return kept, len(questions) - len(kept)
}

// ── Batch Generation ────────────────────────────────────

type BatchOptions struct {
	QuestionsPerPrinciple int
	Difficulty            models.Difficulty
	// GroupSize overrides the service default when positive.
	GroupSize int
	// Limit caps the number of principles processed. Zero means all.
	Limit int
	// Delay, when positive, runs groups one after another with this pause
	// between calls instead of concurrently.
	Delay time.Duration
}

// PlanMissing returns the principles GenerateMissing would process and the
// estimated cost, without generating anything.
func (s *Service) PlanMissing(ctx context.Context, opts BatchOptions) ([]models.Principle, generator.CostEstimate, error) {
	if opts.QuestionsPerPrinciple == 0 {
		opts.QuestionsPerPrinciple = defaultQuestionsPerPrinciple
	}

	principles, err := s.principles.ListWithoutQuestions(ctx)
	if err != nil {
		return nil, generator.CostEstimate{}, fmt.Errorf("list principles without questions: %w", err)
	}
	if opts.Limit > 0 && len(principles) > opts.Limit {
		principles = principles[:opts.Limit]
	}
	return principles, generator.EstimateTokenCost(principles, opts.QuestionsPerPrinciple), nil
}

// GenerateMissing generates questions for every principle that has none,
// in groups. A failing group falls back or is reported in the response;
// it never stops the other groups. If ctx is cancelled during a paced batch,
// finished groups are still stored, the rest are marked failed, and the
// partial response is returned with the context error.
func (s *Service) GenerateMissing(ctx context.Context, opts BatchOptions) (*models.BatchGenerateResponse, error) {
	if opts.QuestionsPerPrinciple == 0 {
		opts.QuestionsPerPrinciple = defaultQuestionsPerPrinciple
	}
	groupSize := opts.GroupSize
	if groupSize <= 0 {
		groupSize = s.groupSize
	}

	principles, est, err := s.PlanMissing(ctx, opts)
	if err != nil {
		return nil, err
	}
	resp := &models.BatchGenerateResponse{RunIDs: []string{}}
	if len(principles) == 0 {
		return resp, nil
	}
	if err := s.checkCost(est); err != nil {
		return nil, err
	}

	var reqs []generator.Request
	for group := range slices.Chunk(principles, groupSize) {
		req := generator.Request{
			Principles:            group,
			QuestionsPerPrinciple: opts.QuestionsPerPrinciple,
			Difficulty:            opts.Difficulty,
		}
		if err := req.Validate(); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	resp.Groups = len(reqs)

	runs := make([]*models.GenerationRun, len(reqs))
	for i, req := range reqs {
		runs[i] = newRun(req, generator.EstimateTokenCost(req.Principles, req.QuestionsPerPrinciple), s.generator.ModelName())
		if err := s.store.CreateRun(ctx, runs[i]); err != nil {
			s.failRuns(ctx, runs[:i], "batch aborted: "+err.Error())
			return nil, fmt.Errorf("create run for group %d: %w", i+1, err)
		}
		resp.RunIDs = append(resp.RunIDs, runs[i].ID)
	}

	// Results already paid for are stored even when ctx is cancelled mid-batch.
	storeCtx := context.WithoutCancel(ctx)

	start := time.Now()
	var outcomes []generator.Outcome
	var interrupted error
	if opts.Delay > 0 {
		outcomes, interrupted = s.generateSequential(ctx, reqs, opts.Delay)
	} else {
		outcomes = s.generator.GenerateBatch(ctx, reqs).Outcomes
	}

	for _, o := range outcomes {
		run := runs[o.Index]
		saved, err := s.finishRun(storeCtx, run, reqs[o.Index], o.Result, o.Err, start)
		if o.Err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("group %d: %v", o.Index+1, o.Err))
		}
		if err != nil {
			resp.GroupsFailed++
			resp.Errors = append(resp.Errors, fmt.Sprintf("group %d: %v", o.Index+1, err))
			continue
		}
		resp.QuestionsSaved += len(saved)
		if run.UsedFallback {
			resp.FallbackGroups++
		}
	}

	if interrupted != nil {
		pending := runs[len(outcomes):]
		s.failRuns(storeCtx, pending, "not started: "+interrupted.Error())
		for i := len(outcomes); i < len(runs); i++ {
			resp.Errors = append(resp.Errors, fmt.Sprintf("group %d: not started: %v", i+1, interrupted))
		}
		resp.GroupsFailed += len(pending)
	}

	if resp.GroupsFailed > 0 || resp.FallbackGroups > 0 {
		log.Printf("WARN: batch generation: %d groups, %d failed, %d used fallback",
			resp.Groups, resp.GroupsFailed, resp.FallbackGroups)
	}
	if interrupted != nil {
		return resp, fmt.Errorf("batch generation interrupted after %d of %d groups: %w", len(outcomes), len(reqs), interrupted)
	}
	log.Printf("Batch generation complete: %d questions saved across %d groups", resp.QuestionsSaved, resp.Groups)
	return resp, nil
}

// generateSequential runs groups in order with a pause between calls. On
// cancellation it returns the outcomes gathered so far together with the
// context error.
func (s *Service) generateSequential(ctx context.Context, reqs []generator.Request, delay time.Duration) ([]generator.Outcome, error) {
	outcomes := make([]generator.Outcome, 0, len(reqs))
	for i, req := range reqs {
		if i > 0 {
			select {
			case <-ctx.Done():
				return outcomes, ctx.Err()
			case <-time.After(delay):
			}
		}
		res, err := s.generator.GenerateQuestions(ctx, req)
		outcomes = append(outcomes, generator.Outcome{Index: i, Result: res, Err: err})
	}
	return outcomes, nil
}

// failRuns closes runs that will never produce questions.
func (s *Service) failRuns(ctx context.Context, runs []*models.GenerationRun, msg string) {
	ctx = context.WithoutCancel(ctx)
	for _, run := range runs {
		if err := s.store.FailRun(ctx, run.ID, msg, 0); err != nil {
			log.Printf("WARN: run %s: mark failed: %v", run.ID, err)
			continue
		}
		run.Status = models.RunFailed
	}
}

// ── Estimates & Reads ───────────────────────────────────

func (s *Service) Estimate(ctx context.Context, req models.EstimateRequest) (*models.EstimateResponse, error) {
	if req.QuestionsPerPrinciple == 0 {
		req.QuestionsPerPrinciple = defaultQuestionsPerPrinciple
	}
	if req.QuestionsPerPrinciple < 0 || req.PrincipleCount < 0 {
		return nil, &generator.RequestError{Msg: "counts must not be negative"}
	}

	var est generator.CostEstimate
	count := req.PrincipleCount
	if ids := dedupe(req.PrincipleIDs); len(ids) > 0 {
		principles, err := s.principles.GetByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load principles: %w", err)
		}
		if missing := missingIDs(ids, principles); len(missing) > 0 {
			return nil, &UnknownPrinciplesError{IDs: missing}
		}
		count = len(principles)
		est = generator.EstimateTokenCost(principles, req.QuestionsPerPrinciple)
	} else {
		est = generator.EstimateForCount(count, req.QuestionsPerPrinciple)
	}

	return &models.EstimateResponse{
		PrincipleCount:        count,
		QuestionsPerPrinciple: req.QuestionsPerPrinciple,
		PromptTokens:          est.PromptTokens,
		CompletionTokens:      est.CompletionTokens,
		EstimatedCostUSD:      est.EstimatedCostUSD,
		WithinLimit:           s.checkCost(est) == nil,
		LimitUSD:              s.maxCostUSD,
	}, nil
}

func (s *Service) ListForPrinciple(ctx context.Context, principleID string) (*models.QuestionListResponse, error) {
	if _, err := s.principles.Get(ctx, principleID); err != nil {
		return nil, err
	}

	questions, err := s.store.ListByPrinciple(ctx, principleID)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []models.Question{}
	}
	return &models.QuestionListResponse{Questions: questions, Total: len(questions)}, nil
}

func (s *Service) Stats(ctx context.Context) (*models.QuestionStats, error) {
	return s.store.GetStats(ctx)
}

func (s *Service) ListRuns(ctx context.Context, status *models.RunStatus, limit, offset int) ([]models.GenerationRun, error) {
	return s.store.ListRuns(ctx, status, limit, offset)
}

func (s *Service) GetRun(ctx context.Context, runID string) (*models.GenerationRun, error) {
	return s.store.GetRun(ctx, runID)
}

// IsClientError reports whether err was caused by the request rather than by
// the server.
func IsClientError(err error) bool {
	var reqErr *generator.RequestError
	var unknown *UnknownPrinciplesError
	var costErr *CostLimitError
	return errors.As(err, &reqErr) || errors.As(err, &unknown) || errors.As(err, &costErr)
}

// ── Helpers ─────────────────────────────────────────────

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func missingIDs(ids []string, found []models.Principle) []string {
	have := make(map[string]bool, len(found))
	for _, p := range found {
		have[p.ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
