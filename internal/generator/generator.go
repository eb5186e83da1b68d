package generator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/principlequiz/backend/internal/llm"
	"github.com/principlequiz/backend/internal/models"
)

// MaxQuestionsPerPrinciple bounds a single request to keep cost predictable.
const MaxQuestionsPerPrinciple = 10

// ErrNoClient is returned by New when no completion client is supplied.
var ErrNoClient = errors.New("generator: completion client is required")

// Config wires a Generator. Zero Temperature and MaxTokens are sent as is;
// callers pick defaults in their own configuration.
type Config struct {
	Client      llm.Client
	Model       string
	Temperature float64
	MaxTokens   int

	// Rand drives answer de-biasing and fallback slot choice. Nil uses
	// DefaultRandom.
	Rand RandomSource

	// MaxConcurrency limits in-flight calls in GenerateBatch. Zero means no
	// limit.
	MaxConcurrency int
}

// Generator turns principles into validated, de-biased questions. It holds no
// per-call state and is safe for concurrent use.
type Generator struct {
	client      llm.Client
	model       string
	temperature float64
	maxTokens   int
	rand        RandomSource
	concurrency int
}

func New(cfg Config) (*Generator, error) {
	if cfg.Client == nil {
		return nil, ErrNoClient
	}

	model := cfg.Model
	if model == "" {
		model = cfg.Client.ModelID()
	}

	rnd := cfg.Rand
	if rnd == nil {
		rnd = DefaultRandom
	} else {
		rnd = &lockedSource{src: rnd}
	}

	return &Generator{
		client:      cfg.Client,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		rand:        rnd,
		concurrency: cfg.MaxConcurrency,
	}, nil
}

func (g *Generator) ModelName() string {
	return g.model
}

// Request is one generation call: a group of principles, how many questions
// to write for each, and at what difficulty.
type Request struct {
	Principles            []models.Principle
	QuestionsPerPrinciple int
	Difficulty            models.Difficulty
}

// RequestError reports a Request that cannot be sent.
type RequestError struct {
	Msg string
}

func (e *RequestError) Error() string {
	return "invalid generation request: " + e.Msg
}

// Validate checks the request and fills in the default difficulty.
func (r *Request) Validate() error {
	if len(r.Principles) == 0 {
		return &RequestError{Msg: "at least one principle is required"}
	}
	for i, p := range r.Principles {
		if p.ID == "" {
			return &RequestError{Msg: fmt.Sprintf("principle %d has no id", i)}
		}
	}
	if r.QuestionsPerPrinciple < 1 || r.QuestionsPerPrinciple > MaxQuestionsPerPrinciple {
		return &RequestError{Msg: fmt.Sprintf("questions per principle must be between 1 and %d, got %d",
			MaxQuestionsPerPrinciple, r.QuestionsPerPrinciple)}
	}
	if r.Difficulty == "" {
		r.Difficulty = models.DifficultyMedium
	}
	if !models.ValidDifficulties[r.Difficulty] {
		return &RequestError{Msg: fmt.Sprintf("unknown difficulty %q", r.Difficulty)}
	}
	return nil
}

// Result is the outcome of a successful call. Questions may be empty when
// every candidate was rejected; deciding what to do then is up to the caller.
type Result struct {
	Questions  []GeneratedQuestion
	Rejected   []Rejection
	Candidates int
	Usage      llm.Usage
	Model      string
}

// GenerateQuestions runs one prompt/complete/validate/de-bias pass. Errors from
// the completion client are returned unwrapped so callers can inspect them;
// a reply without a usable envelope yields a *ParseError. Nothing is retried.
func (g *Generator) GenerateQuestions(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	resp, err := g.client.Complete(ctx, llm.Request{
		System:      BuildSystemPrompt(),
		Prompt:      BuildUserPrompt(req.Principles, req.QuestionsPerPrinciple, req.Difficulty),
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}

	parsed, err := ParseResponse(resp.Content)
	if err != nil {
		return nil, err
	}

	questions := Debias(parsed.Questions, g.rand)

	model := resp.Model
	if model == "" {
		model = g.model
	}

	log.Printf("[generator] %d principles: %d/%d candidates accepted, answer slots %s",
		len(req.Principles), len(questions), parsed.Candidates, FormatHistogram(PositionHistogram(questions)))

	return &Result{
		Questions:  questions,
		Rejected:   parsed.Rejected,
		Candidates: parsed.Candidates,
		Usage:      resp.Usage,
		Model:      model,
	}, nil
}

// GenerateFallbackQuestions builds one templated question per principle using
// the generator's random source.
func (g *Generator) GenerateFallbackQuestions(principles []models.Principle) []GeneratedQuestion {
	return GenerateFallbackQuestions(principles, g.rand)
}

// Outcome is the result of one group in a batch. Exactly one of Result and
// Err is set.
type Outcome struct {
	Index  int
	Result *Result
	Err    error
}

// BatchResult holds one Outcome per request, in request order.
type BatchResult struct {
	Outcomes []Outcome
}

func (b *BatchResult) Succeeded() []Outcome {
	var out []Outcome
	for _, o := range b.Outcomes {
		if o.Err == nil {
			out = append(out, o)
		}
	}
	return out
}

func (b *BatchResult) Failed() []Outcome {
	var out []Outcome
	for _, o := range b.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Errors returns the group errors in request order.
func (b *BatchResult) Errors() []error {
	var errs []error
	for _, o := range b.Outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errs
}

// GenerateBatch runs one GenerateQuestions call per request concurrently and
// waits for all of them. A failing group does not cancel the others.
func (g *Generator) GenerateBatch(ctx context.Context, reqs []Request) *BatchResult {
	result := &BatchResult{Outcomes: make([]Outcome, len(reqs))}

	var eg errgroup.Group
	if g.concurrency > 0 {
		eg.SetLimit(g.concurrency)
	}

	for i, req := range reqs {
		eg.Go(func() error {
			res, err := g.GenerateQuestions(ctx, req)
			result.Outcomes[i] = Outcome{Index: i, Result: res, Err: err}
			return nil
		})
	}
	_ = eg.Wait()

	if failed := len(result.Failed()); failed > 0 {
		log.Printf("WARN: batch generation: %d of %d groups failed", failed, len(reqs))
	}
	return result
}

// lockedSource serializes access to a caller-supplied source, which is usually
// a *rand.Rand and not safe for concurrent use.
type lockedSource struct {
	mu  sync.Mutex
	src RandomSource
}

func (l *lockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

func (l *lockedSource) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}
