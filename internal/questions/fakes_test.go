package questions

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/principlequiz/backend/internal/generator"
	"github.com/principlequiz/backend/internal/llm"
	"github.com/principlequiz/backend/internal/models"
	"github.com/principlequiz/backend/internal/principles"
)

type fakePrinciples struct {
	all      []models.Principle
	withQs   map[string]bool
	getCalls int
}

func (f *fakePrinciples) Get(_ context.Context, id string) (*models.Principle, error) {
	f.getCalls++
	for _, p := range f.all {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, principles.ErrNotFound
}

func (f *fakePrinciples) GetByIDs(_ context.Context, ids []string) ([]models.Principle, error) {
	var out []models.Principle
	for _, id := range ids {
		for _, p := range f.all {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (f *fakePrinciples) ListWithoutQuestions(context.Context) ([]models.Principle, error) {
	var out []models.Principle
	for _, p := range f.all {
		if !f.withQs[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeStore struct {
	mu        sync.Mutex
	runs      map[string]*models.GenerationRun
	order     []string
	questions []models.Question
	saveErr   error
	nextID    int

	// createErr is returned by CreateRun once createLimit runs exist.
	createErr   error
	createLimit int
}

func newFakeStore() *fakeStore {
	return &fakeStore{runs: map[string]*models.GenerationRun{}}
}

func (f *fakeStore) CreateRun(_ context.Context, run *models.GenerationRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil && f.nextID >= f.createLimit {
		return f.createErr
	}
	f.nextID++
	run.ID = fmt.Sprintf("run-%d", f.nextID)
	run.Status = models.RunGenerating
	run.CreatedAt = time.Now()
	cp := *run
	f.runs[run.ID] = &cp
	f.order = append(f.order, run.ID)
	return nil
}

func (f *fakeStore) CompleteRun(_ context.Context, run *models.GenerationRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run.Status = models.RunCompleted
	now := time.Now()
	run.CompletedAt = &now
	cp := *run
	f.runs[run.ID] = &cp
	return nil
}

func (f *fakeStore) FailRun(_ context.Context, runID string, errMsg string, timeMs int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.runs[runID]
	r.Status = models.RunFailed
	r.ErrorMessage = &errMsg
	r.GenerationTimeMs = timeMs
	return nil
}

func (f *fakeStore) GetRun(_ context.Context, runID string) (*models.GenerationRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) ListRuns(_ context.Context, status *models.RunStatus, limit, offset int) ([]models.GenerationRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.GenerationRun
	for _, id := range f.order {
		r := f.runs[id]
		if status != nil && r.Status != *status {
			continue
		}
		out = append(out, *r)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) SaveQuestions(_ context.Context, runID string, difficulty models.Difficulty, source models.QuestionSource, generated []generator.GeneratedQuestion) ([]models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	var saved []models.Question
	for i, g := range generated {
		run := runID
		q := models.Question{
			ID:            fmt.Sprintf("%s-q%d", runID, i),
			PrincipleID:   g.PrincipleID,
			RunID:         &run,
			Question:      g.Question,
			Options:       g.Options,
			CorrectAnswer: g.CorrectAnswer,
			Explanation:   g.Explanation,
			Difficulty:    difficulty,
			Source:        source,
			CreatedAt:     time.Now(),
		}
		saved = append(saved, q)
	}
	f.questions = append(f.questions, saved...)
	return saved, nil
}

func (f *fakeStore) ListByPrinciple(_ context.Context, principleID string) ([]models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Question
	for _, q := range f.questions {
		if q.PrincipleID == principleID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeStore) GetStats(context.Context) (*models.QuestionStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &models.QuestionStats{BySource: map[string]int{}, ByDifficulty: map[string]int{}}
	for _, q := range f.questions {
		stats.TotalQuestions++
		stats.BySource[string(q.Source)]++
		stats.ByDifficulty[string(q.Difficulty)]++
		stats.CorrectAnswerPositions[q.CorrectAnswer]++
	}
	return stats, nil
}

func testPrinciples() []models.Principle {
	return []models.Principle{
		{ID: "fitts-law", Title: "Fitts's Law", Type: models.PrincipleLaw, OneLiner: "Big close targets are fast to hit."},
		{ID: "hicks-law", Title: "Hick's Law", Type: models.PrincipleLaw, OneLiner: "More choices, slower decisions."},
		{ID: "anchoring", Title: "Anchoring", Type: models.PrincipleBias, OneLiner: "First numbers skew later judgments."},
	}
}

func newTestGenerator(t *testing.T, client llm.Client) *generator.Generator {
	t.Helper()
	g, err := generator.New(generator.Config{
		Client:      client,
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		MaxTokens:   4000,
		Rand:        rand.New(rand.NewPCG(7, 11)),
	})
	require.NoError(t, err)
	return g
}

var errBoom = errors.New("upstream unavailable")
