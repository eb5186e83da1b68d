package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"sync/atomic"
)

var (
	devPrincipleID = regexp.MustCompile(`"id":\s*"([^"]+)"`)
	devCount       = regexp.MustCompile(`Generate exactly (\d+)`)
)

// DevClient backs LLM_PROVIDER=mock. It never calls out; it answers every
// prompt with well-formed placeholder questions for each principle ID found in
// the prompt, so a local server exercises the full save path instead of
// always falling back.
type DevClient struct {
	calls atomic.Int64
}

func NewDevClient() *DevClient {
	return &DevClient{}
}

func (c *DevClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.calls.Add(1)

	count := 1
	if m := devCount.FindStringSubmatch(req.Prompt); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			count = n
		}
	}

	type devQuestion struct {
		Question      string   `json:"question"`
		Options       []string `json:"options"`
		CorrectAnswer int      `json:"correctAnswer"`
		Explanation   string   `json:"explanation"`
		PrincipleID   string   `json:"principleId"`
	}

	questions := []devQuestion{}
	for _, m := range devPrincipleID.FindAllStringSubmatch(req.Prompt, -1) {
		id := m[1]
		for i := range count {
			questions = append(questions, devQuestion{
				Question:      fmt.Sprintf("Sample question %d about %s?", i+1, id),
				Options:       []string{"First option", "Second option", "Third option", "Fourth option"},
				CorrectAnswer: (i + 1) % 4,
				Explanation:   "Placeholder from the local development provider.",
				PrincipleID:   id,
			})
		}
	}

	data, err := json.Marshal(map[string]any{"questions": questions})
	if err != nil {
		return nil, err
	}
	return &Response{
		Content: string(data),
		Model:   c.ModelID(),
		Usage:   Usage{InputTokens: len(req.Prompt) / 4, OutputTokens: len(data) / 4},
	}, nil
}

func (c *DevClient) ModelID() string {
	return DefaultModel(ProviderMock)
}

// CallCount returns the number of Complete calls made.
func (c *DevClient) CallCount() int {
	return int(c.calls.Load())
}
