package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevClient_AnswersForEachPrincipleInPrompt(t *testing.T) {
	prompt := `Generate exactly 2 multiple-choice questions for EACH of the following 2 principles.

PRINCIPLES:
[
  {
    "id": "fitts-law",
    "title": "Fitts's Law"
  },
  {
    "id": "hicks-law",
    "title": "Hick's Law"
  }
]

- Every question must carry a "principleId" copied from the "id" of one of the principles above
{"principleId": "..."}`

	c := NewDevClient()
	resp, err := c.Complete(context.Background(), Request{Prompt: prompt, JSON: true})
	require.NoError(t, err)
	assert.Equal(t, "mock", resp.Model)
	assert.Equal(t, 1, c.CallCount())

	var body struct {
		Questions []struct {
			Options       []string `json:"options"`
			CorrectAnswer int      `json:"correctAnswer"`
			PrincipleID   string   `json:"principleId"`
		} `json:"questions"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Content), &body))
	require.Len(t, body.Questions, 4)

	perPrinciple := map[string]int{}
	for _, q := range body.Questions {
		perPrinciple[q.PrincipleID]++
		assert.Len(t, q.Options, 4)
		assert.GreaterOrEqual(t, q.CorrectAnswer, 0)
		assert.LessOrEqual(t, q.CorrectAnswer, 3)
	}
	assert.Equal(t, map[string]int{"fitts-law": 2, "hicks-law": 2}, perPrinciple)
}

func TestDevClient_NoPrinciples(t *testing.T) {
	resp, err := NewDevClient().Complete(context.Background(), Request{Prompt: "hello"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"questions":[]}`, resp.Content)
}

func TestDevClient_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewDevClient()
	_, err := c.Complete(ctx, Request{Prompt: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, c.CallCount())
}

func TestNewClient_MockProviderIsDevClient(t *testing.T) {
	c, err := NewClient(context.Background(), Config{Provider: ProviderMock})
	require.NoError(t, err)
	_, ok := c.(*DevClient)
	assert.True(t, ok, "expected *DevClient, got %T", c)
}
