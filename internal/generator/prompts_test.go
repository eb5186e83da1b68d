package generator

import (
	"strings"
	"testing"

	"github.com/principlequiz/backend/internal/models"
)

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt()

	required := []string{"quiz writer", "Exactly 4 options", "Exactly 1 correct answer", "JSON"}
	for _, keyword := range required {
		if !strings.Contains(prompt, keyword) {
			t.Errorf("system prompt missing keyword %q", keyword)
		}
	}
}

func TestBuildUserPrompt(t *testing.T) {
	principles := []models.Principle{
		{
			ID:         "fitts-law",
			Title:      "Fitts's Law",
			Type:       models.PrincipleLaw,
			OneLiner:   "Bigger, closer targets are faster to hit.",
			Definition: "The time to acquire a target is a function of distance and size.",
			Category:   "interaction",
			Tags:       []string{"pointing", "targets"},
		},
		{ID: "anchoring", Title: "Anchoring", Type: models.PrincipleBias},
	}

	prompt := BuildUserPrompt(principles, 3, models.DifficultyHard)

	required := []string{
		"exactly 3",
		"2 principles",
		"DIFFICULTY: HARD",
		`"id": "fitts-law"`,
		`"oneLiner": "Bigger, closer targets are faster to hit."`,
		`"category": "interaction"`,
		`"pointing"`,
		`"id": "anchoring"`,
		"exactly 4 options",
		"principleId",
		"correctAnswer",
		"do not put it at index 0",
	}
	for _, keyword := range required {
		if !strings.Contains(prompt, keyword) {
			t.Errorf("user prompt missing %q", keyword)
		}
	}
}

func TestBuildUserPrompt_OmitsTimestamps(t *testing.T) {
	prompt := BuildUserPrompt([]models.Principle{{ID: "p1", Title: "Hick's Law"}}, 1, models.DifficultyEasy)

	for _, leaked := range []string{"createdAt", "updatedAt"} {
		if strings.Contains(prompt, leaked) {
			t.Errorf("user prompt should not include %q", leaked)
		}
	}
}

func TestDifficultyGuidance(t *testing.T) {
	seen := make(map[string]bool)
	for d := range models.ValidDifficulties {
		g := DifficultyGuidance(d)
		if g == "" {
			t.Errorf("difficulty %q has no guidance", d)
		}
		if seen[g] {
			t.Errorf("difficulty %q shares guidance with another level", d)
		}
		seen[g] = true
	}

	if DifficultyGuidance("extreme") != DifficultyGuidance(models.DifficultyMedium) {
		t.Error("unknown difficulty should fall back to medium guidance")
	}
}
