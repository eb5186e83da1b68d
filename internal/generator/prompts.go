package generator

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/principlequiz/backend/internal/models"
)

var difficultyGuidance = map[models.Difficulty]string{
	models.DifficultyEasy: `DIFFICULTY: EASY
- Test recognition of the principle and its definition
- The question can name the principle directly or paraphrase its one-liner
- Wrong answers should be clearly unrelated to the principle once it is understood`,

	models.DifficultyMedium: `DIFFICULTY: MEDIUM
- Test application of the principle in realistic product and interface scenarios
- Describe a short situation (a checkout flow, an onboarding screen, a pricing page) and ask which principle or outcome applies
- At least one wrong answer should describe a related but different principle`,

	models.DifficultyHard: `DIFFICULTY: HARD
- Test edge cases, trade-offs and interactions between principles
- Scenarios should require judging when the principle does NOT apply or conflicts with another goal
- Every wrong answer should be plausible to someone who only memorized the definition`,
}

// DifficultyGuidance returns the instruction block for d. Unknown values get
// the medium guidance.
func DifficultyGuidance(d models.Difficulty) string {
	if g, ok := difficultyGuidance[d]; ok {
		return g
	}
	return difficultyGuidance[models.DifficultyMedium]
}

func BuildSystemPrompt() string {
	return `You are an expert quiz writer for a mobile learning app that teaches UX laws, cognitive biases and design heuristics to product designers, engineers and managers.

Your questions must follow these rules:

QUESTION:
- One clear question about a single principle
- Plain, friendly language; no trick wording
- Never mention the quiz, the app or the answer format in the question

OPTIONS:
- Exactly 4 options
- Exactly 1 correct answer
- Options must be distinct from each other and similar in length
- Wrong answers must be plausible, not jokes

EXPLANATION:
- 1-2 sentences explaining why the correct answer is right

You must respond with valid JSON only. No markdown, no explanation outside the JSON.`
}

type promptPrinciple struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Type       string   `json:"type"`
	OneLiner   string   `json:"oneLiner"`
	Definition string   `json:"definition"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
}

// BuildUserPrompt embeds a projection of each principle limited to the fields
// useful for writing questions.
func BuildUserPrompt(principles []models.Principle, count int, difficulty models.Difficulty) string {
	projected := make([]promptPrinciple, len(principles))
	for i, p := range principles {
		projected[i] = promptPrinciple{
			ID:         p.ID,
			Title:      p.Title,
			Type:       string(p.Type),
			OneLiner:   p.OneLiner,
			Definition: p.Definition,
			Category:   p.Category,
			Tags:       p.Tags,
		}
	}

	data, err := json.MarshalIndent(projected, "", "  ")
	if err != nil {
		// Only strings and string slices are marshaled here.
		log.Printf("WARN: marshal principles for prompt: %v", err)
		data = []byte("[]")
	}

	return fmt.Sprintf(`Generate exactly %d multiple-choice questions for EACH of the following %d principles.

%s

PRINCIPLES:
%s

STRUCTURE RULES:
- Every question has exactly 4 options and exactly 1 correct answer
- "correctAnswer" is the 0-based index of the correct option (0, 1, 2 or 3)
- Vary the position of the correct answer across the set; do not put it at index 0 every time
- Every question must carry a "principleId" copied from the "id" of one of the principles above

Respond with JSON in this exact format:
{
  "questions": [
    {
      "question": "...",
      "options": ["...", "...", "...", "..."],
      "correctAnswer": 2,
      "explanation": "...",
      "principleId": "..."
    }
  ]
}`, count, len(principles), DifficultyGuidance(difficulty), string(data))
}
