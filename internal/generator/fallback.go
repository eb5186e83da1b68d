package generator

import (
	"fmt"

	"github.com/principlequiz/backend/internal/models"
)

// Shared by every fallback question.
var fallbackDistractors = [3]string{
	"It is a visual design trend with no behavioral basis.",
	"It only applies to backend system performance.",
	"It states that users always read every word on a page.",
}

// GenerateFallbackQuestions builds one question per principle from the
// principle's own data, without calling the completion service. The correct
// option is the principle's one-liner, placed in a random slot.
func GenerateFallbackQuestions(principles []models.Principle, rnd RandomSource) []GeneratedQuestion {
	if rnd == nil {
		rnd = DefaultRandom
	}

	questions := make([]GeneratedQuestion, 0, len(principles))
	for _, p := range principles {
		correct := rnd.IntN(4)

		options := make([]string, 0, 4)
		options = append(options, fallbackDistractors[:correct]...)
		options = append(options, fallbackAnswer(p))
		options = append(options, fallbackDistractors[correct:]...)

		explanation := p.Definition
		if explanation == "" {
			explanation = p.OneLiner
		}

		questions = append(questions, GeneratedQuestion{
			PrincipleID:   p.ID,
			Question:      fmt.Sprintf("What is the main idea behind %s?", p.Title),
			Options:       options,
			CorrectAnswer: correct,
			Explanation:   explanation,
		})
	}
	return questions
}

func fallbackAnswer(p models.Principle) string {
	switch {
	case p.OneLiner != "":
		return p.OneLiner
	case p.Definition != "":
		return p.Definition
	default:
		return p.Title
	}
}
