package generator

import "math/rand/v2"

// RandomSource supplies randomness for de-biasing and fallback generation.
// *rand.Rand satisfies it; tests pass a seeded one.
type RandomSource interface {
	Float64() float64
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }
func (globalSource) IntN(n int) int   { return rand.IntN(n) }

// DefaultRandom uses the top-level math/rand/v2 functions, which are safe for
// concurrent use.
var DefaultRandom RandomSource = globalSource{}

// keepProbability is the chance a question whose answer is already off slot 0
// is left untouched.
const keepProbability = 0.7

// Debias moves correct answers around so they do not cluster at index 0.
// A question whose answer is not at 0 is kept as is 70% of the time; every
// other question gets a uniformly random target slot and its correct option is
// swapped there. The input slice and its option slices are not modified.
func Debias(questions []GeneratedQuestion, rnd RandomSource) []GeneratedQuestion {
	if rnd == nil {
		rnd = DefaultRandom
	}

	out := make([]GeneratedQuestion, len(questions))
	for i, q := range questions {
		out[i] = debiasOne(q, rnd)
	}
	return out
}

func debiasOne(q GeneratedQuestion, rnd RandomSource) GeneratedQuestion {
	current := q.CorrectAnswer
	if current != 0 && rnd.Float64() < keepProbability {
		return q
	}

	target := rnd.IntN(len(q.Options))
	if target == current {
		return q
	}

	options := make([]string, len(q.Options))
	copy(options, q.Options)
	options[current], options[target] = options[target], options[current]

	q.Options = options
	q.CorrectAnswer = target
	return q
}
