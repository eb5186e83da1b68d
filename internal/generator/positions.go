package generator

import (
	"fmt"
	"strings"
)

// PositionHistogram counts how often each option slot holds the correct
// answer. Out-of-range indexes are ignored.
func PositionHistogram(questions []GeneratedQuestion) [4]int {
	var counts [4]int
	for _, q := range questions {
		if q.CorrectAnswer >= 0 && q.CorrectAnswer < len(counts) {
			counts[q.CorrectAnswer]++
		}
	}
	return counts
}

// MaxPositionShare returns the largest fraction of questions whose answer
// sits in a single slot, or 0 for an empty set.
func MaxPositionShare(counts [4]int) float64 {
	total, most := 0, 0
	for _, c := range counts {
		total += c
		most = max(most, c)
	}
	if total == 0 {
		return 0
	}
	return float64(most) / float64(total)
}

// FormatHistogram renders counts as "A=3 B=1 C=0 D=2" for log lines.
func FormatHistogram(counts [4]int) string {
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = fmt.Sprintf("%c=%d", 'A'+i, c)
	}
	return strings.Join(parts, " ")
}
