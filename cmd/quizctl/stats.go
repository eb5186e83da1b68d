package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/principlequiz/backend/internal/generator"
	"github.com/principlequiz/backend/internal/questions"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show question bank statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := questions.NewStore(a.db).GetStats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Principles:       %d (%d with questions)\n", stats.TotalPrinciples, stats.PrinciplesWithQuestions)
	fmt.Fprintf(out, "Questions:        %d (avg %.1f per principle)\n", stats.TotalQuestions, stats.AvgQuestionsPerPrinciple)
	fmt.Fprintf(out, "By source:        ai=%d fallback=%d\n", stats.BySource["ai"], stats.BySource["fallback"])
	fmt.Fprintf(out, "Answer positions: %s (max share %.0f%%)\n",
		generator.FormatHistogram(stats.CorrectAnswerPositions),
		generator.MaxPositionShare(stats.CorrectAnswerPositions)*100)
	fmt.Fprintf(out, "Runs:             %d completed, %d failed, $%.2f spent\n",
		stats.RunsCompleted, stats.RunsFailed, stats.TotalCostUSD)
	return nil
}
