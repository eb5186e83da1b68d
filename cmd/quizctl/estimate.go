package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/principlequiz/backend/internal/generator"
	"github.com/principlequiz/backend/internal/questions"
)

var (
	estimateCountFlag int
	estimatePerFlag   int
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Show the projected cost of generating questions",
	Long: `Print token and dollar estimates for a generation run.

Without --count the estimate covers every principle that has no questions
yet, which is what "quizctl generate" does by default.

Examples:
  quizctl estimate
  quizctl estimate --count 100 --per-principle 5`,
	RunE: runEstimate,
}

func init() {
	estimateCmd.Flags().IntVar(&estimateCountFlag, "count", 0, "Estimate for this many principles instead of the missing ones")
	estimateCmd.Flags().IntVar(&estimatePerFlag, "per-principle", 5, "Questions per principle")
	rootCmd.AddCommand(estimateCmd)
}

func runEstimate(cmd *cobra.Command, args []string) error {
	if estimatePerFlag < 1 || estimatePerFlag > generator.MaxQuestionsPerPrinciple {
		return fmt.Errorf("--per-principle must be between 1 and %d", generator.MaxQuestionsPerPrinciple)
	}
	out := cmd.OutOrStdout()

	if estimateCountFlag > 0 {
		printEstimate(out, estimateCountFlag, generator.EstimateForCount(estimateCountFlag, estimatePerFlag), 0)
		return nil
	}

	a, err := openApp(cmd.Context(), appOptions{withGenerator: true})
	if err != nil {
		return err
	}
	defer a.Close()

	missing, est, err := a.service.PlanMissing(cmd.Context(), questions.BatchOptions{QuestionsPerPrinciple: estimatePerFlag})
	if err != nil {
		return err
	}
	printEstimate(out, len(missing), est, a.service.MaxCostUSD())
	return nil
}

func printEstimate(out io.Writer, principleCount int, est generator.CostEstimate, limit float64) {
	fmt.Fprintf(out, "Principles:        %d\n", principleCount)
	fmt.Fprintf(out, "Prompt tokens:     %d\n", est.PromptTokens)
	fmt.Fprintf(out, "Completion tokens: %d\n", est.CompletionTokens)
	fmt.Fprintf(out, "Estimated cost:    $%.2f\n", est.EstimatedCostUSD)
	if limit > 0 {
		status := "within limit"
		if est.EstimatedCostUSD > limit {
			status = "OVER LIMIT"
		}
		fmt.Fprintf(out, "Cost limit:        $%.2f (%s)\n", limit, status)
	}
}
