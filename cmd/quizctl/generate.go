package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/principlequiz/backend/internal/generator"
	"github.com/principlequiz/backend/internal/models"
	"github.com/principlequiz/backend/internal/questions"
)

type generateFlags struct {
	missingOnly  bool
	perPrinciple int
	difficulty   string
	groupSize    int
	delay        time.Duration
	retries      int
	maxCost      float64
	yes          bool
	limit        int
}

var genFlags generateFlags

var generateCmd = &cobra.Command{
	Use:   "generate [principle-id...]",
	Short: "Generate quiz questions",
	Long: `Generate multiple-choice questions and store them.

With principle IDs, one run covers exactly those principles. Without IDs,
every principle that has no questions yet is processed in groups; groups
run concurrently unless --delay paces them.

The estimated cost is shown before anything is sent. Confirm with y, or
pass --yes for unattended runs.

Examples:
  quizctl generate --missing-only --limit 20
  quizctl generate --group-size 3 --delay 2s --retries 3
  quizctl generate fitts-law hicks-law --difficulty hard --yes`,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.BoolVar(&genFlags.missingOnly, "missing-only", true, "Only process principles without questions (ignored when IDs are given)")
	f.IntVar(&genFlags.perPrinciple, "per-principle", 5, "Questions per principle")
	f.StringVarP(&genFlags.difficulty, "difficulty", "d", string(models.DifficultyMedium), "easy, medium or hard")
	f.IntVar(&genFlags.groupSize, "group-size", 0, "Principles per completion call (default from GENERATION_GROUP_SIZE)")
	f.DurationVar(&genFlags.delay, "delay", 0, "Pause between groups; runs groups one at a time")
	f.IntVar(&genFlags.retries, "retries", 1, "Attempts per completion call for transient provider errors")
	f.Float64Var(&genFlags.maxCost, "max-cost", 0, "Refuse to run above this estimated cost in USD (default from GENERATION_MAX_COST_USD)")
	f.BoolVarP(&genFlags.yes, "yes", "y", false, "Skip the confirmation prompt")
	f.IntVar(&genFlags.limit, "limit", 0, "Process at most this many principles (0 = all)")
	rootCmd.AddCommand(generateCmd)
}

func (f generateFlags) validate(args []string) error {
	if len(args) == 0 && !f.missingOnly {
		return errors.New("pass principle IDs or use --missing-only")
	}
	if f.perPrinciple < 1 || f.perPrinciple > generator.MaxQuestionsPerPrinciple {
		return fmt.Errorf("--per-principle must be between 1 and %d", generator.MaxQuestionsPerPrinciple)
	}
	if !models.ValidDifficulties[models.Difficulty(f.difficulty)] {
		return fmt.Errorf("--difficulty must be easy, medium or hard, got %q", f.difficulty)
	}
	switch {
	case f.groupSize < 0:
		return errors.New("--group-size must not be negative")
	case f.delay < 0:
		return errors.New("--delay must not be negative")
	case f.retries < 1:
		return errors.New("--retries must be at least 1")
	case f.maxCost < 0:
		return errors.New("--max-cost must not be negative")
	case f.limit < 0:
		return errors.New("--limit must not be negative")
	}
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if err := genFlags.validate(args); err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := openApp(ctx, appOptions{
		withGenerator: true,
		retries:       genFlags.retries,
		maxCostUSD:    genFlags.maxCost,
		groupSize:     genFlags.groupSize,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	difficulty := models.Difficulty(genFlags.difficulty)

	if len(args) > 0 {
		est, err := a.service.Estimate(ctx, models.EstimateRequest{
			PrincipleIDs:          args,
			QuestionsPerPrinciple: genFlags.perPrinciple,
		})
		if err != nil {
			return err
		}
		printEstimate(out, est.PrincipleCount, generator.CostEstimate{
			PromptTokens:     est.PromptTokens,
			CompletionTokens: est.CompletionTokens,
			EstimatedCostUSD: est.EstimatedCostUSD,
		}, est.LimitUSD)
		if !proceed(cmd, est.WithinLimit) {
			return nil
		}

		resp, err := a.service.Generate(ctx, models.GenerateRequest{
			PrincipleIDs:          args,
			QuestionsPerPrinciple: genFlags.perPrinciple,
			Difficulty:            difficulty,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Run %s: %s\n", resp.RunID, resp.Message)
		return nil
	}

	opts := questions.BatchOptions{
		QuestionsPerPrinciple: genFlags.perPrinciple,
		Difficulty:            difficulty,
		GroupSize:             genFlags.groupSize,
		Limit:                 genFlags.limit,
		Delay:                 genFlags.delay,
	}
	missing, est, err := a.service.PlanMissing(ctx, opts)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		fmt.Fprintln(out, "Every principle already has questions.")
		return nil
	}
	limit := a.service.MaxCostUSD()
	printEstimate(out, len(missing), est, limit)
	if !proceed(cmd, limit == 0 || est.EstimatedCostUSD <= limit) {
		return nil
	}

	resp, err := a.service.GenerateMissing(ctx, opts)
	if resp != nil {
		printBatch(out, resp)
	}
	if err != nil {
		return err
	}
	if resp.GroupsFailed > 0 {
		return fmt.Errorf("%d of %d groups failed", resp.GroupsFailed, resp.Groups)
	}
	return nil
}

// proceed reports whether generation should start. An estimate over the
// limit never proceeds.
func proceed(cmd *cobra.Command, withinLimit bool) bool {
	if !withinLimit {
		fmt.Fprintln(cmd.OutOrStdout(), "Estimated cost is over the limit; nothing was generated.")
		return false
	}
	if genFlags.yes {
		return true
	}
	if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Proceed with generation?") {
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return false
	}
	return true
}

func printBatch(out io.Writer, resp *models.BatchGenerateResponse) {
	fmt.Fprintf(out, "Groups:          %d (%d failed, %d fallback)\n", resp.Groups, resp.GroupsFailed, resp.FallbackGroups)
	fmt.Fprintf(out, "Questions saved: %d\n", resp.QuestionsSaved)
	for _, e := range resp.Errors {
		fmt.Fprintf(out, "  error: %s\n", e)
	}
}
