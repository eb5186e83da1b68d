package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/principlequiz/backend/internal/config"
	"github.com/principlequiz/backend/internal/database"
	"github.com/principlequiz/backend/internal/generator"
	"github.com/principlequiz/backend/internal/llm"
	"github.com/principlequiz/backend/internal/principles"
	"github.com/principlequiz/backend/internal/questions"
)

var rootCmd = &cobra.Command{
	Use:   "quizctl",
	Short: "quizctl - manage principles and generate quiz questions",
	Long: `quizctl seeds the principle catalogue and drives question generation
against the configured completion provider.

Commands:
  seed        Load principles from a YAML file
  estimate    Show the projected cost of a generation run
  generate    Generate questions for principles
  stats       Show question bank statistics

Configuration comes from the environment (and .env when present), the same
variables the API server reads.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the dependencies a command needs. Commands that never talk to the
// completion provider leave service nil.
type app struct {
	cfg        *config.Config
	db         *sql.DB
	principles *principles.Store
	service    *questions.Service
}

type appOptions struct {
	withGenerator bool
	retries       int
	maxCostUSD    float64
	groupSize     int
}

func openApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	a := &app{cfg: cfg, db: db, principles: principles.NewStore(db)}
	if !opts.withGenerator {
		return a, nil
	}

	gen, err := newGenerator(ctx, cfg, opts.retries)
	if err != nil {
		db.Close()
		return nil, err
	}

	svcCfg := questions.ServiceConfig{MaxCostUSD: cfg.MaxCostUSD, GroupSize: cfg.GroupSize}
	if opts.maxCostUSD > 0 {
		svcCfg.MaxCostUSD = opts.maxCostUSD
	}
	if opts.groupSize > 0 {
		svcCfg.GroupSize = opts.groupSize
	}
	a.service = questions.NewService(questions.NewStore(db), a.principles, gen, svcCfg)
	return a, nil
}

func newGenerator(ctx context.Context, cfg *config.Config, retries int) (*generator.Generator, error) {
	client, err := llm.NewClient(ctx, cfg.LLM.Client)
	if err != nil {
		return nil, err
	}
	if retries > 1 {
		rc := llm.DefaultRetryConfig()
		rc.MaxAttempts = retries
		client = llm.WithRetry(client, rc)
	}
	return generator.New(generator.Config{
		Client:      client,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
}

func (a *app) Close() error {
	return a.db.Close()
}

// confirm asks a yes/no question and treats anything but y/yes as no.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
