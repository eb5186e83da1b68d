package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/principlequiz/backend/internal/generator"
	"github.com/principlequiz/backend/internal/models"
)

func validFlags() generateFlags {
	return generateFlags{
		missingOnly:  true,
		perPrinciple: 5,
		difficulty:   "medium",
		retries:      1,
	}
}

func TestGenerateFlags_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*generateFlags)
		args    []string
		wantErr string
	}{
		{name: "defaults", mutate: func(*generateFlags) {}},
		{name: "explicit ids without missing-only", mutate: func(f *generateFlags) { f.missingOnly = false }, args: []string{"fitts-law"}},
		{name: "paced batch", mutate: func(f *generateFlags) { f.delay = 2 * time.Second; f.groupSize = 3; f.retries = 3 }},
		{name: "nothing selected", mutate: func(f *generateFlags) { f.missingOnly = false }, wantErr: "--missing-only"},
		{name: "zero per principle", mutate: func(f *generateFlags) { f.perPrinciple = 0 }, wantErr: "--per-principle"},
		{name: "too many per principle", mutate: func(f *generateFlags) { f.perPrinciple = generator.MaxQuestionsPerPrinciple + 1 }, wantErr: "--per-principle"},
		{name: "bad difficulty", mutate: func(f *generateFlags) { f.difficulty = "extreme" }, wantErr: "--difficulty"},
		{name: "negative group size", mutate: func(f *generateFlags) { f.groupSize = -1 }, wantErr: "--group-size"},
		{name: "negative delay", mutate: func(f *generateFlags) { f.delay = -time.Second }, wantErr: "--delay"},
		{name: "zero retries", mutate: func(f *generateFlags) { f.retries = 0 }, wantErr: "--retries"},
		{name: "negative max cost", mutate: func(f *generateFlags) { f.maxCost = -0.5 }, wantErr: "--max-cost"},
		{name: "negative limit", mutate: func(f *generateFlags) { f.limit = -2 }, wantErr: "--limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFlags()
			tt.mutate(&f)
			err := f.validate(tt.args)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfirm(t *testing.T) {
	for input, want := range map[string]bool{
		"y\n":     true,
		"YES\n":   true,
		" yes \n": true,
		"n\n":     false,
		"\n":      false,
		"":        false,
		"y":       true,
		"maybe\n": false,
	} {
		var out bytes.Buffer
		got := confirm(strings.NewReader(input), &out, "Go?")
		assert.Equal(t, want, got, "input %q", input)
		assert.Equal(t, "Go? [y/N]: ", out.String())
	}
}

func TestPrintEstimate(t *testing.T) {
	var out bytes.Buffer
	printEstimate(&out, 2, generator.EstimateForCount(2, 5), 0.01)

	s := out.String()
	assert.Contains(t, s, "Principles:        2")
	assert.Contains(t, s, "Prompt tokens:     400")
	assert.Contains(t, s, "Completion tokens: 1500")
	assert.Contains(t, s, "OVER LIMIT")
}

func TestPrintBatch(t *testing.T) {
	var out bytes.Buffer
	printBatch(&out, &models.BatchGenerateResponse{
		Groups:         3,
		GroupsFailed:   1,
		FallbackGroups: 1,
		QuestionsSaved: 20,
		Errors:         []string{"group 2: boom"},
	})

	s := out.String()
	assert.Contains(t, s, "Groups:          3 (1 failed, 1 fallback)")
	assert.Contains(t, s, "Questions saved: 20")
	assert.Contains(t, s, "error: group 2: boom")
}
