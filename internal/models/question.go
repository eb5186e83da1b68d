package models

import "time"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var ValidDifficulties = map[Difficulty]bool{
	DifficultyEasy:   true,
	DifficultyMedium: true,
	DifficultyHard:   true,
}

type QuestionSource string

const (
	SourceAI       QuestionSource = "ai"
	SourceFallback QuestionSource = "fallback"
)

type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunGenerating RunStatus = "generating"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// ── Core Structs ───────────────────────────────────────

// Question is a persisted quiz question. Options always holds four entries
// and CorrectAnswer indexes into it.
type Question struct {
	ID            string         `json:"id"`
	PrincipleID   string         `json:"principleId"`
	RunID         *string        `json:"runId,omitempty"`
	Question      string         `json:"question"`
	Options       []string       `json:"options"`
	CorrectAnswer int            `json:"correctAnswer"`
	Explanation   string         `json:"explanation,omitempty"`
	Difficulty    Difficulty     `json:"difficulty"`
	Source        QuestionSource `json:"source"`
	CreatedAt     time.Time      `json:"createdAt"`
}

type GenerationRun struct {
	ID                 string     `json:"id"`
	Status             RunStatus  `json:"status"`
	Difficulty         Difficulty `json:"difficulty"`
	PrincipleCount     int        `json:"principleCount"`
	QuestionsRequested int        `json:"questionsRequested"`
	QuestionsSaved     int        `json:"questionsSaved"`
	QuestionsRejected  int        `json:"questionsRejected"`
	UsedFallback       bool       `json:"usedFallback"`
	ModelUsed          string     `json:"modelUsed,omitempty"`
	PromptTokens       int        `json:"promptTokens"`
	OutputTokens       int        `json:"outputTokens"`
	EstimatedCostUSD   float64    `json:"estimatedCostUsd"`
	ActualCostUSD      *float64   `json:"actualCostUsd,omitempty"`
	GenerationTimeMs   int64      `json:"generationTimeMs"`
	ErrorMessage       *string    `json:"errorMessage,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
}

// ── Request Types ─────────────────────────────────────

type GenerateRequest struct {
	PrincipleIDs          []string   `json:"principleIds"`
	QuestionsPerPrinciple int        `json:"questionsPerPrinciple"`
	Difficulty            Difficulty `json:"difficulty"`
}

type EstimateRequest struct {
	PrincipleIDs          []string `json:"principleIds"`
	PrincipleCount        int      `json:"principleCount"`
	QuestionsPerPrinciple int      `json:"questionsPerPrinciple"`
}

// ── Response Types ────────────────────────────────────

type GenerateResponse struct {
	RunID             string     `json:"runId"`
	Status            RunStatus  `json:"status"`
	QuestionsSaved    int        `json:"questionsSaved"`
	QuestionsRejected int        `json:"questionsRejected"`
	UsedFallback      bool       `json:"usedFallback"`
	Questions         []Question `json:"questions"`
	Message           string     `json:"message"`
}

type EstimateResponse struct {
	PrincipleCount        int     `json:"principleCount"`
	QuestionsPerPrinciple int     `json:"questionsPerPrinciple"`
	PromptTokens          int     `json:"promptTokens"`
	CompletionTokens      int     `json:"completionTokens"`
	EstimatedCostUSD      float64 `json:"estimatedCostUsd"`
	WithinLimit           bool    `json:"withinLimit"`
	LimitUSD              float64 `json:"limitUsd,omitempty"`
}

type QuestionListResponse struct {
	Questions []Question `json:"questions"`
	Total     int        `json:"total"`
}

type BatchGenerateResponse struct {
	Groups         int      `json:"groups"`
	GroupsFailed   int      `json:"groupsFailed"`
	QuestionsSaved int      `json:"questionsSaved"`
	FallbackGroups int      `json:"fallbackGroups"`
	RunIDs         []string `json:"runIds"`
	Errors         []string `json:"errors,omitempty"`
}

// ── Admin Types ───────────────────────────────────────

type QuestionStats struct {
	TotalPrinciples          int            `json:"totalPrinciples"`
	PrinciplesWithQuestions  int            `json:"principlesWithQuestions"`
	TotalQuestions           int            `json:"totalQuestions"`
	BySource                 map[string]int `json:"bySource"`
	ByDifficulty             map[string]int `json:"byDifficulty"`
	CorrectAnswerPositions   [4]int         `json:"correctAnswerPositions"`
	AvgQuestionsPerPrinciple float64        `json:"avgQuestionsPerPrinciple"`
	RunsCompleted            int            `json:"runsCompleted"`
	RunsFailed               int            `json:"runsFailed"`
	TotalCostUSD             float64        `json:"totalCostUsd"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
