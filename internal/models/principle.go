package models

import "time"

type PrincipleType string

const (
	PrincipleLaw       PrincipleType = "law"
	PrincipleBias      PrincipleType = "cognitive_bias"
	PrincipleHeuristic PrincipleType = "heuristic"
)

var ValidPrincipleTypes = map[PrincipleType]bool{
	PrincipleLaw:       true,
	PrincipleBias:      true,
	PrincipleHeuristic: true,
}

// Principle is a single taxonomy entry (UX law, cognitive bias or heuristic)
// that quiz questions are written about.
type Principle struct {
	ID         string        `json:"id" yaml:"id"`
	Title      string        `json:"title" yaml:"title"`
	Type       PrincipleType `json:"type" yaml:"type"`
	OneLiner   string        `json:"oneLiner" yaml:"oneLiner"`
	Definition string        `json:"definition" yaml:"definition"`
	Category   string        `json:"category" yaml:"category"`
	Tags       []string      `json:"tags" yaml:"tags"`
	CreatedAt  time.Time     `json:"createdAt" yaml:"-"`
	UpdatedAt  time.Time     `json:"updatedAt" yaml:"-"`
}

type PrincipleFilter struct {
	Type     *PrincipleType
	Category string
}

type PrincipleListResponse struct {
	Principles []Principle `json:"principles"`
	Total      int         `json:"total"`
}
