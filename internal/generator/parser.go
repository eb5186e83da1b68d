package generator

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// GeneratedQuestion is a question that passed validation: a non-empty
// question, four distinct non-empty options and a CorrectAnswer in [0,3].
type GeneratedQuestion struct {
	PrincipleID   string   `json:"principleId"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Rejection describes why one candidate was dropped.
type Rejection struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (r Rejection) String() string {
	if r.Field == "" {
		return fmt.Sprintf("candidate %d: %s", r.Index, r.Reason)
	}
	return fmt.Sprintf("candidate %d: %s: %s", r.Index, r.Field, r.Reason)
}

// ParseResult holds the questions that survived validation and the
// diagnostics for those that did not.
type ParseResult struct {
	Questions  []GeneratedQuestion
	Rejected   []Rejection
	Candidates int
}

// ParseError is returned when the reply as a whole is unusable: it is not JSON
// or has no questions array.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return "parse response: " + e.Reason
	}
	return fmt.Sprintf("parse response: %s: %v", e.Reason, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

const envelopeSchemaURL = "schema://question-envelope.json"

var envelopeSchema = map[string]any{
	"type":     "object",
	"required": []any{"questions"},
	"properties": map[string]any{
		"questions": map[string]any{"type": "array"},
	},
}

var compileEnvelope = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(envelopeSchemaURL, envelopeSchema); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	return c.Compile(envelopeSchemaURL)
})

// ParseResponse decodes a completion reply. Invalid candidates are dropped and
// reported in ParseResult.Rejected; only an unusable envelope is an error.
func ParseResponse(raw string) (*ParseResult, error) {
	cleaned := stripCodeFences(raw)

	// Prose is trimmed only when the reply is not already JSON, so a JSON
	// value of the wrong shape still fails the envelope check below.
	doc, err := decodeJSON(cleaned)
	if err != nil {
		var extractErr error
		if doc, extractErr = decodeJSON(extractObject(cleaned)); extractErr != nil {
			return nil, &ParseError{Reason: "response is not valid JSON", Err: err}
		}
	}

	schema, err := compileEnvelope()
	if err != nil {
		return nil, fmt.Errorf("compile envelope schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, &ParseError{Reason: "response has no questions array", Err: err}
	}

	candidates := doc.(map[string]any)["questions"].([]any)
	result := &ParseResult{
		Questions:  make([]GeneratedQuestion, 0, len(candidates)),
		Candidates: len(candidates),
	}

	for i, c := range candidates {
		q, rej := validateCandidate(i, c)
		if rej != nil {
			log.Printf("WARN: rejected generated question: %s", rej)
			result.Rejected = append(result.Rejected, *rej)
			continue
		}
		result.Questions = append(result.Questions, q)
	}

	return result, nil
}

func validateCandidate(index int, candidate any) (GeneratedQuestion, *Rejection) {
	reject := func(field, reason string) (GeneratedQuestion, *Rejection) {
		return GeneratedQuestion{}, &Rejection{Index: index, Field: field, Reason: reason}
	}

	fields, ok := candidate.(map[string]any)
	if !ok {
		return reject("", "candidate is not an object")
	}

	question, ok := nonEmptyString(fields["question"])
	if !ok {
		return reject("question", "must be a non-empty string")
	}

	rawOptions, ok := fields["options"].([]any)
	if !ok {
		return reject("options", "must be an array")
	}
	if len(rawOptions) != 4 {
		return reject("options", fmt.Sprintf("expected 4 options, got %d", len(rawOptions)))
	}
	options := make([]string, 4)
	seen := make(map[string]bool, 4)
	for j, o := range rawOptions {
		text, ok := nonEmptyString(o)
		if !ok {
			return reject("options", fmt.Sprintf("option %d must be a non-empty string", j))
		}
		key := strings.ToLower(text)
		if seen[key] {
			return reject("options", fmt.Sprintf("option %d duplicates another option", j))
		}
		seen[key] = true
		options[j] = text
	}

	num, ok := fields["correctAnswer"].(json.Number)
	if !ok {
		return reject("correctAnswer", "must be a number")
	}
	n, err := num.Float64()
	if err != nil || n != math.Trunc(n) || n < 0 || n > 3 {
		return reject("correctAnswer", fmt.Sprintf("%s is not an index in [0,3]", num))
	}

	principleID, ok := nonEmptyString(fields["principleId"])
	if !ok {
		return reject("principleId", "must be a non-empty string")
	}

	// Optional; a non-string explanation is ignored.
	explanation, _ := fields["explanation"].(string)

	return GeneratedQuestion{
		PrincipleID:   principleID,
		Question:      question,
		Options:       options,
		CorrectAnswer: int(n),
		Explanation:   strings.TrimSpace(explanation),
	}, nil
}

// decodeJSON keeps numbers as json.Number so one out-of-range value only
// disqualifies its own candidate.
func decodeJSON(s string) (any, error) {
	return jsonschema.UnmarshalJSON(strings.NewReader(s))
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

// extractObject trims any prose around the outermost JSON object.
func extractObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
