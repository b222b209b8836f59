package model

// AnswerResult is the output of a single question.
type AnswerResult struct {
	Answer           string          `json:"answer"`
	Confidence       ConfidenceScore `json:"confidence"`
	Sources          []Source        `json:"sources"`
	PassesGuardrails bool            `json:"passes_guardrails"`
}
