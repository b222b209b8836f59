package model

// ConfidenceCategory is the three level bucket of a confidence score.
type ConfidenceCategory string

const (
	ConfidenceHigh   ConfidenceCategory = "high"
	ConfidenceMedium ConfidenceCategory = "medium"
	ConfidenceLow    ConfidenceCategory = "low"
)

// Category thresholds, inclusive lower bound.
const (
	HighConfidenceThreshold   = 0.7
	MediumConfidenceThreshold = 0.5
)

// ConfidenceScore is computed fresh for every answer.
type ConfidenceScore struct {
	Score    float64            `json:"score"`
	Category ConfidenceCategory `json:"category"`
}

// NewConfidenceScore buckets score into its category.
func NewConfidenceScore(score float64) ConfidenceScore {
	return ConfidenceScore{Score: score, Category: CategoryFor(score)}
}

// CategoryFor maps a score to high (>= 0.7), medium (>= 0.5) or low.
func CategoryFor(score float64) ConfidenceCategory {
	switch {
	case score >= HighConfidenceThreshold:
		return ConfidenceHigh
	case score >= MediumConfidenceThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
