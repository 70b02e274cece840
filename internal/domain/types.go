package domain

import "time"

// Nutrient is a single macro or micro nutrient line. Amount stays text because
// models return ranges such as "1-2" as often as plain numbers.
type Nutrient struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
}

// BodyImpact describes how the food affects one body system (Heart, Muscles,
// Brain, Energy, Digestive, ...).
type BodyImpact struct {
	System      string `json:"system"`
	Description string `json:"description"`
}

// FoodAnalysis is the result of analyzing one photo. Values are built once by
// the analysis client and only read afterwards.
type FoodAnalysis struct {
	RecognizedFood     string       `json:"recognizedFood"`
	Summary            string       `json:"summary"`
	Calories           float64      `json:"calories"`
	Macros             []Nutrient   `json:"macros"`
	Micros             []Nutrient   `json:"micros"`
	BodyImpacts        []BodyImpact `json:"bodyImpacts"`
	SmartConsumption   string       `json:"smartConsumption"`
	ImportantAwareness string       `json:"importantAwareness"`
}

// Outcome values recorded for an analysis attempt.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Attempt is the diagnostic record of one analyze call. It never carries the
// image or the analysis itself.
type Attempt struct {
	ID          string    `json:"id"`
	MediaType   string    `json:"mediaType"`
	ImageBytes  int       `json:"imageBytes"`
	Backend     string    `json:"backend"`
	Outcome     string    `json:"outcome"`
	FailureKind string    `json:"failureKind,omitempty"`
	Message     string    `json:"message,omitempty"`
	DurationMs  int64     `json:"durationMs"`
	CreatedAt   time.Time `json:"createdAt"`
}
