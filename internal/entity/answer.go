package entity

import (
	"math"
	"strings"
	"time"
)

// RefusalSentence is emitted when the retrieved context cannot ground an answer.
// Telemetry and clients match it verbatim, so the wording must not change.
const RefusalSentence = "I cannot answer this based on the provided medical reference."

// Timing holds per-stage latency in seconds rounded to milliseconds.
type Timing struct {
	RetrievalTime  float64 `json:"retrieval_time"`
	GenerationTime float64 `json:"generation_time"`
	TotalTime      float64 `json:"total_time"`
}

// NewTiming rounds both stage durations and sums them. TotalTime deliberately
// excludes any overhead outside the two measured stages.
func NewTiming(retrieval, generation time.Duration) Timing {
	r := RoundSeconds(retrieval.Seconds())
	g := RoundSeconds(generation.Seconds())

	return Timing{
		RetrievalTime:  r,
		GenerationTime: g,
		TotalTime:      RoundSeconds(r + g),
	}
}

// RoundSeconds rounds to 3 decimals and clamps negatives to zero.
func RoundSeconds(seconds float64) float64 {
	if seconds < 0 {
		return 0
	}
	return math.Round(seconds*1000) / 1000
}

// AnswerResult is the outcome of one grounded question.
type AnswerResult struct {
	Answer           string   `json:"answer"`
	Sources          []Source `json:"sources"`
	Timing           Timing   `json:"timing"`
	RetrievalPreview []string `json:"retrieval_preview,omitempty"`
	Refused          bool     `json:"refused"`

	// Passages used to build the context, kept for in-process evaluation.
	Passages []Passage `json:"-"`
}

// IsRefusal reports whether the answer carries the refusal sentence.
func IsRefusal(answer string) bool {
	return strings.Contains(answer, RefusalSentence)
}
