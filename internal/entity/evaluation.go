package entity

import "time"

type RunStatus string

const (
	RunStatusRunning  RunStatus = "RUNNING"
	RunStatusFinished RunStatus = "FINISHED"
	RunStatusFailed   RunStatus = "FAILED"
)

// EvalQuestion is one entry of an evaluation dataset.
type EvalQuestion struct {
	Question string `json:"question" yaml:"question"`
}

// EvalRun is a tracked evaluation run with its params and metrics.
type EvalRun struct {
	ID        string
	Name      string
	Status    RunStatus
	Params    map[string]string
	Metrics   map[string]float64
	StartedAt time.Time
	EndedAt   *time.Time
}

// EvalResult is the per-question record written to the results artifact.
type EvalResult struct {
	Question         string   `json:"question"`
	AnswerPreview    string   `json:"answer_preview"`
	Sources          []Source `json:"sources"`
	Timing           Timing   `json:"timing"`
	RetrievalQuality float64  `json:"retrieval_quality"`
	Refused          bool     `json:"refused"`
}
