package model

import "time"

// ForecastRecord is the durable audit trail for one workflow run.
// Records are write-once: one UTF-8 JSON object per line in the
// append-only forecast log. Probability carries the raw unrounded
// value; Rounded is the two-decimal figure shown to the user.
type ForecastRecord struct {
	ID            string         `json:"id"`
	Question      Question       `json:"question"`
	BaseRates     []BaseRate     `json:"base_rates,omitempty"`
	Decomposition *Decomposition `json:"decomposition,omitempty"`
	Evidence      []EvidenceItem `json:"evidence,omitempty"`
	Probability   float64        `json:"probability"`
	Rounded       float64        `json:"rounded"`
	Rationale     string         `json:"rationale,omitempty"`
	Critique      string         `json:"critique,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}
