package model

// SubQuestion is a single node in a decomposition dependency graph.
// Dependencies reference the ids of other sub-questions in the same
// graph.
type SubQuestion struct {
	ID           int    `json:"id"`
	Description  string `json:"description"`
	Answer       string `json:"answer"`
	Dependencies []int  `json:"dependencies"`
}

// DecompositionStep records one decompose/solve/contract iteration for
// the audit trail.
type DecompositionStep struct {
	Question     string        `json:"question"`
	SubQuestions []SubQuestion `json:"subquestions,omitempty"`
	Depth        int           `json:"depth,omitempty"`
	Contracted   string        `json:"contracted,omitempty"`
}

// Decomposition is the full trace of the inside-view reasoning loop.
type Decomposition struct {
	Steps       []DecompositionStep `json:"steps,omitempty"`
	FinalAnswer string              `json:"final_answer,omitempty"`
}
