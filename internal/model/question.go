package model

// VariableType classifies what kind of quantity a forecasting question
// resolves to.
type VariableType string

const (
	VariableBinary     VariableType = "binary"     // yes/no outcome
	VariableCount      VariableType = "count"      // discrete event count
	VariableContinuous VariableType = "continuous" // real-valued quantity
)

// ParseVariableType maps oracle output onto a known VariableType.
// Unrecognized values fall back to continuous; the caller decides
// whether that deserves a warning.
func ParseVariableType(s string) (VariableType, bool) {
	switch VariableType(s) {
	case VariableBinary, VariableCount, VariableContinuous:
		return VariableType(s), true
	default:
		return VariableContinuous, false
	}
}

// Question is the clarified form of a raw forecasting question.
// It is created once by the clarifier and treated as immutable by
// every downstream stage.
type Question struct {
	OriginalText   string       `json:"original_question"`
	Reasoning      string       `json:"reasoning"`
	ResolutionRule string       `json:"resolution_rule"`
	EndDate        string       `json:"end_date"`
	VariableType   VariableType `json:"variable_type"`
	ClarifiedText  string       `json:"clarified_question"`
}

// ReferenceClassItem is a single candidate reference class with the
// oracle's justification for proposing it.
type ReferenceClassItem struct {
	Reasoning      string `json:"reasoning"`
	ReferenceClass string `json:"reference_class"`
}
