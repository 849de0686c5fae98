package model

// BaseRateKind tags which of the three mutually exclusive field groups
// a BaseRate carries. Modeling the groups as a tagged variant keeps
// downstream code from branching on inconsistent combinations.
type BaseRateKind string

const (
	BaseRateProportion   BaseRateKind = "proportion"   // numerator/denominator/frequency
	BaseRateRate         BaseRateKind = "rate"         // Poisson lambda
	BaseRateDistribution BaseRateKind = "distribution" // median/p5/p95
)

// Distribution summarizes a continuous base rate.
type Distribution struct {
	Median float64 `json:"median"`
	P5     float64 `json:"p5"`
	P95    float64 `json:"p95"`
}

// BaseRate is the measured outside-view prior for one reference class.
// Exactly one field group is populated, selected by Kind.
type BaseRate struct {
	ReferenceClass string       `json:"reference_class"`
	Reasoning      string       `json:"reasoning"`
	Kind           BaseRateKind `json:"kind"`

	// Proportion group
	Numerator   int     `json:"numerator,omitempty"`
	Denominator int     `json:"denominator,omitempty"`
	Frequency   float64 `json:"frequency,omitempty"`

	// Rate group
	Lambda float64 `json:"lambda,omitempty"`

	// Distribution group
	Distribution *Distribution `json:"distribution,omitempty"`

	// QualityScore is the oracle's 0-1 confidence heuristic.
	QualityScore float64 `json:"quality_score,omitempty"`
}

// Prior returns the base rate as a probability when the kind admits
// one. Only proportion base rates carry a direct probability.
func (b BaseRate) Prior() (float64, bool) {
	if b.Kind == BaseRateProportion {
		return b.Frequency, true
	}
	return 0, false
}
