package model

// EvidenceItem is one piece of evidence bearing on a question.
// LikelihoodRatio is the factor by which the item multiplies prior
// odds; zero means the item is non-informative and is skipped by the
// updater. Items live only for the duration of one workflow run.
type EvidenceItem struct {
	Description     string  `json:"description"`
	LikelihoodRatio float64 `json:"likelihood_ratio,omitempty"`
}

// Informative reports whether the item carries a usable likelihood
// ratio. Ratios must be strictly positive to be meaningful in odds
// space.
func (e EvidenceItem) Informative() bool {
	return e.LikelihoodRatio > 0
}
