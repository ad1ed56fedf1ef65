package domain

// Decision captures the outcome of classifying a single query along with the
// intermediate evidence that produced it. It exists for diagnostics and
// introspection; callers that only need the label should use the plain
// classification path.
type Decision struct {
	// Label is the predicted label for the query.
	Label Label `json:"label"`

	// Strategy names the selection strategy that produced the decision.
	Strategy string `json:"strategy"`

	// Competence holds the per-classifier competence scores, in pool order.
	Competence []int `json:"competence"`

	// Votes is the full vote sequence the label was aggregated from,
	// in pool order.
	Votes []Label `json:"votes"`

	// Fallback reports whether the uniform-weight fallback fired because no
	// classifier showed competence in the region.
	Fallback bool `json:"fallback"`
}

// BatchResult holds the labels produced for a batch of independent queries,
// aligned with the input order, plus the identifier assigned to the run.
type BatchResult struct {
	// RunID uniquely identifies this batch run for tracing and correlation.
	RunID string `json:"run_id"`

	// Labels are the predicted labels, index-aligned with the input queries.
	Labels []Label `json:"labels"`
}
