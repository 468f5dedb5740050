package domain

// RetrievedChunk is a chunk returned from a similarity query together with
// its relevance score in [0,1].
type RetrievedChunk struct {
	Text  string
	Score float64
}

// Answer is the result of synthesizing a single question against retrieved
// context. Confidence is nil when the model output did not carry a usable
// confidence estimate.
type Answer struct {
	Question   string
	Answer     string
	Sources    []string
	Confidence *float64
}

// ConfidenceValue returns a pointer to v, for building answers inline.
func ConfidenceValue(v float64) *float64 {
	return &v
}
