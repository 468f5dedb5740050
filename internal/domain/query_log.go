package domain

import "time"

// QueryLog records one answered question for evaluation and auditing.
type QueryLog struct {
	ID               string
	DocumentURL      string
	Question         string
	Answer           string
	Sources          []string
	Confidence       *float64
	ProcessingTimeMs int64
	RequestID        string
	CreatedAt        time.Time
}
