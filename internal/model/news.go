package model

import "time"

// Article is a single news item returned by the news provider.
type Article struct {
	Title       string
	Description string
	URL         string
	Source      string
	PublishedAt time.Time
}

// SentimentSummary counts polar articles in a batch. Neutral articles are
// not counted.
type SentimentSummary struct {
	Positive int
	Negative int
}
