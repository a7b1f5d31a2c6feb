package domain

import "time"

// Article is a news article discovered and stored by the crawler domain.
// The enrichment pipeline only ever reads it.
type Article struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
