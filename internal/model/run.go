package model

import "time"

// Run is a persisted story-generation run: the accepted story plus the
// derived keyword list, keyed by a generated id.
type Run struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Story     Story     `json:"story"`
	Keywords  []string  `json:"keywords"`
	CreatedAt time.Time `json:"created_at"`
}
