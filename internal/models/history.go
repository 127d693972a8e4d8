package models

import "time"

// MaxHistoryEntries is the default cap on the persisted display history.
// The novelty penalty only ever looks this far back.
const MaxHistoryEntries = 50

// DisplayHistoryEntry records one completed display: which ad was shown,
// when, and the combined score it won with. Entries are append-only and
// FIFO-evicted past the cap.
type DisplayHistoryEntry struct {
	AdID        string    `json:"ad_id"`
	DisplayedAt time.Time `json:"displayed_at"`
	Score       float64   `json:"score"`
}
