package ingest

import "errors"

// ErrDataUnavailable is returned when a feed is missing, unreadable, stale,
// or holds no complete record. Callers degrade to neutral defaults instead
// of aborting the decision cycle.
var ErrDataUnavailable = errors.New("feed data unavailable")
