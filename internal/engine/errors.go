package engine

import "errors"

// ErrEmptyCatalog is returned when no ads exist to select from. The caller
// sees an explicit failure rather than a silent nil decision.
var ErrEmptyCatalog = errors.New("ad catalog is empty")
