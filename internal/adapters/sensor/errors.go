package sensor

import "errors"

// ErrReadFailed marks a transient driver failure. Callers log it and skip
// the sample; it never resets an aggregation window.
var ErrReadFailed = errors.New("sensor read failed")
