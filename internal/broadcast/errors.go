package broadcast

import "errors"

// ErrTooManySessions is returned by Register when the session cap is reached.
var ErrTooManySessions = errors.New("broadcast: too many sessions")
