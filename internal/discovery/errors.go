package discovery

import "errors"

// ErrNoSources is returned when no discovery source is usable on this host.
var ErrNoSources = errors.New("discovery: no sources available")
