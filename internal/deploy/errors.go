package deploy

import "errors"

// ErrNoHosts is returned when neither the request nor discovery produced any
// target addresses.
var ErrNoHosts = errors.New("deploy: no target hosts")
