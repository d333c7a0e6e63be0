package kiosk

import (
	"net"
	"net/url"
)

// ValidURL reports whether raw is an acceptable display URL.
// Kiosk displays load http, https or local file URLs; anything else
// (javascript:, data:, relative paths) is rejected.
func ValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "file":
		return u.Path != ""
	default:
		return false
	}
}

// ValidAddress reports whether addr is a literal IPv4 or IPv6 address.
func ValidAddress(addr string) bool {
	return net.ParseIP(addr) != nil
}
