package kiosk

import "errors"

// Domain errors for the kiosk package. Check with errors.Is.
var (
	// ErrInvalidURL is returned when a display URL is not http, https or file.
	ErrInvalidURL = errors.New("kiosk: invalid url")

	// ErrInvalidAddress is returned when an override key is not an IP address.
	ErrInvalidAddress = errors.New("kiosk: invalid address")
)
