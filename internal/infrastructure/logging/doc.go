// Package logging provides the structured logger used across kioskd.
//
// It wraps log/slog with level parsing, output/format selection, and default
// fields (service name, version). Components that want to stay decoupled from
// this package accept a minimal Logger interface instead; see the presence
// and broadcast packages for the pattern.
package logging
