// Package jsonstore persists small JSON documents to a state directory.
//
// kioskd keeps three independent records on disk: the global kiosk
// configuration, the per-address override map, and the poll-agent registry.
// Each is a single whole-document JSON file, rewritten atomically on every
// save (temp file + rename) so a crash mid-write never corrupts the record.
//
// Callers treat a missing document as "use defaults" via errors.Is with
// ErrNotFound; a corrupt document surfaces as a parse error the caller logs
// and recovers from. Neither condition is fatal at startup.
package jsonstore
