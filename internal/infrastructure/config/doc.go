// Package config loads and validates the kioskd configuration.
//
// Configuration is assembled in three layers, later layers winning:
//
//  1. Hardcoded defaults (the limits and thresholds the fleet has always
//     shipped with)
//  2. YAML file values (optional; a missing file is not an error, since most
//     deployments are configured entirely through the environment)
//  3. Environment variables (KIOSK_* prefix)
//
// The loaded Config is treated as immutable after Load returns; components
// receive the sub-sections they need by value.
package config
