// Package kiosk holds the display configuration served to every fleet member.
//
// A single global Config is seeded from environment defaults at startup,
// overlaid with the persisted record, and mutated only through Store.Update.
// Per-address overrides are partial configs that win field-by-field over the
// global record at serve time; they are merged (never replaced) on update.
//
// Every successful mutation is persisted synchronously and announced to the
// push-session broadcaster, so connected displays pick up changes without
// polling.
package kiosk
