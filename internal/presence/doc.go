// Package presence tracks poll-based fleet agents.
//
// Agents are lightweight scripts on kiosk machines that check in over plain
// HTTP every few minutes. A check-in upserts the agent record, returns the
// display config the agent's address should be showing, and atomically drains
// any commands queued for it since the last poll.
//
// The registry is defended at three layers: a fixed-window per-address rate
// limit, a capacity cap with stale-entry eviction under pressure, and a
// bounded per-agent command queue. A background sweep removes agents that
// have gone silent for good.
package presence
