// Package broadcast fans config changes and remote actions out to connected
// display sessions.
//
// The Hub is transport-agnostic: each session registers a Sender, and the
// HTTP layer provides SSE and websocket implementations. A session that
// fails a send is removed immediately so one dead connection never stalls
// delivery to the rest. Events to a single session are delivered in the
// order they were published.
package broadcast
