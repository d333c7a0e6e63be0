// Package api provides the HTTP surface of kioskd.
//
// It exposes the display configuration endpoints, the real-time event stream
// (SSE and WebSocket), poll-agent check-ins, LAN discovery, remote deploy and
// the static admin/display UI.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
