package presence

import "time"

// Agent is the persisted record of one poll-based fleet member.
//
// Tags and Metrics are stored as the agent reported them: scripts in the
// field send anything from flat numeric maps to label lists, so both fields
// stay opaque rather than forcing a shape on the wire.
type Agent struct {
	Key        string    `json:"key"`
	Address    string    `json:"address"`
	Hostname   string    `json:"hostname,omitempty"`
	Version    string    `json:"version,omitempty"`
	Status     string    `json:"status,omitempty"`
	Tags       any       `json:"tags,omitempty"`
	Metrics    any       `json:"metrics,omitempty"`
	CurrentURL string    `json:"currentUrl,omitempty"`
	FirstSeen  time.Time `json:"firstSeen"`
	LastSeen   time.Time `json:"lastSeen"`
	CheckIns   int       `json:"checkIns"`
}

// Report is the body of one check-in. Empty fields leave the stored record
// untouched, so a minimal agent script can report nothing but its presence.
type Report struct {
	Hostname   string `json:"hostname,omitempty"`
	Version    string `json:"version,omitempty"`
	Status     string `json:"status,omitempty"`
	Tags       any    `json:"tags,omitempty"`
	Metrics    any    `json:"metrics,omitempty"`
	CurrentURL string `json:"currentUrl,omitempty"`
}

// Command is one queued instruction delivered to an agent at its next poll.
type Command struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Payload  map[string]any `json:"payload,omitempty"`
	QueuedAt time.Time      `json:"queuedAt"`
}

// AgentInfo is an Agent plus liveness derived at read time.
type AgentInfo struct {
	Agent
	Online bool `json:"online"`
}
