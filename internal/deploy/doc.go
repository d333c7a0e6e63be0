// Package deploy pushes the kiosk client onto fleet machines over SSH.
//
// There is no agent on the far side to talk to yet, so this is plain SSH
// plumbing: connect with password or key, stream the embedded client script
// to /tmp, then run an install command chain under sudo. Hosts are handled
// sequentially and in isolation; one unreachable machine never aborts the
// rest of the rollout.
//
// Reboot commands kill the connection that issued them, so plans can be
// marked terminal: for those, a successful connect and dispatch counts as
// success regardless of how the session ends.
package deploy
