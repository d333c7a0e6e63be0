// Package telemetry provides InfluxDB connectivity for long-term storage of
// agent-reported metrics.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, health monitoring and non-blocking batched writes. The feature
// is optional: a fleet without an InfluxDB deployment runs with telemetry
// disabled and agent metrics live only in the in-memory registry.
//
// # Usage
//
//	client, err := telemetry.Connect(cfg.Telemetry)
//	if err != nil {
//	    // telemetry.ErrDisabled when the feature is off
//	}
//	defer client.Close()
//
//	client.WriteAgentMetric("kiosk-7", "cpu", 0.42)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// Write errors are delivered asynchronously via the SetOnError callback.
package telemetry
