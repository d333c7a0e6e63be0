package discovery

import (
	"context"
	"time"
)

// Mode selects how invasive a scan is.
type Mode string

const (
	// ModeFast browses mDNS briefly, reads the ARP table and ping-scans.
	ModeFast Mode = "fast"
	// ModeDetailed adds OS and service-version detection on common ports.
	ModeDetailed Mode = "detailed"
	// ModeAggressive runs a full nmap -A scan over a wide port range.
	ModeAggressive Mode = "aggressive"
)

// Request describes one scan.
type Request struct {
	Mode   Mode
	Subnet string // CIDR; empty uses the configured default
	Ports  string // nmap port expression; empty uses the mode default
}

// PortInfo is one open port found on a device.
type PortInfo struct {
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
	Service  string `json:"service"`
	Version  string `json:"version,omitempty"`
}

// ServiceInfo is one advertised mDNS service.
type ServiceInfo struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Port     int    `json:"port"`
	Protocol string `json:"protocol,omitempty"`
}

// Device is the merged view of one discovered host.
type Device struct {
	IP         string        `json:"ip"`
	MAC        string        `json:"mac,omitempty"`
	Hostname   string        `json:"hostname,omitempty"`
	Name       string        `json:"name,omitempty"`
	Vendor     string        `json:"vendor,omitempty"`
	OS         string        `json:"os,omitempty"`
	OSAccuracy int           `json:"osAccuracy,omitempty"`
	Ports      []PortInfo    `json:"ports,omitempty"`
	Services   []ServiceInfo `json:"services,omitempty"`
	DeviceType string        `json:"deviceType,omitempty"`
	Sources    []string      `json:"sources,omitempty"`
}

// Result is the outcome of one scan.
type Result struct {
	Devices      []Device `json:"devices"`
	ScanMode     Mode     `json:"scanMode"`
	ScanTimeMS   int64    `json:"scanTime"`
	Methods      []string `json:"methods"`
	TotalDevices int      `json:"totalDevices"`
}

// HostReport is the outcome of a detailed single-host scan.
type HostReport struct {
	Device
	ScannedAt time.Time `json:"scannedAt"`
}

// Interface describes one local non-loopback IPv4 interface.
type Interface struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Netmask string `json:"netmask"`
	CIDR    string `json:"cidr"`
	MAC     string `json:"mac,omitempty"`
}

// Source is one way of finding devices. Implementations must honour ctx;
// the aggregator abandons sources that do not return before its deadline.
type Source interface {
	Name() string
	Discover(ctx context.Context, req Request) ([]Device, error)
}
