package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"time"

	"github.com/kioskworks/kiosk-core/internal/infrastructure/config"
)

// Aggregator runs every available discovery source and merges their results.
//
// Thread Safety: Scan, ScanHost, Resolve and Interfaces are safe to call
// concurrently; sources are stateless and the hostname cache has its own lock.
type Aggregator struct {
	sources  []Source
	resolver *hostnameResolver
	nmap     *nmapSource // nil when the binary is absent
	logger   *slog.Logger

	overallTimeout           time.Duration
	overallAggressiveTimeout time.Duration
}

// NewAggregator probes which sources are usable on this host and builds an
// aggregator around them. Source order is the merge priority order: mDNS
// first (best names), ARP second (reliable MACs), nmap last (fills the rest).
func NewAggregator(cfg config.DiscoveryConfig, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}

	a := &Aggregator{
		resolver: newHostnameResolver(
			time.Duration(cfg.HostnameCacheTTL)*time.Second,
			cfg.HostnameWorkers,
		),
		logger:                   logger,
		overallTimeout:           time.Duration(cfg.NmapTimeout+10) * time.Second,
		overallAggressiveTimeout: time.Duration(cfg.NmapAggressiveTimeout+10) * time.Second,
	}

	a.sources = append(a.sources, mdnsSource{
		fastTimeout: time.Duration(cfg.MDNSFastTimeout) * time.Second,
		slowTimeout: time.Duration(cfg.MDNSTimeout) * time.Second,
	})

	if _, err := exec.LookPath("arp"); err == nil {
		a.sources = append(a.sources, arpSource{})
	} else {
		logger.Warn("arp command not found, ARP discovery disabled")
	}

	if nmapAvailable() {
		ns := &nmapSource{
			defaultSubnet:     cfg.DefaultSubnet,
			timeout:           time.Duration(cfg.NmapTimeout) * time.Second,
			aggressiveTimeout: time.Duration(cfg.NmapAggressiveTimeout) * time.Second,
		}
		a.nmap = ns
		a.sources = append(a.sources, *ns)
	} else {
		logger.Info("nmap not found, detailed scans will degrade to ARP and mDNS")
	}

	return a
}

// Scan runs all sources for the request concurrently and merges what they
// find. A source that errors is logged and skipped; a source that hangs past
// the overall deadline is abandoned. Returns ErrNoSources only when nothing
// at all is usable on this host.
func (a *Aggregator) Scan(ctx context.Context, req Request) (Result, error) {
	if len(a.sources) == 0 {
		return Result{}, ErrNoSources
	}
	if req.Mode == "" {
		req.Mode = ModeFast
	}
	start := time.Now()

	overall := a.overallTimeout
	if req.Mode == ModeAggressive {
		overall = a.overallAggressiveTimeout
	}

	// Buffered so an abandoned source can still complete its send and exit.
	results := make(chan sourceDevices, len(a.sources))
	for _, src := range a.sources {
		src := src
		go func() {
			devices, err := src.Discover(ctx, req)
			if err != nil {
				a.logger.Warn("discovery source failed", "source", src.Name(), "error", err)
				results <- sourceDevices{method: src.Name()}
				return
			}
			results <- sourceDevices{method: src.Name(), devices: devices}
		}()
	}

	collected := make(map[string]sourceDevices, len(a.sources))
	deadline := time.NewTimer(overall)
	defer deadline.Stop()

collect:
	for i := 0; i < len(a.sources); i++ {
		select {
		case r := <-results:
			if len(r.devices) > 0 {
				collected[r.method] = r
			}
		case <-deadline.C:
			a.logger.Warn("scan deadline reached, abandoning slow sources")
			break collect
		case <-ctx.Done():
			break collect
		}
	}

	// Merge in fixed priority order regardless of completion order.
	var ordered []sourceDevices
	var methods []string
	for _, src := range a.sources {
		if r, ok := collected[src.Name()]; ok {
			ordered = append(ordered, r)
			methods = append(methods, src.Name())
		}
	}
	devices := mergeDevices(ordered)

	a.resolver.fillHostnames(ctx, devices)
	for i := range devices {
		finishDevice(&devices[i])
	}

	elapsed := time.Since(start)
	a.logger.Info("scan complete",
		"mode", req.Mode,
		"devices", len(devices),
		"methods", methods,
		"elapsed", elapsed,
	)

	if methods == nil {
		methods = []string{}
	}
	if devices == nil {
		devices = []Device{}
	}
	return Result{
		Devices:      devices,
		ScanMode:     req.Mode,
		ScanTimeMS:   elapsed.Milliseconds(),
		Methods:      methods,
		TotalDevices: len(devices),
	}, nil
}

// ScanHost runs the detailed single-host probes: MAC and vendor from the ARP
// table, then service and OS detection when nmap is present.
func (a *Aggregator) ScanHost(ctx context.Context, ip string) (HostReport, error) {
	if net.ParseIP(ip) == nil {
		return HostReport{}, fmt.Errorf("discovery: invalid host %q", ip)
	}

	report := HostReport{
		Device:    Device{IP: ip},
		ScannedAt: time.Now().UTC(),
	}

	if arpDevices, err := (arpSource{}).Discover(ctx, Request{}); err == nil {
		for _, d := range arpDevices {
			if d.IP == ip {
				report.MAC = d.MAC
				report.Vendor = VendorForMAC(d.MAC)
				break
			}
		}
	} else {
		a.logger.Warn("arp lookup failed during host scan", "host", ip, "error", err)
	}

	if a.nmap != nil {
		probed, err := a.nmap.scanHost(ctx, ip)
		if err != nil {
			a.logger.Warn("nmap host scan failed", "host", ip, "error", err)
		} else {
			if probed.Hostname != "" {
				report.Hostname = probed.Hostname
			}
			if probed.OS != "" {
				report.OS = probed.OS
				report.OSAccuracy = probed.OSAccuracy
			}
			report.Ports = probed.Ports
		}
	}

	if report.Hostname == "" {
		report.Hostname = a.resolver.resolve(ctx, ip)
	}
	finishDevice(&report.Device)
	return report, nil
}

// Resolve answers a one-off reverse lookup, through the shared cache.
func (a *Aggregator) Resolve(ctx context.Context, ip string) string {
	return a.resolver.resolve(ctx, ip)
}

// ARPTable reads and parses the local ARP table directly, bypassing the scan
// pipeline. Used by the raw table endpoint.
func (a *Aggregator) ARPTable(ctx context.Context) ([]Device, error) {
	return arpSource{}.Discover(ctx, Request{})
}

// Interfaces lists local non-loopback IPv4 interfaces.
func (a *Aggregator) Interfaces() []Interface {
	ifaces, err := net.Interfaces()
	if err != nil {
		a.logger.Warn("listing interfaces failed", "error", err)
		return []Interface{}
	}

	out := []Interface{}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			v4 := ipNet.IP.To4()
			if v4 == nil {
				continue
			}
			out = append(out, Interface{
				Name:    iface.Name,
				Address: v4.String(),
				Netmask: net.IP(ipNet.Mask).String(),
				CIDR:    ipNet.String(),
				MAC:     iface.HardwareAddr.String(),
			})
		}
	}
	return out
}

// finishDevice fills the derived fields after merging: fallback vendor from
// the OUI table, a displayable name, and the device classification.
func finishDevice(d *Device) {
	if d.MAC != "" && d.Vendor == "" {
		d.Vendor = VendorForMAC(d.MAC)
	}
	if d.Name == "" || d.Name == "Unknown Vendor" {
		switch {
		case d.Hostname != "":
			d.Name = d.Hostname
		case d.Vendor != "":
			d.Name = d.Vendor
		default:
			d.Name = "Unknown Device"
		}
	}
	if d.DeviceType == "" {
		d.DeviceType = Classify(*d)
	}
}
