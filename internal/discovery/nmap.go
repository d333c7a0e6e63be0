package discovery

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/Ullaakut/nmap/v3"
)

// Mode defaults for the nmap port expression.
const (
	detailedPorts   = "22,80,443,3389,5900"
	aggressivePorts = "1-1000"
	hostScanPorts   = "22,80,443,3389,5900,8080,8443,9090"
)

// nmapSource wraps the nmap binary. The slowest source and the only one that
// needs an external tool installed, but it sees hosts that neither ARP nor
// mDNS know about and is the only path to OS and service detection.
type nmapSource struct {
	defaultSubnet     string
	timeout           time.Duration
	aggressiveTimeout time.Duration
}

func (nmapSource) Name() string { return "nmap" }

// nmapAvailable reports whether the nmap binary is on PATH.
func nmapAvailable() bool {
	_, err := exec.LookPath("nmap")
	return err == nil
}

func (s nmapSource) Discover(ctx context.Context, req Request) ([]Device, error) {
	subnet := req.Subnet
	if subnet == "" {
		subnet = s.defaultSubnet
	}

	timeout := s.timeout
	if req.Mode == ModeAggressive {
		timeout = s.aggressiveTimeout
	}
	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := []nmap.Option{nmap.WithTargets(subnet)}
	switch req.Mode {
	case ModeAggressive:
		ports := req.Ports
		if ports == "" {
			ports = aggressivePorts
		}
		opts = append(opts, nmap.WithAggressiveScan(), nmap.WithOSScanGuess(), nmap.WithPorts(ports))
	case ModeDetailed:
		ports := req.Ports
		if ports == "" {
			ports = detailedPorts
		}
		opts = append(opts,
			nmap.WithOSDetection(),
			nmap.WithOSScanGuess(),
			nmap.WithServiceInfo(),
			nmap.WithPorts(ports),
		)
	default:
		// Fast: ping sweep only, no port scan.
		opts = append(opts, nmap.WithPingScan())
	}

	scanner, err := nmap.NewScanner(scanCtx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating nmap scanner: %w", err)
	}

	run, _, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("nmap scan: %w", err)
	}
	return devicesFromNmap(run.Hosts), nil
}

// scanHost runs the detailed single-host probes: service versions on the
// common admin ports plus OS detection.
func (s nmapSource) scanHost(ctx context.Context, ip string) (Device, error) {
	scanCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	scanner, err := nmap.NewScanner(scanCtx,
		nmap.WithTargets(ip),
		nmap.WithServiceInfo(),
		nmap.WithOSDetection(),
		nmap.WithOSScanGuess(),
		nmap.WithPorts(hostScanPorts),
	)
	if err != nil {
		return Device{}, fmt.Errorf("creating nmap scanner: %w", err)
	}

	run, _, err := scanner.Run()
	if err != nil {
		return Device{}, fmt.Errorf("nmap host scan: %w", err)
	}
	devices := devicesFromNmap(run.Hosts)
	if len(devices) == 0 {
		return Device{IP: ip}, nil
	}
	return devices[0], nil
}

func devicesFromNmap(hosts []nmap.Host) []Device {
	var devices []Device
	for _, host := range hosts {
		d := Device{}
		for _, addr := range host.Addresses {
			switch addr.AddrType {
			case "ipv4":
				d.IP = addr.Addr
			case "mac":
				d.MAC = NormalizeMAC(addr.Addr)
				if addr.Vendor != "" {
					d.Vendor = cleanVendorName(addr.Vendor)
				}
			}
		}
		if d.IP == "" {
			continue
		}
		if len(host.Hostnames) > 0 {
			d.Hostname = host.Hostnames[0].Name
			d.Name = d.Hostname
		}
		if len(host.OS.Matches) > 0 {
			d.OS = host.OS.Matches[0].Name
			d.OSAccuracy = host.OS.Matches[0].Accuracy
		}
		for _, port := range host.Ports {
			if port.State.State != "open" {
				continue
			}
			d.Ports = append(d.Ports, PortInfo{
				Port:     int(port.ID),
				Protocol: port.Protocol,
				Service:  port.Service.Name,
				Version:  port.Service.Version,
			})
		}
		devices = append(devices, d)
	}
	return devices
}
