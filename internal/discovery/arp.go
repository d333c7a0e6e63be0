package discovery

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// arpSource reads the kernel's ARP table via the arp command. Cheap and
// universally available, but only sees hosts the machine has talked to
// recently, and never knows hostnames.
type arpSource struct{}

func (arpSource) Name() string { return "arp" }

func (arpSource) Discover(ctx context.Context, _ Request) ([]Device, error) {
	out, err := exec.CommandContext(ctx, "arp", "-a").Output()
	if err != nil {
		return nil, fmt.Errorf("running arp: %w", err)
	}
	return ParseARPTable(string(out)), nil
}

// ARP table line formats differ per platform:
//
//	Windows: "  192.168.0.1          aa-bb-cc-dd-ee-ff     dynamic"
//	Unix:    "? (192.168.0.1) at aa:bb:cc:dd:ee:ff [ether] on en0"
var (
	arpWindowsRe = regexp.MustCompile(`\s*(\d+\.\d+\.\d+\.\d+)\s+([0-9a-fA-F:\-]{11,17})\s+\w+`)
	arpUnixRe    = regexp.MustCompile(`\((\d+\.\d+\.\d+\.\d+)\)\s+at\s+([0-9a-fA-F:]{17})`)
)

// ParseARPTable extracts devices from arp -a output, in either platform
// format, dropping broadcast, multicast, loopback and network addresses.
// Duplicate IPs keep the last entry seen.
func ParseARPTable(text string) []Device {
	seen := make(map[string]int)
	var devices []Device

	for _, line := range strings.Split(text, "\n") {
		var ip, mac string
		if m := arpUnixRe.FindStringSubmatch(line); m != nil {
			ip, mac = m[1], NormalizeMAC(m[2])
		} else if m := arpWindowsRe.FindStringSubmatch(line); m != nil {
			ip, mac = m[1], NormalizeMAC(m[2])
		} else {
			continue
		}
		if !validDeviceAddress(ip, mac) {
			continue
		}

		d := Device{IP: ip, MAC: mac}
		if idx, ok := seen[ip]; ok {
			devices[idx] = d
		} else {
			seen[ip] = len(devices)
			devices = append(devices, d)
		}
	}
	return devices
}

// NormalizeMAC lowercases a MAC address and converts Windows dashes to colons.
func NormalizeMAC(mac string) string {
	return strings.ToLower(strings.ReplaceAll(mac, "-", ":"))
}

// validDeviceAddress filters entries that cannot be real, reachable devices.
func validDeviceAddress(ip, mac string) bool {
	if ip == "" || mac == "" {
		return false
	}
	if mac == "ff:ff:ff:ff:ff:ff" {
		return false
	}
	// Multicast MACs have the least significant bit of the first octet set.
	if first, err := strconv.ParseUint(mac[:2], 16, 8); err != nil || first&0x01 != 0 {
		return false
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	v4 := parsed.To4()
	if v4 == nil {
		return false
	}
	// Network and subnet-broadcast addresses.
	if v4[3] == 0 || v4[3] == 255 {
		return false
	}
	if parsed.IsMulticast() || parsed.IsLoopback() {
		return false
	}
	return true
}
