package discovery

import "strings"

// Classify guesses what a device is from whatever evidence a scan gathered.
// Evidence is checked from most to least reliable: advertised services, then
// open ports, then OS detection, then the MAC vendor. First match wins.
func Classify(d Device) string {
	if t := classifyByServices(d.Services); t != "" {
		return t
	}
	if t := classifyByPorts(d.Ports); t != "" {
		return t
	}
	if t := classifyByOS(d.OS); t != "" {
		return t
	}
	if t := classifyByVendor(d.Vendor); t != "" {
		return t
	}
	return "Unknown"
}

func classifyByServices(services []ServiceInfo) string {
	if len(services) == 0 {
		return ""
	}
	has := func(substrs ...string) bool {
		for _, s := range services {
			typ := strings.ToLower(s.Type)
			for _, sub := range substrs {
				if strings.Contains(typ, sub) {
					return true
				}
			}
		}
		return false
	}
	switch {
	case has("printer", "ipp"):
		return "Printer"
	case has("airplay", "raop"):
		return "Media Device"
	case has("smb", "afp"):
		return "File Server"
	case has("http"):
		return "Web Server"
	}
	return ""
}

func classifyByPorts(ports []PortInfo) string {
	if len(ports) == 0 {
		return ""
	}
	open := make(map[int]bool, len(ports))
	var sshService, printerService bool
	for _, p := range ports {
		open[p.Port] = true
		service := strings.ToLower(p.Service)
		if strings.Contains(service, "ssh") {
			sshService = true
		}
		if strings.Contains(service, "printer") {
			printerService = true
		}
	}
	switch {
	case open[3389]:
		return "Windows PC"
	case open[5900]:
		return "VNC Server"
	case open[22] && sshService:
		return "Linux/Unix Server"
	case open[80] || open[443]:
		return "Web Server"
	case printerService:
		return "Printer"
	}
	return ""
}

func classifyByOS(osName string) string {
	if osName == "" {
		return ""
	}
	lower := strings.ToLower(osName)
	switch {
	case strings.Contains(lower, "windows"):
		return "Windows PC"
	case strings.Contains(lower, "linux"):
		return "Linux Device"
	case strings.Contains(lower, "mac"), strings.Contains(lower, "darwin"):
		return "Mac"
	case strings.Contains(lower, "ios"):
		return "iOS Device"
	case strings.Contains(lower, "android"):
		return "Android Device"
	}
	return ""
}

func classifyByVendor(vendor string) string {
	if vendor == "" {
		return ""
	}
	lower := strings.ToLower(vendor)
	switch {
	case strings.Contains(lower, "raspberry"):
		return "Raspberry Pi"
	case strings.Contains(lower, "apple"):
		return "Apple Device"
	case strings.Contains(lower, "samsung"):
		return "Samsung Device"
	case strings.Contains(lower, "cisco"):
		return "Network Device"
	case strings.Contains(lower, "tp-link"), strings.Contains(lower, "d-link"):
		return "Router/Switch"
	case strings.Contains(lower, "vmware"), strings.Contains(lower, "virtualbox"):
		return "Virtual Machine"
	}
	return ""
}
