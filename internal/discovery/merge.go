package discovery

// sourceDevices is one source's contribution to a scan.
type sourceDevices struct {
	method  string
	devices []Device
}

// mergeDevices folds per-source device lists into one list keyed by IP.
// Sources are applied in the order given (the aggregator's fixed priority
// order), and for each field the first non-empty value wins; later sources
// only fill gaps. The sources list records every method that saw the device.
func mergeDevices(sources []sourceDevices) []Device {
	byIP := make(map[string]*Device)
	var order []string

	for _, src := range sources {
		for _, d := range src.devices {
			if d.IP == "" {
				continue
			}
			existing, ok := byIP[d.IP]
			if !ok {
				merged := d
				merged.Sources = []string{src.method}
				byIP[d.IP] = &merged
				order = append(order, d.IP)
				continue
			}

			existing.Sources = append(existing.Sources, src.method)
			if existing.MAC == "" {
				existing.MAC = d.MAC
			}
			if existing.Hostname == "" {
				existing.Hostname = d.Hostname
			}
			if existing.Name == "" || existing.Name == "Unknown Vendor" {
				if d.Name != "" {
					existing.Name = d.Name
				}
			}
			if existing.Vendor == "" {
				existing.Vendor = d.Vendor
			}
			if existing.OS == "" {
				existing.OS = d.OS
			}
			if existing.OSAccuracy == 0 {
				existing.OSAccuracy = d.OSAccuracy
			}
			if len(existing.Ports) == 0 {
				existing.Ports = d.Ports
			}
			if len(existing.Services) == 0 {
				existing.Services = d.Services
			}
		}
	}

	out := make([]Device, 0, len(order))
	for _, ip := range order {
		out = append(out, *byIP[ip])
	}
	return out
}
