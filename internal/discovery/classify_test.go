package discovery

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		device Device
		want   string
	}{
		{
			"printer by service",
			Device{Services: []ServiceInfo{{Type: "_ipp._tcp"}}},
			"Printer",
		},
		{
			"media device by airplay",
			Device{Services: []ServiceInfo{{Type: "_raop._tcp"}}},
			"Media Device",
		},
		{
			"file server by smb",
			Device{Services: []ServiceInfo{{Type: "_smb._tcp"}}},
			"File Server",
		},
		{
			"windows pc by rdp port",
			Device{Ports: []PortInfo{{Port: 3389, Service: "ms-wbt-server"}}},
			"Windows PC",
		},
		{
			"linux server by ssh",
			Device{Ports: []PortInfo{{Port: 22, Service: "ssh"}}},
			"Linux/Unix Server",
		},
		{
			"web server by port 443",
			Device{Ports: []PortInfo{{Port: 443, Service: "https"}}},
			"Web Server",
		},
		{
			"os detection",
			Device{OS: "Linux 5.4 - 5.15"},
			"Linux Device",
		},
		{
			"raspberry pi by vendor",
			Device{Vendor: "Raspberry Pi"},
			"Raspberry Pi",
		},
		{
			"virtual machine by vendor",
			Device{Vendor: "VMware"},
			"Virtual Machine",
		},
		{
			"nothing known",
			Device{IP: "192.168.0.9"},
			"Unknown",
		},
		{
			// Services outrank ports: a printer advertising a web UI stays
			// a printer.
			"services beat ports",
			Device{
				Services: []ServiceInfo{{Type: "_printer._tcp"}},
				Ports:    []PortInfo{{Port: 80, Service: "http"}},
			},
			"Printer",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.device); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
