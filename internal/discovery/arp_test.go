package discovery

import "testing"

func TestParseARPTableUnixFormat(t *testing.T) {
	out := `? (192.168.0.1) at aa:bb:cc:dd:ee:01 [ether] on en0
? (192.168.0.20) at AA:BB:CC:DD:EE:02 [ether] on en0
? (192.168.0.255) at ff:ff:ff:ff:ff:ff [ether] on en0
? (224.0.0.251) at 01:00:5e:00:00:fb [ether] on en0
`
	devices := ParseARPTable(out)

	if len(devices) != 2 {
		t.Fatalf("parsed %d devices, want 2: %+v", len(devices), devices)
	}
	if devices[0].IP != "192.168.0.1" || devices[0].MAC != "aa:bb:cc:dd:ee:01" {
		t.Errorf("device 0 = %+v", devices[0])
	}
	// MACs are normalised to lowercase.
	if devices[1].MAC != "aa:bb:cc:dd:ee:02" {
		t.Errorf("device 1 MAC = %q", devices[1].MAC)
	}
}

func TestParseARPTableWindowsFormat(t *testing.T) {
	out := "Interface: 192.168.0.10 --- 0xb\r\n" +
		"  Internet Address      Physical Address      Type\r\n" +
		"  192.168.0.1           aa-bb-cc-dd-ee-01     dynamic\r\n" +
		"  192.168.0.22          aa-bb-cc-dd-ee-03     dynamic\r\n" +
		"  192.168.0.255         ff-ff-ff-ff-ff-ff     static\r\n" +
		"  239.255.255.250       01-00-5e-7f-ff-fa     static\r\n"

	devices := ParseARPTable(out)

	if len(devices) != 2 {
		t.Fatalf("parsed %d devices, want 2: %+v", len(devices), devices)
	}
	// Dashes become colons.
	if devices[0].MAC != "aa:bb:cc:dd:ee:01" {
		t.Errorf("device 0 MAC = %q", devices[0].MAC)
	}
}

func TestParseARPTableDeduplicatesByIP(t *testing.T) {
	out := `? (192.168.0.5) at aa:bb:cc:dd:ee:01 [ether] on en0
? (192.168.0.5) at aa:bb:cc:dd:ee:02 [ether] on en1
`
	devices := ParseARPTable(out)
	if len(devices) != 1 {
		t.Fatalf("parsed %d devices, want 1", len(devices))
	}
	if devices[0].MAC != "aa:bb:cc:dd:ee:02" {
		t.Errorf("duplicate IP should keep last entry, got %q", devices[0].MAC)
	}
}

func TestValidDeviceAddress(t *testing.T) {
	tests := []struct {
		name string
		ip   string
		mac  string
		want bool
	}{
		{"normal host", "192.168.0.20", "aa:bb:cc:dd:ee:ff", true},
		{"broadcast mac", "192.168.0.20", "ff:ff:ff:ff:ff:ff", false},
		{"multicast mac", "192.168.0.20", "01:00:5e:00:00:fb", false},
		{"network address", "192.168.0.0", "aa:bb:cc:dd:ee:ff", false},
		{"subnet broadcast", "192.168.0.255", "aa:bb:cc:dd:ee:ff", false},
		{"multicast ip", "224.0.0.251", "aa:bb:cc:dd:ee:ff", false},
		{"loopback", "127.0.0.1", "aa:bb:cc:dd:ee:ff", false},
		{"missing mac", "192.168.0.20", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validDeviceAddress(tt.ip, tt.mac); got != tt.want {
				t.Errorf("validDeviceAddress(%q, %q) = %v, want %v", tt.ip, tt.mac, got, tt.want)
			}
		})
	}
}
