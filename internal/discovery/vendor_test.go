package discovery

import "testing"

func TestVendorForMAC(t *testing.T) {
	tests := []struct {
		mac  string
		want string
	}{
		{"b8:27:eb:aa:bb:cc", "Raspberry Pi"},
		{"B8-27-EB-AA-BB-CC", "Raspberry Pi"},
		{"00:50:56:11:22:33", "VMware"},
		{"de:ad:be:ef:00:01", "Unknown Vendor"},
		{"", "Unknown"},
		{"b8:27", "Unknown Vendor"},
	}
	for _, tt := range tests {
		if got := VendorForMAC(tt.mac); got != tt.want {
			t.Errorf("VendorForMAC(%q) = %q, want %q", tt.mac, got, tt.want)
		}
	}
}

func TestCleanVendorName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"registry entry with address", "Apple, Inc.\n1 Infinite Loop\nCupertino CA", "Apple"},
		{"corporate suffix", "Samsung Electronics Co Ltd", "Samsung"},
		{"gmbh", "AVM GmbH", "AVM"},
		{"technology descriptor", "Espressif Technologies", "Espressif"},
		{"plain name", "Cisco", "Cisco"},
		{"empty", "", "Unknown"},
		{
			"very long name truncated",
			"Shenzhen Ultra Long Manufacturer Name Factory",
			"Shenzhen Ultra Long Manufac...",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanVendorName(tt.in); got != tt.want {
				t.Errorf("cleanVendorName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
