package discovery

import (
	"regexp"
	"strings"
)

// ouiVendors maps well-known OUI prefixes to manufacturer names. This is a
// curated subset, not the full IEEE registry: it covers the hypervisors,
// kiosk hardware and network gear actually seen in the field. nmap supplies
// fuller vendor data when it runs; this is the fallback.
var ouiVendors = map[string]string{
	"00:50:56": "VMware",
	"00:0c:29": "VMware",
	"00:05:69": "VMware",
	"00:1c:42": "VMware",
	"08:00:27": "VirtualBox",
	"00:15:5d": "Microsoft (Hyper-V)",
	"00:03:ff": "Microsoft",
	"b0:92:4a": "D-Link",
	"e8:de:27": "TP-Link",
	"50:c7:bf": "TP-Link",
	"a0:f3:c1": "TP-Link",
	"20:28:bc": "Samsung",
	"34:cd:be": "Samsung",
	"f8:d0:ac": "Samsung",
	"08:d2:3e": "LG Electronics",
	"0c:8b:fd": "Apple",
	"00:1c:b3": "Apple",
	"00:03:93": "Apple",
	"40:6c:8f": "Apple",
	"98:01:a7": "Apple",
	"ac:de:48": "Apple",
	"b8:27:eb": "Raspberry Pi",
	"dc:a6:32": "Raspberry Pi",
	"e4:5f:01": "Raspberry Pi",
	"00:1b:44": "Intel",
	"00:13:20": "Intel",
	"00:15:17": "Intel",
	"d8:9e:f3": "Intel",
	"94:c6:91": "Intel",
	"a4:bb:6d": "Intel",
	"00:50:f2": "Realtek",
	"00:e0:4c": "Realtek",
	"52:54:00": "QEMU/KVM",
	"00:16:3e": "Xen",
	"00:1a:4d": "Cisco",
	"00:0a:b8": "Cisco",
	"00:18:0a": "Cisco",
	"88:75:56": "Huawei",
	"f0:79:59": "Huawei",
	"00:1e:10": "Huawei",
}

// VendorForMAC returns the manufacturer for a MAC address's OUI prefix, or
// "Unknown Vendor" when the prefix is not in the table.
func VendorForMAC(mac string) string {
	if mac == "" {
		return "Unknown"
	}
	normalized := NormalizeMAC(mac)
	if len(normalized) < 8 {
		return "Unknown Vendor"
	}
	if vendor, ok := ouiVendors[normalized[:8]]; ok {
		return vendor
	}
	return "Unknown Vendor"
}

var (
	corporateSuffixRe = regexp.MustCompile(`(?i)\s+(Inc\.?|Corp\.?|Corporation|Ltd\.?|Limited|Co\.?,?\s*Ltd\.?|GmbH|S\.A\.?|LLC|L\.L\.C\.|PLC|AG)$`)
	descriptorRes     = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\s+Technologies?$`),
		regexp.MustCompile(`(?i)\s+Electronics?$`),
		regexp.MustCompile(`(?i)\s+International$`),
		regexp.MustCompile(`(?i)\s+Company$`),
	}
)

// cleanVendorName trims registry-style vendor strings ("Apple, Inc.\n1 Infinite
// Loop...") down to a displayable company name.
func cleanVendorName(vendor string) string {
	if vendor == "" {
		return "Unknown"
	}

	cleaned := vendor
	if idx := strings.IndexAny(cleaned, ",\n\r"); idx >= 0 {
		cleaned = cleaned[:idx]
	}
	cleaned = strings.TrimSpace(cleaned)

	cleaned = corporateSuffixRe.ReplaceAllString(cleaned, "")
	for _, re := range descriptorRes {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	cleaned = strings.TrimSpace(cleaned)

	if len(cleaned) > 30 {
		cleaned = cleaned[:27] + "..."
	}
	if cleaned == "" {
		return "Unknown"
	}
	return cleaned
}
