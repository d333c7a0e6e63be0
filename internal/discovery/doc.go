// Package discovery finds devices on the local network by combining several
// imperfect sources: the kernel ARP table, mDNS service browsing and nmap.
//
// No single source sees everything. ARP knows MAC addresses but no names,
// mDNS knows friendly names but only for devices that advertise, nmap sees
// the most but is slow and may be absent entirely. The aggregator runs every
// available source concurrently, abandons the ones that hang, and merges the
// rest per field in a fixed priority order. A missing source degrades the
// result instead of failing the scan.
package discovery
