package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

// commonServiceTypes covers the advertisements that actually show up on the
// office networks this runs on. Browsing everything would need the
// _services._dns-sd._udp meta-query and a second browse round; not worth it
// for a name-enrichment source.
var commonServiceTypes = []string{
	"_http._tcp",
	"_https._tcp",
	"_ipp._tcp",
	"_printer._tcp",
	"_airplay._tcp",
	"_raop._tcp",
	"_smb._tcp",
	"_afpovertcp._tcp",
	"_ssh._tcp",
	"_workstation._tcp",
	"_googlecast._tcp",
}

// browser issues one DNS-SD browse. Satisfied by *zeroconf.Resolver.
type browser interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// mdnsSource browses mDNS/DNS-SD advertisements. The only source that learns
// friendly device names without touching the network aggressively.
type mdnsSource struct {
	fastTimeout time.Duration
	slowTimeout time.Duration

	newBrowser func() (browser, error) // test hook
}

func (mdnsSource) Name() string { return "mdns" }

func (s mdnsSource) Discover(ctx context.Context, req Request) ([]Device, error) {
	timeout := s.slowTimeout
	if req.Mode == ModeFast {
		timeout = s.fastTimeout
	}
	browseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		byIP    = make(map[string]*Device)
		order   []string
		entries = make(chan *zeroconf.ServiceEntry)
		wg      sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for entry := range entries {
			if len(entry.AddrIPv4) == 0 {
				continue
			}
			ip := entry.AddrIPv4[0].String()

			mu.Lock()
			d, ok := byIP[ip]
			if !ok {
				d = &Device{
					IP:       ip,
					Name:     entry.Instance,
					Hostname: strings.TrimSuffix(entry.HostName, "."),
				}
				byIP[ip] = d
				order = append(order, ip)
			}
			d.Services = append(d.Services, ServiceInfo{
				Type: entry.Service,
				Name: entry.Instance,
				Port: entry.Port,
			})
			mu.Unlock()
		}
	}()

	newBrowser := s.newBrowser
	if newBrowser == nil {
		newBrowser = func() (browser, error) { return zeroconf.NewResolver(nil) }
	}

	var browsers sync.WaitGroup
	for _, serviceType := range commonServiceTypes {
		resolver, err := newBrowser()
		if err != nil {
			// Forwarders launched for earlier service types are still
			// sending on entries; stop their browses and drain them
			// before the channel closes.
			cancel()
			browsers.Wait()
			close(entries)
			wg.Wait()
			return nil, fmt.Errorf("creating mdns resolver: %w", err)
		}
		ch := make(chan *zeroconf.ServiceEntry)
		browsers.Add(1)
		go func(ch chan *zeroconf.ServiceEntry) {
			defer browsers.Done()
			for e := range ch {
				entries <- e
			}
		}(ch)
		// Browse closes ch when browseCtx expires.
		if err := resolver.Browse(browseCtx, serviceType, "local.", ch); err != nil {
			close(ch)
		}
	}

	browsers.Wait()
	close(entries)
	wg.Wait()

	out := make([]Device, 0, len(order))
	for _, ip := range order {
		out = append(out, *byIP[ip])
	}
	return out, nil
}
