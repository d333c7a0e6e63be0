package discovery

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// hostnameResolver answers reverse-DNS lookups with a TTL cache. Scans hit
// the same handful of addresses over and over; without the cache every scan
// would wait on the same slow PTR queries.
type hostnameResolver struct {
	mu    sync.Mutex
	cache map[string]hostnameEntry

	ttl     time.Duration
	workers int

	// test hooks
	lookup  func(ctx context.Context, ip string) ([]string, error)
	nowFunc func() time.Time
}

type hostnameEntry struct {
	hostname string
	at       time.Time
}

func newHostnameResolver(ttl time.Duration, workers int) *hostnameResolver {
	if workers < 1 {
		workers = 1
	}
	return &hostnameResolver{
		cache:   make(map[string]hostnameEntry),
		ttl:     ttl,
		workers: workers,
		lookup:  net.DefaultResolver.LookupAddr,
		nowFunc: time.Now,
	}
}

// resolve returns the hostname for ip, or "" when nothing resolves.
func (r *hostnameResolver) resolve(ctx context.Context, ip string) string {
	r.mu.Lock()
	entry, ok := r.cache[ip]
	fresh := ok && r.nowFunc().Sub(entry.at) < r.ttl
	r.mu.Unlock()
	if fresh {
		return entry.hostname
	}

	names, err := r.lookup(ctx, ip)
	if err != nil || len(names) == 0 {
		return ""
	}
	hostname := strings.TrimSuffix(names[0], ".")
	if hostname == "" || hostname == ip {
		return ""
	}

	r.mu.Lock()
	r.cache[ip] = hostnameEntry{hostname: hostname, at: r.nowFunc()}
	r.mu.Unlock()
	return hostname
}

// fillHostnames resolves hostnames for devices that lack one, with bounded
// concurrency. Mutates the slice in place.
func (r *hostnameResolver) fillHostnames(ctx context.Context, devices []Device) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i := range devices {
		if devices[i].Hostname != "" {
			continue
		}
		i := i
		g.Go(func() error {
			devices[i].Hostname = r.resolve(gctx, devices[i].IP)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors
}
