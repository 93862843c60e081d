package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/tya/samsungctl/internal/logging"
)

const (
	// MDNSServiceType is the Smart View service newer Samsung TVs advertise
	MDNSServiceType = "_samsungmsf._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for an mDNS scan
	DefaultScanTimeout = 5 * time.Second

	// DefaultMDNSPort is assumed when the advertisement carries no port
	DefaultMDNSPort = 8001
)

// MDNSScanner finds TVs through multicast DNS.
type MDNSScanner struct {
	// Timeout is the maximum time to wait for advertisements
	Timeout time.Duration

	logger *zap.Logger
}

// NewMDNSScanner creates a scanner with default settings
func NewMDNSScanner(logger *zap.Logger) *MDNSScanner {
	return &MDNSScanner{
		Timeout: DefaultScanTimeout,
		logger:  logging.OrNop(logger).Named("mdns"),
	}
}

// Scan browses for advertisements until the timeout expires and returns
// every candidate seen, deduplicated by IP.
func (s *MDNSScanner) Scan(ctx context.Context) ([]*Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	var (
		mu         sync.Mutex
		candidates []*Candidate
		seen       = make(map[string]bool)
		collected  = make(chan struct{})
	)
	go func() {
		defer close(collected)
		for entry := range entries {
			c := parseServiceEntry(entry)
			if c == nil {
				continue
			}
			mu.Lock()
			if !seen[c.IP] {
				seen[c.IP] = true
				candidates = append(candidates, c)
				s.logger.Debug("mDNS candidate", zap.String("name", c.Name), zap.String("ip", c.IP))
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, MDNSServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	// The resolver closes entries once the browse context ends.
	select {
	case <-collected:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]*Candidate(nil), candidates...), nil
}

// parseServiceEntry converts a zeroconf service entry to a Candidate.
// Returns nil if the entry carries no usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Candidate {
	if entry == nil {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultMDNSPort
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	name := entry.Instance
	if name == "" {
		name = strings.TrimSuffix(entry.HostName, ".")
	}

	return &Candidate{
		Name:         name,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}
