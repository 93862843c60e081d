package discovery

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/tya/samsungctl/internal/logging"
)

const (
	// DefaultSearchTimeout bounds a whole discovery run
	DefaultSearchTimeout = 5 * time.Second

	// DefaultRoundTimeout is how long a listener waits before searching again
	DefaultRoundTimeout = 3 * time.Second

	// DefaultRepeats is how many times each M-SEARCH is sent per round
	DefaultRepeats = 5

	multicastTTL = 3
)

// ErrNoInterfaces is returned when there is no local address to search from.
var ErrNoInterfaces = errors.New("no usable IPv4 interface for discovery")

// Mode selects what an Engine searches for.
type Mode int

const (
	// ModeFull searches for the three Samsung service types and reports an
	// address once all of them answered.
	ModeFull Mode = iota

	// ModeRootDevice searches for upnp:rootdevice and reports an address on
	// its first LOCATION.
	ModeRootDevice
)

// Engine runs SSDP searches. The zero value is not usable; use NewEngine.
type Engine struct {
	Interfaces InterfaceLister
	Mode       Mode

	// Target, when set, drops announcements from any other address.
	Target string

	RoundTimeout time.Duration
	Repeats      int

	logger *zap.Logger
	group  net.Addr
	listen func(NetworkAddress) (net.PacketConn, error)
}

// NewEngine creates an engine searching from every system interface.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{
		Interfaces:   SystemInterfaces{},
		Mode:         ModeFull,
		RoundTimeout: DefaultRoundTimeout,
		Repeats:      DefaultRepeats,
		logger:       logging.OrNop(logger).Named("discovery"),
		group:        &net.UDPAddr{IP: net.ParseIP(multicastAddr), Port: multicastPort},
		listen:       listenMulticast,
	}
}

// Discover starts a search and returns the discovered TVs as a lazy
// sequence. Listeners are started when iteration begins and the sequence
// ends once every listener has reached the deadline or ctx is cancelled.
// The sequence can be ranged over only once.
func (e *Engine) Discover(ctx context.Context, timeout time.Duration) (iter.Seq[*Locations], error) {
	if timeout <= 0 {
		timeout = DefaultSearchTimeout
	}

	addrs, err := e.Interfaces.Addresses()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate local addresses: %w", err)
	}
	if len(addrs) == 0 {
		return nil, ErrNoInterfaces
	}

	var used atomic.Bool
	return func(yield func(*Locations) bool) {
		if used.Swap(true) {
			return
		}

		deadline := time.Now().Add(timeout)
		agg := newAggregate(e.requiredTypes())

		var wg sync.WaitGroup
		for _, addr := range addrs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				e.runListener(ctx, addr, deadline, agg)
			}()
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		for {
			select {
			case <-agg.notify:
				for _, loc := range agg.drain() {
					if !yield(loc) {
						return
					}
				}
			case <-done:
				for _, loc := range agg.drain() {
					if !yield(loc) {
						return
					}
				}
				return
			case <-ctx.Done():
				return
			}
		}
	}, nil
}

// DiscoverAll runs a search to completion and collects every TV found.
func (e *Engine) DiscoverAll(ctx context.Context, timeout time.Duration) ([]*Locations, error) {
	seq, err := e.Discover(ctx, timeout)
	if err != nil {
		return nil, err
	}
	var out []*Locations
	for loc := range seq {
		out = append(out, loc)
	}
	return out, nil
}

func (e *Engine) requiredTypes() []string {
	if e.Mode == ModeRootDevice {
		return nil
	}
	return RequiredServiceTypes
}

func (e *Engine) searchTypes() []string {
	if e.Mode == ModeRootDevice {
		return []string{RootDevice}
	}
	return RequiredServiceTypes
}

// researchTypes is what a round timeout searches for again: the types some
// pending address still lacks, or everything while nothing is pending.
func (e *Engine) researchTypes(agg *aggregate) []string {
	if e.Mode == ModeFull {
		if types := agg.outstanding(); len(types) > 0 {
			return types
		}
	}
	return e.searchTypes()
}

func (e *Engine) runListener(ctx context.Context, addr NetworkAddress, deadline time.Time, agg *aggregate) {
	logger := e.logger.With(zap.String("local", addr.IP.String()))

	conn, err := e.listen(addr)
	if err != nil {
		logger.Warn("failed to open SSDP socket", zap.Error(err))
		return
	}
	defer conn.Close()

	round := e.RoundTimeout
	if round <= 0 {
		round = DefaultRoundTimeout
	}

	e.search(conn, e.searchTypes(), logger)

	// Addresses that already got a follow-up search for their missing types.
	followedUp := make(map[string]bool)
	buf := make([]byte, 8192)

	for {
		if ctx.Err() != nil {
			return
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		if err := conn.SetReadDeadline(time.Now().Add(min(round, remaining))); err != nil {
			logger.Warn("failed to set read deadline", zap.Error(err))
			return
		}

		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if os.IsTimeout(err) {
				if time.Until(deadline) > 0 {
					e.search(conn, e.researchTypes(agg), logger)
				}
				continue
			}
			logger.Debug("SSDP listener stopped", zap.Error(err))
			return
		}

		logging.RawBytes(logger, "SSDP datagram", buf[:n])

		ann, ok := parseAnnouncement(buf[:n])
		if !ok {
			continue
		}
		ip := hostOf(from)
		if ip == "" || (e.Target != "" && ip != e.Target) {
			continue
		}

		if agg.observe(ip, ann.ServiceType, ann.Location) {
			logger.Info("discovered TV", zap.String("address", ip))
			continue
		}

		if e.Mode == ModeFull && !followedUp[ip] {
			if missing := agg.missing(ip); len(missing) > 0 {
				followedUp[ip] = true
				e.search(conn, missing, logger)
			}
		}
	}
}

func (e *Engine) search(conn net.PacketConn, types []string, logger *zap.Logger) {
	repeats := e.Repeats
	if repeats <= 0 {
		repeats = DefaultRepeats
	}
	for _, st := range types {
		req := SearchRequest(st)
		for i := 0; i < repeats; i++ {
			if _, err := conn.WriteTo(req, e.group); err != nil {
				logger.Debug("M-SEARCH send failed", zap.String("st", st), zap.Error(err))
				break
			}
		}
	}
}

func hostOf(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	if udp, ok := addr.(*net.UDPAddr); ok {
		return udp.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return ""
	}
	return host
}

// listenMulticast opens a UDP socket bound to the local address with the
// multicast TTL and interface set for SSDP.
func listenMulticast(addr NetworkAddress) (net.PacketConn, error) {
	conn, err := net.ListenPacket("udp4", net.JoinHostPort(addr.IP.String(), "0"))
	if err != nil {
		return nil, err
	}

	p := ipv4.NewPacketConn(conn)
	if err := p.SetMulticastTTL(multicastTTL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set multicast TTL: %w", err)
	}
	if addr.Interface != nil {
		if err := p.SetMulticastInterface(addr.Interface); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set multicast interface: %w", err)
		}
	}
	return conn, nil
}
