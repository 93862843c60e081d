package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

type datagram struct {
	data []byte
	from net.Addr
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// fakeConn is an in-memory PacketConn. Every M-SEARCH written to it is
// passed to respond, and the replies are queued for ReadFrom.
type fakeConn struct {
	mu       sync.Mutex
	deadline time.Time
	writes   []string

	inbox     chan datagram
	closed    chan struct{}
	closeOnce sync.Once
	respond   func(st string) []datagram
}

func newFakeConn(respond func(st string) []datagram) *fakeConn {
	return &fakeConn{
		inbox:   make(chan datagram, 1024),
		closed:  make(chan struct{}),
		respond: respond,
	}
}

func (c *fakeConn) ReadFrom(p []byte) (int, net.Addr, error) {
	c.mu.Lock()
	deadline := c.deadline
	c.mu.Unlock()

	var expired <-chan time.Time
	if !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case dg := <-c.inbox:
		return copy(p, dg.data), dg.from, nil
	case <-expired:
		return 0, nil, timeoutError{}
	case <-c.closed:
		return 0, nil, net.ErrClosed
	}
}

func (c *fakeConn) WriteTo(p []byte, _ net.Addr) (int, error) {
	select {
	case <-c.closed:
		return 0, net.ErrClosed
	default:
	}

	st := ""
	for _, line := range strings.Split(string(p), "\r\n") {
		if v, ok := strings.CutPrefix(line, "ST: "); ok {
			st = v
		}
	}

	c.mu.Lock()
	c.writes = append(c.writes, st)
	c.mu.Unlock()

	if c.respond != nil {
		for _, dg := range c.respond(st) {
			select {
			case c.inbox <- dg:
			default:
			}
		}
	}
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.writes...)
}

func (c *fakeConn) LocalAddr() net.Addr { return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)} }

func (c *fakeConn) SetDeadline(t time.Time) error { return c.SetReadDeadline(t) }

func (c *fakeConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	c.deadline = t
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func reply(ip, st, path string) datagram {
	return datagram{
		data: []byte(fmt.Sprintf(
			"HTTP/1.1 200 OK\r\nCACHE-CONTROL: max-age=1800\r\nLOCATION: http://%s:7676/%s\r\nST: %s\r\n\r\n",
			ip, path, st)),
		from: &net.UDPAddr{IP: net.ParseIP(ip), Port: 1900},
	}
}

func testEngine(conn *fakeConn) *Engine {
	e := NewEngine(nil)
	e.Interfaces = StaticAddresses{net.ParseIP("192.168.1.2")}
	e.RoundTimeout = 40 * time.Millisecond
	e.listen = func(NetworkAddress) (net.PacketConn, error) { return conn, nil }
	return e
}

func TestEngine_Discover_FullTV(t *testing.T) {
	conn := newFakeConn(func(st string) []datagram {
		switch st {
		case RemoteControlReceiver:
			return []datagram{reply("10.0.0.5", st, "rcr")}
		case MediaRenderer:
			return []datagram{reply("10.0.0.5", st, "dmr")}
		case MainTVServer2:
			return []datagram{reply("10.0.0.5", st, "smp")}
		}
		return nil
	})

	found, err := testEngine(conn).DiscoverAll(context.Background(), 300*time.Millisecond)
	if err != nil {
		t.Fatalf("DiscoverAll() error = %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("DiscoverAll() = %d TVs, want 1", len(found))
	}

	tv := found[0]
	if tv.Address != "10.0.0.5" {
		t.Errorf("Address = %q, want 10.0.0.5", tv.Address)
	}
	if tv.MainTVServer() != "http://10.0.0.5:7676/smp" {
		t.Errorf("MainTVServer() = %q", tv.MainTVServer())
	}
	if tv.BaseURL() != "http://10.0.0.5:7676" {
		t.Errorf("BaseURL() = %q", tv.BaseURL())
	}
	if !conn.isClosed() {
		t.Error("listener socket not closed after search")
	}
}

func TestEngine_Discover_SendsEachTypeRepeatedly(t *testing.T) {
	conn := newFakeConn(nil)
	e := testEngine(conn)

	// Shorter than one round so only the initial search goes out.
	if _, err := e.DiscoverAll(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("DiscoverAll() error = %v", err)
	}

	counts := make(map[string]int)
	for _, st := range conn.sent() {
		counts[st]++
	}
	for _, st := range RequiredServiceTypes {
		if counts[st] != DefaultRepeats {
			t.Errorf("sent %s %d times, want %d", st, counts[st], DefaultRepeats)
		}
	}
}

func TestEngine_Discover_IncompleteTVNotReported(t *testing.T) {
	conn := newFakeConn(func(st string) []datagram {
		if st == MainTVServer2 {
			return nil
		}
		return []datagram{reply("10.0.0.5", st, "x")}
	})

	found, err := testEngine(conn).DiscoverAll(context.Background(), 200*time.Millisecond)
	if err != nil {
		t.Fatalf("DiscoverAll() error = %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("DiscoverAll() = %v, want none", found)
	}

	// The missing type is searched again after the first announcement and
	// on every round timeout.
	n := 0
	for _, st := range conn.sent() {
		if st == MainTVServer2 {
			n++
		}
	}
	if n <= DefaultRepeats {
		t.Errorf("MainTVServer2 searched %d times, want more than %d", n, DefaultRepeats)
	}

	// A type answered from the start is never searched again.
	rcr := 0
	for _, st := range conn.sent() {
		if st == RemoteControlReceiver {
			rcr++
		}
	}
	if rcr != DefaultRepeats {
		t.Errorf("RemoteControlReceiver searched %d times, want %d", rcr, DefaultRepeats)
	}
}

func TestEngine_Discover_IgnoresMalformed(t *testing.T) {
	conn := newFakeConn(func(st string) []datagram {
		return []datagram{
			{data: []byte("not an ssdp reply"), from: &net.UDPAddr{IP: net.ParseIP("10.0.0.8")}},
			reply("10.0.0.5", st, "ok"),
		}
	})

	found, err := testEngine(conn).DiscoverAll(context.Background(), 200*time.Millisecond)
	if err != nil {
		t.Fatalf("DiscoverAll() error = %v", err)
	}
	if len(found) != 1 || found[0].Address != "10.0.0.5" {
		t.Fatalf("DiscoverAll() = %v, want only 10.0.0.5", found)
	}
}

func TestEngine_Discover_RootDeviceTarget(t *testing.T) {
	conn := newFakeConn(func(st string) []datagram {
		if st != RootDevice {
			return nil
		}
		return []datagram{
			reply("10.0.0.8", st, "other"),
			reply("10.0.0.9", st, "desc.xml"),
		}
	})

	e := testEngine(conn)
	e.Mode = ModeRootDevice
	e.Target = "10.0.0.9"

	found, err := e.DiscoverAll(context.Background(), 150*time.Millisecond)
	if err != nil {
		t.Fatalf("DiscoverAll() error = %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("DiscoverAll() = %d results, want 1", len(found))
	}
	if got := found[0].Location(RootDevice); got != "http://10.0.0.9:7676/desc.xml" {
		t.Errorf("Location(RootDevice) = %q", got)
	}
	for _, st := range conn.sent() {
		if st != RootDevice {
			t.Fatalf("root device search sent ST %q", st)
		}
	}
}

func TestEngine_Discover_EarlyStopStillCloses(t *testing.T) {
	conn := newFakeConn(func(st string) []datagram {
		return []datagram{reply("10.0.0.5", st, "x")}
	})

	seq, err := testEngine(conn).Discover(context.Background(), 200*time.Millisecond)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	for range seq {
		break
	}

	deadline := time.Now().Add(2 * time.Second)
	for !conn.isClosed() {
		if time.Now().After(deadline) {
			t.Fatal("listener still running long after the search deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// A consumed sequence does not restart.
	for range seq {
		t.Fatal("sequence yielded on second use")
	}
}

func TestEngine_Discover_NoInterfaces(t *testing.T) {
	e := NewEngine(nil)
	e.Interfaces = StaticAddresses{}
	if _, err := e.Discover(context.Background(), time.Second); err != ErrNoInterfaces {
		t.Errorf("Discover() error = %v, want ErrNoInterfaces", err)
	}
}
