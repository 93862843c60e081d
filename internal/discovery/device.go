package discovery

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// SSDP service types a Samsung TV answers for.
const (
	RemoteControlReceiver = "urn:samsung.com:device:RemoteControlReceiver:1"
	MediaRenderer         = "urn:schemas-upnp-org:device:MediaRenderer:1"
	MainTVServer2         = "urn:samsung.com:device:MainTVServer2:1"
	RootDevice            = "upnp:rootdevice"
)

// RequiredServiceTypes is the search order used for a full discovery. An
// address is reported once all of them have been seen.
var RequiredServiceTypes = []string{
	RemoteControlReceiver,
	MediaRenderer,
	MainTVServer2,
}

// Locations is a discovered TV: its IP address and the description URL it
// advertised for each service type.
type Locations struct {
	// Address is the responder's IP address (e.g., "192.168.1.20")
	Address string

	// Services maps an SSDP service type to its LOCATION URL
	Services map[string]string

	// DiscoveredAt is when the address was promoted
	DiscoveredAt time.Time
}

// Location returns the description URL for a service type, or "".
func (l *Locations) Location(serviceType string) string {
	if l.Services == nil {
		return ""
	}
	return l.Services[serviceType]
}

func (l *Locations) RemoteControlReceiver() string { return l.Location(RemoteControlReceiver) }
func (l *Locations) MediaRenderer() string         { return l.Location(MediaRenderer) }
func (l *Locations) MainTVServer() string          { return l.Location(MainTVServer2) }

// BaseURL returns the scheme and host of the first advertised location,
// preferring the main TV server. Returns "" when no location parses.
func (l *Locations) BaseURL() string {
	candidates := []string{l.MainTVServer(), l.RemoteControlReceiver(), l.MediaRenderer()}
	for _, st := range l.serviceTypes() {
		candidates = append(candidates, l.Services[st])
	}
	for _, loc := range candidates {
		if loc == "" {
			continue
		}
		u, err := url.Parse(loc)
		if err != nil || u.Host == "" {
			continue
		}
		return u.Scheme + "://" + u.Host
	}
	return ""
}

func (l *Locations) serviceTypes() []string {
	types := make([]string, 0, len(l.Services))
	for st := range l.Services {
		types = append(types, st)
	}
	sort.Strings(types)
	return types
}

func (l *Locations) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "TV at %s", l.Address)
	for _, st := range l.serviceTypes() {
		fmt.Fprintf(&b, "\n  %s -> %s", st, l.Services[st])
	}
	return b.String()
}

// Candidate is a TV found over mDNS. It carries less than Locations: only
// the address and the advertised metadata.
type Candidate struct {
	// Name is the mDNS instance name (usually the TV's friendly name)
	Name string

	// Hostname is the mDNS hostname
	Hostname string

	// IP is the advertised address, IPv4 preferred
	IP string

	// Port is the advertised service port
	Port int

	// Metadata contains the TXT record data
	Metadata map[string]string

	DiscoveredAt time.Time
}

func (c *Candidate) String() string {
	return fmt.Sprintf("%s (%s) at %s:%d", c.Name, c.Hostname, c.IP, c.Port)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (c *Candidate) GetMetadata(key string) string {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata[key]
}
