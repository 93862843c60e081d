package discovery

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

const (
	multicastAddr = "239.255.255.250"
	multicastPort = 1900
)

// SearchRequest builds an M-SEARCH datagram for one service type.
func SearchRequest(serviceType string) []byte {
	return []byte(fmt.Sprintf(
		"M-SEARCH * HTTP/1.1\r\n"+
			"HOST: %s:%d\r\n"+
			"MAN: \"ssdp:discover\"\r\n"+
			"MX: 1\r\n"+
			"ST: %s\r\n"+
			"CONTENT-LENGTH: 0\r\n\r\n",
		multicastAddr, multicastPort, serviceType,
	))
}

// announcement is the part of an SSDP reply discovery cares about.
type announcement struct {
	ServiceType string
	Location    string
}

// parseAnnouncement extracts the ST and LOCATION headers from a datagram.
// Header names are matched case-insensitively. ok is false when either
// header is missing or empty.
func parseAnnouncement(data []byte) (announcement, bool) {
	var a announcement
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "st", "nt":
			if a.ServiceType == "" {
				a.ServiceType = value
			}
		case "location":
			a.Location = value
		}
	}
	if a.ServiceType == "" || a.Location == "" {
		return announcement{}, false
	}
	return a, true
}
