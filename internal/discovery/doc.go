// Package discovery locates Samsung TVs on the local network.
//
// The primary mechanism is SSDP. For every local IPv4 address an Engine
// starts a listener that multicasts M-SEARCH requests to
// 239.255.255.250:1900 and collects the LOCATION header of every reply.
// A TV is only reported once it has answered for all three service types
// a complete remote needs:
//
//   - urn:samsung.com:device:RemoteControlReceiver:1
//   - urn:schemas-upnp-org:device:MediaRenderer:1
//   - urn:samsung.com:device:MainTVServer2:1
//
// Results are produced lazily as an iter.Seq, so callers can stop after
// the first TV:
//
//	engine := discovery.NewEngine(logger)
//	seq, err := engine.Discover(ctx, 5*time.Second)
//	if err != nil {
//	    return err
//	}
//	for tv := range seq {
//	    fmt.Println(tv)
//	    break
//	}
//
// ModeRootDevice switches to a single-shot search for upnp:rootdevice that
// reports an address on its first LOCATION.
//
// Listeners always finish at the search deadline even if the consumer stops
// iterating early; every goroutine an Engine starts has a bounded lifetime.
//
// MDNSScanner is a secondary mechanism for newer models that advertise the
// Smart View service over multicast DNS.
package discovery
