// Package remote implements the command channels that send key presses to
// a Samsung TV.
//
// Two wire protocols exist:
//
//   - LegacyChannel speaks the binary protocol on TCP port 55000 used by
//     TVs up to 2014. The TV shows an allow/deny prompt on first contact.
//   - WebSocketChannel speaks the JSON protocol on ports 8001 (ws) and 8002
//     (wss). Token-capable TVs issue a pairing token on first approval,
//     which is kept in a TokenStore and presented on later connections.
//
// FileTokenStore keeps one "id:token" line per TV. Lines are split at the
// last colon so ids such as "uuid:..." UDNs survive; tokens containing a
// colon are rejected by SetToken. A path ending in .db selects
// BoltTokenStore instead, which has no such restriction.
//
// Both channels satisfy Channel and share its lifecycle:
//
//	ch := remote.NewLegacyChannel(remote.LegacyConfig{Host: "10.0.0.5"}, logger)
//	if err := ch.Connect(ctx); err != nil {
//	    return err
//	}
//	defer ch.Close()
//	err := ch.SendKey(ctx, "KEY_VOLUP")
//
// Only one command is in flight per channel. Close can be called from any
// goroutine and makes pending and future sends fail with a ConnectionClosed
// error. Failures are never retried inside the package; use IsRetryable to
// decide whether a new Connect is worthwhile.
package remote
