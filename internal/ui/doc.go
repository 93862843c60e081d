// Package ui renders the samsungctl command output.
//
// Output is built from three pieces:
//
//   - Header: a banner naming the command and its target TV
//   - Result: a success, warning or failure box with key/value details and
//     troubleshooting tips
//   - Table: aligned rows for listings such as discovered TVs or sources
//
// All pieces are plain strings styled with Lipgloss; nothing here reads
// input. Colour is dropped automatically when stdout is not a terminal.
//
// Logging is controlled separately through SAMSUNGCTL_LOG_LEVEL or the
// --log-level flag. With neither set zap stays silent so the rendered output
// is the only thing printed.
package ui
