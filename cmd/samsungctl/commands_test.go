package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tya/samsungctl/internal/remote"
	"github.com/tya/samsungctl/internal/tv"
)

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"KEY_VOLUP":  "KEY_VOLUP",
		"volup":      "KEY_VOLUP",
		" key_home ": "KEY_HOME",
	}
	for in, want := range tests {
		if got := normalizeKey(in); got != want {
			t.Errorf("normalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseOnOff(t *testing.T) {
	for _, s := range []string{"on", "ON", "true", "1"} {
		if v, err := parseOnOff(s); err != nil || !v {
			t.Errorf("parseOnOff(%q) = %v, %v", s, v, err)
		}
	}
	for _, s := range []string{"off", "no", "0"} {
		if v, err := parseOnOff(s); err != nil || v {
			t.Errorf("parseOnOff(%q) = %v, %v", s, v, err)
		}
	}
	if _, err := parseOnOff("maybe"); err == nil {
		t.Error("parseOnOff(maybe) should fail")
	}
}

func TestTroubleshooting(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{remote.NewAccessDeniedError("denied"), "refused"},
		{remote.NewAuthorizationTimeoutError("timeout"), "pairing prompt"},
		{fmt.Errorf("open: %w", remote.NewNetworkError("10.0.0.5", "dial", errors.New("refused"))), "switched on"},
		{fmt.Errorf("service X: %w", tv.ErrNotSupported), "UPnP service"},
	}
	for _, tt := range tests {
		tips := troubleshooting(tt.err)
		if len(tips) == 0 || !strings.Contains(strings.Join(tips, " "), tt.want) {
			t.Errorf("troubleshooting(%v) = %v, want a tip mentioning %q", tt.err, tips, tt.want)
		}
	}
	if tips := troubleshooting(errors.New("other")); tips != nil {
		t.Errorf("troubleshooting(other) = %v, want none", tips)
	}
}

func TestSourceTable_MarksCurrent(t *testing.T) {
	sources := []tv.Source{
		{ID: 0, Name: "TV", Label: "TV", Connected: true},
		{ID: 55, Name: "HDMI1", Label: "Console", Connected: true, DeviceName: "PlayStation 4"},
	}
	out := sourceTable(sources, 55).Render()
	var tvLine, hdmiLine string
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.Contains(line, "PlayStation 4"):
			hdmiLine = line
		case strings.Contains(line, " TV "):
			tvLine = line
		}
	}
	if !strings.Contains(hdmiLine, "●") {
		t.Errorf("current source not marked:\n%s", out)
	}
	if tvLine == "" || strings.Contains(tvLine, "●") {
		t.Errorf("other source marked or missing:\n%s", out)
	}
}
