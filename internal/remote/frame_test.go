package remote

import (
	"bytes"
	"encoding/base64"
	"io"
	"strings"
	"testing"
)

// readString reads a base64 encoded field, the inverse of appendString.
func readString(r io.Reader) (string, error) {
	data, err := readField(r)
	if err != nil {
		return "", err
	}
	out, err := base64.StdEncoding.DecodeString(string(data))
	return string(out), err
}

func TestFieldRoundTrip(t *testing.T) {
	for _, s := range []string{
		"",
		"KEY_VOLUP",
		"living-room:3f1c9a5e-7c1d-4d8e-9a44-0e8d8c1f2b6a",
		"ünïcödé",
		strings.Repeat("x", 300),
	} {
		buf := appendString(nil, s)
		got, err := readString(bytes.NewReader(buf))
		if err != nil {
			t.Fatalf("readString(%q) error = %v", s, err)
		}
		if got != s {
			t.Errorf("round trip = %q, want %q", got, s)
		}
	}
}

func TestAppendField_ShortLengthMatchesByteAndZero(t *testing.T) {
	got := appendField(nil, []byte("abc"))
	want := []byte{3, 0x00, 'a', 'b', 'c'}
	if !bytes.Equal(got, want) {
		t.Errorf("appendField() = % x, want % x", got, want)
	}
}

func TestHandshakePacket(t *testing.T) {
	pkt, err := handshakePacket("desc", "id-1", "host:id-1")
	if err != nil {
		t.Fatalf("handshakePacket() error = %v", err)
	}
	if !bytes.HasPrefix(pkt, []byte{0x00, 0x00, 0x00}) {
		t.Fatalf("packet prefix = % x", pkt[:3])
	}

	r := bytes.NewReader(pkt[3:])
	payload, err := readField(r)
	if err != nil {
		t.Fatalf("readField() error = %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("%d trailing bytes after payload", r.Len())
	}
	if !bytes.HasPrefix(payload, []byte{0x64, 0x00}) {
		t.Fatalf("payload code = % x, want 64 00", payload[:2])
	}

	pr := bytes.NewReader(payload[2:])
	for _, want := range []string{"desc", "id-1", "host:id-1"} {
		got, err := readString(pr)
		if err != nil {
			t.Fatalf("readString() error = %v", err)
		}
		if got != want {
			t.Errorf("field = %q, want %q", got, want)
		}
	}
}

func TestKeyPacket(t *testing.T) {
	pkt, err := keyPacket("KEY_POWER")
	if err != nil {
		t.Fatalf("keyPacket() error = %v", err)
	}
	payload, err := readField(bytes.NewReader(pkt[3:]))
	if err != nil {
		t.Fatalf("readField() error = %v", err)
	}
	if !bytes.HasPrefix(payload, []byte{0x00, 0x00, 0x00}) {
		t.Fatalf("key payload prefix = % x", payload[:3])
	}
	key, err := readString(bytes.NewReader(payload[3:]))
	if err != nil || key != "KEY_POWER" {
		t.Errorf("key = %q, %v", key, err)
	}
}

func responseFrame(name string, resp []byte) []byte {
	out := []byte{0x01}
	out = appendField(out, []byte(name))
	return appendField(out, resp)
}

func TestReadResponse(t *testing.T) {
	name, resp, err := readResponse(bytes.NewReader(responseFrame("iapp.samsung", []byte{0x64, 0x00, 0x01, 0x00})))
	if err != nil {
		t.Fatalf("readResponse() error = %v", err)
	}
	if name != "iapp.samsung" {
		t.Errorf("name = %q", name)
	}
	if !bytes.Equal(resp, respGranted) {
		t.Errorf("response = % x", resp)
	}
}

func TestReadResponse_Truncated(t *testing.T) {
	frame := responseFrame("tv", []byte{0x64, 0x00, 0x01, 0x00})

	if _, _, err := readResponse(bytes.NewReader(nil)); err != io.EOF {
		t.Errorf("empty stream error = %v, want io.EOF", err)
	}
	if _, _, err := readResponse(bytes.NewReader(frame[:len(frame)-2])); err != io.ErrUnexpectedEOF {
		t.Errorf("truncated frame error = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		name string
		resp []byte
		want outcome
	}{
		{"grant", []byte{0x64, 0x00, 0x01, 0x00}, outcomeGranted},
		{"denied", []byte{0x64, 0x00, 0x00, 0x00}, outcomeDenied},
		{"pending", []byte{0x0A, 0x00, 0x02, 0x00}, outcomePending},
		{"pending single byte", []byte{0x0A}, outcomePending},
		{"cancelled", []byte{0x65, 0x00}, outcomeCancelled},
		{"empty", []byte{}, outcomeClosed},
		{"nil", nil, outcomeClosed},
		{"accepted", []byte{0x00, 0x00, 0x00, 0x00}, outcomeAccepted},
		{"grant prefix with extra byte", []byte{0x64, 0x00, 0x01, 0x00, 0x00}, outcomeUnhandled},
		{"unknown", []byte{0x01, 0x02}, outcomeUnhandled},
		{"short zeros", []byte{0x00, 0x00}, outcomeUnhandled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyResponse(tt.resp); got != tt.want {
				t.Errorf("classifyResponse(% x) = %v, want %v", tt.resp, got, tt.want)
			}
		})
	}
}

func TestClassifyResponse_Total(t *testing.T) {
	// Every one- and two-byte response maps to exactly one known outcome.
	for a := 0; a < 256; a++ {
		for _, resp := range [][]byte{{byte(a)}, {byte(a), 0x00}} {
			o := classifyResponse(resp)
			if o < outcomeUnhandled || o > outcomeAccepted {
				t.Fatalf("classifyResponse(% x) = %d, outside known outcomes", resp, o)
			}
			switch byte(a) {
			case 0x0A:
				if o != outcomePending {
					t.Errorf("classifyResponse(% x) = %v, want pending", resp, o)
				}
			case 0x65:
				if o != outcomeCancelled {
					t.Errorf("classifyResponse(% x) = %v, want cancelled", resp, o)
				}
			default:
				if o != outcomeUnhandled {
					t.Errorf("classifyResponse(% x) = %v, want unhandled", resp, o)
				}
			}
		}
	}
}
