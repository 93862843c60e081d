package remote

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Legacy wire format. Every packet is three zero bytes followed by one
// field holding the raw payload. A field is a little-endian uint16 length
// and the bytes; inside payloads strings are base64 encoded before framing.
//
// Responses are [1 ignored byte][LE16 name length][name][LE16 length][response].

var (
	packetPrefix    = []byte{0x00, 0x00, 0x00}
	handshakeCode   = []byte{0x64, 0x00}
	keyPayloadCode  = []byte{0x00, 0x00, 0x00}
	maxFieldPayload = 0xFFFF
)

// appendField appends a length-prefixed field.
func appendField(dst, data []byte) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(data)))
	return append(dst, data...)
}

// appendString appends s as a base64 encoded field.
func appendString(dst []byte, s string) []byte {
	return appendField(dst, []byte(base64.StdEncoding.EncodeToString([]byte(s))))
}

// readField reads one length-prefixed field.
func readField(r io.Reader) ([]byte, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint16(hdr[:])
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

func packet(payload []byte) ([]byte, error) {
	if len(payload) > maxFieldPayload {
		return nil, fmt.Errorf("payload of %d bytes exceeds frame limit", len(payload))
	}
	out := append([]byte(nil), packetPrefix...)
	return appendField(out, payload), nil
}

// handshakePacket builds the pairing request.
func handshakePacket(description, id, name string) ([]byte, error) {
	payload := append([]byte(nil), handshakeCode...)
	payload = appendString(payload, description)
	payload = appendString(payload, id)
	payload = appendString(payload, name)
	return packet(payload)
}

// keyPacket builds a key press command.
func keyPacket(key string) ([]byte, error) {
	payload := append([]byte(nil), keyPayloadCode...)
	payload = appendString(payload, key)
	return packet(payload)
}

// readResponse reads one response frame and returns the TV name and the
// response bytes.
func readResponse(r io.Reader) (name string, response []byte, err error) {
	var first [1]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return "", nil, err
	}
	nameBytes, err := readField(r)
	if err != nil {
		return "", nil, unexpectedEOF(err)
	}
	response, err = readField(r)
	if err != nil {
		return "", nil, unexpectedEOF(err)
	}
	return string(nameBytes), response, nil
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// outcome is what a legacy response means.
type outcome int

const (
	outcomeUnhandled outcome = iota
	outcomeGranted
	outcomeDenied
	outcomePending
	outcomeCancelled
	outcomeClosed
	outcomeAccepted
)

func (o outcome) String() string {
	switch o {
	case outcomeGranted:
		return "granted"
	case outcomeDenied:
		return "denied"
	case outcomePending:
		return "pending"
	case outcomeCancelled:
		return "cancelled"
	case outcomeClosed:
		return "closed"
	case outcomeAccepted:
		return "accepted"
	default:
		return "unhandled"
	}
}

var (
	respGranted  = []byte{0x64, 0x00, 0x01, 0x00}
	respDenied   = []byte{0x64, 0x00, 0x00, 0x00}
	respAccepted = []byte{0x00, 0x00, 0x00, 0x00}
)

// classifyResponse maps a response to exactly one outcome.
func classifyResponse(resp []byte) outcome {
	switch {
	case len(resp) == 0:
		return outcomeClosed
	case bytes.Equal(resp, respGranted):
		return outcomeGranted
	case bytes.Equal(resp, respDenied):
		return outcomeDenied
	case resp[0] == 0x0A:
		return outcomePending
	case resp[0] == 0x65:
		return outcomeCancelled
	case bytes.Equal(resp, respAccepted):
		return outcomeAccepted
	default:
		return outcomeUnhandled
	}
}
