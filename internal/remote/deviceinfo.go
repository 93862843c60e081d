package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// DeviceInfo is the "device" object of the TV's /api/v2/ endpoint.
type DeviceInfo struct {
	TokenAuthSupport flexBool `json:"TokenAuthSupport"`
	OS               string   `json:"OS"`
	FrameTVSupport   flexBool `json:"FrameTVSupport"`
	GamePadSupport   flexBool `json:"GamePadSupport"`
	VoiceSupport     flexBool `json:"VoiceSupport"`
	FirmwareVersion  string   `json:"firmwareVersion"`
	NetworkType      string   `json:"networkType"`
	Resolution       string   `json:"resolution"`
	WifiMac          string   `json:"wifiMac"`
	Model            string   `json:"model"`
	ModelName        string   `json:"modelName"`
	Name             string   `json:"name"`
	ID               string   `json:"id"`
	PowerState       string   `json:"PowerState"`
}

// TokenAuthSupported reports whether the TV issues pairing tokens over wss.
func (d *DeviceInfo) TokenAuthSupported() bool { return bool(d.TokenAuthSupport) }

// flexBool decodes booleans that TVs send either as JSON booleans or as
// "true"/"false" strings.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*b = false
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean %s", data)
	}
	*b = flexBool(v)
	return nil
}

type deviceInfoResponse struct {
	Device *DeviceInfo `json:"device"`
}

// FetchDeviceInfo queries http://host:port/api/v2/. port 0 means 8001.
func FetchDeviceInfo(ctx context.Context, client *http.Client, host string, port int) (*DeviceInfo, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if port == 0 {
		port = DefaultWebSocketPort
	}
	endpoint := fmt.Sprintf("http://%s/api/v2/", net.JoinHostPort(host, strconv.Itoa(port)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create device info request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, NewNetworkError(host, "device info request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewNetworkError(host, fmt.Sprintf("device info returned HTTP %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, NewNetworkError(host, "failed to read device info", err)
	}

	var parsed deviceInfoResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse device info: %w", err)
	}
	if parsed.Device == nil {
		return &DeviceInfo{}, nil
	}
	return parsed.Device, nil
}
