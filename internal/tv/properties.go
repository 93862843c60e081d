package tv

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/tya/samsungctl/internal/upnp"
)

// UPnP service short names used by the property API.
const (
	ServiceMainTVAgent      = "MainTVAgent2"
	ServiceRenderingControl = "RenderingControl"
	ServiceAVTransport      = "AVTransport"
)

func (s *Session) service(dev *upnp.Device, name string) (*upnp.Service, error) {
	if dev == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNotSupported)
	}
	svc, err := dev.Service(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNotSupported)
	}
	return svc, nil
}

// call invokes a positional action and returns its outputs.
func (s *Session) call(ctx context.Context, dev *upnp.Device, service, action string, args ...any) ([]any, error) {
	svc, err := s.service(dev, service)
	if err != nil {
		return nil, err
	}
	a, err := svc.Action(action)
	if err != nil {
		return nil, err
	}
	return a.Call(ctx, args...)
}

func (s *Session) agent(ctx context.Context, action string, args ...any) ([]any, error) {
	return s.call(ctx, s.devices.MainTVServer, ServiceMainTVAgent, action, args...)
}

func (s *Session) rendering(ctx context.Context, action string, args ...any) ([]any, error) {
	return s.call(ctx, s.devices.MediaRenderer, ServiceRenderingControl, action, append([]any{0}, args...)...)
}

func (s *Session) transport(ctx context.Context, action string) ([]any, error) {
	return s.call(ctx, s.devices.MediaRenderer, ServiceAVTransport, action, 0)
}

// output returns the i-th output, or an error naming the action when the
// TV declared fewer outputs.
func output(action string, values []any, i int) (any, error) {
	if i >= len(values) {
		return nil, fmt.Errorf("%s returned %d values, expected at least %d", action, len(values), i+1)
	}
	return values[i], nil
}

func outputString(action string, values []any, i int) (string, error) {
	v, err := output(action, values, i)
	if err != nil || v == nil {
		return "", err
	}
	return fmt.Sprint(v), nil
}

func outputInt(action string, values []any, i int) (int, error) {
	v, err := output(action, values, i)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case int:
		return x, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("%s returned non-integer %q", action, x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s returned %T, expected an integer", action, v)
	}
}

// embeddedXML unmarshals XML that the TV returns inside a string output.
// Some firmware escapes it twice.
func embeddedXML(action, text string, dst any) error {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "&lt;") {
		text = html.UnescapeString(text)
	}
	if text == "" {
		return fmt.Errorf("%s returned no document", action)
	}
	if err := xml.Unmarshal([]byte(text), dst); err != nil {
		return fmt.Errorf("failed to parse %s document: %w", action, err)
	}
	return nil
}

// Volume returns the master volume.
func (s *Session) Volume(ctx context.Context) (int, error) {
	out, err := s.agent(ctx, "GetVolume")
	if err != nil {
		return 0, err
	}
	return outputInt("GetVolume", out, 1)
}

func (s *Session) SetVolume(ctx context.Context, volume int) error {
	_, err := s.agent(ctx, "SetVolume", volume)
	return err
}

// Mute reports whether audio is muted.
func (s *Session) Mute(ctx context.Context) (bool, error) {
	out, err := s.agent(ctx, "GetMuteStatus")
	if err != nil {
		return false, err
	}
	status, err := outputString("GetMuteStatus", out, 1)
	if err != nil {
		return false, err
	}
	return status != "Disable", nil
}

func (s *Session) SetMute(ctx context.Context, mute bool) error {
	status := "Disable"
	if mute {
		status = "Enable"
	}
	_, err := s.agent(ctx, "SetMute", status)
	return err
}

// ChannelInfo is the currently tuned broadcast channel.
type ChannelInfo struct {
	Type          string `xml:"ChType"`
	Major         int    `xml:"MajorCh"`
	Minor         int    `xml:"MinorCh"`
	PTC           int    `xml:"PTC"`
	ProgramNumber int    `xml:"ProgNum"`
}

func (c ChannelInfo) String() string {
	return fmt.Sprintf("%s %d-%d", c.Type, c.Major, c.Minor)
}

// CurrentChannel returns the channel shown on the main screen.
func (s *Session) CurrentChannel(ctx context.Context) (*ChannelInfo, error) {
	out, err := s.agent(ctx, "GetCurrentMainTVChannel")
	if err != nil {
		return nil, err
	}
	text, err := outputString("GetCurrentMainTVChannel", out, 1)
	if err != nil {
		return nil, err
	}
	var ch ChannelInfo
	if err := embeddedXML("GetCurrentMainTVChannel", text, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// DTVInfo describes the TV's tuner capabilities and model year.
type DTVInfo struct {
	Year       int
	Region     string
	TunerCount int
	DTV        bool
	PVR        bool
}

type dtvDocument struct {
	SupportTVVersion int    `xml:"SupportTVVersion"`
	TargetLocation   string `xml:"TargetLocation"`
	TunerCount       int    `xml:"TunerCount"`
	SupportDTV       string `xml:"SupportDTV"`
	SupportPVR       string `xml:"SupportPVR"`
}

func (s *Session) DTVInformation(ctx context.Context) (*DTVInfo, error) {
	out, err := s.agent(ctx, "GetDTVInformation")
	if err != nil {
		return nil, err
	}
	text, err := outputString("GetDTVInformation", out, 1)
	if err != nil {
		return nil, err
	}
	var doc dtvDocument
	if err := embeddedXML("GetDTVInformation", text, &doc); err != nil {
		return nil, err
	}
	return &DTVInfo{
		Year:       doc.SupportTVVersion,
		Region:     strings.TrimPrefix(doc.TargetLocation, "TARGET_LOCATION_"),
		TunerCount: doc.TunerCount,
		DTV:        doc.SupportDTV == "Yes",
		PVR:        doc.SupportPVR == "Yes",
	}, nil
}

// Year is the model year reported by the TV.
func (s *Session) Year(ctx context.Context) (int, error) {
	info, err := s.DTVInformation(ctx)
	if err != nil {
		return 0, err
	}
	return info.Year, nil
}

// RunBrowser opens url in the TV's web browser.
func (s *Session) RunBrowser(ctx context.Context, url string) error {
	_, err := s.agent(ctx, "RunBrowser", url)
	return err
}

func (s *Session) renderingValue(ctx context.Context, action string) (int, error) {
	out, err := s.rendering(ctx, action)
	if err != nil {
		return 0, err
	}
	return outputInt(action, out, 0)
}

func (s *Session) setRendering(ctx context.Context, action string, value int) error {
	_, err := s.rendering(ctx, action, value)
	return err
}

func (s *Session) Brightness(ctx context.Context) (int, error) {
	return s.renderingValue(ctx, "GetBrightness")
}

func (s *Session) SetBrightness(ctx context.Context, v int) error {
	return s.setRendering(ctx, "SetBrightness", v)
}

func (s *Session) Contrast(ctx context.Context) (int, error) {
	return s.renderingValue(ctx, "GetContrast")
}

func (s *Session) SetContrast(ctx context.Context, v int) error {
	return s.setRendering(ctx, "SetContrast", v)
}

func (s *Session) Sharpness(ctx context.Context) (int, error) {
	return s.renderingValue(ctx, "GetSharpness")
}

func (s *Session) SetSharpness(ctx context.Context, v int) error {
	return s.setRendering(ctx, "SetSharpness", v)
}

func (s *Session) ColorTemperature(ctx context.Context) (int, error) {
	return s.renderingValue(ctx, "GetColorTemperature")
}

func (s *Session) SetColorTemperature(ctx context.Context, v int) error {
	return s.setRendering(ctx, "SetColorTemperature", v)
}

// TransportInfo is the AVTransport playback state.
type TransportInfo struct {
	State  string
	Status string
	Speed  string
}

func (s *Session) TransportInfo(ctx context.Context) (*TransportInfo, error) {
	out, err := s.transport(ctx, "GetTransportInfo")
	if err != nil {
		return nil, err
	}
	var info TransportInfo
	for i, dst := range []*string{&info.State, &info.Status, &info.Speed} {
		if *dst, err = outputString("GetTransportInfo", out, i); err != nil {
			return nil, err
		}
	}
	return &info, nil
}

// PositionInfo is the AVTransport position of the current track.
type PositionInfo struct {
	Track         int
	TrackDuration string
	TrackMetadata string
	TrackURI      string
	RelativeTime  string
	AbsoluteTime  string
	RelativeCount int
	AbsoluteCount int
}

func (s *Session) PositionInfo(ctx context.Context) (*PositionInfo, error) {
	const action = "GetPositionInfo"
	out, err := s.transport(ctx, action)
	if err != nil {
		return nil, err
	}
	if len(out) < 8 {
		return nil, fmt.Errorf("%s returned %d values, expected 8", action, len(out))
	}

	var info PositionInfo
	if info.Track, err = outputInt(action, out, 0); err != nil {
		return nil, err
	}
	info.TrackDuration, _ = outputString(action, out, 1)
	info.TrackMetadata, _ = outputString(action, out, 2)
	info.TrackURI, _ = outputString(action, out, 3)
	info.RelativeTime, _ = outputString(action, out, 4)
	info.AbsoluteTime, _ = outputString(action, out, 5)
	if info.RelativeCount, err = outputInt(action, out, 6); err != nil {
		return nil, err
	}
	if info.AbsoluteCount, err = outputInt(action, out, 7); err != nil {
		return nil, err
	}
	return &info, nil
}

// ModelName is the model reported by the main TV server, e.g. "UN55D8000".
func (s *Session) ModelName() string {
	for _, d := range s.devices.All() {
		if d.ModelName != "" {
			return d.ModelName
		}
	}
	return ""
}
