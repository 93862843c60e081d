package upnp

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tya/samsungctl/internal/logging"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// maxDocumentSize caps device, SCPD and SOAP response bodies
	maxDocumentSize = 4 << 20
)

// Client fetches device descriptions and invokes actions over HTTP.
type Client struct {
	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	logger *zap.Logger
}

// NewClient creates a client with the default timeout
func NewClient(logger *zap.Logger) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logging.OrNop(logger).Named("upnp"),
	}
}

// Icon is an entry of the device's iconList.
type Icon struct {
	MimeType string
	Width    int
	Height   int
	Depth    int
	URL      string
}

// Device is a parsed UPnP device description with all of its services.
type Device struct {
	Location string

	DeviceType       string
	FriendlyName     string
	Manufacturer     string
	ManufacturerURL  string
	ModelDescription string
	ModelName        string
	ModelNumber      string
	ModelURL         string
	SerialNumber     string
	UDN              string
	UPC              string

	// DeviceID is the Samsung sec:deviceID, used to key pairing tokens.
	DeviceID string

	Icons []Icon

	// Services is keyed by the last segment of the serviceId, e.g.
	// "RenderingControl" or "MainTVAgent2".
	Services map[string]*Service

	serviceOrder []string
}

// Service returns a service by short name or full serviceType.
func (d *Device) Service(name string) (*Service, error) {
	if svc, ok := d.Services[name]; ok {
		return svc, nil
	}
	for _, svc := range d.Services {
		if svc.Type == name || svc.ID == name {
			return svc, nil
		}
	}
	return nil, NewUnknownActionError(fmt.Sprintf("%s has no service %s", d.FriendlyName, name))
}

// ServiceNames lists service short names in document order.
func (d *Device) ServiceNames() []string {
	return append([]string(nil), d.serviceOrder...)
}

// Action looks up service then action by name.
func (d *Device) Action(service, action string) (*Action, error) {
	svc, err := d.Service(service)
	if err != nil {
		return nil, err
	}
	return svc.Action(action)
}

func (d *Device) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", d.FriendlyName, d.DeviceType)
	for _, name := range d.serviceOrder {
		b.WriteString(d.Services[name].String())
	}
	return b.String()
}

// Service is one UPnP service with its state table and actions.
type Service struct {
	// ID is the full serviceId and Name its last segment
	ID   string
	Name string

	// Type is the serviceType, used as the SOAP action namespace
	Type string

	// SCPDURL and ControlURL are absolute
	SCPDURL    string
	ControlURL string

	Variables map[string]*StateVariable
	Actions   map[string]*Action

	actionOrder []string
	client      *Client
}

// Action returns an action by name.
func (s *Service) Action(name string) (*Action, error) {
	if a, ok := s.Actions[name]; ok {
		return a, nil
	}
	return nil, NewUnknownActionError(fmt.Sprintf("service %s has no action %s", s.Name, name))
}

// ActionNames lists action names in document order.
func (s *Service) ActionNames() []string {
	return append([]string(nil), s.actionOrder...)
}

func (s *Service) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Service %s (%s)\n", s.Name, s.Type)
	for _, name := range s.actionOrder {
		b.WriteString(s.Actions[name].String())
		b.WriteByte('\n')
	}
	return b.String()
}

type deviceDocument struct {
	XMLName xml.Name       `xml:"root"`
	URLBase string         `xml:"URLBase"`
	Device  *deviceElement `xml:"device"`
}

type deviceElement struct {
	DeviceType       string           `xml:"deviceType"`
	FriendlyName     string           `xml:"friendlyName"`
	Manufacturer     string           `xml:"manufacturer"`
	ManufacturerURL  string           `xml:"manufacturerURL"`
	ModelDescription string           `xml:"modelDescription"`
	ModelName        string           `xml:"modelName"`
	ModelNumber      string           `xml:"modelNumber"`
	ModelURL         string           `xml:"modelURL"`
	SerialNumber     string           `xml:"serialNumber"`
	UDN              string           `xml:"UDN"`
	UPC              string           `xml:"UPC"`
	DeviceID         string           `xml:"http://www.sec.co.kr/dlna deviceID"`
	Icons            []iconElement    `xml:"iconList>icon"`
	Services         []serviceElement `xml:"serviceList>service"`
}

type iconElement struct {
	MimeType string `xml:"mimetype"`
	Width    int    `xml:"width"`
	Height   int    `xml:"height"`
	Depth    int    `xml:"depth"`
	URL      string `xml:"url"`
}

type serviceElement struct {
	ServiceType string `xml:"serviceType"`
	ServiceID   string `xml:"serviceId"`
	SCPDURL     string `xml:"SCPDURL"`
	ControlURL  string `xml:"controlURL"`
}

// Describe fetches baseURL+path, then every service's SCPD, and returns
// the assembled device.
func (c *Client) Describe(ctx context.Context, baseURL, path string) (*Device, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, NewDescriptorFetchError(baseURL, 0, err)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return nil, NewDescriptorFetchError(path, 0, err)
	}
	return c.DescribeURL(ctx, base.ResolveReference(ref).String())
}

// DescribeURL is Describe for an absolute LOCATION URL.
func (c *Client) DescribeURL(ctx context.Context, location string) (*Device, error) {
	data, err := c.fetch(ctx, location)
	if err != nil {
		return nil, err
	}

	device, err := parseDevice(location, data)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range device.serviceOrder {
		svc := device.Services[name]
		svc.client = c
		g.Go(func() error {
			scpd, err := c.fetch(gctx, svc.SCPDURL)
			if err != nil {
				return err
			}
			return parseSCPD(svc, scpd)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.Debug("described device",
		zap.String("location", location),
		zap.String("name", device.FriendlyName),
		zap.Strings("services", device.serviceOrder))
	return device, nil
}

// parseDevice parses a device description. Relative URLs are resolved
// against URLBase when present, otherwise against the document location.
func parseDevice(location string, data []byte) (*Device, error) {
	var doc deviceDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, NewDescriptorParseError(location, "malformed device description", err)
	}
	if doc.Device == nil {
		return nil, NewDescriptorParseError(location, "device description has no device element", nil)
	}

	base, err := url.Parse(location)
	if err != nil {
		return nil, NewDescriptorParseError(location, "invalid location", err)
	}
	if doc.URLBase != "" {
		if u, err := url.Parse(strings.TrimSpace(doc.URLBase)); err == nil && u.IsAbs() {
			base = u
		}
	}

	el := doc.Device
	d := &Device{
		Location:         location,
		DeviceType:       strings.TrimSpace(el.DeviceType),
		FriendlyName:     strings.TrimSpace(el.FriendlyName),
		Manufacturer:     strings.TrimSpace(el.Manufacturer),
		ManufacturerURL:  strings.TrimSpace(el.ManufacturerURL),
		ModelDescription: strings.TrimSpace(el.ModelDescription),
		ModelName:        strings.TrimSpace(el.ModelName),
		ModelNumber:      strings.TrimSpace(el.ModelNumber),
		ModelURL:         strings.TrimSpace(el.ModelURL),
		SerialNumber:     strings.TrimSpace(el.SerialNumber),
		UDN:              strings.TrimSpace(el.UDN),
		UPC:              strings.TrimSpace(el.UPC),
		DeviceID:         strings.TrimSpace(el.DeviceID),
		Services:         make(map[string]*Service, len(el.Services)),
	}
	if d.DeviceType == "" {
		return nil, NewDescriptorParseError(location, "device element has no deviceType", nil)
	}

	for _, ic := range el.Icons {
		d.Icons = append(d.Icons, Icon{
			MimeType: ic.MimeType,
			Width:    ic.Width,
			Height:   ic.Height,
			Depth:    ic.Depth,
			URL:      resolve(base, ic.URL),
		})
	}

	for _, se := range el.Services {
		svc := &Service{
			ID:         strings.TrimSpace(se.ServiceID),
			Type:       strings.TrimSpace(se.ServiceType),
			SCPDURL:    resolve(base, se.SCPDURL),
			ControlURL: resolve(base, se.ControlURL),
		}
		if svc.ID == "" || svc.Type == "" || svc.SCPDURL == "" || svc.ControlURL == "" {
			return nil, NewDescriptorParseError(location,
				fmt.Sprintf("service %q is missing serviceId, serviceType, SCPDURL or controlURL", svc.ID), nil)
		}
		svc.Name = svc.ID[strings.LastIndex(svc.ID, ":")+1:]
		if _, dup := d.Services[svc.Name]; dup {
			continue
		}
		d.Services[svc.Name] = svc
		d.serviceOrder = append(d.serviceOrder, svc.Name)
	}
	return d, nil
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

func (c *Client) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, NewDescriptorFetchError(target, 0, err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, NewDescriptorFetchError(target, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewDescriptorFetchError(target, resp.StatusCode, nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, NewDescriptorFetchError(target, resp.StatusCode, err)
	}
	logging.RawBytes(c.logger, "fetched document", data)
	return data, nil
}
