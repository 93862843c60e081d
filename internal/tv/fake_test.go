package tv

import (
	"context"
	"encoding/xml"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/tya/samsungctl/internal/config"
	"github.com/tya/samsungctl/internal/discovery"
	"github.com/tya/samsungctl/internal/remote"
	"github.com/tya/samsungctl/internal/upnp"
)

// soapCall is one action invocation seen by fakeUPnP.
type soapCall struct {
	Action string
	Params map[string]string
}

// fakeUPnP serves the description documents in testdata/ and answers SOAP
// calls from a per-action table of output values.
type fakeUPnP struct {
	*httptest.Server
	t *testing.T

	mu      sync.Mutex
	replies map[string]map[string]string
	calls   []soapCall
}

func newFakeUPnP(t *testing.T) *fakeUPnP {
	t.Helper()
	f := &fakeUPnP{t: t, replies: make(map[string]map[string]string)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeUPnP) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		data, err := os.ReadFile(filepath.Join("testdata", path.Base(r.URL.Path)))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		w.Write(data)
		return
	}

	soapAction := strings.Trim(r.Header.Get("SOAPAction"), `"`)
	serviceType, action, _ := strings.Cut(soapAction, "#")
	body, _ := io.ReadAll(r.Body)
	params, err := soapParams(body)
	if err != nil {
		f.t.Errorf("malformed SOAP request for %s: %v", action, err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.calls = append(f.calls, soapCall{Action: action, Params: params})
	outputs := f.replies[action]
	f.mu.Unlock()

	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body>`)
	b.WriteString(`<u:` + action + `Response xmlns:u="` + serviceType + `">`)
	for name, value := range outputs {
		b.WriteString("<" + name + ">" + html.EscapeString(value) + "</" + name + ">")
	}
	b.WriteString(`</u:` + action + `Response></s:Body></s:Envelope>`)
	w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
	io.WriteString(w, b.String())
}

// soapParams returns the children of the action element.
func soapParams(body []byte) (map[string]string, error) {
	params := make(map[string]string)
	dec := xml.NewDecoder(strings.NewReader(string(body)))
	depth := 0
	var current string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return params, nil
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 4 {
				current = t.Name.Local
				params[current] = ""
			}
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 4 {
				params[current] += string(t)
			}
		}
	}
}

func (f *fakeUPnP) reply(action string, outputs map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[action] = outputs
}

func (f *fakeUPnP) soapCalls(action string) []soapCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []soapCall
	for _, c := range f.calls {
		if c.Action == action {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeUPnP) locations() *discovery.Locations {
	return &discovery.Locations{
		Address: "127.0.0.1",
		Services: map[string]string{
			discovery.MainTVServer2:         f.URL + "/smp_2_/MainTVServer2.xml",
			discovery.MediaRenderer:         f.URL + "/dmr/MediaRenderer.xml",
			discovery.RemoteControlReceiver: f.URL + "/RCR/RemoteControlReceiver.xml",
		},
	}
}

// fakeChannel records keys instead of talking to a TV.
type fakeChannel struct {
	mu     sync.Mutex
	keys   []string
	closed bool
}

func (c *fakeChannel) Connect(context.Context) error { return nil }

func (c *fakeChannel) SendKey(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return remote.NewConnectionClosedError("channel is closed")
	}
	c.keys = append(c.keys, key)
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) State() remote.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return remote.StateClosed
	}
	return remote.StateAuthorized
}

// newTestSession describes the fake TV and wraps a fakeChannel.
func newTestSession(t *testing.T) (*Session, *fakeUPnP, *fakeChannel) {
	t.Helper()
	f := newFakeUPnP(t)
	devices, err := DescribeAll(context.Background(), upnp.NewClient(nil), f.locations())
	if err != nil {
		t.Fatalf("DescribeAll() error = %v", err)
	}
	ch := &fakeChannel{}
	return NewSession(config.Default(), "127.0.0.1", ch, devices, nil), f, ch
}
