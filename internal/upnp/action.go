package upnp

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/tya/samsungctl/internal/logging"
)

const (
	envelopeNS      = "http://schemas.xmlsoap.org/soap/envelope/"
	encodingStyleNS = "http://schemas.xmlsoap.org/soap/encoding/"
)

// Argument binds an action argument to its state variable.
type Argument struct {
	Name     string
	Variable *StateVariable
}

// Action is one callable operation of a service. Inputs and Outputs keep
// SCPD document order, which is also the positional call order.
type Action struct {
	Name    string
	Inputs  []Argument
	Outputs []Argument

	service *Service
}

// Service returns the service the action belongs to.
func (a *Action) Service() *Service { return a.service }

// Invoke calls the action with named inputs and returns outputs by name.
// Missing inputs take their declared default. All inputs are validated
// before anything is sent.
func (a *Action) Invoke(ctx context.Context, params map[string]any) (map[string]any, error) {
	for name := range params {
		if !a.hasInput(name) {
			return nil, NewUnknownParameterError(a.Name, name)
		}
	}

	values, err := a.invoke(ctx, params)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(a.Outputs))
	for i, arg := range a.Outputs {
		out[arg.Name] = values[i]
	}
	return out, nil
}

// Call invokes the action with positional inputs and returns outputs in
// declaration order. Trailing inputs may be omitted.
func (a *Action) Call(ctx context.Context, args ...any) ([]any, error) {
	if len(args) > len(a.Inputs) {
		return nil, NewUnknownParameterError(a.Name,
			fmt.Sprintf("#%d (takes %d arguments)", len(args), len(a.Inputs)))
	}
	params := make(map[string]any, len(args))
	for i, v := range args {
		params[a.Inputs[i].Name] = v
	}
	return a.invoke(ctx, params)
}

func (a *Action) hasInput(name string) bool {
	for _, in := range a.Inputs {
		if in.Name == name {
			return true
		}
	}
	return false
}

func (a *Action) invoke(ctx context.Context, params map[string]any) ([]any, error) {
	texts := make([]string, len(a.Inputs))
	for i, in := range a.Inputs {
		v, err := in.Variable.Validate(in.Name, params[in.Name])
		if err != nil {
			return nil, err
		}
		texts[i] = in.Variable.Format(v)
	}

	body, err := a.envelope(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to build SOAP envelope for %s: %w", a.Name, err)
	}

	svc := a.service
	client := svc.client
	if client == nil {
		client = NewClient(nil)
	}
	logger := client.logger.With(zap.String("service", svc.Name), zap.String("action", a.Name))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.ControlURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create SOAP request: %w", err)
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPAction", fmt.Sprintf(`"%s#%s"`, svc.Type, a.Name))

	logger.Debug("invoking action")
	resp, err := client.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to invoke %s.%s: %w", svc.Name, a.Name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", a.Name, err)
	}
	logging.RawBytes(logger, "SOAP response", data)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewSoapFaultError(svc.ControlURL, resp.StatusCode, string(data))
	}

	return a.parseResponse(resp.StatusCode, data)
}

// envelope renders the SOAP request with one child per input, in order.
func (a *Action) envelope(texts []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)

	envelope := xml.StartElement{
		Name: xml.Name{Local: "s:Envelope"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns:s"}, Value: envelopeNS},
			{Name: xml.Name{Local: "s:encodingStyle"}, Value: encodingStyleNS},
		},
	}
	body := xml.StartElement{Name: xml.Name{Local: "s:Body"}}
	call := xml.StartElement{
		Name: xml.Name{Local: "u:" + a.Name},
		Attr: []xml.Attr{{Name: xml.Name{Local: "xmlns:u"}, Value: a.service.Type}},
	}

	tokens := []xml.Token{envelope, body, call}
	for i, in := range a.Inputs {
		el := xml.StartElement{Name: xml.Name{Local: in.Name}}
		tokens = append(tokens, el, xml.CharData(texts[i]), el.End())
	}
	tokens = append(tokens, call.End(), body.End(), envelope.End())

	for _, tok := range tokens {
		if err := enc.EncodeToken(tok); err != nil {
			return nil, err
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// node is a namespace-agnostic XML tree used to read SOAP responses.
type node struct {
	XMLName xml.Name
	Content string `xml:",chardata"`
	Nodes   []node `xml:",any"`
}

func (n *node) child(local string) *node {
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == local {
			return &n.Nodes[i]
		}
	}
	return nil
}

// parseResponse extracts outputs by tag name. Missing elements, or a
// response without the ActionNameResponse element, fall back to defaults.
func (a *Action) parseResponse(status int, data []byte) ([]any, error) {
	var root node
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, NewDescriptorParseError(a.service.ControlURL, "malformed SOAP response", err)
	}

	var response *node
	if body := root.child("Body"); body != nil {
		if body.child("Fault") != nil {
			return nil, NewSoapFaultError(a.service.ControlURL, status, string(data))
		}
		response = body.child(a.Name + "Response")
	}

	out := make([]any, len(a.Outputs))
	for i, arg := range a.Outputs {
		text := ""
		if response != nil {
			if el := response.child(arg.Name); el != nil {
				text = strings.TrimSpace(el.Content)
			}
		}
		out[i] = arg.Variable.Convert(text)
	}
	return out, nil
}

func (a *Action) String() string {
	var b strings.Builder
	b.WriteString(a.Name)
	b.WriteByte('(')
	for i, in := range a.Inputs {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", in.Name, in.Variable.RawType)
	}
	b.WriteString(") -> (")
	for i, out := range a.Outputs {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", out.Name, out.Variable.RawType)
	}
	b.WriteByte(')')
	for _, in := range a.Inputs {
		fmt.Fprintf(&b, "\n    in  %s: %s", in.Name, in.Variable)
	}
	for _, out := range a.Outputs {
		fmt.Fprintf(&b, "\n    out %s: %s", out.Name, out.Variable)
	}
	return b.String()
}
