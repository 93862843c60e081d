package upnp

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

type scpdDocument struct {
	XMLName   xml.Name          `xml:"scpd"`
	Actions   []actionElement   `xml:"actionList>action"`
	Variables []variableElement `xml:"serviceStateTable>stateVariable"`
}

type actionElement struct {
	Name      string            `xml:"name"`
	Arguments []argumentElement `xml:"argumentList>argument"`
}

type argumentElement struct {
	Name                 string `xml:"name"`
	Direction            string `xml:"direction"`
	RelatedStateVariable string `xml:"relatedStateVariable"`
}

type variableElement struct {
	Name          string        `xml:"name"`
	DataType      string        `xml:"dataType"`
	DefaultValue  *string       `xml:"defaultValue"`
	AllowedValues *allowedList  `xml:"allowedValueList"`
	Range         *rangeElement `xml:"allowedValueRange"`
}

type allowedList struct {
	Values []string `xml:"allowedValue"`
}

type rangeElement struct {
	Minimum *string `xml:"minimum"`
	Maximum *string `xml:"maximum"`
	Step    *string `xml:"step"`
}

// parseSCPD fills svc's variables and actions from an SCPD document.
func parseSCPD(svc *Service, data []byte) error {
	var doc scpdDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return NewDescriptorParseError(svc.SCPDURL, "malformed SCPD document", err)
	}

	svc.Variables = make(map[string]*StateVariable, len(doc.Variables))
	for _, ve := range doc.Variables {
		v, err := buildVariable(ve)
		if err != nil {
			return NewDescriptorParseError(svc.SCPDURL, err.Error(), nil)
		}
		svc.Variables[v.Name] = v
	}

	svc.Actions = make(map[string]*Action, len(doc.Actions))
	for _, ae := range doc.Actions {
		name := strings.TrimSpace(ae.Name)
		if name == "" {
			return NewDescriptorParseError(svc.SCPDURL, "action without a name", nil)
		}
		action := &Action{Name: name, service: svc}
		for _, arg := range ae.Arguments {
			argName := strings.TrimSpace(arg.Name)
			related := strings.TrimSpace(arg.RelatedStateVariable)
			v, ok := svc.Variables[related]
			if argName == "" || !ok {
				return NewDescriptorParseError(svc.SCPDURL,
					fmt.Sprintf("argument %q of %s references unknown state variable %q", argName, name, related), nil)
			}
			a := Argument{Name: argName, Variable: v}
			if strings.EqualFold(strings.TrimSpace(arg.Direction), "in") {
				action.Inputs = append(action.Inputs, a)
			} else {
				action.Outputs = append(action.Outputs, a)
			}
		}
		svc.Actions[name] = action
		svc.actionOrder = append(svc.actionOrder, name)
	}
	return nil
}

func buildVariable(ve variableElement) (*StateVariable, error) {
	name := strings.TrimSpace(ve.Name)
	if name == "" {
		return nil, fmt.Errorf("state variable without a name")
	}
	raw := strings.TrimSpace(ve.DataType)
	v := &StateVariable{Name: name, RawType: raw, Type: parseDataType(raw)}

	if v.Type == TypeInteger && ve.Range != nil {
		var err error
		if v.Minimum, err = optionalInt(ve.Range.Minimum); err != nil {
			return nil, fmt.Errorf("%s minimum: %w", name, err)
		}
		if v.Maximum, err = optionalInt(ve.Range.Maximum); err != nil {
			return nil, fmt.Errorf("%s maximum: %w", name, err)
		}
		if v.Step, err = optionalInt(ve.Range.Step); err != nil {
			return nil, fmt.Errorf("%s step: %w", name, err)
		}
	}

	if v.Type == TypeString && ve.AllowedValues != nil {
		v.AllowedValues = make([]string, 0, len(ve.AllowedValues.Values))
		for _, s := range ve.AllowedValues.Values {
			v.AllowedValues = append(v.AllowedValues, strings.TrimSpace(s))
		}
	}

	if ve.DefaultValue != nil {
		def := strings.TrimSpace(*ve.DefaultValue)
		if def == notImplemented {
			v.NotImplemented = true
		} else {
			v.Default = parseDefault(v.Type, def)
		}
	}
	return v, nil
}

func optionalInt(s *string) (*int, error) {
	if s == nil {
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(*s))
	if err != nil {
		return nil, err
	}
	return &n, nil
}
