package upnp

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// notImplemented is the defaultValue some TVs declare for inputs that must
// always be supplied.
const notImplemented = "NOT_IMPLEMENTED"

// DataType is the value domain of a state variable.
type DataType int

const (
	TypeString DataType = iota
	TypeInteger
	TypeBoolean
)

func (t DataType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeBoolean:
		return "boolean"
	default:
		return "string"
	}
}

// parseDataType maps a UPnP dataType to a DataType. The ui1..ui4 and i1..i4
// families are integers; types without a dedicated rule are handled as
// strings.
func parseDataType(raw string) DataType {
	switch {
	case raw == "boolean":
		return TypeBoolean
	case raw == "int", strings.HasPrefix(raw, "ui"), strings.HasPrefix(raw, "i"):
		return TypeInteger
	default:
		return TypeString
	}
}

// StateVariable is a typed value declared in a service's state table.
// Arguments reference variables to get their type and constraints.
type StateVariable struct {
	Name    string
	Type    DataType
	RawType string

	// Minimum, Maximum and Step are set when the variable declares an
	// allowedValueRange.
	Minimum *int
	Maximum *int
	Step    *int

	// AllowedValues is non-nil when the variable declares an allowedValueList.
	AllowedValues []string

	// Default is the typed defaultValue, or nil when none is declared.
	Default any

	// NotImplemented is set when the declared default is NOT_IMPLEMENTED.
	NotImplemented bool
}

// Validate checks an input value and returns it normalized to the
// variable's type: int, string or bool. A nil value selects the default.
func (v *StateVariable) Validate(param string, value any) (any, error) {
	if value == nil {
		if v.Default == nil || v.NotImplemented {
			return nil, NewParameterRequiredError(param)
		}
		return v.Default, nil
	}

	switch v.Type {
	case TypeInteger:
		n, err := toInt(value)
		if err != nil {
			return nil, NewParameterTypeError(param, err.Error())
		}
		if (v.Minimum != nil && n < *v.Minimum) || (v.Maximum != nil && n > *v.Maximum) {
			return nil, NewParameterRangeError(param, n, v.Minimum, v.Maximum)
		}
		return n, nil

	case TypeBoolean:
		b, ok := toBool(value)
		if !ok {
			return nil, NewParameterTypeError(param, "boolean value only allowed (0, 1, true, false)")
		}
		return b, nil

	default:
		s, ok := value.(string)
		if !ok {
			if st, isStringer := value.(fmt.Stringer); isStringer {
				s, ok = st.String(), true
			}
		}
		if !ok {
			return nil, NewParameterTypeError(param, fmt.Sprintf("expected a string, got %T", value))
		}
		if v.AllowedValues != nil && !slices.Contains(v.AllowedValues, s) {
			return nil, NewParameterEnumError(param, s, v.AllowedValues)
		}
		return s, nil
	}
}

// Convert turns the text of an output element into a typed value. Empty
// text yields the default, which is the string NOT_IMPLEMENTED for variables
// declared that way. Integers that fail to parse are returned as the raw
// text.
func (v *StateVariable) Convert(text string) any {
	if text == "" {
		if v.NotImplemented {
			return notImplemented
		}
		return v.Default
	}

	switch v.Type {
	case TypeBoolean:
		switch text {
		case "Yes":
			return true
		case "No":
			return false
		}
		if n, err := strconv.Atoi(text); err == nil {
			return n != 0
		}
		if b, err := strconv.ParseBool(text); err == nil {
			return b
		}
		return true

	case TypeInteger:
		n, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return text
		}
		return n

	default:
		return text
	}
}

// Format renders a validated value as SOAP element text.
func (v *StateVariable) Format(value any) string {
	switch x := value.(type) {
	case bool:
		if x {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func (v *StateVariable) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)", v.Name, v.RawType)
	if v.NotImplemented {
		b.WriteString(" default=NOT_IMPLEMENTED")
	} else if v.Default != nil {
		fmt.Fprintf(&b, " default=%v", v.Default)
	}
	if v.Minimum != nil {
		fmt.Fprintf(&b, " min=%d", *v.Minimum)
	}
	if v.Maximum != nil {
		fmt.Fprintf(&b, " max=%d", *v.Maximum)
	}
	if v.Step != nil {
		fmt.Fprintf(&b, " step=%d", *v.Step)
	}
	if v.AllowedValues != nil {
		fmt.Fprintf(&b, " allowed=%s", strings.Join(v.AllowedValues, "|"))
	}
	return b.String()
}

func toInt(value any) (int, error) {
	switch x := value.(type) {
	case int:
		return x, nil
	case int8:
		return int(x), nil
	case int16:
		return int(x), nil
	case int32:
		return int(x), nil
	case int64:
		if x > math.MaxInt || x < math.MinInt {
			return 0, fmt.Errorf("%d overflows int", x)
		}
		return int(x), nil
	case uint8:
		return int(x), nil
	case uint16:
		return int(x), nil
	case uint32:
		return int(x), nil
	case uint:
		if uint64(x) > math.MaxInt {
			return 0, fmt.Errorf("%d overflows int", x)
		}
		return int(x), nil
	case uint64:
		if x > math.MaxInt {
			return 0, fmt.Errorf("%d overflows int", x)
		}
		return int(x), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", value)
	}
}

func toBool(value any) (bool, bool) {
	switch x := value.(type) {
	case bool:
		return x, true
	case int:
		if x == 0 || x == 1 {
			return x == 1, true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "0", "false":
			return false, true
		case "1", "true":
			return true, true
		}
	}
	return false, false
}

// parseDefault converts a declared defaultValue to the variable's type.
// Values that do not parse are kept as text.
func parseDefault(t DataType, raw string) any {
	switch t {
	case TypeInteger:
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			return n
		}
	case TypeBoolean:
		if b, ok := toBool(raw); ok {
			return b
		}
	}
	return raw
}
