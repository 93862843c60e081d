package upnp

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a UPnP failure
type ErrorType int

const (
	// ErrTypeDescriptorFetch indicates a device or SCPD document could not be retrieved
	ErrTypeDescriptorFetch ErrorType = iota
	// ErrTypeDescriptorParse indicates a malformed or incomplete document
	ErrTypeDescriptorParse
	// ErrTypeParameterRequired indicates a missing input with no usable default
	ErrTypeParameterRequired
	// ErrTypeParameterRange indicates an integer outside its declared range
	ErrTypeParameterRange
	// ErrTypeParameterEnum indicates a string outside its allowed-value list
	ErrTypeParameterEnum
	// ErrTypeParameterType indicates a value that cannot be coerced to the variable's type
	ErrTypeParameterType
	// ErrTypeUnknownParameter indicates an argument the action does not declare
	ErrTypeUnknownParameter
	// ErrTypeUnknownAction indicates a service or action name that does not exist
	ErrTypeUnknownAction
	// ErrTypeSoapFault indicates a non-2xx reply or a SOAP fault from the device
	ErrTypeSoapFault
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeDescriptorFetch:
		return "Descriptor Fetch Error"
	case ErrTypeDescriptorParse:
		return "Descriptor Parse Error"
	case ErrTypeParameterRequired:
		return "Parameter Required"
	case ErrTypeParameterRange:
		return "Parameter Out Of Range"
	case ErrTypeParameterEnum:
		return "Parameter Not Allowed"
	case ErrTypeParameterType:
		return "Parameter Type Error"
	case ErrTypeUnknownParameter:
		return "Unknown Parameter"
	case ErrTypeUnknownAction:
		return "Unknown Action"
	case ErrTypeSoapFault:
		return "SOAP Fault"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is returned by every operation in this package.
type Error struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	URL        string    // Document or control URL involved (if any)
	Parameter  string    // Argument name for parameter errors
	StatusCode int       // HTTP status code for fetch errors and faults
	Fault      string    // Raw response body for SOAP faults
	Err        error     // Underlying error (if any)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

func NewDescriptorFetchError(url string, statusCode int, err error) *Error {
	msg := fmt.Sprintf("failed to fetch %s", url)
	if statusCode != 0 {
		msg = fmt.Sprintf("failed to fetch %s: HTTP %d", url, statusCode)
	}
	return &Error{Type: ErrTypeDescriptorFetch, Message: msg, URL: url, StatusCode: statusCode, Err: err}
}

func NewDescriptorParseError(url, message string, err error) *Error {
	return &Error{Type: ErrTypeDescriptorParse, Message: message, URL: url, Err: err}
}

func NewParameterRequiredError(param string) *Error {
	return &Error{
		Type:      ErrTypeParameterRequired,
		Message:   fmt.Sprintf("a value for %s must be supplied", param),
		Parameter: param,
	}
}

func NewParameterRangeError(param string, value int, minimum, maximum *int) *Error {
	bound := ""
	switch {
	case minimum != nil && value < *minimum:
		bound = fmt.Sprintf("lower than the minimum of %d", *minimum)
	case maximum != nil && value > *maximum:
		bound = fmt.Sprintf("higher than the maximum of %d", *maximum)
	}
	return &Error{
		Type:      ErrTypeParameterRange,
		Message:   fmt.Sprintf("%s value %d is %s", param, value, bound),
		Parameter: param,
	}
}

func NewParameterEnumError(param, value string, allowed []string) *Error {
	return &Error{
		Type:      ErrTypeParameterEnum,
		Message:   fmt.Sprintf("%s value %q not allowed, allowed values are %v", param, value, allowed),
		Parameter: param,
	}
}

func NewParameterTypeError(param, message string) *Error {
	return &Error{Type: ErrTypeParameterType, Message: fmt.Sprintf("%s: %s", param, message), Parameter: param}
}

func NewUnknownParameterError(action, param string) *Error {
	return &Error{
		Type:      ErrTypeUnknownParameter,
		Message:   fmt.Sprintf("%s has no input argument %s", action, param),
		Parameter: param,
	}
}

func NewUnknownActionError(message string) *Error {
	return &Error{Type: ErrTypeUnknownAction, Message: message}
}

func NewSoapFaultError(url string, statusCode int, fault string) *Error {
	return &Error{
		Type:       ErrTypeSoapFault,
		Message:    fmt.Sprintf("device returned HTTP %d: %s", statusCode, fault),
		URL:        url,
		StatusCode: statusCode,
		Fault:      fault,
	}
}

func isType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

func IsDescriptorFetchError(err error) bool   { return isType(err, ErrTypeDescriptorFetch) }
func IsDescriptorParseError(err error) bool   { return isType(err, ErrTypeDescriptorParse) }
func IsParameterRequiredError(err error) bool { return isType(err, ErrTypeParameterRequired) }
func IsParameterRangeError(err error) bool    { return isType(err, ErrTypeParameterRange) }
func IsParameterEnumError(err error) bool     { return isType(err, ErrTypeParameterEnum) }
func IsUnknownActionError(err error) bool     { return isType(err, ErrTypeUnknownAction) }
func IsSoapFaultError(err error) bool         { return isType(err, ErrTypeSoapFault) }

// IsValidationError reports whether err was raised while checking inputs,
// before any request was sent.
func IsValidationError(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Type {
	case ErrTypeParameterRequired, ErrTypeParameterRange, ErrTypeParameterEnum,
		ErrTypeParameterType, ErrTypeUnknownParameter:
		return true
	}
	return false
}
