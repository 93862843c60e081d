// Package upnp is a small UPnP control point: it fetches device
// descriptions, parses each service's SCPD into typed actions, and invokes
// those actions over SOAP.
//
// Services and actions are looked up by name from maps built once at
// parse time:
//
//	client := upnp.NewClient(logger)
//	dev, err := client.DescribeURL(ctx, "http://10.0.0.5:7676/smp_2_")
//	if err != nil {
//	    return err
//	}
//	getVolume, err := dev.Action("RenderingControl", "GetVolume")
//	if err != nil {
//	    return err
//	}
//	out, err := getVolume.Invoke(ctx, map[string]any{"InstanceID": 0, "Channel": "Master"})
//
// # Validation
//
// Inputs are checked against their state variable before any request is
// sent. Integers must fall inside a declared allowedValueRange (bounds
// inclusive), strings inside a declared allowedValueList, and booleans must
// be one of 0, 1, true or false. A missing input takes the variable's
// default; a variable without one, or with the NOT_IMPLEMENTED marker,
// makes the input mandatory.
//
// # Responses
//
// Outputs are read from the ActionNameResponse element by tag name and
// converted through their state variable. Absent or empty elements yield
// the declared default. Any non-2xx reply or SOAP fault is returned as a
// SoapFault error carrying the raw body; nothing is retried.
package upnp
