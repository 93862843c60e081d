package upnp

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

const testDeviceXML = `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0" xmlns:sec="http://www.sec.co.kr/dlna">
  <specVersion><major>1</major><minor>0</minor></specVersion>
  <device>
    <deviceType>urn:schemas-upnp-org:device:MediaRenderer:1</deviceType>
    <friendlyName>[TV] Living Room</friendlyName>
    <manufacturer>Samsung Electronics</manufacturer>
    <modelName>UE55KS7000</modelName>
    <modelNumber>AllShare1.0</modelNumber>
    <serialNumber>20090804RCR</serialNumber>
    <UDN>uuid:0ee6b280-00fa-1000-8d3a-f47b5e2a1b2c</UDN>
    <sec:deviceID>TNCEFWZKF3RM4</sec:deviceID>
    <iconList>
      <icon><mimetype>image/png</mimetype><width>48</width><height>48</height><depth>24</depth><url>icon_SML.png</url></icon>
    </iconList>
    <serviceList>
      <service>
        <serviceType>urn:schemas-upnp-org:service:RenderingControl:1</serviceType>
        <serviceId>urn:upnp-org:serviceId:RenderingControl</serviceId>
        <controlURL>/dmr/control/rc</controlURL>
        <eventSubURL>/dmr/event/rc</eventSubURL>
        <SCPDURL>RenderingControl.xml</SCPDURL>
      </service>
    </serviceList>
  </device>
</root>`

const testSCPDXML = `<?xml version="1.0"?>
<scpd xmlns="urn:schemas-upnp-org:service-1-0">
  <actionList>
    <action>
      <name>GetVolume</name>
      <argumentList>
        <argument><name>InstanceID</name><direction>in</direction><relatedStateVariable>A_ARG_TYPE_InstanceID</relatedStateVariable></argument>
        <argument><name>Channel</name><direction>in</direction><relatedStateVariable>A_ARG_TYPE_Channel</relatedStateVariable></argument>
        <argument><name>CurrentVolume</name><direction>out</direction><relatedStateVariable>Volume</relatedStateVariable></argument>
      </argumentList>
    </action>
    <action>
      <name>SetVolume</name>
      <argumentList>
        <argument><name>InstanceID</name><direction>in</direction><relatedStateVariable>A_ARG_TYPE_InstanceID</relatedStateVariable></argument>
        <argument><name>Channel</name><direction>in</direction><relatedStateVariable>A_ARG_TYPE_Channel</relatedStateVariable></argument>
        <argument><name>DesiredVolume</name><direction>in</direction><relatedStateVariable>Volume</relatedStateVariable></argument>
      </argumentList>
    </action>
    <action>
      <name>GetMute</name>
      <argumentList>
        <argument><name>InstanceID</name><direction>in</direction><relatedStateVariable>A_ARG_TYPE_InstanceID</relatedStateVariable></argument>
        <argument><name>Channel</name><direction>in</direction><relatedStateVariable>A_ARG_TYPE_Channel</relatedStateVariable></argument>
        <argument><name>CurrentMute</name><direction>out</direction><relatedStateVariable>Mute</relatedStateVariable></argument>
      </argumentList>
    </action>
    <action>
      <name>SelectPreset</name>
      <argumentList>
        <argument><name>InstanceID</name><direction>in</direction><relatedStateVariable>A_ARG_TYPE_InstanceID</relatedStateVariable></argument>
        <argument><name>PresetName</name><direction>in</direction><relatedStateVariable>A_ARG_TYPE_PresetName</relatedStateVariable></argument>
      </argumentList>
    </action>
  </actionList>
  <serviceStateTable>
    <stateVariable sendEvents="no">
      <name>A_ARG_TYPE_InstanceID</name>
      <dataType>ui4</dataType>
    </stateVariable>
    <stateVariable sendEvents="no">
      <name>A_ARG_TYPE_Channel</name>
      <dataType>string</dataType>
      <defaultValue>Master</defaultValue>
      <allowedValueList><allowedValue>Master</allowedValue><allowedValue>LF</allowedValue></allowedValueList>
    </stateVariable>
    <stateVariable sendEvents="no">
      <name>Volume</name>
      <dataType>ui2</dataType>
      <defaultValue>25</defaultValue>
      <allowedValueRange><minimum>0</minimum><maximum>100</maximum><step>1</step></allowedValueRange>
    </stateVariable>
    <stateVariable sendEvents="no">
      <name>Mute</name>
      <dataType>boolean</dataType>
      <defaultValue>0</defaultValue>
    </stateVariable>
    <stateVariable sendEvents="no">
      <name>A_ARG_TYPE_PresetName</name>
      <dataType>string</dataType>
      <defaultValue>NOT_IMPLEMENTED</defaultValue>
    </stateVariable>
  </serviceStateTable>
</scpd>`

// soapCall is one request seen by the fake control endpoint.
type soapCall struct {
	Action string
	Body   string
}

// fakeTV serves the device description, the SCPD and a control endpoint
// whose reply is chosen per test.
type fakeTV struct {
	*httptest.Server

	mu      sync.Mutex
	calls   []soapCall
	status  int
	reply   string
	fetches int
}

func newFakeTV(t *testing.T) *fakeTV {
	t.Helper()
	tv := &fakeTV{status: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("/dmr/desc.xml", func(w http.ResponseWriter, r *http.Request) {
		tv.mu.Lock()
		tv.fetches++
		tv.mu.Unlock()
		w.Header().Set("Content-Type", "text/xml")
		io.WriteString(w, testDeviceXML)
	})
	mux.HandleFunc("/dmr/RenderingControl.xml", func(w http.ResponseWriter, r *http.Request) {
		tv.mu.Lock()
		tv.fetches++
		tv.mu.Unlock()
		w.Header().Set("Content-Type", "text/xml")
		io.WriteString(w, testSCPDXML)
	})
	mux.HandleFunc("/dmr/control/rc", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		tv.mu.Lock()
		tv.calls = append(tv.calls, soapCall{Action: r.Header.Get("SOAPAction"), Body: string(body)})
		status, reply := tv.status, tv.reply
		tv.mu.Unlock()
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(status)
		io.WriteString(w, reply)
	})

	tv.Server = httptest.NewServer(mux)
	t.Cleanup(tv.Close)
	return tv
}

func (tv *fakeTV) respond(status int, reply string) {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	tv.status, tv.reply = status, reply
}

func (tv *fakeTV) soapCalls() []soapCall {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	return append([]soapCall(nil), tv.calls...)
}

func soapResponse(action, inner string) string {
	return `<?xml version="1.0"?>` +
		`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">` +
		`<s:Body><u:` + action + `Response xmlns:u="urn:schemas-upnp-org:service:RenderingControl:1">` + inner +
		`</u:` + action + `Response></s:Body></s:Envelope>`
}
