// notice.go defines the Airbrake notice document.

package brake

import "encoding/xml"

// NoticeVersion is the notice schema version stamped on every notice.
const NoticeVersion = "2.2"

// Notice is the error report sent to the tracking service.
// It holds exactly one error and at most one request.
type Notice struct {
	XMLName xml.Name `xml:"notice"`

	// Version is the schema version marker.
	Version string `xml:"version,attr"`

	// APIKey identifies the project.
	APIKey string `xml:"api-key"`

	// Notifier identifies this client library.
	Notifier Notifier `xml:"notifier"`

	// Error describes the failure.
	Error NoticeError `xml:"error"`

	// Request carries request context. Callers may replace it before Send.
	Request *Request `xml:"request,omitempty"`

	// ServerEnvironment is the configuration snapshot at build time.
	ServerEnvironment ServerEnvironment `xml:"server-environment"`
}

// Notifier is the static identity of the reporting client.
type Notifier struct {
	Name    string `xml:"name"`
	Version string `xml:"version"`
	URL     string `xml:"url"`
}

// ServerEnvironment describes where the failure happened.
type ServerEnvironment struct {
	ProjectRoot     string `xml:"project-root"`
	EnvironmentName string `xml:"environment-name"`
	AppVersion      string `xml:"app-version,omitempty"`
}

// NoticeError is the error block of a notice.
type NoticeError struct {
	// Class is the package-qualified error type.
	Class string `xml:"class"`

	// Message is "<TypeName>: <message>".
	Message string `xml:"message"`

	// CatchingMethod is the display form of the catching function. Not serialized.
	CatchingMethod string `xml:"-"`

	// Backtrace lists frames innermost first.
	Backtrace []TraceLine `xml:"backtrace>line"`
}

// Request is the request block of a notice.
type Request struct {
	URL       string `xml:"url"`
	Component string `xml:"component"`
	Action    string `xml:"action,omitempty"`
	Params    []Var  `xml:"params>var,omitempty"`
	Session   []Var  `xml:"session>var,omitempty"`
	CgiData   []Var  `xml:"cgi-data>var,omitempty"`
}

// varList wraps a var group so an empty group can be left out entirely.
type varList struct {
	Vars []Var `xml:"var"`
}

func newVarList(vars []Var) *varList {
	if len(vars) == 0 {
		return nil
	}
	return &varList{Vars: vars}
}

// MarshalXML writes the request block. encoding/xml ignores omitempty on
// parent>child paths, so empty groups are dropped here instead.
func (r Request) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	out := struct {
		URL       string   `xml:"url"`
		Component string   `xml:"component"`
		Action    string   `xml:"action,omitempty"`
		Params    *varList `xml:"params,omitempty"`
		Session   *varList `xml:"session,omitempty"`
		CgiData   *varList `xml:"cgi-data,omitempty"`
	}{
		URL:       r.URL,
		Component: r.Component,
		Action:    r.Action,
		Params:    newVarList(r.Params),
		Session:   newVarList(r.Session),
		CgiData:   newVarList(r.CgiData),
	}
	return e.EncodeElement(out, start)
}

// Var is a single context key/value pair.
type Var struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}
