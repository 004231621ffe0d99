package protocol

import (
	"encoding/json"
	"errors"
)

// Request ops as they appear in the "$type" tag.
const (
	OpGetVersion    = "getVersion"
	OpEval          = "eval"
	OpSetTitle      = "setTitle"
	OpGetTitle      = "getTitle"
	OpSetVisibility = "setVisibility"
	OpIsVisible     = "isVisible"
	OpOpenDevTools  = "openDevTools"
	OpGetSize       = "getSize"
	OpSetSize       = "setSize"
	OpFullscreen    = "fullscreen"
	OpMaximize      = "maximize"
	OpMinimize      = "minimize"
	OpLoadHTML      = "loadHtml"
	OpLoadURL       = "loadUrl"
)

// Request is a command from the parent. Every request carries a correlation id.
type Request interface {
	Op() string
	RequestID() ID
	isRequest()
}

type GetVersion struct {
	ID ID `json:"id"`
}

// Eval runs JavaScript in the page.
type Eval struct {
	ID ID     `json:"id"`
	JS string `json:"js"`
}

type SetTitle struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
}

type GetTitle struct {
	ID ID `json:"id"`
}

type SetVisibility struct {
	ID      ID   `json:"id"`
	Visible bool `json:"visible"`
}

type IsVisible struct {
	ID ID `json:"id"`
}

type OpenDevTools struct {
	ID ID `json:"id"`
}

// GetSize reports the inner size, or the outer size when IncludeDecorations is set.
type GetSize struct {
	ID                 ID    `json:"id"`
	IncludeDecorations *bool `json:"includeDecorations,omitempty"`
}

type SetSize struct {
	ID   ID   `json:"id"`
	Size Size `json:"size"`
}

// Fullscreen, Maximize and Minimize toggle the current state when the flag is nil.
type Fullscreen struct {
	ID         ID    `json:"id"`
	Fullscreen *bool `json:"fullscreen,omitempty"`
}

type Maximize struct {
	ID        ID    `json:"id"`
	Maximized *bool `json:"maximized,omitempty"`
}

type Minimize struct {
	ID        ID    `json:"id"`
	Minimized *bool `json:"minimized,omitempty"`
}

// LoadHTML replaces the page with html served under origin. A nil origin
// keeps the previous one.
type LoadHTML struct {
	ID     ID      `json:"id"`
	HTML   string  `json:"html"`
	Origin *string `json:"origin,omitempty"`
}

type LoadURL struct {
	ID      ID                `json:"id"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Size is a logical window size.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s *Size) UnmarshalJSON(b []byte) error {
	var raw struct {
		Width  *float64 `json:"width"`
		Height *float64 `json:"height"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Width == nil || raw.Height == nil {
		return errors.New("size requires width and height")
	}
	*s = Size{Width: *raw.Width, Height: *raw.Height}
	return nil
}

func (GetVersion) Op() string    { return OpGetVersion }
func (Eval) Op() string          { return OpEval }
func (SetTitle) Op() string      { return OpSetTitle }
func (GetTitle) Op() string      { return OpGetTitle }
func (SetVisibility) Op() string { return OpSetVisibility }
func (IsVisible) Op() string     { return OpIsVisible }
func (OpenDevTools) Op() string  { return OpOpenDevTools }
func (GetSize) Op() string       { return OpGetSize }
func (SetSize) Op() string       { return OpSetSize }
func (Fullscreen) Op() string    { return OpFullscreen }
func (Maximize) Op() string      { return OpMaximize }
func (Minimize) Op() string      { return OpMinimize }
func (LoadHTML) Op() string      { return OpLoadHTML }
func (LoadURL) Op() string       { return OpLoadURL }

func (r GetVersion) RequestID() ID    { return r.ID }
func (r Eval) RequestID() ID          { return r.ID }
func (r SetTitle) RequestID() ID      { return r.ID }
func (r GetTitle) RequestID() ID      { return r.ID }
func (r SetVisibility) RequestID() ID { return r.ID }
func (r IsVisible) RequestID() ID     { return r.ID }
func (r OpenDevTools) RequestID() ID  { return r.ID }
func (r GetSize) RequestID() ID       { return r.ID }
func (r SetSize) RequestID() ID       { return r.ID }
func (r Fullscreen) RequestID() ID    { return r.ID }
func (r Maximize) RequestID() ID      { return r.ID }
func (r Minimize) RequestID() ID      { return r.ID }
func (r LoadHTML) RequestID() ID      { return r.ID }
func (r LoadURL) RequestID() ID       { return r.ID }

func (GetVersion) isRequest()    {}
func (Eval) isRequest()          {}
func (SetTitle) isRequest()      {}
func (GetTitle) isRequest()      {}
func (SetVisibility) isRequest() {}
func (IsVisible) isRequest()     {}
func (OpenDevTools) isRequest()  {}
func (GetSize) isRequest()       {}
func (SetSize) isRequest()       {}
func (Fullscreen) isRequest()    {}
func (Maximize) isRequest()      {}
func (Minimize) isRequest()      {}
func (LoadHTML) isRequest()      {}
func (LoadURL) isRequest()       {}

type requestKind struct {
	required []string
	decode   func([]byte) (Request, error)
}

func kind[T Request](required ...string) requestKind {
	return requestKind{
		required: required,
		decode: func(data []byte) (Request, error) {
			return decodeAs[T](data)
		},
	}
}

var requestKinds = map[string]requestKind{
	OpGetVersion:    kind[GetVersion](),
	OpEval:          kind[Eval]("js"),
	OpSetTitle:      kind[SetTitle]("title"),
	OpGetTitle:      kind[GetTitle](),
	OpSetVisibility: kind[SetVisibility]("visible"),
	OpIsVisible:     kind[IsVisible](),
	OpOpenDevTools:  kind[OpenDevTools](),
	OpGetSize:       kind[GetSize](),
	OpSetSize:       kind[SetSize]("size"),
	OpFullscreen:    kind[Fullscreen](),
	OpMaximize:      kind[Maximize](),
	OpMinimize:      kind[Minimize](),
	OpLoadHTML:      kind[LoadHTML]("html"),
	OpLoadURL:       kind[LoadURL]("url"),
}

// Ops lists every request op.
func Ops() []string {
	return []string{
		OpGetVersion, OpEval, OpSetTitle, OpGetTitle, OpSetVisibility, OpIsVisible, OpOpenDevTools,
		OpGetSize, OpSetSize, OpFullscreen, OpMaximize, OpMinimize, OpLoadHTML, OpLoadURL,
	}
}

// DecodeRequest maps one frame to a typed request. Failures are scoped to the
// frame and returned as *DecodeError.
func DecodeRequest(data []byte) (Request, error) {
	obj, err := parseObject(data)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	op, err := obj.tag()
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	k, ok := requestKinds[op]
	if !ok {
		return nil, &DecodeError{Type: op, Err: ErrUnknownType}
	}
	if err := obj.require("id"); err != nil {
		return nil, &DecodeError{Type: op, Err: err}
	}
	if err := obj.require(k.required...); err != nil {
		return nil, &DecodeError{Type: op, Err: err}
	}
	req, err := k.decode(data)
	if err != nil {
		return nil, &DecodeError{Type: op, Err: err}
	}
	return req, nil
}

// EncodeRequest renders a request as one frame.
func EncodeRequest(r Request) ([]byte, error) {
	return marshalTagged(r.Op(), r)
}
