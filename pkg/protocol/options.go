package protocol

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/net/http/httpguts"
)

// DefaultOrigin is the origin used for inline html when none was given.
const DefaultOrigin = "init"

//go:embed options.schema.json
var optionsSchema string

var optionsSchemaLoader = gojsonschema.NewStringLoader(optionsSchema)

// OptionsSchema returns the JSON Schema startup options are validated against.
func OptionsSchema() string {
	return optionsSchema
}

// OptionsError reports an invalid startup options document.
type OptionsError struct {
	Problems []string
	Err      error
}

func (e *OptionsError) Error() string {
	if len(e.Problems) > 0 {
		return "invalid options: " + strings.Join(e.Problems, "; ")
	}
	return fmt.Sprintf("invalid options: %v", e.Err)
}

func (e *OptionsError) Unwrap() error {
	return e.Err
}

// Content is what the window shows at startup: URLContent or HTMLContent.
type Content interface {
	isContent()
}

type URLContent struct {
	URL     string
	Headers map[string]string
}

type HTMLContent struct {
	HTML   string
	Origin string
}

func (URLContent) isContent()  {}
func (HTMLContent) isContent() {}

// SizeMode selects how the initial window size is interpreted.
type SizeMode string

const (
	SizeMaximized  SizeMode = "maximized"
	SizeFullscreen SizeMode = "fullscreen"
	SizeLogical    SizeMode = "logical"
)

// WindowSize is the initial window size.
type WindowSize struct {
	Mode   SizeMode
	Width  float64
	Height float64
}

// Options configures the window before it is created.
type Options struct {
	Title                string
	Load                 Content
	Size                 *WindowSize
	Decorations          bool
	Transparent          bool
	Autoplay             bool
	Devtools             bool
	Incognito            bool
	Clipboard            bool
	Focused              bool
	AcceptFirstMouse     bool
	IPC                  bool
	InitializationScript string
	UserAgent            string
}

type optionsWire struct {
	Title                string          `json:"title"`
	Load                 json.RawMessage `json:"load,omitempty"`
	Size                 json.RawMessage `json:"size,omitempty"`
	Decorations          *bool           `json:"decorations,omitempty"`
	Transparent          bool            `json:"transparent,omitempty"`
	Autoplay             bool            `json:"autoplay,omitempty"`
	Devtools             bool            `json:"devtools,omitempty"`
	Incognito            bool            `json:"incognito,omitempty"`
	Clipboard            bool            `json:"clipboard,omitempty"`
	Focused              bool            `json:"focused,omitempty"`
	AcceptFirstMouse     bool            `json:"acceptFirstMouse,omitempty"`
	IPC                  bool            `json:"ipc,omitempty"`
	InitializationScript *string         `json:"initializationScript,omitempty"`
	UserAgent            *string         `json:"userAgent,omitempty"`
}

type contentWire struct {
	URL     *string           `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	HTML    *string           `json:"html,omitempty"`
	Origin  *string           `json:"origin,omitempty"`
}

// ParseOptions validates data against the options schema and decodes it.
func ParseOptions(data []byte) (Options, error) {
	result, err := gojsonschema.Validate(optionsSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Options{}, &OptionsError{Err: err}
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return Options{}, &OptionsError{Problems: problems}
	}

	var wire optionsWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return Options{}, &OptionsError{Err: err}
	}
	opts := Options{
		Title:            wire.Title,
		Decorations:      wire.Decorations == nil || *wire.Decorations,
		Transparent:      wire.Transparent,
		Autoplay:         wire.Autoplay,
		Devtools:         wire.Devtools,
		Incognito:        wire.Incognito,
		Clipboard:        wire.Clipboard,
		Focused:          wire.Focused,
		AcceptFirstMouse: wire.AcceptFirstMouse,
		IPC:              wire.IPC,
	}
	if wire.InitializationScript != nil {
		opts.InitializationScript = *wire.InitializationScript
	}
	if wire.UserAgent != nil {
		opts.UserAgent = *wire.UserAgent
	}
	if opts.Load, err = decodeContent(wire.Load); err != nil {
		return Options{}, &OptionsError{Err: err}
	}
	if opts.Size, err = decodeWindowSize(wire.Size); err != nil {
		return Options{}, &OptionsError{Err: err}
	}
	return opts, nil
}

func isNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

// decodeContent discriminates by field presence: url wins, then html.
func decodeContent(raw json.RawMessage) (Content, error) {
	if isNull(raw) {
		return nil, nil
	}
	var w contentWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	switch {
	case w.URL != nil:
		if err := ValidateHeaders(w.Headers); err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
		return URLContent{URL: *w.URL, Headers: w.Headers}, nil
	case w.HTML != nil:
		origin := DefaultOrigin
		if w.Origin != nil {
			origin = *w.Origin
		}
		return HTMLContent{HTML: *w.HTML, Origin: origin}, nil
	default:
		return nil, errors.New("load: expected url or html")
	}
}

func decodeWindowSize(raw json.RawMessage) (*WindowSize, error) {
	if isNull(raw) {
		return nil, nil
	}
	var mode string
	if err := json.Unmarshal(raw, &mode); err == nil {
		switch SizeMode(mode) {
		case SizeMaximized, SizeFullscreen:
			return &WindowSize{Mode: SizeMode(mode)}, nil
		}
		return nil, fmt.Errorf("size: unknown mode %q", mode)
	}
	var s Size
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("size: %w", err)
	}
	return &WindowSize{Mode: SizeLogical, Width: s.Width, Height: s.Height}, nil
}

// ValidateHeaders rejects header names or values that cannot be sent over HTTP.
func ValidateHeaders(headers map[string]string) error {
	for name, value := range headers {
		if !httpguts.ValidHeaderFieldName(name) {
			return fmt.Errorf("invalid header name %q", name)
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return fmt.Errorf("invalid value for header %q", name)
		}
	}
	return nil
}

// MarshalJSON renders the options document the host binary accepts.
func (o Options) MarshalJSON() ([]byte, error) {
	decorations := o.Decorations
	wire := optionsWire{
		Title:            o.Title,
		Decorations:      &decorations,
		Transparent:      o.Transparent,
		Autoplay:         o.Autoplay,
		Devtools:         o.Devtools,
		Incognito:        o.Incognito,
		Clipboard:        o.Clipboard,
		Focused:          o.Focused,
		AcceptFirstMouse: o.AcceptFirstMouse,
		IPC:              o.IPC,
	}
	if o.InitializationScript != "" {
		wire.InitializationScript = &o.InitializationScript
	}
	if o.UserAgent != "" {
		wire.UserAgent = &o.UserAgent
	}
	var err error
	switch c := o.Load.(type) {
	case URLContent:
		wire.Load, err = marshal(contentWire{URL: &c.URL, Headers: c.Headers})
	case HTMLContent:
		wire.Load, err = marshal(contentWire{HTML: &c.HTML, Origin: &c.Origin})
	}
	if err != nil {
		return nil, err
	}
	if o.Size != nil {
		switch o.Size.Mode {
		case SizeMaximized, SizeFullscreen:
			wire.Size, err = marshal(string(o.Size.Mode))
		default:
			wire.Size, err = marshal(Size{Width: o.Size.Width, Height: o.Size.Height})
		}
		if err != nil {
			return nil, err
		}
	}
	return marshal(wire)
}
