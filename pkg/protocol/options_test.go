package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptionsDefaults(t *testing.T) {
	opts, err := ParseOptions([]byte(`{"title":"Demo"}`))
	require.NoError(t, err)
	assert.Equal(t, Options{Title: "Demo", Decorations: true}, opts)
}

func TestParseOptionsFull(t *testing.T) {
	opts, err := ParseOptions([]byte(`{
		"title": "Demo",
		"load": {"url": "https://example.com", "headers": {"Authorization": "Bearer x"}},
		"size": {"width": 640, "height": 480},
		"decorations": false,
		"transparent": true,
		"autoplay": true,
		"devtools": true,
		"incognito": true,
		"clipboard": true,
		"focused": true,
		"acceptFirstMouse": true,
		"ipc": true,
		"initializationScript": "window.x = 1",
		"userAgent": "wv/1"
	}`))
	require.NoError(t, err)
	assert.Equal(t, Options{
		Title:                "Demo",
		Load:                 URLContent{URL: "https://example.com", Headers: map[string]string{"Authorization": "Bearer x"}},
		Size:                 &WindowSize{Mode: SizeLogical, Width: 640, Height: 480},
		Transparent:          true,
		Autoplay:             true,
		Devtools:             true,
		Incognito:            true,
		Clipboard:            true,
		Focused:              true,
		AcceptFirstMouse:     true,
		IPC:                  true,
		InitializationScript: "window.x = 1",
		UserAgent:            "wv/1",
	}, opts)
}

func TestParseOptionsContent(t *testing.T) {
	tests := []struct {
		name string
		load string
		want Content
	}{
		{"html default origin", `{"html":"<p/>"}`, HTMLContent{HTML: "<p/>", Origin: DefaultOrigin}},
		{"html with origin", `{"html":"<p/>","origin":"app"}`, HTMLContent{HTML: "<p/>", Origin: "app"}},
		{"url wins", `{"url":"https://a.test","html":"<p/>"}`, URLContent{URL: "https://a.test"}},
		{"null", `null`, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts, err := ParseOptions([]byte(`{"title":"t","load":` + tc.load + `}`))
			require.NoError(t, err)
			assert.Equal(t, tc.want, opts.Load)
		})
	}
}

func TestParseOptionsSizeModes(t *testing.T) {
	for _, mode := range []SizeMode{SizeMaximized, SizeFullscreen} {
		opts, err := ParseOptions([]byte(`{"title":"t","size":"` + string(mode) + `"}`))
		require.NoError(t, err)
		assert.Equal(t, &WindowSize{Mode: mode}, opts.Size)
	}
}

func TestParseOptionsInvalid(t *testing.T) {
	for name, doc := range map[string]string{
		"not json":        `{"title":`,
		"missing title":   `{}`,
		"title type":      `{"title":1}`,
		"empty load":      `{"title":"t","load":{}}`,
		"bad size mode":   `{"title":"t","size":"huge"}`,
		"partial size":    `{"title":"t","size":{"width":1}}`,
		"flag type":       `{"title":"t","devtools":"yes"}`,
		"bad header name": `{"title":"t","load":{"url":"https://a.test","headers":{"Bad Name":"v"}}}`,
		"bad header val":  `{"title":"t","load":{"url":"https://a.test","headers":{"X":"a\nb"}}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseOptions([]byte(doc))
			var optErr *OptionsError
			require.ErrorAs(t, err, &optErr)
			assert.NotEmpty(t, optErr.Error())
		})
	}
}

func TestOptionsMarshalRoundTrip(t *testing.T) {
	in := Options{
		Title:       "Demo",
		Load:        HTMLContent{HTML: "<b>x</b>", Origin: "app"},
		Size:        &WindowSize{Mode: SizeMaximized},
		Decorations: false,
		Devtools:    true,
		IPC:         true,
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	out, err := ParseOptions(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestOptionsSchemaIsValidJSON(t *testing.T) {
	assert.True(t, json.Valid([]byte(OptionsSchema())))
}
