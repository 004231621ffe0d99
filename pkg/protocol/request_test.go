package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func TestRequestRoundTrip(t *testing.T) {
	requests := []Request{
		GetVersion{ID: StringID("1")},
		GetVersion{ID: IntID(42)},
		Eval{ID: IntID(2), JS: `document.title = "x\n"`},
		SetTitle{ID: StringID("t"), Title: "héllo <b>"},
		GetTitle{ID: IntID(3)},
		SetVisibility{ID: IntID(4), Visible: true},
		SetVisibility{ID: IntID(5), Visible: false},
		IsVisible{ID: IntID(6)},
		OpenDevTools{ID: IntID(7)},
		GetSize{ID: IntID(8)},
		GetSize{ID: IntID(9), IncludeDecorations: boolPtr(true)},
		GetSize{ID: IntID(10), IncludeDecorations: boolPtr(false)},
		SetSize{ID: IntID(11), Size: Size{Width: 800, Height: 600.5}},
		Fullscreen{ID: IntID(12)},
		Fullscreen{ID: IntID(13), Fullscreen: boolPtr(true)},
		Maximize{ID: IntID(14)},
		Maximize{ID: IntID(15), Maximized: boolPtr(false)},
		Minimize{ID: IntID(16)},
		Minimize{ID: IntID(17), Minimized: boolPtr(true)},
		LoadHTML{ID: IntID(18), HTML: "<h1>hi</h1>"},
		LoadHTML{ID: IntID(19), HTML: "<p/>", Origin: strPtr("app")},
		LoadURL{ID: IntID(20), URL: "https://example.com"},
		LoadURL{ID: IntID(21), URL: "https://example.com", Headers: map[string]string{"X-Token": "abc"}},
	}

	seen := map[string]bool{}
	for _, req := range requests {
		t.Run(req.Op()+"/"+req.RequestID().String(), func(t *testing.T) {
			data, err := EncodeRequest(req)
			require.NoError(t, err)
			got, err := DecodeRequest(data)
			require.NoError(t, err, "frame: %s", data)
			assert.Equal(t, req, got)
		})
		seen[req.Op()] = true
	}
	for _, op := range Ops() {
		assert.True(t, seen[op], "op %s not covered", op)
	}
}

func TestEncodeRequestWireShape(t *testing.T) {
	data, err := EncodeRequest(SetTitle{ID: StringID("2"), Title: "X"})
	require.NoError(t, err)
	assert.Equal(t, `{"$type":"setTitle","id":"2","title":"X"}`, string(data))

	data, err = EncodeRequest(GetSize{ID: IntID(1)})
	require.NoError(t, err)
	assert.Equal(t, `{"$type":"getSize","id":1}`, string(data))
}

func TestDecodeRequestOptionalNull(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"$type":"fullscreen","id":1,"fullscreen":null}`))
	require.NoError(t, err)
	assert.Equal(t, Fullscreen{ID: IntID(1)}, req)
}

func TestDecodeRequestErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  string
	}{
		{"array", `[1,2]`, ""},
		{"missing type", `{"id":1}`, ""},
		{"non-string type", `{"$type":3,"id":1}`, ""},
		{"unknown op", `{"$type":"launchRocket","id":1}`, "launchRocket"},
		{"missing id", `{"$type":"getVersion"}`, "getVersion"},
		{"null id", `{"$type":"getVersion","id":null}`, "getVersion"},
		{"fractional id", `{"$type":"getVersion","id":1.5}`, "getVersion"},
		{"missing title", `{"$type":"setTitle","id":1}`, "setTitle"},
		{"wrong field type", `{"$type":"setVisibility","id":1,"visible":"yes"}`, "setVisibility"},
		{"size without height", `{"$type":"setSize","id":1,"size":{"width":1}}`, "setSize"},
		{"missing url", `{"$type":"loadUrl","id":1,"headers":{}}`, "loadUrl"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeRequest([]byte(tc.frame))
			var decErr *DecodeError
			require.ErrorAs(t, err, &decErr)
			assert.Equal(t, tc.want, decErr.Type)
		})
	}

	_, err := DecodeRequest([]byte(`{"$type":"launchRocket","id":1}`))
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestIDForms(t *testing.T) {
	var id ID
	require.NoError(t, id.UnmarshalJSON([]byte(`"abc"`)))
	assert.False(t, id.IsInt())
	assert.Equal(t, "abc", id.String())

	require.NoError(t, id.UnmarshalJSON([]byte(`-7`)))
	assert.True(t, id.IsInt())
	assert.Equal(t, int64(-7), id.Int())

	// "7" and 7 are different ids.
	assert.NotEqual(t, StringID("7"), IntID(7))

	assert.Error(t, id.UnmarshalJSON([]byte(`true`)))
	assert.Error(t, id.UnmarshalJSON([]byte(`{}`)))
}
