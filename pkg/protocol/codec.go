package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType is wrapped by decode errors for unrecognized "$type" tags.
var ErrUnknownType = errors.New("unknown $type")

// DecodeError reports a frame that is valid JSON but does not match any known
// message shape. It is scoped to that one frame.
type DecodeError struct {
	Type string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("decode %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("decode message: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// marshal encodes v without HTML escaping so html payloads stay readable.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// marshalTagged encodes the object v with a leading "$type" member.
func marshalTagged(tag string, v any) ([]byte, error) {
	body, err := marshal(v)
	if err != nil {
		return nil, err
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("%s: tagged value must encode as an object", tag)
	}
	head, err := marshal(tag)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+len(head)+12)
	out = append(out, `{"$type":`...)
	out = append(out, head...)
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}
	return out, nil
}

// object is a decoded JSON object kept as raw members.
type object map[string]json.RawMessage

func parseObject(data []byte) (object, error) {
	var obj object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("expected a JSON object")
	}
	return obj, nil
}

func (o object) tag() (string, error) {
	raw, ok := o["$type"]
	if !ok {
		return "", errors.New("missing $type")
	}
	var tag string
	if err := json.Unmarshal(raw, &tag); err != nil || tag == "" {
		return "", fmt.Errorf("invalid $type %s", raw)
	}
	return tag, nil
}

// require checks that every named member is present and not null.
func (o object) require(names ...string) error {
	for _, name := range names {
		raw, ok := o[name]
		if !ok || string(bytes.TrimSpace(raw)) == "null" {
			return fmt.Errorf("missing required field %q", name)
		}
	}
	return nil
}

func decodeAs[T any](data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}
