package protocol

import (
	"encoding/json"
	"fmt"
)

// Value is the payload of a Result.
type Value interface {
	tag() string
}

type StringValue string

type BoolValue bool

type FloatValue float64

// SizeValue is a window size with the display scale factor.
type SizeValue struct {
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	ScaleFactor float64 `json:"scaleFactor"`
}

func (StringValue) tag() string { return "string" }
func (BoolValue) tag() string   { return "boolean" }
func (FloatValue) tag() string  { return "float" }
func (SizeValue) tag() string   { return "size" }

type valueBody struct {
	Value Value `json:"value"`
}

func decodeValue(data []byte) (Value, error) {
	obj, err := parseObject(data)
	if err != nil {
		return nil, err
	}
	tag, err := obj.tag()
	if err != nil {
		return nil, err
	}
	if err := obj.require("value"); err != nil {
		return nil, err
	}
	raw := obj["value"]
	switch tag {
	case "string":
		var v StringValue
		err = json.Unmarshal(raw, &v)
		return v, err
	case "boolean":
		var v BoolValue
		err = json.Unmarshal(raw, &v)
		return v, err
	case "float":
		var v FloatValue
		err = json.Unmarshal(raw, &v)
		return v, err
	case "size":
		var v SizeValue
		err = json.Unmarshal(raw, &v)
		return v, err
	default:
		return nil, fmt.Errorf("result value: %w %q", ErrUnknownType, tag)
	}
}
