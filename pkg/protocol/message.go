package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	envelopeResponse     = "response"
	envelopeNotification = "notification"
)

// Message is anything the host sends to the parent: a Response or a Notification.
type Message interface {
	envelope() string
	tag() string
}

// Response answers exactly one request.
type Response interface {
	Message
	ResponseID() ID
}

// Notification is an unsolicited event.
type Notification interface {
	Message
	isNotification()
}

// Ack acknowledges a request that produced no value.
type Ack struct {
	ID ID `json:"id"`
}

// Result carries the value a request produced.
type Result struct {
	ID    ID    `json:"id"`
	Value Value `json:"result"`
}

// Err reports a failed request.
type Err struct {
	ID      ID     `json:"id"`
	Message string `json:"message"`
}

// Started is sent once the window is up.
type Started struct {
	Version string `json:"version"`
}

// Ipc carries a message posted by page script.
type Ipc struct {
	Message string `json:"message"`
}

// Closed is the last message of a session.
type Closed struct{}

func (Ack) envelope() string     { return envelopeResponse }
func (Result) envelope() string  { return envelopeResponse }
func (Err) envelope() string     { return envelopeResponse }
func (Started) envelope() string { return envelopeNotification }
func (Ipc) envelope() string     { return envelopeNotification }
func (Closed) envelope() string  { return envelopeNotification }

func (Ack) tag() string     { return "ack" }
func (Result) tag() string  { return "result" }
func (Err) tag() string     { return "err" }
func (Started) tag() string { return "started" }
func (Ipc) tag() string     { return "ipc" }
func (Closed) tag() string  { return "closed" }

func (r Ack) ResponseID() ID    { return r.ID }
func (r Result) ResponseID() ID { return r.ID }
func (r Err) ResponseID() ID    { return r.ID }

func (Started) isNotification() {}
func (Ipc) isNotification()     {}
func (Closed) isNotification()  {}

// Type returns the wire tag of m, e.g. "result" or "started".
func Type(m Message) string {
	return m.tag()
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Value == nil {
		return nil, errors.New("result without a value")
	}
	val, err := marshalTagged(r.Value.tag(), valueBody{r.Value})
	if err != nil {
		return nil, err
	}
	return marshal(struct {
		ID     ID              `json:"id"`
		Result json.RawMessage `json:"result"`
	}{r.ID, val})
}

func (r *Result) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID     ID              `json:"id"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, err := decodeValue(raw.Result)
	if err != nil {
		return err
	}
	*r = Result{ID: raw.ID, Value: v}
	return nil
}

// EncodeMessage renders m wrapped in its envelope as one frame.
func EncodeMessage(m Message) ([]byte, error) {
	data, err := marshalTagged(m.tag(), m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.tag(), err)
	}
	return marshal(struct {
		Type string          `json:"$type"`
		Data json.RawMessage `json:"data"`
	}{m.envelope(), data})
}

var messageKinds = map[string]map[string]func([]byte) (Message, error){
	envelopeResponse: {
		"ack":    decodeMessage[Ack]("id"),
		"result": decodeMessage[Result]("id", "result"),
		"err":    decodeMessage[Err]("id", "message"),
	},
	envelopeNotification: {
		"started": decodeMessage[Started]("version"),
		"ipc":     decodeMessage[Ipc]("message"),
		"closed":  decodeMessage[Closed](),
	},
}

func decodeMessage[T Message](required ...string) func([]byte) (Message, error) {
	return func(data []byte) (Message, error) {
		obj, err := parseObject(data)
		if err != nil {
			return nil, err
		}
		if err := obj.require(required...); err != nil {
			return nil, err
		}
		return decodeAs[T](data)
	}
}

// DecodeMessage parses an enveloped host message.
func DecodeMessage(data []byte) (Message, error) {
	env, err := parseObject(data)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	envType, err := env.tag()
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	kinds, ok := messageKinds[envType]
	if !ok {
		return nil, &DecodeError{Type: envType, Err: ErrUnknownType}
	}
	if err := env.require("data"); err != nil {
		return nil, &DecodeError{Type: envType, Err: err}
	}
	body, err := parseObject(env["data"])
	if err != nil {
		return nil, &DecodeError{Type: envType, Err: err}
	}
	tag, err := body.tag()
	if err != nil {
		return nil, &DecodeError{Type: envType, Err: err}
	}
	decode, ok := kinds[tag]
	if !ok {
		return nil, &DecodeError{Type: tag, Err: ErrUnknownType}
	}
	m, err := decode(env["data"])
	if err != nil {
		return nil, &DecodeError{Type: tag, Err: err}
	}
	return m, nil
}
