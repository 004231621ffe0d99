package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID correlates a request with its response. Peers choose either strings or
// integers; the form a peer used is kept when the id is echoed back.
type ID struct {
	str   string
	num   int64
	isNum bool
}

// StringID returns a string correlation id.
func StringID(s string) ID {
	return ID{str: s}
}

// IntID returns an integer correlation id.
func IntID(n int64) ID {
	return ID{num: n, isNum: true}
}

// IsInt reports whether the id is an integer.
func (id ID) IsInt() bool {
	return id.isNum
}

// Int returns the integer form of the id, or 0 for string ids.
func (id ID) Int() int64 {
	return id.num
}

func (id ID) String() string {
	if id.isNum {
		return strconv.FormatInt(id.num, 10)
	}
	return id.str
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.isNum {
		return strconv.AppendInt(nil, id.num, 10), nil
	}
	return json.Marshal(id.str)
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("id must be a string or an integer, got %s", b)
	}
	*id = IntID(n)
	return nil
}
