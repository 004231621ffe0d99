package frame

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-json-experiment/json/jsontext"
)

// ErrTopLevelScalar is returned when the stream carries a bare string, number,
// boolean or null outside of any object or array.
var ErrTopLevelScalar = errors.New("frame: top-level scalar values are not supported")

// SyntaxError reports a malformed token. The stream cannot be resynchronized
// past it, so the decoder that produced it is finished.
type SyntaxError struct {
	Offset int64
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("frame: malformed json at offset %d: %v", e.Offset, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Decoder rebuilds complete top-level JSON objects and arrays from a byte
// stream, one token at a time. A frame is returned the moment its closing
// bracket is read; the decoder never waits for the end of the stream.
type Decoder struct {
	tokens *jsontext.Decoder
	buf    []byte
	stack  []jsontext.Kind
	err    error
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		tokens: jsontext.NewDecoder(r,
			jsontext.AllowDuplicateNames(true),
			jsontext.AllowInvalidUTF8(true),
		),
	}
}

// Depth reports the nesting depth of the frame under construction.
func (d *Decoder) Depth() int {
	return len(d.stack)
}

// Next returns the next complete frame. It returns io.EOF once the stream is
// exhausted; a value cut off by the end of the stream is discarded. Any other
// error is permanent and is returned again by every later call.
func (d *Decoder) Next() ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}
	for {
		tok, err := d.tokens.ReadToken()
		if err != nil {
			return nil, d.fail(classify(err))
		}
		kind := tok.Kind()
		switch kind {
		case '{', '[':
			d.separate()
			d.buf = append(d.buf, byte(kind))
			d.stack = append(d.stack, kind)
			continue
		case '}', ']':
			d.buf = append(d.buf, byte(kind))
			d.stack = d.stack[:len(d.stack)-1]
			if len(d.stack) == 0 {
				out := bytes.Clone(d.buf)
				d.buf = d.buf[:0]
				return out, nil
			}
			continue
		}
		if len(d.stack) == 0 {
			return nil, d.fail(ErrTopLevelScalar)
		}
		d.separate()
		switch kind {
		case '"':
			// Inside an object a string not preceded by a colon is a name.
			name := d.stack[len(d.stack)-1] == '{' && d.buf[len(d.buf)-1] != ':'
			d.buf, _ = jsontext.AppendQuote(d.buf, tok.String())
			if name {
				d.buf = append(d.buf, ':')
			}
		case '0':
			d.buf = append(d.buf, tok.String()...)
		case 't':
			d.buf = append(d.buf, "true"...)
		case 'f':
			d.buf = append(d.buf, "false"...)
		case 'n':
			d.buf = append(d.buf, "null"...)
		}
	}
}

// separate inserts a comma unless the buffer ends with an opening bracket or
// a name colon.
func (d *Decoder) separate() {
	n := len(d.buf)
	if n == 0 {
		return
	}
	switch d.buf[n-1] {
	case '{', '[', ':':
	default:
		d.buf = append(d.buf, ',')
	}
}

func (d *Decoder) fail(err error) error {
	d.err = err
	d.buf = d.buf[:0]
	d.stack = d.stack[:0]
	return err
}

func classify(err error) error {
	if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	var serr *jsontext.SyntacticError
	if errors.As(err, &serr) {
		return &SyntaxError{Offset: serr.ByteOffset, Err: serr.Err}
	}
	return fmt.Errorf("frame: read: %w", err)
}
