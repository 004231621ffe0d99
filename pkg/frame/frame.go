package frame

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sync"
)

// Framing selects how frames are delimited on a stream.
type Framing string

const (
	// NDJSON frames are found by bracket depth inbound and terminated by a
	// newline outbound.
	NDJSON Framing = "ndjson"
	// Null frames are terminated by a single 0x00 byte in both directions.
	Null Framing = "null"
)

// ParseFraming maps a configuration value onto a Framing. Empty selects NDJSON.
func ParseFraming(s string) (Framing, error) {
	switch Framing(s) {
	case "", NDJSON:
		return NDJSON, nil
	case Null:
		return Null, nil
	default:
		return "", fmt.Errorf("unknown framing %q (want %q or %q)", s, NDJSON, Null)
	}
}

// Delimiter returns the byte written after every outbound frame.
func (f Framing) Delimiter() byte {
	if f == Null {
		return 0
	}
	return '\n'
}

// Reader yields complete frames from an inbound stream.
type Reader interface {
	Next() ([]byte, error)
}

// NewReader returns the inbound Reader for the framing.
func NewReader(r io.Reader, f Framing) Reader {
	if f == Null {
		return NewDelimitedReader(r, 0)
	}
	return NewDecoder(r)
}

// DelimitedReader splits a stream on a delimiter byte instead of tracking
// bracket depth.
type DelimitedReader struct {
	r     *bufio.Reader
	delim byte
}

// NewDelimitedReader returns a DelimitedReader splitting r on delim.
func NewDelimitedReader(r io.Reader, delim byte) *DelimitedReader {
	return &DelimitedReader{r: bufio.NewReader(r), delim: delim}
}

// Next returns the bytes before the next delimiter, with the delimiter
// stripped. Blank segments are skipped and trailing bytes without a
// delimiter are dropped at end of stream.
func (d *DelimitedReader) Next() ([]byte, error) {
	for {
		seg, err := d.r.ReadBytes(d.delim)
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("frame: read: %w", err)
		}
		seg = seg[:len(seg)-1]
		if len(bytes.TrimSpace(seg)) == 0 {
			continue
		}
		return seg, nil
	}
}

// Writer writes one delimited frame at a time and flushes after each, so the
// peer sees every frame as soon as it is complete. It is safe for concurrent use.
type Writer struct {
	mu    sync.Mutex
	w     *bufio.Writer
	delim byte
}

// NewWriter returns a Writer for the framing.
func NewWriter(w io.Writer, f Framing) *Writer {
	return NewDelimitedWriter(w, f.Delimiter())
}

// NewDelimitedWriter returns a Writer terminating frames with delim.
func NewDelimitedWriter(w io.Writer, delim byte) *Writer {
	return &Writer{w: bufio.NewWriter(w), delim: delim}
}

// WriteFrame writes payload followed by the delimiter and flushes.
func (w *Writer) WriteFrame(payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(payload); err != nil {
		return err
	}
	if err := w.w.WriteByte(w.delim); err != nil {
		return err
	}
	return w.w.Flush()
}
