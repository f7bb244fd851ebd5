// Package json decodes raw feed files into typed records.
//
// A feed file may hold any of the shapes seen in the wild:
//
//   - a single JSON object:            {"song_id":"S1", ...}
//   - a top-level array of objects:    [ {...}, {...} ]
//   - newline-delimited JSON objects:  {...}\n{...}\n
//
// Decoding uses goccy/go-json, a drop-in replacement for encoding/json.
package json

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// Options controls DecodeAll.
type Options struct {
	// AllowArrays accepts top-level arrays of objects anywhere in the stream.
	AllowArrays bool
}

// Decoder yields one T per top-level JSON object in a stream.
type Decoder[T any] struct {
	dec *json.Decoder
}

// NewDecoder constructs a Decoder reading from r.
func NewDecoder[T any](r io.Reader) *Decoder[T] {
	return &Decoder[T]{dec: json.NewDecoder(r)}
}

// Next decodes the next top-level JSON object into a T. A top-level value
// that is not an object is an error. io.EOF is returned when the stream is
// exhausted.
func (d *Decoder[T]) Next() (T, error) {
	var zero T
	raw, err := d.nextRaw()
	if err != nil {
		return zero, err
	}
	if raw[0] != '{' {
		return zero, fmt.Errorf("json parser: unsupported top-level JSON value %.16q", raw)
	}
	return unmarshal[T](raw)
}

func (d *Decoder[T]) nextRaw() (json.RawMessage, error) {
	var raw json.RawMessage
	if err := d.dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("json parser: decode: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, io.EOF
	}
	return raw, nil
}

func unmarshal[T any](raw []byte) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("json parser: decode object: %w", err)
	}
	return v, nil
}

// DecodeAll reads every record from r.
//
// Top-level objects are decoded in order. Top-level arrays (when
// opt.AllowArrays is set) are expanded element by element in place, wherever
// they appear in the stream. Any other top-level value fails the whole read,
// so a caller never gets a silently shortened result. An empty reader yields
// (nil, nil).
func DecodeAll[T any](r io.Reader, opt Options) ([]T, error) {
	d := NewDecoder[T](r)

	var out []T
	for n := 0; ; n++ {
		raw, err := d.nextRaw()
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			return nil, err
		}

		switch raw[0] {
		case '{':
			v, err := unmarshal[T](raw)
			if err != nil {
				return nil, fmt.Errorf("json parser: value %d: %w", n, err)
			}
			out = append(out, v)

		case '[':
			if !opt.AllowArrays {
				return nil, fmt.Errorf("json parser: top-level array encountered but allow_arrays=false")
			}
			elems, err := decodeArray[T](raw)
			if err != nil {
				return nil, fmt.Errorf("json parser: value %d: %w", n, err)
			}
			out = append(out, elems...)

		default:
			return nil, fmt.Errorf("json parser: value %d: unsupported top-level JSON value %.16q", n, raw)
		}
	}
}

func decodeArray[T any](raw []byte) ([]T, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("decode array: %w", err)
	}
	out := make([]T, 0, len(elems))
	for i, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			return nil, fmt.Errorf("element %d in array is not an object", i)
		}
		v, err := unmarshal[T](elem)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
