// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package binparser

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// The struct codec interprets fields through a packing format string:
// an optional byte-order marker (`<` little, `>` or `!` big) followed by
// format characters, each with an optional repeat count. Supported
// characters: b/B 8-bit, h/H 16-bit, i/I and l/L 32-bit, q/Q 64-bit,
// f/d floating point, c a single character and x a pad byte. Without a
// marker the order is little-endian.

var structSizes = map[byte]int{
	'b': 1, 'B': 1, 'c': 1, 'x': 1,
	'h': 2, 'H': 2,
	'i': 4, 'I': 4, 'l': 4, 'L': 4, 'f': 4,
	'q': 8, 'Q': 8, 'd': 8,
}

// parseStructFormat expands a format string into a byte order and a flat
// sequence of format characters ("3b" becomes b b b).
func parseStructFormat(format string) (binary.ByteOrder, []byte, error) {
	var order binary.ByteOrder = binary.LittleEndian
	i := 0
	if len(format) > 0 {
		switch format[0] {
		case '<', '=', '@':
			i++
		case '>', '!':
			order = binary.BigEndian
			i++
		}
	}

	var codes []byte
	count := 0
	for ; i < len(format); i++ {
		c := format[i]
		switch {
		case c >= '0' && c <= '9':
			count = count*10 + int(c-'0')
			continue
		case c == ' ':
			continue
		}
		if _, ok := structSizes[c]; !ok {
			return nil, nil, errors.Errorf("bad format character %q", string(c))
		}
		if count == 0 {
			count = 1
		}
		for ; count > 0; count-- {
			codes = append(codes, c)
		}
	}
	if count != 0 {
		return nil, nil, errors.Errorf("format %q ends in a repeat count", format)
	}
	return order, codes, nil
}

func decodeStruct(data []byte, args Args) (any, error) {
	format := args.str("fmt", "b")
	order, codes, err := parseStructFormat(format)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, c := range codes {
		total += structSizes[c]
	}
	if total != len(data) {
		return nil, errors.Errorf("format %q unpacks %d bytes, field has %d", format, total, len(data))
	}

	var decoded []any
	off := 0
	for _, c := range codes {
		chunk := data[off : off+structSizes[c]]
		off += structSizes[c]
		switch c {
		case 'x':
			continue
		case 'b':
			decoded = append(decoded, int(int8(chunk[0])))
		case 'B':
			decoded = append(decoded, int(chunk[0]))
		case 'c':
			decoded = append(decoded, string(chunk))
		case 'h':
			decoded = append(decoded, int(int16(order.Uint16(chunk))))
		case 'H':
			decoded = append(decoded, int(order.Uint16(chunk)))
		case 'i', 'l':
			decoded = append(decoded, int(int32(order.Uint32(chunk))))
		case 'I', 'L':
			decoded = append(decoded, int(order.Uint32(chunk)))
		case 'q':
			decoded = append(decoded, int(int64(order.Uint64(chunk))))
		case 'Q':
			decoded = append(decoded, int(order.Uint64(chunk)))
		case 'f':
			decoded = append(decoded, float64(math.Float32frombits(order.Uint32(chunk))))
		case 'd':
			decoded = append(decoded, math.Float64frombits(order.Uint64(chunk)))
		}
	}

	if annotation := args.table("annotation"); len(annotation) > 0 {
		for i, value := range decoded {
			if n, ok := asInt(value); ok {
				if substitute, ok := annotation[n]; ok {
					decoded[i] = substitute
				}
			}
		}
	}

	if len(decoded) > 1 {
		if labels := args.list("labels"); len(labels) > 0 {
			if len(labels) != len(decoded) {
				return nil, errors.Errorf("format %q unpacks %d values for %d labels", format, len(decoded), len(labels))
			}
			labelled := make(map[string]any, len(decoded))
			for i, label := range labels {
				labelled[asString(label)] = decoded[i]
			}
			return labelled, nil
		}
		return decoded, nil
	}
	if len(decoded) == 0 {
		return nil, errors.Errorf("format %q unpacks no values", format)
	}
	return decoded[0], nil
}

func encodeStruct(value any, args Args) ([]byte, error) {
	format := args.str("fmt", "b")
	order, codes, err := parseStructFormat(format)
	if err != nil {
		return nil, err
	}

	var values []any
	switch v := value.(type) {
	case map[string]any:
		labels := args.list("labels")
		if len(labels) == 0 {
			return nil, errors.Errorf("format %q has a mapping value but no labels", format)
		}
		for _, label := range labels {
			member, ok := v[asString(label)]
			if !ok {
				return nil, errors.Errorf("value is missing label %q", asString(label))
			}
			values = append(values, member)
		}
	case []any:
		values = v
	default:
		values = []any{v}
	}

	if annotation := args.table("annotation"); len(annotation) > 0 {
		values = append([]any(nil), values...)
		for i, v := range values {
			for n, substitute := range annotation {
				if equal(substitute, v) {
					values[i] = n
					break
				}
			}
		}
	}

	var out []byte
	var scratch [8]byte
	next := 0
	take := func() (any, error) {
		if next >= len(values) {
			return nil, errors.Errorf("format %q needs more than %d values", format, len(values))
		}
		v := values[next]
		next++
		return v, nil
	}
	takeInt := func(lo, hi int64) (int64, error) {
		v, err := take()
		if err != nil {
			return 0, err
		}
		n, ok := asInt(v)
		if !ok {
			return 0, errors.Errorf("value %v is not an integer", v)
		}
		if int64(n) < lo || int64(n) > hi {
			return 0, errors.Errorf("value %d out of range [%d, %d]", n, lo, hi)
		}
		return int64(n), nil
	}

	for _, c := range codes {
		switch c {
		case 'x':
			out = append(out, 0)
		case 'b':
			n, err := takeInt(math.MinInt8, math.MaxInt8)
			if err != nil {
				return nil, err
			}
			out = append(out, byte(n))
		case 'B':
			n, err := takeInt(0, math.MaxUint8)
			if err != nil {
				return nil, err
			}
			out = append(out, byte(n))
		case 'c':
			v, err := take()
			if err != nil {
				return nil, err
			}
			s, ok := v.(string)
			if !ok || len(s) != 1 {
				return nil, errors.Errorf("value %v is not a single character", v)
			}
			out = append(out, s[0])
		case 'h':
			n, err := takeInt(math.MinInt16, math.MaxInt16)
			if err != nil {
				return nil, err
			}
			order.PutUint16(scratch[:2], uint16(n))
			out = append(out, scratch[:2]...)
		case 'H':
			n, err := takeInt(0, math.MaxUint16)
			if err != nil {
				return nil, err
			}
			order.PutUint16(scratch[:2], uint16(n))
			out = append(out, scratch[:2]...)
		case 'i', 'l':
			n, err := takeInt(math.MinInt32, math.MaxInt32)
			if err != nil {
				return nil, err
			}
			order.PutUint32(scratch[:4], uint32(n))
			out = append(out, scratch[:4]...)
		case 'I', 'L':
			n, err := takeInt(0, math.MaxUint32)
			if err != nil {
				return nil, err
			}
			order.PutUint32(scratch[:4], uint32(n))
			out = append(out, scratch[:4]...)
		case 'q', 'Q':
			n, err := takeInt(math.MinInt64, math.MaxInt64)
			if err != nil {
				return nil, err
			}
			order.PutUint64(scratch[:8], uint64(n))
			out = append(out, scratch[:8]...)
		case 'f':
			v, err := take()
			if err != nil {
				return nil, err
			}
			f, ok := asFloat(v)
			if !ok {
				return nil, errors.Errorf("value %v is not a number", v)
			}
			order.PutUint32(scratch[:4], math.Float32bits(float32(f)))
			out = append(out, scratch[:4]...)
		case 'd':
			v, err := take()
			if err != nil {
				return nil, err
			}
			f, ok := asFloat(v)
			if !ok {
				return nil, errors.Errorf("value %v is not a number", v)
			}
			order.PutUint64(scratch[:8], math.Float64bits(f))
			out = append(out, scratch[:8]...)
		}
	}
	if next != len(values) {
		return nil, errors.Errorf("format %q leaves %d values unused", format, len(values)-next)
	}
	return out, nil
}
