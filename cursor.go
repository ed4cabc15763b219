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

import "bytes"

// Cursor rules, shared by both directions:
//
//   - size > 0, no delimiter: exactly size bytes.
//   - size == 0, delimiter: up to the first delimiter; the cursor skips
//     the delimiter itself.
//   - both: size bytes, truncated at the first delimiter within them.
//   - trim configured: trailing pad bytes are stripped on read and
//     restored on write.
//   - order -1: the field bytes are reversed between stream and codec.
//
// The write side applies the inverse operations in inverse order: reverse
// the codec output, append the delimiter, pad to size, clip to size.

// getField extracts the next field from the input. At or past the end of
// the buffer it reports errEndOfInput, which cleanly terminates the walk.
func (r *reader) getField(spec fieldSpec) ([]byte, error) {
	if r.offset >= len(r.data) {
		return nil, errEndOfInput
	}

	var field []byte
	var extracted int
	switch {
	case spec.size > 0:
		end := r.offset + spec.size
		if end > len(r.data) {
			end = len(r.data)
		}
		field = r.data[r.offset:end]
		extracted = spec.size
		if len(spec.delimiter) > 0 {
			if i := bytes.Index(field, spec.delimiter); i >= 0 {
				field = field[:i]
			}
		}
	case len(spec.delimiter) > 0:
		rest := r.data[r.offset:]
		if i := bytes.Index(rest, spec.delimiter); i >= 0 {
			field = rest[:i]
			extracted = i + len(spec.delimiter)
		} else {
			// No delimiter before the end of the stream: the field runs
			// to the end.
			field = rest
			extracted = len(rest)
		}
	default:
		// An explicit zero-size field.
		field = nil
		extracted = 0
	}

	if spec.trim >= 0 {
		field = bytes.TrimRight(field, string([]byte{byte(spec.trim)}))
	}
	if spec.reverse {
		field = reverseBytes(field)
	}

	r.tracef("0x%06x: % x (%d)", r.offset, field, extracted)
	r.offset += extracted
	return field, nil
}

// setField appends a field to the output.
func (w *writer) setField(data []byte, spec fieldSpec) {
	field := data
	if spec.reverse {
		field = reverseBytes(field)
	}

	out := make([]byte, 0, len(field)+len(spec.delimiter))
	out = append(out, field...)
	out = append(out, spec.delimiter...)

	pad := byte(0x00)
	if spec.trim >= 0 {
		pad = byte(spec.trim)
	}
	for len(out) < spec.size {
		out = append(out, pad)
	}
	if spec.size > 0 && len(out) > spec.size {
		// Clip oversized fields. This can swallow the delimiter of a
		// field that is both sized and delimited, matching the read
		// side's truncation within the sized window.
		out = out[:spec.size]
	}
	w.data = append(w.data, out...)
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}
