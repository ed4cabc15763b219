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

import "errors"

// Result is the outcome of a [Read] walk.
type Result struct {
	// Parsed is the tree of named values. Compounds are mappings, loops
	// are sequences of mappings, primitives are scalars (or mappings for
	// labelled composite values).
	Parsed map[string]any

	// Offset is the cursor position after the walk. It may point past the
	// end of the input when the final fixed-size field was clipped by the
	// end of the input. A delimited field whose delimiter is missing runs
	// to the end of the input and leaves Offset there.
	Offset int

	// UnknownBytes sums the resolved size of the unnamed fields. An
	// unnamed field read up to a delimiter, without a size, adds nothing.
	UnknownBytes int
}

// Read parses data against a structure and types description. Running out
// of input is not an error: the walk terminates cleanly and the result
// holds whatever was parsed up to that point.
//
// A nil types description stands for the built-in skeleton.
func Read(data []byte, structure Structure, types *Types, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	w, err := newWalker(types, o)
	if err != nil {
		return nil, err
	}
	r := &reader{walker: *w, data: data, prune: o.prune}

	parsed := map[string]any{}
	if err := r.parse(structure, parsed, ""); err != nil && !errors.Is(err, errEndOfInput) {
		return nil, err
	}

	r.dumpCache()
	if r.debug != 0 {
		r.logSummary()
	}
	return &Result{
		Parsed:       parsed,
		Offset:       r.offset,
		UnknownBytes: r.unknownBytes,
	}, nil
}

// logSummary reports how much of the input the walk covered.
func (r *reader) logSummary() {
	length := len(r.data)
	parsed := length - r.unknownBytes
	r.log.Debugf("reached byte %d out of %d", r.offset, length)
	if length > 0 {
		r.log.Debugf("%d bytes parsed (%d%%)", parsed, parsed*100/length)
	}
}

// Write rebuilds the byte stream for a parsed tree against the same
// description pair that produced it.
func Write(parsed map[string]any, structure Structure, types *Types, opts ...Option) ([]byte, error) {
	o := newOptions(opts)
	walk, err := newWalker(types, o)
	if err != nil {
		return nil, err
	}
	w := &writer{walker: *walk}

	if err := w.encode(structure, parsed, ""); err != nil {
		return nil, err
	}
	w.dumpCache()
	return w.data, nil
}
