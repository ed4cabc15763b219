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

// Package yamlcmp reports structural differences between two parsed YAML
// documents, one line per difference.
package yamlcmp

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Diff compares two document trees and returns a human-readable line per
// difference: missing keys, length mismatches and unequal scalars. An
// empty result means the trees are equal.
func Diff(a, b any) []string {
	var r reporter
	cmp.Equal(a, b, cmp.Reporter(&r))
	return r.diffs
}

type reporter struct {
	path  cmp.Path
	diffs []string
}

func (r *reporter) PushStep(ps cmp.PathStep) {
	r.path = append(r.path, ps)
}

func (r *reporter) PopStep() {
	r.path = r.path[:len(r.path)-1]
}

func (r *reporter) Report(rs cmp.Result) {
	if rs.Equal() {
		return
	}
	vx, vy := r.path.Last().Values()
	switch {
	case !vx.IsValid():
		r.diffs = append(r.diffs, fmt.Sprintf("%s: missing in first document", r.location()))
	case !vy.IsValid():
		r.diffs = append(r.diffs, fmt.Sprintf("%s: missing in second document", r.location()))
	default:
		r.diffs = append(r.diffs, fmt.Sprintf("%s: %v != %v", r.location(), vx, vy))
	}
}

// location renders the current path as key.key[index] steps.
func (r *reporter) location() string {
	var b strings.Builder
	for _, step := range r.path {
		switch s := step.(type) {
		case cmp.MapIndex:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			fmt.Fprintf(&b, "%v", s.Key())
		case cmp.SliceIndex:
			fmt.Fprintf(&b, "[%d]", s.Key())
		}
	}
	if b.Len() == 0 {
		return "(document)"
	}
	return b.String()
}
