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
	"github.com/pkg/errors"
	"github.com/tiendc/go-deepcopy"
)

// Item is one entry of a structure description. Recognized keys are
// `name`, `type`, `size`, `delimiter`, `if`, `structure`, `for`,
// `do_while`, `while` and `macro`; all are optional. Unrecognized keys are
// carried along untouched so that per-item overrides of type settings
// (such as `trim` or `order`) resolve through the same chain.
type Item map[string]any

// Structure is an ordered structure description.
type Structure []Item

// Types is the in-memory form of a types description. Every section is
// optional in the source document; [NewTypes] fills the missing ones from
// the built-in skeleton.
type Types struct {
	// Constants are read-only values globally visible to expression
	// evaluation.
	Constants map[string]any

	// Defaults provides fallback values for per-item keys.
	Defaults map[string]any

	// Types maps a type name to its definition: `size`, `delimiter`,
	// `trim`, `order` and `function` (with `name` and `args`).
	Types map[string]map[string]any

	// Macros maps a macro name to a reusable structure fragment.
	Macros map[string]Structure
}

// defaultTypes is the hard-coded skeleton every types description is
// merged over.
func defaultTypes() *Types {
	return &Types{
		Constants: map[string]any{},
		Defaults: map[string]any{
			"delimiter":           []any{},
			"name":                "",
			"size":                0,
			"type":                "text",
			"unknown_destination": "__raw__",
			"unknown_function":    "raw",
		},
		Types: map[string]map[string]any{
			"int": {}, // deprecated
			"raw": {},
			"text": {},
		},
		Macros: map[string]Structure{},
	}
}

// NewTypes builds a [Types] from a raw types mapping, deep-merging the
// caller's sections over the built-in skeleton. For overlapping mapping
// keys the merge recurses; for anything else the caller wins. A nil or
// empty mapping yields the skeleton alone.
func NewTypes(raw map[string]any) (*Types, error) {
	t := defaultTypes()
	if len(raw) == 0 {
		return t, nil
	}

	// Detach from the caller's tree so later walks cannot be affected by
	// mutation of the source document.
	var src map[string]any
	if err := deepcopy.Copy(&src, raw); err != nil {
		return nil, errors.Wrap(err, "copying types description")
	}

	if section, ok := asMap(src["constants"]); ok {
		deepUpdate(t.Constants, section)
	}
	if section, ok := asMap(src["defaults"]); ok {
		deepUpdate(t.Defaults, section)
	}
	if section, ok := asMap(src["types"]); ok {
		for name, def := range section {
			m, ok := asMap(def)
			if !ok {
				if def == nil {
					m = map[string]any{}
				} else {
					return nil, errors.Errorf("type %q is not a mapping", name)
				}
			}
			if have, ok := t.Types[name]; ok {
				deepUpdate(have, m)
			} else {
				t.Types[name] = m
			}
		}
	}
	if section, ok := asMap(src["macros"]); ok {
		for name, def := range section {
			structure, err := asStructure(def)
			if err != nil {
				return nil, errors.Wrapf(err, "macro %q", name)
			}
			t.Macros[name] = structure
		}
	}
	return t, nil
}

// deepUpdate recursively updates target with values from source.
func deepUpdate(target, source map[string]any) {
	for key, value := range source {
		sub, sok := asMap(value)
		have, hok := asMap(target[key])
		if sok && hok {
			deepUpdate(have, sub)
			target[key] = have
			continue
		}
		target[key] = value
	}
}

// clone returns an independent copy of t for a single walk to own.
func (t *Types) clone() (*Types, error) {
	if t == nil {
		return defaultTypes(), nil
	}
	var out Types
	if err := deepcopy.Copy(&out, *t); err != nil {
		return nil, errors.Wrap(err, "copying types description")
	}
	if out.Constants == nil {
		out.Constants = map[string]any{}
	}
	if out.Defaults == nil {
		out.Defaults = map[string]any{}
	}
	if out.Types == nil {
		out.Types = map[string]map[string]any{}
	}
	if out.Macros == nil {
		out.Macros = map[string]Structure{}
	}
	return &out, nil
}
