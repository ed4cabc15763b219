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
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Debug level bits.
const (
	debugCache = 0x01 // dump the internal cache after the walk
	debugTrace = 0x02 // trace field reads and writes
	debugMask  = debugCache | debugTrace
)

// hardFallbacks is the last level of the default chain, below the global
// defaults of the types description.
var hardFallbacks = map[string]any{
	"delimiter":           []any{},
	"name":                "",
	"size":                0,
	"type":                "text",
	"unknown_destination": "__raw__",
	"unknown_function":    "raw",
}

// walker holds the state shared by one read or write walk: the merged
// descriptions, the codec registry and the internal cache. The cache is a
// single flat namespace per walk — expressions in deeply nested
// structures may reference ancestors' primitives — and is append-only:
// values are stored as fields are processed and never removed.
type walker struct {
	types *Types
	funcs *Registry
	cache map[string]any
	debug int
	log   *logrus.Entry
}

func newWalker(types *Types, o *options) (*walker, error) {
	if o.debug&^debugMask != 0 {
		return nil, errors.Wrapf(ErrDebugLevel, "%#x", o.debug)
	}

	// Each walk owns a private copy of the descriptions, with an implicit
	// (empty) type definition for every registered function so that
	// registry primitives are usable without a types entry.
	owned, err := types.clone()
	if err != nil {
		return nil, err
	}
	for _, name := range o.funcs.Names() {
		if _, ok := owned.Types[name]; !ok {
			owned.Types[name] = map[string]any{}
		}
	}

	return &walker{
		types: owned,
		funcs: o.funcs,
		cache: map[string]any{},
		debug: o.debug,
		log:   o.logger.WithField("walk", uuid.New().String()),
	}, nil
}

// getValue resolves a variable: cache first, then constants; anything
// unresolved is the value itself. Unknown names deliberately resolve to
// themselves so descriptions can use inline literals.
func (w *walker) getValue(name any) any {
	key, ok := name.(string)
	if !ok {
		return name
	}
	if value, ok := w.cache[key]; ok {
		return value
	}
	if value, ok := w.types.Constants[key]; ok {
		return value
	}
	return name
}

// getDefault resolves a per-item key through the precedence chain: the
// item itself, the item's type definition, the global defaults, the
// hard-coded fallbacks.
func (w *walker) getDefault(item Item, dtype, key string) any {
	if value, ok := item[key]; ok {
		return value
	}
	if tdef, ok := w.types.Types[dtype]; ok {
		if value, ok := tdef[key]; ok {
			return value
		}
	}
	if value, ok := w.types.Defaults[key]; ok {
		return value
	}
	return hardFallbacks[key]
}

// explicit reports whether key is configured on the item or its type, as
// opposed to inherited from the defaults.
func (w *walker) explicit(item Item, dtype, key string) bool {
	if _, ok := item[key]; ok {
		return true
	}
	if tdef, ok := w.types.Types[dtype]; ok {
		if _, ok := tdef[key]; ok {
			return true
		}
	}
	return false
}

// fieldSpec is everything needed to extract and interpret one primitive
// field.
type fieldSpec struct {
	delimiter []byte
	size      int
	function  string
	args      Args
	trim      int // pad byte value, -1 when none is configured
	reverse   bool
}

// getFunction determines what to read and how to interpret it. The
// delimiter and size come from the default chain; when neither is
// configured the field is a single byte. The function name defaults to
// the type name itself.
func (w *walker) getFunction(item Item, dtype string) (fieldSpec, error) {
	spec := fieldSpec{trim: -1}

	tdef, ok := w.types.Types[dtype]
	if !ok {
		return spec, errors.Wrapf(ErrUnknownType, "%q", dtype)
	}

	delimiter, err := toBytes(w.getDefault(item, dtype, "delimiter"))
	if err != nil {
		return spec, errors.Wrap(err, "delimiter")
	}
	spec.delimiter = delimiter

	sizeValue := w.getValue(w.getDefault(item, dtype, "size"))
	size, ok := asInt(sizeValue)
	if !ok {
		return spec, errors.Errorf("size %v did not resolve to an integer", sizeValue)
	}
	if size < 0 {
		return spec, errors.Errorf("size %d is negative", size)
	}
	if size == 0 && len(delimiter) == 0 && !w.explicit(item, dtype, "size") {
		size = 1
	}
	spec.size = size

	spec.function = dtype
	if function, ok := asMap(tdef["function"]); ok {
		if name, ok := function["name"]; ok {
			spec.function = asString(name)
		}
		if args, ok := asMap(function["args"]); ok {
			spec.args = Args(args)
		}
	}

	if trim := w.getDefault(item, dtype, "trim"); trim != nil {
		value, ok := asInt(trim)
		if !ok || value < 0 || value > 0xff {
			return spec, errors.Errorf("trim value %v is not a byte", trim)
		}
		spec.trim = value
	}
	if order := w.getDefault(item, dtype, "order"); order != nil {
		if value, ok := asInt(order); ok && value == -1 {
			spec.reverse = true
		}
	}
	return spec, nil
}

// cacheResult stores a freshly decoded (or about to be encoded) value in
// the internal cache. Mapping results are spliced member-wise so their
// members are usable in evaluations; scalars are stored under the field
// name.
func (w *walker) cacheResult(name string, value any) {
	if members, ok := value.(map[string]any); ok {
		for member, v := range members {
			w.cache[member] = v
		}
		return
	}
	if name != "" {
		w.cache[name] = value
	}
}

func (w *walker) tracef(format string, args ...any) {
	if w.debug&debugTrace != 0 {
		w.log.Debugf(format, args...)
	}
}

// dumpCache logs the internal variables accumulated by the walk.
func (w *walker) dumpCache() {
	if w.debug&debugCache == 0 {
		return
	}
	names := make([]string, 0, len(w.cache))
	for name := range w.cache {
		names = append(names, name)
	}
	sort.Strings(names)
	w.log.Debug("--- internal variables ---")
	for _, name := range names {
		w.log.Debugf("%s: %v", name, w.cache[name])
	}
}

// Structural helpers over description items.

func hasKey(item Item, key string) bool {
	_, ok := item[key]
	return ok
}

func isCompound(item Item) bool {
	return hasKey(item, "structure") || hasKey(item, "macro")
}

func isLoop(item Item) bool {
	return hasKey(item, "for") || hasKey(item, "do_while") || hasKey(item, "while")
}

func itemStructure(item Item) (Structure, error) {
	structure, err := asStructure(item["structure"])
	return structure, errors.Wrap(err, "nested structure")
}
