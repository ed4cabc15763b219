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
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// Scalar coercion helpers. Description trees come out of a YAML (or JSON)
// loader, so the same logical value can arrive as int, int64, uint64 or
// float64, and mapping keys can arrive as strings. Everything that touches
// description values goes through these.

// asInt reports v as an int when it carries an integral value.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// asFloat reports v as a float64 when it is numeric.
func asFloat(v any) (float64, bool) {
	if f, ok := v.(float64); ok {
		return f, true
	}
	if f, ok := v.(float32); ok {
		return float64(f), true
	}
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	return 0, false
}

// asString renders v as a string; nil becomes the empty string.
func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}

// asMap normalizes a description mapping. YAML mappings with non-string
// keys decode as map[any]any; those keys are stringified.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Item:
		return m, true
	case Args:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[asString(k)] = val
		}
		return out, true
	}
	return nil, false
}

// asList normalizes a description sequence.
func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case nil:
		return nil, false
	}
	return nil, false
}

// asStructure normalizes a description sequence into a [Structure].
func asStructure(v any) (Structure, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case Structure:
		return s, nil
	case []Item:
		return Structure(s), nil
	case []any:
		out := make(Structure, 0, len(s))
		for i, elem := range s {
			m, ok := asMap(elem)
			if !ok {
				return nil, errors.Errorf("structure item %d is not a mapping", i)
			}
			out = append(out, Item(m))
		}
		return out, nil
	case []map[string]any:
		out := make(Structure, 0, len(s))
		for _, elem := range s {
			out = append(out, Item(elem))
		}
		return out, nil
	}
	return nil, errors.Errorf("structure is not a sequence")
}

// toBytes converts a description byte sequence (a list of integers in
// [0, 255]) into raw bytes.
func toBytes(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := asList(v)
	if !ok {
		if i, ok := asInt(v); ok && i >= 0 && i <= 0xff {
			return []byte{byte(i)}, nil
		}
		return nil, errors.Errorf("%v is not a byte sequence", v)
	}
	out := make([]byte, 0, len(list))
	for _, elem := range list {
		i, ok := asInt(elem)
		if !ok || i < 0 || i > 0xff {
			return nil, errors.Errorf("byte value %v out of range", elem)
		}
		out = append(out, byte(i))
	}
	return out, nil
}

// parseIntKey parses a mapping key that should be an integer, accepting
// decimal and 0x-prefixed hex spellings.
func parseIntKey(s string) (int, bool) {
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// intKeyed normalizes an annotation table into int → value form.
func intKeyed(v any) map[int]any {
	out := map[int]any{}
	switch m := v.(type) {
	case map[any]any:
		for k, val := range m {
			if i, ok := asInt(k); ok {
				out[i] = val
			} else if i, ok := parseIntKey(asString(k)); ok {
				out[i] = val
			}
		}
	case map[string]any:
		for k, val := range m {
			if i, ok := parseIntKey(k); ok {
				out[i] = val
			}
		}
	}
	return out
}

// truthy mirrors the truth rules the description language assumes: false,
// zero, the empty string and empty containers are falsy.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	if f, ok := asFloat(v); ok {
		return f != 0
	}
	return true
}

// equal compares two scalars with numeric widening, so that 0x01 from a
// description matches an int decoded from the stream.
func equal(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	if _, bok := asFloat(b); bok {
		return false
	}
	return a == b
}

// compare orders two scalars, numerically when both are numeric and
// lexicographically when both are strings.
func compare(a, b any) (int, bool) {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			}
			return 0, true
		}
		return 0, false
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch {
		case as < bs:
			return -1, true
		case as > bs:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
