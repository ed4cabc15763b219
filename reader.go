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

	"github.com/pkg/errors"
)

// reader walks a structure description against a byte buffer.
type reader struct {
	walker
	data         []byte
	offset       int
	prune        bool
	unknownBytes int
}

// parse interprets one structure sequence into dest.
func (r *reader) parse(structure Structure, dest map[string]any, path string) error {
	for _, item := range structure {
		if condition, ok := item["if"]; ok {
			value, err := r.evaluate(condition)
			if err != nil {
				return atPath(path, err)
			}
			if !truthy(value) {
				continue
			}
		}

		dtype := asString(r.getValue(r.getDefault(item, "", "type")))
		name := asString(r.getDefault(item, dtype, "name"))
		itemPath := joinPath(path, name)

		if !isCompound(item) {
			if err := r.parsePrimitive(item, dtype, dest, name, itemPath); err != nil {
				return err
			}
			continue
		}

		r.tracef("-- %s", name)
		if _, ok := dest[name]; !ok {
			if isLoop(item) {
				dest[name] = []any{}
			} else {
				dest[name] = map[string]any{}
			}
		}

		var err error
		switch {
		case hasKey(item, "for"):
			err = r.parseFor(item, dest, name, itemPath)
		case hasKey(item, "do_while"):
			err = r.parseDoWhile(item, dest, name, itemPath)
		case hasKey(item, "while"):
			err = r.parseWhile(item, dest, name, itemPath)
		case hasKey(item, "macro"):
			err = r.parseMacro(item, dest, name, itemPath)
		default:
			err = r.parseNested(item, dest, name, itemPath)
		}
		if err != nil {
			return err
		}
		r.tracef("--> %s", name)
	}
	return nil
}

// parsePrimitive reads and interprets one field. Unnamed fields are
// decoded with the unknown function and queued on the parent's unknown
// destination.
func (r *reader) parsePrimitive(item Item, dtype string, dest map[string]any, name, path string) error {
	if name == "" {
		dtype = asString(r.getValue(r.getDefault(item, "", "unknown_function")))
	}
	spec, err := r.getFunction(item, dtype)
	if err != nil {
		return atPath(path, err)
	}
	field, err := r.getField(spec)
	if err != nil {
		return atPath(path, err)
	}
	result, err := r.funcs.decode(spec.function, field, spec.args)
	if err != nil {
		return atPath(path, err)
	}

	if name != "" {
		r.cacheResult(name, result)
		dest[name] = result
		r.tracef("--> %s", name)
		return nil
	}
	if !r.prune {
		destination := asString(r.getDefault(item, dtype, "unknown_destination"))
		queue, _ := dest[destination].([]any)
		dest[destination] = append(queue, result)
	}
	r.unknownBytes += spec.size
	return nil
}

// parseFor reads a fixed number of iterations; the count is a literal or
// the name of a previously parsed field.
func (r *reader) parseFor(item Item, dest map[string]any, name, path string) error {
	structure, err := itemStructure(item)
	if err != nil {
		return atPath(path, err)
	}
	length, ok := asInt(r.getValue(item["for"]))
	if !ok {
		return atPath(path, errors.Errorf("loop count %v did not resolve to an integer", item["for"]))
	}
	sequence, ok := dest[name].([]any)
	if !ok {
		return atPath(path, errors.Errorf("%q already holds a non-sequence value", name))
	}

	for n := 0; n < length; n++ {
		element := map[string]any{}
		if err := r.parse(structure, element, fmt.Sprintf("%s[%d]", path, n)); err != nil {
			return err
		}
		sequence = append(sequence, element)
		dest[name] = sequence
	}
	return nil
}

// parseDoWhile reads iterations until the predicate turns falsy; the
// predicate sees each iteration's fields through the cache.
func (r *reader) parseDoWhile(item Item, dest map[string]any, name, path string) error {
	structure, err := itemStructure(item)
	if err != nil {
		return atPath(path, err)
	}

	sequence, ok := dest[name].([]any)
	if !ok {
		return atPath(path, errors.Errorf("%q already holds a non-sequence value", name))
	}

	for n := 0; ; n++ {
		element := map[string]any{}
		if err := r.parse(structure, element, fmt.Sprintf("%s[%d]", path, n)); err != nil {
			return err
		}
		sequence = append(sequence, element)
		dest[name] = sequence

		value, err := r.evaluate(item["do_while"])
		if err != nil {
			return atPath(path, err)
		}
		if !truthy(value) {
			return nil
		}
	}
}

// parseWhile treats the first item of the nested structure as a delimiter
// evaluated between iterations. The value that finally fails the
// predicate is not part of the sequence: it is lifted out and stored
// under the `term` name next to it.
func (r *reader) parseWhile(item Item, dest map[string]any, name, path string) error {
	structure, err := itemStructure(item)
	if err != nil {
		return atPath(path, err)
	}
	if len(structure) == 0 {
		return atPath(path, errors.New("`while` needs a non-empty structure"))
	}
	delimiter, rest := structure[:1], structure[1:]

	element := map[string]any{}
	if err := r.parse(delimiter, element, fmt.Sprintf("%s[0]", path)); err != nil {
		return err
	}
	sequence := []any{element}
	dest[name] = sequence

	for n := 0; ; n++ {
		value, err := r.evaluate(item["while"])
		if err != nil {
			return atPath(path, err)
		}
		if !truthy(value) {
			break
		}
		if err := r.parse(rest, element, fmt.Sprintf("%s[%d]", path, n)); err != nil {
			return err
		}
		element = map[string]any{}
		if err := r.parse(delimiter, element, fmt.Sprintf("%s[%d]", path, n+1)); err != nil {
			return err
		}
		sequence = append(sequence, element)
		dest[name] = sequence
	}

	// Lift the terminator out of the trailing element.
	sequence = sequence[:len(sequence)-1]
	dest[name] = sequence

	condition, _ := asMap(item["while"])
	term := asString(condition["term"])
	if len(element) != 1 {
		return atPath(path, errors.Errorf("`while` delimiter yields %d values, want 1", len(element)))
	}
	for _, value := range element {
		dest[term] = value
		r.cacheResult(term, value)
	}
	return nil
}

func (r *reader) parseMacro(item Item, dest map[string]any, name, path string) error {
	macro := asString(item["macro"])
	structure, ok := r.types.Macros[macro]
	if !ok {
		return atPath(path, errors.Wrapf(ErrUnknownMacro, "%q", macro))
	}
	element, err := destMapping(dest, name)
	if err != nil {
		return atPath(path, err)
	}
	return r.parse(structure, element, path)
}

func (r *reader) parseNested(item Item, dest map[string]any, name, path string) error {
	structure, err := itemStructure(item)
	if err != nil {
		return atPath(path, err)
	}
	element, err := destMapping(dest, name)
	if err != nil {
		return atPath(path, err)
	}
	return r.parse(structure, element, path)
}

// destMapping fetches the pre-created mapping for a compound, guarding
// against a name already holding a non-mapping value.
func destMapping(dest map[string]any, name string) (map[string]any, error) {
	element, ok := dest[name].(map[string]any)
	if !ok {
		return nil, errors.Errorf("%q already holds a non-mapping value", name)
	}
	return element, nil
}
