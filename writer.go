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

// writer walks a structure description against a parsed tree and rebuilds
// the byte stream. It visits items in the same order the reader would and
// caches every named value as it goes, so predicates that reference
// previously written fields evaluate exactly as they did on read.
type writer struct {
	walker
	data []byte
}

func (w *writer) encode(structure Structure, source map[string]any, path string) error {
	unknownIndex := 0

	for _, item := range structure {
		if condition, ok := item["if"]; ok {
			value, err := w.evaluate(condition)
			if err != nil {
				return atPath(path, err)
			}
			if !truthy(value) {
				continue
			}
		}

		dtype := asString(w.getValue(w.getDefault(item, "", "type")))
		name := asString(w.getDefault(item, dtype, "name"))
		itemPath := joinPath(path, name)

		var value any
		if name == "" {
			// Unnamed fields are replayed from the parent's unknown
			// queue, front first.
			dtype = asString(w.getValue(w.getDefault(item, dtype, "unknown_function")))
			destination := asString(w.getDefault(item, dtype, "unknown_destination"))
			queue, _ := source[destination].([]any)
			if unknownIndex >= len(queue) {
				return atPath(path, errors.Errorf("unknown queue %q is exhausted", destination))
			}
			value = queue[unknownIndex]
			unknownIndex++
		} else {
			var ok bool
			value, ok = source[name]
			if !ok {
				return atPath(itemPath, errors.Errorf("source has no value for %q", name))
			}
		}

		if !isCompound(item) {
			w.tracef("0x%06x: %s --> %v", len(w.data), name, value)
			if err := w.encodePrimitive(item, dtype, value, name, itemPath); err != nil {
				return err
			}
			continue
		}

		w.tracef("-- %s", name)
		var err error
		switch {
		case isLoop(item):
			err = w.encodeLoop(item, source, value, name, itemPath)
		case hasKey(item, "macro"):
			err = w.encodeMacro(item, value, itemPath)
		default:
			err = w.encodeNested(item, value, itemPath)
		}
		if err != nil {
			return err
		}
		w.tracef("--> %s", name)
	}
	return nil
}

func (w *writer) encodePrimitive(item Item, dtype string, value any, name, path string) error {
	spec, err := w.getFunction(item, dtype)
	if err != nil {
		return atPath(path, err)
	}
	if name != "" {
		w.cacheResult(name, value)
	}
	data, err := w.funcs.encode(spec.function, value, spec.args)
	if err != nil {
		return atPath(path, err)
	}
	w.setField(data, spec)
	return nil
}

func (w *writer) encodeLoop(item Item, source map[string]any, value any, name, path string) error {
	structure, err := itemStructure(item)
	if err != nil {
		return atPath(path, err)
	}
	sequence, ok := value.([]any)
	if !ok {
		return atPath(path, errors.Errorf("value for %q is not a sequence", name))
	}

	if hasKey(item, "for") {
		if length, ok := asInt(w.getValue(item["for"])); ok && length != len(sequence) {
			// Not fatal: the source sequence wins.
			w.log.Warnf("size of %q (%d) and %q (%v) differ", name, len(sequence), asString(item["for"]), item["for"])
		}
	}

	for n, elementValue := range sequence {
		element, ok := asMap(elementValue)
		if !ok {
			return atPath(path, errors.Errorf("element %d of %q is not a mapping", n, name))
		}
		if err := w.encode(structure, element, fmt.Sprintf("%s[%d]", path, n)); err != nil {
			return err
		}
	}

	if hasKey(item, "while") {
		return w.encodeTerminator(item, structure, source, path)
	}
	return nil
}

// encodeTerminator rebuilds the trailing delimiter instance that ended a
// `while` loop on read, from the value stored under the loop's `term`
// name.
func (w *writer) encodeTerminator(item Item, structure Structure, source map[string]any, path string) error {
	condition, _ := asMap(item["while"])
	term := asString(condition["term"])
	termValue, ok := source[term]
	if !ok {
		return atPath(path, errors.Errorf("source has no value for %q", term))
	}

	operands, _ := asList(condition["operands"])
	for _, operand := range operands {
		for _, field := range structure {
			fieldName := asString(field["name"])
			if fieldName == "" || !equal(operand, fieldName) {
				continue
			}
			w.cacheResult(term, termValue)
			return w.encode(Structure{field}, map[string]any{fieldName: termValue}, joinPath(path, term))
		}
	}
	return atPath(path, errors.Errorf("no `while` operand names a field of the structure"))
}

func (w *writer) encodeMacro(item Item, value any, path string) error {
	macro := asString(item["macro"])
	structure, ok := w.types.Macros[macro]
	if !ok {
		return atPath(path, errors.Wrapf(ErrUnknownMacro, "%q", macro))
	}
	element, ok := asMap(value)
	if !ok {
		return atPath(path, errors.Errorf("macro value is not a mapping"))
	}
	return w.encode(structure, element, path)
}

func (w *writer) encodeNested(item Item, value any, path string) error {
	structure, err := itemStructure(item)
	if err != nil {
		return atPath(path, err)
	}
	element, ok := asMap(value)
	if !ok {
		return atPath(path, errors.Errorf("value is not a mapping"))
	}
	return w.encode(structure, element, path)
}
