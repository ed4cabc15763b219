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
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Description loaders. Any dialect that deserializes to the plain
// mapping/sequence model works; YAML is what ships, for compatibility
// with existing description files. Integers may be written in decimal or
// hex, byte sequences as lists of integers in [0, 255].

// LoadStructure reads a structure description document.
func LoadStructure(r io.Reader) (Structure, error) {
	var document any
	if err := yaml.NewDecoder(r).Decode(&document); err != nil {
		if errors.Is(err, io.EOF) {
			return Structure{}, nil
		}
		return nil, errors.Wrap(err, "loading structure description")
	}
	structure, err := asStructure(document)
	return structure, errors.Wrap(err, "loading structure description")
}

// LoadTypes reads a types description document and merges it over the
// built-in skeleton.
func LoadTypes(r io.Reader) (*Types, error) {
	var document map[string]any
	if err := yaml.NewDecoder(r).Decode(&document); err != nil {
		if errors.Is(err, io.EOF) {
			return NewTypes(nil)
		}
		return nil, errors.Wrap(err, "loading types description")
	}
	types, err := NewTypes(document)
	return types, errors.Wrap(err, "loading types description")
}
