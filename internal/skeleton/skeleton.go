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

// Package skeleton derives a rudimentary structure and types description
// pair from an example file and a delimiter, as a starting point for
// reverse engineering a format.
package skeleton

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Structure names one raw field per delimiter-separated segment of data.
func Structure(data, delimiter []byte) []map[string]any {
	segments := 1
	if len(delimiter) > 0 {
		segments = len(bytes.Split(data, delimiter))
	}
	structure := make([]map[string]any, 0, segments)
	for i := 0; i < segments; i++ {
		structure = append(structure, map[string]any{
			"name": fmt.Sprintf("field_%06d", i),
			"type": "raw",
		})
	}
	return structure
}

// Types builds the matching types document with the delimiter attached to
// the raw and text types. The result is a YAML node tree so that byte
// values render in hex.
func Types(delimiter []byte) *yaml.Node {
	return mapping(
		"types", mapping(
			"raw", mapping(
				"delimiter", byteSequence(delimiter),
				"function", mapping("name", scalar("raw")),
			),
			"text", mapping(
				"delimiter", byteSequence(delimiter),
			),
		),
	)
}

func mapping(pairs ...any) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i := 0; i+1 < len(pairs); i += 2 {
		node.Content = append(node.Content, scalar(pairs[i].(string)), pairs[i+1].(*yaml.Node))
	}
	return node
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

func byteSequence(delimiter []byte) *yaml.Node {
	node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
	for _, b := range delimiter {
		node.Content = append(node.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!int",
			Value: fmt.Sprintf("0x%02x", b),
		})
	}
	return node
}
