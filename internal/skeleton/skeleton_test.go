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

package skeleton

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestStructure(t *testing.T) {
	t.Parallel()
	structure := Structure([]byte("one\x00two\x00three"), []byte{0x00})
	require.Len(t, structure, 3)
	assert.Equal(t, "field_000000", structure[0]["name"])
	assert.Equal(t, "raw", structure[0]["type"])
	assert.Equal(t, "field_000002", structure[2]["name"])
}

func TestStructureNoDelimiter(t *testing.T) {
	t.Parallel()
	structure := Structure([]byte("anything"), nil)
	require.Len(t, structure, 1)
}

func TestTypesRendersHexBytes(t *testing.T) {
	t.Parallel()
	document, err := yaml.Marshal(Types([]byte{0x00, 0x0a}))
	require.NoError(t, err)
	assert.Contains(t, string(document), "0x00")
	assert.Contains(t, string(document), "0x0a")

	// The document must load back into a usable types description.
	var loaded map[string]any
	require.NoError(t, yaml.Unmarshal(document, &loaded))
	types, ok := loaded["types"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, types, "raw")
	assert.Contains(t, types, "text")
}
