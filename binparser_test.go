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

package binparser_test

import (
	"embed"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	binparser "github.com/jfjlaros/bin-parser"
)

//go:embed testdata
var testdataFS embed.FS

func loadDescriptions(t *testing.T, dir, structureFile, typesFile string) (binparser.Structure, *binparser.Types) {
	t.Helper()
	sf, err := testdataFS.Open("testdata/" + dir + "/" + structureFile)
	require.NoError(t, err)
	defer sf.Close()
	structure, err := binparser.LoadStructure(sf)
	require.NoError(t, err)

	tf, err := testdataFS.Open("testdata/" + dir + "/" + typesFile)
	require.NoError(t, err)
	defer tf.Close()
	types, err := binparser.LoadTypes(tf)
	require.NoError(t, err)
	return structure, types
}

func unhex(t *testing.T, s string) []byte {
	t.Helper()
	data, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	require.NoError(t, err)
	return data
}

func field(t *testing.T, parsed map[string]any, path ...string) any {
	t.Helper()
	var value any = parsed
	for _, step := range path {
		m, ok := value.(map[string]any)
		require.True(t, ok, "%v is not a mapping", value)
		value, ok = m[step]
		require.True(t, ok, "no field %q", step)
	}
	return value
}

func element(t *testing.T, parsed map[string]any, name string, index int) map[string]any {
	t.Helper()
	sequence, ok := parsed[name].([]any)
	require.True(t, ok, "%q is not a sequence", name)
	require.Greater(t, len(sequence), index)
	m, ok := sequence[index].(map[string]any)
	require.True(t, ok)
	return m
}

func TestScenarios(t *testing.T) {
	t.Parallel()
	scenarios := []struct {
		name      string
		dir       string
		structure string
		types     string
		input     string
		check     func(t *testing.T, parsed map[string]any)
	}{
		{
			name: "balance", dir: "balance",
			structure: "structure.yml", types: "types.yml",
			input: "4a6f686e20446f6500 cf07 8a0c",
			check: func(t *testing.T, parsed map[string]any) {
				assert.Equal(t, "John Doe", parsed["name"])
				assert.Equal(t, 1999, parsed["year_of_birth"])
				assert.Equal(t, 3210, parsed["balance"])
			},
		},
		{
			name: "for", dir: "lists",
			structure: "structure_for.yml", types: "types.yml",
			input: "05 6c696e653100 6c696e653200 6c696e653300 6c696e653400 6c61737400",
			check: func(t *testing.T, parsed map[string]any) {
				assert.Equal(t, 5, parsed["size_of_list"])
				assert.Len(t, parsed["lines"], 5)
				assert.Equal(t, "line1", element(t, parsed, "lines", 0)["content"])
				assert.Equal(t, "last", element(t, parsed, "lines", 4)["content"])
			},
		},
		{
			name: "do_while", dir: "lists",
			structure: "structure_do_while.yml", types: "types.yml",
			input: "01 6c696e653100 01 6c696e653200 01 6c696e653300 01 6c696e653400 02 6c61737400",
			check: func(t *testing.T, parsed map[string]any) {
				assert.Len(t, parsed["lines"], 5)
				assert.Equal(t, 1, element(t, parsed, "lines", 0)["id"])
				assert.Equal(t, 2, element(t, parsed, "lines", 4)["id"])
			},
		},
		{
			name: "while", dir: "lists",
			structure: "structure_while.yml", types: "types.yml",
			input: "01 6c696e653100 01 6c696e653200 01 6c696e653300 01 6c696e653400 01 6c61737400 02",
			check: func(t *testing.T, parsed map[string]any) {
				assert.Len(t, parsed["lines"], 5)
				assert.Equal(t, 1, element(t, parsed, "lines", 4)["id"])
				assert.Equal(t, "last", element(t, parsed, "lines", 4)["content"])
				assert.Equal(t, 2, parsed["lines_term"])
			},
		},
		{
			name: "if_a", dir: "conditional",
			structure: "structure.yml", types: "types.yml",
			input: "61 6e6f7420736b6970706564 00",
			check: func(t *testing.T, parsed map[string]any) {
				assert.Equal(t, "not skipped", parsed["related_to_a"])
				assert.NotContains(t, parsed, "related_to_b")
			},
		},
		{
			name: "if_b", dir: "conditional",
			structure: "structure.yml", types: "types.yml",
			input: "62 6e6f7420736b6970706564 00",
			check: func(t *testing.T, parsed map[string]any) {
				assert.Equal(t, "not skipped", parsed["related_to_b"])
				assert.NotContains(t, parsed, "related_to_a")
			},
		},
		{
			name: "var_size", dir: "var_size",
			structure: "structure.yml", types: "types.yml",
			input: "04 01020304",
			check: func(t *testing.T, parsed map[string]any) {
				assert.Equal(t, 4, parsed["field_2_size"])
				assert.Equal(t, "01 02 03 04", parsed["field_2"])
			},
		},
		{
			name: "padding", dir: "padding",
			structure: "structure.yml", types: "types.yml",
			input: "313233000000 343536373839 000000000000",
			check: func(t *testing.T, parsed map[string]any) {
				assert.Equal(t, "123", parsed["string_1"])
				assert.Equal(t, "456789", parsed["string_2"])
				assert.Equal(t, "", parsed["string_3"])
			},
		},
		{
			name: "order", dir: "order",
			structure: "structure.yml", types: "types.yml",
			input: "000201 010200",
			check: func(t *testing.T, parsed map[string]any) {
				assert.Equal(t, 0x010200, parsed["val_1"])
				assert.Equal(t, 0x010200, parsed["val_2"])
			},
		},
		{
			name: "colour", dir: "colour",
			structure: "structure.yml", types: "types.yml",
			input: "0080ff",
			check: func(t *testing.T, parsed map[string]any) {
				assert.Equal(t, 0, field(t, parsed, "background", "r"))
				assert.Equal(t, 128, field(t, parsed, "background", "g"))
				assert.Equal(t, "full", field(t, parsed, "background", "b"))
			},
		},
		{
			name: "complex_eval", dir: "complex_eval",
			structure: "structure.yml", types: "types.yml",
			input: "01 41",
			check: func(t *testing.T, parsed map[string]any) {
				assert.NotContains(t, parsed, "item_1")
				assert.Equal(t, "A", parsed["item_2"])
			},
		},
		{
			name: "flags", dir: "flags",
			structure: "structure.yml", types: "types.yml",
			input: "06 31",
			check: func(t *testing.T, parsed map[string]any) {
				assert.Equal(t, false, field(t, parsed, "flags", "bit_one"))
				assert.Equal(t, true, field(t, parsed, "flags", "bit_two"))
				assert.Equal(t, true, field(t, parsed, "flags", "flag_04"))
				assert.Equal(t, map[string]any{
					"unused":  true,
					"xxxx":    true,
					"flag_20": true,
				}, parsed["status"])
			},
		},
		{
			name: "map", dir: "map",
			structure: "structure.yml", types: "types.yml",
			input: "02 01",
			check: func(t *testing.T, parsed map[string]any) {
				assert.Equal(t, "two hunderd and fifty-eight", parsed["number"])
				assert.Equal(t, 1, parsed["choice"])
			},
		},
		{
			name: "size_string", dir: "size_string",
			structure: "structure.yml", types: "types.yml",
			input: "1c 6162636465666768696a6b6c6d6e6f707172737475767778797a3031" +
				"17 6162636465666768696a6b6c6d6e6f7071727374757677",
			check: func(t *testing.T, parsed map[string]any) {
				assert.Equal(t, 28, field(t, parsed, "string_1", "size_of_string"))
				assert.Len(t, field(t, parsed, "string_1", "string"), 28)
				assert.Equal(t, 23, field(t, parsed, "string_2", "size_of_string"))
				assert.Len(t, field(t, parsed, "string_2", "string"), 23)
			},
		},
		{
			name: "var_type", dir: "var_type",
			structure: "structure.yml", types: "types.yml",
			input: "01 41 02 7b00",
			check: func(t *testing.T, parsed map[string]any) {
				assert.Equal(t, "char", field(t, parsed, "value_1", "type_name"))
				assert.Equal(t, "A", field(t, parsed, "value_1", "content"))
				assert.Equal(t, "le_s_short", field(t, parsed, "value_2", "type_name"))
				assert.Equal(t, 123, field(t, parsed, "value_2", "content"))
			},
		},
		{
			name: "macro", dir: "macro",
			structure: "structure.yml", types: "types.yml",
			input: "0001 0a14",
			check: func(t *testing.T, parsed map[string]any) {
				assert.Equal(t, 0, field(t, parsed, "origin", "x"))
				assert.Equal(t, 1, field(t, parsed, "origin", "y"))
				assert.Equal(t, 10, field(t, parsed, "corner", "x"))
				assert.Equal(t, 20, field(t, parsed, "corner", "y"))
			},
		},
		{
			name: "unknown", dir: "unknown",
			structure: "structure.yml", types: "types.yml",
			input: "01 abcd 686900",
			check: func(t *testing.T, parsed map[string]any) {
				assert.Equal(t, 1, parsed["header"])
				assert.Equal(t, []any{"ab cd"}, parsed["__raw__"])
				assert.Equal(t, "hi", parsed["footer"])
			},
		},
		{
			name: "zero", dir: "zero",
			structure: "structure.yml", types: "types.yml",
			input: "aabbcc",
			check: func(t *testing.T, parsed map[string]any) {
				assert.Equal(t, "", parsed["marker"])
				assert.Equal(t, "aa bb cc", parsed["rest"])
				assert.Equal(t, []any{}, parsed["empty_list"])
			},
		},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			t.Parallel()
			structure, types := loadDescriptions(t, scenario.dir, scenario.structure, scenario.types)
			input := unhex(t, scenario.input)

			result, err := binparser.Read(input, structure, types)
			require.NoError(t, err)
			scenario.check(t, result.Parsed)

			output, err := binparser.Write(result.Parsed, structure, types)
			require.NoError(t, err)
			require.Equal(t, input, output, "round trip")
		})
	}
}

func TestReadUnknownBytes(t *testing.T) {
	t.Parallel()
	structure, types := loadDescriptions(t, "unknown", "structure.yml", "types.yml")
	input := unhex(t, "01 abcd 686900")

	result, err := binparser.Read(input, structure, types)
	require.NoError(t, err)
	assert.Equal(t, 2, result.UnknownBytes)
	assert.Equal(t, len(input), result.Offset)
}

func TestReadPrune(t *testing.T) {
	t.Parallel()
	structure, types := loadDescriptions(t, "unknown", "structure.yml", "types.yml")
	input := unhex(t, "01 abcd 686900")

	result, err := binparser.Read(input, structure, types, binparser.WithPrune(true))
	require.NoError(t, err)
	assert.NotContains(t, result.Parsed, "__raw__")
	assert.Equal(t, 2, result.UnknownBytes)
	assert.Equal(t, "hi", result.Parsed["footer"])
}

// mustLoad builds descriptions from inline YAML.
func mustLoad(t *testing.T, structureYAML, typesYAML string) (binparser.Structure, *binparser.Types) {
	t.Helper()
	structure, err := binparser.LoadStructure(strings.NewReader(structureYAML))
	require.NoError(t, err)
	types, err := binparser.LoadTypes(strings.NewReader(typesYAML))
	require.NoError(t, err)
	return structure, types
}

func TestReadEndOfInput(t *testing.T) {
	t.Parallel()
	structure, types := mustLoad(t, `
- name: first
- name: second
`, `
types:
  text:
    delimiter: [0x00]
`)

	// The input ends before the second field starts: clean termination.
	result, err := binparser.Read([]byte("only\x00"), structure, types)
	require.NoError(t, err)
	assert.Equal(t, "only", result.Parsed["first"])
	assert.NotContains(t, result.Parsed, "second")

	// No delimiter at all: the field runs to the end of the stream.
	result, err = binparser.Read([]byte("abc"), structure, types)
	require.NoError(t, err)
	assert.Equal(t, "abc", result.Parsed["first"])
	assert.Equal(t, 3, result.Offset)
}

func TestWhileImmediatelyFalse(t *testing.T) {
	t.Parallel()
	structure, types := loadDescriptions(t, "lists", "structure_while.yml", "types.yml")

	// A lone terminator: the sequence is empty, the terminator is lifted.
	result, err := binparser.Read(unhex(t, "02"), structure, types)
	require.NoError(t, err)
	assert.Empty(t, result.Parsed["lines"])
	assert.Equal(t, 2, result.Parsed["lines_term"])

	output, err := binparser.Write(result.Parsed, structure, types)
	require.NoError(t, err)
	assert.Equal(t, unhex(t, "02"), output)
}

func TestReadErrors(t *testing.T) {
	t.Parallel()

	t.Run("unknown type", func(t *testing.T) {
		t.Parallel()
		structure, types := mustLoad(t, `
- name: broken
  type: no_such_type
`, ``)
		_, err := binparser.Read([]byte{0x00}, structure, types)
		require.ErrorIs(t, err, binparser.ErrUnknownType)
		assert.Contains(t, err.Error(), "broken")
	})

	t.Run("unknown function", func(t *testing.T) {
		t.Parallel()
		structure, types := mustLoad(t, `
- name: broken
  type: odd
`, `
types:
  odd:
    function:
      name: no_such_function
`)
		_, err := binparser.Read([]byte{0x00}, structure, types)
		require.ErrorIs(t, err, binparser.ErrUnknownFunction)
	})

	t.Run("unknown operator", func(t *testing.T) {
		t.Parallel()
		structure, types := mustLoad(t, `
- name: broken
  if:
    operator: frobnicate
    operands: [1, 2]
`, ``)
		_, err := binparser.Read([]byte{0x00}, structure, types)
		require.ErrorIs(t, err, binparser.ErrUnknownOperator)
	})

	t.Run("unknown macro", func(t *testing.T) {
		t.Parallel()
		structure, types := mustLoad(t, `
- name: broken
  macro: no_such_macro
`, ``)
		_, err := binparser.Read([]byte{0x00}, structure, types)
		require.ErrorIs(t, err, binparser.ErrUnknownMacro)
	})

	t.Run("invalid debug level", func(t *testing.T) {
		t.Parallel()
		structure, types := mustLoad(t, `
- name: x
`, ``)
		_, err := binparser.Read([]byte{0x00}, structure, types, binparser.WithDebug(0x08))
		require.ErrorIs(t, err, binparser.ErrDebugLevel)
	})
}

func TestWriteMissingField(t *testing.T) {
	t.Parallel()
	structure, types := mustLoad(t, `
- name: present
  type: byte
- name: absent
  type: byte
`, `
types:
  byte:
    function:
      name: struct
`)
	_, err := binparser.Write(map[string]any{"present": 1}, structure, types)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent")
}

func TestWriteLengthMismatchWarns(t *testing.T) {
	t.Parallel()
	structure, types := mustLoad(t, `
- name: lines
  for: 3
  structure:
    - name: id
      type: byte
`, `
types:
  byte:
    function:
      name: struct
`)
	logger, hook := test.NewNullLogger()

	source := map[string]any{
		"lines": []any{
			map[string]any{"id": 1},
			map[string]any{"id": 2},
		},
	}
	output, err := binparser.Write(source, structure, types, binparser.WithLogger(logger))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, output, "the source length wins")

	require.NotEmpty(t, hook.Entries)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Contains(t, entry.Message, "lines")
}

func TestCustomCodec(t *testing.T) {
	t.Parallel()
	structure, types := mustLoad(t, `
- name: shouted
  type: upper
`, `
types:
  upper:
    delimiter: [0x00]
    function:
      name: upper
`)

	registry := binparser.NewRegistry()
	registry.Register("upper", binparser.Codec{
		Decode: func(data []byte, _ binparser.Args) (any, error) {
			return strings.ToUpper(string(data)), nil
		},
		Encode: func(value any, _ binparser.Args) ([]byte, error) {
			return []byte(strings.ToLower(value.(string))), nil
		},
	})

	result, err := binparser.Read([]byte("hello\x00"), structure, types, binparser.WithFunctions(registry))
	require.NoError(t, err)
	assert.Equal(t, "HELLO", result.Parsed["shouted"])

	output, err := binparser.Write(result.Parsed, structure, types, binparser.WithFunctions(registry))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello\x00"), output)
}

func TestConstantsAndContains(t *testing.T) {
	t.Parallel()
	structure, types := mustLoad(t, `
- name: id
  type: byte
- name: known
  if:
    operator: contains
    operands: [known_ids, id]
`, `
constants:
  known_ids: [0x01, 0x02, 0x03]
types:
  byte:
    function:
      name: struct
  text:
    delimiter: [0x00]
`)

	result, err := binparser.Read([]byte{0x02, 'y', 'e', 's', 0x00}, structure, types)
	require.NoError(t, err)
	assert.Equal(t, "yes", result.Parsed["known"])

	result, err = binparser.Read([]byte{0x09}, structure, types)
	require.NoError(t, err)
	assert.NotContains(t, result.Parsed, "known")
}

func TestUnresolvedNameIsLiteral(t *testing.T) {
	t.Parallel()
	structure, types := mustLoad(t, `
- name: word
- name: gated
  if:
    operator: eq
    operands: [word, two]
`, `
types:
  text:
    delimiter: [0x00]
`)

	// `two` resolves to nothing and is compared as the literal string.
	result, err := binparser.Read([]byte("two\x00yes\x00"), structure, types)
	require.NoError(t, err)
	assert.Equal(t, "yes", result.Parsed["gated"])
}
