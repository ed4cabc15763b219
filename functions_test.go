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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	binparser "github.com/jfjlaros/bin-parser"
)

func codec(t *testing.T, name string) binparser.Codec {
	t.Helper()
	c, ok := binparser.NewRegistry().Get(name)
	require.True(t, ok, "codec %q not registered", name)
	return c
}

// roundTrip asserts the codec pair contract: encode(decode(b)) == b.
func roundTrip(t *testing.T, name string, data []byte, args binparser.Args) any {
	t.Helper()
	c := codec(t, name)
	value, err := c.Decode(data, args)
	require.NoError(t, err)
	encoded, err := c.Encode(value, args)
	require.NoError(t, err)
	require.Equal(t, data, encoded, "codec %q pair", name)
	return value
}

func TestRawCodec(t *testing.T) {
	t.Parallel()
	value := roundTrip(t, "raw", []byte{0x01, 0x02, 0xff}, nil)
	assert.Equal(t, "01 02 ff", value)

	value = roundTrip(t, "raw", []byte{}, nil)
	assert.Equal(t, "", value)
}

func TestBitCodec(t *testing.T) {
	t.Parallel()
	value := roundTrip(t, "bit", []byte{0x31}, nil)
	assert.Equal(t, "00110001", value)
}

func TestStructCodec(t *testing.T) {
	t.Parallel()

	t.Run("single byte default", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 97, roundTrip(t, "struct", []byte{0x61}, nil))
	})

	t.Run("signed byte", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, -1, roundTrip(t, "struct", []byte{0xff}, binparser.Args{"fmt": "b"}))
		assert.Equal(t, 255, roundTrip(t, "struct", []byte{0xff}, binparser.Args{"fmt": "B"}))
	})

	t.Run("little endian short", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 1999, roundTrip(t, "struct", []byte{0xcf, 0x07}, binparser.Args{"fmt": "<h"}))
	})

	t.Run("big endian short", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 0x01ff, roundTrip(t, "struct", []byte{0x01, 0xff}, binparser.Args{"fmt": ">H"}))
	})

	t.Run("int and unsigned int", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, -2, roundTrip(t, "struct", []byte{0xfe, 0xff, 0xff, 0xff}, binparser.Args{"fmt": "<i"}))
		assert.Equal(t, 0x01020304, roundTrip(t, "struct", []byte{0x01, 0x02, 0x03, 0x04}, binparser.Args{"fmt": ">I"}))
	})

	t.Run("character", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "A", roundTrip(t, "struct", []byte{0x41}, binparser.Args{"fmt": "c"}))
	})

	t.Run("float", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 1.0, roundTrip(t, "struct", []byte{0x3f, 0x80, 0x00, 0x00}, binparser.Args{"fmt": ">f"}))
	})

	t.Run("repeat count makes a list", func(t *testing.T) {
		t.Parallel()
		value := roundTrip(t, "struct", []byte{0x01, 0x02, 0x03}, binparser.Args{"fmt": "3B"})
		assert.Equal(t, []any{1, 2, 3}, value)
	})

	t.Run("labels make a mapping", func(t *testing.T) {
		t.Parallel()
		args := binparser.Args{"fmt": "BBB", "labels": []any{"r", "g", "b"}}
		value := roundTrip(t, "struct", []byte{0x00, 0x80, 0xff}, args)
		assert.Equal(t, map[string]any{"r": 0, "g": 128, "b": 255}, value)
	})

	t.Run("annotation substitutes values", func(t *testing.T) {
		t.Parallel()
		args := binparser.Args{
			"fmt":        "BBB",
			"labels":     []any{"r", "g", "b"},
			"annotation": map[any]any{0xff: "full"},
		}
		value := roundTrip(t, "struct", []byte{0x00, 0x80, 0xff}, args)
		assert.Equal(t, map[string]any{"r": 0, "g": 128, "b": "full"}, value)
	})

	t.Run("size mismatch errors", func(t *testing.T) {
		t.Parallel()
		c := codec(t, "struct")
		_, err := c.Decode([]byte{0x01}, binparser.Args{"fmt": "<h"})
		require.Error(t, err)
	})

	t.Run("bad format character errors", func(t *testing.T) {
		t.Parallel()
		c := codec(t, "struct")
		_, err := c.Decode([]byte{0x01}, binparser.Args{"fmt": "z"})
		require.Error(t, err)
	})
}

func TestTextCodec(t *testing.T) {
	t.Parallel()

	t.Run("utf-8", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "hello", roundTrip(t, "text", []byte("hello"), nil))
	})

	t.Run("split turns delimiters into newlines", func(t *testing.T) {
		t.Parallel()
		args := binparser.Args{"split": []any{0x09}}
		value := roundTrip(t, "text", []byte("one\ttwo\tthree"), args)
		assert.Equal(t, "one\ntwo\nthree", value)
	})

	t.Run("named encoding", func(t *testing.T) {
		t.Parallel()
		args := binparser.Args{"encoding": "windows-1252"}
		value := roundTrip(t, "text", []byte{0xe9}, args)
		assert.Equal(t, "é", value)
	})
}

func TestFlagsCodec(t *testing.T) {
	t.Parallel()
	args := binparser.Args{"annotation": map[any]any{0x10: "xxxx", 0x01: "unused"}}
	value := roundTrip(t, "flags", []byte{0x31}, args)
	assert.Equal(t, map[string]any{"unused": true, "xxxx": true, "flag_20": true}, value)

	// Annotated bits always appear, even when clear.
	value = roundTrip(t, "flags", []byte{0x00}, args)
	assert.Equal(t, map[string]any{"unused": false, "xxxx": false}, value)
}

func TestDeprecatedCodecs(t *testing.T) {
	t.Parallel()

	t.Run("int", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 0x010200, roundTrip(t, "int", []byte{0x00, 0x02, 0x01}, nil))
	})

	t.Run("int zero", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 0, roundTrip(t, "int", []byte{0x00}, nil))
	})

	t.Run("float", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 1.5, roundTrip(t, "float", []byte{0x3f, 0xc0, 0x00, 0x00}, nil))
	})

	t.Run("colour", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "0xff8000", roundTrip(t, "colour", []byte{0x00, 0x80, 0xff}, nil))
	})

	t.Run("date annotated", func(t *testing.T) {
		t.Parallel()
		args := binparser.Args{"annotation": map[any]any{0x01: "defined"}}
		assert.Equal(t, "defined", roundTrip(t, "date", []byte{0x01}, args))
	})

	t.Run("date plain", func(t *testing.T) {
		t.Parallel()
		args := binparser.Args{"annotation": map[any]any{}}
		assert.Equal(t, "1999123", roundTrip(t, "date", []byte{0x13, 0x81, 0x1e}, args))
	})

	t.Run("map annotated", func(t *testing.T) {
		t.Parallel()
		args := binparser.Args{"annotation": map[any]any{0x02: "two"}}
		assert.Equal(t, "two", roundTrip(t, "map", []byte{0x02}, args))
	})

	t.Run("map fallback", func(t *testing.T) {
		t.Parallel()
		args := binparser.Args{"annotation": map[any]any{}}
		assert.Equal(t, "0a", roundTrip(t, "map", []byte{0x0a}, args))
	})
}

func TestRegistryOverride(t *testing.T) {
	t.Parallel()
	registry := binparser.NewRegistry()
	registry.Register("raw", binparser.Codec{
		Decode: func(data []byte, _ binparser.Args) (any, error) { return len(data), nil },
		Encode: func(value any, _ binparser.Args) ([]byte, error) { return nil, nil },
	})
	c, ok := registry.Get("raw")
	require.True(t, ok)
	value, err := c.Decode([]byte{1, 2, 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, value)
}
