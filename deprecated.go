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
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Deprecated codec pairs. Earlier revisions shipped separate int, float,
// colour, date and map functions; `struct` with format strings and
// annotations subsumes them all. They remain registered so that old
// descriptions keep working, at the cost of a one-time warning.

var deprecationOnce sync.Once

func deprecationWarning(name string) {
	deprecationOnce.Do(func() {
		logrus.Warnf("type %q is deprecated, use `struct` instead", name)
	})
}

func registerDeprecated(r *Registry) {
	r.Register("int", Codec{Decode: decodeInt, Encode: encodeInt})
	r.Register("float", Codec{Decode: decodeFloat, Encode: encodeFloat})
	r.Register("colour", Codec{Decode: decodeColour, Encode: encodeColour})
	r.Register("date", Codec{Decode: decodeDate, Encode: encodeDate})
	r.Register("map", Codec{Decode: decodeMap, Encode: encodeMap})
}

// intFromLittleEndian interprets data as digits in base 256, least
// significant byte first.
func intFromLittleEndian(data []byte) (int, error) {
	if len(data) > 8 || (len(data) == 8 && data[7] >= 0x80) {
		return 0, errors.Errorf("integer field of %d bytes overflows", len(data))
	}
	value := 0
	for i := len(data) - 1; i >= 0; i-- {
		value = value*0x100 + int(data[i])
	}
	return value, nil
}

// intToLittleEndian emits the minimal little-endian form of value; the
// surrounding field pads it back to its fixed size.
func intToLittleEndian(value int) ([]byte, error) {
	if value < 0 {
		return nil, errors.Errorf("integer value %d is negative", value)
	}
	if value == 0 {
		return []byte{0x00}, nil
	}
	var out []byte
	for value > 0 {
		out = append(out, byte(value%0x100))
		value >>= 8
	}
	return out, nil
}

func decodeInt(data []byte, _ Args) (any, error) {
	deprecationWarning("int")
	return intFromLittleEndian(data)
}

func encodeInt(value any, _ Args) ([]byte, error) {
	deprecationWarning("int")
	n, ok := asInt(value)
	if !ok {
		return nil, errors.Errorf("int value %v is not an integer", value)
	}
	return intToLittleEndian(n)
}

func decodeFloat(data []byte, _ Args) (any, error) {
	deprecationWarning("float")
	if len(data) != 4 {
		return nil, errors.Errorf("float field is %d bytes, want 4", len(data))
	}
	return float64(math.Float32frombits(binary.BigEndian.Uint32(data))), nil
}

func encodeFloat(value any, _ Args) ([]byte, error) {
	deprecationWarning("float")
	f, ok := asFloat(value)
	if !ok {
		return nil, errors.Errorf("float value %v is not a number", value)
	}
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, math.Float32bits(float32(f)))
	return out, nil
}

func decodeColour(data []byte, _ Args) (any, error) {
	deprecationWarning("colour")
	n, err := intFromLittleEndian(data)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("0x%06x", n), nil
}

func encodeColour(value any, _ Args) ([]byte, error) {
	deprecationWarning("colour")
	s, ok := value.(string)
	if !ok {
		return nil, errors.Errorf("colour value %v is not a string", value)
	}
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return nil, errors.Wrap(err, "colour value")
	}
	return intToLittleEndian(int(n))
}

func decodeDate(data []byte, args Args) (any, error) {
	deprecationWarning("date")
	n, err := intFromLittleEndian(data)
	if err != nil {
		return nil, err
	}
	if name, ok := args.table("annotation")[n]; ok {
		return name, nil
	}
	return strconv.Itoa(n), nil
}

func encodeDate(value any, args Args) ([]byte, error) {
	deprecationWarning("date")
	for n, name := range args.table("annotation") {
		if equal(name, value) {
			return intToLittleEndian(n)
		}
	}
	n, err := strconv.Atoi(asString(value))
	if err != nil {
		return nil, errors.Wrap(err, "date value")
	}
	return intToLittleEndian(n)
}

func decodeMap(data []byte, args Args) (any, error) {
	deprecationWarning("map")
	if len(data) != 1 {
		return nil, errors.Errorf("map field is %d bytes, want 1", len(data))
	}
	if name, ok := args.table("annotation")[int(data[0])]; ok {
		return name, nil
	}
	return fmt.Sprintf("%02x", data[0]), nil
}

func encodeMap(value any, args Args) ([]byte, error) {
	deprecationWarning("map")
	for n, name := range args.table("annotation") {
		if equal(name, value) {
			return []byte{byte(n)}, nil
		}
	}
	n, err := strconv.ParseUint(asString(value), 16, 8)
	if err != nil {
		return nil, errors.Wrap(err, "map value")
	}
	return []byte{byte(n)}, nil
}
