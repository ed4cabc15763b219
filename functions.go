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
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Args carries the keyword arguments of a type's function, taken verbatim
// from the `function.args` mapping of the types description.
type Args map[string]any

func (a Args) str(key, fallback string) string {
	if v, ok := a[key]; ok {
		return asString(v)
	}
	return fallback
}

func (a Args) byteSeq(key string) ([]byte, error) {
	v, ok := a[key]
	if !ok {
		return nil, nil
	}
	b, err := toBytes(v)
	return b, errors.Wrapf(err, "argument %q", key)
}

func (a Args) list(key string) []any {
	l, _ := asList(a[key])
	return l
}

func (a Args) table(key string) map[int]any {
	return intKeyed(a[key])
}

// DecodeFunc interprets the raw bytes of one field.
type DecodeFunc func(data []byte, args Args) (any, error)

// EncodeFunc is the inverse of a [DecodeFunc]: it turns a parsed value
// back into the raw bytes of the field.
type EncodeFunc func(value any, args Args) ([]byte, error)

// Codec is a matched decoder/encoder pair. For every byte string b in the
// decoder's domain, Encode(Decode(b)) must reproduce b exactly.
type Codec struct {
	Decode DecodeFunc
	Encode EncodeFunc
}

// Registry holds the codec pairs a walk may invoke, keyed by function
// name. The zero value is unusable; construct with [NewRegistry], which
// installs the built-in pairs, then extend or override with
// [Registry.Register].
type Registry struct {
	codecs map[string]Codec
}

// NewRegistry returns a registry with all built-in codec pairs installed,
// including the deprecated ones.
func NewRegistry() *Registry {
	r := &Registry{codecs: map[string]Codec{}}
	r.Register("raw", Codec{Decode: decodeRaw, Encode: encodeRaw})
	r.Register("bit", Codec{Decode: decodeBit, Encode: encodeBit})
	r.Register("struct", Codec{Decode: decodeStruct, Encode: encodeStruct})
	r.Register("text", Codec{Decode: decodeText, Encode: encodeText})
	r.Register("flags", Codec{Decode: decodeFlags, Encode: encodeFlags})
	registerDeprecated(r)
	return r
}

// Register installs or replaces a codec pair.
func (r *Registry) Register(name string, codec Codec) {
	r.codecs[name] = codec
}

// Get returns the codec pair registered under name.
func (r *Registry) Get(name string) (Codec, bool) {
	codec, ok := r.codecs[name]
	return codec, ok
}

// Names returns the registered function names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.codecs))
	for name := range r.codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(name string) (Codec, error) {
	codec, ok := r.codecs[name]
	if !ok {
		return Codec{}, errors.Wrapf(ErrUnknownFunction, "%q", name)
	}
	return codec, nil
}

func (r *Registry) decode(name string, data []byte, args Args) (any, error) {
	codec, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	value, err := codec.Decode(data, args)
	return value, errors.Wrapf(err, "decoding %s", name)
}

func (r *Registry) encode(name string, value any, args Args) ([]byte, error) {
	codec, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	data, err := codec.Encode(value, args)
	return data, errors.Wrapf(err, "encoding %s", name)
}

// raw renders a byte buffer as space-separated hex pairs and back.

func decodeRaw(data []byte, _ Args) (any, error) {
	pairs := make([]string, len(data))
	for i, b := range data {
		pairs[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(pairs, " "), nil
}

func encodeRaw(value any, _ Args) ([]byte, error) {
	s, ok := value.(string)
	if !ok {
		return nil, errors.Errorf("raw value %v is not a string", value)
	}
	data, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	return data, errors.Wrap(err, "raw value")
}

// bit renders a single byte as its eight-character binary form and back.

func decodeBit(data []byte, _ Args) (any, error) {
	if len(data) != 1 {
		return nil, errors.Errorf("bit field is %d bytes, want 1", len(data))
	}
	return fmt.Sprintf("%08b", data[0]), nil
}

func encodeBit(value any, _ Args) ([]byte, error) {
	s, ok := value.(string)
	if !ok {
		return nil, errors.Errorf("bit value %v is not a string", value)
	}
	n, err := strconv.ParseUint(s, 2, 8)
	if err != nil {
		return nil, errors.Wrap(err, "bit value")
	}
	return []byte{byte(n)}, nil
}

// text decodes a byte sequence in a named character encoding. The `split`
// argument replaces an internal delimiter sequence with logical newlines.

func textEncoding(name string) (encoding.Encoding, error) {
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %q", name)
	}
	return enc, nil
}

func decodeText(data []byte, args Args) (any, error) {
	enc, err := textEncoding(args.str("encoding", "utf-8"))
	if err != nil {
		return nil, err
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, errors.Wrap(err, "decoding text")
	}
	s := string(decoded)

	split, err := args.byteSeq("split")
	if err != nil {
		return nil, err
	}
	if len(split) > 0 {
		s = strings.Join(strings.Split(s, runesOf(split)), "\n")
	}
	return s, nil
}

func encodeText(value any, args Args) ([]byte, error) {
	s, ok := value.(string)
	if !ok {
		return nil, errors.Errorf("text value %v is not a string", value)
	}
	split, err := args.byteSeq("split")
	if err != nil {
		return nil, err
	}
	if len(split) > 0 {
		s = strings.Join(strings.Split(s, "\n"), runesOf(split))
	}
	enc, err := textEncoding(args.str("encoding", "utf-8"))
	if err != nil {
		return nil, err
	}
	encoded, err := enc.NewEncoder().Bytes([]byte(s))
	return encoded, errors.Wrap(err, "encoding text")
}

// runesOf renders a byte sequence as the string of the corresponding code
// points, matching how delimiters behave inside decoded text.
func runesOf(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// flags explodes a single byte into named booleans. Bits present in the
// annotation always appear; unannotated bits appear as flag_<hex> only
// when set.

func decodeFlags(data []byte, args Args) (any, error) {
	if len(data) != 1 {
		return nil, errors.Errorf("flags field is %d bytes, want 1", len(data))
	}
	annotation := args.table("annotation")
	bitfield := int(data[0])

	flags := map[string]any{}
	for i := 0; i < 8; i++ {
		flag := 1 << i
		value := bitfield&flag != 0
		if label, ok := annotation[flag]; ok {
			flags[asString(label)] = value
		} else if value {
			flags[fmt.Sprintf("flag_%02x", flag)] = value
		}
	}
	return flags, nil
}

func encodeFlags(value any, args Args) ([]byte, error) {
	flags, ok := asMap(value)
	if !ok {
		return nil, errors.Errorf("flags value %v is not a mapping", value)
	}
	annotation := args.table("annotation")
	inverse := map[string]int{}
	for flag, label := range annotation {
		inverse[asString(label)] = flag
	}

	bitfield := 0
	for key, v := range flags {
		if !truthy(v) {
			continue
		}
		if flag, ok := inverse[key]; ok {
			bitfield |= flag
			continue
		}
		flag, err := strconv.ParseUint(strings.TrimPrefix(key, "flag_"), 16, 8)
		if err != nil {
			return nil, errors.Wrapf(err, "flag %q", key)
		}
		bitfield |= int(flag)
	}
	return []byte{byte(bitfield)}, nil
}
