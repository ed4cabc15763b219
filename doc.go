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

// Package binparser is a data-driven codec for binary file formats.
//
// Instead of generated code, the codec is driven by two declarative
// descriptions: a structure description, which is an ordered sequence of
// items describing the layout of the byte stream, and a types description,
// which names the primitive decoders, constants and reusable macros the
// structure refers to. [Read] walks the structure against a byte stream and
// produces a nested tree of named values; [Write] walks the same structure
// against such a tree and reconstructs the byte stream. For every
// description pair and every stream that decodes without exhausting its
// input, the two are exact inverses.
//
// Descriptions are plain mapping/sequence trees, typically loaded from YAML
// with [LoadStructure] and [LoadTypes]. A structure item may carry a field
// name, a type, a fixed or late-bound size, a delimiter, an `if` predicate,
// a loop modifier (`for`, `do_while`, `while`), a `macro` reference, or a
// nested `structure`. Predicates and loop conditions are small
// operator/operand trees evaluated against the values parsed so far.
//
// Primitive decoding and encoding is performed by pairs of functions held
// in a [Registry]. The built-in pairs (`raw`, `bit`, `struct`, `text`,
// `flags`) can be overridden or extended with [Registry.Register]; every
// pair must satisfy encode∘decode = id over its domain.
//
// # Support Status
//
// The engine holds the full input in memory and walks it sequentially;
// there is no streaming mode and a single walk is not reentrant. Separate
// walks are independent and may run concurrently. Descriptions are not
// validated ahead of time beyond what the walk itself needs; a malformed
// description surfaces as an error carrying the path of the offending
// item.
package binparser
