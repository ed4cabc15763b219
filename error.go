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
	"errors"
	"fmt"
)

// Error kinds reported by the engine. Match with [errors.Is]; when a
// failure is of one of these kinds, the error returned by [Read] or
// [Write] wraps it, together with the path of the offending item for
// errors raised during the walk. Other failures, such as codec errors or
// a missing source value, wrap none of these.
var (
	// ErrUnknownType reports an item whose type is neither defined in the
	// types description nor a built-in.
	ErrUnknownType = errors.New("unknown type")

	// ErrUnknownFunction reports a type whose function is not present in
	// the codec registry.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrUnknownMacro reports a `macro` reference with no matching entry
	// in the macros section of the types description.
	ErrUnknownMacro = errors.New("unknown macro")

	// ErrUnknownOperator reports an expression naming an operator outside
	// the operator table.
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrExpression reports a structurally malformed expression, such as
	// missing operands or a wrong operand count.
	ErrExpression = errors.New("malformed expression")

	// ErrDebugLevel reports a debug level with bits outside the defined
	// set.
	ErrDebugLevel = errors.New("invalid debug level")
)

// errEndOfInput terminates the current walk. The reader treats it as clean
// termination and it never escapes [Read].
var errEndOfInput = errors.New("end of input")

// pathError decorates an engine error with the path of the item that
// caused it, e.g. `lines[3].content`.
type pathError struct {
	path string
	err  error
}

// Unwrap implements error unwrapping viz [errors.Unwrap].
func (e *pathError) Unwrap() error { return e.err }

// Error implements [error].
func (e *pathError) Error() string {
	if e.path == "" {
		return fmt.Sprintf("binparser: %v", e.err)
	}
	return fmt.Sprintf("binparser: at %s: %v", e.path, e.err)
}

// atPath attaches path context to err. The innermost path wins; end of
// input passes through undecorated so the reader can recognize it.
func atPath(path string, err error) error {
	if err == nil || errors.Is(err, errEndOfInput) {
		return err
	}
	var pe *pathError
	if errors.As(err, &pe) {
		return err
	}
	return &pathError{path: path, err: err}
}

// joinPath extends an item path with a field name.
func joinPath(path, name string) string {
	switch {
	case name == "":
		return path
	case path == "":
		return name
	default:
		return path + "." + name
	}
}
