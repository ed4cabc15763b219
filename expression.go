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
	"strings"

	"github.com/pkg/errors"
)

// An expression is a mapping with an `operator` and a list of `operands`.
// Operands are scalars, names of previously parsed fields or constants, or
// nested expressions. A name that resolves to nothing is kept as a
// literal, so descriptions can compare against inline strings.

type operatorFunc func(operands []any) (any, error)

var operators = map[string]operatorFunc{
	"not": func(operands []any) (any, error) {
		if len(operands) != 1 {
			return nil, errors.Wrap(ErrExpression, "`not` takes one operand")
		}
		return !truthy(operands[0]), nil
	},
	"and": binaryOperator(func(a, b any) (any, error) {
		if x, y, ok := bothInts(a, b); ok {
			return x & y, nil
		}
		return truthy(a) && truthy(b), nil
	}),
	"or": binaryOperator(func(a, b any) (any, error) {
		if x, y, ok := bothInts(a, b); ok {
			return x | y, nil
		}
		return truthy(a) || truthy(b), nil
	}),
	"xor": binaryOperator(func(a, b any) (any, error) {
		if x, y, ok := bothInts(a, b); ok {
			return x ^ y, nil
		}
		return truthy(a) != truthy(b), nil
	}),
	"eq": binaryOperator(func(a, b any) (any, error) {
		return equal(a, b), nil
	}),
	"ne": binaryOperator(func(a, b any) (any, error) {
		return !equal(a, b), nil
	}),
	"ge": comparison(func(c int) bool { return c >= 0 }),
	"gt": comparison(func(c int) bool { return c > 0 }),
	"le": comparison(func(c int) bool { return c <= 0 }),
	"lt": comparison(func(c int) bool { return c < 0 }),
	"mod": binaryOperator(func(a, b any) (any, error) {
		x, y, ok := bothInts(a, b)
		if !ok {
			return nil, errors.Wrapf(ErrExpression, "`mod` wants integers, got %v and %v", a, b)
		}
		if y == 0 {
			return nil, errors.Wrap(ErrExpression, "`mod` by zero")
		}
		return x % y, nil
	}),
	"contains": binaryOperator(contains),
}

func binaryOperator(apply func(a, b any) (any, error)) operatorFunc {
	return func(operands []any) (any, error) {
		if len(operands) != 2 {
			return nil, errors.Wrapf(ErrExpression, "operator takes two operands, got %d", len(operands))
		}
		return apply(operands[0], operands[1])
	}
}

func comparison(accept func(c int) bool) operatorFunc {
	return binaryOperator(func(a, b any) (any, error) {
		c, ok := compare(a, b)
		if !ok {
			return nil, errors.Wrapf(ErrExpression, "cannot order %v and %v", a, b)
		}
		return accept(c), nil
	})
}

func bothInts(a, b any) (int, int, bool) {
	x, xok := intNotBool(a)
	y, yok := intNotBool(b)
	return x, y, xok && yok
}

// intNotBool keeps booleans out of the bitwise paths: `and` over two
// parsed flags is logical, over two parsed integers bitwise.
func intNotBool(v any) (int, bool) {
	if _, isBool := v.(bool); isBool {
		return 0, false
	}
	return asInt(v)
}

func contains(container, element any) (any, error) {
	switch c := container.(type) {
	case string:
		return strings.Contains(c, asString(element)), nil
	case []any:
		for _, member := range c {
			if equal(member, element) {
				return true, nil
			}
		}
		return false, nil
	case map[string]any:
		_, ok := c[asString(element)]
		return ok, nil
	}
	return nil, errors.Wrapf(ErrExpression, "`contains` wants a sequence, got %v", container)
}

// evaluate resolves every operand (recursing into nested expressions,
// then resolving names through the cache and constants) and applies the
// operator. A single operand with no operator passes through unchanged.
func (w *walker) evaluate(expression any) (any, error) {
	expr, ok := asMap(expression)
	if !ok {
		return nil, errors.Wrapf(ErrExpression, "%v is not a mapping", expression)
	}
	rawOperands, ok := asList(expr["operands"])
	if !ok {
		return nil, errors.Wrap(ErrExpression, "missing operands")
	}

	operands := make([]any, 0, len(rawOperands))
	for _, operand := range rawOperands {
		if _, nested := asMap(operand); nested {
			value, err := w.evaluate(operand)
			if err != nil {
				return nil, err
			}
			operands = append(operands, value)
			continue
		}
		operands = append(operands, w.getValue(operand))
	}

	operator, hasOperator := expr["operator"]
	if !hasOperator {
		if len(operands) == 1 {
			return operands[0], nil
		}
		return nil, errors.Wrap(ErrExpression, "missing operator")
	}
	apply, ok := operators[asString(operator)]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownOperator, "%q", asString(operator))
	}
	return apply(operands)
}
