/*
 * st61131 - Typed value representation and IEC 61131-3 coercion rules.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package value implements the tagged-variant runtime value and the
// assignment-coercion table a storage slot's declared type applies to it.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind discriminates the payload held by a Value.
type Kind int

const (
	Bool Kind = iota
	Int
	Real
	Time
	String
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "BOOL"
	case Int:
		return "INT"
	case Real:
		return "REAL"
	case Time:
		return "TIME"
	case String:
		return "STRING"
	default:
		return "UNKNOWN"
	}
}

// Value is a dynamically-typed IEC 61131-3 scalar. The zero Value is BOOL
// FALSE. Only one of the payload fields is meaningful, selected by Kind.
type Value struct {
	Kind Kind
	B    bool
	I    int64
	R    float64
	T    int64 // milliseconds, non-negative
	S    string
}

func NewBool(b bool) Value    { return Value{Kind: Bool, B: b} }
func NewInt(i int64) Value    { return Value{Kind: Int, I: i} }
func NewReal(r float64) Value { return Value{Kind: Real, R: r} }
func NewTime(ms int64) Value  { return Value{Kind: Time, T: clampNonNegative(ms)} }
func NewString(s string) Value { return Value{Kind: String, S: s} }

func clampNonNegative(ms int64) int64 {
	if ms < 0 {
		return 0
	}
	return ms
}

// Default returns the IEC 61131-3 default initial value for a declared kind.
func Default(k Kind) Value {
	switch k {
	case Bool:
		return NewBool(false)
	case Int:
		return NewInt(0)
	case Real:
		return NewReal(0)
	case Time:
		return NewTime(0)
	case String:
		return NewString("")
	default:
		return NewBool(false)
	}
}

// IsTruthy reports a BOOL value's truth; callers must not invoke this on a
// non-BOOL Value.
func (v Value) IsTruthy() bool { return v.Kind == Bool && v.B }

// String renders v for diagnostics, not for coercion or storage.
func (v Value) String() string {
	switch v.Kind {
	case Bool:
		return strconv.FormatBool(v.B)
	case Int:
		return strconv.FormatInt(v.I, 10)
	case Real:
		return strconv.FormatFloat(v.R, 'g', -1, 64)
	case Time:
		return strconv.FormatInt(v.T, 10) + "ms"
	case String:
		return v.S
	default:
		return "?"
	}
}

// TruncToInt truncates a float64 toward zero, the rule used for every
// REAL->INT coercion (3.7->3, -3.7->-3, 2.5->2).
func TruncToInt(f float64) int64 {
	return int64(math.Trunc(f))
}

// Coerce stores v into a slot whose declared type is target, following the
// assignment-coercion table below. Coercions absent from the table
// (e.g. BOOL/TIME either direction) are returned as a *CoercionError
// rather than silently defaulting.
func Coerce(v Value, target Kind) (Value, error) {
	switch target {
	case Bool:
		return coerceToBool(v)
	case Int:
		return coerceToInt(v)
	case Real:
		return coerceToReal(v)
	case Time:
		return coerceToTime(v)
	case String:
		return coerceToString(v)
	default:
		return Value{}, &CoercionError{From: v.Kind, To: target}
	}
}

// CoercionError reports an (expression-kind, declared-kind) pair for which
// the coercion table has no rule.
type CoercionError struct {
	From Kind
	To   Kind
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("no coercion from %s to %s", e.From, e.To)
}

func coerceToBool(v Value) (Value, error) {
	switch v.Kind {
	case Bool:
		return v, nil
	case Int:
		return NewBool(v.I != 0), nil
	case Real:
		return NewBool(v.R != 0), nil
	case String:
		s := strings.ToUpper(strings.TrimSpace(v.S))
		switch s {
		case "TRUE", "1":
			return NewBool(true), nil
		case "FALSE", "0":
			return NewBool(false), nil
		default:
			return Value{}, &CoercionError{From: v.Kind, To: Bool}
		}
	default:
		return Value{}, &CoercionError{From: v.Kind, To: Bool}
	}
}

func coerceToInt(v Value) (Value, error) {
	switch v.Kind {
	case Bool:
		if v.B {
			return NewInt(1), nil
		}
		return NewInt(0), nil
	case Int:
		return v, nil
	case Real:
		return NewInt(TruncToInt(v.R)), nil
	case String:
		n, err := strconv.ParseInt(strings.TrimSpace(v.S), 10, 64)
		if err != nil {
			return NewInt(0), nil // parse failure stores 0
		}
		return NewInt(n), nil
	default:
		return Value{}, &CoercionError{From: v.Kind, To: Int}
	}
}

func coerceToReal(v Value) (Value, error) {
	switch v.Kind {
	case Bool:
		if v.B {
			return NewReal(1), nil
		}
		return NewReal(0), nil
	case Int:
		return NewReal(float64(v.I)), nil
	case Real:
		return v, nil
	case String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.S), 64)
		if err != nil {
			return NewReal(0), nil
		}
		return NewReal(f), nil
	default:
		return Value{}, &CoercionError{From: v.Kind, To: Real}
	}
}

func coerceToTime(v Value) (Value, error) {
	switch v.Kind {
	case Int:
		return NewTime(v.I), nil
	case Real:
		return NewTime(int64(math.Floor(v.R))), nil
	case Time:
		return v, nil
	case String:
		ms, err := strconv.ParseInt(strings.TrimSpace(v.S), 10, 64)
		if err != nil {
			return NewTime(0), nil
		}
		return NewTime(ms), nil
	default:
		return Value{}, &CoercionError{From: v.Kind, To: Time}
	}
}

func coerceToString(v Value) (Value, error) {
	switch v.Kind {
	case Bool:
		if v.B {
			return NewString("TRUE"), nil
		}
		return NewString("FALSE"), nil
	case Int:
		return NewString(strconv.FormatInt(v.I, 10)), nil
	case Real:
		return NewString(strconv.FormatFloat(v.R, 'g', -1, 64)), nil
	case Time:
		return NewString(strconv.FormatInt(v.T, 10)), nil
	case String:
		return v, nil
	default:
		return Value{}, &CoercionError{From: v.Kind, To: String}
	}
}
