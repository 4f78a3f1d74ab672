/*
 * st61131 - Built-in function library: numeric, selection, conversion.
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

// Package builtins implements the IEC 61131-3 standard function library:
// numeric functions over REAL, type-preserving selection (ABS/MIN/MAX), and
// the X_TO_Y conversion family. Domain errors never fail a call — they
// surface as NaN or ±Infinity, the same way the evaluator lets
// REAL division by zero through rather than raising DivisionByZero.
package builtins

import (
	"fmt"
	"math"
	"strings"

	"github.com/rcornwell/st61131/internal/value"
)

// ErrArity reports a built-in called with the wrong number of arguments.
type ErrArity struct {
	Name string
	Want int
	Got  int
}

func (e *ErrArity) Error() string {
	return fmt.Sprintf("%s expects %d argument(s), got %d", e.Name, e.Want, e.Got)
}

// ErrUnknown reports a name with no registered built-in.
type ErrUnknown struct{ Name string }

func (e *ErrUnknown) Error() string { return "unknown built-in function: " + e.Name }

// Call dispatches a built-in by name (case-insensitive) over already
// evaluated arguments and returns its result.
func Call(name string, args []value.Value) (value.Value, error) {
	upper := strings.ToUpper(name)
	if fn, ok := unary[upper]; ok {
		if len(args) != 1 {
			return value.Value{}, &ErrArity{Name: upper, Want: 1, Got: len(args)}
		}
		return fn(args[0])
	}
	switch upper {
	case "MIN":
		return minMax(args, true)
	case "MAX":
		return minMax(args, false)
	case "TRUNC":
		if len(args) != 1 {
			return value.Value{}, &ErrArity{Name: upper, Want: 1, Got: len(args)}
		}
		r, err := value.Coerce(args[0], value.Real)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewInt(value.TruncToInt(r.R)), nil
	}
	if conv, ok := conversions[upper]; ok {
		if len(args) != 1 {
			return value.Value{}, &ErrArity{Name: upper, Want: 1, Got: len(args)}
		}
		return conv(args[0])
	}
	return value.Value{}, &ErrUnknown{Name: name}
}

// unary holds the REAL-domain math functions plus ABS, each real-valued
// except ABS which is type-preserving.
var unary = map[string]func(value.Value) (value.Value, error){
	"SQRT": realFn(math.Sqrt),
	"SIN":  realFn(math.Sin),
	"COS":  realFn(math.Cos),
	"TAN":  realFn(math.Tan),
	"ASIN": realFn(math.Asin),
	"ACOS": realFn(math.Acos),
	"ATAN": realFn(math.Atan),
	"LN":   realFn(math.Log),
	"LOG":  realFn(math.Log10),
	"EXP":  realFn(math.Exp),
	"ABS":  abs,
}

// realFn lifts a float64->float64 math function to operate over any numeric
// Value, promoting to REAL first. Domain errors already yield NaN/±Inf from
// Go's math package, which is passed through unchanged.
func realFn(f func(float64) float64) func(value.Value) (value.Value, error) {
	return func(v value.Value) (value.Value, error) {
		r, err := value.Coerce(v, value.Real)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewReal(f(r.R)), nil
	}
}

// abs is type-preserving: ABS(INT) stays INT, ABS(REAL) stays REAL. The
// compliance boundary case ABS(-32768) = 32768 relies on the 64-bit Int
// payload: a fixed 16-bit INT would overflow, so no clamping happens here.
func abs(v value.Value) (value.Value, error) {
	switch v.Kind {
	case value.Int:
		if v.I < 0 {
			return value.NewInt(-v.I), nil
		}
		return v, nil
	case value.Real:
		return value.NewReal(math.Abs(v.R)), nil
	default:
		return value.Value{}, &value.CoercionError{From: v.Kind, To: value.Real}
	}
}

// minMax implements MIN/MAX: type-preserving between two same-kind numeric
// operands, REAL-promoting when mixed.
func minMax(args []value.Value, wantMin bool) (value.Value, error) {
	if len(args) != 2 {
		name := "MAX"
		if wantMin {
			name = "MIN"
		}
		return value.Value{}, &ErrArity{Name: name, Want: 2, Got: len(args)}
	}
	a, b := args[0], args[1]
	if a.Kind == value.Real || b.Kind == value.Real {
		ra, err := value.Coerce(a, value.Real)
		if err != nil {
			return value.Value{}, err
		}
		rb, err := value.Coerce(b, value.Real)
		if err != nil {
			return value.Value{}, err
		}
		if wantMin == (ra.R < rb.R) {
			return ra, nil
		}
		return rb, nil
	}
	ia, err := value.Coerce(a, value.Int)
	if err != nil {
		return value.Value{}, err
	}
	ib, err := value.Coerce(b, value.Int)
	if err != nil {
		return value.Value{}, err
	}
	if wantMin == (ia.I < ib.I) {
		return ia, nil
	}
	return ib, nil
}

// conversions implements the X_TO_Y family as the assignment-coercion table,
// keyed by destination kind.
var conversions = map[string]func(value.Value) (value.Value, error){
	"BOOL_TO_INT":    toKind(value.Int),
	"BOOL_TO_REAL":   toKind(value.Real),
	"BOOL_TO_STRING": toKind(value.String),
	"INT_TO_BOOL":    toKind(value.Bool),
	"INT_TO_REAL":    toKind(value.Real),
	"INT_TO_TIME":    toKind(value.Time),
	"INT_TO_STRING":  toKind(value.String),
	"REAL_TO_BOOL":   toKind(value.Bool),
	"REAL_TO_INT":    toKind(value.Int),
	"REAL_TO_TIME":   toKind(value.Time),
	"REAL_TO_STRING": toKind(value.String),
	"TIME_TO_INT":    toKind(value.Int),
	"TIME_TO_REAL":   toKind(value.Real),
	"TIME_TO_STRING": toKind(value.String),
	"STRING_TO_BOOL": toKind(value.Bool),
	"STRING_TO_INT":  toKind(value.Int),
	"STRING_TO_REAL": toKind(value.Real),
	"STRING_TO_TIME": toKind(value.Time),
}

func toKind(k value.Kind) func(value.Value) (value.Value, error) {
	return func(v value.Value) (value.Value, error) {
		return value.Coerce(v, k)
	}
}
