/*
 * st61131 - Expression evaluator tests.
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

package eval

import (
	"testing"

	"github.com/rcornwell/st61131/internal/ast"
	"github.com/rcornwell/st61131/internal/runtime"
	"github.com/rcornwell/st61131/internal/scanerr"
	"github.com/rcornwell/st61131/internal/tagstore"
	"github.com/rcornwell/st61131/internal/value"
)

func newEvaluator(globals map[string]value.Kind) (*Evaluator, tagstore.Store) {
	store := tagstore.New()
	prog := &ast.Program{Functions: map[string]*ast.FunctionDecl{}}
	return New(store, prog, globals), store
}

func lit(v value.Value) ast.Expr { return &ast.Literal{Value: v} }

func TestRealPromotion(t *testing.T) {
	e, _ := newEvaluator(nil)
	expr := &ast.BinaryExpr{Op: ast.OpAdd, Left: lit(value.NewInt(2)), Right: lit(value.NewReal(0.5))}
	v, err := e.Eval(expr, runtime.New())
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != value.Real || v.R != 2.5 {
		t.Fatalf("2 + 0.5 = %+v, want REAL 2.5", v)
	}
}

func TestTimeClosedUnderAddSub(t *testing.T) {
	e, _ := newEvaluator(nil)
	expr := &ast.BinaryExpr{Op: ast.OpAdd, Left: lit(value.NewTime(100)), Right: lit(value.NewTime(250))}
	v, err := e.Eval(expr, runtime.New())
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != value.Time || v.T != 350 {
		t.Fatalf("T#100ms + T#250ms = %+v, want TIME 350", v)
	}
}

func TestShortCircuitAndSkipsRightSideErrors(t *testing.T) {
	e, _ := newEvaluator(map[string]value.Kind{})
	// Right side references an undeclared variable; AND must never evaluate
	// it once the left side is FALSE.
	expr := &ast.BinaryExpr{Op: ast.OpAnd, Left: lit(value.NewBool(false)), Right: &ast.Ident{Name: "missing"}}
	v, err := e.Eval(expr, runtime.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.B {
		t.Fatalf("FALSE AND x = %+v, want FALSE", v)
	}
}

func TestShortCircuitOrSkipsRightSideErrors(t *testing.T) {
	e, _ := newEvaluator(map[string]value.Kind{})
	expr := &ast.BinaryExpr{Op: ast.OpOr, Left: lit(value.NewBool(true)), Right: &ast.Ident{Name: "missing"}}
	v, err := e.Eval(expr, runtime.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.B {
		t.Fatalf("TRUE OR x = %+v, want TRUE", v)
	}
}

func TestXorEvaluatesBothSides(t *testing.T) {
	e, _ := newEvaluator(nil)
	expr := &ast.BinaryExpr{Op: ast.OpXor, Left: lit(value.NewBool(true)), Right: lit(value.NewBool(true))}
	v, err := e.Eval(expr, runtime.New())
	if err != nil {
		t.Fatal(err)
	}
	if v.B {
		t.Fatalf("TRUE XOR TRUE = %+v, want FALSE", v)
	}
}

func TestIntegerDivisionByZeroIsFatal(t *testing.T) {
	e, _ := newEvaluator(nil)
	expr := &ast.BinaryExpr{Op: ast.OpDiv, Left: lit(value.NewInt(5)), Right: lit(value.NewInt(0))}
	_, err := e.Eval(expr, runtime.New())
	se, ok := err.(*scanerr.ScanError)
	if !ok || se.Kind != scanerr.DivisionByZero {
		t.Fatalf("5/0 err = %v, want DivisionByZero ScanError", err)
	}
}

func TestRealDivisionByZeroYieldsInf(t *testing.T) {
	e, _ := newEvaluator(nil)
	expr := &ast.BinaryExpr{Op: ast.OpDiv, Left: lit(value.NewReal(5)), Right: lit(value.NewReal(0))}
	v, err := e.Eval(expr, runtime.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.R != value.NewReal(5).R/0 {
		t.Fatalf("5.0/0.0 = %v", v.R)
	}
}

func TestIntegerPowerStaysInt(t *testing.T) {
	e, _ := newEvaluator(nil)
	// 7 ** 2 / 10 * 10: if ** promoted to REAL this would be 49.0/10*10 = 49.0;
	// integer exponentiation keeps it 49/10*10 = 40 under truncating division.
	pow := &ast.BinaryExpr{Op: ast.OpPow, Left: lit(value.NewInt(7)), Right: lit(value.NewInt(2))}
	div := &ast.BinaryExpr{Op: ast.OpDiv, Left: pow, Right: lit(value.NewInt(10))}
	mul := &ast.BinaryExpr{Op: ast.OpMul, Left: div, Right: lit(value.NewInt(10))}
	v, err := e.Eval(mul, runtime.New())
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != value.Int || v.I != 40 {
		t.Fatalf("7 ** 2 / 10 * 10 = %+v, want INT 40", v)
	}
}

func TestPowerWithNegativeExponentFallsBackToReal(t *testing.T) {
	e, _ := newEvaluator(nil)
	expr := &ast.BinaryExpr{Op: ast.OpPow, Left: lit(value.NewInt(2)), Right: lit(value.NewInt(-1))}
	v, err := e.Eval(expr, runtime.New())
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != value.Real || v.R != 0.5 {
		t.Fatalf("2 ** -1 = %+v, want REAL 0.5", v)
	}
}

func TestPowerWithRealOperandPromotes(t *testing.T) {
	e, _ := newEvaluator(nil)
	expr := &ast.BinaryExpr{Op: ast.OpPow, Left: lit(value.NewReal(2.5)), Right: lit(value.NewInt(2))}
	v, err := e.Eval(expr, runtime.New())
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != value.Real || v.R != 6.25 {
		t.Fatalf("2.5 ** 2 = %+v, want REAL 6.25", v)
	}
}

func TestModByZeroIsFatal(t *testing.T) {
	e, _ := newEvaluator(nil)
	expr := &ast.BinaryExpr{Op: ast.OpMod, Left: lit(value.NewInt(5)), Right: lit(value.NewInt(0))}
	_, err := e.Eval(expr, runtime.New())
	se, ok := err.(*scanerr.ScanError)
	if !ok || se.Kind != scanerr.DivisionByZero {
		t.Fatalf("5 MOD 0 err = %v, want DivisionByZero ScanError", err)
	}
}

func TestGlobalReadWriteRoundTrip(t *testing.T) {
	e, _ := newEvaluator(map[string]value.Kind{"Speed": value.Real})
	if err := e.SetIdent("Speed", value.NewInt(7), runtime.New()); err != nil {
		t.Fatal(err)
	}
	v, err := e.GetIdent("Speed", runtime.New())
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != value.Real || v.R != 7 {
		t.Fatalf("Speed = %+v, want REAL 7 (coerced on write)", v)
	}
}

func TestUndeclaredIdentIsFatal(t *testing.T) {
	e, _ := newEvaluator(map[string]value.Kind{})
	_, err := e.Eval(&ast.Ident{Name: "Ghost"}, runtime.New())
	se, ok := err.(*scanerr.ScanError)
	if !ok || se.Kind != scanerr.UndeclaredVariable {
		t.Fatalf("err = %v, want UndeclaredVariable ScanError", err)
	}
}

func TestFrameLocalShadowsGlobal(t *testing.T) {
	e, store := newEvaluator(map[string]value.Kind{"X": value.Int})
	store.SetInt("X", 99)
	rs := runtime.New()
	fr := runtime.NewFrame()
	fr.Locals["X"] = value.NewInt(1)
	rs.Push(fr)
	v, err := e.Eval(&ast.Ident{Name: "X"}, rs)
	if err != nil {
		t.Fatal(err)
	}
	if v.I != 1 {
		t.Fatalf("X = %d, want 1 (frame local shadows global)", v.I)
	}
}

func TestFieldAccessReadsInstance(t *testing.T) {
	e, store := newEvaluator(nil)
	store.InitInstance("Timer1", ast.TON)
	inst, _ := store.GetInstance("Timer1")
	inst.Fields["Q"] = value.NewBool(true)
	v, err := e.GetField("Timer1", "Q")
	if err != nil {
		t.Fatal(err)
	}
	if !v.B {
		t.Fatalf("Timer1.Q = %+v, want TRUE", v)
	}
}

func TestComparisonPromotesMixedNumeric(t *testing.T) {
	e, _ := newEvaluator(nil)
	expr := &ast.BinaryExpr{Op: ast.OpLt, Left: lit(value.NewInt(2)), Right: lit(value.NewReal(2.5))}
	v, err := e.Eval(expr, runtime.New())
	if err != nil {
		t.Fatal(err)
	}
	if !v.B {
		t.Fatalf("2 < 2.5 = %+v, want TRUE", v)
	}
}

func TestBuiltinCallDispatch(t *testing.T) {
	e, _ := newEvaluator(nil)
	expr := &ast.CallExpr{Name: "ABS", Args: []ast.Expr{lit(value.NewInt(-5))}}
	v, err := e.Eval(expr, runtime.New())
	if err != nil {
		t.Fatal(err)
	}
	if v.I != 5 {
		t.Fatalf("ABS(-5) = %d, want 5", v.I)
	}
}
