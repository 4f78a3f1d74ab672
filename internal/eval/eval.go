/*
 * st61131 - Expression evaluator.
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

// Package eval walks expression trees against a call-frame stack and the
// tag store, applying the operand-promotion and coercion rules. It never
// executes a statement itself: calling into a user-defined
// FUNCTION's body is delegated to a Runner supplied by the statement
// executor, which keeps this package free of a dependency on exec.
package eval

import (
	"fmt"
	"math"

	"github.com/rcornwell/st61131/internal/ast"
	"github.com/rcornwell/st61131/internal/builtins"
	"github.com/rcornwell/st61131/internal/runtime"
	"github.com/rcornwell/st61131/internal/scanerr"
	"github.com/rcornwell/st61131/internal/tagstore"
	"github.com/rcornwell/st61131/internal/value"
)

// Runner executes a user-defined FUNCTION's body and reports its return
// value; the statement executor implements this so eval can invoke
// FUNCTION calls that appear inside expressions without importing exec.
type Runner interface {
	CallFunction(fn *ast.FunctionDecl, args []value.Value, rs *runtime.State) (value.Value, error)
}

// Evaluator holds the state an expression needs beyond its own tree: the
// tag store, the program (for FUNCTION lookups), the declared type of every
// global (VAR/VAR_INPUT/VAR_OUTPUT at PROGRAM scope, keyed by name, built
// by internal/initializer), and the Runner for user FUNCTION calls.
type Evaluator struct {
	store   tagstore.Store
	prog    *ast.Program
	globals map[string]value.Kind
	runner  Runner
}

// New builds an Evaluator. globals maps every top-level variable name to
// its declared kind, the only way a bare Ident can be routed to the
// correct typed accessor on the tag store (store has no
// kind-agnostic Get).
func New(store tagstore.Store, prog *ast.Program, globals map[string]value.Kind) *Evaluator {
	return &Evaluator{store: store, prog: prog, globals: globals}
}

// SetRunner wires the statement executor in after both sides are
// constructed, avoiding an eval<->exec import cycle.
func (e *Evaluator) SetRunner(r Runner) { e.runner = r }

// Eval evaluates expr against the current call frame in rs (nil at
// top-level PROGRAM scope).
func (e *Evaluator) Eval(expr ast.Expr, rs *runtime.State) (value.Value, error) {
	switch n := expr.(type) {
	case *ast.Literal:
		return n.Value, nil
	case *ast.Ident:
		return e.GetIdent(n.Name, rs)
	case *ast.FieldAccess:
		return e.GetField(n.Inst, n.Field)
	case *ast.UnaryExpr:
		return e.evalUnary(n, rs)
	case *ast.BinaryExpr:
		return e.evalBinary(n, rs)
	case *ast.CallExpr:
		return e.evalCall(n, rs)
	default:
		return value.Value{}, fmt.Errorf("eval: unhandled expression node %T", expr)
	}
}

// GetIdent resolves a bare name: current frame's locals (VAR_INPUT and
// VAR/VAR_TEMP share one map), then the enclosing FB instance's own
// persistent cells, then the global tag store.
func (e *Evaluator) GetIdent(name string, rs *runtime.State) (value.Value, error) {
	if fr := rs.Current(); fr != nil {
		if v, ok := fr.Locals[name]; ok {
			return v, nil
		}
		if fr.FBInstance != "" {
			if inst, ok := e.store.GetInstance(fr.FBInstance); ok && inst.UserLocals != nil {
				if v, ok := inst.UserLocals[name]; ok {
					return v, nil
				}
			}
		}
	}
	return e.getGlobal(name)
}

// SetIdent writes through the same resolution order GetIdent reads
// through, coercing to the slot's declared kind.
func (e *Evaluator) SetIdent(name string, v value.Value, rs *runtime.State) error {
	if fr := rs.Current(); fr != nil {
		if cur, ok := fr.Locals[name]; ok {
			cv, err := value.Coerce(v, cur.Kind)
			if err != nil {
				return err
			}
			fr.Locals[name] = cv
			return nil
		}
		if fr.FBInstance != "" {
			if inst, ok := e.store.GetInstance(fr.FBInstance); ok && inst.UserLocals != nil {
				if cur, ok := inst.UserLocals[name]; ok {
					cv, err := value.Coerce(v, cur.Kind)
					if err != nil {
						return err
					}
					inst.UserLocals[name] = cv
					return nil
				}
			}
		}
	}
	return e.setGlobal(name, v)
}

// GetField reads one field of a function-block instance's output/memory
// record. Built-in kinds keep their fields in Instance.Fields; user
// function blocks keep theirs in UserLocals.
func (e *Evaluator) GetField(inst, field string) (value.Value, error) {
	i, ok := e.store.GetInstance(inst)
	if !ok {
		return value.Value{}, scanerr.New(scanerr.UndeclaredVariable, "", inst+"."+field, nil)
	}
	if i.Kind == ast.UserFB {
		if v, ok := i.UserLocals[field]; ok {
			return v, nil
		}
		return value.Value{}, scanerr.New(scanerr.UndeclaredVariable, "", inst+"."+field, nil)
	}
	if v, ok := i.Fields[field]; ok {
		return v, nil
	}
	return value.Value{}, scanerr.New(scanerr.UndeclaredVariable, "", inst+"."+field, nil)
}

// SetField writes one field of a function-block instance, used by
// assignments that target a user FB's own output cells directly.
func (e *Evaluator) SetField(inst, field string, v value.Value) error {
	i, ok := e.store.GetInstance(inst)
	if !ok {
		return scanerr.New(scanerr.UndeclaredVariable, "", inst+"."+field, nil)
	}
	if i.Kind == ast.UserFB {
		cur, ok := i.UserLocals[field]
		if !ok {
			return scanerr.New(scanerr.UndeclaredVariable, "", inst+"."+field, nil)
		}
		cv, err := value.Coerce(v, cur.Kind)
		if err != nil {
			return err
		}
		i.UserLocals[field] = cv
		return nil
	}
	cur, ok := i.Fields[field]
	if !ok {
		return scanerr.New(scanerr.UndeclaredVariable, "", inst+"."+field, nil)
	}
	cv, err := value.Coerce(v, cur.Kind)
	if err != nil {
		return err
	}
	i.Fields[field] = cv
	return nil
}

func (e *Evaluator) getGlobal(name string) (value.Value, error) {
	kind, ok := e.globals[name]
	if !ok {
		return value.Value{}, scanerr.New(scanerr.UndeclaredVariable, "", name, nil)
	}
	switch kind {
	case value.Bool:
		return value.NewBool(e.store.GetBool(name)), nil
	case value.Int:
		return value.NewInt(e.store.GetInt(name)), nil
	case value.Real:
		return value.NewReal(e.store.GetReal(name)), nil
	case value.Time:
		return value.NewTime(e.store.GetTime(name)), nil
	case value.String:
		return value.NewString(e.store.GetString(name)), nil
	default:
		return value.Value{}, fmt.Errorf("eval: unknown global kind for %q", name)
	}
}

func (e *Evaluator) setGlobal(name string, v value.Value) error {
	kind, ok := e.globals[name]
	if !ok {
		return scanerr.New(scanerr.UndeclaredVariable, "", name, nil)
	}
	cv, err := value.Coerce(v, kind)
	if err != nil {
		return err
	}
	switch kind {
	case value.Bool:
		e.store.SetBool(name, cv.B)
	case value.Int:
		e.store.SetInt(name, cv.I)
	case value.Real:
		e.store.SetReal(name, cv.R)
	case value.Time:
		e.store.SetTime(name, cv.T)
	case value.String:
		e.store.SetString(name, cv.S)
	}
	return nil
}

func (e *Evaluator) evalUnary(n *ast.UnaryExpr, rs *runtime.State) (value.Value, error) {
	v, err := e.Eval(n.Operand, rs)
	if err != nil {
		return value.Value{}, err
	}
	switch n.Op {
	case ast.OpNot:
		b, err := value.Coerce(v, value.Bool)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(!b.B), nil
	case ast.OpNeg:
		switch v.Kind {
		case value.Int:
			return value.NewInt(-v.I), nil
		case value.Real:
			return value.NewReal(-v.R), nil
		default:
			return value.Value{}, &value.CoercionError{From: v.Kind, To: value.Real}
		}
	default:
		return value.Value{}, fmt.Errorf("eval: unhandled unary operator %d", n.Op)
	}
}

func (e *Evaluator) evalBinary(n *ast.BinaryExpr, rs *runtime.State) (value.Value, error) {
	switch n.Op {
	case ast.OpAnd:
		l, err := e.Eval(n.Left, rs)
		if err != nil {
			return value.Value{}, err
		}
		lb, err := value.Coerce(l, value.Bool)
		if err != nil {
			return value.Value{}, err
		}
		if !lb.B {
			return value.NewBool(false), nil // short-circuit: right never evaluated
		}
		r, err := e.Eval(n.Right, rs)
		if err != nil {
			return value.Value{}, err
		}
		rb, err := value.Coerce(r, value.Bool)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(rb.B), nil
	case ast.OpOr:
		l, err := e.Eval(n.Left, rs)
		if err != nil {
			return value.Value{}, err
		}
		lb, err := value.Coerce(l, value.Bool)
		if err != nil {
			return value.Value{}, err
		}
		if lb.B {
			return value.NewBool(true), nil // short-circuit: right never evaluated
		}
		r, err := e.Eval(n.Right, rs)
		if err != nil {
			return value.Value{}, err
		}
		rb, err := value.Coerce(r, value.Bool)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(rb.B), nil
	}

	l, err := e.Eval(n.Left, rs)
	if err != nil {
		return value.Value{}, err
	}
	r, err := e.Eval(n.Right, rs)
	if err != nil {
		return value.Value{}, err
	}

	if n.Op == ast.OpXor {
		// XOR always evaluates both sides; it has no short-circuit form.
		lb, err := value.Coerce(l, value.Bool)
		if err != nil {
			return value.Value{}, err
		}
		rb, err := value.Coerce(r, value.Bool)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(lb.B != rb.B), nil
	}

	switch n.Op {
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return compare(n.Op, l, r)
	case ast.OpAdd, ast.OpSub:
		return addSub(n.Op, l, r)
	case ast.OpMul:
		return arith(l, r, func(a, b int64) (int64, error) { return a * b, nil }, func(a, b float64) float64 { return a * b })
	case ast.OpDiv:
		return divide(l, r)
	case ast.OpMod:
		return modulo(l, r)
	case ast.OpPow:
		return power(l, r)
	default:
		return value.Value{}, fmt.Errorf("eval: unhandled binary operator %d", n.Op)
	}
}

// addSub implements +/- with TIME closed under both operators (TIME+TIME,
// TIME-TIME both stay TIME) ahead of the ordinary numeric promotion rule.
func addSub(op ast.BinOp, l, r value.Value) (value.Value, error) {
	if l.Kind == value.Time || r.Kind == value.Time {
		lt, err := value.Coerce(l, value.Time)
		if err != nil {
			return value.Value{}, err
		}
		rt, err := value.Coerce(r, value.Time)
		if err != nil {
			return value.Value{}, err
		}
		if op == ast.OpAdd {
			return value.NewTime(lt.T + rt.T), nil
		}
		return value.NewTime(lt.T - rt.T), nil
	}
	return arith(l, r,
		func(a, b int64) (int64, error) {
			if op == ast.OpAdd {
				return a + b, nil
			}
			return a - b, nil
		},
		func(a, b float64) float64 {
			if op == ast.OpAdd {
				return a + b
			}
			return a - b
		})
}

// arith applies intFn when both operands are INT, promoting to REAL and
// applying realFn as soon as either operand is REAL.
func arith(l, r value.Value, intFn func(a, b int64) (int64, error), realFn func(a, b float64) float64) (value.Value, error) {
	if l.Kind == value.Real || r.Kind == value.Real {
		ra, err := value.Coerce(l, value.Real)
		if err != nil {
			return value.Value{}, err
		}
		rb, err := value.Coerce(r, value.Real)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewReal(realFn(ra.R, rb.R)), nil
	}
	ia, err := value.Coerce(l, value.Int)
	if err != nil {
		return value.Value{}, err
	}
	ib, err := value.Coerce(r, value.Int)
	if err != nil {
		return value.Value{}, err
	}
	res, err := intFn(ia.I, ib.I)
	if err != nil {
		return value.Value{}, err
	}
	return value.NewInt(res), nil
}

// divide implements "/": integer division by zero is fatal, REAL
// division by zero is not — it yields ±Inf or NaN and the scan continues.
func divide(l, r value.Value) (value.Value, error) {
	if l.Kind == value.Real || r.Kind == value.Real {
		ra, err := value.Coerce(l, value.Real)
		if err != nil {
			return value.Value{}, err
		}
		rb, err := value.Coerce(r, value.Real)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewReal(ra.R / rb.R), nil
	}
	ia, err := value.Coerce(l, value.Int)
	if err != nil {
		return value.Value{}, err
	}
	ib, err := value.Coerce(r, value.Int)
	if err != nil {
		return value.Value{}, err
	}
	if ib.I == 0 {
		return value.Value{}, scanerr.New(scanerr.DivisionByZero, "", fmt.Sprintf("%d / %d", ia.I, ib.I), nil)
	}
	return value.NewInt(ia.I / ib.I), nil
}

// power implements "**": an integer base raised to a non-negative integer
// exponent stays INT, so that later integer arithmetic on the result (e.g.
// an integer division) isn't contaminated by REAL promotion. Every other
// combination promotes to REAL and uses math.Pow.
func power(l, r value.Value) (value.Value, error) {
	if l.Kind == value.Int && r.Kind == value.Int && r.I >= 0 {
		return value.NewInt(intPow(l.I, r.I)), nil
	}
	ra, err := value.Coerce(l, value.Real)
	if err != nil {
		return value.Value{}, err
	}
	rb, err := value.Coerce(r, value.Real)
	if err != nil {
		return value.Value{}, err
	}
	return value.NewReal(math.Pow(ra.R, rb.R)), nil
}

func intPow(base, exp int64) int64 {
	result := int64(1)
	for i := int64(0); i < exp; i++ {
		result *= base
	}
	return result
}

// modulo implements MOD: always integer, division by zero is fatal.
func modulo(l, r value.Value) (value.Value, error) {
	ia, err := value.Coerce(l, value.Int)
	if err != nil {
		return value.Value{}, err
	}
	ib, err := value.Coerce(r, value.Int)
	if err != nil {
		return value.Value{}, err
	}
	if ib.I == 0 {
		return value.Value{}, scanerr.New(scanerr.DivisionByZero, "", fmt.Sprintf("%d MOD %d", ia.I, ib.I), nil)
	}
	return value.NewInt(ia.I % ib.I), nil
}

// compare implements the six relational/equality operators. BOOL only
// supports = and <>; STRING compares lexicographically; TIME compares by
// millisecond count; INT/REAL compare with REAL promotion on a mismatch.
func compare(op ast.BinOp, l, r value.Value) (value.Value, error) {
	if l.Kind == value.Bool || r.Kind == value.Bool {
		lb, err := value.Coerce(l, value.Bool)
		if err != nil {
			return value.Value{}, err
		}
		rb, err := value.Coerce(r, value.Bool)
		if err != nil {
			return value.Value{}, err
		}
		switch op {
		case ast.OpEq:
			return value.NewBool(lb.B == rb.B), nil
		case ast.OpNe:
			return value.NewBool(lb.B != rb.B), nil
		default:
			return value.Value{}, fmt.Errorf("eval: BOOL supports only = and <>")
		}
	}
	if l.Kind == value.String || r.Kind == value.String {
		ls, err := value.Coerce(l, value.String)
		if err != nil {
			return value.Value{}, err
		}
		rs, err := value.Coerce(r, value.String)
		if err != nil {
			return value.Value{}, err
		}
		return boolFromCmp(op, cmpString(ls.S, rs.S)), nil
	}
	if l.Kind == value.Time || r.Kind == value.Time {
		lt, err := value.Coerce(l, value.Time)
		if err != nil {
			return value.Value{}, err
		}
		rt, err := value.Coerce(r, value.Time)
		if err != nil {
			return value.Value{}, err
		}
		return boolFromCmp(op, cmpInt64(lt.T, rt.T)), nil
	}
	if l.Kind == value.Real || r.Kind == value.Real {
		lr, err := value.Coerce(l, value.Real)
		if err != nil {
			return value.Value{}, err
		}
		rr, err := value.Coerce(r, value.Real)
		if err != nil {
			return value.Value{}, err
		}
		if math.IsNaN(lr.R) || math.IsNaN(rr.R) {
			// IEEE 754: every ordered comparison involving NaN is false,
			// including equality; only <> is true.
			return value.NewBool(op == ast.OpNe), nil
		}
		return boolFromCmp(op, cmpFloat(lr.R, rr.R)), nil
	}
	li, err := value.Coerce(l, value.Int)
	if err != nil {
		return value.Value{}, err
	}
	ri, err := value.Coerce(r, value.Int)
	if err != nil {
		return value.Value{}, err
	}
	return boolFromCmp(op, cmpInt64(li.I, ri.I)), nil
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// cmpFloat assumes neither argument is NaN; compare() handles NaN directly
// before reaching here, since IEEE ordering can't be expressed as a single
// three-way comparison result.
func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func boolFromCmp(op ast.BinOp, c int) value.Value {
	switch op {
	case ast.OpEq:
		return value.NewBool(c == 0)
	case ast.OpNe:
		return value.NewBool(c != 0)
	case ast.OpLt:
		return value.NewBool(c < 0)
	case ast.OpLe:
		return value.NewBool(c <= 0)
	case ast.OpGt:
		return value.NewBool(c > 0)
	case ast.OpGe:
		return value.NewBool(c >= 0)
	default:
		return value.NewBool(false)
	}
}

func (e *Evaluator) evalCall(n *ast.CallExpr, rs *runtime.State) (value.Value, error) {
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := e.Eval(a, rs)
		if err != nil {
			return value.Value{}, err
		}
		args[i] = v
	}
	v, err := builtins.Call(n.Name, args)
	if err == nil {
		return v, nil
	}
	if _, unknown := err.(*builtins.ErrUnknown); !unknown {
		return value.Value{}, err
	}
	fn, ok := e.prog.Functions[n.Name]
	if !ok {
		return value.Value{}, fmt.Errorf("eval: unknown function %q", n.Name)
	}
	if e.runner == nil {
		return value.Value{}, fmt.Errorf("eval: no statement runner wired for FUNCTION calls")
	}
	return e.runner.CallFunction(fn, args, rs)
}
