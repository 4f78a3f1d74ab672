/*
 * st61131 - Statement executor.
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

// Package exec walks a POU's statement list against a call frame, an
// Evaluator for expressions, and the tag store for function-block call
// sites. It implements the control statements and the FB call-site
// dispatch (latch inputs, dispatch to the Standard POU Engine or a user
// FUNCTION_BLOCK body).
package exec

import (
	"errors"
	"fmt"

	"github.com/rcornwell/st61131/internal/ast"
	"github.com/rcornwell/st61131/internal/eval"
	"github.com/rcornwell/st61131/internal/runtime"
	"github.com/rcornwell/st61131/internal/scanerr"
	"github.com/rcornwell/st61131/internal/stdfb"
	"github.com/rcornwell/st61131/internal/tagstore"
	"github.com/rcornwell/st61131/internal/value"
)

// Executor runs statement lists. InstanceTypes maps a FUNCTION_BLOCK
// instance name to its declared user FB type name, needed because an
// FBCallStmt names only the instance, not its type.
type Executor struct {
	store         tagstore.Store
	prog          *ast.Program
	eval          *eval.Evaluator
	InstanceTypes map[string]string
	deltaMS       int64
}

// New builds an Executor and wires it into ev as the FUNCTION call Runner.
func New(store tagstore.Store, prog *ast.Program, ev *eval.Evaluator, instanceTypes map[string]string) *Executor {
	ex := &Executor{store: store, prog: prog, eval: ev, InstanceTypes: instanceTypes}
	ev.SetRunner(ex)
	return ex
}

// SetDelta records the elapsed milliseconds since the previous scan, the
// delta every TON call in this scan advances by.
func (ex *Executor) SetDelta(deltaMS int64) { ex.deltaMS = deltaMS }

// Run executes a statement list sequentially until one yields a non-None
// Signal or an error.
func (ex *Executor) Run(stmts []ast.Stmt, rs *runtime.State) (runtime.Signal, error) {
	for _, s := range stmts {
		sig, err := ex.exec(s, rs)
		if err != nil {
			return runtime.SigNone, err
		}
		if sig != runtime.SigNone {
			return sig, nil
		}
	}
	return runtime.SigNone, nil
}

func (ex *Executor) exec(stmt ast.Stmt, rs *runtime.State) (runtime.Signal, error) {
	switch s := stmt.(type) {
	case *ast.AssignStmt:
		return runtime.SigNone, ex.execAssign(s, rs)
	case *ast.IfStmt:
		return ex.execIf(s, rs)
	case *ast.CaseStmt:
		return ex.execCase(s, rs)
	case *ast.ForStmt:
		return ex.execFor(s, rs)
	case *ast.WhileStmt:
		return ex.execWhile(s, rs)
	case *ast.RepeatStmt:
		return ex.execRepeat(s, rs)
	case *ast.ExitStmt:
		return runtime.SigExit, nil
	case *ast.ReturnStmt:
		return runtime.SigReturn, nil
	case *ast.FBCallStmt:
		return runtime.SigNone, ex.execFBCall(s, rs)
	default:
		return runtime.SigNone, fmt.Errorf("exec: unhandled statement %T", stmt)
	}
}

func (ex *Executor) execAssign(s *ast.AssignStmt, rs *runtime.State) error {
	v, err := ex.eval.Eval(s.Value, rs)
	if err != nil {
		return err
	}
	switch target := s.Target.(type) {
	case *ast.Ident:
		if err := ex.eval.SetIdent(target.Name, v, rs); err != nil {
			return typeMismatch(err, target.Name, exprDesc(s.Value))
		}
		return nil
	case *ast.FieldAccess:
		field := target.Inst + "." + target.Field
		if err := ex.eval.SetField(target.Inst, target.Field, v); err != nil {
			return typeMismatch(err, field, exprDesc(s.Value))
		}
		return nil
	default:
		return fmt.Errorf("exec: invalid assignment target %T", s.Target)
	}
}

// typeMismatch reclassifies a raw *value.CoercionError raised while storing
// v into stmt as a fatal scanerr.TypeMismatch naming the statement and the
// expression that produced the value. Any other error (undeclared variable,
// etc.) passes through unchanged.
func typeMismatch(err error, stmt, expr string) error {
	var ce *value.CoercionError
	if errors.As(err, &ce) {
		return scanerr.New(scanerr.TypeMismatch, stmt, expr, err)
	}
	return err
}

// exprDesc renders a short, non-exhaustive label for an expression used only
// in diagnostics; it is not a serialization format.
func exprDesc(e ast.Expr) string {
	switch v := e.(type) {
	case *ast.Ident:
		return v.Name
	case *ast.FieldAccess:
		return v.Inst + "." + v.Field
	case *ast.Literal:
		return v.Value.String()
	default:
		return fmt.Sprintf("%T", e)
	}
}

func (ex *Executor) execIf(s *ast.IfStmt, rs *runtime.State) (runtime.Signal, error) {
	for _, b := range s.Branches {
		if b.Cond == nil { // trailing ELSE
			return ex.Run(b.Body, rs)
		}
		cv, err := ex.eval.Eval(b.Cond, rs)
		if err != nil {
			return runtime.SigNone, err
		}
		bv, err := value.Coerce(cv, value.Bool)
		if err != nil {
			return runtime.SigNone, err
		}
		if bv.B {
			return ex.Run(b.Body, rs)
		}
	}
	return runtime.SigNone, nil
}

func (ex *Executor) execCase(s *ast.CaseStmt, rs *runtime.State) (runtime.Signal, error) {
	sv, err := ex.eval.Eval(s.Selector, rs)
	if err != nil {
		return runtime.SigNone, err
	}
	iv, err := value.Coerce(sv, value.Int)
	if err != nil {
		return runtime.SigNone, err
	}
	for _, b := range s.Branches {
		for _, l := range b.Labels {
			if iv.I >= l.Low && iv.I <= l.High {
				return ex.Run(b.Body, rs)
			}
		}
	}
	return ex.Run(s.Else, rs)
}

// execFor implements the zero-iteration-on-opposite-sign rule: a positive
// step with From > To, or a negative step with From < To, runs the body
// zero times. The loop variable is written through the existing declaration
// and keeps its final value after the loop ends.
func (ex *Executor) execFor(s *ast.ForStmt, rs *runtime.State) (runtime.Signal, error) {
	from, err := ex.evalInt(s.From, rs)
	if err != nil {
		return runtime.SigNone, err
	}
	to, err := ex.evalInt(s.To, rs)
	if err != nil {
		return runtime.SigNone, err
	}
	step := int64(1)
	if s.Step != nil {
		step, err = ex.evalInt(s.Step, rs)
		if err != nil {
			return runtime.SigNone, err
		}
	}
	if step == 0 {
		return runtime.SigNone, nil
	}
	if (step > 0 && from > to) || (step < 0 && from < to) {
		return runtime.SigNone, nil
	}
	for i := from; (step > 0 && i <= to) || (step < 0 && i >= to); i += step {
		if err := ex.eval.SetIdent(s.Var, value.NewInt(i), rs); err != nil {
			return runtime.SigNone, err
		}
		sig, err := ex.Run(s.Body, rs)
		if err != nil {
			return runtime.SigNone, err
		}
		if sig == runtime.SigExit {
			break
		}
		if sig == runtime.SigReturn {
			return sig, nil
		}
	}
	return runtime.SigNone, nil
}

func (ex *Executor) evalInt(e ast.Expr, rs *runtime.State) (int64, error) {
	v, err := ex.eval.Eval(e, rs)
	if err != nil {
		return 0, err
	}
	iv, err := value.Coerce(v, value.Int)
	if err != nil {
		return 0, err
	}
	return iv.I, nil
}

func (ex *Executor) execWhile(s *ast.WhileStmt, rs *runtime.State) (runtime.Signal, error) {
	for {
		cv, err := ex.eval.Eval(s.Cond, rs)
		if err != nil {
			return runtime.SigNone, err
		}
		bv, err := value.Coerce(cv, value.Bool)
		if err != nil {
			return runtime.SigNone, err
		}
		if !bv.B {
			return runtime.SigNone, nil
		}
		sig, err := ex.Run(s.Body, rs)
		if err != nil {
			return runtime.SigNone, err
		}
		if sig == runtime.SigExit {
			return runtime.SigNone, nil
		}
		if sig == runtime.SigReturn {
			return sig, nil
		}
	}
}

func (ex *Executor) execRepeat(s *ast.RepeatStmt, rs *runtime.State) (runtime.Signal, error) {
	for {
		sig, err := ex.Run(s.Body, rs)
		if err != nil {
			return runtime.SigNone, err
		}
		if sig == runtime.SigExit {
			return runtime.SigNone, nil
		}
		if sig == runtime.SigReturn {
			return sig, nil
		}
		cv, err := ex.eval.Eval(s.Cond, rs)
		if err != nil {
			return runtime.SigNone, err
		}
		bv, err := value.Coerce(cv, value.Bool)
		if err != nil {
			return runtime.SigNone, err
		}
		if bv.B {
			return runtime.SigNone, nil
		}
	}
}

// execFBCall latches an instance's inputs from the call-site's named
// arguments and advances its state exactly once. Outputs are read back by
// a later FieldAccess expression, never by this call directly: call, then
// read, as two separate steps.
func (ex *Executor) execFBCall(s *ast.FBCallStmt, rs *runtime.State) error {
	inst, ok := ex.store.GetInstance(s.Inst)
	if !ok {
		return scanerr.New(scanerr.UndeclaredVariable, s.Inst, "", nil)
	}

	args := make(map[string]value.Value, len(s.Args))
	for _, a := range s.Args {
		v, err := ex.eval.Eval(a.Expr, rs)
		if err != nil {
			return err
		}
		args[a.Name] = v
	}

	if inst.Kind == ast.UserFB {
		return ex.callUserFB(s.Inst, inst, args, rs)
	}
	return ex.callStdFB(inst, args)
}

// fieldArg returns args[name] coerced to kind if supplied, latching it into
// the instance's field of that name, else the instance's current field
// value — an omitted input at a call site keeps whatever was latched on a
// previous scan (TON PT resolution generalizes to every standard FB input).
func fieldArg(inst *tagstore.Instance, args map[string]value.Value, name string, kind value.Kind) (value.Value, error) {
	if v, ok := args[name]; ok {
		cv, err := value.Coerce(v, kind)
		if err != nil {
			return value.Value{}, err
		}
		inst.Fields[name] = cv
		return cv, nil
	}
	if v, ok := inst.Fields[name]; ok {
		return v, nil
	}
	return value.Default(kind), nil
}

func (ex *Executor) callStdFB(inst *tagstore.Instance, args map[string]value.Value) error {
	switch inst.Kind {
	case ast.TON:
		in, err := fieldArg(inst, args, "IN", value.Bool)
		if err != nil {
			return err
		}
		pt, err := fieldArg(inst, args, "PT", value.Time)
		if err != nil {
			return err
		}
		stdfb.UpdateTON(inst, in.B, pt.T, ex.deltaMS)
	case ast.CTU:
		cu, err := fieldArg(inst, args, "CU", value.Bool)
		if err != nil {
			return err
		}
		r, err := fieldArg(inst, args, "R", value.Bool)
		if err != nil {
			return err
		}
		pv, err := fieldArg(inst, args, "PV", value.Int)
		if err != nil {
			return err
		}
		stdfb.UpdateCTU(inst, cu.B, r.B, pv.I)
	case ast.CTD:
		cd, err := fieldArg(inst, args, "CD", value.Bool)
		if err != nil {
			return err
		}
		ld, err := fieldArg(inst, args, "LD", value.Bool)
		if err != nil {
			return err
		}
		pv, err := fieldArg(inst, args, "PV", value.Int)
		if err != nil {
			return err
		}
		stdfb.UpdateCTD(inst, cd.B, ld.B, pv.I)
	case ast.CTUD:
		cu, err := fieldArg(inst, args, "CU", value.Bool)
		if err != nil {
			return err
		}
		cd, err := fieldArg(inst, args, "CD", value.Bool)
		if err != nil {
			return err
		}
		r, err := fieldArg(inst, args, "R", value.Bool)
		if err != nil {
			return err
		}
		ld, err := fieldArg(inst, args, "LD", value.Bool)
		if err != nil {
			return err
		}
		pv, err := fieldArg(inst, args, "PV", value.Int)
		if err != nil {
			return err
		}
		stdfb.UpdateCTUD(inst, cu.B, cd.B, r.B, ld.B, pv.I)
	case ast.RTrig:
		clk, err := fieldArg(inst, args, "CLK", value.Bool)
		if err != nil {
			return err
		}
		stdfb.UpdateRTrig(inst, clk.B)
	case ast.FTrig:
		clk, err := fieldArg(inst, args, "CLK", value.Bool)
		if err != nil {
			return err
		}
		stdfb.UpdateFTrig(inst, clk.B)
	case ast.SR:
		s1, err := fieldArg(inst, args, "S1", value.Bool)
		if err != nil {
			return err
		}
		r, err := fieldArg(inst, args, "R", value.Bool)
		if err != nil {
			return err
		}
		stdfb.UpdateSR(inst, s1.B, r.B)
	case ast.RS:
		r1, err := fieldArg(inst, args, "R1", value.Bool)
		if err != nil {
			return err
		}
		s, err := fieldArg(inst, args, "S", value.Bool)
		if err != nil {
			return err
		}
		stdfb.UpdateRS(inst, r1.B, s.B)
	default:
		return fmt.Errorf("exec: unhandled standard FB kind %d", inst.Kind)
	}
	return nil
}

// callUserFB binds named arguments into the instance's persistent cells
// (a user function block's VAR_INPUT/VAR_OUTPUT/VAR all persist across
// calls, unlike a FUNCTION's locals) and runs its body in a frame anchored
// to this instance.
func (ex *Executor) callUserFB(name string, inst *tagstore.Instance, args map[string]value.Value, rs *runtime.State) error {
	typeName, ok := ex.InstanceTypes[name]
	if !ok {
		return fmt.Errorf("exec: instance %q has no registered FUNCTION_BLOCK type", name)
	}
	decl, ok := ex.prog.FunctionBlocks[typeName]
	if !ok {
		return fmt.Errorf("exec: unknown FUNCTION_BLOCK type %q", typeName)
	}
	for _, d := range decl.Section(ast.VarInput) {
		if v, supplied := args[d.Name]; supplied {
			cv, err := value.Coerce(v, d.Type.Prim)
			if err != nil {
				return typeMismatch(err, name+"."+d.Name, v.String())
			}
			inst.UserLocals[d.Name] = cv
		}
	}
	for _, d := range decl.Section(ast.VarTemp) {
		inst.UserLocals[d.Name] = value.Default(d.Type.Prim)
	}

	fr := runtime.NewFrame()
	fr.FBInstance = name
	rs.Push(fr)
	defer rs.Pop()
	_, err := ex.Run(decl.Body, rs)
	return err
}

// CallFunction implements eval.Runner: it binds VAR_INPUT positionally,
// defaults VAR/VAR_TEMP, runs the body, and returns the implicit return
// slot's final value.
func (ex *Executor) CallFunction(fn *ast.FunctionDecl, args []value.Value, rs *runtime.State) (value.Value, error) {
	fr := runtime.NewFrame()
	inputs := fn.Section(ast.VarInput)
	for i, d := range inputs {
		if i >= len(args) {
			fr.Locals[d.Name] = value.Default(d.Type.Prim)
			continue
		}
		cv, err := value.Coerce(args[i], d.Type.Prim)
		if err != nil {
			return value.Value{}, typeMismatch(err, fn.Name+"."+d.Name, args[i].String())
		}
		fr.Locals[d.Name] = cv
	}
	for _, d := range fn.Section(ast.VarOutput) {
		fr.Locals[d.Name] = value.Default(d.Type.Prim)
	}
	for _, d := range fn.Section(ast.VarTemp) {
		fr.Locals[d.Name] = value.Default(d.Type.Prim)
	}
	for _, d := range fn.Section(ast.VarVar) {
		fr.Locals[d.Name] = value.Default(d.Type.Prim)
	}
	fr.ReturnName = fn.Name
	fr.ReturnValue = value.Default(fn.ReturnType)
	fr.HasReturn = true
	// The function's own name is also a settable identifier: assigning to
	// it anywhere in the body sets the eventual return value.
	fr.Locals[fn.Name] = fr.ReturnValue

	rs.Push(fr)
	defer rs.Pop()
	if _, err := ex.Run(fn.Body, rs); err != nil {
		return value.Value{}, err
	}
	return fr.Locals[fn.Name], nil
}
