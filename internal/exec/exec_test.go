/*
 * st61131 - Statement executor tests.
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

package exec

import (
	"testing"

	"github.com/rcornwell/st61131/internal/ast"
	"github.com/rcornwell/st61131/internal/eval"
	"github.com/rcornwell/st61131/internal/runtime"
	"github.com/rcornwell/st61131/internal/scanerr"
	"github.com/rcornwell/st61131/internal/tagstore"
	"github.com/rcornwell/st61131/internal/value"
)

func newExecutor(globals map[string]value.Kind, prog *ast.Program) (*Executor, tagstore.Store) {
	if prog == nil {
		prog = &ast.Program{FunctionBlocks: map[string]*ast.FunctionBlockDecl{}, Functions: map[string]*ast.FunctionDecl{}}
	}
	store := tagstore.New()
	ev := eval.New(store, prog, globals)
	ex := New(store, prog, ev, map[string]string{})
	return ex, store
}

func lit(v value.Value) ast.Expr { return &ast.Literal{Value: v} }
func ident(n string) ast.Expr    { return &ast.Ident{Name: n} }

func TestAssignCoercionFailureIsTypeMismatch(t *testing.T) {
	ex, store := newExecutor(map[string]value.Kind{"Out": value.Time}, nil)
	// BOOL has no coercion to TIME; this must surface as a fatal
	// scanerr.TypeMismatch, not a bare *value.CoercionError.
	stmt := &ast.AssignStmt{Target: ident("Out"), Value: lit(value.NewBool(true))}
	_, err := ex.Run([]ast.Stmt{stmt}, runtime.New())
	se, ok := err.(*scanerr.ScanError)
	if !ok || se.Kind != scanerr.TypeMismatch {
		t.Fatalf("BOOL->TIME assign err = %v, want TypeMismatch ScanError", err)
	}
	if se.Statement != "Out" {
		t.Fatalf("ScanError.Statement = %q, want %q", se.Statement, "Out")
	}
	if store.GetTime("Out") != 0 {
		t.Fatalf("Out = %d, want untouched 0 after failed assignment", store.GetTime("Out"))
	}
}

func TestIfElseBranches(t *testing.T) {
	ex, store := newExecutor(map[string]value.Kind{"Flag": value.Bool, "Out": value.Int}, nil)
	store.SetBool("Flag", true)
	stmt := &ast.IfStmt{Branches: []ast.IfBranch{
		{Cond: ident("Flag"), Body: []ast.Stmt{&ast.AssignStmt{Target: ident("Out"), Value: lit(value.NewInt(1))}}},
		{Cond: nil, Body: []ast.Stmt{&ast.AssignStmt{Target: ident("Out"), Value: lit(value.NewInt(2))}}},
	}}
	if _, err := ex.Run([]ast.Stmt{stmt}, runtime.New()); err != nil {
		t.Fatal(err)
	}
	if got := store.GetInt("Out"); got != 1 {
		t.Fatalf("Out = %d, want 1", got)
	}
}

func TestForLoopSum(t *testing.T) {
	ex, store := newExecutor(map[string]value.Kind{"I": value.Int, "Sum": value.Int}, nil)
	store.SetInt("Sum", 0)
	body := []ast.Stmt{&ast.AssignStmt{Target: ident("Sum"), Value: &ast.BinaryExpr{Op: ast.OpAdd, Left: ident("Sum"), Right: ident("I")}}}
	stmt := &ast.ForStmt{Var: "I", From: lit(value.NewInt(1)), To: lit(value.NewInt(5)), Body: body}
	if _, err := ex.Run([]ast.Stmt{stmt}, runtime.New()); err != nil {
		t.Fatal(err)
	}
	if got := store.GetInt("Sum"); got != 15 {
		t.Fatalf("Sum = %d, want 15", got)
	}
	if got := store.GetInt("I"); got != 5 {
		t.Fatalf("I after loop = %d, want 5 (retained)", got)
	}
}

func TestForLoopOppositeSignSkips(t *testing.T) {
	ex, store := newExecutor(map[string]value.Kind{"I": value.Int, "Hits": value.Int}, nil)
	body := []ast.Stmt{&ast.AssignStmt{Target: ident("Hits"), Value: lit(value.NewInt(1))}}
	stmt := &ast.ForStmt{Var: "I", From: lit(value.NewInt(5)), To: lit(value.NewInt(1)), Body: body}
	if _, err := ex.Run([]ast.Stmt{stmt}, runtime.New()); err != nil {
		t.Fatal(err)
	}
	if got := store.GetInt("Hits"); got != 0 {
		t.Fatalf("Hits = %d, want 0 (loop should not run)", got)
	}
}

func TestExitBreaksForLoop(t *testing.T) {
	ex, store := newExecutor(map[string]value.Kind{"I": value.Int, "Count": value.Int}, nil)
	body := []ast.Stmt{
		&ast.IfStmt{Branches: []ast.IfBranch{{
			Cond: &ast.BinaryExpr{Op: ast.OpGe, Left: ident("I"), Right: lit(value.NewInt(3))},
			Body: []ast.Stmt{&ast.ExitStmt{}},
		}}},
		&ast.AssignStmt{Target: ident("Count"), Value: &ast.BinaryExpr{Op: ast.OpAdd, Left: ident("Count"), Right: lit(value.NewInt(1))}},
	}
	stmt := &ast.ForStmt{Var: "I", From: lit(value.NewInt(1)), To: lit(value.NewInt(10)), Body: body}
	if _, err := ex.Run([]ast.Stmt{stmt}, runtime.New()); err != nil {
		t.Fatal(err)
	}
	if got := store.GetInt("Count"); got != 2 {
		t.Fatalf("Count = %d, want 2 (loop exits at I=3)", got)
	}
}

func TestWhileLoop(t *testing.T) {
	ex, store := newExecutor(map[string]value.Kind{"N": value.Int}, nil)
	store.SetInt("N", 0)
	stmt := &ast.WhileStmt{
		Cond: &ast.BinaryExpr{Op: ast.OpLt, Left: ident("N"), Right: lit(value.NewInt(3))},
		Body: []ast.Stmt{&ast.AssignStmt{Target: ident("N"), Value: &ast.BinaryExpr{Op: ast.OpAdd, Left: ident("N"), Right: lit(value.NewInt(1))}}},
	}
	if _, err := ex.Run([]ast.Stmt{stmt}, runtime.New()); err != nil {
		t.Fatal(err)
	}
	if got := store.GetInt("N"); got != 3 {
		t.Fatalf("N = %d, want 3", got)
	}
}

func TestRepeatRunsBodyAtLeastOnce(t *testing.T) {
	ex, store := newExecutor(map[string]value.Kind{"N": value.Int}, nil)
	store.SetInt("N", 0)
	stmt := &ast.RepeatStmt{
		Body: []ast.Stmt{&ast.AssignStmt{Target: ident("N"), Value: &ast.BinaryExpr{Op: ast.OpAdd, Left: ident("N"), Right: lit(value.NewInt(1))}}},
		Cond: lit(value.NewBool(true)),
	}
	if _, err := ex.Run([]ast.Stmt{stmt}, runtime.New()); err != nil {
		t.Fatal(err)
	}
	if got := store.GetInt("N"); got != 1 {
		t.Fatalf("N = %d, want 1", got)
	}
}

func TestCaseRangeMatch(t *testing.T) {
	ex, store := newExecutor(map[string]value.Kind{"Sel": value.Int, "Out": value.Int}, nil)
	store.SetInt("Sel", 7)
	stmt := &ast.CaseStmt{
		Selector: ident("Sel"),
		Branches: []ast.CaseBranch{
			{Labels: []ast.CaseLabel{{Low: 1, High: 5}}, Body: []ast.Stmt{&ast.AssignStmt{Target: ident("Out"), Value: lit(value.NewInt(1))}}},
			{Labels: []ast.CaseLabel{{Low: 6, High: 10}}, Body: []ast.Stmt{&ast.AssignStmt{Target: ident("Out"), Value: lit(value.NewInt(2))}}},
		},
		Else: []ast.Stmt{&ast.AssignStmt{Target: ident("Out"), Value: lit(value.NewInt(99))}},
	}
	if _, err := ex.Run([]ast.Stmt{stmt}, runtime.New()); err != nil {
		t.Fatal(err)
	}
	if got := store.GetInt("Out"); got != 2 {
		t.Fatalf("Out = %d, want 2", got)
	}
}

func TestFBCallDispatchesToStandardTimer(t *testing.T) {
	ex, store := newExecutor(nil, nil)
	store.InitInstance("Timer1", ast.TON)
	ex.SetDelta(100)
	stmt := &ast.FBCallStmt{Inst: "Timer1", Args: []ast.NamedArg{
		{Name: "IN", Expr: lit(value.NewBool(true))},
		{Name: "PT", Expr: lit(value.NewTime(200))},
	}}
	if _, err := ex.Run([]ast.Stmt{stmt}, runtime.New()); err != nil {
		t.Fatal(err)
	}
	inst, _ := store.GetInstance("Timer1")
	if inst.Fields["ET"].T != 100 {
		t.Fatalf("ET = %d, want 100", inst.Fields["ET"].T)
	}
	// PT omitted on the next call: it must stay latched at 200.
	stmt2 := &ast.FBCallStmt{Inst: "Timer1", Args: []ast.NamedArg{{Name: "IN", Expr: lit(value.NewBool(true))}}}
	if _, err := ex.Run([]ast.Stmt{stmt2}, runtime.New()); err != nil {
		t.Fatal(err)
	}
	if inst.Fields["PT"].T != 200 {
		t.Fatalf("PT = %d, want 200 (latched)", inst.Fields["PT"].T)
	}
	if !inst.Fields["Q"].B {
		t.Fatalf("Q should be TRUE once ET reaches PT")
	}
}

// Scenario 6: a user FUNCTION computing a factorial, called
// twice with independent locals.
func TestUserFunctionFactorial(t *testing.T) {
	fact := &ast.FunctionDecl{
		POU: ast.POU{
			Name: "Factorial",
			Sects: []ast.VarSection{
				{Kind: ast.VarInput, Decls: []ast.VarDecl{{Name: "N", Type: ast.TypeRef{Kind: ast.TypePrimitive, Prim: value.Int}}}},
				{Kind: ast.VarTemp, Decls: []ast.VarDecl{{Name: "Acc", Type: ast.TypeRef{Kind: ast.TypePrimitive, Prim: value.Int}}, {Name: "I", Type: ast.TypeRef{Kind: ast.TypePrimitive, Prim: value.Int}}}},
			},
			Body: []ast.Stmt{
				&ast.AssignStmt{Target: ident("Acc"), Value: lit(value.NewInt(1))},
				&ast.ForStmt{Var: "I", From: lit(value.NewInt(1)), To: ident("N"), Body: []ast.Stmt{
					&ast.AssignStmt{Target: ident("Acc"), Value: &ast.BinaryExpr{Op: ast.OpMul, Left: ident("Acc"), Right: ident("I")}},
				}},
				&ast.AssignStmt{Target: ident("Factorial"), Value: ident("Acc")},
			},
		},
		ReturnType: value.Int,
	}
	prog := &ast.Program{
		FunctionBlocks: map[string]*ast.FunctionBlockDecl{},
		Functions:      map[string]*ast.FunctionDecl{"Factorial": fact},
	}
	ex, _ := newExecutor(nil, prog)

	v1, err := ex.CallFunction(fact, []value.Value{value.NewInt(5)}, runtime.New())
	if err != nil {
		t.Fatal(err)
	}
	if v1.I != 120 {
		t.Fatalf("Factorial(5) = %d, want 120", v1.I)
	}
	v2, err := ex.CallFunction(fact, []value.Value{value.NewInt(4)}, runtime.New())
	if err != nil {
		t.Fatal(err)
	}
	if v2.I != 24 {
		t.Fatalf("Factorial(4) = %d, want 24 (independent from the first call)", v2.I)
	}
}

func TestUserFunctionBlockPersistsState(t *testing.T) {
	fb := &ast.FunctionBlockDecl{POU: ast.POU{
		Name: "Accumulator",
		Sects: []ast.VarSection{
			{Kind: ast.VarInput, Decls: []ast.VarDecl{{Name: "In", Type: ast.TypeRef{Kind: ast.TypePrimitive, Prim: value.Int}}}},
			{Kind: ast.VarOutput, Decls: []ast.VarDecl{{Name: "Total", Type: ast.TypeRef{Kind: ast.TypePrimitive, Prim: value.Int}}}},
		},
		Body: []ast.Stmt{
			&ast.AssignStmt{Target: ident("Total"), Value: &ast.BinaryExpr{Op: ast.OpAdd, Left: ident("Total"), Right: ident("In")}},
		},
	}}
	prog := &ast.Program{
		FunctionBlocks: map[string]*ast.FunctionBlockDecl{"Accumulator": fb},
		Functions:      map[string]*ast.FunctionDecl{},
	}
	store := tagstore.New()
	ev := eval.New(store, prog, map[string]value.Kind{})
	ex := New(store, prog, ev, map[string]string{"Acc1": "Accumulator"})
	store.InitInstance("Acc1", ast.UserFB)
	inst, _ := store.GetInstance("Acc1")
	inst.UserLocals["In"] = value.NewInt(0)
	inst.UserLocals["Total"] = value.NewInt(0)

	call := &ast.FBCallStmt{Inst: "Acc1", Args: []ast.NamedArg{{Name: "In", Expr: lit(value.NewInt(3))}}}
	for i := 0; i < 2; i++ {
		if _, err := ex.Run([]ast.Stmt{call}, runtime.New()); err != nil {
			t.Fatal(err)
		}
	}
	if got := inst.UserLocals["Total"].I; got != 6 {
		t.Fatalf("Total = %d, want 6 across two calls", got)
	}
}
