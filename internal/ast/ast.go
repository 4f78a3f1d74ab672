/*
 * st61131 - Abstract syntax tree node definitions.
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

// Package ast defines the data-only tree the evaluator and statement
// executor walk. Producing this tree from ST source text is the job of an
// external parser; nothing here performs lexing or parsing. Names are
// resolved by string lookup at evaluation time, never by node reference, so
// the tree carries no back-edges.
package ast

import "github.com/rcornwell/st61131/internal/value"

// VarKind identifies which declaration section a VarDecl came from.
type VarKind int

const (
	VarVar VarKind = iota
	VarInput
	VarOutput
	VarTemp
)

// TypeKind distinguishes a primitive declared type, an array, or a
// function-block instance type.
type TypeKind int

const (
	TypePrimitive TypeKind = iota
	TypeArray
	TypeFB
)

// StdFBKind names a built-in function-block type. UserFB (zero value) means
// Name refers to a FunctionBlockDecl elsewhere in the same compilation unit.
type StdFBKind int

const (
	UserFB StdFBKind = iota
	TON
	CTU
	CTD
	CTUD
	RTrig
	FTrig
	SR
	RS
)

// TypeRef describes a declared type.
type TypeRef struct {
	Kind      TypeKind
	Prim      value.Kind // meaningful when Kind == TypePrimitive
	ArrayMeta ArrayMeta  // meaningful when Kind == TypeArray
	FBKind    StdFBKind  // meaningful when Kind == TypeFB
	FBName    string     // user FB type name when FBKind == UserFB
}

// ArrayMeta mirrors the metadata the tag store's init_array operation
// consumes: an inclusive [Start, End] index range of Elem-typed
// cells.
type ArrayMeta struct {
	Start int
	End   int
	Elem  value.Kind
}

// VarDecl is one declared variable or FB instance.
type VarDecl struct {
	Name string
	Type TypeRef
	Init Expr // nil if no initializer; restricted to literals/constants
}

// VarSection groups declarations under one VAR/VAR_INPUT/VAR_OUTPUT/VAR_TEMP
// block.
type VarSection struct {
	Kind  VarKind
	Decls []VarDecl
}

// POU is the shape shared by PROGRAM, FUNCTION_BLOCK, and FUNCTION bodies.
type POU struct {
	Name    string
	Sects   []VarSection
	Body    []Stmt
}

// Program is a PROGRAM POU plus the FUNCTION_BLOCK and FUNCTION POUs it (or
// its callees) may reference.
type Program struct {
	Programs       []*POU
	FunctionBlocks map[string]*FunctionBlockDecl
	Functions      map[string]*FunctionDecl
}

// FunctionBlockDecl is a user-defined FUNCTION_BLOCK.
type FunctionBlockDecl struct {
	POU
}

// FunctionDecl is a user-defined FUNCTION; ReturnType names the implicit
// return slot's declared type and Name doubles as that slot's identifier.
type FunctionDecl struct {
	POU
	ReturnType value.Kind
}

// AllDecls returns every VarDecl across a POU's sections in section order.
func (p *POU) AllDecls() []VarDecl {
	var out []VarDecl
	for _, s := range p.Sects {
		out = append(out, s.Decls...)
	}
	return out
}

// Section returns the declarations for one VarKind, or nil.
func (p *POU) Section(k VarKind) []VarDecl {
	for _, s := range p.Sects {
		if s.Kind == k {
			return s.Decls
		}
	}
	return nil
}

// ---- Expressions ----

// Expr is implemented by every expression node.
type Expr interface{ exprNode() }

type Literal struct{ Value value.Value }

// Ident is a bare identifier resolved in order through: call-frame locals,
// call-frame inputs, enclosing FB instance cells, global tag store.
type Ident struct{ Name string }

// FieldAccess is a dotted access inst.Field reading an FB instance field.
type FieldAccess struct {
	Inst  string
	Field string
}

// BinOp enumerates the binary operators.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpXor
)

type BinaryExpr struct {
	Op          BinOp
	Left, Right Expr
}

// UnOp enumerates the unary operators.
type UnOp int

const (
	OpNeg UnOp = iota
	OpNot
)

type UnaryExpr struct {
	Op      UnOp
	Operand Expr
}

// CallExpr is a built-in or user FUNCTION invocation used as an expression.
// Args are positional only; the named acc(input := 5) call style exists
// only on FBCallStmt. A CallExpr appearing in expression position is always
// a FUNCTION, never an FB.
type CallExpr struct {
	Name string
	Args []Expr
}

func (*Literal) exprNode()     {}
func (*Ident) exprNode()       {}
func (*FieldAccess) exprNode() {}
func (*BinaryExpr) exprNode()  {}
func (*UnaryExpr) exprNode()   {}
func (*CallExpr) exprNode()    {}

// ---- Statements ----

// Stmt is implemented by every statement node. Signal is returned by the
// executor, not stored on the node.
type Stmt interface{ stmtNode() }

type AssignStmt struct {
	Target Expr // Ident or FieldAccess
	Value  Expr
}

type IfBranch struct {
	Cond Expr // nil for the trailing ELSE
	Body []Stmt
}

type IfStmt struct {
	Branches []IfBranch
}

type CaseLabel struct {
	// A label is either a single value or an inclusive [Low, High] range;
	// a single value is written with Low == High.
	Low, High int64
}

type CaseBranch struct {
	Labels []CaseLabel
	Body   []Stmt
}

type CaseStmt struct {
	Selector Expr
	Branches []CaseBranch
	Else     []Stmt
}

type ForStmt struct {
	Var        string
	From, To   Expr
	Step       Expr // nil defaults to 1
	Body       []Stmt
}

type WhileStmt struct {
	Cond Expr
	Body []Stmt
}

type RepeatStmt struct {
	Body []Stmt
	Cond Expr
}

type ExitStmt struct{}

type ReturnStmt struct{}

// NamedArg binds one formal parameter name to an actual argument expression,
// the inst(a := x, b := y) call-site syntax.
type NamedArg struct {
	Name string
	Expr Expr
}

// FBCallStmt is the statement-level "call" of a function block or user
// FUNCTION_BLOCK instance.
type FBCallStmt struct {
	Inst string
	Args []NamedArg
}

func (*AssignStmt) stmtNode() {}
func (*IfStmt) stmtNode()     {}
func (*CaseStmt) stmtNode()   {}
func (*ForStmt) stmtNode()    {}
func (*WhileStmt) stmtNode()  {}
func (*RepeatStmt) stmtNode() {}
func (*ExitStmt) stmtNode()   {}
func (*ReturnStmt) stmtNode() {}
func (*FBCallStmt) stmtNode() {}
