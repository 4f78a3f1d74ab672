/*
 * st61131 - Discriminated JSON codec for the Expr/Stmt interfaces.
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

// Expr and Stmt are unexported-method interfaces, so encoding/json cannot
// allocate a concrete value for an interface-typed field on its own. Every
// node is instead wrapped in an envelope carrying a "type" discriminator;
// the containing structs (VarDecl, POU, AssignStmt, ...) marshal and
// unmarshal their Expr/Stmt-typed fields through marshalExpr/unmarshalExpr
// and marshalStmt/unmarshalStmt rather than relying on struct tags alone.
package ast

import (
	"encoding/json"
	"fmt"

	"github.com/rcornwell/st61131/internal/value"
)

type exprEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type stmtEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func marshalExpr(e Expr) (json.RawMessage, error) {
	if e == nil {
		return json.RawMessage("null"), nil
	}
	var typ string
	var data []byte
	var err error
	switch v := e.(type) {
	case *Literal:
		typ = "Literal"
		data, err = json.Marshal(struct {
			Value value.Value
		}{v.Value})
	case *Ident:
		typ = "Ident"
		data, err = json.Marshal(struct {
			Name string
		}{v.Name})
	case *FieldAccess:
		typ = "FieldAccess"
		data, err = json.Marshal(struct {
			Inst, Field string
		}{v.Inst, v.Field})
	case *BinaryExpr:
		typ = "BinaryExpr"
		var left, right json.RawMessage
		if left, err = marshalExpr(v.Left); err != nil {
			return nil, err
		}
		if right, err = marshalExpr(v.Right); err != nil {
			return nil, err
		}
		data, err = json.Marshal(struct {
			Op          BinOp
			Left, Right json.RawMessage
		}{v.Op, left, right})
	case *UnaryExpr:
		typ = "UnaryExpr"
		var operand json.RawMessage
		if operand, err = marshalExpr(v.Operand); err != nil {
			return nil, err
		}
		data, err = json.Marshal(struct {
			Op      UnOp
			Operand json.RawMessage
		}{v.Op, operand})
	case *CallExpr:
		typ = "CallExpr"
		args := make([]json.RawMessage, len(v.Args))
		for i, a := range v.Args {
			if args[i], err = marshalExpr(a); err != nil {
				return nil, err
			}
		}
		data, err = json.Marshal(struct {
			Name string
			Args []json.RawMessage
		}{v.Name, args})
	default:
		return nil, fmt.Errorf("ast: unknown expr type %T", e)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(exprEnvelope{Type: typ, Data: data})
}

func unmarshalExpr(raw json.RawMessage) (Expr, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var env exprEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case "Literal":
		var w struct{ Value value.Value }
		if err := json.Unmarshal(env.Data, &w); err != nil {
			return nil, err
		}
		return &Literal{Value: w.Value}, nil
	case "Ident":
		var w struct{ Name string }
		if err := json.Unmarshal(env.Data, &w); err != nil {
			return nil, err
		}
		return &Ident{Name: w.Name}, nil
	case "FieldAccess":
		var w struct{ Inst, Field string }
		if err := json.Unmarshal(env.Data, &w); err != nil {
			return nil, err
		}
		return &FieldAccess{Inst: w.Inst, Field: w.Field}, nil
	case "BinaryExpr":
		var w struct {
			Op          BinOp
			Left, Right json.RawMessage
		}
		if err := json.Unmarshal(env.Data, &w); err != nil {
			return nil, err
		}
		left, err := unmarshalExpr(w.Left)
		if err != nil {
			return nil, err
		}
		right, err := unmarshalExpr(w.Right)
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: w.Op, Left: left, Right: right}, nil
	case "UnaryExpr":
		var w struct {
			Op      UnOp
			Operand json.RawMessage
		}
		if err := json.Unmarshal(env.Data, &w); err != nil {
			return nil, err
		}
		operand, err := unmarshalExpr(w.Operand)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: w.Op, Operand: operand}, nil
	case "CallExpr":
		var w struct {
			Name string
			Args []json.RawMessage
		}
		if err := json.Unmarshal(env.Data, &w); err != nil {
			return nil, err
		}
		args := make([]Expr, len(w.Args))
		for i, a := range w.Args {
			arg, err := unmarshalExpr(a)
			if err != nil {
				return nil, err
			}
			args[i] = arg
		}
		return &CallExpr{Name: w.Name, Args: args}, nil
	default:
		return nil, fmt.Errorf("ast: unknown expr type %q", env.Type)
	}
}

func marshalStmts(stmts []Stmt) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(stmts))
	for i, s := range stmts {
		raw, err := marshalStmt(s)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}

func unmarshalStmts(raws []json.RawMessage) ([]Stmt, error) {
	out := make([]Stmt, len(raws))
	for i, r := range raws {
		s, err := unmarshalStmt(r)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

type ifBranchWire struct {
	Cond json.RawMessage
	Body []json.RawMessage
}

type caseBranchWire struct {
	Labels []CaseLabel
	Body   []json.RawMessage
}

type namedArgWire struct {
	Name string
	Expr json.RawMessage
}

func marshalStmt(s Stmt) (json.RawMessage, error) {
	if s == nil {
		return json.RawMessage("null"), nil
	}
	var typ string
	var data []byte
	var err error
	switch v := s.(type) {
	case *AssignStmt:
		typ = "AssignStmt"
		var target, val json.RawMessage
		if target, err = marshalExpr(v.Target); err != nil {
			return nil, err
		}
		if val, err = marshalExpr(v.Value); err != nil {
			return nil, err
		}
		data, err = json.Marshal(struct {
			Target, Value json.RawMessage
		}{target, val})
	case *IfStmt:
		typ = "IfStmt"
		branches := make([]ifBranchWire, len(v.Branches))
		for i, b := range v.Branches {
			cond, e := marshalExpr(b.Cond)
			if e != nil {
				return nil, e
			}
			body, e := marshalStmts(b.Body)
			if e != nil {
				return nil, e
			}
			branches[i] = ifBranchWire{Cond: cond, Body: body}
		}
		data, err = json.Marshal(struct{ Branches []ifBranchWire }{branches})
	case *CaseStmt:
		typ = "CaseStmt"
		selector, e := marshalExpr(v.Selector)
		if e != nil {
			return nil, e
		}
		branches := make([]caseBranchWire, len(v.Branches))
		for i, b := range v.Branches {
			body, e := marshalStmts(b.Body)
			if e != nil {
				return nil, e
			}
			branches[i] = caseBranchWire{Labels: b.Labels, Body: body}
		}
		elseBody, e := marshalStmts(v.Else)
		if e != nil {
			return nil, e
		}
		data, err = json.Marshal(struct {
			Selector json.RawMessage
			Branches []caseBranchWire
			Else     []json.RawMessage
		}{selector, branches, elseBody})
	case *ForStmt:
		typ = "ForStmt"
		var from, to, step json.RawMessage
		if from, err = marshalExpr(v.From); err != nil {
			return nil, err
		}
		if to, err = marshalExpr(v.To); err != nil {
			return nil, err
		}
		if step, err = marshalExpr(v.Step); err != nil {
			return nil, err
		}
		body, e := marshalStmts(v.Body)
		if e != nil {
			return nil, e
		}
		data, err = json.Marshal(struct {
			Var            string
			From, To, Step json.RawMessage
			Body           []json.RawMessage
		}{v.Var, from, to, step, body})
	case *WhileStmt:
		typ = "WhileStmt"
		cond, e := marshalExpr(v.Cond)
		if e != nil {
			return nil, e
		}
		body, e := marshalStmts(v.Body)
		if e != nil {
			return nil, e
		}
		data, err = json.Marshal(struct {
			Cond json.RawMessage
			Body []json.RawMessage
		}{cond, body})
	case *RepeatStmt:
		typ = "RepeatStmt"
		body, e := marshalStmts(v.Body)
		if e != nil {
			return nil, e
		}
		cond, e := marshalExpr(v.Cond)
		if e != nil {
			return nil, e
		}
		data, err = json.Marshal(struct {
			Body []json.RawMessage
			Cond json.RawMessage
		}{body, cond})
	case *ExitStmt:
		typ = "ExitStmt"
		data = []byte("{}")
	case *ReturnStmt:
		typ = "ReturnStmt"
		data = []byte("{}")
	case *FBCallStmt:
		typ = "FBCallStmt"
		args := make([]namedArgWire, len(v.Args))
		for i, a := range v.Args {
			e, err2 := marshalExpr(a.Expr)
			if err2 != nil {
				return nil, err2
			}
			args[i] = namedArgWire{Name: a.Name, Expr: e}
		}
		data, err = json.Marshal(struct {
			Inst string
			Args []namedArgWire
		}{v.Inst, args})
	default:
		return nil, fmt.Errorf("ast: unknown stmt type %T", s)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(stmtEnvelope{Type: typ, Data: data})
}

func unmarshalStmt(raw json.RawMessage) (Stmt, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var env stmtEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case "AssignStmt":
		var w struct{ Target, Value json.RawMessage }
		if err := json.Unmarshal(env.Data, &w); err != nil {
			return nil, err
		}
		target, err := unmarshalExpr(w.Target)
		if err != nil {
			return nil, err
		}
		val, err := unmarshalExpr(w.Value)
		if err != nil {
			return nil, err
		}
		return &AssignStmt{Target: target, Value: val}, nil
	case "IfStmt":
		var w struct{ Branches []ifBranchWire }
		if err := json.Unmarshal(env.Data, &w); err != nil {
			return nil, err
		}
		branches := make([]IfBranch, len(w.Branches))
		for i, b := range w.Branches {
			cond, err := unmarshalExpr(b.Cond)
			if err != nil {
				return nil, err
			}
			body, err := unmarshalStmts(b.Body)
			if err != nil {
				return nil, err
			}
			branches[i] = IfBranch{Cond: cond, Body: body}
		}
		return &IfStmt{Branches: branches}, nil
	case "CaseStmt":
		var w struct {
			Selector json.RawMessage
			Branches []caseBranchWire
			Else     []json.RawMessage
		}
		if err := json.Unmarshal(env.Data, &w); err != nil {
			return nil, err
		}
		selector, err := unmarshalExpr(w.Selector)
		if err != nil {
			return nil, err
		}
		branches := make([]CaseBranch, len(w.Branches))
		for i, b := range w.Branches {
			body, err := unmarshalStmts(b.Body)
			if err != nil {
				return nil, err
			}
			branches[i] = CaseBranch{Labels: b.Labels, Body: body}
		}
		elseBody, err := unmarshalStmts(w.Else)
		if err != nil {
			return nil, err
		}
		return &CaseStmt{Selector: selector, Branches: branches, Else: elseBody}, nil
	case "ForStmt":
		var w struct {
			Var            string
			From, To, Step json.RawMessage
			Body           []json.RawMessage
		}
		if err := json.Unmarshal(env.Data, &w); err != nil {
			return nil, err
		}
		from, err := unmarshalExpr(w.From)
		if err != nil {
			return nil, err
		}
		to, err := unmarshalExpr(w.To)
		if err != nil {
			return nil, err
		}
		step, err := unmarshalExpr(w.Step)
		if err != nil {
			return nil, err
		}
		body, err := unmarshalStmts(w.Body)
		if err != nil {
			return nil, err
		}
		return &ForStmt{Var: w.Var, From: from, To: to, Step: step, Body: body}, nil
	case "WhileStmt":
		var w struct {
			Cond json.RawMessage
			Body []json.RawMessage
		}
		if err := json.Unmarshal(env.Data, &w); err != nil {
			return nil, err
		}
		cond, err := unmarshalExpr(w.Cond)
		if err != nil {
			return nil, err
		}
		body, err := unmarshalStmts(w.Body)
		if err != nil {
			return nil, err
		}
		return &WhileStmt{Cond: cond, Body: body}, nil
	case "RepeatStmt":
		var w struct {
			Body []json.RawMessage
			Cond json.RawMessage
		}
		if err := json.Unmarshal(env.Data, &w); err != nil {
			return nil, err
		}
		body, err := unmarshalStmts(w.Body)
		if err != nil {
			return nil, err
		}
		cond, err := unmarshalExpr(w.Cond)
		if err != nil {
			return nil, err
		}
		return &RepeatStmt{Body: body, Cond: cond}, nil
	case "ExitStmt":
		return &ExitStmt{}, nil
	case "ReturnStmt":
		return &ReturnStmt{}, nil
	case "FBCallStmt":
		var w struct {
			Inst string
			Args []namedArgWire
		}
		if err := json.Unmarshal(env.Data, &w); err != nil {
			return nil, err
		}
		args := make([]NamedArg, len(w.Args))
		for i, a := range w.Args {
			e, err := unmarshalExpr(a.Expr)
			if err != nil {
				return nil, err
			}
			args[i] = NamedArg{Name: a.Name, Expr: e}
		}
		return &FBCallStmt{Inst: w.Inst, Args: args}, nil
	default:
		return nil, fmt.Errorf("ast: unknown stmt type %q", env.Type)
	}
}

// VarDecl.Init is an Expr, so VarDecl needs its own codec rather than the
// default struct tags encoding/json would otherwise apply.

type varDeclWire struct {
	Name string
	Type TypeRef
	Init json.RawMessage `json:"init,omitempty"`
}

func (d VarDecl) MarshalJSON() ([]byte, error) {
	init, err := marshalExpr(d.Init)
	if err != nil {
		return nil, err
	}
	if d.Init == nil {
		init = nil
	}
	return json.Marshal(varDeclWire{Name: d.Name, Type: d.Type, Init: init})
}

func (d *VarDecl) UnmarshalJSON(b []byte) error {
	var w varDeclWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	d.Name = w.Name
	d.Type = w.Type
	if len(w.Init) == 0 {
		d.Init = nil
		return nil
	}
	init, err := unmarshalExpr(w.Init)
	if err != nil {
		return err
	}
	d.Init = init
	return nil
}

// POU.Body is []Stmt, so POU needs its own codec too. FunctionBlockDecl has
// no fields beyond POU and inherits this via Go's method promotion.
// FunctionDecl adds ReturnType and therefore defines its own codec that
// shadows the promoted one.

type pouWire struct {
	Name  string
	Sects []VarSection
	Body  []json.RawMessage
}

func (p POU) MarshalJSON() ([]byte, error) {
	body, err := marshalStmts(p.Body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(pouWire{Name: p.Name, Sects: p.Sects, Body: body})
}

func (p *POU) UnmarshalJSON(b []byte) error {
	var w pouWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	body, err := unmarshalStmts(w.Body)
	if err != nil {
		return err
	}
	p.Name = w.Name
	p.Sects = w.Sects
	p.Body = body
	return nil
}

type functionDeclWire struct {
	Name       string
	Sects      []VarSection
	Body       []json.RawMessage
	ReturnType value.Kind
}

func (f FunctionDecl) MarshalJSON() ([]byte, error) {
	body, err := marshalStmts(f.Body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(functionDeclWire{Name: f.Name, Sects: f.Sects, Body: body, ReturnType: f.ReturnType})
}

func (f *FunctionDecl) UnmarshalJSON(b []byte) error {
	var w functionDeclWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	body, err := unmarshalStmts(w.Body)
	if err != nil {
		return err
	}
	f.Name = w.Name
	f.Sects = w.Sects
	f.Body = body
	f.ReturnType = w.ReturnType
	return nil
}
