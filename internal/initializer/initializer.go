/*
 * st61131 - Variable initializer.
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

// Package initializer walks a compiled Program once at cold-start: it
// seeds the tag store's scalars, arrays, and FB instance records at their
// IEC default (or literal initializer) values and builds the symbol tables
// the evaluator and executor need to resolve bare identifiers.
package initializer

import (
	"fmt"

	"github.com/rcornwell/st61131/internal/ast"
	"github.com/rcornwell/st61131/internal/eval"
	"github.com/rcornwell/st61131/internal/runtime"
	"github.com/rcornwell/st61131/internal/tagstore"
	"github.com/rcornwell/st61131/internal/value"
)

// Result is everything Initialize produces: the global symbol table (for
// eval.New) and the instance-name-to-FB-type-name map (for exec.New).
type Result struct {
	Globals       map[string]value.Kind
	InstanceTypes map[string]string
}

// Initialize seeds store with every PROGRAM-level declaration's default or
// literal-initialized value and every FB instance's default record, for
// every POU named in prog.Programs. Initializer expressions are restricted
// to literals/constants (ast.VarDecl.Init), so they are evaluated with a
// bare Evaluator that has no frame and no FUNCTION runner wired in.
func Initialize(store tagstore.Store, prog *ast.Program) (*Result, error) {
	res := &Result{Globals: make(map[string]value.Kind), InstanceTypes: make(map[string]string)}
	ev := eval.New(store, prog, res.Globals)
	rs := runtime.New()

	for _, pou := range prog.Programs {
		if err := initSections(store, prog, ev, rs, pou.Sects, res); err != nil {
			return nil, fmt.Errorf("initializer: POU %q: %w", pou.Name, err)
		}
	}
	return res, nil
}

func initSections(store tagstore.Store, prog *ast.Program, ev *eval.Evaluator, rs *runtime.State, sects []ast.VarSection, res *Result) error {
	for _, sect := range sects {
		for _, d := range sect.Decls {
			switch d.Type.Kind {
			case ast.TypePrimitive:
				res.Globals[d.Name] = d.Type.Prim
				v := value.Default(d.Type.Prim)
				if d.Init != nil {
					iv, err := ev.Eval(d.Init, rs)
					if err != nil {
						return fmt.Errorf("variable %q: %w", d.Name, err)
					}
					cv, err := value.Coerce(iv, d.Type.Prim)
					if err != nil {
						return fmt.Errorf("variable %q: %w", d.Name, err)
					}
					v = cv
				}
				setGlobal(store, d.Name, v)
			case ast.TypeArray:
				var initial []value.Value
				if d.Init != nil {
					iv, err := ev.Eval(d.Init, rs)
					if err != nil {
						return fmt.Errorf("array %q: %w", d.Name, err)
					}
					initial = []value.Value{iv}
				}
				store.InitArray(d.Name, d.Type.ArrayMeta, initial)
			case ast.TypeFB:
				inst := store.InitInstance(d.Name, d.Type.FBKind)
				if d.Type.FBKind == ast.UserFB {
					res.InstanceTypes[d.Name] = d.Type.FBName
					fbDecl, ok := prog.FunctionBlocks[d.Type.FBName]
					if !ok {
						return fmt.Errorf("instance %q: unknown FUNCTION_BLOCK type %q", d.Name, d.Type.FBName)
					}
					for _, fd := range fbDecl.AllDecls() {
						if fd.Type.Kind != ast.TypePrimitive {
							continue // nested FB-typed or array members are out of scope
						}
						v := value.Default(fd.Type.Prim)
						if fd.Init != nil {
							iv, err := ev.Eval(fd.Init, rs)
							if err != nil {
								return fmt.Errorf("instance %q field %q: %w", d.Name, fd.Name, err)
							}
							cv, err := value.Coerce(iv, fd.Type.Prim)
							if err != nil {
								return fmt.Errorf("instance %q field %q: %w", d.Name, fd.Name, err)
							}
							v = cv
						}
						inst.UserLocals[fd.Name] = v
					}
				}
			}
		}
	}
	return nil
}

func setGlobal(store tagstore.Store, name string, v value.Value) {
	switch v.Kind {
	case value.Bool:
		store.SetBool(name, v.B)
	case value.Int:
		store.SetInt(name, v.I)
	case value.Real:
		store.SetReal(name, v.R)
	case value.Time:
		store.SetTime(name, v.T)
	case value.String:
		store.SetString(name, v.S)
	}
}
