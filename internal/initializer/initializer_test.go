/*
 * st61131 - Variable initializer tests.
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

package initializer

import (
	"testing"

	"github.com/rcornwell/st61131/internal/ast"
	"github.com/rcornwell/st61131/internal/tagstore"
	"github.com/rcornwell/st61131/internal/value"
)

func TestDefaultsAndLiteralInitializer(t *testing.T) {
	prog := &ast.Program{
		Programs: []*ast.POU{{
			Name: "Main",
			Sects: []ast.VarSection{
				{Kind: ast.VarVar, Decls: []ast.VarDecl{
					{Name: "Count", Type: ast.TypeRef{Kind: ast.TypePrimitive, Prim: value.Int}},
					{Name: "Rate", Type: ast.TypeRef{Kind: ast.TypePrimitive, Prim: value.Real}, Init: &ast.Literal{Value: value.NewReal(1.5)}},
				}},
			},
		}},
		FunctionBlocks: map[string]*ast.FunctionBlockDecl{},
		Functions:      map[string]*ast.FunctionDecl{},
	}
	store := tagstore.New()
	res, err := Initialize(store, prog)
	if err != nil {
		t.Fatal(err)
	}
	if store.GetInt("Count") != 0 {
		t.Fatalf("Count = %d, want 0 default", store.GetInt("Count"))
	}
	if store.GetReal("Rate") != 1.5 {
		t.Fatalf("Rate = %v, want 1.5", store.GetReal("Rate"))
	}
	if res.Globals["Count"] != value.Int || res.Globals["Rate"] != value.Real {
		t.Fatalf("globals table incomplete: %+v", res.Globals)
	}
}

func TestFBInstancesCreated(t *testing.T) {
	fb := &ast.FunctionBlockDecl{POU: ast.POU{
		Name: "Accumulator",
		Sects: []ast.VarSection{
			{Kind: ast.VarOutput, Decls: []ast.VarDecl{{Name: "Total", Type: ast.TypeRef{Kind: ast.TypePrimitive, Prim: value.Int}}}},
		},
	}}
	prog := &ast.Program{
		Programs: []*ast.POU{{
			Name: "Main",
			Sects: []ast.VarSection{
				{Kind: ast.VarVar, Decls: []ast.VarDecl{
					{Name: "Timer1", Type: ast.TypeRef{Kind: ast.TypeFB, FBKind: ast.TON}},
					{Name: "Acc1", Type: ast.TypeRef{Kind: ast.TypeFB, FBKind: ast.UserFB, FBName: "Accumulator"}},
				}},
			},
		}},
		FunctionBlocks: map[string]*ast.FunctionBlockDecl{"Accumulator": fb},
		Functions:      map[string]*ast.FunctionDecl{},
	}
	store := tagstore.New()
	res, err := Initialize(store, prog)
	if err != nil {
		t.Fatal(err)
	}
	if !store.HasInstance("Timer1") {
		t.Fatalf("Timer1 instance not created")
	}
	inst, ok := store.GetInstance("Acc1")
	if !ok {
		t.Fatalf("Acc1 instance not created")
	}
	if _, ok := inst.UserLocals["Total"]; !ok {
		t.Fatalf("Acc1.Total not seeded from FUNCTION_BLOCK decl")
	}
	if res.InstanceTypes["Acc1"] != "Accumulator" {
		t.Fatalf("InstanceTypes[Acc1] = %q, want Accumulator", res.InstanceTypes["Acc1"])
	}
}
