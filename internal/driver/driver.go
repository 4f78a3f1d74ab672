/*
 * st61131 - Scan driver: top-level orchestration.
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

// Package driver implements the three top-level operations an embedding
// host needs: Initialize wires a Program's POUs to a tag store,
// NewRuntimeState allocates the call-frame stack a scan threads through,
// and RunScan executes one read-execute-write pass over every PROGRAM in
// Program. Scans are synchronous: one (Program, Store) pair is driven at a
// time, and RunScan is not safe to call concurrently for the same pair.
package driver

import (
	"fmt"
	"sync"

	"github.com/rcornwell/st61131/internal/ast"
	"github.com/rcornwell/st61131/internal/debug"
	"github.com/rcornwell/st61131/internal/eval"
	"github.com/rcornwell/st61131/internal/exec"
	"github.com/rcornwell/st61131/internal/initializer"
	"github.com/rcornwell/st61131/internal/runtime"
	"github.com/rcornwell/st61131/internal/tagstore"
	"github.com/rcornwell/st61131/internal/value"
)

// wiring holds what Initialize builds for one Program so RunScan can reuse
// it without rebuilding the evaluator/executor on every scan.
type wiring struct {
	ex      *exec.Executor
	globals map[string]value.Kind
}

var (
	mu      sync.Mutex
	wirings = map[*ast.Program]*wiring{}
)

// Initialize seeds store from prog's declarations and builds the
// evaluator/executor pair that future RunScan calls against (prog, store)
// will reuse.
func Initialize(prog *ast.Program, store tagstore.Store) error {
	res, err := initializer.Initialize(store, prog)
	if err != nil {
		return err
	}
	ev := eval.New(store, prog, res.Globals)
	ex := exec.New(store, prog, ev, res.InstanceTypes)

	mu.Lock()
	wirings[prog] = &wiring{ex: ex, globals: res.Globals}
	mu.Unlock()
	return nil
}

// Globals returns the declared-global name-to-kind map Initialize built for
// prog, for callers (the interactive console) that need to resolve a tag
// name typed by an operator to the kind-specific store accessor to use.
func Globals(prog *ast.Program) (map[string]value.Kind, bool) {
	mu.Lock()
	w, ok := wirings[prog]
	mu.Unlock()
	if !ok {
		return nil, false
	}
	return w.globals, true
}

// NewRuntimeState allocates the per-scan call-frame scratch space for prog.
// It is intentionally decoupled from Initialize: a long-running host may
// keep one runtime.State alive across many scans while Initialize only
// runs once at cold-start.
func NewRuntimeState(prog *ast.Program) *runtime.State {
	return runtime.New()
}

// RunScan executes one scan of every PROGRAM POU in prog against store,
// advancing every called TON by deltaMS milliseconds.
// A fatal scanerr.ScanError aborts only this scan; the tag store retains
// whatever state statements before the failure already committed.
func RunScan(prog *ast.Program, store tagstore.Store, rs *runtime.State, deltaMS int64) error {
	mu.Lock()
	w, ok := wirings[prog]
	mu.Unlock()
	if !ok {
		return fmt.Errorf("driver: Initialize has not been called for this program")
	}
	w.ex.SetDelta(deltaMS)
	for _, pou := range prog.Programs {
		debug.Tracef(debug.Driver, "driver", "scan POU=%s delta_ms=%d", pou.Name, deltaMS)
		if _, err := w.ex.Run(pou.Body, rs); err != nil {
			debug.Tracef(debug.Driver, "driver", "scan error POU=%s: %v", pou.Name, err)
			return err
		}
	}
	return nil
}
