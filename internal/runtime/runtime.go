/*
 * st61131 - Per-scan runtime state: call frames and the FUNCTION return slot.
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

// Package runtime holds the transient data a scan needs that does not
// belong in the tag store: the active call-frame stack and, inside a
// FUNCTION call, its implicit return-value slot. Nothing here
// survives past the scan that created it; FB instance state persists in the
// tag store instead.
package runtime

import "github.com/rcornwell/st61131/internal/value"

// Frame is one FUNCTION or FUNCTION_BLOCK-body activation. Locals holds
// VAR_INPUT bindings and VAR/VAR_TEMP cells local to this call; FBInstance
// is non-empty when the frame runs inside a function-block instance's own
// VAR cells, so Ident resolution can fall through to the instance after
// Locals.
type Frame struct {
	Locals     map[string]value.Value
	FBInstance string // instance name backing this frame's persistent VAR, if any

	// ReturnName and ReturnValue describe a FUNCTION's implicit return
	// slot: ReturnValue holds ReturnType's default, which is also seeded
	// into Locals[ReturnName] at call entry. Assignments to ReturnName
	// update Locals[ReturnName], the value the call returns; ReturnValue
	// itself is not updated.
	ReturnName  string
	ReturnValue value.Value
	HasReturn   bool
}

// NewFrame starts an empty call frame.
func NewFrame() *Frame {
	return &Frame{Locals: make(map[string]value.Value)}
}

// State is the per-scan runtime state threaded through one scan's statement
// walk. A fresh call-frame stack exists for the duration of one statement
// walk and is discarded afterward; driver.NewRuntimeState allocates one per
// ast.Program, shared by all of its PROGRAM POUs, that outlives individual
// scans only to host its call stack
// scratch space, never committed values.
type State struct {
	stack []*Frame
}

// New returns an empty runtime State.
func New() *State { return &State{} }

// Push enters a new call frame.
func (s *State) Push(f *Frame) { s.stack = append(s.stack, f) }

// Pop leaves the current call frame.
func (s *State) Pop() {
	if len(s.stack) == 0 {
		return
	}
	s.stack = s.stack[:len(s.stack)-1]
}

// Current returns the active call frame, or nil at program top level.
func (s *State) Current() *Frame {
	if len(s.stack) == 0 {
		return nil
	}
	return s.stack[len(s.stack)-1]
}

// Signal is what a statement execution returns to indicate control flow,
// distinct from an error: EXIT and RETURN both unwind without being errors.
type Signal int

const (
	SigNone Signal = iota
	SigExit
	SigReturn
)
