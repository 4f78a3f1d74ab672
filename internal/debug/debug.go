/*
 * st61131 - Component-masked debug logging.
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

// Package debug implements a masked, per-component trace idiom: a message
// only prints when its component's bit is set in the active mask. It is
// deliberately separate from util/logger's structured slog output — this is
// a cheap firehose for interpreter internals (eval/exec/stdfb/driver), not
// operator-facing.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Component bits, one per interpreter component; internal/driver (Driver) is
// the only package that calls Tracef.
const (
	Eval int = 1 << iota
	Exec
	StdFB
	Driver
)

var (
	mu     sync.Mutex
	mask   int
	output io.Writer = os.Stderr
)

// SetMask replaces the active component mask; 0 disables all tracing.
func SetMask(m int) {
	mu.Lock()
	defer mu.Unlock()
	mask = m
}

// SetOutput redirects trace output, e.g. to the run configuration's log file.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Tracef writes a component-prefixed line when component is set in the
// active mask, a no-op otherwise.
func Tracef(component int, name string, format string, a ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if mask&component == 0 {
		return
	}
	fmt.Fprintf(output, name+": "+format+"\n", a...)
}
