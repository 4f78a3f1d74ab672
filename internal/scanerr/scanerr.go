/*
 * st61131 - Structured fatal scan diagnostics.
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

// Package scanerr defines the fatal error kinds a scan can raise.
// ArrayIndexOutOfBounds and DomainError are deliberately absent: both are
// non-fatal, so they never surface as a ScanError, only as a default value,
// NaN, or ±Infinity at the point of use.
package scanerr

import "fmt"

// Kind enumerates the fatal error kinds a scan can raise.
type Kind int

const (
	UndeclaredVariable Kind = iota
	TypeMismatch
	DivisionByZero
	ScanOverrun
)

func (k Kind) String() string {
	switch k {
	case UndeclaredVariable:
		return "UndeclaredVariable"
	case TypeMismatch:
		return "TypeMismatch"
	case DivisionByZero:
		return "DivisionByZero"
	case ScanOverrun:
		return "ScanOverrun"
	default:
		return "Unknown"
	}
}

// ScanError names the statement and expression where a fatal error arose,
// so a caller can report it without walking back into the AST.
type ScanError struct {
	Kind      Kind
	Statement string // a short description of the enclosing statement
	Expr      string // a short description of the offending expression, if any
	Err       error  // underlying cause, if any
}

func (e *ScanError) Error() string {
	msg := fmt.Sprintf("%s in statement %q", e.Kind, e.Statement)
	if e.Expr != "" {
		msg += fmt.Sprintf(" (expression %q)", e.Expr)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ScanError) Unwrap() error { return e.Err }

// New builds a ScanError. stmt and expr are caller-supplied short
// descriptions, not a reference into the AST: a ScanError never retains
// node handles past the call site that raised it.
func New(kind Kind, stmt, expr string, cause error) *ScanError {
	return &ScanError{Kind: kind, Statement: stmt, Expr: expr, Err: cause}
}
