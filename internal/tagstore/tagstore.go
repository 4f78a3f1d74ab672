/*
 * st61131 - Typed tag store: scalars, arrays, and FB instance records.
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

// Package tagstore is a typed key-value store for scalar, array, and
// FB-instance state. For any name, at most one typed bucket holds it; reads
// and writes go through the typed accessor for the caller's declared type,
// never a cross-bucket lookup.
package tagstore

import (
	"sync"

	"github.com/rcornwell/st61131/internal/ast"
	"github.com/rcornwell/st61131/internal/value"
)

// Instance is the persistent record backing one FB-typed variable: its
// outputs, latched inputs, and edge memories. The field set in use depends
// on Kind; internal/stdfb owns the state-machine semantics that read and
// write these fields. UserLocals holds the VAR cells of a user-defined
// FUNCTION_BLOCK instance, which persist across calls for that instance.
type Instance struct {
	Kind   ast.StdFBKind
	Fields map[string]value.Value
	// UserLocals is populated only for ast.UserFB instances.
	UserLocals map[string]value.Value
}

// Store is the interface the evaluator, executor, and Standard POU Engine
// consume. Out-of-range array accesses never fail: reads return the
// element kind's default, writes are a no-op.
type Store interface {
	GetBool(name string) bool
	SetBool(name string, v bool)
	GetInt(name string) int64
	SetInt(name string, v int64)
	GetReal(name string) float64
	SetReal(name string, v float64)
	GetTime(name string) int64
	SetTime(name string, v int64)
	GetString(name string) string
	SetString(name string, v string)

	InitArray(name string, meta ast.ArrayMeta, initial []value.Value)
	GetArrayElement(name string, index int) value.Value
	SetArrayElement(name string, index int, v value.Value)
	ArrayMeta(name string) (ast.ArrayMeta, bool)

	InitInstance(name string, kind ast.StdFBKind) *Instance
	GetInstance(name string) (*Instance, bool)
	HasInstance(name string) bool

	ClearAll()
}

type memStore struct {
	mu    sync.Mutex
	bools   map[string]bool
	ints    map[string]int64
	reals   map[string]float64
	times   map[string]int64
	strings map[string]string

	arrays     map[string][]value.Value
	arrayMetas map[string]ast.ArrayMeta

	instances map[string]*Instance
}

// New returns an in-memory Store. This repo has no external collaborator to
// plug in, so this is also what the CLI host and the test suite use; a real
// PLC runtime would supply its own Store implementation against live I/O.
func New() Store {
	return &memStore{
		bools:      make(map[string]bool),
		ints:       make(map[string]int64),
		reals:      make(map[string]float64),
		times:      make(map[string]int64),
		strings:    make(map[string]string),
		arrays:     make(map[string][]value.Value),
		arrayMetas: make(map[string]ast.ArrayMeta),
		instances:  make(map[string]*Instance),
	}
}

func (s *memStore) GetBool(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bools[name]
}

func (s *memStore) SetBool(name string, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bools[name] = v
}

func (s *memStore) GetInt(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ints[name]
}

func (s *memStore) SetInt(name string, v int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ints[name] = v
}

func (s *memStore) GetReal(name string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reals[name]
}

func (s *memStore) SetReal(name string, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reals[name] = v
}

func (s *memStore) GetTime(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.times[name]
}

func (s *memStore) SetTime(name string, v int64) {
	if v < 0 {
		v = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.times[name] = v
}

func (s *memStore) GetString(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strings[name]
}

func (s *memStore) SetString(name string, v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strings[name] = v
}

func (s *memStore) InitArray(name string, meta ast.ArrayMeta, initial []value.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := meta.End - meta.Start + 1
	if n < 0 {
		n = 0
	}
	cells := make([]value.Value, n)
	def := value.Default(meta.Elem)
	for i := range cells {
		cells[i] = def
	}
	for i, v := range initial {
		if i < n {
			cells[i] = v
		}
	}
	s.arrays[name] = cells
	s.arrayMetas[name] = meta
}

func (s *memStore) ArrayMeta(name string) (ast.ArrayMeta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.arrayMetas[name]
	return m, ok
}

// GetArrayElement returns the element kind's default on an out-of-range
// index or an unknown array, never an error.
func (s *memStore) GetArrayElement(name string, index int) value.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.arrayMetas[name]
	if !ok || index < meta.Start || index > meta.End {
		if ok {
			return value.Default(meta.Elem)
		}
		return value.Default(value.Int)
	}
	return s.arrays[name][index-meta.Start]
}

// SetArrayElement silently no-ops on an out-of-range index or unknown array.
func (s *memStore) SetArrayElement(name string, index int, v value.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.arrayMetas[name]
	if !ok || index < meta.Start || index > meta.End {
		return
	}
	s.arrays[name][index-meta.Start] = v
}

func (s *memStore) InitInstance(name string, kind ast.StdFBKind) *Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst := &Instance{Kind: kind, Fields: defaultFields(kind)}
	if kind == ast.UserFB {
		inst.UserLocals = make(map[string]value.Value)
	}
	s.instances[name] = inst
	return inst
}

func (s *memStore) GetInstance(name string) (*Instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[name]
	return inst, ok
}

func (s *memStore) HasInstance(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.instances[name]
	return ok
}

func (s *memStore) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bools = make(map[string]bool)
	s.ints = make(map[string]int64)
	s.reals = make(map[string]float64)
	s.times = make(map[string]int64)
	s.strings = make(map[string]string)
	s.arrays = make(map[string][]value.Value)
	s.arrayMetas = make(map[string]ast.ArrayMeta)
	s.instances = make(map[string]*Instance)
}

// defaultFields seeds an Instance's Fields map for a built-in FB kind, all
// at the IEC default (bool false, int 0). The preset PT/PV stays 0 until the
// first call binds it.
func defaultFields(kind ast.StdFBKind) map[string]value.Value {
	f := make(map[string]value.Value)
	switch kind {
	case ast.TON:
		f["IN"] = value.NewBool(false)
		f["PT"] = value.NewTime(0)
		f["Q"] = value.NewBool(false)
		f["ET"] = value.NewTime(0)
		f["running"] = value.NewBool(false)
		f["prev_IN"] = value.NewBool(false)
	case ast.CTU:
		f["CU"] = value.NewBool(false)
		f["R"] = value.NewBool(false)
		f["PV"] = value.NewInt(0)
		f["CV"] = value.NewInt(0)
		f["QU"] = value.NewBool(false)
		f["prev_CU"] = value.NewBool(false)
	case ast.CTD:
		f["CD"] = value.NewBool(false)
		f["LD"] = value.NewBool(false)
		f["PV"] = value.NewInt(0)
		f["CV"] = value.NewInt(0)
		f["QD"] = value.NewBool(false)
		f["prev_CD"] = value.NewBool(false)
	case ast.CTUD:
		f["CU"] = value.NewBool(false)
		f["CD"] = value.NewBool(false)
		f["R"] = value.NewBool(false)
		f["LD"] = value.NewBool(false)
		f["PV"] = value.NewInt(0)
		f["CV"] = value.NewInt(0)
		f["QU"] = value.NewBool(false)
		f["QD"] = value.NewBool(false)
		f["prev_CU"] = value.NewBool(false)
		f["prev_CD"] = value.NewBool(false)
	case ast.RTrig, ast.FTrig:
		f["CLK"] = value.NewBool(false)
		f["Q"] = value.NewBool(false)
		f["M"] = value.NewBool(false)
	case ast.SR, ast.RS:
		f["Q1"] = value.NewBool(false)
	}
	return f
}
