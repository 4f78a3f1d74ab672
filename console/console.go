/*
 * st61131 - Interactive scan console.
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

// Package console implements the interactive single-stepping front end:
// a liner prompt that drives the scan loop one (or N) scans at a time and
// lets an operator inspect or poke tags between scans. The read-eval loop
// uses the same liner.Prompt/AppendHistory shape as a traditional console
// reader, with this repo's own small command set (step/dump/set/quit) in
// place of a device command parser.
package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/rcornwell/st61131/internal/ast"
	"github.com/rcornwell/st61131/internal/driver"
	"github.com/rcornwell/st61131/internal/runtime"
	"github.com/rcornwell/st61131/internal/tagstore"
	"github.com/rcornwell/st61131/internal/value"
)

// Console drives scans interactively against one (Program, Store) pair.
type Console struct {
	prog    *ast.Program
	store   tagstore.Store
	rs      *runtime.State
	globals map[string]value.Kind
	deltaMS int64
	scan    int
}

// New builds a console ready to run against prog/store. globals is the
// name-to-kind map initializer.Initialize produced, used to resolve
// "dump"/"set" targets without a kind-agnostic store accessor.
func New(prog *ast.Program, store tagstore.Store, globals map[string]value.Kind, deltaMS int64) *Console {
	return &Console{
		prog:    prog,
		store:   store,
		rs:      driver.NewRuntimeState(prog),
		globals: globals,
		deltaMS: deltaMS,
	}
}

// Run starts the prompt loop and blocks until the operator quits.
func (c *Console) Run() error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(partial string) []string {
		return completeCmd(partial)
	})

	for {
		input, err := line.Prompt("st61131> ")
		if err == nil {
			line.AppendHistory(input)
			quit, cmdErr := c.dispatch(strings.TrimSpace(input))
			if cmdErr != nil {
				fmt.Println("error: " + cmdErr.Error())
			}
			if quit {
				return nil
			}
			continue
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return nil
		}
		return err
	}
}

var commands = []string{"step", "dump", "set", "quit", "help"}

func completeCmd(partial string) []string {
	var out []string
	for _, c := range commands {
		if strings.HasPrefix(c, partial) {
			out = append(out, c)
		}
	}
	return out
}

func (c *Console) dispatch(cmd string) (quit bool, err error) {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return false, nil
	}
	switch fields[0] {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Println("commands: step [n], dump <tag>, set <tag> <value>, quit")
		return false, nil
	case "step":
		return false, c.step(fields[1:])
	case "dump":
		return false, c.dump(fields[1:])
	case "set":
		return false, c.set(fields[1:])
	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
}

func (c *Console) step(args []string) error {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("step: %w", err)
		}
		n = v
	}
	for i := 0; i < n; i++ {
		if err := driver.RunScan(c.prog, c.store, c.rs, c.deltaMS); err != nil {
			return err
		}
		c.scan++
	}
	fmt.Printf("scan %d complete\n", c.scan)
	return nil
}

func (c *Console) dump(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: dump <tag>")
	}
	tag := args[0]
	kind, ok := c.globals[tag]
	if !ok {
		return fmt.Errorf("unknown tag %q", tag)
	}
	fmt.Printf("%s = %s\n", tag, formatTag(c.store, tag, kind))
	return nil
}

func (c *Console) set(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: set <tag> <value>")
	}
	tag := args[0]
	text := strings.Join(args[1:], " ")
	kind, ok := c.globals[tag]
	if !ok {
		return fmt.Errorf("unknown tag %q", tag)
	}
	return applyTag(c.store, tag, kind, text)
}

func formatTag(store tagstore.Store, tag string, kind value.Kind) string {
	switch kind {
	case value.Bool:
		return strconv.FormatBool(store.GetBool(tag))
	case value.Int:
		return strconv.FormatInt(store.GetInt(tag), 10)
	case value.Real:
		return strconv.FormatFloat(store.GetReal(tag), 'g', -1, 64)
	case value.Time:
		return strconv.FormatInt(store.GetTime(tag), 10) + "ms"
	case value.String:
		return store.GetString(tag)
	default:
		return "<unknown kind>"
	}
}

func applyTag(store tagstore.Store, tag string, kind value.Kind, text string) error {
	switch kind {
	case value.Bool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return err
		}
		store.SetBool(tag, b)
	case value.Int:
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return err
		}
		store.SetInt(tag, i)
	case value.Real:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return err
		}
		store.SetReal(tag, f)
	case value.Time:
		ms, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return err
		}
		store.SetTime(tag, ms)
	case value.String:
		store.SetString(tag, text)
	default:
		return fmt.Errorf("unhandled kind %v", kind)
	}
	return nil
}
