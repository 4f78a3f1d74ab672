/*
 * st61131 - Run configuration file parser.
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

// Package runconfig parses the line-oriented run-configuration format the
// CLI host loads before driving any scans: '#' starts a comment, blank
// lines are skipped, and every other line is "KEY value...". The
// line/position tracking tokenizer uses the same register-and-dispatch
// shape as a traditional line-oriented config parser, simplified to this
// format's five keys instead of a device-registration DSL.
package runconfig

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/rcornwell/st61131/internal/value"
)

// Input is one "input <tag> <kind> <value>" directive applied to the tag
// store before the first scan.
type Input struct {
	Tag   string
	Kind  value.Kind
	Value string
}

// Config is the parsed contents of a run-configuration file.
type Config struct {
	Program string // path to a JSON-encoded ast.Program
	Scans   int    // number of scans to run, default 1
	DeltaMS int64  // elapsed time per scan, default 100
	LogPath string // empty means stderr
	Inputs  []Input
}

// line tracks a tokenizer's position within one line of the file using a
// simple pos-and-peek idiom.
type line struct {
	text string
	pos  int
	num  int
}

func (l *line) skipSpace() {
	for l.pos < len(l.text) && unicode.IsSpace(rune(l.text[l.pos])) {
		l.pos++
	}
}

func (l *line) isEOL() bool {
	return l.pos >= len(l.text) || l.text[l.pos] == '#'
}

// token returns the next whitespace-delimited word, or "" at end of line.
func (l *line) token() string {
	l.skipSpace()
	start := l.pos
	for l.pos < len(l.text) && !unicode.IsSpace(rune(l.text[l.pos])) && l.text[l.pos] != '#' {
		l.pos++
	}
	return l.text[start:l.pos]
}

// rest returns everything remaining on the line, trimmed, stopping at a
// trailing comment.
func (l *line) rest() string {
	l.skipSpace()
	if l.isEOL() {
		return ""
	}
	text := l.text[l.pos:]
	if i := strings.IndexByte(text, '#'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

// Load reads and parses a run-configuration file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := &Config{Scans: 1, DeltaMS: 100}
	reader := bufio.NewReader(f)
	lineNum := 0
	for {
		text, err := reader.ReadString('\n')
		lineNum++
		if len(text) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		l := &line{text: text, num: lineNum}
		if parseErr := parseLine(l, cfg); parseErr != nil {
			return nil, fmt.Errorf("runconfig: line %d: %w", lineNum, parseErr)
		}
		if err != nil && errors.Is(err, io.EOF) {
			break
		}
	}
	return cfg, nil
}

func parseLine(l *line, cfg *Config) error {
	l.skipSpace()
	if l.isEOL() {
		return nil
	}
	key := strings.ToLower(l.token())
	switch key {
	case "program":
		cfg.Program = l.rest()
	case "scans":
		n, err := strconv.Atoi(l.token())
		if err != nil {
			return fmt.Errorf("scans: %w", err)
		}
		cfg.Scans = n
	case "delta":
		ms, err := strconv.ParseInt(l.token(), 10, 64)
		if err != nil {
			return fmt.Errorf("delta: %w", err)
		}
		cfg.DeltaMS = ms
	case "log":
		cfg.LogPath = l.rest()
	case "input":
		in, err := parseInput(l)
		if err != nil {
			return err
		}
		cfg.Inputs = append(cfg.Inputs, in)
	default:
		return fmt.Errorf("unrecognized key %q", key)
	}
	return nil
}

func parseInput(l *line) (Input, error) {
	tag := l.token()
	kindTok := strings.ToUpper(l.token())
	val := l.rest()
	if tag == "" || kindTok == "" {
		return Input{}, errors.New("input requires <tag> <kind> <value>")
	}
	kind, err := parseKind(kindTok)
	if err != nil {
		return Input{}, err
	}
	return Input{Tag: tag, Kind: kind, Value: val}, nil
}

func parseKind(s string) (value.Kind, error) {
	switch s {
	case "BOOL":
		return value.Bool, nil
	case "INT":
		return value.Int, nil
	case "REAL":
		return value.Real, nil
	case "TIME":
		return value.Time, nil
	case "STRING":
		return value.String, nil
	default:
		return 0, fmt.Errorf("unrecognized kind %q", s)
	}
}

// Parsed converts this Input's text payload to a typed runtime value.
func (in Input) Parsed() (value.Value, error) {
	switch in.Kind {
	case value.Bool:
		b, err := strconv.ParseBool(strings.ToLower(in.Value))
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(b), nil
	case value.Int:
		n, err := strconv.ParseInt(in.Value, 10, 64)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewInt(n), nil
	case value.Real:
		f, err := strconv.ParseFloat(in.Value, 64)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewReal(f), nil
	case value.Time:
		ms, err := strconv.ParseInt(in.Value, 10, 64)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewTime(ms), nil
	case value.String:
		return value.NewString(in.Value), nil
	default:
		return value.Value{}, fmt.Errorf("runconfig: unhandled input kind %v", in.Kind)
	}
}
