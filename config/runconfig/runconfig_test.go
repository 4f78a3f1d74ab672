/*
 * st61131 - Run configuration parser tests.
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

package runconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rcornwell/st61131/internal/value"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "run.conf")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadParsesAllKeys(t *testing.T) {
	path := writeTemp(t, `# a run configuration
program /tmp/tank.json
scans 10
delta 50
log /tmp/tank.log

input Level INT 42
input Running BOOL true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Program != "/tmp/tank.json" {
		t.Fatalf("Program = %q", cfg.Program)
	}
	if cfg.Scans != 10 {
		t.Fatalf("Scans = %d, want 10", cfg.Scans)
	}
	if cfg.DeltaMS != 50 {
		t.Fatalf("DeltaMS = %d, want 50", cfg.DeltaMS)
	}
	if cfg.LogPath != "/tmp/tank.log" {
		t.Fatalf("LogPath = %q", cfg.LogPath)
	}
	if len(cfg.Inputs) != 2 {
		t.Fatalf("Inputs = %+v, want 2 entries", cfg.Inputs)
	}
	v, err := cfg.Inputs[0].Parsed()
	if err != nil || v.Kind != value.Int || v.I != 42 {
		t.Fatalf("Inputs[0].Parsed() = %+v, err=%v", v, err)
	}
	v, err = cfg.Inputs[1].Parsed()
	if err != nil || v.Kind != value.Bool || !v.B {
		t.Fatalf("Inputs[1].Parsed() = %+v, err=%v", v, err)
	}
}

func TestDefaultsWhenOmitted(t *testing.T) {
	path := writeTemp(t, "program x.json\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scans != 1 || cfg.DeltaMS != 100 {
		t.Fatalf("defaults wrong: scans=%d delta=%d", cfg.Scans, cfg.DeltaMS)
	}
}

func TestUnrecognizedKeyErrors(t *testing.T) {
	path := writeTemp(t, "bogus value\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unrecognized key")
	}
}
