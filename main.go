/*
 * st61131 - Main process.
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

package main

import (
	"encoding/json"
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rcornwell/st61131/config/runconfig"
	"github.com/rcornwell/st61131/console"
	"github.com/rcornwell/st61131/internal/ast"
	"github.com/rcornwell/st61131/internal/driver"
	"github.com/rcornwell/st61131/internal/tagstore"
	"github.com/rcornwell/st61131/internal/value"
	"github.com/rcornwell/st61131/util/logger"
)

var Logger *slog.Logger

func main() {
	optConfig := getopt.StringLong("config", 'c', "st61131.conf", "Run configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optInteractive := getopt.BoolLong("interactive", 'i', "Start the interactive console instead of running to completion")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		var err error
		file, err = os.Create(*optLogFile)
		if err != nil {
			slog.Error("cannot create log file", "path", *optLogFile, "err", err)
			os.Exit(1)
		}
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	debugLog := false
	Logger = slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel, AddSource: false}, &debugLog))
	slog.SetDefault(Logger)

	Logger.Info("st61131 started")

	cfg, err := runconfig.Load(*optConfig)
	if err != nil {
		Logger.Error("loading run configuration", "err", err)
		os.Exit(1)
	}
	if *optLogFile == "" && cfg.LogPath != "" {
		file, err = os.Create(cfg.LogPath)
		if err != nil {
			Logger.Error("cannot create log file", "path", cfg.LogPath, "err", err)
			os.Exit(1)
		}
		Logger = slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel, AddSource: false}, &debugLog))
		slog.SetDefault(Logger)
	}

	prog, err := loadProgram(cfg.Program)
	if err != nil {
		Logger.Error("loading program", "path", cfg.Program, "err", err)
		os.Exit(1)
	}

	store := tagstore.New()
	if err := driver.Initialize(prog, store); err != nil {
		Logger.Error("initializing program", "err", err)
		os.Exit(1)
	}

	applyInputs(store, cfg)
	globals, _ := driver.Globals(prog)

	if *optInteractive {
		c := console.New(prog, store, globals, cfg.DeltaMS)
		if err := c.Run(); err != nil {
			Logger.Error("console", "err", err)
			os.Exit(1)
		}
		return
	}

	rs := driver.NewRuntimeState(prog)
	for i := 0; i < cfg.Scans; i++ {
		if err := driver.RunScan(prog, store, rs, cfg.DeltaMS); err != nil {
			Logger.Error("scan failed", "scan", i, "err", err)
			os.Exit(1)
		}
	}
	Logger.Info("st61131 finished", "scans", cfg.Scans)
}

// loadProgram reads a JSON-encoded ast.Program from path. A compiler
// upstream of this repo is responsible for producing that file from
// Structured Text source; this CLI only drives scans against it.
func loadProgram(path string) (*ast.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	prog := &ast.Program{}
	if err := json.Unmarshal(data, prog); err != nil {
		return nil, err
	}
	return prog, nil
}

// applyInputs seeds store with the run configuration's "input" directives
// before the first scan runs.
func applyInputs(store tagstore.Store, cfg *runconfig.Config) {
	for _, in := range cfg.Inputs {
		v, err := in.Parsed()
		if err != nil {
			Logger.Warn("skipping unparsable input", "tag", in.Tag, "err", err)
			continue
		}
		switch v.Kind {
		case value.Bool:
			store.SetBool(in.Tag, v.B)
		case value.Int:
			store.SetInt(in.Tag, v.I)
		case value.Real:
			store.SetReal(in.Tag, v.R)
		case value.Time:
			store.SetTime(in.Tag, v.T)
		case value.String:
			store.SetString(in.Tag, v.S)
		}
	}
}
