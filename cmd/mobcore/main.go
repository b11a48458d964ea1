// Mobcore runs scripted mob behavior against Lua content.
// Usage: mobcore [--version] [--plain] [--script <file>] [--trace] [content_directory]
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/mobcore/cli"
	"github.com/nathoo/mobcore/config"
	"github.com/nathoo/mobcore/engine"
	"github.com/nathoo/mobcore/loader"
	"github.com/nathoo/mobcore/logger"
	"github.com/nathoo/mobcore/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: mobcore [--version] [--plain] [--script <file>] [--trace] [content_directory]"

func main() {
	plain := false
	trace := false
	var contentDir string
	var scriptFile string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("mobcore %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			plain = true
		case "--trace":
			trace = true
		case "--script":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "--script requires a file path\n")
				os.Exit(1)
			}
			i++
			scriptFile = args[i]
		default:
			if contentDir == "" {
				contentDir = args[i]
			}
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if contentDir == "" {
		contentDir = cfg.ContentDir
	}
	if contentDir == "" {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	interactive := scriptFile == "" && !plain && isTerminal()
	if interactive {
		// Log lines would tear the alt screen.
		logger.SetOutput(io.Discard)
	}

	defs, err := loader.Load(contentDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading content: %v\n", err)
		os.Exit(1)
	}

	eng, err := engine.New(defs, *cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting session: %v\n", err)
		os.Exit(1)
	}
	logger.Log.WithFields(logrus.Fields{
		"content": contentDir,
		"mobs":    eng.Session.Len(),
		"seed":    cfg.Seed,
	}).Info("session started")

	// Script mode: read commands from a file and echo them.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening script: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		c := cli.New(eng)
		c.In = f
		c.EchoInput = true
		c.Trace = trace
		c.Run()
		return
	}

	if !interactive {
		c := cli.New(eng)
		c.Trace = trace
		c.Run()
		return
	}

	if err := tui.Run(eng, trace); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
