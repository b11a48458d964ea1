// Package cli provides the line-oriented simulation console: terminal I/O,
// command dispatch and output formatting for the mobcore runtime.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nathoo/mobcore/engine"
)

// CLI handles terminal interaction with the operator.
type CLI struct {
	*Console
	In        io.Reader
	Out       io.Writer
	EchoInput bool   // echo each input line after the prompt (for script playback)
	lastCmd   string // for "again"/"g" repeat
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine) *CLI {
	return &CLI{
		Console: NewConsole(eng),
		In:      os.Stdin,
		Out:     os.Stdout,
	}
}

// Run starts the command loop. It lists the placed mobs, then loops:
// prompt, input, dispatch, output.
func (c *CLI) Run() {
	if title := c.Engine.Defs.Title; title != "" {
		c.printLine(title)
		c.printLine("")
	}
	out, _ := c.Exec("mobs")
	c.printLines(out)

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		// "again" / "g" repeats the last simulation command.
		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else if !strings.HasPrefix(input, "/") {
			c.lastCmd = input
		}

		out, quit := c.Exec(input)
		c.printLines(out)
		if quit {
			return
		}
	}
}

func (c *CLI) printLines(lines []string) {
	for _, line := range lines {
		c.printLine(line)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}
