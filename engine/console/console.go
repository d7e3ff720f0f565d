// Package console provides a line-based command source for hosts driven from
// a terminal.
package console

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	prompt "github.com/c-bata/go-prompt"

	"github.com/df-mc/sandfall/engine/cmd"
)

const (
	defaultPromptPrefix = "> "
	maxHistoryEntries   = 128
)

// Console reads command lines from an io.Reader (defaulting to os.Stdin) and
// executes them through the command registry. Execution is funnelled through
// an exec function the host supplies, so commands never overlap a running
// tick.
type Console struct {
	log     *slog.Logger
	reader  io.Reader
	exec    func(f func())
	history []string
}

// New returns a Console writing command output to the logger passed. The
// exec function runs each command; hosts use it to serialise commands with
// their tick loop. If nil, commands run inline.
func New(log *slog.Logger, exec func(f func())) *Console {
	if log == nil {
		log = slog.Default()
	}
	if exec == nil {
		exec = func(f func()) { f() }
	}
	return &Console{log: log, reader: os.Stdin, exec: exec}
}

// WithReader sets a custom reader for the console input. It enables driving
// the console without a terminal.
func (c *Console) WithReader(r io.Reader) *Console {
	if r != nil {
		c.reader = r
	}
	return c
}

// Run starts consuming commands. It blocks until the context is cancelled or
// the underlying reader reaches EOF.
func (c *Console) Run(ctx context.Context) {
	if c.reader != os.Stdin {
		c.runScanner(ctx)
		return
	}
	c.runInteractive(ctx)
}

func (c *Console) runScanner(ctx context.Context) {
	scanner := bufio.NewScanner(c.reader)
	src := &consoleSource{log: c.log}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				c.log.Error("console input error", "err", err)
			}
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c.execute(line, src)
	}
}

func (c *Console) runInteractive(ctx context.Context) {
	src := &consoleSource{log: c.log}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := prompt.Input(defaultPromptPrefix, c.complete,
			prompt.OptionTitle("Sandfall Console"),
			prompt.OptionHistory(c.history),
			prompt.OptionPrefix(defaultPromptPrefix),
			prompt.OptionMaxSuggestion(12),
		)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		c.execute(line, src)
	}
}

func (c *Console) execute(line string, src *consoleSource) {
	c.history = append(c.history, line)
	if len(c.history) > maxHistoryEntries {
		c.history = c.history[len(c.history)-maxHistoryEntries:]
	}
	c.exec(func() {
		cmd.ExecuteLine(src, line)
	})
}

func (c *Console) complete(doc prompt.Document) []prompt.Suggest {
	word := strings.TrimPrefix(doc.GetWordBeforeCursor(), "/")
	commands := cmd.Commands()
	suggestions := make([]prompt.Suggest, 0, len(commands))
	for name, command := range commands {
		suggestions = append(suggestions, prompt.Suggest{
			Text:        name,
			Description: command.Description(),
		})
	}
	sort.Slice(suggestions, func(i, j int) bool {
		return suggestions[i].Text < suggestions[j].Text
	})
	return prompt.FilterHasPrefix(suggestions, word, true)
}

type consoleSource struct {
	log *slog.Logger
}

func (c *consoleSource) Name() string { return "Console" }

func (c *consoleSource) SendCommandOutput(o *cmd.Output) {
	for _, msg := range o.Messages() {
		c.log.Info(msg)
	}
	for _, err := range o.Errors() {
		c.log.Error(err.Error())
	}
}
