// Package notify is the fire-and-forget notification sink consumed by the
// core. Presentation is the sink's problem; callers pass plain messages.
package notify

import (
	"fmt"
	"io"
	"os"
	"sync"

	"wconnect/internal/ui"
)

// Sink receives user-facing notifications. Implementations must not block.
type Sink interface {
	Success(msg string)
	Error(msg string)
	Warning(msg string)
	Info(msg string)
}

// Console writes styled notifications to a writer (stdout by default).
type Console struct {
	W io.Writer
}

// NewConsole creates a stdout console sink.
func NewConsole() *Console {
	return &Console{W: os.Stdout}
}

func (c *Console) Success(msg string) { fmt.Fprintln(c.W, ui.Success(msg)) }
func (c *Console) Error(msg string)   { fmt.Fprintln(c.W, ui.Err(msg)) }
func (c *Console) Warning(msg string) { fmt.Fprintln(c.W, ui.Warn(msg)) }
func (c *Console) Info(msg string)    { fmt.Fprintln(c.W, ui.Info(msg)) }

// Nop discards all notifications.
type Nop struct{}

func (Nop) Success(string) {}
func (Nop) Error(string)   {}
func (Nop) Warning(string) {}
func (Nop) Info(string)    {}

// Entry is one captured notification.
type Entry struct {
	Level string // "success", "error", "warning", "info"
	Msg   string
}

// Capture records notifications for inspection in tests.
type Capture struct {
	mu      sync.Mutex
	entries []Entry
}

func (c *Capture) Success(msg string) { c.add("success", msg) }
func (c *Capture) Error(msg string)   { c.add("error", msg) }
func (c *Capture) Warning(msg string) { c.add("warning", msg) }
func (c *Capture) Info(msg string)    { c.add("info", msg) }

func (c *Capture) add(level, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, Entry{Level: level, Msg: msg})
}

// Entries returns a copy of everything captured so far.
func (c *Capture) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}
