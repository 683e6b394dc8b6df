// Package diag accumulates diagnostic entries as the toolchain pipeline
// progresses. The context is passive: it performs no I/O of its own, and a
// renderer consumes the entries to produce output. The pipeline is
// single-threaded, so the context needs no locking.
package diag

import (
	"fmt"
	"io"
)

// Pipeline phase names. Entries are tagged with the phase that was active
// when they were recorded.
const (
	PhaseLex     = "lex"
	PhaseParse   = "parse"
	PhaseLabels  = "labels"
	PhaseLower   = "lower"
	PhaseEncode  = "encode"
	PhaseDecode  = "decode"
	PhaseExecute = "execute"
)

// Severity classifies an entry. Higher values are more severe.
type Severity int

const (
	SeverityTrace Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityTrace:
		return "trace"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

// Location identifies a position in the assembly source. The zero value
// means "no position" and renders as empty.
type Location struct {
	Line   int // 1-based line number, 0 when unknown
	Column int // 1-based column number, 0 for "entire line"
}

func (l Location) String() string {
	switch {
	case l.Line == 0:
		return ""
	case l.Column == 0:
		return fmt.Sprintf("%d", l.Line)
	default:
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
}

// Entry is a single diagnostic event. Entries are immutable once recorded.
type Entry struct {
	Severity Severity
	Phase    string
	Location Location
	Message  string
}

// String returns the single-line rendering: "severity [phase] loc: message".
func (e Entry) String() string {
	if loc := e.Location.String(); loc != "" {
		return fmt.Sprintf("%s [%s] %s: %s", e.Severity, e.Phase, loc, e.Message)
	}
	return fmt.Sprintf("%s [%s] %s", e.Severity, e.Phase, e.Message)
}

// Context collects entries in insertion order. Create one with New and pass
// it by reference through the pipeline; every stage records into the same
// context.
type Context struct {
	phase   string
	entries []Entry
}

// New returns an empty context with no active phase.
func New() *Context {
	return &Context{}
}

// SetPhase tags subsequent entries with the given pipeline phase.
func (c *Context) SetPhase(name string) {
	c.phase = name
}

// Phase returns the active pipeline phase name.
func (c *Context) Phase() string {
	return c.phase
}

func (c *Context) record(severity Severity, loc Location, format string, args []interface{}) {
	c.entries = append(c.entries, Entry{
		Severity: severity,
		Phase:    c.phase,
		Location: loc,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Errorf records an error entry.
func (c *Context) Errorf(loc Location, format string, args ...interface{}) {
	c.record(SeverityError, loc, format, args)
}

// Warningf records a warning entry.
func (c *Context) Warningf(loc Location, format string, args ...interface{}) {
	c.record(SeverityWarning, loc, format, args)
}

// Infof records an info entry.
func (c *Context) Infof(loc Location, format string, args ...interface{}) {
	c.record(SeverityInfo, loc, format, args)
}

// Tracef records a trace entry.
func (c *Context) Tracef(loc Location, format string, args ...interface{}) {
	c.record(SeverityTrace, loc, format, args)
}

// Entries returns all recorded entries in insertion order.
func (c *Context) Entries() []Entry {
	result := make([]Entry, len(c.entries))
	copy(result, c.entries)
	return result
}

// HasErrors reports whether at least one error entry exists.
func (c *Context) HasErrors() bool {
	for _, e := range c.entries {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Render writes every entry at or above the minimum severity, one per line.
func (c *Context) Render(w io.Writer, min Severity) {
	for _, e := range c.entries {
		if e.Severity >= min {
			fmt.Fprintln(w, e.String())
		}
	}
}
