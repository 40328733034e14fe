// Copyright (c) 2026 Tigera, Inc. All rights reserved.

// Package trace records the ordered explanation of a policy decision. Each evaluator appends an entry for every
// binding, policy or rule that contributed to the decision, so that replaying the entries reconstructs why the
// decision was reached.
package trace

import (
	"fmt"
	"strings"
)

// Subsystem identifies the evaluator that produced an entry.
type Subsystem string

const (
	SubsystemRBAC   Subsystem = "RBAC"
	SubsystemNetPol Subsystem = "NetPol"
)

// Entry is a single step in a decision trace.
type Entry struct {
	Subsystem  Subsystem `json:"subsystem"`
	ObjectKind string    `json:"objectKind"`
	ObjectName string    `json:"objectName"`
	Matched    bool      `json:"matched"`
	Reason     string    `json:"reason"`
}

// String renders the entry as a single line.
func (e Entry) String() string {
	result := "no-match"
	if e.Matched {
		result = "match"
	}
	if e.ObjectName == "" {
		return fmt.Sprintf("[%s] %s %s: %s", e.Subsystem, e.ObjectKind, result, e.Reason)
	}
	return fmt.Sprintf("[%s] %s %s %s: %s", e.Subsystem, e.ObjectKind, e.ObjectName, result, e.Reason)
}

// Trace is the ordered list of entries produced while evaluating one query.
type Trace struct {
	Entries []Entry `json:"entries"`
}

// String renders the trace one line per entry, in evaluation order.
func (t Trace) String() string {
	lines := make([]string, len(t.Entries))
	for i := range t.Entries {
		lines[i] = t.Entries[i].String()
	}
	return strings.Join(lines, "\n")
}

// Empty returns true if the trace has no entries.
func (t Trace) Empty() bool {
	return len(t.Entries) == 0
}

// Matched returns the entries that matched.
func (t Trace) Matched() []Entry {
	var matched []Entry
	for _, e := range t.Entries {
		if e.Matched {
			matched = append(matched, e)
		}
	}
	return matched
}

// Builder accumulates entries for a single subsystem.
//
// A nil Builder is valid and discards everything it is given.
type Builder struct {
	subsystem Subsystem
	entries   *[]Entry
	verbose   bool
}

// NewBuilder creates a Builder for the subsystem. When verbose is set the builder also records non-matching
// entries added with Miss; otherwise those are dropped.
func NewBuilder(subsystem Subsystem, verbose bool) *Builder {
	return &Builder{
		subsystem: subsystem,
		entries:   &[]Entry{},
		verbose:   verbose,
	}
}

// Verbose returns true if non-matching entries are being recorded.
func (b *Builder) Verbose() bool {
	return b != nil && b.verbose
}

// Match records a matching object.
func (b *Builder) Match(kind, name, format string, args ...interface{}) {
	b.add(kind, name, true, format, args...)
}

// Miss records a non-matching object. It is dropped unless the builder is verbose.
func (b *Builder) Miss(kind, name, format string, args ...interface{}) {
	if !b.Verbose() {
		return
	}
	b.add(kind, name, false, format, args...)
}

// Summary records a non-matching entry regardless of verbosity. It is used for decisions that must always be
// explained, such as a denial.
func (b *Builder) Summary(kind, name, format string, args ...interface{}) {
	b.add(kind, name, false, format, args...)
}

// Len returns the number of entries recorded so far.
func (b *Builder) Len() int {
	if b == nil {
		return 0
	}
	return len(*b.entries)
}

// Trace returns a copy of the recorded entries.
func (b *Builder) Trace() Trace {
	if b == nil {
		return Trace{}
	}
	entries := make([]Entry, len(*b.entries))
	copy(entries, *b.entries)
	return Trace{Entries: entries}
}

func (b *Builder) add(kind, name string, matched bool, format string, args ...interface{}) {
	if b == nil {
		return
	}
	*b.entries = append(*b.entries, Entry{
		Subsystem:  b.subsystem,
		ObjectKind: kind,
		ObjectName: name,
		Matched:    matched,
		Reason:     fmt.Sprintf(format, args...),
	})
}
