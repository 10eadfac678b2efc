/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package logbuffer keeps the most recent structured log entries in memory so
// operators can inspect presenter warnings without shipping logs anywhere.
package logbuffer

import (
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 2000

// Entry is a single captured log line.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Component string         `json:"component,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Buffer is a thread-safe ring buffer of log entries.
type Buffer struct {
	mu      sync.RWMutex
	entries []Entry
	head    int
	count   int
}

// New creates a buffer holding up to capacity entries.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{entries: make([]Entry, capacity)}
}

// Add appends an entry, evicting the oldest once full.
func (b *Buffer) Add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.head] = e
	b.head = (b.head + 1) % len(b.entries)
	if b.count < len(b.entries) {
		b.count++
	}
}

// All returns every entry, oldest first.
func (b *Buffer) All() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Entry, b.count)
	start := 0
	if b.count == len(b.entries) {
		start = b.head
	}
	for i := 0; i < b.count; i++ {
		out[i] = b.entries[(start+i)%len(b.entries)]
	}
	return out
}

// Query filters entries.
type Query struct {
	Level     string
	Component string
	RosterID  string // matches the roster_id field
	Since     time.Time
	Limit     int // newest entries kept when positive
}

// Find returns entries matching q, newest first.
func (b *Buffer) Find(q Query) []Entry {
	all := b.All()
	out := make([]Entry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		e := all[i]
		if q.Level != "" && !strings.EqualFold(e.Level, q.Level) {
			continue
		}
		if q.Component != "" && e.Component != q.Component {
			continue
		}
		if q.RosterID != "" {
			if id, _ := e.Fields["roster_id"].(string); id != q.RosterID {
				continue
			}
		}
		if !q.Since.IsZero() && e.Timestamp.Before(q.Since) {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out
}

// Writer is an io.Writer for zerolog's JSON output that also captures each
// line into a Buffer.
type Writer struct {
	buffer *Buffer
	next   io.Writer
}

// NewWriter tees JSON log lines into buffer and next. next may be nil.
func NewWriter(buffer *Buffer, next io.Writer) *Writer {
	return &Writer{buffer: buffer, next: next}
}

// Write implements io.Writer. Lines that are not JSON objects are passed
// through without being captured.
func (w *Writer) Write(p []byte) (int, error) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err == nil {
		w.buffer.Add(parse(raw))
	}
	if w.next != nil {
		return w.next.Write(p)
	}
	return len(p), nil
}

func parse(raw map[string]any) Entry {
	e := Entry{Timestamp: time.Now().UTC()}
	if v, ok := raw["level"].(string); ok {
		e.Level = v
		delete(raw, "level")
	}
	if v, ok := raw["message"].(string); ok {
		e.Message = v
		delete(raw, "message")
	}
	if v, ok := raw["component"].(string); ok {
		e.Component = v
		delete(raw, "component")
	}
	switch ts := raw["time"].(type) {
	case string:
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			e.Timestamp = t.UTC()
		}
	case float64:
		e.Timestamp = time.Unix(int64(ts), 0).UTC()
	}
	delete(raw, "time")
	if len(raw) > 0 {
		e.Fields = raw
	}
	return e
}
