// Package replylog writes and parses the append-only log of replies the agent
// is about to send. The watchdog audits this log.
package replylog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Kind is a log line marker.
type Kind string

const (
	KindCandidate          Kind = "REPLY_CANDIDATE"
	KindTypingInterrupted  Kind = "TYPING_INTERRUPTED"
	KindTypingMismatch     Kind = "TYPING_MISMATCH"
	KindInteractionAnomaly Kind = "INTERACTION_ANOMALY"
)

// Anomalies lists the markers that report a typing or interaction fault.
func Anomalies() []Kind {
	return []Kind{KindTypingInterrupted, KindTypingMismatch, KindInteractionAnomaly}
}

// IsAnomaly reports whether k is an anomaly marker.
func (k Kind) IsAnomaly() bool {
	for _, a := range Anomalies() {
		if k == a {
			return true
		}
	}
	return false
}

// Entry is one parsed log line.
type Entry struct {
	Time time.Time
	Kind Kind
	// Text is the candidate reply for KindCandidate lines.
	Text string
	// Detail is the free text after an anomaly marker.
	Detail string
}

// Writer appends marker lines. Each line is flushed as soon as it is written
// so a tailing reader sees it immediately.
type Writer struct {
	mu     sync.Mutex
	closer io.Closer
	writer *bufio.Writer
	now    func() time.Time
}

// Open creates or appends to the log file at path.
func Open(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	w := NewWriter(file)
	w.closer = file
	return w, nil
}

// NewWriter writes to w. Closing the Writer does not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{writer: bufio.NewWriter(w), now: time.Now}
}

// Candidate records a reply that is about to be sent.
func (w *Writer) Candidate(text string) error {
	return w.write(KindCandidate, strconv.Quote(text))
}

// Anomaly records a typing or interaction fault.
func (w *Writer) Anomaly(kind Kind, detail string) error {
	if !kind.IsAnomaly() {
		return fmt.Errorf("replylog: %q is not an anomaly marker", kind)
	}
	return w.write(kind, strings.Join(strings.Fields(detail), " "))
}

func (w *Writer) write(kind Kind, payload string) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	line := w.now().UTC().Format(time.RFC3339) + " " + string(kind)
	if payload != "" {
		line += " " + payload
	}
	if _, err := w.writer.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write %s: %w", kind, err)
	}
	return w.writer.Flush()
}

// Close flushes and closes the underlying file, if the Writer owns one.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.writer.Flush()
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// ParseLine finds a marker in line. Lines without one are ignored, so the log
// may be shared with other output. A candidate whose quoting is broken is
// still returned with the raw remainder as its text.
func ParseLine(line string) (Entry, bool) {
	line = strings.TrimRight(line, "\r\n")
	kind, idx := findMarker(line)
	if idx < 0 {
		return Entry{}, false
	}

	e := Entry{Kind: kind}
	if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(line[:idx])); err == nil {
		e.Time = ts
	}
	rest := strings.TrimSpace(line[idx+len(kind):])
	if kind != KindCandidate {
		e.Detail = rest
		return e, true
	}
	if text, err := strconv.Unquote(rest); err == nil {
		e.Text = text
	} else {
		e.Text = strings.Trim(rest, `"`)
	}
	return e, true
}

func findMarker(line string) (Kind, int) {
	best, at := Kind(""), -1
	for _, k := range append([]Kind{KindCandidate}, Anomalies()...) {
		i := strings.Index(line, string(k))
		if i >= 0 && (at < 0 || i < at) {
			best, at = k, i
		}
	}
	return best, at
}
