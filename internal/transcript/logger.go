// Package transcript keeps the ordered speech log of a session and writes it
// to a timestamped text file when the session ends.
package transcript

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Kind classifies a transcript entry
type Kind int

const (
	KindUserSpeech Kind = iota
	KindAnalysis
	KindCorrection
)

func (k Kind) String() string {
	switch k {
	case KindUserSpeech:
		return "user_speech"
	case KindAnalysis:
		return "analysis"
	case KindCorrection:
		return "correction"
	default:
		return "unknown"
	}
}

// Entry is one recorded phrase. Original is only set for corrections.
type Entry struct {
	Timestamp time.Time
	Kind      Kind
	Text      string
	Original  string
}

// Clock formats the entry time as HH:MM:SS
func (e Entry) Clock() string {
	return e.Timestamp.Format("15:04:05")
}

// FormatEntry renders an entry as one log line
func FormatEntry(e Entry) string {
	switch e.Kind {
	case KindAnalysis:
		return fmt.Sprintf("[%s] [analysis] %s", e.Clock(), e.Text)
	case KindCorrection:
		return fmt.Sprintf("[%s] [correction] %s (was: %s)", e.Clock(), e.Text, e.Original)
	default:
		return fmt.Sprintf("[%s] %s", e.Clock(), e.Text)
	}
}

// Options configures a Logger
type Options struct {
	Dir            string
	FilePrefix     string
	Title          string
	SeparatorWidth int
	Spacing        bool // blank line between entries
	Out            io.Writer
	Now            func() time.Time
}

// PollingOptions returns the log layout of the recording-window mode
func PollingOptions(dir string) Options {
	return Options{
		Dir:            dir,
		FilePrefix:     "speech_log",
		Title:          "STFU Assistant - ElevenLabs Speech Log",
		SeparatorWidth: 45,
	}
}

// ConversationalOptions returns the log layout of the agent-session mode
func ConversationalOptions(dir string) Options {
	return Options{
		Dir:            dir,
		FilePrefix:     "speech_log_conversational",
		Title:          "STFU Assistant - Conversational AI Speech Log",
		SeparatorWidth: 50,
	}
}

// Logger accumulates entries in arrival order. Safe for concurrent use.
type Logger struct {
	opts Options

	mu      sync.Mutex
	entries []Entry

	flushOnce sync.Once
	flushPath string
	flushErr  error
}

// NewLogger creates an empty transcript logger
func NewLogger(opts Options) *Logger {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.FilePrefix == "" {
		opts.FilePrefix = "speech_log"
	}
	if opts.SeparatorWidth <= 0 {
		opts.SeparatorWidth = len(opts.Title)
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Logger{opts: opts}
}

// Record appends an entry stamped with the current time
func (l *Logger) Record(kind Kind, text string) Entry {
	return l.append(Entry{Timestamp: l.opts.Now(), Kind: kind, Text: text})
}

// RecordCorrection appends a correction of an earlier agent response
func (l *Logger) RecordCorrection(original, corrected string) Entry {
	return l.append(Entry{
		Timestamp: l.opts.Now(),
		Kind:      KindCorrection,
		Text:      corrected,
		Original:  original,
	})
}

func (l *Logger) append(e Entry) Entry {
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
	return e
}

// Entries returns a copy of the recorded entries
func (l *Logger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of recorded entries
func (l *Logger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Counts returns the number of entries per kind
func (l *Logger) Counts() map[Kind]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	counts := make(map[Kind]int)
	for _, e := range l.entries {
		counts[e.Kind]++
	}
	return counts
}

// Flush writes the log file and prints a summary. Only the first call does
// any work; later calls return its result. With no entries nothing is written
// and the returned path is empty.
func (l *Logger) Flush() (string, error) {
	l.flushOnce.Do(func() {
		l.flushPath, l.flushErr = l.flush()
	})
	return l.flushPath, l.flushErr
}

func (l *Logger) flush() (string, error) {
	entries := l.Entries()
	out := l.opts.Out

	if len(entries) == 0 {
		fmt.Fprintln(out, "No speech was detected during this session.")
		return "", nil
	}

	path, f, err := l.createFile()
	if err != nil {
		return "", err
	}

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%s\n%s\n\n", l.opts.Title, strings.Repeat("=", l.opts.SeparatorWidth))
	for i, e := range entries {
		if i > 0 && l.opts.Spacing {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, FormatEntry(e))
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return path, fmt.Errorf("write speech log: %w", err)
	}
	if err := f.Close(); err != nil {
		return path, fmt.Errorf("close speech log: %w", err)
	}

	fmt.Fprintf(out, "📁 Speech log saved to: %s\n", path)
	fmt.Fprintf(out, "📊 Total phrases captured: %d\n", len(entries))

	counts := l.Counts()
	if len(counts) > 1 {
		for _, kind := range []Kind{KindUserSpeech, KindAnalysis, KindCorrection} {
			if n := counts[kind]; n > 0 {
				fmt.Fprintf(out, "   %s: %d\n", kind, n)
			}
		}
	}

	return path, nil
}

// createFile opens <dir>/<prefix>_<YYYYMMDD_HHMMSS>.txt, adding a _N suffix
// when that name is taken
func (l *Logger) createFile() (string, *os.File, error) {
	if err := os.MkdirAll(l.opts.Dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create log dir: %w", err)
	}

	base := fmt.Sprintf("%s_%s", l.opts.FilePrefix, l.opts.Now().Format("20060102_150405"))
	for n := 0; n < 1000; n++ {
		name := base + ".txt"
		if n > 0 {
			name = fmt.Sprintf("%s_%d.txt", base, n)
		}
		path := filepath.Join(l.opts.Dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return path, f, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", nil, fmt.Errorf("create speech log: %w", err)
		}
	}
	return "", nil, fmt.Errorf("create speech log: no free name for %s", base)
}
