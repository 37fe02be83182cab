package logging

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FindingLevel defines a custom log level for risk findings.
// Implemented as WarnLevel but transformed to "finding" in output.
const FindingLevel zerolog.Level = zerolog.WarnLevel

// FindingLevelWriter wraps an io.Writer to transform logs with
// "level":"warn" to "level":"finding".
type FindingLevelWriter struct {
	out           io.Writer
	mu            sync.Mutex
	nextIsFinding bool
}

func (w *FindingLevelWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	isFinding := w.nextIsFinding
	w.nextIsFinding = false
	w.mu.Unlock()

	if isFinding && len(p) > 0 {
		var logEntry map[string]interface{}
		if err := json.Unmarshal(p, &logEntry); err == nil {
			if logEntry["level"] == "warn" || logEntry["level"] == "error" {
				logEntry["level"] = "finding"
			}
			delete(logEntry, "_finding")

			if newBytes, err := json.Marshal(logEntry); err == nil {
				newBytes = append(newBytes, '\n')
				return w.out.Write(newBytes)
			}
		}
	}

	return w.out.Write(p)
}

func (w *FindingLevelWriter) markNextAsFinding() {
	w.mu.Lock()
	w.nextIsFinding = true
	w.mu.Unlock()
}

func (w *FindingLevelWriter) SetOutput(out io.Writer) {
	w.mu.Lock()
	w.out = out
	w.mu.Unlock()
}

// NewFindingLevelWriter creates a new FindingLevelWriter wrapping the given io.Writer.
func NewFindingLevelWriter(out io.Writer) *FindingLevelWriter {
	return &FindingLevelWriter{out: out}
}

// FindingEvent wraps a zerolog.Event for finding-level logging with
// "level":"finding" output.
type FindingEvent struct {
	event  *zerolog.Event
	writer *FindingLevelWriter
}

func (f *FindingEvent) Str(key, val string) *FindingEvent {
	f.event.Str(key, val)
	return f
}

func (f *FindingEvent) Strs(key string, vals []string) *FindingEvent {
	f.event.Strs(key, vals)
	return f
}

func (f *FindingEvent) Int(key string, val int) *FindingEvent {
	f.event.Int(key, val)
	return f
}

func (f *FindingEvent) Int64(key string, val int64) *FindingEvent {
	f.event.Int64(key, val)
	return f
}

func (f *FindingEvent) Float64(key string, val float64) *FindingEvent {
	f.event.Float64(key, val)
	return f
}

func (f *FindingEvent) Bool(key string, val bool) *FindingEvent {
	f.event.Bool(key, val)
	return f
}

func (f *FindingEvent) Err(err error) *FindingEvent {
	f.event.Err(err)
	return f
}

func (f *FindingEvent) Msg(msg string) {
	if f.writer != nil {
		f.writer.markNextAsFinding()
	}
	f.event.Bool("_finding", true).Msg(msg)
}

var globalFindingWriter *FindingLevelWriter
var globalFindingWriterOnce sync.Once

func setupGlobalFindingWriter() {
	globalFindingWriterOnce.Do(func() {
		out := os.Stderr
		globalFindingWriter = &FindingLevelWriter{out: out}
		log.Logger = zerolog.New(globalFindingWriter).With().Timestamp().Logger()
	})
}

// Finding creates a finding-level log event for risk verdicts.
// Always emitted regardless of global log level.
// Example: logging.Finding().Str("provider", "AWS").Msg("FINDING")
func Finding() *FindingEvent {
	if globalFindingWriter == nil {
		setupGlobalFindingWriter()
	}
	return &FindingEvent{
		event:  log.WithLevel(zerolog.ErrorLevel),
		writer: globalFindingWriter,
	}
}

// ParseLevel extends zerolog's ParseLevel to support "finding" level.
func ParseLevel(levelStr string) (zerolog.Level, error) {
	if levelStr == "finding" {
		return FindingLevel, nil
	}
	return zerolog.ParseLevel(levelStr)
}

// SetGlobalFindingWriter sets the global FindingLevelWriter (for testing only).
func SetGlobalFindingWriter(writer *FindingLevelWriter) {
	globalFindingWriter = writer
}
