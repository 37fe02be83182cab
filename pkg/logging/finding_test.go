package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureFinding(t *testing.T, emit func()) map[string]interface{} {
	t.Helper()

	originalLogger := log.Logger
	defer func() { log.Logger = originalLogger }()

	var buf bytes.Buffer
	findingWriter := NewFindingLevelWriter(&buf)
	log.Logger = zerolog.New(findingWriter).With().Timestamp().Logger()
	globalFindingWriter = findingWriter

	emit()

	lines := bytes.Split(buf.Bytes(), []byte("\n"))
	var lastValidLine []byte
	for _, line := range lines {
		if len(line) > 0 {
			lastValidLine = line
		}
	}
	if len(lastValidLine) == 0 {
		t.Fatalf("No valid JSON line found in output: %s", buf.String())
	}

	var logEntry map[string]interface{}
	if err := json.Unmarshal(lastValidLine, &logEntry); err != nil {
		t.Fatalf("Failed to parse log output: %v\nOutput: %s", err, string(lastValidLine))
	}
	return logEntry
}

func TestFinding(t *testing.T) {
	logEntry := captureFinding(t, func() {
		Finding().Str("provider", "AWS").Str("risk", "critical").Msg("FINDING")
	})

	if logEntry["level"] != "finding" {
		t.Errorf("Expected level to be 'finding', got '%v'", logEntry["level"])
	}

	if logEntry["provider"] != "AWS" {
		t.Errorf("Expected provider to be 'AWS', got '%v'", logEntry["provider"])
	}

	if logEntry["risk"] != "critical" {
		t.Errorf("Expected risk to be 'critical', got '%v'", logEntry["risk"])
	}

	if logEntry["message"] != "FINDING" {
		t.Errorf("Expected message to be 'FINDING', got '%v'", logEntry["message"])
	}

	if _, exists := logEntry["_finding"]; exists {
		t.Error("Internal _finding marker should be removed from output")
	}
}

func TestFindingFieldTypes(t *testing.T) {
	logEntry := captureFinding(t, func() {
		Finding().
			Float64("entropy", 4.2).
			Int64("occurrences", 9545824).
			Bool("breached", true).
			Strs("warnings", []string{"very short"}).
			Msg("FINDING")
	})

	if logEntry["entropy"] != 4.2 {
		t.Errorf("Expected entropy 4.2, got '%v'", logEntry["entropy"])
	}

	if logEntry["breached"] != true {
		t.Errorf("Expected breached true, got '%v'", logEntry["breached"])
	}
}

func TestFindingEmittedAboveGlobalLevel(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(originalLevel)
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	logEntry := captureFinding(t, func() {
		Finding().Str("provider", "GitHub").Msg("FINDING")
	})

	if logEntry["level"] != "finding" {
		t.Errorf("Expected level to be 'finding', got '%v'", logEntry["level"])
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("finding")
	if err != nil {
		t.Fatalf("Failed to parse 'finding' level: %v", err)
	}
	if level != FindingLevel {
		t.Errorf("Expected FindingLevel, got %v", level)
	}

	level, err = ParseLevel("debug")
	if err != nil {
		t.Fatalf("Failed to parse 'debug' level: %v", err)
	}
	if level != zerolog.DebugLevel {
		t.Errorf("Expected DebugLevel, got %v", level)
	}

	if _, err = ParseLevel("bogus"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestFindingLevelWriterPassthrough(t *testing.T) {
	var buf bytes.Buffer
	w := NewFindingLevelWriter(&buf)

	line := []byte(`{"level":"info","message":"plain"}` + "\n")
	n, err := w.Write(line)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != len(line) {
		t.Errorf("Expected %d bytes written, got %d", len(line), n)
	}
	if buf.String() != string(line) {
		t.Errorf("Unmarked lines must pass through unchanged, got %q", buf.String())
	}
}
