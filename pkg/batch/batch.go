// Package batch checks credential candidates read line by line from a file,
// feeding each entry through the scan pipeline under the disposal guarantee.
package batch

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/acarl005/stripansi"
	"github.com/h2non/filetype"
	"github.com/rs/zerolog/log"

	"github.com/CompassSecurity/keyscope/pkg/report"
	"github.com/CompassSecurity/keyscope/pkg/risk"
	"github.com/CompassSecurity/keyscope/pkg/scan"
	"github.com/CompassSecurity/keyscope/pkg/secret"
)

// Options configures one batch run.
type Options struct {
	Scan         scan.Options
	MaxEntrySize int64
}

// Stats summarizes a completed batch run.
type Stats struct {
	Lines        int
	Checked      int
	Skipped      int
	Errored      int
	HighestLevel risk.Level
}

const sniffSize = 261 // filetype matchers need at most this many bytes

// ProcessFile checks every non-empty line of the file. Binary files are
// rejected up front; a credential list is plain text or nothing. Oversized
// entries are counted as errored and the rest of the file is still processed.
func ProcessFile(ctx context.Context, path string, opts Options, reporter *report.Reporter) (Stats, error) {
	stats := Stats{}

	file, err := os.Open(path)
	if err != nil {
		return stats, fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = file.Close() }()

	head := make([]byte, sniffSize)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return stats, fmt.Errorf("failed to read input file: %w", err)
	}
	if kind, _ := filetype.Match(head[:n]); kind != filetype.Unknown {
		return stats, fmt.Errorf("input file %s is %s, expected plain text", path, kind.MIME.Value)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return stats, fmt.Errorf("failed to rewind input file: %w", err)
	}

	maxEntry := int(opts.MaxEntrySize)
	if maxEntry < 1 {
		maxEntry = bufio.MaxScanTokenSize
	}
	reader := bufio.NewReaderSize(file, 64*1024)

	for {
		raw, truncated, readErr := readEntry(reader, maxEntry)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return stats, fmt.Errorf("failed to read input file: %w", readErr)
		}
		atEOF := errors.Is(readErr, io.EOF)
		if len(raw) == 0 && !truncated && atEOF {
			break
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Lines++

		if truncated {
			stats.Errored++
			log.Warn().Int("line", stats.Lines).Int("maxEntrySize", maxEntry).Msg("Entry exceeds the maximum entry size, skipped")
			if atEOF {
				break
			}
			continue
		}

		line := strings.TrimSpace(stripansi.Strip(string(raw)))
		if line == "" || strings.HasPrefix(line, "#") {
			stats.Skipped++
			if atEOF {
				break
			}
			continue
		}

		err := secret.Do([]byte(line), func(buf *secret.Buffer) error {
			outcome, err := scan.Run(ctx, buf, opts.Scan)
			if err != nil {
				return err
			}
			if outcome.Verdict.Level > stats.HighestLevel {
				stats.HighestLevel = outcome.Verdict.Level
			}
			reporter.Emit(outcome.Finding(), outcome.Verdict.Level)
			return nil
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return stats, err
			}
			stats.Errored++
			log.Error().Err(err).Int("line", stats.Lines).Msg("Failed checking entry")
		} else {
			stats.Checked++
		}

		if atEOF {
			break
		}
	}

	return stats, nil
}

// readEntry reads one newline-terminated entry of at most max content bytes.
// Longer entries are consumed to the end of the line but reported truncated
// with no content, so oversized values never reach a check.
func readEntry(r *bufio.Reader, max int) (line []byte, truncated bool, err error) {
	for {
		chunk, err := r.ReadSlice('\n')
		data := chunk
		if err == nil {
			data = bytes.TrimRight(chunk, "\r\n")
		}
		if !truncated {
			if len(line)+len(data) > max {
				truncated = true
				line = nil
			} else {
				line = append(line, data...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, truncated, err
	}
}
