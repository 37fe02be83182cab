// Package report turns aggregated check results into log output. It never
// sees or emits the credential itself, only derived metadata.
package report

import (
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/rxwycdh/rxhash"

	"github.com/CompassSecurity/keyscope/pkg/logging"
	"github.com/CompassSecurity/keyscope/pkg/risk"
)

// Finding is the loggable projection of one checked credential.
type Finding struct {
	Fingerprint string
	Provider    string
	Confidence  string
	Level       string
	Summary     string
	Entropy     float64
	Encoding    string
	Warnings    []string
	Breached    bool
	Occurrences int64
	ActiveOn    []string
	ExposedOn   []string
	Errored     []string
}

// Reporter emits findings and suppresses exact duplicates, which batch input
// produces whenever the same credential appears on multiple lines.
type Reporter struct {
	mu      sync.Mutex
	seen    []string
	emitted int
	skipped int
}

func New() *Reporter {
	return &Reporter{}
}

// Emit logs the finding unless an identical one was reported before.
// Reports whether the finding was actually emitted.
func (r *Reporter) Emit(finding Finding, level risk.Level) bool {
	hash, _ := rxhash.HashStruct(finding)

	r.mu.Lock()
	if slices.Contains(r.seen, hash) {
		r.skipped++
		r.mu.Unlock()
		log.Debug().Str("fingerprint", finding.Fingerprint).Msg("Duplicate finding suppressed")
		return false
	}
	r.seen = append(r.seen, hash)
	r.emitted++
	r.mu.Unlock()

	if level >= risk.LevelMedium {
		event := logging.Finding().
			Str("fingerprint", finding.Fingerprint).
			Str("provider", finding.Provider).
			Str("confidence", finding.Confidence).
			Str("risk", finding.Level).
			Float64("entropy", finding.Entropy).
			Str("encoding", finding.Encoding).
			Bool("breached", finding.Breached)
		if finding.Occurrences > 0 {
			event = event.Int64("occurrences", finding.Occurrences)
		}
		if len(finding.Warnings) > 0 {
			event = event.Strs("warnings", finding.Warnings)
		}
		if len(finding.ActiveOn) > 0 {
			event = event.Strs("activeOn", finding.ActiveOn)
		}
		if len(finding.ExposedOn) > 0 {
			event = event.Strs("exposedOn", finding.ExposedOn)
		}
		if len(finding.Errored) > 0 {
			event = event.Strs("erroredChecks", finding.Errored)
		}
		event.Msg(finding.Summary)
		return true
	}

	event := log.Info().
		Str("fingerprint", finding.Fingerprint).
		Str("provider", finding.Provider).
		Str("risk", finding.Level).
		Float64("entropy", finding.Entropy).
		Str("encoding", finding.Encoding)
	if len(finding.Warnings) > 0 {
		event = event.Strs("warnings", finding.Warnings)
	}
	if len(finding.Errored) > 0 {
		event = event.Strs("erroredChecks", finding.Errored)
	}
	event.Msg(finding.Summary)
	return true
}

// Stats returns the number of emitted and suppressed findings so far.
func (r *Reporter) Stats() (emitted int, skipped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.emitted, r.skipped
}
