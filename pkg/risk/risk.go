// Package risk merges the local verdict, the breach lookup result and any
// number of signal results into a single ordered risk level under a strict
// top-down precedence ladder.
package risk

import (
	"fmt"

	"github.com/CompassSecurity/keyscope/pkg/breach"
	"github.com/CompassSecurity/keyscope/pkg/provider"
	"github.com/CompassSecurity/keyscope/pkg/secret"
	"github.com/CompassSecurity/keyscope/pkg/signal"
	"github.com/CompassSecurity/keyscope/pkg/verdict"
)

// Level is the final risk classification; Critical is highest.
type Level int

const (
	LevelInfo Level = iota
	LevelLow
	LevelMedium
	LevelHigh
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelCritical:
		return "critical"
	case LevelHigh:
		return "high"
	case LevelMedium:
		return "medium"
	case LevelLow:
		return "low"
	default:
		return "info"
	}
}

// ExitCode maps a risk level to the process exit status. Per-check errors
// never influence it.
func (l Level) ExitCode() int {
	switch l {
	case LevelCritical:
		return 3
	case LevelHigh:
		return 2
	case LevelMedium:
		return 1
	default:
		return 0
	}
}

// FingerprintLength is the number of hex characters of the SHA-256 digest
// kept for logging; deliberately too short to invert.
const FingerprintLength = 12

// Fingerprint derives the loggable digest prefix for a secret.
func Fingerprint(buf *secret.Buffer) (string, error) {
	digest, err := buf.Digest("sha256")
	if err != nil {
		return "", err
	}
	return digest[:FingerprintLength], nil
}

// Verdict is the final aggregated assessment.
type Verdict struct {
	Level       Level
	Summary     string
	Fingerprint string
}

// Input bundles everything the ladder consumes.
type Input struct {
	Local       verdict.LocalVerdict
	Breach      breach.Result
	Signals     []signal.Result
	Fingerprint string
}

// Aggregate applies the precedence ladder, first applicable rung wins.
func Aggregate(in Input) Verdict {
	v := Verdict{Fingerprint: in.Fingerprint}

	verifiedActive := anyFound(in.Signals, signal.CategoryLiveness)
	exposed := anyFound(in.Signals, signal.CategoryExposure)
	breached := in.Breach.Found && in.Breach.Occurrences > 0

	switch {
	case verifiedActive && (exposed || breached):
		v.Level = LevelCritical
		v.Summary = "verified-active credential with known exposure"

	case breached:
		v.Level = LevelCritical
		v.Summary = fmt.Sprintf("credential found in breach corpus (%d occurrences)", in.Breach.Occurrences)

	case anyFoundAt(in.Signals, signal.SeverityCritical):
		v.Level = LevelCritical
		v.Summary = "critical signal finding"

	case anyFoundAt(in.Signals, signal.SeverityHigh):
		v.Level = LevelHigh
		v.Summary = "high-severity signal finding"

	case in.Local.Recognized() && in.Local.Identification.Confidence == provider.ConfidenceHigh &&
		in.Local.LooksLikeSecret && !in.Breach.Clean():
		// Breach status unknown (skipped or errored): a recognized live-format
		// key without a clean lookup is unknown, not safe.
		v.Level = LevelMedium
		v.Summary = "recognized " + in.Local.Identification.Provider + " credential, breach status unknown"

	case in.Local.Recognized() && in.Breach.Clean():
		v.Level = LevelLow
		v.Summary = "recognized " + in.Local.Identification.Provider + " credential, not found in breach corpus"

	case !in.Local.Recognized() && in.Local.LooksLikeSecret && in.Breach.Clean():
		v.Level = LevelLow
		v.Summary = "unrecognized high-entropy value, not found in breach corpus"

	case !in.Local.Recognized() && in.Local.LooksLikeSecret:
		v.Level = LevelMedium
		v.Summary = "unrecognized high-entropy value, breach status unknown"

	case anyFoundAt(in.Signals, signal.SeverityMedium):
		v.Level = LevelMedium
		v.Summary = "medium-severity signal finding"

	default:
		v.Level = LevelInfo
		v.Summary = "no findings"
	}

	return v
}

func anyFound(results []signal.Result, category signal.Category) bool {
	for _, r := range results {
		if r.Found && r.Category == category {
			return true
		}
	}
	return false
}

func anyFoundAt(results []signal.Result, severity signal.Severity) bool {
	for _, r := range results {
		if r.Found && r.Severity == severity {
			return true
		}
	}
	return false
}
