// Package verdict composes provider identification and entropy analysis into
// the local assessment of one secret. Local analysis never fails: unreadable
// or unmatched input degrades to an Unknown, low-confidence verdict.
package verdict

import (
	"github.com/CompassSecurity/keyscope/pkg/entropy"
	"github.com/CompassSecurity/keyscope/pkg/provider"
	"github.com/CompassSecurity/keyscope/pkg/secret"
)

// Thresholds for the "looks like a secret" heuristic.
const (
	minSecretEntropy = 3.5
	minSecretLength  = 16
)

// LocalVerdict is the offline assessment of a secret.
type LocalVerdict struct {
	Identification  provider.Identification
	Entropy         entropy.Profile
	Warnings        []string
	LooksLikeSecret bool
}

// Recognized reports whether a provider format matched.
func (v LocalVerdict) Recognized() bool {
	return v.Identification.Provider != provider.UnknownProvider
}

// Build derives the local verdict for the buffer against the given table.
func Build(buf *secret.Buffer, table *provider.Table) LocalVerdict {
	id := table.Identify(buf)

	raw, err := buf.Bytes()
	if err != nil {
		// Contract misuse upstream; still produce a verdict.
		return LocalVerdict{
			Identification: provider.Unknown(),
			Warnings:       []string{"input was not readable"},
		}
	}

	profile := entropy.Analyze(raw)

	var warnings []string
	if profile.Warning != "" {
		warnings = append(warnings, profile.Warning)
	}

	return LocalVerdict{
		Identification:  id,
		Entropy:         profile,
		Warnings:        warnings,
		LooksLikeSecret: looksLikeSecret(id, profile),
	}
}

// looksLikeSecret: a recognized provider format, or enough entropy over
// enough length to plausibly be key material.
func looksLikeSecret(id provider.Identification, profile entropy.Profile) bool {
	if id.Provider != provider.UnknownProvider {
		return true
	}
	return profile.Shannon >= minSecretEntropy && profile.TrimmedLength >= minSecretLength
}
