// Package provider identifies the issuing vendor of a credential by matching
// it against an ordered table of format signatures. Table order encodes
// precedence: a vendor's specific prefix rule always sits before any looser
// rule sharing the same prefix bytes.
package provider

import (
	"bytes"
	"strings"
)

// Confidence is a static property of a signature, not of a match.
type Confidence string

const (
	// ConfidenceHigh marks fixed, vendor-documented prefix and length rules.
	ConfidenceHigh Confidence = "high"
	// ConfidenceMedium marks heuristic-length or structurally ambiguous formats.
	ConfidenceMedium Confidence = "medium"
	// ConfidenceLow is only ever produced for unmatched input.
	ConfidenceLow Confidence = "low"
)

// UnknownProvider is the provider name for unmatched input.
const UnknownProvider = "Unknown"

// Signature is one immutable provider-format rule.
//
// Supported rule shapes:
//   - exact prefix + fixed length: MinLen == MaxLen
//   - exact prefix + length range: MinLen < MaxLen
//   - dot-segmented structure: Segments > 0 requires the token to split into
//     exactly that many non-empty '.'-separated parts
//
// Charset, when set, restricts every byte after the prefix to the listed
// characters (the '.' separator is implied when Segments is set).
type Signature struct {
	Provider    string     `yaml:"provider"`
	Description string     `yaml:"description"`
	Confidence  Confidence `yaml:"confidence"`
	Prefix      string     `yaml:"prefix"`
	MinLen      int        `yaml:"minLen"`
	MaxLen      int        `yaml:"maxLen"`
	Charset     string     `yaml:"charset,omitempty"`
	Segments    int        `yaml:"segments,omitempty"`
}

// Identification is the result of matching a credential against the table.
// It never carries matched secret bytes, only the static signature metadata.
type Identification struct {
	Provider    string
	Confidence  Confidence
	Description string
}

// Unknown is the identification of unmatched input.
func Unknown() Identification {
	return Identification{
		Provider:    UnknownProvider,
		Confidence:  ConfidenceLow,
		Description: "unrecognized credential format",
	}
}

// Matches reports whether trimmed token bytes satisfy this signature.
func (s Signature) Matches(token []byte) bool {
	if len(token) < s.MinLen || (s.MaxLen > 0 && len(token) > s.MaxLen) {
		return false
	}
	if !bytes.HasPrefix(token, []byte(s.Prefix)) {
		return false
	}

	body := token[len(s.Prefix):]

	if s.Segments > 0 {
		parts := bytes.Split(token, []byte("."))
		if len(parts) != s.Segments {
			return false
		}
		for _, p := range parts {
			if len(p) == 0 {
				return false
			}
		}
	}

	if s.Charset != "" {
		for _, c := range body {
			if s.Segments > 0 && c == '.' {
				continue
			}
			if !strings.ContainsRune(s.Charset, rune(c)) {
				return false
			}
		}
	}

	return true
}

// Identification derives the match metadata for this signature.
func (s Signature) Identification() Identification {
	return Identification{
		Provider:    s.Provider,
		Confidence:  s.Confidence,
		Description: s.Description,
	}
}
