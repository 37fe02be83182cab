// Package entropy measures how much a candidate credential looks like random
// key material: Shannon entropy over symbol frequencies, an encoding guess and
// a normalization against the inferred alphabet.
package entropy

import (
	"bytes"
	"math"
)

// Encoding is the inferred character set of a token.
type Encoding string

const (
	EncodingHex          Encoding = "hex"
	EncodingBase64       Encoding = "base64"
	EncodingBase62       Encoding = "base62"
	EncodingAlphanumeric Encoding = "alphanumeric"
	EncodingMixed        Encoding = "mixed"
)

// alphabetSizes maps an encoding guess to the symbol space used for
// normalization. Mixed input is normalized against printable ASCII.
var alphabetSizes = map[Encoding]float64{
	EncodingHex:          16,
	EncodingBase64:       64,
	EncodingBase62:       62,
	EncodingAlphanumeric: 64,
	EncodingMixed:        95,
}

const (
	WarningVeryShort  = "very short"
	WarningVeryLow    = "very low entropy, likely placeholder"
	WarningLowEntropy = "low entropy, verify this is real"
)

// Profile is the measurement result over whitespace-trimmed content.
type Profile struct {
	Shannon       float64
	MaxPossible   float64
	Normalized    float64
	Encoding      Encoding
	TrimmedLength int
	Warning       string
}

// Shannon computes the empirical entropy in bits per symbol. Empty and
// single-symbol input yields exactly 0.
func Shannon(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}

	var freq [256]int
	for _, c := range b {
		freq[c]++
	}

	total := float64(len(b))
	entropy := 0.0
	for _, n := range freq {
		if n == 0 {
			continue
		}
		p := float64(n) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// DetectEncoding guesses the character set of a token. The rules are ordered
// and exclusive: the first matching rule wins.
func DetectEncoding(b []byte) Encoding {
	if len(b) == 0 {
		return EncodingMixed
	}

	if isHex(b) {
		return EncodingHex
	}
	if bytes.ContainsAny(b, "+/") || bytes.HasSuffix(b, []byte("=")) {
		return EncodingBase64
	}
	if isBase62(b) {
		return EncodingBase62
	}
	if isAlphanumericish(b) {
		return EncodingAlphanumeric
	}
	return EncodingMixed
}

// Analyze builds the full entropy profile of a token. All measurements are
// taken over whitespace-trimmed content.
func Analyze(b []byte) Profile {
	trimmed := bytes.TrimSpace(b)

	encoding := DetectEncoding(trimmed)
	shannon := Shannon(trimmed)
	alphabet := alphabetSizes[encoding]

	maxPossible := 0.0
	normalized := 0.0
	if alphabet > 0 {
		maxPossible = math.Log2(alphabet)
		normalized = shannon / maxPossible
	}

	return Profile{
		Shannon:       shannon,
		MaxPossible:   maxPossible,
		Normalized:    normalized,
		Encoding:      encoding,
		TrimmedLength: len(trimmed),
		Warning:       warningFor(shannon, len(trimmed)),
	}
}

// warningFor applies the first-match-wins warning ladder.
func warningFor(shannon float64, length int) string {
	switch {
	case length < 8:
		return WarningVeryShort
	case shannon < 2.5:
		return WarningVeryLow
	case shannon < 3.5 && length < 20:
		return WarningLowEntropy
	default:
		return ""
	}
}

func isHex(b []byte) bool {
	for _, c := range b {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

func isBase62(b []byte) bool {
	for _, c := range b {
		if !isAlnum(c) {
			return false
		}
	}
	return true
}

func isAlphanumericish(b []byte) bool {
	for _, c := range b {
		if !isAlnum(c) && c != '_' && c != '-' {
			return false
		}
	}
	return true
}

func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
