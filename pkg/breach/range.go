package breach

import (
	"bytes"
	"strconv"

	"github.com/CompassSecurity/keyscope/pkg/secret"
)

// candidate is one `<hex-suffix>:<count>` record from a range response.
type candidate struct {
	suffix []byte
	count  int64
}

// parseRange parses newline-delimited suffix records. Malformed lines are
// skipped; an empty body is a valid, candidate-free response.
func parseRange(body []byte) []candidate {
	var candidates []candidate

	for _, line := range bytes.Split(body, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if len(line) == 0 {
			continue
		}

		suffix, countRaw, ok := bytes.Cut(line, []byte(":"))
		if !ok || len(suffix) != suffixLength || !isUpperHex(suffix) {
			continue
		}

		count, err := strconv.ParseInt(string(bytes.TrimSpace(countRaw)), 10, 64)
		if err != nil || count < 0 {
			continue
		}

		owned := make([]byte, len(suffix))
		copy(owned, suffix)
		candidates = append(candidates, candidate{suffix: owned, count: count})
	}

	return candidates
}

func wipeCandidates(candidates []candidate) {
	for i := range candidates {
		secret.Wipe(candidates[i].suffix)
	}
}

func isUpperHex(b []byte) bool {
	for _, c := range b {
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}
