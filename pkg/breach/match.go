package breach

import (
	"crypto/subtle"

	"github.com/CompassSecurity/keyscope/pkg/secret"
)

// matchCandidates scans the entire candidate list against the retained digest
// suffix. It never breaks early on a match, so elapsed time is independent of
// match position and outcome. The comparison count is returned for tests.
func matchCandidates(target []byte, candidates []candidate) (bool, int64, int) {
	found := 0
	var occurrences int64
	comparisons := 0

	for i := range candidates {
		eq := constantTimeEqual(target, candidates[i].suffix)
		found |= eq
		occurrences += int64(eq) * candidates[i].count
		comparisons++
	}

	return found == 1, occurrences, comparisons
}

// constantTimeEqual compares two byte strings in time independent of content
// and of where a mismatch occurs. Both inputs are staged into fixed-size
// scratch buffers so a declared length difference does not short-circuit the
// byte comparison; length equality is folded into the result instead.
func constantTimeEqual(a, b []byte) int {
	var sa, sb [suffixLength]byte
	copy(sa[:], a)
	copy(sb[:], b)

	lenEq := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	cmp := subtle.ConstantTimeCompare(sa[:], sb[:])

	secret.Wipe(sa[:])
	secret.Wipe(sb[:])

	return lenEq & cmp
}
