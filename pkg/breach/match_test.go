package breach

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeCandidates(matchPos, total int, target string) []candidate {
	cands := make([]candidate, total)
	for i := range cands {
		suffix := strings.Repeat("A", suffixLength-5) + "0000" + string(rune('A'+i%26))
		if i == matchPos {
			suffix = target
		}
		cands[i] = candidate{suffix: []byte(suffix), count: int64(i + 1)}
	}
	return cands
}

func TestMatchScansEntireListRegardlessOfMatchPosition(t *testing.T) {
	target := strings.Repeat("B", suffixLength)

	first := makeCandidates(0, 50, target)
	foundFirst, occFirst, comparedFirst := matchCandidates([]byte(target), first)

	last := makeCandidates(49, 50, target)
	foundLast, occLast, comparedLast := matchCandidates([]byte(target), last)

	assert.True(t, foundFirst)
	assert.True(t, foundLast)
	assert.Equal(t, int64(1), occFirst)
	assert.Equal(t, int64(50), occLast)
	assert.Equal(t, comparedFirst, comparedLast, "comparison count must not depend on match position")
	assert.Equal(t, 50, comparedFirst)
}

func TestMatchNoCandidates(t *testing.T) {
	found, occ, compared := matchCandidates([]byte(strings.Repeat("B", suffixLength)), nil)
	assert.False(t, found)
	assert.Zero(t, occ)
	assert.Zero(t, compared)
}

func TestConstantTimeEqual(t *testing.T) {
	a := strings.Repeat("C", suffixLength)

	assert.Equal(t, 1, constantTimeEqual([]byte(a), []byte(a)))
	assert.Equal(t, 0, constantTimeEqual([]byte(a), []byte(strings.Repeat("D", suffixLength))))

	// Length inequality must not bypass the comparison result.
	assert.Equal(t, 0, constantTimeEqual([]byte(a), []byte(a[:suffixLength-1])))
	assert.Equal(t, 0, constantTimeEqual([]byte(a), nil))
}

func TestParseRange(t *testing.T) {
	body := []byte(
		"0018A45C4D1DEF81644B54AB7F969B88D65:3\r\n" +
			"garbage\r\n" +
			"0018A45C4D1DEF81644B54AB7F969B88D66:-4\r\n" +
			"0018a45c4d1def81644b54ab7f969b88d65:5\r\n" + // lowercase: not wire format
			"011053FD0102E94D6AE2F8B83D76FAF94F6:1\r\n")

	cands := parseRange(body)
	assert.Len(t, cands, 2)
	assert.Equal(t, int64(3), cands[0].count)
	assert.Equal(t, int64(1), cands[1].count)
}

func TestParseRangeEmpty(t *testing.T) {
	assert.Empty(t, parseRange(nil))
	assert.Empty(t, parseRange([]byte("\r\n\r\n")))
}
