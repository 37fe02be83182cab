package breach

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/CompassSecurity/keyscope/pkg/secret"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func digestParts(t *testing.T, value string) (prefix, suffix string) {
	t.Helper()
	sum := sha1.Sum([]byte(value))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	return digest[:PrefixLength], digest[PrefixLength:]
}

func TestCheckFindsMatch(t *testing.T) {
	const value = "P@ssw0rd"
	_, suffix := digestParts(t, value)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "0018A45C4D1DEF81644B54AB7F969B88D65:3\r\n")
		fmt.Fprintf(w, "%s:9545824\r\n", suffix)
		fmt.Fprintf(w, "011053FD0102E94D6AE2F8B83D76FAF94F6:1\r\n")
	}))
	defer server.Close()

	buf := secret.New([]byte(value))
	defer buf.Destroy()

	res := NewClient(server.URL).Check(context.Background(), buf)
	require.NoError(t, res.Err)
	assert.True(t, res.Checked)
	assert.True(t, res.Found)
	assert.Equal(t, int64(9545824), res.Occurrences)
	assert.False(t, res.Clean())
}

func TestOutboundRequestDisclosesOnlyPrefix(t *testing.T) {
	const value = "correct horse battery staple"
	prefix, suffix := digestParts(t, value)

	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	buf := secret.New([]byte(value))
	defer buf.Destroy()

	res := NewClient(server.URL).Check(context.Background(), buf)
	require.NoError(t, res.Err)

	require.Equal(t, "/range/"+prefix, gotPath)
	assert.Len(t, strings.TrimPrefix(gotPath, "/range/"), PrefixLength)
	assert.Empty(t, gotQuery)
	assert.NotContains(t, gotPath, suffix, "digest suffix must never leave the process")
	assert.NotContains(t, gotPath, prefix+suffix, "full digest must never leave the process")
}

func TestCheckEmptyResponseIsClean(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	buf := secret.New([]byte("unbreached-value-x7Kp2mQ9"))
	defer buf.Destroy()

	res := NewClient(server.URL).Check(context.Background(), buf)
	require.NoError(t, res.Err)
	assert.True(t, res.Checked)
	assert.False(t, res.Found)
	assert.Zero(t, res.Occurrences)
	assert.True(t, res.Clean())
}

func TestCheckSkipsMalformedLines(t *testing.T) {
	const value = "P@ssw0rd"
	_, suffix := digestParts(t, value)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "garbage line\n")
		fmt.Fprintf(w, "TOOSHORT:12\n")
		fmt.Fprintf(w, "%s:notanumber\n", suffix)
		fmt.Fprintf(w, ":\n")
		fmt.Fprintf(w, "%s:42\n", suffix)
	}))
	defer server.Close()

	buf := secret.New([]byte(value))
	defer buf.Destroy()

	res := NewClient(server.URL).Check(context.Background(), buf)
	require.NoError(t, res.Err)
	assert.True(t, res.Found)
	assert.Equal(t, int64(42), res.Occurrences)
}

func TestZeroCountMatchIsNotABreach(t *testing.T) {
	const value = "padded-entry"
	_, suffix := digestParts(t, value)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s:0\n", suffix)
	}))
	defer server.Close()

	buf := secret.New([]byte(value))
	defer buf.Destroy()

	res := NewClient(server.URL).Check(context.Background(), buf)
	require.NoError(t, res.Err)
	assert.False(t, res.Found)
	assert.Zero(t, res.Occurrences)
}

func TestUpstreamErrorIsSanitizedAndNotClean(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	buf := secret.New([]byte("whatever"))
	defer buf.Destroy()

	res := NewClient(server.URL).Check(context.Background(), buf)
	require.Error(t, res.Err)
	assert.True(t, res.Checked)
	assert.False(t, res.Found)
	assert.False(t, res.Clean(), "an errored check must never read as clean")
	assert.Contains(t, res.Err.Error(), "503")
}

func TestNetworkErrorIsSanitized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	buf := secret.New([]byte("whatever"))
	defer buf.Destroy()

	res := NewClient(server.URL).Check(context.Background(), buf)
	assert.ErrorIs(t, res.Err, ErrNetwork)
	assert.False(t, res.Clean())
}

func TestRateLimitRetriedExactlyOnce(t *testing.T) {
	const value = "P@ssw0rd"
	_, suffix := digestParts(t, value)

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprintf(w, "%s:7\n", suffix)
	}))
	defer server.Close()

	buf := secret.New([]byte(value))
	defer buf.Destroy()

	res := NewClient(server.URL).Check(context.Background(), buf)
	require.NoError(t, res.Err)
	assert.True(t, res.Found)
	assert.Equal(t, int64(7), res.Occurrences)
	assert.Equal(t, int32(2), hits.Load())
}

func TestPersistentRateLimitBecomesUpstreamError(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	buf := secret.New([]byte("whatever"))
	defer buf.Destroy()

	res := NewClient(server.URL).Check(context.Background(), buf)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "429")
	assert.Equal(t, int32(2), hits.Load(), "exactly one bounded retry")
}

func TestCheckDestroyedBufferIsContractError(t *testing.T) {
	buf := secret.New([]byte("whatever"))
	buf.Destroy()

	res := NewClient("http://127.0.0.1:0").Check(context.Background(), buf)
	assert.ErrorIs(t, res.Err, secret.ErrDestroyed)
	assert.False(t, res.Checked)
}
