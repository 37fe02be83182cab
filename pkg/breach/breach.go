// Package breach implements the k-anonymity breach lookup. Only the first
// PrefixLength hex characters of the secret's SHA-1 digest ever leave the
// process; the returned candidate set is matched locally against the retained
// digest suffix in constant time.
package breach

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/CompassSecurity/keyscope/pkg/httpclient"
	"github.com/CompassSecurity/keyscope/pkg/secret"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the canonical Pwned Passwords range endpoint.
	DefaultBaseURL = "https://api.pwnedpasswords.com"

	// PrefixLength is the number of hex digest characters disclosed per
	// query. Five characters keep the candidate set in the hundreds.
	PrefixLength = 5

	// suffixLength is the retained remainder of a 40-char SHA-1 hex digest.
	suffixLength = 40 - PrefixLength
)

// ErrNetwork is the sanitized error for any connectivity failure. The
// underlying error is logged at debug level, never surfaced.
var ErrNetwork = errors.New("breach lookup failed: network error")

// Result is the outcome of one range query. Checked distinguishes "checked
// and clean" from "never checked"; Err marks "checked and errored", which must
// never be read as clean.
type Result struct {
	Checked     bool
	Found       bool
	Occurrences int64
	Err         error
}

// Clean reports a completed, error-free lookup with no match.
func (r Result) Clean() bool {
	return r.Checked && r.Err == nil && !r.Found
}

// Client queries a range endpoint speaking the `<hex-suffix>:<count>` line
// protocol.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

// NewClient creates a breach client. An empty baseURL selects the canonical
// endpoint. Response padding is requested so the candidate set size does not
// correlate with prefix popularity.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http: httpclient.Get(map[string]string{
			"Add-Padding": "true",
			"User-Agent":  "keyscope",
		}),
	}
}

// Check performs exactly one k-anonymity query for the buffer contents.
// Failures degrade to an unfound result carrying a sanitized error; they never
// abort the overall check.
func (c *Client) Check(ctx context.Context, buf *secret.Buffer) Result {
	digest, err := buf.Digest("sha1")
	if err != nil {
		// Contract violation: a destroyed buffer reached the matcher.
		return Result{Err: err}
	}
	digest = strings.ToUpper(digest)

	prefix := digest[:PrefixLength]
	target := []byte(digest[PrefixLength:])
	defer secret.Wipe(target)

	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", c.baseURL+"/range/"+prefix, nil)
	if err != nil {
		return Result{Checked: true, Err: ErrNetwork}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("Breach range request failed")
		return Result{Checked: true, Err: ErrNetwork}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != 200 {
		return Result{Checked: true, Err: fmt.Errorf("breach lookup failed: upstream status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Debug().Err(err).Msg("Reading breach range response failed")
		return Result{Checked: true, Err: ErrNetwork}
	}

	candidates := parseRange(body)
	matched, occurrences, _ := matchCandidates(target, candidates)
	wipeCandidates(candidates)

	// Padding entries report zero occurrences; a zero-count match carries no
	// breach evidence.
	found := matched && occurrences > 0
	return Result{Checked: true, Found: found, Occurrences: occurrences}
}
