package signal

import (
	"bytes"
	"context"
	"io"

	"github.com/CompassSecurity/keyscope/pkg/httpclient"
	"github.com/CompassSecurity/keyscope/pkg/secret"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const githubAPIBase = "https://api.github.com"

// githubPrefixes are the token shapes this check can verify.
var githubPrefixes = []string{"ghp_", "gho_", "ghu_", "ghs_", "ghr_", "github_pat_"}

// GitHubToken verifies whether a GitHub token is currently active by calling
// the authenticated-user endpoint.
type GitHubToken struct{}

func NewGitHubToken() *GitHubToken { return &GitHubToken{} }

func (g *GitHubToken) ID() string                       { return "github-token" }
func (g *GitHubToken) Category() Category               { return CategoryLiveness }
func (g *GitHubToken) RequiresNetwork() bool            { return true }
func (g *GitHubToken) RequiredCredentialKeys() []string { return nil }

func (g *GitHubToken) Check(ctx context.Context, input *secret.Buffer, cfg Config) Result {
	res := Result{ID: g.ID(), Category: g.Category(), Severity: SeverityHigh}

	raw, err := input.Bytes()
	if err != nil {
		res.Err = err
		return res
	}

	token := bytes.TrimSpace(raw)
	if !hasAnyPrefix(token, githubPrefixes) {
		res.Details = "not a GitHub token format"
		return res
	}

	client := httpclient.Get(map[string]string{
		"Accept":     "application/vnd.github+json",
		"User-Agent": "keyscope",
	})

	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", cfg.BaseURL(g.ID(), githubAPIBase)+"/user", nil)
	if err != nil {
		res.Err = ErrNetwork
		return res
	}
	req.Header.Set("Authorization", "token "+string(token))

	resp, err := client.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("signal", g.ID()).Msg("Liveness request failed")
		res.Err = ErrNetwork
		return res
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case 200:
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if readErr != nil {
			res.Err = ErrNetwork
			return res
		}
		res.Found = true
		res.Details = "token is active"
		if login := gjson.GetBytes(body, "login"); login.Exists() {
			res.Details = "active token for account " + login.String()
		}
	case 401, 403:
		res.Details = "token is revoked or invalid"
	default:
		res.Err = upstreamError(resp.StatusCode)
	}
	return res
}

func hasAnyPrefix(token []byte, prefixes []string) bool {
	for _, p := range prefixes {
		if bytes.HasPrefix(token, []byte(p)) {
			return true
		}
	}
	return false
}
