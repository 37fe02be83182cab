package signal

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/CompassSecurity/keyscope/pkg/secret"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"resty.dev/v3"
)

// ErrNetwork is the sanitized error for signal connectivity failures.
var ErrNetwork = errors.New("signal check failed: network error")

func upstreamError(status int) error {
	return fmt.Errorf("signal check failed: upstream status %d", status)
}

const gitlabAPIBase = "https://gitlab.com"

var gitlabPrefixes = []string{"glpat-", "glsoat-"}

// GitLabToken verifies whether a GitLab personal or service account token is
// currently active via the self-inspection endpoint.
type GitLabToken struct{}

func NewGitLabToken() *GitLabToken { return &GitLabToken{} }

func (g *GitLabToken) ID() string                       { return "gitlab-token" }
func (g *GitLabToken) Category() Category               { return CategoryLiveness }
func (g *GitLabToken) RequiresNetwork() bool            { return true }
func (g *GitLabToken) RequiredCredentialKeys() []string { return nil }

func (g *GitLabToken) Check(ctx context.Context, input *secret.Buffer, cfg Config) Result {
	res := Result{ID: g.ID(), Category: g.Category(), Severity: SeverityHigh}

	raw, err := input.Bytes()
	if err != nil {
		res.Err = err
		return res
	}

	token := bytes.TrimSpace(raw)
	if !hasAnyPrefix(token, gitlabPrefixes) {
		res.Details = "not a GitLab token format"
		return res
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL(g.ID(), gitlabAPIBase)).
		SetHeader("User-Agent", "keyscope").
		SetRetryCount(0)
	defer func() { _ = client.Close() }()

	resp, err := client.R().
		SetContext(ctx).
		SetHeader("PRIVATE-TOKEN", string(token)).
		Get("/api/v4/personal_access_tokens/self")
	if err != nil {
		log.Debug().Err(err).Str("signal", g.ID()).Msg("Liveness request failed")
		res.Err = ErrNetwork
		return res
	}

	switch resp.StatusCode() {
	case 200:
		body := resp.Bytes()
		if gjson.GetBytes(body, "revoked").Bool() {
			res.Details = "token is revoked"
			return res
		}
		res.Found = true
		res.Details = "token is active"
		if name := gjson.GetBytes(body, "name"); name.Exists() {
			res.Details = "active token " + name.String()
		}
	case 401, 403:
		res.Details = "token is revoked or invalid"
	default:
		res.Err = upstreamError(resp.StatusCode())
	}
	return res
}
