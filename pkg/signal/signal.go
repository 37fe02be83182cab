// Package signal defines the pluggable exposure and liveness checks that feed
// the risk aggregator. Every check, local or external, emits the same Result
// shape; the aggregator is polymorphic over this interface and never branches
// on a concrete check identity.
package signal

import (
	"context"

	"github.com/CompassSecurity/keyscope/pkg/secret"
)

// Severity orders signal findings; Critical is highest.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	case SeverityLow:
		return "low"
	default:
		return "info"
	}
}

// Category is the capability class of a signal. Liveness checks verify that a
// credential is currently active; exposure checks report that its value is
// known outside the owner's control.
type Category string

const (
	CategoryLiveness Category = "liveness"
	CategoryExposure Category = "exposure"
)

// Result is the uniform outcome shape of every check. Err marks "checked and
// errored"; it must never be treated as "checked and clean".
type Result struct {
	ID       string
	Category Category
	Found    bool
	Severity Severity
	Details  string
	Err      error
}

// Config carries per-run settings into checks. Credentials holds required
// keys resolved by the runnability policy; BaseURLs lets tests and private
// deployments override a check's endpoint by signal ID.
type Config struct {
	Credentials map[string]string
	BaseURLs    map[string]string
}

// BaseURL resolves the endpoint override for a signal ID, or falls back.
func (c Config) BaseURL(id, fallback string) string {
	if u, ok := c.BaseURLs[id]; ok && u != "" {
		return u
	}
	return fallback
}

// Signal is one pluggable check. Implementations must not retain the input
// buffer beyond the Check call and must never place secret bytes in Result.
type Signal interface {
	ID() string
	Category() Category
	RequiresNetwork() bool
	RequiredCredentialKeys() []string
	Check(ctx context.Context, input *secret.Buffer, cfg Config) Result
}

// Default returns the built-in signal set.
func Default() []Signal {
	return []Signal{
		NewWordlist(),
		NewGitHubToken(),
		NewGitLabToken(),
	}
}
