package provider

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/CompassSecurity/keyscope/pkg/secret"
	"gopkg.in/yaml.v3"
)

const (
	digits    = "0123456789"
	upper     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lower     = "abcdefghijklmnopqrstuvwxyz"
	alnum     = digits + upper + lower
	tokenSet  = alnum + "_-"
	base64url = alnum + "-_="
	hexSet    = digits + "abcdefABCDEF"
)

// Table is an ordered, immutable set of signatures. Build it once at startup;
// it is safe for concurrent readers.
type Table struct {
	sigs []Signature
}

// NewTable copies sigs into an immutable table after validating the
// precedence invariant.
func NewTable(sigs []Signature) (*Table, error) {
	owned := make([]Signature, len(sigs))
	copy(owned, sigs)

	if err := validateOrder(owned); err != nil {
		return nil, err
	}
	return &Table{sigs: owned}, nil
}

// validateOrder rejects tables where a general prefix rule shadows a more
// specific rule sharing the same leading bytes.
func validateOrder(sigs []Signature) error {
	for i, s := range sigs {
		if s.Provider == "" {
			return fmt.Errorf("provider: signature %d has no provider name", i)
		}
		if s.Prefix == "" && s.Segments == 0 {
			return fmt.Errorf("provider: signature %d (%s) has neither prefix nor structure", i, s.Provider)
		}
		for j := i + 1; j < len(sigs); j++ {
			later := sigs[j]
			if later.Prefix != s.Prefix && strings.HasPrefix(later.Prefix, s.Prefix) && s.Prefix != "" {
				return fmt.Errorf("provider: %q (%s) shadows more specific %q (%s)",
					s.Prefix, s.Provider, later.Prefix, later.Provider)
			}
		}
	}
	return nil
}

// Signatures returns a copy of the ordered rule set.
func (t *Table) Signatures() []Signature {
	out := make([]Signature, len(t.sigs))
	copy(out, t.sigs)
	return out
}

// Len returns the number of signatures.
func (t *Table) Len() int {
	return len(t.sigs)
}

// Identify matches the buffer contents against the table, first full match
// wins. Local identification never fails: destroyed buffers and unmatched
// input both resolve to the Unknown identification.
func (t *Table) Identify(buf *secret.Buffer) Identification {
	raw, err := buf.Bytes()
	if err != nil {
		return Unknown()
	}
	return t.IdentifyBytes(raw)
}

// IdentifyBytes matches raw token bytes; content is whitespace-trimmed first.
func (t *Table) IdentifyBytes(raw []byte) Identification {
	token := bytes.TrimSpace(raw)
	if len(token) == 0 {
		return Unknown()
	}

	for _, s := range t.sigs {
		if s.Matches(token) {
			return s.Identification()
		}
	}
	return Unknown()
}

type tableFile struct {
	Signatures []Signature `yaml:"signatures"`
}

// LoadTable reads a custom signature table from a YAML file. The file fully
// replaces the built-in table; order in the file encodes precedence.
func LoadTable(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("provider: reading signature file: %w", err)
	}

	var f tableFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("provider: parsing signature file: %w", err)
	}
	if len(f.Signatures) == 0 {
		return nil, fmt.Errorf("provider: signature file %s contains no signatures", path)
	}

	return NewTable(f.Signatures)
}

var (
	defaultTable     *Table
	defaultTableOnce sync.Once
)

// Default returns the built-in signature table, constructed once.
func Default() *Table {
	defaultTableOnce.Do(func() {
		t, err := NewTable(defaultSignatures)
		if err != nil {
			// The built-in table is covered by tests; a bad entry is a
			// programming error.
			panic(err)
		}
		defaultTable = t
	})
	return defaultTable
}

// defaultSignatures is the built-in rule set. Order matters: vendor-specific
// prefixes come before looser fallbacks sharing the same leading bytes.
var defaultSignatures = []Signature{
	// AWS
	{Provider: "AWS", Description: "AWS access key ID", Confidence: ConfidenceHigh, Prefix: "AKIA", MinLen: 20, MaxLen: 20, Charset: digits + upper},
	{Provider: "AWS", Description: "AWS temporary access key ID", Confidence: ConfidenceHigh, Prefix: "ASIA", MinLen: 20, MaxLen: 20, Charset: digits + upper},

	// GitHub
	{Provider: "GitHub", Description: "GitHub fine-grained personal access token", Confidence: ConfidenceHigh, Prefix: "github_pat_", MinLen: 80, MaxLen: 100, Charset: alnum + "_"},
	{Provider: "GitHub", Description: "GitHub personal access token", Confidence: ConfidenceHigh, Prefix: "ghp_", MinLen: 40, MaxLen: 40, Charset: alnum},
	{Provider: "GitHub", Description: "GitHub OAuth access token", Confidence: ConfidenceHigh, Prefix: "gho_", MinLen: 40, MaxLen: 76, Charset: alnum},
	{Provider: "GitHub", Description: "GitHub user-to-server token", Confidence: ConfidenceHigh, Prefix: "ghu_", MinLen: 40, MaxLen: 76, Charset: alnum},
	{Provider: "GitHub", Description: "GitHub server-to-server token", Confidence: ConfidenceHigh, Prefix: "ghs_", MinLen: 40, MaxLen: 76, Charset: alnum},
	{Provider: "GitHub", Description: "GitHub refresh token", Confidence: ConfidenceHigh, Prefix: "ghr_", MinLen: 40, MaxLen: 76, Charset: alnum},

	// GitLab
	{Provider: "GitLab", Description: "GitLab personal access token", Confidence: ConfidenceHigh, Prefix: "glpat-", MinLen: 26, MaxLen: 56, Charset: tokenSet},
	{Provider: "GitLab", Description: "GitLab runner authentication token", Confidence: ConfidenceHigh, Prefix: "glrt-", MinLen: 25, MaxLen: 56, Charset: tokenSet},
	{Provider: "GitLab", Description: "GitLab service account token", Confidence: ConfidenceHigh, Prefix: "glsoat-", MinLen: 27, MaxLen: 56, Charset: tokenSet},

	// Slack
	{Provider: "Slack", Description: "Slack bot token", Confidence: ConfidenceHigh, Prefix: "xoxb-", MinLen: 24, MaxLen: 80, Charset: alnum + "-"},
	{Provider: "Slack", Description: "Slack user token", Confidence: ConfidenceHigh, Prefix: "xoxp-", MinLen: 24, MaxLen: 80, Charset: alnum + "-"},
	{Provider: "Slack", Description: "Slack workspace access token", Confidence: ConfidenceHigh, Prefix: "xoxa-", MinLen: 24, MaxLen: 80, Charset: alnum + "-"},
	{Provider: "Slack", Description: "Slack session token", Confidence: ConfidenceHigh, Prefix: "xoxs-", MinLen: 24, MaxLen: 80, Charset: alnum + "-"},

	// Stripe
	{Provider: "Stripe", Description: "Stripe live secret key", Confidence: ConfidenceHigh, Prefix: "sk_live_", MinLen: 30, MaxLen: 120, Charset: alnum},
	{Provider: "Stripe", Description: "Stripe test secret key", Confidence: ConfidenceHigh, Prefix: "sk_test_", MinLen: 30, MaxLen: 120, Charset: alnum},
	{Provider: "Stripe", Description: "Stripe live restricted key", Confidence: ConfidenceHigh, Prefix: "rk_live_", MinLen: 30, MaxLen: 120, Charset: alnum},
	{Provider: "Stripe", Description: "Stripe live publishable key", Confidence: ConfidenceHigh, Prefix: "pk_live_", MinLen: 30, MaxLen: 120, Charset: alnum},
	{Provider: "Stripe", Description: "Stripe webhook signing secret", Confidence: ConfidenceHigh, Prefix: "whsec_", MinLen: 38, MaxLen: 70, Charset: alnum},

	// Anthropic / OpenAI, specific prefixes before the bare sk- fallback
	{Provider: "Anthropic", Description: "Anthropic API key", Confidence: ConfidenceHigh, Prefix: "sk-ant-", MinLen: 40, MaxLen: 120, Charset: tokenSet},
	{Provider: "OpenAI", Description: "OpenAI project API key", Confidence: ConfidenceHigh, Prefix: "sk-proj-", MinLen: 40, MaxLen: 200, Charset: tokenSet},
	{Provider: "OpenAI", Description: "OpenAI-style secret key", Confidence: ConfidenceMedium, Prefix: "sk-", MinLen: 40, MaxLen: 60, Charset: alnum},

	// SendGrid
	{Provider: "SendGrid", Description: "SendGrid API key", Confidence: ConfidenceHigh, Prefix: "SG.", MinLen: 60, MaxLen: 100, Charset: tokenSet, Segments: 3},

	// Twilio: two-byte prefixes are structurally ambiguous
	{Provider: "Twilio", Description: "Twilio API key SID", Confidence: ConfidenceMedium, Prefix: "SK", MinLen: 34, MaxLen: 34, Charset: hexSet},
	{Provider: "Twilio", Description: "Twilio account SID", Confidence: ConfidenceMedium, Prefix: "AC", MinLen: 34, MaxLen: 34, Charset: hexSet},

	// Google
	{Provider: "Google", Description: "Google API key", Confidence: ConfidenceHigh, Prefix: "AIza", MinLen: 39, MaxLen: 39, Charset: alnum + "-_"},

	// npm / PyPI
	{Provider: "npm", Description: "npm access token", Confidence: ConfidenceHigh, Prefix: "npm_", MinLen: 40, MaxLen: 40, Charset: alnum},
	{Provider: "PyPI", Description: "PyPI upload token", Confidence: ConfidenceHigh, Prefix: "pypi-AgEIcHlwaS5vcmc", MinLen: 80, MaxLen: 300, Charset: tokenSet},

	// DigitalOcean
	{Provider: "DigitalOcean", Description: "DigitalOcean personal access token", Confidence: ConfidenceHigh, Prefix: "dop_v1_", MinLen: 71, MaxLen: 71, Charset: hexSet},
	{Provider: "DigitalOcean", Description: "DigitalOcean OAuth token", Confidence: ConfidenceHigh, Prefix: "doo_v1_", MinLen: 71, MaxLen: 71, Charset: hexSet},
	{Provider: "DigitalOcean", Description: "DigitalOcean refresh token", Confidence: ConfidenceHigh, Prefix: "dor_v1_", MinLen: 71, MaxLen: 71, Charset: hexSet},

	// Shopify
	{Provider: "Shopify", Description: "Shopify admin API access token", Confidence: ConfidenceHigh, Prefix: "shpat_", MinLen: 38, MaxLen: 38, Charset: hexSet},
	{Provider: "Shopify", Description: "Shopify shared secret", Confidence: ConfidenceHigh, Prefix: "shpss_", MinLen: 38, MaxLen: 38, Charset: hexSet},
	{Provider: "Shopify", Description: "Shopify custom app access token", Confidence: ConfidenceHigh, Prefix: "shpca_", MinLen: 38, MaxLen: 38, Charset: hexSet},

	// Mailgun: four generic prefix bytes, heuristic length
	{Provider: "Mailgun", Description: "Mailgun API key", Confidence: ConfidenceMedium, Prefix: "key-", MinLen: 36, MaxLen: 36, Charset: alnum},

	// HashiCorp Vault
	{Provider: "HashiCorp Vault", Description: "Vault service token", Confidence: ConfidenceHigh, Prefix: "hvs.", MinLen: 90, MaxLen: 130, Charset: tokenSet},
	{Provider: "HashiCorp Vault", Description: "Vault batch token", Confidence: ConfidenceHigh, Prefix: "hvb.", MinLen: 50, MaxLen: 300, Charset: tokenSet},

	// Databricks
	{Provider: "Databricks", Description: "Databricks personal access token", Confidence: ConfidenceHigh, Prefix: "dapi", MinLen: 36, MaxLen: 38, Charset: hexSet},

	// Square
	{Provider: "Square", Description: "Square access token", Confidence: ConfidenceHigh, Prefix: "sq0atp-", MinLen: 29, MaxLen: 64, Charset: tokenSet},
	{Provider: "Square", Description: "Square application secret", Confidence: ConfidenceHigh, Prefix: "sq0csp-", MinLen: 50, MaxLen: 64, Charset: tokenSet},

	// Netlify
	{Provider: "Netlify", Description: "Netlify personal access token", Confidence: ConfidenceHigh, Prefix: "nfp_", MinLen: 40, MaxLen: 64, Charset: alnum},

	// Postman
	{Provider: "Postman", Description: "Postman API key", Confidence: ConfidenceHigh, Prefix: "PMAK-", MinLen: 59, MaxLen: 64, Charset: alnum + "-"},

	// Doppler
	{Provider: "Doppler", Description: "Doppler service token", Confidence: ConfidenceHigh, Prefix: "dp.ct.", MinLen: 40, MaxLen: 50, Charset: alnum},

	// Figma
	{Provider: "Figma", Description: "Figma personal access token", Confidence: ConfidenceHigh, Prefix: "figd_", MinLen: 40, MaxLen: 60, Charset: tokenSet},

	// Discord: only the MFA token shape carries a stable prefix
	{Provider: "Discord", Description: "Discord MFA token", Confidence: ConfidenceHigh, Prefix: "mfa.", MinLen: 60, MaxLen: 100, Charset: base64url},

	// Structural formats last: ambiguous by nature
	{Provider: "JWT", Description: "JSON Web Token", Confidence: ConfidenceMedium, Prefix: "eyJ", MinLen: 20, MaxLen: 0, Charset: base64url, Segments: 3},
	{Provider: "PEM", Description: "PEM-encoded private key block", Confidence: ConfidenceHigh, Prefix: "-----BEGIN ", MinLen: 30, MaxLen: 0},
}
