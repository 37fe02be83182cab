package signal

import (
	"bytes"
	"context"

	"github.com/CompassSecurity/keyscope/pkg/secret"
)

// wellKnownValues are placeholder and dictionary values that are effectively
// public. Matching one is an exposure finding without any network call.
var wellKnownValues = []string{
	"password",
	"password1",
	"passw0rd",
	"p@ssw0rd",
	"123456",
	"12345678",
	"123456789",
	"qwerty",
	"letmein",
	"welcome",
	"admin",
	"root",
	"changeme",
	"change_me",
	"secret",
	"default",
	"test",
	"example",
	"placeholder",
	"your-api-key",
	"your_api_key_here",
	"xxxxxxxx",
	"todo",
	"dummy",
}

// Wordlist flags secrets whose value is a well-known placeholder. Local only.
type Wordlist struct {
	values [][]byte
}

// NewWordlist builds the check over the built-in value list.
func NewWordlist() *Wordlist {
	values := make([][]byte, len(wellKnownValues))
	for i, v := range wellKnownValues {
		values[i] = []byte(v)
	}
	return &Wordlist{values: values}
}

func (w *Wordlist) ID() string                       { return "wordlist" }
func (w *Wordlist) Category() Category               { return CategoryExposure }
func (w *Wordlist) RequiresNetwork() bool            { return false }
func (w *Wordlist) RequiredCredentialKeys() []string { return nil }

func (w *Wordlist) Check(ctx context.Context, input *secret.Buffer, cfg Config) Result {
	res := Result{ID: w.ID(), Category: w.Category(), Severity: SeverityMedium}

	raw, err := input.Bytes()
	if err != nil {
		res.Err = err
		return res
	}

	token := bytes.ToLower(bytes.TrimSpace(raw))
	defer secret.Wipe(token)

	// Full scan, no early break: comparison time stays independent of where
	// a match sits in the list.
	matched := false
	for _, v := range w.values {
		if bytes.Equal(token, v) {
			matched = true
		}
	}

	if matched {
		res.Found = true
		res.Details = "value appears in a common placeholder wordlist"
	}
	return res
}
