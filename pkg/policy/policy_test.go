package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/CompassSecurity/keyscope/pkg/secret"
	"github.com/CompassSecurity/keyscope/pkg/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSignal struct {
	id       string
	network  bool
	credKeys []string
}

func (f fakeSignal) ID() string                       { return f.id }
func (f fakeSignal) Category() signal.Category        { return signal.CategoryExposure }
func (f fakeSignal) RequiresNetwork() bool            { return f.network }
func (f fakeSignal) RequiredCredentialKeys() []string { return f.credKeys }
func (f fakeSignal) Check(ctx context.Context, input *secret.Buffer, cfg signal.Config) signal.Result {
	return signal.Result{ID: f.id}
}

func ids(signals []signal.Signal) []string {
	out := make([]string, 0, len(signals))
	for _, s := range signals {
		out = append(out, s.ID())
	}
	return out
}

func TestApplyNoPolicyRunsEverything(t *testing.T) {
	signals := []signal.Signal{
		fakeSignal{id: "a"},
		fakeSignal{id: "b", network: true},
	}

	runnable, _, excluded := Apply(signals, Config{})
	assert.Equal(t, []string{"a", "b"}, ids(runnable))
	assert.Empty(t, excluded)
}

func TestApplyDisableList(t *testing.T) {
	signals := []signal.Signal{fakeSignal{id: "a"}, fakeSignal{id: "b"}}

	runnable, _, excluded := Apply(signals, Config{Disabled: []string{"a"}})
	assert.Equal(t, []string{"b"}, ids(runnable))
	require.Len(t, excluded, 1)
	assert.Equal(t, "a", excluded[0].ID)
	assert.Equal(t, "disabled by policy", excluded[0].Reason)
}

func TestApplyAllowListIsExclusive(t *testing.T) {
	signals := []signal.Signal{fakeSignal{id: "a"}, fakeSignal{id: "b"}, fakeSignal{id: "c"}}

	runnable, _, excluded := Apply(signals, Config{Enabled: []string{"b"}})
	assert.Equal(t, []string{"b"}, ids(runnable))
	assert.Len(t, excluded, 2)
}

func TestDisableListBeatsAllowList(t *testing.T) {
	signals := []signal.Signal{fakeSignal{id: "a"}}

	runnable, _, excluded := Apply(signals, Config{Enabled: []string{"a"}, Disabled: []string{"a"}})
	assert.Empty(t, runnable)
	require.Len(t, excluded, 1)
	assert.Equal(t, "disabled by policy", excluded[0].Reason)
}

func TestOfflineExcludesNetworkSignals(t *testing.T) {
	signals := []signal.Signal{
		fakeSignal{id: "local"},
		fakeSignal{id: "remote", network: true},
	}

	runnable, _, excluded := Apply(signals, Config{Offline: true})
	assert.Equal(t, []string{"local"}, ids(runnable))
	require.Len(t, excluded, 1)
	assert.Equal(t, "offline mode", excluded[0].Reason)
}

func TestMissingCredentialExcludesSilently(t *testing.T) {
	signals := []signal.Signal{fakeSignal{id: "gated", credKeys: []string{"acme-api-key"}}}

	runnable, creds, excluded := Apply(signals, Config{})
	assert.Empty(t, runnable)
	assert.Empty(t, creds)
	require.Len(t, excluded, 1)
	assert.Contains(t, excluded[0].Reason, "acme-api-key")
}

func TestCredentialFromConfig(t *testing.T) {
	signals := []signal.Signal{fakeSignal{id: "gated", credKeys: []string{"acme-api-key"}}}

	runnable, creds, excluded := Apply(signals, Config{
		Credentials: map[string]string{"acme-api-key": "from-config"},
	})
	assert.Equal(t, []string{"gated"}, ids(runnable))
	assert.Equal(t, "from-config", creds["acme-api-key"])
	assert.Empty(t, excluded)
}

func TestCredentialEnvOverridesConfig(t *testing.T) {
	t.Setenv("KEYSCOPE_ACME_API_KEY", "from-env")

	signals := []signal.Signal{fakeSignal{id: "gated", credKeys: []string{"acme-api-key"}}}
	_, creds, _ := Apply(signals, Config{
		Credentials: map[string]string{"acme-api-key": "from-config"},
	})
	assert.Equal(t, "from-env", creds["acme-api-key"])
}

func TestLoadJSON5(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json5")
	content := `{
	// network lookups stay off on build machines
	offline: true,
	disabled: ["gitlab-token"],
	credentials: {
		"acme-api-key": "abc123",
	},
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Offline)
	assert.Equal(t, []string{"gitlab-token"}, cfg.Disabled)
	assert.Equal(t, "abc123", cfg.Credentials["acme-api-key"])
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json5"))
	assert.Error(t, err)

	cfg, err := Load("")
	assert.NoError(t, err)
	assert.False(t, cfg.Offline)
}
