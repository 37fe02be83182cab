// Package policy decides which signals are allowed to run for a given
// invocation. Rules apply in a fixed order: disable-list, allow-list, offline
// mode, required credentials. The policy is evaluated before any external
// signal issues a network call.
package policy

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/CompassSecurity/keyscope/pkg/signal"
	"github.com/rs/zerolog/log"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// credentialEnvPrefix maps credential keys to environment variables, e.g. the
// key "hibp-api-key" resolves from KEYSCOPE_HIBP_API_KEY.
const credentialEnvPrefix = "KEYSCOPE_"

// Config is the declarative runnability policy, loadable from a JSON5 file.
type Config struct {
	// Offline disables every network-requiring signal and the breach check.
	Offline bool `json:"offline"`
	// Enabled, when non-empty, is an exclusive allow-list of signal IDs.
	Enabled []string `json:"enabled"`
	// Disabled subtracts signal IDs before the allow-list applies.
	Disabled []string `json:"disabled"`
	// Credentials holds credential keys for signals that require them.
	// Environment variables take precedence at resolution time.
	Credentials map[string]string `json:"credentials"`
}

// Load reads a JSON5 policy file. A missing path yields the zero config.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("policy: reading config file: %w", err)
	}
	if err := json5.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("policy: parsing config file: %w", err)
	}
	return cfg, nil
}

// Exclusion records why a signal was not run.
type Exclusion struct {
	ID     string
	Reason string
}

// Apply filters signals through the policy rules in order and resolves the
// credentials of every runnable signal. Missing credentials exclude a signal
// silently; the exclusion list exists for callers that want to explain.
func Apply(signals []signal.Signal, cfg Config) (runnable []signal.Signal, credentials map[string]string, excluded []Exclusion) {
	credentials = map[string]string{}

	for _, s := range signals {
		if slices.Contains(cfg.Disabled, s.ID()) {
			excluded = append(excluded, Exclusion{ID: s.ID(), Reason: "disabled by policy"})
			continue
		}

		if len(cfg.Enabled) > 0 && !slices.Contains(cfg.Enabled, s.ID()) {
			excluded = append(excluded, Exclusion{ID: s.ID(), Reason: "not on allow-list"})
			continue
		}

		if cfg.Offline && s.RequiresNetwork() {
			excluded = append(excluded, Exclusion{ID: s.ID(), Reason: "offline mode"})
			continue
		}

		missing := false
		for _, key := range s.RequiredCredentialKeys() {
			value, ok := resolveCredential(key, cfg.Credentials)
			if !ok {
				log.Debug().Str("signal", s.ID()).Str("credential", key).Msg("Signal excluded, credential not configured")
				excluded = append(excluded, Exclusion{ID: s.ID(), Reason: "missing credential " + key})
				missing = true
				break
			}
			credentials[key] = value
		}
		if missing {
			continue
		}

		runnable = append(runnable, s)
	}

	return runnable, credentials, excluded
}

// resolveCredential checks the environment first, then the config file.
func resolveCredential(key string, configured map[string]string) (string, bool) {
	envKey := credentialEnvPrefix + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
	if v, ok := os.LookupEnv(envKey); ok && v != "" {
		return v, true
	}
	if v, ok := configured[key]; ok && v != "" {
		return v, true
	}
	return "", false
}
