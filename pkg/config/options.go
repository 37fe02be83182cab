// Package config provides shared configuration types and validation helpers
// for keyscope commands.
package config

import "time"

// CheckOptions contains configuration fields shared by the single-credential
// and batch check commands.
type CheckOptions struct {
	// Offline disables every network-backed check
	Offline bool
	// BreachBaseURL is the k-anonymity range endpoint
	BreachBaseURL string
	// PolicyPath is an optional JSON5 policy file for signal selection
	PolicyPath string
	// RulesPath is an optional YAML file overriding the built-in signature table
	RulesPath string
	// MaxCheckGoRoutines controls the number of concurrent signal checks
	MaxCheckGoRoutines int
	// MaxEntrySize is the maximum size of a single batch entry (in bytes)
	MaxEntrySize int64
	// CheckTimeout is the maximum time to wait for all checks on one credential
	CheckTimeout time.Duration
}

// DefaultCheckOptions returns sensible default values for check options.
func DefaultCheckOptions() CheckOptions {
	return CheckOptions{
		Offline:            false,
		BreachBaseURL:      "https://api.pwnedpasswords.com",
		MaxCheckGoRoutines: 4,
		MaxEntrySize:       4 * 1024, // 4KB, a credential is a line not a file
		CheckTimeout:       30 * time.Second,
	}
}
