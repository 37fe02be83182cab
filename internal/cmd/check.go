package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/CompassSecurity/keyscope/internal/cmd/common"
	"github.com/CompassSecurity/keyscope/pkg/breach"
	"github.com/CompassSecurity/keyscope/pkg/config"
	"github.com/CompassSecurity/keyscope/pkg/policy"
	"github.com/CompassSecurity/keyscope/pkg/provider"
	"github.com/CompassSecurity/keyscope/pkg/report"
	"github.com/CompassSecurity/keyscope/pkg/scan"
	"github.com/CompassSecurity/keyscope/pkg/secret"
	"github.com/CompassSecurity/keyscope/pkg/signal"
)

// osExit is swapped in tests.
var osExit = os.Exit

var checkOptions = config.DefaultCheckOptions()
var checkUseStdin bool
var checkValue string

func NewCheckCmd() *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Check a single credential",
		Long: `Check one credential: identify the issuing provider, measure entropy,
query the k-anonymity breach corpus and run the configured signals.

The credential is read from an interactive prompt by default so it stays out
of shell history. The process exit code reflects the final risk level:
3 critical, 2 high, 1 medium, 0 low or info.`,
		Example: `
# Prompt for the credential (recommended)
keyscope check

# Read the credential from a pipe
printenv MY_TOKEN | keyscope check --stdin

# Local-only checks, no network requests
keyscope check --offline

# Use a custom signature table and policy file
keyscope check --rules rules.yml --policy policy.json5
		`,
		Run: runCheck,
	}

	addCheckFlags(checkCmd)
	checkCmd.Flags().BoolVar(&checkUseStdin, "stdin", false, "Read the credential from stdin instead of prompting")
	checkCmd.Flags().StringVar(&checkValue, "value", "", "Credential value (avoid: lands in shell history, prefer the prompt or --stdin)")

	return checkCmd
}

func addCheckFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&checkOptions.Offline, "offline", false, "Skip every network-backed check")
	cmd.Flags().StringVar(&checkOptions.BreachBaseURL, "breach-url", checkOptions.BreachBaseURL, "k-anonymity range API base URL")
	cmd.Flags().StringVar(&checkOptions.PolicyPath, "policy", "", "JSON5 policy file controlling which signals run")
	cmd.Flags().StringVar(&checkOptions.RulesPath, "rules", "", "YAML file overriding the built-in signature table")
	cmd.Flags().IntVar(&checkOptions.MaxCheckGoRoutines, "threads", checkOptions.MaxCheckGoRoutines, "Number of concurrent signal checks")
	cmd.Flags().DurationVar(&checkOptions.CheckTimeout, "timeout", checkOptions.CheckTimeout, "Maximum time for all checks on one credential")
}

func runCheck(cmd *cobra.Command, args []string) {
	if err := checkOptions.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid options")
	}

	scanOpts, policyCfg, err := buildScanOptions(checkOptions)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed initializing check options")
	}
	scanOpts.Policy = policyCfg

	raw, err := readCredential()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed reading credential")
	}
	if len(raw) == 0 {
		log.Fatal().Msg("No credential provided")
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkOptions.CheckTimeout)
	defer cancel()

	level := 0
	reporter := report.New()
	err = secret.Do(raw, func(buf *secret.Buffer) error {
		outcome, err := scan.Run(ctx, buf, scanOpts)
		if err != nil {
			return err
		}
		for _, exclusion := range outcome.Excluded {
			log.Debug().Str("signal", exclusion.ID).Str("reason", exclusion.Reason).Msg("Signal not run")
		}
		reporter.Emit(outcome.Finding(), outcome.Verdict.Level)
		level = outcome.Verdict.Level.ExitCode()
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Check failed")
	}

	common.RestoreTerminalState()
	osExit(level)
}

// buildScanOptions resolves the signature table, policy and breach client
// shared by the check and batch commands.
func buildScanOptions(opts config.CheckOptions) (scan.Options, policy.Config, error) {
	table := provider.Default()
	if opts.RulesPath != "" {
		loaded, err := provider.LoadTable(opts.RulesPath)
		if err != nil {
			return scan.Options{}, policy.Config{}, fmt.Errorf("failed loading signature table: %w", err)
		}
		table = loaded
	}

	policyCfg, err := policy.Load(opts.PolicyPath)
	if err != nil {
		return scan.Options{}, policy.Config{}, fmt.Errorf("failed loading policy: %w", err)
	}
	if opts.Offline {
		policyCfg.Offline = true
	}

	scanOpts := scan.Options{
		Table:              table,
		Signals:            signal.Default(),
		MaxCheckGoRoutines: opts.MaxCheckGoRoutines,
	}
	if !policyCfg.Offline {
		scanOpts.Breach = breach.NewClient(opts.BreachBaseURL)
	}

	return scanOpts, policyCfg, nil
}

func readCredential() ([]byte, error) {
	if checkValue != "" {
		log.Warn().Msg("Credential passed via --value, consider the prompt or --stdin to keep it out of shell history")
		return []byte(checkValue), nil
	}

	stdinFd := int(os.Stdin.Fd())
	if checkUseStdin || !term.IsTerminal(stdinFd) {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, err
		}
		return bytes.TrimSpace(raw), nil
	}

	fmt.Fprint(os.Stderr, "Credential: ")
	raw, err := term.ReadPassword(stdinFd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return bytes.TrimSpace(raw), nil
}
