package cmd

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/CompassSecurity/keyscope/internal/cmd/common"
	"github.com/CompassSecurity/keyscope/pkg/batch"
	"github.com/CompassSecurity/keyscope/pkg/config"
	"github.com/CompassSecurity/keyscope/pkg/logging"
	"github.com/CompassSecurity/keyscope/pkg/report"
)

var batchFile string
var batchMaxEntrySize string

func NewBatchCmd() *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Check a file of credential candidates, one per line",
		Long: `Check every line of a plain-text file as a credential candidate.
Empty lines and lines starting with # are skipped, ANSI escapes are stripped
and duplicate findings are reported once. Each entry is wiped from memory as
soon as its checks finish.

The process exit code reflects the highest risk level found across all
entries: 3 critical, 2 high, 1 medium, 0 low or info.`,
		Example: `
# Check a dump of candidate values collected from CI logs
keyscope batch --file candidates.txt

# Local-only batch run with a larger per-line limit
keyscope batch --file candidates.txt --offline --max-entry-size 16KB
		`,
		Run: runBatch,
	}

	addCheckFlags(batchCmd)
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", "Input file, one credential candidate per line")
	batchCmd.Flags().StringVar(&batchMaxEntrySize, "max-entry-size", "4KB", "Maximum size of a single entry")
	_ = batchCmd.MarkFlagRequired("file")

	return batchCmd
}

func runBatch(cmd *cobra.Command, args []string) {
	maxEntrySize, err := config.ParseMaxEntrySize(batchMaxEntrySize)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid max entry size")
	}
	checkOptions.MaxEntrySize = maxEntrySize

	if err := checkOptions.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid options")
	}

	scanOpts, policyCfg, err := buildScanOptions(checkOptions)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed initializing batch options")
	}
	scanOpts.Policy = policyCfg

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reporter := report.New()
	logging.RegisterStatusHook(func() *zerolog.Event {
		emitted, skipped := reporter.Stats()
		return log.Info().Int("findings", emitted).Int("duplicates", skipped)
	})
	go logging.ShortcutListeners(nil)

	stats, err := batch.ProcessFile(ctx, batchFile, batch.Options{
		Scan:         scanOpts,
		MaxEntrySize: maxEntrySize,
	}, reporter)
	if err != nil {
		log.Fatal().Err(err).Msg("Batch run failed")
	}

	log.Info().
		Int("lines", stats.Lines).
		Int("checked", stats.Checked).
		Int("skipped", stats.Skipped).
		Int("errored", stats.Errored).
		Str("highestRisk", stats.HighestLevel.String()).
		Msg("Batch run finished")

	common.RestoreTerminalState()
	osExit(stats.HighestLevel.ExitCode())
}
