package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/CompassSecurity/keyscope/internal/cmd/common"
)

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			log.Info().
				Str("version", common.Version).
				Str("commit", common.Commit).
				Str("date", common.Date).
				Msg("keyscope")
		},
	}
}
