package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/CompassSecurity/keyscope/pkg/provider"
)

var providersRulesPath string

func NewProvidersCmd() *cobra.Command {
	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List the known credential signatures",
		Run:   listProviders,
	}

	providersCmd.Flags().StringVar(&providersRulesPath, "rules", "", "YAML file overriding the built-in signature table")

	return providersCmd
}

func listProviders(cmd *cobra.Command, args []string) {
	table := provider.Default()
	if providersRulesPath != "" {
		loaded, err := provider.LoadTable(providersRulesPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed loading signature table")
		}
		table = loaded
	}

	for _, sig := range table.Signatures() {
		log.Info().
			Str("provider", sig.Provider).
			Str("prefix", sig.Prefix).
			Str("confidence", string(sig.Confidence)).
			Msg(sig.Description)
	}
	log.Info().Int("signatures", table.Len()).Msg("Signature table listed")
}
