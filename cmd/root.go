package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "smw_formatter",
	Short: "Service for consolidating SMW shipment manifest spreadsheets",
	Long: `A service that parses vendor SMW box-content manifests, reconciles
per-file box numbering into one global sequence, and emits a styled
consolidated workbook with pivot and summary sheets.`,
	Run: func(cmd *cobra.Command, args []string) {
		err := cmd.Help()
		if err != nil {
			log.Error().Err(err).Msg("Failed to display help")
		}
	},
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize()
}
