package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "candlesync",
	Short: "candlesync ingests the candle weekly timetable into a queryable catalog",
	Long: `Candlesync can do one-off ingestions or act as a service
intermittently refreshing the catalog and serving an api to read it`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
