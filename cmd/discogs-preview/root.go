package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Eric-A99/discogs-preview/pkg/config"
	"github.com/Eric-A99/discogs-preview/pkg/man"
	"github.com/Eric-A99/discogs-preview/pkg/version"
)

var conf config.Config
var debug bool

var rootCmd = &cobra.Command{
	Use:              "discogs-preview",
	Short:            "Vinyl marketplace price lookup tool",
	Long:             `discogs-preview resolves a song title or artist/track query to matching vinyl releases on Discogs and reports marketplace pricing statistics (listing count, lowest price, median, condition-graded estimates).`,
	Args:             cobra.ExactArgs(0),
	PersistentPreRun: rootCmdPreRun,
	Run:              rootCmdRun,
}

func rootCmdRun(cmd *cobra.Command, args []string) {
	// Show help when no subcommand is provided
	if err := cmd.Help(); err != nil {
		log.WithError(err).Error("Failed to show help")
	}
}

func rootCmdPreRun(cmd *cobra.Command, args []string) {
	debug, _ = cmd.Flags().GetBool("debug")
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	// Load configuration with debug flag
	conf = config.GetEnvVars(debug)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}

func init() {
	// create rootCmd-level flags
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug-level logging")

	// add sub-commands
	rootCmd.AddCommand(
		man.NewManCmd(),
		version.Command(),
	)
}
