package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build information, set at link time.
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// Command returns the version sub-command
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("discogs-preview %s\n", Version)
			fmt.Printf("  commit:     %s\n", Commit)
			fmt.Printf("  built:      %s\n", BuildTime)
			fmt.Printf("  go version: %s\n", runtime.Version())
			fmt.Printf("  platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
