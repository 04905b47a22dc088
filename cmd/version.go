// =============================================================================
// TPA Claim Loader - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   claimloader version
//
// OUTPUT:
//   TPA Claim Loader
//   Version:    1.0.0
//   Build Date: 2024-08-15
//   Go Version: go1.24.11
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// These variables are set at build time using ldflags:
//   go build -ldflags "-X 'github.com/ginjaninja78/tpa-claim-loader/cmd.Version=1.0.0' \
//                      -X 'github.com/ginjaninja78/tpa-claim-loader/cmd.BuildDate=2024-08-15'"

// Version is the application version.
var Version = "1.0.0"

// BuildDate is the date the application was built.
var BuildDate = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Long:  `Display the application version, build date, and Go runtime version.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "TPA Claim Loader")
		fmt.Fprintf(out, "Version:    %s\n", Version)
		fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
		fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
