// =============================================================================
// TPA Claim Loader - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (claimloader)
//   ├── inspectCmd (claimloader inspect)
//   ├── processCmd (claimloader process)
//   └── versionCmd (claimloader version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --env-file, --verbose)
//   2. Loading .env secrets and the YAML configuration
//   3. Setting up logging and the configured sink
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/tpa-claim-loader/internal/config"
	"github.com/ginjaninja78/tpa-claim-loader/internal/logging"
	"github.com/ginjaninja78/tpa-claim-loader/internal/sink"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// envFile holds the path to an optional .env file with database secrets.
var envFile string

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "claimloader",
	Short: "TPA Claim Loader - Load third-party administrator claim files into the claims database",
	Long: `TPA Claim Loader reads Excel and CSV claim files uploaded by third-party
administrators and loads every sheet into a database table.

TPA exports rarely start at row one: titles, run dates and blank rows come
first. For each sheet the loader finds the first row in the top-left sample
window whose cells are all filled in and uses it as the header. Sheets where
no such row exists are flagged and skipped.

The TPA name and file date come from the file name, e.g.
"John Eastern 08.15.2024.xlsx" -> TPA "John Eastern", date 08-15-2024.
Files without a usable date get today's date and a warning.

Example Usage:
  claimloader inspect "John Eastern 08.15.2024.xlsx"   # Show detected headers
  claimloader process                                  # Load the input directory
  claimloader process --dry-run                        # Read everything, load nothing
  claimloader process --file ./input/acme.xlsx --sheet Claims`,

	SilenceUsage:  true,
	SilenceErrors: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().StringVar(
		&envFile,
		"env-file",
		".env",
		"Path to a .env file with CLAIMLOADER_* variables (ignored if missing)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// loadConfig loads the .env file and the main configuration. An explicitly
// passed --env-file must exist.
func loadConfig(cmd *cobra.Command) (*config.MainConfig, error) {
	required := cmd.Flags().Changed("env-file")
	if err := config.LoadEnvFile(envFile, required); err != nil {
		return nil, err
	}

	mainConfig, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}
	if verbose {
		mainConfig.LogLevel = "debug"
	}
	return mainConfig, nil
}

// newLogger builds the logger described by the configuration. Callers must
// Close it.
func newLogger(mainConfig *config.MainConfig, withFile bool) (*logging.StdLogger, error) {
	level, err := logging.ParseLevel(mainConfig.LogLevel)
	if err != nil {
		return nil, err
	}
	logFile := ""
	if withFile {
		logFile = mainConfig.LogFile
	}
	return logging.New(level, logFile)
}

// openSink connects the sink named by kind.
func openSink(ctx context.Context, mainConfig *config.MainConfig, kind string) (sink.Sink, error) {
	switch kind {
	case sink.KindPostgres:
		s, err := sink.OpenPostgres(ctx, mainConfig.Database.Driver, mainConfig.Database.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case sink.KindXML:
		return sink.NewXMLSink(mainConfig.OutputDir), nil
	default:
		return nil, fmt.Errorf("unknown sink %q (want %q or %q)", kind, sink.KindXML, sink.KindPostgres)
	}
}
