// =============================================================================
// TPA Claim Loader - Inspect Command
// =============================================================================
//
// COMMAND USAGE:
//   claimloader inspect <file>... [--sheet NAME]
//
// Shows what process would do with each file without touching the sink or
// moving anything: the TPA name and date taken from the file name, and for
// each sheet the detected header row and its column titles, or the reason
// the sheet would be flagged.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/tpa-claim-loader/internal/pipeline"
)

// inspectSheet restricts inspection to one sheet.
var inspectSheet string

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>...",
	Short: "Show the detected TPA name, date and header rows of files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mainConfig, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		// Warnings go to the console only; inspect is not a load.
		logger, err := newLogger(mainConfig, false)
		if err != nil {
			return err
		}
		defer logger.Close()

		processor, closeSink, err := newProcessor(cmd.Context(), mainConfig, logger, pipeline.Options{
			DryRun: true,
			Sheet:  inspectSheet,
		})
		if err != nil {
			return err
		}
		defer closeSink()

		out := cmd.OutOrStdout()
		for _, path := range args {
			printInspection(out, processor.ProcessFile(cmd.Context(), path))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(
		&inspectSheet,
		"sheet",
		"",
		"Inspect only the sheet with this name",
	)
}

func printInspection(w io.Writer, result pipeline.FileResult) {
	fmt.Fprintf(w, "%s\n", result.FilePath)
	fmt.Fprintf(w, "  TPA:   %s\n", result.Metadata.EntityName)
	fmt.Fprintf(w, "  Date:  %s", result.Metadata.Date)
	if result.Metadata.UsedFallback() {
		fmt.Fprintf(w, " (today; %s)", result.Metadata.Fallback)
	}
	fmt.Fprintln(w)

	if result.Err != nil {
		fmt.Fprintf(w, "  Error: %v\n\n", result.Err)
		return
	}

	for _, s := range result.Sheets {
		if s.Status.Failed() {
			fmt.Fprintf(w, "  Sheet %q: %s: %v\n", s.Sheet, s.Status, s.Err)
			continue
		}
		fmt.Fprintf(w, "  Sheet %q: header row %d, %d data rows -> %s\n", s.Sheet, s.HeaderRow, s.Rows, s.TableName)
		if s.Table != nil {
			fmt.Fprintf(w, "    columns: %s\n", strings.Join(s.Table.Columns, ", "))
		}
	}
	fmt.Fprintln(w)
}
