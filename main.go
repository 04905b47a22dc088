// =============================================================================
// TPA Claim Loader - Main Entry Point
// =============================================================================
//
// This is the main entry point for the claimloader CLI application.
// It delegates command execution to the cmd package.
//
// USAGE:
//   claimloader inspect <file>...  - Show TPA name, date and header rows
//   claimloader process            - Load all files in the input directory
//   claimloader version            - Display the application version
//
// ARCHITECTURE:
//   - cmd/                : CLI command definitions (Cobra)
//   - internal/filename   : TPA name and date from the file name
//   - internal/header     : header row detection
//   - internal/workbook   : .xlsx and .csv readers
//   - internal/sink       : Postgres and XML table sinks
//   - internal/pipeline   : per-file, per-sheet orchestration
//   - internal/config     : YAML and environment configuration
//   - internal/logging    : leveled console and file logging
//   - pkg/utils           : discovery, archival and summaries
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/tpa-claim-loader/cmd"
)

func main() {
	cmd.Execute()
}
