// =============================================================================
// Retail Invoice ETL - Main Entry Point
// =============================================================================
//
// USAGE:
//   invoice-etl run       - Run the full pipeline over the raw invoice file
//   invoice-etl detect    - Report abnormalities in the raw file only
//   invoice-etl version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Loader, detector, cleaner, aggregates, star schema, writers
//   - pkg/       : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/retail-invoice-etl/cmd"
)

func main() {
	cmd.Execute()
}
