// Command sheetgraph runs the dependency-graph analysis engine over a
// spreadsheet workbook and prints the result document as JSON.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sheetgraph",
		Short: "Dependency-graph analysis for spreadsheet workbooks",
		Long: `sheetgraph tokenizes every formula in a workbook, builds its cell
dependency graph, and reports structural anomalies and cost drivers as a
single JSON document.`,
	}

	rootCmd.AddCommand(newAnalyzeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
