package cmd

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "appforge",
	Short: "LLM-powered application generator",
	Long: `Appforge turns a natural-language application description into a
complete Next.js project: it plans the file set, generates every file
through category-specific strategies, validates the result and streams
progress while it works.

Available commands:
  generate - Plan and generate a project from a description
  serve    - Run the HTTP server with the SSE generation endpoint
  version  - Print version information`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
