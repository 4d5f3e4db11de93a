// Command makehand serves the documented targets of a Makefile as MCP
// tools.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/makehand/makehand"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "makehand",
	Short: "MCP server that exposes Makefile targets as tools",
	Long: `Makehand parses the documented targets of a Makefile and serves each
one as a remotely invocable tool. Targets are documented with trailing
'## description' comments; '## Category: name' lines group them and
'@internal' or '@skip' markers hide them.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), makehand.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, or error (default info)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
