package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [makefile]",
	Short: "List the tool names a makefile would expose",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	cat, err := parseCatalogArg(args)
	if err != nil {
		return err
	}
	for _, t := range cat.Exposed() {
		fmt.Fprintln(cmd.OutOrStdout(), t.Name)
	}
	return nil
}
