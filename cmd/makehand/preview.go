package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/makehand/makehand/internal/logging"
	"github.com/makehand/makehand/internal/makefile"
)

var previewJSON bool

var previewCmd = &cobra.Command{
	Use:   "preview [makefile]",
	Short: "Show the tools a makefile would expose, without serving",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPreview,
}

func init() {
	previewCmd.Flags().BoolVar(&previewJSON, "json", false, "print the parsed catalog as JSON")
}

func runPreview(cmd *cobra.Command, args []string) error {
	cat, err := parseCatalogArg(args)
	if err != nil {
		return err
	}
	if previewJSON {
		return printCatalogJSON(cmd, cat)
	}
	fmt.Fprint(cmd.OutOrStdout(), renderPreview(cat))
	return nil
}

// parseCatalogArg parses the makefile named by the first argument, or
// ./Makefile when none is given. Parser chatter is suppressed below
// warnings unless --log-level asks for more.
func parseCatalogArg(args []string) (*makefile.Catalog, error) {
	path := "Makefile"
	if len(args) > 0 {
		path = args[0]
	}
	level := "warn"
	if logLevel != "" {
		level = logLevel
	}
	parser := makefile.NewRegexParser(logging.Component(logging.New(level), "parser"))
	return parser.ParseFile(path)
}

func renderPreview(cat *makefile.Catalog) string {
	exposed := cat.Exposed()
	hidden := cat.Hidden()

	var b strings.Builder
	fmt.Fprintf(&b, "Makefile: %s\n", cat.Source)
	fmt.Fprintf(&b, "Total targets: %d\n", len(cat.Targets))
	fmt.Fprintf(&b, "Exposed as MCP tools: %d\n", len(exposed))
	fmt.Fprintf(&b, "Internal (hidden): %d\n", len(hidden))

	if len(exposed) == 0 {
		b.WriteString("\nNo targets would be exposed as MCP tools.\n")
		b.WriteString("Add '## description' comments to your Makefile targets.\n")
		return b.String()
	}

	groups := map[string][]*makefile.Target{}
	for _, t := range exposed {
		label := t.Category
		if label == "" {
			label = "Uncategorized"
		}
		groups[label] = append(groups[label], t)
	}
	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	rule := strings.Repeat("=", 70)
	for _, label := range labels {
		fmt.Fprintf(&b, "\n%s\n  %s\n%s\n", rule, label, rule)
		for _, t := range groups[label] {
			fmt.Fprintf(&b, "\n  %s\n    %s", t.Name, t.Description)
			if len(t.Dependencies) > 0 {
				fmt.Fprintf(&b, " (depends on: %s)", strings.Join(t.Dependencies, ", "))
			}
			b.WriteString("\n")
		}
	}

	if len(hidden) > 0 {
		fmt.Fprintf(&b, "\n%s\n  Internal Targets (NOT exposed)\n%s\n", rule, rule)
		for _, t := range hidden {
			fmt.Fprintf(&b, "  %s - %s\n", t.Name, t.Description)
		}
	}
	return b.String()
}

func printCatalogJSON(cmd *cobra.Command, cat *makefile.Catalog) error {
	out := struct {
		Makefile   string             `json:"makefile"`
		Categories []string           `json:"categories,omitempty"`
		Targets    []*makefile.Target `json:"targets"`
	}{
		Makefile:   cat.Source,
		Categories: cat.Categories,
		Targets:    []*makefile.Target{},
	}
	for _, name := range cat.Names() {
		t, _ := cat.Lookup(name)
		out.Targets = append(out.Targets, t)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
