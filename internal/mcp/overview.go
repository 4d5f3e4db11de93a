package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type overviewParams struct{}

func (h *handler) overviewHandler(ctx context.Context, req *mcp.CallToolRequest, _ overviewParams) (*mcp.CallToolResult, any, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Makefile: %s\n", h.makefilePath)

	exposed := h.policy.Exposed()
	// Internal targets are reported as a count only; their names stay
	// out of agent-facing output.
	fmt.Fprintf(&b, "Targets: %d total, %d exposed as tools, %d internal\n",
		len(h.catalog.Targets), len(exposed), len(h.catalog.Hidden()))
	if len(h.catalog.Categories) > 0 {
		fmt.Fprintf(&b, "Categories: %s\n", strings.Join(h.catalog.Categories, ", "))
	}

	if len(exposed) > 0 {
		fmt.Fprintf(&b, "\nExposed tools:\n")
		for _, d := range exposed {
			fmt.Fprintf(&b, "  %s - %s\n", d.Name, d.Description)
		}
	} else {
		fmt.Fprintf(&b, "\nNo targets are exposed as tools.\n")
		fmt.Fprintf(&b, "Document targets with '## description' comments to expose them.\n")
	}

	fmt.Fprintf(&b, "\nEach tool accepts optional 'variables' and a 'timeout' in seconds (default %d).\n",
		int(h.timeout.Seconds()))

	return textResult(b.String()), nil, nil
}
