// Package mcp provides the Makehand MCP server, exposing each documented
// makefile target as an invocable tool.
package mcp

import (
	_ "embed"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/makehand/makehand"
	"github.com/makehand/makehand/internal/config"
	"github.com/makehand/makehand/internal/logging"
	"github.com/makehand/makehand/internal/makefile"
	"github.com/makehand/makehand/internal/policy"
	"github.com/makehand/makehand/internal/report"
	"github.com/makehand/makehand/internal/runner"
)

//go:embed instructions.md
var Instructions string

// overviewName is the reserved name of the catalog summary tool. A
// makefile target with the same name cannot be registered.
const overviewName = "make_overview"

// handler holds shared dependencies for all tool handlers.
type handler struct {
	makefilePath string
	timeout      time.Duration // applied when a call omits its own
	catalog      *makefile.Catalog
	policy       *policy.Policy
	runner       runner.Runner
	formatter    *report.Formatter
	log          zerolog.Logger
}

// NewServer parses the makefile and assembles the server around the
// catalog: one tool per exposed target plus the catalog overview tool.
// The parser and runner are the construction-time injection points;
// tests substitute a FixedParser and a DryRun for the real thing.
func NewServer(cfg *config.Config, makefilePath string, parser makefile.Parser, run runner.Runner, log zerolog.Logger) (*mcp.Server, error) {
	cat, err := parser.ParseFile(makefilePath)
	if err != nil {
		return nil, err
	}
	pol, err := policy.New(cat, cfg.AllowedTargets, cfg.Timeout(), logging.Component(log, "policy"))
	if err != nil {
		return nil, err
	}

	formatter := &report.Formatter{
		MaxChars: cfg.MaxOutputChars(),
		Log:      logging.Component(log, "report"),
	}
	if cfg.WriteOutput {
		formatter.Sink = report.NewDiskSink(cfg.OutputDir(), logging.Component(log, "report"))
	}

	h := &handler{
		makefilePath: cat.Source,
		timeout:      cfg.Timeout(),
		catalog:      cat,
		policy:       pol,
		runner:       run,
		formatter:    formatter,
		log:          logging.Component(log, "mcp"),
	}

	s := mcp.NewServer(&mcp.Implementation{Name: "makehand", Version: makehand.Version}, &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	})

	registered := make(map[string]bool)
	for _, d := range pol.Exposed() {
		if d.Name == overviewName {
			h.log.Warn().Str("target", d.Name).Msg("target collides with the overview tool and is not registered")
			continue
		}
		s.AddTool(&mcp.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema,
		}, makeTargetHandler(h, d.Name))
		registered[d.Name] = true
	}
	h.log.Info().Int("tools", len(registered)).Str("makefile", cat.Source).Msg("exposing targets as tools")

	mcp.AddTool(s, &mcp.Tool{
		Name: overviewName,
		Description: `Summarise this server's makefile: which targets are exposed as tools,
their descriptions, and how many are hidden as internal.`,
	}, h.overviewHandler)
	registered[overviewName] = true

	s.AddReceivingMiddleware(h.rejectUnregistered(registered))

	return s, nil
}

// textResult builds a text-only tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// errorResult builds a text tool result flagged as an error.
func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
