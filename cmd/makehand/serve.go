package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/makehand/makehand/internal/config"
	"github.com/makehand/makehand/internal/logging"
	"github.com/makehand/makehand/internal/makefile"
	handmcp "github.com/makehand/makehand/internal/mcp"
	"github.com/makehand/makehand/internal/runner"
)

var (
	serveHTTPAddr     string
	serveInstructions bool
	serveAllowed      []string
	serveTimeout      time.Duration
	serveMaxOutput    int
	serveWriteOutput  bool
	serveOutputDir    string
)

var serveCmd = &cobra.Command{
	Use:   "serve [makefile]",
	Short: "Run the MCP server",
	Long: `Serve the makefile's documented targets over the MCP stdio transport,
or over HTTP when --http is set. Without an argument the makefile is
taken from the MAKEHAND_MAKEFILE environment variable, the .makehand
file, or ./Makefile.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHTTPAddr, "http", "", "serve over HTTP on this address (e.g. :9090) instead of stdio")
	serveCmd.Flags().BoolVar(&serveInstructions, "instructions", false, "print the model instructions and exit")
	serveCmd.Flags().StringSliceVar(&serveAllowed, "allowed-targets", nil, "only expose these targets (default: every non-internal target)")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 0, "default execution timeout (e.g. 5m)")
	serveCmd.Flags().IntVar(&serveMaxOutput, "max-output-chars", 0, "truncate inline output beyond this many characters (0 = unlimited)")
	serveCmd.Flags().BoolVar(&serveWriteOutput, "write-output", false, "write the full output of every run to a log file")
	serveCmd.Flags().StringVar(&serveOutputDir, "output-dir", "", "base directory for full-output files (default: system temp dir)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveInstructions {
		fmt.Fprint(cmd.OutOrStdout(), handmcp.Instructions)
		return nil
	}

	cfg, makefilePath, err := loadServeConfig(cmd, args)
	if err != nil {
		return err
	}

	log := logging.New(cfg.LogLevel())

	parser := makefile.NewRegexParser(logging.Component(log, "parser"))
	run := runner.NewMake(logging.Component(log, "runner"))
	server, err := handmcp.NewServer(cfg, makefilePath, parser, run, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if serveHTTPAddr != "" {
		return serveHTTP(ctx, server, serveHTTPAddr, log)
	}
	log.Info().Str("makefile", makefilePath).Msg("serving on stdio")
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

// loadServeConfig resolves the makefile path and layers configuration:
// the .makehand file, then MAKEHAND_* environment variables, then flags.
// An explicit makefile argument wins over all of those, and the
// .makehand file is looked up next to it; otherwise configuration is
// discovered in the current directory.
func loadServeConfig(cmd *cobra.Command, args []string) (*config.Config, string, error) {
	var cfg *config.Config
	var makefilePath string

	if len(args) > 0 {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return nil, "", fmt.Errorf("resolving makefile path: %w", err)
		}
		makefilePath = abs
		cfg, err = config.Load(filepath.Dir(abs))
		if err != nil {
			return nil, "", err
		}
		cfg.ApplyEnv()
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("determining working directory: %w", err)
		}
		cfg, err = config.Load(cwd)
		if err != nil {
			return nil, "", err
		}
		cfg.ApplyEnv()
		makefilePath = cfg.Makefile()
		if !filepath.IsAbs(makefilePath) {
			makefilePath = filepath.Join(cwd, makefilePath)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("allowed-targets") {
		cfg.AllowedTargets = serveAllowed
	}
	if flags.Changed("timeout") {
		cfg.RawTimeout = serveTimeout.String()
	}
	if flags.Changed("max-output-chars") {
		cfg.RawMaxOutput = serveMaxOutput
	}
	if flags.Changed("write-output") {
		cfg.WriteOutput = serveWriteOutput
	}
	if flags.Changed("output-dir") {
		cfg.RawOutputDir = serveOutputDir
	}
	if cmd.Root().PersistentFlags().Changed("log-level") {
		cfg.RawLogLevel = logLevel
	}
	return cfg, makefilePath, nil
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string, log zerolog.Logger) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)
	httpServer := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()
	log.Info().Str("addr", addr).Msg("serving over HTTP")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
