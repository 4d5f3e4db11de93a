package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/makehand/makehand/internal/makefile"
	"github.com/makehand/makehand/internal/runner"
)

// targetArgs are the arguments accepted by every target tool.
type targetArgs struct {
	Variables map[string]string `json:"variables"`
	Timeout   int               `json:"timeout"` // seconds
}

// makeTargetHandler returns a ToolHandler that executes one target. The
// target name is captured rather than read from the request so a tool
// can only ever run the target it was registered for.
func makeTargetHandler(h *handler, target string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return h.callTarget(ctx, target, req.Params.Arguments)
	}
}

// rejectUnregistered intercepts tools/call for names that have no
// registered tool and answers with the policy's rejection in-band,
// instead of the bare unknown-tool protocol error. Internal and
// non-allowlisted targets are never registered, so this is the only
// path on which a caller learns why such a target is blocked.
func (h *handler) rejectUnregistered(registered map[string]bool) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != "tools/call" {
				return next(ctx, method, req)
			}
			call, ok := req.(*mcp.CallToolRequest)
			if !ok || registered[call.Params.Name] {
				return next(ctx, method, req)
			}
			if _, err := h.policy.Authorize(call.Params.Name); err != nil {
				return errorResult("Error: " + err.Error()), nil
			}
			return next(ctx, method, req)
		}
	}
}

func (h *handler) callTarget(ctx context.Context, target string, raw json.RawMessage) (*mcp.CallToolResult, error) {
	var args targetArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return errorResult(fmt.Sprintf("Error: invalid arguments: %v", err)), nil
		}
	}

	// Re-check the policy at call time; the registration-time filter
	// alone would trust the client to only call listed tools.
	if _, err := h.policy.Authorize(target); err != nil {
		return errorResult("Error: " + err.Error()), nil
	}

	timeout := h.timeout
	if args.Timeout != 0 {
		timeout = time.Duration(args.Timeout) * time.Second
	}

	h.log.Info().
		Str("target", target).
		Dur("timeout", timeout).
		Int("variables", len(args.Variables)).
		Msg("executing target")

	res, err := h.runner.Run(ctx, runner.Request{
		Target:    target,
		Makefile:  h.makefilePath,
		Variables: args.Variables,
		Timeout:   timeout,
	})
	if err != nil {
		return h.runError(target, err), nil
	}
	return textResult(h.formatter.Render(res)), nil
}

// runError maps an execution error to the text returned to the caller.
// Cancellation is reported as plain text since the caller asked for it;
// everything else is flagged as an error.
func (h *handler) runError(target string, err error) *mcp.CallToolResult {
	var notFound *makefile.NotFoundError
	var invalid *runner.InvalidRequestError
	switch {
	case errors.Is(err, context.Canceled):
		h.log.Info().Str("target", target).Msg("call cancelled")
		return textResult(fmt.Sprintf("Target %q was cancelled before completion.", target))
	case errors.As(err, &notFound):
		h.log.Error().Err(err).Str("target", target).Msg("makefile missing at execution time")
		return errorResult(fmt.Sprintf("Error: %s. Check that the Makefile exists and is accessible.", err))
	case errors.As(err, &invalid):
		h.log.Warn().Err(err).Str("target", target).Msg("execution request rejected")
		return errorResult(fmt.Sprintf("Execution failed: %s. Check server logs for details.", err))
	default:
		h.log.Error().Err(err).Str("target", target).Msg("execution failed")
		return errorResult(fmt.Sprintf("Execution failed: %s. Check server logs for details.", err))
	}
}
