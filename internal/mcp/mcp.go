// Package mcp provides the devloop MCP server, registering the workflow
// tools and publishing model instructions.
package mcp

import (
	"bytes"
	"context"
	_ "embed"
	"net/url"
	"sync"
	"time"

	"github.com/deixis/devloop"
	"github.com/deixis/devloop/internal/config"
	"github.com/deixis/devloop/internal/console"
	"github.com/deixis/devloop/internal/report"
	"github.com/deixis/devloop/internal/runner"
	"github.com/deixis/devloop/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	// mu serialises tool calls; tools run one at a time against the
	// workspace.
	mu     sync.Mutex
	cfg    *config.Config
	runner workflow.CommandRunner
	store  report.Store
	logger *zap.Logger

	// timeout, when non-zero, overrides the timeout of configs loaded
	// from client roots.
	timeout time.Duration
}

// NewServer creates an MCP server with all devloop tools registered.
func NewServer(cfg *config.Config, r workflow.CommandRunner, store report.Store, logger *zap.Logger, opts ...ServerOption) *mcp.Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{
		cfg:    cfg,
		runner: r,
		store:  store,
		logger: logger,
	}
	for _, o := range opts {
		o(h)
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "devloop", Version: devloop.Version}, mcpOpts)

	registerTaskTools(s, h)

	mcp.AddTool(s, &mcp.Tool{
		Name: "dev_doctor",
		Description: `Run the devcontainer smoke test: every configured tool and library check, without stopping on failure.

Returns the check transcript and the passed/attempted tally. Results are stored for drill-down via dev_inspect.`,
	}, h.doctorHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "dev_inspect",
		Description: `Drill into a recent dev_* run.

Without step, lists every step of the run with its status and command.
With step (e.g. "lint" or "DuckDB import"), returns that step's full captured stdout and stderr.`,
	}, h.inspectHandler)

	return s
}

// ServerOption configures the devloop MCP server.
type ServerOption func(*handler)

// WithTimeout keeps d as the per-command timeout when the workspace is
// reloaded from client roots. Zero keeps the config value.
func WithTimeout(d time.Duration) ServerOption {
	return func(h *handler) {
		h.timeout = d
	}
}

// engine returns a workflow engine whose user-facing output is captured
// in out. Callers hold h.mu.
func (h *handler) engine(out *bytes.Buffer) *workflow.Engine {
	return &workflow.Engine{
		Config:  h.cfg,
		Runner:  h.runner,
		Console: console.New(out, out),
		Logger:  h.logger,
	}
}

// updateWorkspaceFromRoots queries the client for MCP roots and updates the
// handler's config and runner if a valid root is returned.
// This is called during session initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil {
		return
	}
	if len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}

	h.useWorkspace(u.Path)
}

// useWorkspace reloads the config from dir and points the runner at the
// discovered project root.
func (h *handler) useWorkspace(dir string) {
	loaded, err := config.Load(dir)
	if err != nil {
		h.logger.Warn("ignoring client root", zap.String("root", dir), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.cfg = loaded.Config
	if r, ok := h.runner.(*runner.Runner); ok {
		r.Workspace = loaded.Root
		r.Timeout = loaded.Config.Timeout()
		if h.timeout > 0 {
			r.Timeout = h.timeout
		}
		r.MaxOutput = loaded.Config.MaxOutputBytes()
	}
	h.logger.Debug("workspace updated from roots", zap.String("root", loaded.Root))
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
