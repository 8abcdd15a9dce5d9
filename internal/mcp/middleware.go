package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/exp/slices"

	"github.com/dmmcquay/othello-dataset/internal/logging"
	"github.com/dmmcquay/othello-dataset/internal/metrics"
)

// Middleware wraps MCP tool handlers with request logging and metrics.
type Middleware struct {
	logger  logging.ContextLogger
	metrics *metrics.Collector
}

// NewMiddleware creates a new middleware instance. metrics may be nil.
func NewMiddleware(logger logging.ContextLogger, metrics *metrics.Collector) *Middleware {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Middleware{
		logger:  logger,
		metrics: metrics,
	}
}

// ToolHandler is the function signature for MCP tool handlers.
type ToolHandler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// WrapTool wraps a tool handler with middleware functionality.
func (m *Middleware) WrapTool(toolName string, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		if _, ok := logging.RequestIDFromContext(ctx); !ok {
			ctx = logging.ContextWithRequestID(ctx, logging.GenerateRequestID())
		}
		logger := m.logger.WithContext(ctx).WithField("tool", toolName)

		// Transcript bodies can be large; log only which arguments were sent.
		logger.Info("Tool request received", "arguments", argumentNames(request))

		result, err := handler(ctx, request)
		elapsed := time.Since(start)

		status := "success"
		if err != nil {
			status = "error"
			logger.Error("Tool request failed", "error", err, "duration", elapsed)
		} else {
			logger.Info("Tool request completed", "duration", elapsed)
		}
		if m.metrics != nil {
			m.metrics.RecordToolCall(toolName, status, elapsed.Seconds())
		}

		return result, err
	}
}

func argumentNames(request mcp.CallToolRequest) []string {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil
	}
	names := make([]string, 0, len(args))
	for k := range args {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}
