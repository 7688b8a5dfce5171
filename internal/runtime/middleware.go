package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// Middleware enforces runtime limits for tool calls using the Controller.
// It bounds global concurrency, applies an operation timeout to each call,
// and tags every call with a request ID for log correlation.
type Middleware struct {
	ctrl   *Controller
	logger zerolog.Logger
}

// NewMiddleware constructs a Middleware bound to the provided Controller.
func NewMiddleware(ctrl *Controller, logger zerolog.Logger) *Middleware {
	return &Middleware{ctrl: ctrl, logger: logger}
}

// ToolMiddleware implements mcp-go's tool handler middleware interface.
// It acquires a request slot, applies a timeout, and guarantees release.
func (m *Middleware) ToolMiddleware(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := m.logger.With().
			Str("request_id", uuid.NewString()).
			Str("tool", req.Params.Name).
			Logger()
		ctx = logger.WithContext(ctx)

		acquireCtx := ctx
		if m.ctrl.limits.AcquireRequestTimeout > 0 {
			var cancel context.CancelFunc
			acquireCtx, cancel = context.WithTimeout(ctx, m.ctrl.limits.AcquireRequestTimeout)
			defer cancel()
		}

		if err := m.ctrl.AcquireRequest(acquireCtx); err != nil {
			logger.Warn().Int("max", m.ctrl.limits.MaxConcurrentRequests).Msg("request capacity saturated")
			msg := fmt.Sprintf("BUSY_RESOURCE: concurrent request limit reached (max=%d). Please retry shortly.", m.ctrl.limits.MaxConcurrentRequests)
			return mcp.NewToolResultError(msg), nil
		}
		defer m.ctrl.ReleaseRequest()

		callCtx := ctx
		cancel := func() {}
		if m.ctrl.limits.OperationTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, m.ctrl.limits.OperationTimeout)
		}
		defer cancel()

		start := time.Now()
		res, err := next(callCtx, req)
		logger.Debug().Dur("duration", time.Since(start)).Msg("tool call finished")

		// Prefer a tool-level timeout error when the deadline fired. The
		// handler may wrap the deadline error, so match with errors.Is.
		if errors.Is(err, context.DeadlineExceeded) || (callCtx.Err() == context.DeadlineExceeded && err == nil && res == nil) {
			logger.Warn().Msg("operation timed out")
			return mcp.NewToolResultError("TIMEOUT: operation exceeded configured time limit"), nil
		}

		return res, err
	}
}
