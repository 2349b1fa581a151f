package unifiedllm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Middleware wraps a Tool to add behavior around Execute. Middlewares
// compose: the first one passed to Registry.Use is outermost.
type Middleware func(Tool) Tool

// wrappedTool replaces Execute while forwarding everything else, including
// the optional argument-validation and timeout capabilities, to the inner
// tool so wrapping does not strip them.
type wrappedTool struct {
	Tool
	execute func(ctx context.Context, argsJSON []byte) ([]byte, error)
}

func (w *wrappedTool) Execute(ctx context.Context, argsJSON []byte) ([]byte, error) {
	return w.execute(ctx, argsJSON)
}

func (w *wrappedTool) ValidateArgs(argsJSON []byte) error {
	if v, ok := w.Tool.(argValidator); ok {
		return v.ValidateArgs(argsJSON)
	}
	return nil
}

func (w *wrappedTool) Timeout() time.Duration {
	if t, ok := w.Tool.(interface{ Timeout() time.Duration }); ok {
		return t.Timeout()
	}
	return 0
}

// WithLogging logs every execution with duration and outcome.
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Tool) Tool {
		return &wrappedTool{Tool: next, execute: func(ctx context.Context, argsJSON []byte) ([]byte, error) {
			start := time.Now()
			logger.DebugContext(ctx, "tool execution started", "tool", next.Name())
			out, err := next.Execute(ctx, argsJSON)
			if err != nil {
				logger.ErrorContext(ctx, "tool execution failed",
					"tool", next.Name(),
					"duration", time.Since(start),
					"error", err)
				return nil, err
			}
			logger.DebugContext(ctx, "tool execution finished",
				"tool", next.Name(),
				"duration", time.Since(start))
			return out, nil
		}}
	}
}

// WithRecovery converts a panic inside the tool into a ToolExecutionError.
// The Registry already recovers panics by default; this middleware is for
// tools used directly, outside a registry.
func WithRecovery() Middleware {
	return func(next Tool) Tool {
		return &wrappedTool{Tool: next, execute: func(ctx context.Context, argsJSON []byte) (out []byte, err error) {
			defer func() {
				if p := recover(); p != nil {
					out = nil
					err = &ToolExecutionError{ToolName: next.Name(), Err: &panicError{p: p}}
				}
			}()
			return next.Execute(ctx, argsJSON)
		}}
	}
}

// WithTimeoutMiddleware enforces a deadline on each execution.
func WithTimeoutMiddleware(d time.Duration) Middleware {
	return func(next Tool) Tool {
		return &wrappedTool{Tool: next, execute: func(ctx context.Context, argsJSON []byte) ([]byte, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			out, err := next.Execute(ctx, argsJSON)
			if err != nil && ctx.Err() == context.DeadlineExceeded {
				return nil, fmt.Errorf("tool %q: %w", next.Name(), ErrTimeout)
			}
			return out, err
		}}
	}
}

// WithTracing records a span per execution using the given tracer, or the
// global tracer provider when tracer is nil.
func WithTracing(tracer trace.Tracer) Middleware {
	if tracer == nil {
		tracer = otel.Tracer("unifiedllm")
	}
	return func(next Tool) Tool {
		return &wrappedTool{Tool: next, execute: func(ctx context.Context, argsJSON []byte) ([]byte, error) {
			ctx, span := tracer.Start(ctx, "tool.execute",
				trace.WithAttributes(attribute.String("tool.name", next.Name())))
			defer span.End()
			out, err := next.Execute(ctx, argsJSON)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			span.SetStatus(codes.Ok, "")
			return out, nil
		}}
	}
}
