package unifiedllm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Registry holds the application's tools and executes model-issued tool
// calls with validation, bounded timeout, bounded concurrency, and panic
// recovery. The tool set is fixed before the first execution and read-only
// afterwards; it may be consulted concurrently without additional locking.
//
// Execution failures are data, not errors: every entry point returns
// ToolResult values with IsError set, so one bad tool never aborts a batch
// or crashes the caller.
type Registry struct {
	tools       map[string]Tool
	rawTools    map[string]Tool
	sem         chan struct{}
	opts        registryOptions
	done        chan struct{}
	running     sync.WaitGroup
	mu          sync.Mutex
	middlewares []Middleware
}

// NewRegistry creates a Registry with the given options.
func NewRegistry(opts ...RegistryOption) *Registry {
	o := registryOptions{
		timeout:        30 * time.Second,
		maxConcurrency: 10,
		recoverPanics:  true,
		maxErrorLen:    2048,
	}
	for _, opt := range opts {
		opt(&o)
	}
	var sem chan struct{}
	if o.maxConcurrency > 0 {
		sem = make(chan struct{}, o.maxConcurrency)
	}
	return &Registry{
		tools:    make(map[string]Tool),
		rawTools: make(map[string]Tool),
		sem:      sem,
		opts:     o,
		done:     make(chan struct{}),
	}
}

// Register adds a tool, applying any stored middlewares. A tool with the
// same name replaces the previous one. Safe for concurrent use.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Name()
	r.rawTools[name] = t
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		t = r.middlewares[i](t)
	}
	r.tools[name] = t
}

// Use stores the given middlewares and reapplies them from scratch to all
// registered tools (onion order: first middleware is outermost). Calling Use
// again replaces the chain, rewrapping from the raw tools.
func (r *Registry) Use(middlewares ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = middlewares
	for name, raw := range r.rawTools {
		t := raw
		for i := len(middlewares) - 1; i >= 0; i-- {
			t = middlewares[i](t)
		}
		r.tools[name] = t
	}
}

// Tools returns all registered tools sorted by name for deterministic order.
func (r *Registry) Tools() []Tool {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	out := make([]Tool, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name])
	}
	return out
}

// Tool returns the registered tool with the given name.
func (r *Registry) Tool(name string) (Tool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tools[name]
	return t, ok
}

// Schemas returns the provider-neutral schemas of all registered tools,
// sorted by name, ready for inclusion in a provider request.
func (r *Registry) Schemas() []ToolSchema {
	tools := r.Tools()
	out := make([]ToolSchema, 0, len(tools))
	for _, t := range tools {
		out = append(out, SchemaOf(t))
	}
	return out
}

// Execute runs one tool call and always returns a well-formed ToolResult.
// Validation failures, execution errors, panics, and timeouts are contained
// into the result with IsError set; the callable is not invoked when
// validation fails. With WithRecoverPanics(false) a tool panic is not
// contained and propagates to the caller.
func (r *Registry) Execute(ctx context.Context, call ToolCall) ToolResult {
	if errs := r.Validate(call); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		return r.errorResult(call, strings.Join(msgs, "; "))
	}

	r.mu.Lock()
	select {
	case <-r.done:
		r.mu.Unlock()
		return r.errorResult(call, "registry is shutting down")
	default:
	}
	tool := r.tools[call.Name]
	r.running.Add(1)
	r.mu.Unlock()
	defer r.running.Done()

	if err := r.acquireSemaphore(ctx); err != nil {
		return r.errorResult(call, describeError(call.Name, err))
	}
	defer r.releaseSemaphore()

	timeout := r.opts.timeout
	if tm, ok := tool.(interface{ Timeout() time.Duration }); ok && tm.Timeout() > 0 {
		timeout = tm.Timeout()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if r.opts.onBefore != nil {
		r.opts.onBefore(ctx, call)
	}
	start := time.Now()
	out, err := r.invoke(ctx, tool, call)

	var res ToolResult
	if err != nil {
		res = r.errorResult(call, describeError(call.Name, err))
	} else {
		res = ToolResult{ToolCallID: call.ID, Content: stringifyResult(out)}
	}
	if r.opts.onAfter != nil {
		r.opts.onAfter(ctx, call, res, time.Since(start))
	}
	return res
}

// invoke runs the tool. With recovery enabled a panic becomes a
// ToolExecutionError; with recovery disabled it is rethrown on the caller's
// goroutine so it propagates like an inline call would.
func (r *Registry) invoke(ctx context.Context, tool Tool, call ToolCall) ([]byte, error) {
	type invokeResult struct {
		out      []byte
		err      error
		panicked any
	}
	// Buffered so a late completion never blocks the abandoned goroutine.
	ch := make(chan invokeResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				if r.opts.recoverPanics {
					ch <- invokeResult{err: &ToolExecutionError{ToolName: call.Name, Err: &panicError{p: p}}}
					return
				}
				ch <- invokeResult{panicked: p}
			}
		}()
		out, err := tool.Execute(ctx, []byte(call.Arguments))
		ch <- invokeResult{out: out, err: err}
	}()
	select {
	case res := <-ch:
		if res.panicked != nil {
			panic(res.panicked)
		}
		return res.out, res.err
	case <-ctx.Done():
		// The callable is abandoned; its goroutine exits when it honors ctx.
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}

// ExecuteAll runs all calls and returns results in input order regardless of
// completion order. Calls are independent: they run in parallel (bounded by
// the registry semaphore) and no call observes another's result. It never
// returns an error; per-call failures are contained in the results.
func (r *Registry) ExecuteAll(ctx context.Context, calls []ToolCall) []ToolResult {
	results := make([]ToolResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = r.Execute(ctx, call)
		}()
	}
	wg.Wait()
	return results
}

// Shutdown closes the registry for new calls and waits for in-flight
// executions or ctx to cancel.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	select {
	case <-r.done:
		r.mu.Unlock()
		return nil
	default:
		close(r.done)
	}
	r.mu.Unlock()
	finished := make(chan struct{})
	go func() {
		r.running.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) acquireSemaphore(ctx context.Context) error {
	if r.sem == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case r.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) releaseSemaphore() {
	if r.sem != nil {
		<-r.sem
	}
}

func (r *Registry) errorResult(call ToolCall, msg string) ToolResult {
	if r.opts.maxErrorLen > 0 && len(msg) > r.opts.maxErrorLen {
		msg = msg[:r.opts.maxErrorLen]
	}
	return ToolResult{ToolCallID: call.ID, Content: "Error: " + msg, IsError: true}
}

func describeError(toolName string, err error) string {
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("tool %q timed out", toolName)
	case errors.Is(err, context.Canceled):
		return fmt.Sprintf("tool %q canceled", toolName)
	default:
		return err.Error()
	}
}

// stringifyResult turns a tool's JSON output into conversation text: a JSON
// string result is unquoted, anything else is passed through as JSON.
func stringifyResult(out []byte) string {
	var s string
	if err := json.Unmarshal(out, &s); err == nil {
		return s
	}
	return string(out)
}
