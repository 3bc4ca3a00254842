package llm

import (
	"context"
	"fmt"
	"sync"
)

// FakeInvoker is a scripted Invoker for tests. Responses are returned in
// order; when the script is exhausted it fails rather than looping.
type FakeInvoker struct {
	mu        sync.Mutex
	responses []Response
	errs      []error
	calls     []Request
}

// NewFakeInvoker creates an empty fake. Queue responses with Script.
func NewFakeInvoker() *FakeInvoker {
	return &FakeInvoker{}
}

// Script appends a successful response to the queue.
func (f *FakeInvoker) Script(resp Response) *FakeInvoker {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	f.errs = append(f.errs, nil)
	return f
}

// ScriptText appends a successful response with the given content and
// nominal token counts.
func (f *FakeInvoker) ScriptText(content string) *FakeInvoker {
	return f.Script(Response{Content: content, TokensIn: 100, TokensOut: 50, Cost: 0.001})
}

// ScriptError appends a failing call to the queue.
func (f *FakeInvoker) ScriptError(err error) *FakeInvoker {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, Response{})
	f.errs = append(f.errs, err)
	return f
}

// Invoke returns the next scripted response, honoring ctx cancellation.
func (f *FakeInvoker) Invoke(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	idx := len(f.calls)
	f.calls = append(f.calls, req)

	if idx >= len(f.responses) {
		return nil, fmt.Errorf("fake invoker: unscripted call %d (model %s)", idx+1, req.Model)
	}
	if err := f.errs[idx]; err != nil {
		return nil, err
	}
	resp := f.responses[idx]
	return &resp, nil
}

// Calls returns a copy of all requests received so far.
func (f *FakeInvoker) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many invocations have been made.
func (f *FakeInvoker) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
