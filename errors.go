package arbiter

import (
	"errors"
	"fmt"
)

// ErrNoProvider is returned when the engine was constructed without a
// generative provider.
var ErrNoProvider = errors.New("no provider configured")

// ErrNoStore is returned when the engine was constructed without a
// knowledge store.
var ErrNoStore = errors.New("no store configured")

// ErrRunClosed is returned when a pass is appended to, or a terminal
// status applied to, a run that has already reached a terminal state.
var ErrRunClosed = errors.New("reasoning run already closed")

// RetrievalError indicates the knowledge store was unreachable or returned
// a malformed response during context assembly or risk evidence gathering.
// It is fatal to the run: the core never falls back to an empty context,
// because acting on no context is exactly the condition the risk model
// exists to catch. Retry policy, if any, belongs to the caller.
type RetrievalError struct {
	Workspace string
	Query     string
	Err       error
}

func (e *RetrievalError) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("retrieval failed for workspace %q query %q: %v", e.Workspace, e.Query, e.Err)
	}
	return fmt.Sprintf("retrieval failed for workspace %q: %v", e.Workspace, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// GenerationError indicates the generative service failed or returned an
// empty response at one of stages 2-5. It is fatal to the run: a
// validation stage that never ran must not produce a false "validated"
// decision.
type GenerationError struct {
	Stage Stage
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed at %s stage: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
