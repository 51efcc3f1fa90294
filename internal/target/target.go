// Package target drives snapshot capture per rendering target: serially with
// local prerendering, or concurrently against a shared static package.
package target

import (
	"context"

	"github.com/lowsky/happo.io/internal/config"
	"github.com/lowsky/happo.io/internal/css"
	"github.com/lowsky/happo.io/internal/snap"
)

// Renderer is the DOM-rendering capability: it renders the example set for a
// target's viewport into snapshot payloads, each possibly flagged as an
// error with an attached cause.
type Renderer interface {
	Render(ctx context.Context, target config.Target, only string) ([]snap.Payload, error)
}

// ExecuteRequest is the contract handed to a remote target.
type ExecuteRequest struct {
	TargetName string
	Target     config.Target

	// AssetsLocation is the uploaded asset package (prerender mode) or the
	// shared static package (direct mode).
	AssetsLocation string

	CSSBlocks []css.Block

	// Payloads carry rendered markup in prerender mode; nil in direct mode
	// where the remote renders from the static package.
	Payloads []snap.Payload

	// Async requests an async-submission acknowledgment instead of a
	// synchronous comparison outcome.
	Async bool
}

// Remote is the comparison service capability for a target.
type Remote interface {
	Execute(ctx context.Context, req ExecuteRequest) (any, error)
}

// Result pairs a target name with its opaque execution outcome: a
// synchronous comparison result or an async-submission acknowledgment,
// depending on run mode.
type Result struct {
	Name  string `json:"name"`
	Value any    `json:"result"`
}
