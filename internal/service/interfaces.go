// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jordanharb/moneytrail/internal/model"
)

// Params holds keyword parameters for a named remote procedure.
type Params map[string]any

// Page configures a paginated fetch of a remote procedure.
type Page struct {
	Limit  int
	Offset int
}

// Gateway defines the contract for invoking the external data service's
// named procedures. Results are row-shaped JSON decoded into the caller's
// destination slice.
type Gateway interface {
	// Call invokes proc with params and decodes the result rows into dest.
	Call(ctx context.Context, proc string, params Params, dest any) error
	// CallPaged invokes proc with params plus pagination controls and
	// returns the raw rows for that page.
	CallPaged(ctx context.Context, proc string, params Params, page Page) ([]json.RawMessage, error)
}

// ToolFunc executes a function-call directive issued by the reasoning
// service and returns its JSON-encodable result.
type ToolFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Tool declares a callable function to the reasoning service.
type Tool struct {
	Execute     ToolFunc
	InputSchema map[string]any
	Name        string
	Description string
}

// Reasoner defines the contract for the generative reasoning service.
// Complete submits a prompt plus a structured payload and returns free-form
// text; when tools are supplied the client executes any function-call
// directive and feeds the result back as a follow-up turn before returning.
type Reasoner interface {
	Complete(ctx context.Context, system, prompt string, tools []Tool) (string, error)
}

// TrackerStore defines the persistence surface for the incremental analysis
// tracker. The core is agnostic to whether this is a table, file, or
// key/value store.
type TrackerStore interface {
	GetRecord(ctx context.Context, personID, sessionID int64) (*model.AnalysisRecord, error)
	SaveRecord(ctx context.Context, record *model.AnalysisRecord) error
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
