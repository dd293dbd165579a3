// Package llm implements clients for the generative reasoning service used
// for disambiguation judgments and narrative report text.
package llm

import (
	"context"

	"github.com/jordanharb/moneytrail/internal/service"
)

// Client is the provider-facing reasoning interface. It matches
// service.Reasoner; the concrete clients live here so the rest of the
// pipeline depends only on the interface.
type Client interface {
	Complete(ctx context.Context, system, prompt string, tools []service.Tool) (string, error)
}

// Config holds provider settings for a reasoning client.
type Config struct {
	Provider          string
	APIKey            string
	Model             string
	Timeout           int // seconds; applied per request
	MaxTokens         int
	Temperature       float64
	RequestsPerMinute int
}
