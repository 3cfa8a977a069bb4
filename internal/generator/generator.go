// Package generator defines the content-generation collaborator contract.
// The pipeline never generates text itself; it calls a Generator for the
// initial draft fields and for bounded auto-fix rewrites.
package generator

import (
	"context"
)

// Request carries the inputs for a draft generation call.
type Request struct {
	ClientID    string
	Platform    string
	ContentType string
	Prompt      string

	// Guidance accumulates prior rejection guidance for regenerations.
	Guidance []string
}

// Result is the generated draft content.
type Result struct {
	Copy     string
	ImageRef string
}

// Generator produces draft copy and repairs it under gate guidance.
type Generator interface {
	// Generate produces new draft content for the request.
	Generate(ctx context.Context, req Request) (Result, error)

	// Autofix rewrites the given copy to address a gate's failure reason.
	// Called at most once per gate per pipeline run.
	Autofix(ctx context.Context, copyText, failureReason string) (string, error)
}
