// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate is the Generation Port: it invokes a text-generation
// backend with a prompt and returns the raw response text. Stages own the
// interpretation of that text, including fallbacks for malformed
// structured output. Implements: prd010-generation (R1-R4);
//
//	docs/ARCHITECTURE § Generation Port.
package generate

import (
	"context"
	"fmt"
)

// Request is one generation call. Temperature and MaxTokens of zero fall
// back to the backend's configured defaults.
type Request struct {
	// System is the system prompt framing the call.
	System string

	// Prompt is the user prompt.
	Prompt string

	// Temperature is the sampling temperature for this call.
	Temperature float64

	// MaxTokens caps the response length for this call.
	MaxTokens int
}

// Backend abstracts the text-generation API so tests can supply a mock.
// Implementations present a blocking contract: Generate returns only when
// the response is complete or the call has failed. An error from Generate
// is fatal to the calling stage (there is no text to proceed with).
type Backend interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Script is a test backend that returns canned responses in order.
// Exported because stage tests and the end-to-end tests both script the
// generation side of a run.
type Script struct {
	Responses []string
	Calls     []Request
	next      int
}

// Generate returns the next scripted response, or an error when the
// script is exhausted.
func (s *Script) Generate(_ context.Context, req Request) (string, error) {
	s.Calls = append(s.Calls, req)
	if s.next >= len(s.Responses) {
		return "", fmt.Errorf("scripted backend exhausted after %d calls", s.next)
	}
	resp := s.Responses[s.next]
	s.next++
	return resp, nil
}
