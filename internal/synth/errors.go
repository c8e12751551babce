// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import "fmt"

// EmptyInputError reports that synthesis was requested for an article with
// no methods text. Callers detect it to print a friendly message instead of
// a stack of wrapped errors.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string {
	return "no methods text to synthesize a protocol from"
}

// SynthesisError reports a failed generation call or an unusable response.
type SynthesisError struct {
	Provider string
	Err      error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesizing protocol via %s: %v", e.Provider, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
