// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ProcedureStep is a single numbered step of a laboratory procedure.
type ProcedureStep struct {
	// Step is the 1-based position of the step. Steps are renumbered after
	// synthesis so the sequence is always contiguous in array order.
	Step int `json:"step" yaml:"step"`

	// Action describes what to do.
	Action string `json:"action" yaml:"action"`

	// Time is the step duration, free-form (e.g. "30 min").
	Time string `json:"time,omitempty" yaml:"time,omitempty"`

	// Temp is the step temperature, free-form (e.g. "37°C").
	Temp string `json:"temp,omitempty" yaml:"temp,omitempty"`

	// Notes holds optional tips or caveats for the step.
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Protocol is a structured, reproducible laboratory protocol synthesized from
// an article's methods section. Like Article, a Protocol is immutable once
// constructed; regeneration produces a new value.
type Protocol struct {
	// Title is a descriptive protocol title.
	Title string `json:"title" yaml:"title"`

	// Article is the source article the protocol was derived from.
	Article Article `json:"original_article" yaml:"original_article"`

	// Reagents lists reagents with concentrations.
	Reagents []string `json:"reagents" yaml:"reagents"`

	// Materials lists required materials and equipment.
	Materials []string `json:"materials" yaml:"materials"`

	// Preparation lists steps to complete before the experiment.
	Preparation []string `json:"preparation" yaml:"preparation"`

	// Procedure is the ordered step-by-step procedure.
	Procedure []ProcedureStep `json:"procedure" yaml:"procedure"`

	// Conditions maps named experimental conditions to values
	// (e.g. "total_time" → "4 hours").
	Conditions map[string]string `json:"conditions" yaml:"conditions"`

	// CriticalNotes lists conditions critical for success.
	CriticalNotes []string `json:"critical_notes" yaml:"critical_notes"`

	// SafetyWarnings lists safety warnings.
	SafetyWarnings []string `json:"safety_warnings" yaml:"safety_warnings"`

	// GeneratedAt is the synthesis timestamp.
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

	// Generator identifies the model that produced the protocol.
	Generator string `json:"generator" yaml:"generator"`
}

// Style selects the emphasis of a synthesized protocol.
type Style string

const (
	// StyleDetailed asks for exhaustive detail: exact volumes, precise
	// times, and alternatives.
	StyleDetailed Style = "detailed"

	// StyleConcise asks for essential information only.
	StyleConcise Style = "concise"

	// StyleEducational asks for the rationale behind each step.
	StyleEducational Style = "educational"
)

// Valid reports whether s is a recognized style.
func (s Style) Valid() bool {
	switch s {
	case StyleDetailed, StyleConcise, StyleEducational:
		return true
	}
	return false
}
