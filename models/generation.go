package models

import "time"

// Stage is a state of the per-request generation state machine
type Stage string

const (
	StageCollecting  Stage = "collecting"
	StageClassified  Stage = "classified"
	StageResearching Stage = "researching"
	StageDrafting    Stage = "drafting"
	StageAssembled   Stage = "assembled"
	StageValidating  Stage = "validating"
	StageRevising    Stage = "revising"
	StageDone        Stage = "done"
	StageGaveUp      Stage = "gave_up"
	StageFailed      Stage = "failed"
)

// Terminal reports whether no further transition can follow s
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageGaveUp || s == StageFailed
}

// GenerationStep records one stage transition
type GenerationStep struct {
	Stage       Stage     `json:"stage"`
	Description string    `json:"description,omitempty"`
	At          time.Time `json:"at"`
}

// Trace is the ordered list of stages a request went through
type Trace []GenerationStep

// Current returns the latest stage, or StageCollecting for an empty trace
func (t Trace) Current() Stage {
	if len(t) == 0 {
		return StageCollecting
	}
	return t[len(t)-1].Stage
}

// Stages returns just the stage names, in order
func (t Trace) Stages() []Stage {
	out := make([]Stage, len(t))
	for i, step := range t {
		out[i] = step.Stage
	}
	return out
}
