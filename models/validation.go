package models

// ValidationStatus is the verdict of the validator collaborator
type ValidationStatus string

const (
	ValidationApproved      ValidationStatus = "approved"
	ValidationNeedsRevision ValidationStatus = "needs_revision"
)

// ValidationResult is returned by a validator for one assembled document
type ValidationResult struct {
	Status          ValidationStatus `json:"status"`
	Recommendations []string         `json:"recommendations"`
}

// ValidationSummary describes how the validate/revise loop ended
type ValidationSummary struct {
	Status          ValidationStatus `json:"status"`
	Recommendations []string         `json:"recommendations,omitempty"`
	Revisions       int              `json:"revisions"`
	GaveUp          bool             `json:"gave_up"`
	// Error is set when the validator itself failed and the loop stopped early
	Error string `json:"error,omitempty"`
}
