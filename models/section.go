package models

// SectionSpec is one prompt to send to the completion service
type SectionSpec struct {
	Name   string `json:"name"`
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

// GeneratedSection is the tagged result of generating one section.
// Either HTML holds the fragment or Failed is set with a Reason.
type GeneratedSection struct {
	Name   string `json:"name"`
	HTML   string `json:"html,omitempty"`
	Failed bool   `json:"failed,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// SectionOK builds a successful section result
func SectionOK(name, html string) GeneratedSection {
	return GeneratedSection{Name: name, HTML: html}
}

// SectionFailed builds a failed section result
func SectionFailed(name, reason string) GeneratedSection {
	return GeneratedSection{Name: name, Failed: true, Reason: reason}
}
