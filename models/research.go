package models

// Snippet is one ranked piece of text returned by a research source
type Snippet struct {
	SourceURL string  `json:"source_url"`
	Title     string  `json:"title,omitempty"`
	Text      string  `json:"text"`
	Source    string  `json:"source,omitempty"` // "knowledge_base", "web"
	Rank      float64 `json:"rank,omitempty"`
}

// Research holds retrieved snippets per search phrase, in phrase order
type Research struct {
	Phrases  []string             `json:"phrases"`
	Snippets map[string][]Snippet `json:"snippets"`
}

// NewResearch creates an empty research result for the given phrases
func NewResearch(phrases []string) *Research {
	return &Research{
		Phrases:  append([]string(nil), phrases...),
		Snippets: make(map[string][]Snippet, len(phrases)),
	}
}

// All returns every snippet in phrase order
func (r *Research) All() []Snippet {
	if r == nil {
		return nil
	}
	var out []Snippet
	for _, phrase := range r.Phrases {
		out = append(out, r.Snippets[phrase]...)
	}
	return out
}

// Empty reports whether no phrase returned any snippet
func (r *Research) Empty() bool {
	return len(r.All()) == 0
}
