package llm

import "strings"

var fenceTags = []string{"html", "json", "markdown", "md"}

// StripCodeFences removes a leading ``` line (with optional language tag)
// and a trailing ``` marker
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		} else {
			s = strings.TrimPrefix(s, "```")
			for _, tag := range fenceTags {
				if strings.HasPrefix(strings.ToLower(s), tag) {
					s = s[len(tag):]
					break
				}
			}
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	return s
}

// Truncate cuts prompt to at most limit bytes on a rune boundary and appends
// a truncation notice. limit <= 0 disables truncation.
func Truncate(prompt string, limit int) (string, bool) {
	if limit <= 0 || len(prompt) <= limit {
		return prompt, false
	}
	cut := limit
	for cut > 0 && !isRuneStart(prompt[cut]) {
		cut--
	}
	return prompt[:cut] + "\n\n[Conteúdo truncado devido ao tamanho...]", true
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
