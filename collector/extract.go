package collector

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"lexdraft-backend/fields"
)

// PhraseExtractor derives research search phrases from case text
type PhraseExtractor interface {
	Extract(text string) []string
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// universal fallback when a strategy is configured without one
var defaultFallback = []string{"direito civil", "código civil"}

func newExtractor(cfg ExtractionConfig) PhraseExtractor {
	if cfg.Strategy == StrategyKeywords {
		return newKeywordExtractor(cfg)
	}
	return newNGramExtractor(cfg)
}

// NGramExtractor emits bigrams and trigrams of significant tokens in order of
// first appearance
type NGramExtractor struct {
	stop         map[string]bool
	minLen       int
	sortByLength bool
	fallback     []string
	limit        int
}

func newNGramExtractor(cfg ExtractionConfig) *NGramExtractor {
	stop := make(map[string]bool, len(cfg.StopWords))
	for _, w := range cfg.StopWords {
		stop[fields.Fold(w)] = true
	}
	return &NGramExtractor{
		stop:         stop,
		minLen:       cfg.MinTokenLength,
		sortByLength: cfg.SortByLength,
		fallback:     cfg.Fallback,
		limit:        cfg.Limit,
	}
}

func (e *NGramExtractor) Extract(text string) []string {
	var tokens []string
	for _, tok := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if utf8.RuneCountInString(tok) < e.minLen || e.stop[fields.Fold(tok)] {
			continue
		}
		tokens = append(tokens, tok)
	}

	var phrases []string
	for i := range tokens {
		if i+1 < len(tokens) {
			phrases = append(phrases, tokens[i]+" "+tokens[i+1])
		}
		if i+2 < len(tokens) {
			phrases = append(phrases, tokens[i]+" "+tokens[i+1]+" "+tokens[i+2])
		}
	}
	phrases = dedupe(phrases)
	if e.sortByLength {
		sort.SliceStable(phrases, func(i, j int) bool {
			return utf8.RuneCountInString(phrases[i]) > utf8.RuneCountInString(phrases[j])
		})
	}
	return finalize(phrases, e.fallback, e.limit)
}

// KeywordExtractor combines a baseline with phrases added by trigger substrings
type KeywordExtractor struct {
	baseline []string
	triggers []Trigger
	drop     []string
	fallback []string
	limit    int
}

func newKeywordExtractor(cfg ExtractionConfig) *KeywordExtractor {
	triggers := make([]Trigger, len(cfg.Triggers))
	for i, t := range cfg.Triggers {
		match := make([]string, len(t.Match))
		for j, m := range t.Match {
			match[j] = fields.Fold(m)
		}
		triggers[i] = Trigger{Match: match, Phrase: t.Phrase}
	}
	return &KeywordExtractor{
		baseline: cfg.Baseline,
		triggers: triggers,
		drop:     cfg.DropWhenCrowded,
		fallback: cfg.Fallback,
		limit:    cfg.Limit,
	}
}

func (e *KeywordExtractor) Extract(text string) []string {
	folded := fields.Fold(text)

	phrases := append([]string(nil), e.baseline...)
	for _, t := range e.triggers {
		for _, m := range t.Match {
			if strings.Contains(folded, m) {
				phrases = append(phrases, t.Phrase)
				break
			}
		}
	}
	phrases = dedupe(phrases)

	// generic baseline phrases give way to specific ones
	for _, generic := range e.drop {
		if len(phrases) <= 3 {
			break
		}
		phrases = remove(phrases, generic)
	}
	return finalize(phrases, e.fallback, e.limit)
}

func finalize(phrases, fallback []string, limit int) []string {
	if len(phrases) == 0 {
		phrases = dedupe(fallback)
	}
	if len(phrases) == 0 {
		phrases = append([]string(nil), defaultFallback...)
	}
	if limit > 0 && len(phrases) > limit {
		phrases = phrases[:limit]
	}
	return phrases
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func remove(in []string, target string) []string {
	out := in[:0]
	for _, p := range in {
		if p != target {
			out = append(out, p)
		}
	}
	return out
}
