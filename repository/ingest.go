package repository

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"lexdraft-backend/fields"
	"lexdraft-backend/models"
)

const (
	SourceLegislation = "legislacao"
	SourceCaseLaw     = "jurisprudencia"
	SourceScholarship = "doutrina"
	sourceTypeUnknown = ""
	defaultChunkChars = 1500
)

// DetermineSourceType guesses the knowledge-base category of a reference
// file from its name, then its content. Returns "" when nothing matches.
func DetermineSourceType(filename, content string) string {
	name := fields.Fold(filename)
	switch {
	case strings.Contains(name, "lei") || strings.Contains(name, "codigo") || strings.Contains(name, "constituicao"):
		return SourceLegislation
	case strings.Contains(name, "acordao") || strings.Contains(name, "sumula") || strings.Contains(name, "jurisprudencia"):
		return SourceCaseLaw
	case strings.Contains(name, "doutrina") || strings.Contains(name, "artigo"):
		return SourceScholarship
	}

	text := fields.Fold(content)
	switch {
	case strings.Contains(text, "ementa") || strings.Contains(text, "acordam") || strings.Contains(text, "relator"):
		return SourceCaseLaw
	case strings.Contains(text, "art. 1") || strings.Contains(text, "paragrafo unico"):
		return SourceLegislation
	}
	return sourceTypeUnknown
}

// ChunkDocument splits a reference file into knowledge-base chunks. IDs are
// derived from the file name and index so re-ingesting replaces rows.
func ChunkDocument(filename, sourceType, content string, maxChars int) []models.LegalChunk {
	if maxChars <= 0 {
		maxChars = defaultChunkChars
	}
	pieces := SplitParagraphs(content, maxChars)
	chunks := make([]models.LegalChunk, len(pieces))
	for i, text := range pieces {
		chunks[i] = models.LegalChunk{
			ID:             uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("kb://%s#%d", filename, i))),
			Text:           text,
			SourceType:     sourceType,
			SourceDocument: filename,
			ChunkIndex:     i,
		}
	}
	return chunks
}

// SplitParagraphs groups blank-line separated paragraphs into chunks of at
// most maxChars runes. A single paragraph longer than maxChars is split on
// word boundaries.
func SplitParagraphs(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = defaultChunkChars
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var chunks []string
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.Join(strings.Fields(para), " ")
		if para == "" {
			continue
		}
		for _, piece := range splitLong(para, maxChars) {
			if current.Len() > 0 && utf8.RuneCountInString(current.String())+1+utf8.RuneCountInString(piece) > maxChars {
				flush()
			}
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(piece)
		}
	}
	flush()
	return chunks
}

func splitLong(para string, maxChars int) []string {
	if utf8.RuneCountInString(para) <= maxChars {
		return []string{para}
	}
	var out []string
	var line strings.Builder
	for _, word := range strings.Fields(para) {
		if line.Len() > 0 && utf8.RuneCountInString(line.String())+1+utf8.RuneCountInString(word) > maxChars {
			out = append(out, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteString(" ")
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		out = append(out, line.String())
	}
	return out
}
