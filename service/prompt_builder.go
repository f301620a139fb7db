package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"lexdraft-backend/apperr"
	"lexdraft-backend/llm"
	"lexdraft-backend/logger"
	"lexdraft-backend/models"
)

const (
	defaultMaxPromptChars = 30000
	maxResearchSnippets   = 8
	maxSnippetChars       = 800
	maxPreviousChars      = 6000
)

const formatRules = `FORMATO DE SAÍDA (OBRIGATÓRIO):
- Responda somente com um fragmento HTML, sem texto antes ou depois.
- Tags permitidas: <h3>, <p>, <ul>, <ol>, <li>, <strong>, <em>, <blockquote>.
- É proibido usar <html>, <head>, <body>, <style>, <script>, <div>, <span> e atributos style ou class.
- Não use Markdown (#, **, listas com hífen) nem blocos de código.
- Não inclua o título da seção; ele será inserido pelo sistema.`

const fidelityRule = `FIDELIDADE AOS DADOS (CRÍTICO):
- Utilize apenas os fatos, nomes, datas e valores presentes em DADOS DO CASO.
- Não invente números de processo, datas, valores, testemunhas ou precedentes.
- Quando um dado estiver entre colchetes (ex.: [ENDEREÇO]), mantenha o marcador exatamente como está.
- Cite jurisprudência e doutrina apenas se constarem da PESQUISA JURÍDICA.`

const roleRule = `REFERÊNCIA ÀS PARTES:
- Após a primeira menção com nome completo, refira-se às partes apenas pela posição que ocupam no documento (Autor, Réu, Reclamante, Reclamada, Contratante, Contratado, Paciente, Consulente).`

// PromptBuilder turns a case record into one prompt per section
type PromptBuilder struct {
	maxPromptChars int
	logger         logger.Logger
}

// NewPromptBuilder creates a builder that truncates prompts longer than maxPromptChars
func NewPromptBuilder(maxPromptChars int, log logger.Logger) *PromptBuilder {
	if maxPromptChars <= 0 {
		maxPromptChars = defaultMaxPromptChars
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &PromptBuilder{maxPromptChars: maxPromptChars, logger: log}
}

// Build returns the section specs for docType in drafting order. previousHTML
// and recommendations switch every prompt into revision mode.
func (b *PromptBuilder) Build(
	docType models.DocumentType,
	record *models.CaseRecord,
	research *models.Research,
	previousHTML string,
	recommendations []string,
) ([]models.SectionSpec, error) {
	if record == nil {
		return nil, apperr.New(models.StageDrafting, apperr.CodeInvalidRequest, "missing case record", nil)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, apperr.New(models.StageDrafting, apperr.CodeSerializationFailed, "failed to serialize case record", err)
	}

	researchBlock := formatResearch(research)
	revision := revisionBlock(previousHTML, recommendations)
	withRoles := hasParties(record)

	defs := SectionsFor(docType, record)
	specs := make([]models.SectionSpec, 0, len(defs))
	for _, def := range defs {
		var prompt strings.Builder
		prompt.WriteString(formatRules)
		prompt.WriteString("\n\n")
		prompt.WriteString(fidelityRule)
		prompt.WriteString("\n\n")
		if withRoles {
			prompt.WriteString(roleRule)
			prompt.WriteString("\n\n")
		}
		if revision != "" {
			prompt.WriteString(revision)
			prompt.WriteString("\n\n")
		}
		fmt.Fprintf(&prompt, "TAREFA:\nRedija a seção \"%s\" de um(a) %s. %s\nExtensão mínima: %d palavras.\n\n",
			def.Title, docType.Label(), def.Task, def.MinWords)
		prompt.WriteString("DADOS DO CASO (JSON):\n")
		prompt.Write(data)
		if def.Research && researchBlock != "" {
			prompt.WriteString("\n\nPESQUISA JURÍDICA:\n")
			prompt.WriteString(researchBlock)
		}

		text, truncated := llm.Truncate(prompt.String(), b.maxPromptChars)
		if truncated {
			b.logger.Warn("Prompt too long, truncating", logger.Fields{
				"section": def.Name,
				"chars":   prompt.Len(),
				"limit":   b.maxPromptChars,
			})
		}
		specs = append(specs, models.SectionSpec{Name: def.Name, Title: def.Title, Prompt: text})
	}
	return specs, nil
}

func revisionBlock(previousHTML string, recommendations []string) string {
	if len(recommendations) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("REVISÃO:\nA versão anterior deste documento foi avaliada e recebeu as seguintes recomendações:\n")
	for _, rec := range recommendations {
		b.WriteString("- ")
		b.WriteString(rec)
		b.WriteString("\n")
	}
	b.WriteString("Reescreva a seção por completo incorporando todas as recomendações. Não acrescente remendos ao texto anterior.")
	if previousHTML = strings.TrimSpace(previousHTML); previousHTML != "" {
		excerpt, _ := llm.Truncate(previousHTML, maxPreviousChars)
		b.WriteString("\n\nVERSÃO ANTERIOR:\n")
		b.WriteString(excerpt)
	}
	return b.String()
}

func formatResearch(research *models.Research) string {
	if research.Empty() {
		return ""
	}
	snippets := research.All()
	if len(snippets) > maxResearchSnippets {
		snippets = snippets[:maxResearchSnippets]
	}
	var b strings.Builder
	for i, s := range snippets {
		text, _ := llm.Truncate(strings.TrimSpace(s.Text), maxSnippetChars)
		title := s.Title
		if title == "" {
			title = s.SourceURL
		}
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n\n", i+1, title, s.SourceURL, text)
	}
	return strings.TrimSpace(b.String())
}

func hasParties(r *models.CaseRecord) bool {
	for _, role := range models.PartyRoles {
		if r.Party(role) != nil {
			return true
		}
	}
	return false
}
