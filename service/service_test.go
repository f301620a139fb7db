package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexdraft-backend/apperr"
	"lexdraft-backend/collector"
	"lexdraft-backend/llm"
	"lexdraft-backend/logger"
	"lexdraft-backend/models"
)

var fixedNow = func() time.Time { return time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC) }

func newTestRegistry(t *testing.T) *collector.Registry {
	t.Helper()
	cat, err := collector.LoadDefault()
	require.NoError(t, err)
	return collector.NewRegistry(cat, logger.NewTestLogger(t))
}

func civilForm() models.RawFormData {
	return models.RawFormData{
		"clientenome": "Ana Souza",
		"nomedaparte": "Beta Ltda",
		"fatos":       "Produto com defeito entregue em março",
		"pedido":      "Reembolso integral",
		"valorcausa":  "5.000,00",
		"comarca":     "Campinas",
	}
}

// echoCompleter answers every prompt with a paragraph, failing sections whose title contains failOn
func echoCompleter(failOn string) llm.Completer {
	return llm.CompleterFunc(func(ctx context.Context, prompt string, params llm.Params) (string, error) {
		if failOn != "" && strings.Contains(prompt, `"`+failOn+`"`) {
			return "", errors.New("upstream unavailable")
		}
		return "```html\n<p>Conteúdo gerado.</p>\n```", nil
	})
}

func newTestService(t *testing.T, completer llm.Completer, opts ...DraftServiceOption) *DraftService {
	t.Helper()
	log := logger.NewTestLogger(t)
	base := []DraftServiceOption{
		DraftWithRegistry(newTestRegistry(t)),
		DraftWithGenerator(NewSectionGenerator(completer, GeneratorWithLogger(log))),
		DraftWithLogger(log),
		DraftWithClock(fixedNow),
	}
	return NewDraftService(append(base, opts...)...)
}

func TestSectionsFor_ContractConditionalClauses(t *testing.T) {
	withIP := &models.CaseRecord{Details: map[string]string{"tipo_contrato": "Consultoria de TI"}}
	assert.Equal(t,
		[]string{"objeto", "preco", "prazo", "obrigacoes", "penalidades", "propriedade", "confidencialidade", "rescisao", "foro"},
		SectionNames(SectionsFor(models.DocContract, withIP)))

	withoutIP := &models.CaseRecord{Details: map[string]string{"tipo_contrato": "Compra e Venda de Veículo"}}
	names := SectionNames(SectionsFor(models.DocContract, withoutIP))
	assert.NotContains(t, names, "propriedade")
	assert.NotContains(t, names, "confidencialidade")
	assert.Len(t, names, 7)
}

func TestContractNeedsIPClauses(t *testing.T) {
	tests := []struct {
		subtype string
		want    bool
	}{
		{"Prestação de Serviços", true},
		{"Desenvolvimento de Software", true},
		{"Franquia", true},
		{"Licença de uso", true},
		{"Software Development Agreement", true},
		{"Compra e Venda de Veículo", false},
		{"Locação Residencial", false},
		{"Atividade rural", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ContractNeedsIPClauses(tt.subtype), tt.subtype)
	}
}

func TestSectionsFor_PerType(t *testing.T) {
	assert.Equal(t, []string{"fatos", "direito", "jurisprudencia", "doutrina", "pedidos"},
		SectionNames(SectionsFor(models.DocCivilAction, nil)))
	assert.Equal(t, []string{"fatos", "ilegalidade", "direito", "jurisprudencia", "liminar", "pedidos"},
		SectionNames(SectionsFor(models.DocHabeasCorpus, nil)))
	assert.Equal(t, []string{"relatorio", "fundamentacao", "conclusao"},
		SectionNames(SectionsFor(models.DocLegalOpinion, nil)))
	assert.Equal(t, SectionNames(SectionsFor(models.DocCivilAction, nil)),
		SectionNames(SectionsFor(models.DocumentType("desconhecido"), nil)))
}

func TestPromptBuilder_PartOrder(t *testing.T) {
	record := &models.CaseRecord{
		DocumentType:      models.DocCivilAction,
		Author:            &models.Party{Name: "Ana"},
		ConsolidatedFacts: "Produto com defeito",
	}
	research := models.NewResearch([]string{"produto defeito"})
	research.Snippets["produto defeito"] = []models.Snippet{{SourceURL: "https://stj.jus.br/x", Title: "REsp 1", Text: "Vício do produto"}}

	specs, err := NewPromptBuilder(0, nil).Build(models.DocCivilAction, record, research, "<p>antigo</p>", []string{"Citar o art. 18 do CDC"})
	require.NoError(t, err)
	require.Len(t, specs, 5)
	assert.Equal(t, "fatos", specs[0].Name)
	assert.Equal(t, "DOS FATOS", specs[0].Title)

	direito := specs[1].Prompt
	order := []string{"FORMATO DE SAÍDA", "FIDELIDADE AOS DADOS", "REFERÊNCIA ÀS PARTES", "REVISÃO", "TAREFA", "DADOS DO CASO (JSON)", "PESQUISA JURÍDICA:\n"}
	last := -1
	for _, marker := range order {
		idx := strings.Index(direito, marker)
		require.True(t, idx > last, "%s out of order", marker)
		last = idx
	}
	assert.Contains(t, direito, "- Citar o art. 18 do CDC")
	assert.Contains(t, direito, "<p>antigo</p>")
	assert.Contains(t, direito, "Vício do produto")

	// facts section does not receive research
	assert.NotContains(t, specs[0].Prompt, "PESQUISA JURÍDICA:\n")
}

func TestPromptBuilder_NoRolesOrRevision(t *testing.T) {
	specs, err := NewPromptBuilder(0, nil).Build(models.DocCaseStudy, &models.CaseRecord{}, nil, "", nil)
	require.NoError(t, err)
	for _, s := range specs {
		assert.NotContains(t, s.Prompt, "REFERÊNCIA ÀS PARTES")
		assert.NotContains(t, s.Prompt, "REVISÃO")
	}
}

func TestPromptBuilder_RolesAndEmptyResearch(t *testing.T) {
	record := &models.CaseRecord{Contracted: &models.Party{Name: "Bruno"}}
	research := models.NewResearch([]string{"prestação de serviços"})

	specs, err := NewPromptBuilder(0, nil).Build(models.DocContract, record, research, "", nil)
	require.NoError(t, err)
	require.NotEmpty(t, specs)
	for _, s := range specs {
		assert.Contains(t, s.Prompt, "REFERÊNCIA ÀS PARTES")
		assert.NotContains(t, s.Prompt, "PESQUISA JURÍDICA:\n")
	}
}

func TestPromptBuilder_Truncates(t *testing.T) {
	record := &models.CaseRecord{ConsolidatedFacts: strings.Repeat("fato relevante ", 500)}
	specs, err := NewPromptBuilder(1000, logger.NewTestLogger(t)).Build(models.DocCivilAction, record, nil, "", nil)
	require.NoError(t, err)
	for _, s := range specs {
		assert.Contains(t, s.Prompt, "[Conteúdo truncado")
		assert.LessOrEqual(t, len(s.Prompt), 1100)
	}
}

func TestPromptBuilder_NilRecord(t *testing.T) {
	_, err := NewPromptBuilder(0, nil).Build(models.DocCivilAction, nil, nil, "", nil)
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.StageDrafting, appErr.Stage)
}

func TestSectionGenerator_PartialFailure(t *testing.T) {
	specs := []models.SectionSpec{
		{Name: "fatos", Prompt: `"DOS FATOS"`},
		{Name: "direito", Prompt: `"DO DIREITO"`},
		{Name: "pedidos", Prompt: `"DOS PEDIDOS"`},
	}
	got := NewSectionGenerator(echoCompleter("DO DIREITO")).GenerateAll(context.Background(), specs)

	require.Len(t, got, 3)
	assert.Equal(t, "<p>Conteúdo gerado.</p>", got["fatos"].HTML)
	assert.True(t, got["direito"].Failed)
	assert.Contains(t, got["direito"].Reason, "upstream unavailable")
	assert.False(t, got["pedidos"].Failed)
}

func TestSectionGenerator_Timeout(t *testing.T) {
	slow := llm.CompleterFunc(func(ctx context.Context, prompt string, params llm.Params) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	got := NewSectionGenerator(slow, GeneratorWithTimeout(10*time.Millisecond)).
		GenerateAll(context.Background(), []models.SectionSpec{{Name: "fatos"}})
	assert.True(t, got["fatos"].Failed)
	assert.Contains(t, got["fatos"].Reason, "timed out")
}

func TestSectionGenerator_ConvertsMarkdownAndRejectsEmpty(t *testing.T) {
	var calls int32
	c := llm.CompleterFunc(func(ctx context.Context, prompt string, params llm.Params) (string, error) {
		if prompt == "vazio" {
			return "```\n```", nil
		}
		atomic.AddInt32(&calls, 1)
		return "Texto com **destaque**.", nil
	})
	got := NewSectionGenerator(c, GeneratorWithConcurrency(1)).GenerateAll(context.Background(), []models.SectionSpec{
		{Name: "a", Prompt: "md"},
		{Name: "b", Prompt: "vazio"},
	})
	assert.Equal(t, "<p>Texto com <strong>destaque</strong>.</p>", got["a"].HTML)
	assert.True(t, got["b"].Failed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSectionGenerator_NoCompleter(t *testing.T) {
	got := NewSectionGenerator(nil).GenerateAll(context.Background(), []models.SectionSpec{{Name: "fatos"}})
	assert.True(t, got["fatos"].Failed)
}

func TestSectionGenerator_KeepsSystemInstruction(t *testing.T) {
	var seen llm.Params
	c := llm.CompleterFunc(func(ctx context.Context, prompt string, params llm.Params) (string, error) {
		seen = params
		return "Texto.", nil
	})
	NewSectionGenerator(c, GeneratorWithParams(llm.Params{Temperature: 0.5})).
		GenerateAll(context.Background(), []models.SectionSpec{{Name: "fatos"}})

	assert.Equal(t, systemInstruction, seen.System)
	assert.Equal(t, 0.5, seen.Temperature)

	NewSectionGenerator(c, GeneratorWithParams(llm.Params{System: "outro", MaxTokens: 512})).
		GenerateAll(context.Background(), []models.SectionSpec{{Name: "fatos"}})
	assert.Equal(t, "outro", seen.System)
	assert.Equal(t, 512, seen.MaxTokens)
	assert.Equal(t, defaultSectionTemperature, seen.Temperature)
}

func TestSectionGenerator_RunsSectionsConcurrently(t *testing.T) {
	const delay = 150 * time.Millisecond
	specs := []models.SectionSpec{
		{Name: "qualificacao"}, {Name: "fatos"}, {Name: "direito"}, {Name: "pedidos"}, {Name: "valor"},
	}

	var inFlight, peak atomic.Int32
	c := llm.CompleterFunc(func(ctx context.Context, prompt string, params llm.Params) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(delay)
		return "Texto.", nil
	})

	start := time.Now()
	got := NewSectionGenerator(c).GenerateAll(context.Background(), specs)
	elapsed := time.Since(start)

	require.Len(t, got, len(specs))
	for _, s := range specs {
		assert.False(t, got[s.Name].Failed, s.Name)
	}
	assert.Equal(t, int32(len(specs)), peak.Load())
	assert.Less(t, elapsed, 3*delay)

	peak.Store(0)
	NewSectionGenerator(c, GeneratorWithConcurrency(2)).GenerateAll(context.Background(), specs)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestAssembler_ErrorFragmentAndHeadings(t *testing.T) {
	a := &Assembler{now: fixedNow}
	record := &models.CaseRecord{
		Author:     &models.Party{Name: "Ana <Souza>", Qualification: "brasileira"},
		Respondent: &models.Party{Name: "Beta Ltda"},
		ValorCausa: "R$ 5.000,00",
		Details:    map[string]string{"comarca": "Campinas"},
	}
	sections := map[string]models.GeneratedSection{
		"fatos":          models.SectionOK("fatos", "<p>Fatos.</p>"),
		"direito":        models.SectionFailed("direito", "timed out <after> 120s"),
		"jurisprudencia": models.SectionOK("jurisprudencia", "<h2>Da Jurisprudência</h2><p>STJ.</p>"),
		"doutrina":       models.SectionOK("doutrina", "<p>Doutrina.</p>"),
		"pedidos":        models.SectionOK("pedidos", "<ul><li>Reembolso</li></ul>"),
	}

	doc, err := a.Assemble(models.DocCivilAction, record, sections)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(doc, "Error generating section"))
	assert.Contains(t, doc, "<h2>Error generating section: direito</h2>\n<p>timed out &lt;after&gt; 120s</p>")
	assert.Contains(t, doc, "<h2>DOS FATOS</h2>\n<p>Fatos.</p>")
	assert.NotContains(t, doc, "<h2>DA JURISPRUDÊNCIA</h2>")
	assert.Contains(t, doc, "<strong>Ana &lt;Souza&gt;</strong>, brasileira")
	assert.Contains(t, doc, "COMARCA DE CAMPINAS")
	assert.Contains(t, doc, "Dá-se à causa o valor de R$ 5.000,00.")
	assert.Contains(t, doc, "<p>Campinas, 15 de outubro de 2026.</p>")
	assert.Contains(t, doc, "OAB/[UF]")

	// fixed order regardless of map iteration
	assert.Less(t, strings.Index(doc, "DOS FATOS"), strings.Index(doc, "direito"))
	assert.Less(t, strings.Index(doc, "Doutrina."), strings.Index(doc, "Reembolso"))
}

func TestAssembler_ContractSignaturesAndClauses(t *testing.T) {
	a := &Assembler{now: fixedNow}
	record := &models.CaseRecord{
		Contractor: &models.Party{Name: "Alfa S.A.", CNPJ: "12.345.678/0001-90"},
		Contracted: &models.Party{Name: "Bruno"},
		Details:    map[string]string{"tipo_contrato": "Compra e Venda", "foro": "São Paulo"},
	}
	doc, err := a.Assemble(models.DocContract, record, map[string]models.GeneratedSection{})
	require.NoError(t, err)

	assert.Contains(t, doc, "<h1>CONTRATO DE COMPRA E VENDA</h1>")
	assert.Equal(t, 7, strings.Count(doc, "Error generating section"))
	assert.Contains(t, doc, "Alfa S.A.<br>CONTRATANTE")
	assert.Contains(t, doc, "Bruno<br>CONTRATADO")
	assert.Contains(t, doc, "TESTEMUNHAS")
	assert.Contains(t, doc, "São Paulo, 15 de outubro de 2026.")
	assert.NotContains(t, doc, "pede deferimento")
}

func TestAssembler_NilRecord(t *testing.T) {
	_, err := NewAssembler().Assemble(models.DocCivilAction, nil, nil)
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.CodeAssemblyFailed, appErr.Code)
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		ok     bool
		status models.ValidationStatus
		recs   int
	}{
		{"approved", `{"status":"approved","recommendations":[]}`, true, models.ValidationApproved, 0},
		{"fenced revision", "```json\n{\"status\":\"needs_revision\",\"recommendations\":[\"Citar CDC\",\" \"]}\n```", true, models.ValidationNeedsRevision, 1},
		{"revision without recommendations", `{"status":"needs_revision"}`, true, models.ValidationApproved, 0},
		{"prose around json", `Segue: {"status":"APPROVED"} fim`, true, models.ValidationApproved, 0},
		{"unknown status", `{"status":"maybe"}`, false, "", 0},
		{"not json", "parece bom", false, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseVerdict(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.status, got.Status)
			assert.Len(t, got.Recommendations, tt.recs)
		})
	}
}

func TestLLMValidator_ApprovesUnparsableVerdict(t *testing.T) {
	v := NewLLMValidator(llm.CompleterFunc(func(ctx context.Context, prompt string, params llm.Params) (string, error) {
		return "sem comentários", nil
	}), 0, logger.NewTestLogger(t))

	got, err := v.Validate(context.Background(), models.DocCivilAction, &models.CaseRecord{}, "<p>x</p>")
	require.NoError(t, err)
	assert.Equal(t, models.ValidationApproved, got.Status)
}

func TestDraftService_Generate(t *testing.T) {
	s := newTestService(t, echoCompleter("DO DIREITO"))

	res, err := s.Generate(context.Background(), GenerateRequest{FormData: civilForm()})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RequestID)
	assert.Equal(t, models.DocCivilAction, res.DocumentType)
	assert.Equal(t, []models.Stage{
		models.StageCollecting, models.StageClassified, models.StageResearching,
		models.StageDrafting, models.StageAssembled, models.StageDone,
	}, res.Trace.Stages())
	assert.Equal(t, 1, strings.Count(res.HTML, "Error generating section"))
	assert.Contains(t, res.HTML, "Error generating section: direito")
	assert.Equal(t, 4, strings.Count(res.HTML, "<p>Conteúdo gerado.</p>"))
	assert.Nil(t, res.Validation)
}

func TestDraftService_RevisionCapGivesUp(t *testing.T) {
	var validations int32
	v := ValidatorFunc(func(ctx context.Context, docType models.DocumentType, record *models.CaseRecord, html string) (models.ValidationResult, error) {
		atomic.AddInt32(&validations, 1)
		return models.ValidationResult{Status: models.ValidationNeedsRevision, Recommendations: []string{"Aprofundar o dano moral"}}, nil
	})

	var revisionPrompts int32
	c := llm.CompleterFunc(func(ctx context.Context, prompt string, params llm.Params) (string, error) {
		if strings.Contains(prompt, "Aprofundar o dano moral") {
			atomic.AddInt32(&revisionPrompts, 1)
		}
		return "<p>ok</p>", nil
	})

	s := newTestService(t, c, DraftWithValidator(v), DraftWithMaxRevisions(2))
	res, err := s.Generate(context.Background(), GenerateRequest{FormData: civilForm(), Validate: true})
	require.NoError(t, err)

	assert.Equal(t, int32(3), atomic.LoadInt32(&validations))
	assert.Equal(t, int32(10), atomic.LoadInt32(&revisionPrompts))
	require.NotNil(t, res.Validation)
	assert.True(t, res.Validation.GaveUp)
	assert.Equal(t, 2, res.Validation.Revisions)
	assert.Equal(t, []string{"Aprofundar o dano moral"}, res.Validation.Recommendations)
	assert.Equal(t, models.StageGaveUp, res.Trace.Current())
	assert.Equal(t, []models.Stage{
		models.StageCollecting, models.StageClassified, models.StageResearching,
		models.StageDrafting, models.StageAssembled,
		models.StageValidating, models.StageRevising, models.StageAssembled,
		models.StageValidating, models.StageRevising, models.StageAssembled,
		models.StageValidating, models.StageGaveUp,
	}, res.Trace.Stages())
	assert.NotEmpty(t, res.HTML)
}

func TestDraftService_ApprovedAfterOneRevision(t *testing.T) {
	var calls int32
	v := ValidatorFunc(func(ctx context.Context, docType models.DocumentType, record *models.CaseRecord, html string) (models.ValidationResult, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return models.ValidationResult{Status: models.ValidationNeedsRevision, Recommendations: []string{"Corrigir o valor"}}, nil
		}
		return models.ValidationResult{Status: models.ValidationApproved}, nil
	})

	s := newTestService(t, echoCompleter(""), DraftWithValidator(v))
	res, err := s.Generate(context.Background(), GenerateRequest{FormData: civilForm(), Validate: true})
	require.NoError(t, err)

	assert.Equal(t, models.StageDone, res.Trace.Current())
	assert.Equal(t, 1, res.Validation.Revisions)
	assert.False(t, res.Validation.GaveUp)
	assert.Equal(t, models.ValidationApproved, res.Validation.Status)
}

func TestDraftService_ValidatorErrorKeepsDocument(t *testing.T) {
	v := ValidatorFunc(func(ctx context.Context, docType models.DocumentType, record *models.CaseRecord, html string) (models.ValidationResult, error) {
		return models.ValidationResult{}, errors.New("validator offline")
	})

	s := newTestService(t, echoCompleter(""), DraftWithValidator(v))
	res, err := s.Generate(context.Background(), GenerateRequest{FormData: civilForm(), Validate: true})
	require.NoError(t, err)
	assert.Equal(t, models.StageDone, res.Trace.Current())
	assert.Contains(t, res.Validation.Error, "validator offline")
	assert.NotEmpty(t, res.HTML)
}

func TestDraftService_EmptySubmissionFails(t *testing.T) {
	s := newTestService(t, echoCompleter(""))
	res, err := s.Generate(context.Background(), GenerateRequest{})

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.CodeInvalidRequest, appErr.Code)
	assert.Equal(t, models.StageCollecting, appErr.Stage)
	assert.Equal(t, models.StageFailed, res.Trace.Current())
}

func TestDraftService_Revise(t *testing.T) {
	var sawRecommendation int32
	c := llm.CompleterFunc(func(ctx context.Context, prompt string, params llm.Params) (string, error) {
		if strings.Contains(prompt, "Incluir tutela de urgência") && strings.Contains(prompt, "<p>versão 1</p>") {
			atomic.AddInt32(&sawRecommendation, 1)
		}
		return "<p>v2</p>", nil
	})
	s := newTestService(t, c)

	res, err := s.Revise(context.Background(), RevisionRequest{
		FormData:        civilForm(),
		PreviousHTML:    "<p>versão 1</p>",
		Recommendations: []string{"Incluir tutela de urgência"},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(5), atomic.LoadInt32(&sawRecommendation))
	assert.Equal(t, []models.Stage{
		models.StageCollecting, models.StageClassified, models.StageResearching,
		models.StageRevising, models.StageAssembled, models.StageDone,
	}, res.Trace.Stages())

	_, err = s.Revise(context.Background(), RevisionRequest{FormData: civilForm()})
	assert.ErrorIs(t, err, ErrNoRecommendations)
}

func TestDraftService_UsesResearcher(t *testing.T) {
	var got []string
	researcher := researcherFunc(func(ctx context.Context, phrases []string) *models.Research {
		got = phrases
		r := models.NewResearch(phrases)
		r.Snippets[phrases[0]] = []models.Snippet{{SourceURL: "https://stj.jus.br/1", Text: "Súmula 479"}}
		return r
	})

	var withResearch int32
	c := llm.CompleterFunc(func(ctx context.Context, prompt string, params llm.Params) (string, error) {
		if strings.Contains(prompt, "Súmula 479") {
			atomic.AddInt32(&withResearch, 1)
		}
		return "<p>ok</p>", nil
	})

	s := newTestService(t, c, DraftWithResearcher(researcher))
	res, err := s.Generate(context.Background(), GenerateRequest{FormData: civilForm()})
	require.NoError(t, err)
	assert.Equal(t, res.Record.RequiredLegalGrounds, got)
	// direito, jurisprudencia and doutrina
	assert.Equal(t, int32(3), atomic.LoadInt32(&withResearch))
}

type researcherFunc func(ctx context.Context, phrases []string) *models.Research

func (f researcherFunc) Gather(ctx context.Context, phrases []string) *models.Research {
	return f(ctx, phrases)
}
