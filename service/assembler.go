package service

import (
	"fmt"
	"html"
	"strings"
	"time"

	"lexdraft-backend/apperr"
	"lexdraft-backend/models"
)

var monthNames = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

var clauseOrdinals = [...]string{
	"PRIMEIRA", "SEGUNDA", "TERCEIRA", "QUARTA", "QUINTA", "SEXTA",
	"SÉTIMA", "OITAVA", "NONA", "DÉCIMA", "DÉCIMA PRIMEIRA", "DÉCIMA SEGUNDA",
}

const lawyerSignature = "[ADVOGADO(A)]<br>OAB/[UF] nº [NÚMERO]"

// Assembler joins generated sections into the final HTML document
type Assembler struct {
	now func() time.Time
}

// NewAssembler creates an assembler dated with the current time
func NewAssembler() *Assembler {
	return &Assembler{now: time.Now}
}

// Assemble renders header, sections in fixed order and closing. Failed or
// missing sections become visible error fragments.
func (a *Assembler) Assemble(docType models.DocumentType, record *models.CaseRecord, sections map[string]models.GeneratedSection) (string, error) {
	if record == nil {
		return "", apperr.New(models.StageAssembled, apperr.CodeAssemblyFailed, "missing case record", nil)
	}

	var b strings.Builder
	a.writeHeader(&b, docType, record)

	for i, def := range SectionsFor(docType, record) {
		title := def.Title
		if docType == models.DocContract {
			title = clauseTitle(i, def.Title)
		}

		section, ok := sections[def.Name]
		if !ok {
			section = models.SectionFailed(def.Name, "section not generated")
		}
		if section.Failed {
			fmt.Fprintf(&b, "<h2>Error generating section: %s</h2>\n<p>%s</p>\n",
				html.EscapeString(def.Name), html.EscapeString(section.Reason))
			continue
		}

		content := strings.TrimSpace(section.HTML)
		if !hasOwnHeading(content, def.Title) {
			fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(title))
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	a.writeClosing(&b, docType, record)
	return b.String(), nil
}

// hasOwnHeading reports whether the model already opened the fragment with the section heading
func hasOwnHeading(content, title string) bool {
	lower := strings.ToLower(content)
	if strings.HasPrefix(lower, "<h2") {
		return true
	}
	return strings.HasPrefix(lower, strings.ToLower(title))
}

func clauseTitle(i int, title string) string {
	if i < len(clauseOrdinals) {
		return fmt.Sprintf("CLÁUSULA %s - %s", clauseOrdinals[i], title)
	}
	return fmt.Sprintf("CLÁUSULA %dª - %s", i+1, title)
}

func (a *Assembler) writeHeader(b *strings.Builder, docType models.DocumentType, r *models.CaseRecord) {
	esc := html.EscapeString
	detail := func(key, def string) string { return esc(r.Detail(key, def)) }
	upper := func(key, def string) string { return esc(strings.ToUpper(r.Detail(key, def))) }

	switch docType {
	case models.DocLaborAction:
		fmt.Fprintf(b, "<p><strong>EXCELENTÍSSIMO(A) SENHOR(A) DOUTOR(A) JUIZ(A) DA ___ VARA DO TRABALHO DE %s</strong></p>\n",
			upper("comarca", "[COMARCA]"))
		b.WriteString("<h1>RECLAMAÇÃO TRABALHISTA</h1>\n")
		fmt.Fprintf(b, "<p>%s, vem, respeitosamente, à presença de Vossa Excelência, por seu advogado, propor a presente <strong>RECLAMAÇÃO TRABALHISTA</strong> em face de %s, pelos fatos e fundamentos a seguir expostos.</p>\n",
			describeParty(r.Author), describeParty(r.Respondent))

	case models.DocCriminalComplaint:
		fmt.Fprintf(b, "<p><strong>EXCELENTÍSSIMO(A) SENHOR(A) DOUTOR(A) JUIZ(A) DE DIREITO DA ___ VARA CRIMINAL DA COMARCA DE %s</strong></p>\n",
			upper("comarca", "[COMARCA]"))
		b.WriteString("<h1>QUEIXA-CRIME</h1>\n")
		fmt.Fprintf(b, "<p>%s, vem, respeitosamente, por seu advogado, oferecer a presente <strong>QUEIXA-CRIME</strong> em face de %s, pela prática do crime de %s, pelos fatos e fundamentos a seguir expostos.</p>\n",
			describeParty(r.Author), describeParty(r.Respondent), detail("crime", "[CRIME IMPUTADO]"))

	case models.DocHabeasCorpus:
		fmt.Fprintf(b, "<p><strong>EXCELENTÍSSIMO(A) SENHOR(A) DESEMBARGADOR(A) PRESIDENTE DO %s</strong></p>\n",
			upper("tribunal", "[TRIBUNAL]"))
		b.WriteString("<h1>HABEAS CORPUS COM PEDIDO LIMINAR</h1>\n")
		fmt.Fprintf(b, "<p>%s, vem impetrar a presente ordem de <strong>HABEAS CORPUS</strong>, com pedido liminar, em favor de %s, atualmente recolhido(a) em %s, contra ato praticado por %s, nos autos do processo nº %s, pelos fatos e fundamentos a seguir expostos.</p>\n",
			describeParty(r.Author), describeParty(r.Patient), detail("local_prisao", "[LOCAL DA PRISÃO]"),
			describeParty(r.Respondent), detail("processo", "[NÚMERO DO PROCESSO]"))

	case models.DocContract:
		fmt.Fprintf(b, "<h1>CONTRATO DE %s</h1>\n", upper(contractSubtypeDetail, "Prestação de Serviços"))
		fmt.Fprintf(b, "<p>Pelo presente instrumento particular, de um lado, <strong>CONTRATANTE</strong>: %s; e, de outro lado, <strong>CONTRATADO</strong>: %s; têm entre si justo e contratado o seguinte:</p>\n",
			describeParty(r.Contractor), describeParty(r.Contracted))

	case models.DocLegalOpinion:
		b.WriteString("<h1>PARECER JURÍDICO</h1>\n")
		fmt.Fprintf(b, "<p><strong>Consulente:</strong> %s</p>\n", describeParty(r.Author))
		if area := r.Detail("area", ""); area != "" {
			fmt.Fprintf(b, "<p><strong>Área:</strong> %s</p>\n", esc(area))
		}

	case models.DocCaseStudy:
		fmt.Fprintf(b, "<h1>ESTUDO DE CASO: %s</h1>\n", upper("titulo", "[TÍTULO DO CASO]"))
		if area := r.Detail("area", ""); area != "" {
			fmt.Fprintf(b, "<p><strong>Área do direito:</strong> %s</p>\n", esc(area))
		}
		if goal := r.Detail("objetivo", ""); goal != "" {
			fmt.Fprintf(b, "<p><strong>Objetivo:</strong> %s</p>\n", esc(goal))
		}

	case models.DocJurisprudenceSearch:
		fmt.Fprintf(b, "<h1>PESQUISA DE JURISPRUDÊNCIA: %s</h1>\n", upper("tema", "[TEMA DA PESQUISA]"))
		fmt.Fprintf(b, "<p><strong>Tribunais:</strong> %s</p>\n", detail("tribunal", "STF, STJ e tribunais estaduais"))
		if period := r.Detail("periodo", ""); period != "" {
			fmt.Fprintf(b, "<p><strong>Período:</strong> %s</p>\n", esc(period))
		}

	default:
		fmt.Fprintf(b, "<p><strong>EXCELENTÍSSIMO(A) SENHOR(A) DOUTOR(A) JUIZ(A) DE DIREITO DA %s DA COMARCA DE %s</strong></p>\n",
			upper("vara", "___ VARA CÍVEL"), upper("comarca", "[COMARCA]"))
		action := upper("tipo_acao", "AÇÃO DE OBRIGAÇÃO DE FAZER C/C INDENIZAÇÃO")
		fmt.Fprintf(b, "<h1>%s</h1>\n", action)
		fmt.Fprintf(b, "<p>%s, vem, respeitosamente, à presença de Vossa Excelência, por seu advogado, propor a presente <strong>%s</strong> em face de %s, pelos fatos e fundamentos a seguir expostos.</p>\n",
			describeParty(r.Author), action, describeParty(r.Respondent))
	}
}

func (a *Assembler) writeClosing(b *strings.Builder, docType models.DocumentType, r *models.CaseRecord) {
	esc := html.EscapeString

	switch docType {
	case models.DocCivilAction, models.DocLaborAction, models.DocCriminalComplaint, models.DocHabeasCorpus:
		if r.ValorCausa != "" {
			fmt.Fprintf(b, "<p>Dá-se à causa o valor de %s.</p>\n", esc(r.ValorCausa))
		}
		b.WriteString("<p>Nestes termos, pede deferimento.</p>\n")
	case models.DocContract:
		b.WriteString("<p>E, por estarem assim justas e contratadas, as partes assinam o presente instrumento em 2 (duas) vias de igual teor e forma, na presença das testemunhas abaixo.</p>\n")
	}

	place := r.Detail("comarca", r.Detail("foro", "[LOCAL]"))
	fmt.Fprintf(b, "<p>%s, %s.</p>\n", esc(place), longDate(a.now()))

	switch docType {
	case models.DocContract:
		fmt.Fprintf(b, "<p>_______________________________<br>%s<br>CONTRATANTE</p>\n", esc(partyName(r.Contractor, "[NOME DO CONTRATANTE]")))
		fmt.Fprintf(b, "<p>_______________________________<br>%s<br>CONTRATADO</p>\n", esc(partyName(r.Contracted, "[NOME DO CONTRATADO]")))
		b.WriteString("<p><strong>TESTEMUNHAS:</strong></p>\n")
		b.WriteString("<p>1. _______________________________<br>Nome: [NOME]<br>CPF: [CPF]</p>\n")
		b.WriteString("<p>2. _______________________________<br>Nome: [NOME]<br>CPF: [CPF]</p>\n")
	case models.DocHabeasCorpus:
		fmt.Fprintf(b, "<p>_______________________________<br>%s<br>Impetrante</p>\n", esc(partyName(r.Author, "[NOME DO IMPETRANTE]")))
	case models.DocCaseStudy:
		b.WriteString("<p>_______________________________<br>[AUTOR(A) DO ESTUDO]</p>\n")
	case models.DocJurisprudenceSearch:
		b.WriteString("<p>_______________________________<br>[RESPONSÁVEL PELA PESQUISA]</p>\n")
	default:
		fmt.Fprintf(b, "<p>_______________________________<br>%s</p>\n", lawyerSignature)
	}
}

// describeParty renders a party's qualification line with escaped values
func describeParty(p *models.Party) string {
	if p == nil {
		return "[PARTE NÃO INFORMADA]"
	}
	parts := []string{"<strong>" + html.EscapeString(p.Name) + "</strong>"}
	if p.Qualification != "" {
		parts = append(parts, html.EscapeString(p.Qualification))
	}
	if p.CNPJ != "" {
		parts = append(parts, "inscrito(a) no CNPJ sob o nº "+html.EscapeString(p.CNPJ))
	}
	if p.CPF != "" {
		parts = append(parts, "inscrito(a) no CPF sob o nº "+html.EscapeString(p.CPF))
	}
	if p.RG != "" {
		parts = append(parts, "portador(a) do RG nº "+html.EscapeString(p.RG))
	}
	if p.Address != "" {
		parts = append(parts, "com endereço em "+html.EscapeString(p.Address))
	}
	return strings.Join(parts, ", ")
}

func partyName(p *models.Party, def string) string {
	if p == nil || p.Name == "" {
		return def
	}
	return p.Name
}

func longDate(t time.Time) string {
	return fmt.Sprintf("%d de %s de %d", t.Day(), monthNames[t.Month()-1], t.Year())
}
