package service

import (
	"strings"

	"lexdraft-backend/fields"
	"lexdraft-backend/models"
)

// SectionDef describes one drafted section of a document type
type SectionDef struct {
	Name     string
	Title    string
	Task     string
	MinWords int
	// Research marks sections that receive the retrieved snippets
	Research bool
}

var (
	secFatos = SectionDef{Name: "fatos", Title: "DOS FATOS", MinWords: 400,
		Task: "Narre os fatos de forma cronológica, clara e objetiva, destacando os pontos relevantes para a tese."}
	secDireito = SectionDef{Name: "direito", Title: "DO DIREITO", MinWords: 600, Research: true,
		Task: "Desenvolva a fundamentação jurídica, citando a legislação aplicável (artigos e diplomas) e relacionando-a aos fatos."}
	secJurisprudencia = SectionDef{Name: "jurisprudencia", Title: "DA JURISPRUDÊNCIA", MinWords: 400, Research: true,
		Task: "Apresente precedentes dos tribunais que sustentem a tese, usando somente decisões presentes na pesquisa jurídica fornecida."}
	secPedidos = SectionDef{Name: "pedidos", Title: "DOS PEDIDOS", MinWords: 250,
		Task: "Formule os pedidos de forma itemizada, incluindo citação da parte contrária, procedência, custas e honorários quando cabíveis."}
)

var sectionCatalog = map[models.DocumentType][]SectionDef{
	models.DocCivilAction: {
		secFatos,
		secDireito,
		secJurisprudencia,
		{Name: "doutrina", Title: "DA DOUTRINA", MinWords: 300, Research: true,
			Task: "Apresente o entendimento doutrinário pertinente, sem atribuir citações a autores que não constem da pesquisa fornecida."},
		secPedidos,
	},
	models.DocLaborAction: {
		secFatos,
		{Name: "direito", Title: "DO DIREITO", MinWords: 600, Research: true,
			Task: "Fundamente cada verba pleiteada na CLT, na Constituição Federal e nas súmulas do TST aplicáveis."},
		secJurisprudencia,
		{Name: "pedidos", Title: "DOS PEDIDOS", MinWords: 300,
			Task: "Liste de forma itemizada e liquidada, quando possível, cada verba trabalhista pleiteada."},
	},
	models.DocCriminalComplaint: {
		secFatos,
		{Name: "tipificacao", Title: "DA TIPIFICAÇÃO PENAL", MinWords: 300, Research: true,
			Task: "Enquadre a conduta descrita no tipo penal correspondente, demonstrando cada elementar do crime."},
		secDireito,
		{Name: "pedidos", Title: "DOS PEDIDOS", MinWords: 200,
			Task: "Requeira o recebimento da queixa-crime, a citação do querelado, a oitiva das testemunhas e a condenação nas penas cabíveis."},
	},
	models.DocHabeasCorpus: {
		secFatos,
		{Name: "ilegalidade", Title: "DO CONSTRANGIMENTO ILEGAL", MinWords: 400, Research: true,
			Task: "Demonstre o constrangimento ilegal sofrido pelo paciente e a ilegalidade do ato da autoridade coatora."},
		secDireito,
		secJurisprudencia,
		{Name: "liminar", Title: "DO PEDIDO LIMINAR", MinWords: 250,
			Task: "Demonstre o fumus boni iuris e o periculum in mora que justificam a concessão liminar da ordem."},
		{Name: "pedidos", Title: "DOS PEDIDOS", MinWords: 200,
			Task: "Requeira a concessão liminar da ordem, a expedição de alvará de soltura e, ao final, a confirmação da ordem."},
	},
	models.DocContract: {
		{Name: "objeto", Title: "DO OBJETO", MinWords: 150,
			Task: "Redija a cláusula que descreve com precisão o objeto do contrato."},
		{Name: "preco", Title: "DO PREÇO E DA FORMA DE PAGAMENTO", MinWords: 150,
			Task: "Redija a cláusula de preço, forma de pagamento, reajuste e encargos por atraso."},
		{Name: "prazo", Title: "DO PRAZO", MinWords: 100,
			Task: "Redija a cláusula de vigência e prazo de execução do contrato."},
		{Name: "obrigacoes", Title: "DAS OBRIGAÇÕES DAS PARTES", MinWords: 250,
			Task: "Redija as obrigações do contratante e do contratado em subitens separados."},
		{Name: "penalidades", Title: "DAS PENALIDADES", MinWords: 150,
			Task: "Redija a cláusula penal e as multas por inadimplemento."},
		{Name: "rescisao", Title: "DA RESCISÃO", MinWords: 150,
			Task: "Redija as hipóteses de rescisão, o aviso prévio e seus efeitos."},
		{Name: "foro", Title: "DO FORO", MinWords: 50,
			Task: "Redija a cláusula de eleição de foro."},
	},
	models.DocLegalOpinion: {
		{Name: "relatorio", Title: "RELATÓRIO", MinWords: 250,
			Task: "Relate a consulta formulada e o contexto fático apresentado pelo consulente."},
		{Name: "fundamentacao", Title: "FUNDAMENTAÇÃO", MinWords: 700, Research: true,
			Task: "Analise juridicamente a questão consultada, com base na legislação, doutrina e jurisprudência fornecidas."},
		{Name: "conclusao", Title: "CONCLUSÃO", MinWords: 200,
			Task: "Responda objetivamente à consulta, indicando riscos e recomendações práticas."},
	},
	models.DocCaseStudy: {
		{Name: "contexto", Title: "CONTEXTO DO CASO", MinWords: 300,
			Task: "Apresente o caso, as partes envolvidas e o contexto em que os fatos ocorreram."},
		{Name: "questoes", Title: "QUESTÕES JURÍDICAS", MinWords: 200,
			Task: "Identifique e enuncie as questões jurídicas centrais do caso."},
		{Name: "analise", Title: "ANÁLISE", MinWords: 700, Research: true,
			Task: "Analise cada questão jurídica à luz da legislação e da jurisprudência fornecidas."},
		{Name: "conclusao", Title: "CONCLUSÃO", MinWords: 200,
			Task: "Sintetize as conclusões do estudo e os aprendizados do caso."},
	},
	models.DocJurisprudenceSearch: {
		{Name: "sintese", Title: "SÍNTESE DO TEMA", MinWords: 200,
			Task: "Delimite o tema pesquisado e as controvérsias jurídicas envolvidas."},
		{Name: "precedentes", Title: "PRECEDENTES RELEVANTES", MinWords: 600, Research: true,
			Task: "Organize os precedentes encontrados na pesquisa, indicando tribunal, número do processo quando disponível e a tese firmada."},
		{Name: "tendencia", Title: "TENDÊNCIA JURISPRUDENCIAL", MinWords: 250, Research: true,
			Task: "Indique a orientação predominante dos tribunais e eventuais divergências."},
	},
}

// contract clauses only drafted for service, technology, franchise or creative contracts
var (
	secPropriedade = SectionDef{Name: "propriedade", Title: "DA PROPRIEDADE INTELECTUAL", MinWords: 200,
		Task: "Redija a cláusula de titularidade e cessão dos direitos de propriedade intelectual produzidos na execução do contrato."}
	secConfidencialidade = SectionDef{Name: "confidencialidade", Title: "DA CONFIDENCIALIDADE", MinWords: 150,
		Task: "Redija a cláusula de confidencialidade, com prazo de vigência e penalidade por descumprimento."}
)

var ipKeywords = []string{
	"servico", "servicos", "prestacao de servicos", "consultoria", "desenvolvimento",
	"software", "ti", "tecnologia", "franquia", "obra", "criativa", "criativo", "licenca",
	"licenciamento", "services", "service", "software development", "development",
	"franchise", "creative work", "creative",
}

const contractSubtypeDetail = "tipo_contrato"

// SectionsFor returns the ordered sections drafted for docType
func SectionsFor(docType models.DocumentType, record *models.CaseRecord) []SectionDef {
	defs, ok := sectionCatalog[docType]
	if !ok {
		defs = sectionCatalog[models.DefaultDocumentType]
	}
	if docType != models.DocContract {
		return append([]SectionDef(nil), defs...)
	}

	subtype := ""
	if record != nil {
		subtype = record.Detail(contractSubtypeDetail, "")
	}
	out := make([]SectionDef, 0, len(defs)+2)
	for _, d := range defs {
		if d.Name == "rescisao" && ContractNeedsIPClauses(subtype) {
			out = append(out, secPropriedade, secConfidencialidade)
		}
		out = append(out, d)
	}
	return out
}

// ContractNeedsIPClauses reports whether a contract subtype matches the
// service/technology/franchise/creative keyword set, on whole words
func ContractNeedsIPClauses(subtype string) bool {
	words := strings.FieldsFunc(fields.Fold(subtype), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	if len(words) == 0 {
		return false
	}
	padded := " " + strings.Join(words, " ") + " "
	for _, kw := range ipKeywords {
		if strings.Contains(padded, " "+kw+" ") {
			return true
		}
	}
	return false
}

// SectionNames lists the section names of defs in order
func SectionNames(defs []SectionDef) []string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}
