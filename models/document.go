package models

// RawFormData is the flat key/value payload posted by the upstream form system.
// Keys are vendor-supplied labels with no fixed schema.
type RawFormData map[string]any

// DocumentType identifies which legal document a request produces
type DocumentType string

const (
	DocCivilAction         DocumentType = "acao_civel"
	DocLaborAction         DocumentType = "reclamacao_trabalhista"
	DocContract            DocumentType = "contrato"
	DocLegalOpinion        DocumentType = "parecer_juridico"
	DocCaseStudy           DocumentType = "estudo_de_caso"
	DocHabeasCorpus        DocumentType = "habeas_corpus"
	DocCriminalComplaint   DocumentType = "queixa_crime"
	DocJurisprudenceSearch DocumentType = "pesquisa_jurisprudencia"
)

// DefaultDocumentType is used when no signature matches
const DefaultDocumentType = DocCivilAction

// DocumentTypes lists every supported document type
var DocumentTypes = []DocumentType{
	DocCivilAction,
	DocLaborAction,
	DocContract,
	DocLegalOpinion,
	DocCaseStudy,
	DocHabeasCorpus,
	DocCriminalComplaint,
	DocJurisprudenceSearch,
}

// Valid reports whether t is one of the supported document types
func (t DocumentType) Valid() bool {
	for _, known := range DocumentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Label returns the human-readable Portuguese name of the document type
func (t DocumentType) Label() string {
	labels := map[DocumentType]string{
		DocCivilAction:         "Ação Cível",
		DocLaborAction:         "Reclamação Trabalhista",
		DocContract:            "Contrato",
		DocLegalOpinion:        "Parecer Jurídico",
		DocCaseStudy:           "Estudo de Caso",
		DocHabeasCorpus:        "Habeas Corpus",
		DocCriminalComplaint:   "Queixa-Crime",
		DocJurisprudenceSearch: "Pesquisa de Jurisprudência",
	}
	if label, ok := labels[t]; ok {
		return label
	}
	return string(t)
}
