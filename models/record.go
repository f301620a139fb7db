package models

// Party identifies one side of a document (author, respondent, patient, ...)
type Party struct {
	Name          string `json:"name"`
	Qualification string `json:"qualification,omitempty"`
	CPF           string `json:"cpf,omitempty"`
	CNPJ          string `json:"cnpj,omitempty"`
	RG            string `json:"rg,omitempty"`
	Address       string `json:"address,omitempty"`
}

// CaseRecord is the canonical structured output of a collector.
// Every party leaf carries either a resolved value or a bracketed placeholder.
type CaseRecord struct {
	DocumentType         DocumentType      `json:"document_type"`
	Author               *Party            `json:"author,omitempty"`
	Respondent           *Party            `json:"respondent,omitempty"`
	Patient              *Party            `json:"patient,omitempty"`
	Contractor           *Party            `json:"contractor,omitempty"`
	Contracted           *Party            `json:"contracted,omitempty"`
	ConsolidatedFacts    string            `json:"consolidated_facts"`
	Request              string            `json:"request,omitempty"`
	ValorCausa           string            `json:"valor_causa,omitempty"`
	RequiredLegalGrounds []string          `json:"required_legal_grounds"`
	Details              map[string]string `json:"details,omitempty"`
}

// PartyRole names a party slot in a CaseRecord
type PartyRole string

const (
	RoleAuthor     PartyRole = "author"
	RoleRespondent PartyRole = "respondent"
	RolePatient    PartyRole = "patient"
	RoleContractor PartyRole = "contractor"
	RoleContracted PartyRole = "contracted"
)

// PartyRoles lists every party slot in display order
var PartyRoles = []PartyRole{RoleAuthor, RoleRespondent, RolePatient, RoleContractor, RoleContracted}

// Party returns the party stored under role, or nil
func (r *CaseRecord) Party(role PartyRole) *Party {
	switch role {
	case RoleAuthor:
		return r.Author
	case RoleRespondent:
		return r.Respondent
	case RolePatient:
		return r.Patient
	case RoleContractor:
		return r.Contractor
	case RoleContracted:
		return r.Contracted
	}
	return nil
}

// SetParty stores p under role
func (r *CaseRecord) SetParty(role PartyRole, p *Party) {
	switch role {
	case RoleAuthor:
		r.Author = p
	case RoleRespondent:
		r.Respondent = p
	case RolePatient:
		r.Patient = p
	case RoleContractor:
		r.Contractor = p
	case RoleContracted:
		r.Contracted = p
	}
}

// Detail returns a type-specific leaf value, or def when absent
func (r *CaseRecord) Detail(key, def string) string {
	if v, ok := r.Details[key]; ok && v != "" {
		return v
	}
	return def
}
