// Package collector turns raw form submissions into canonical case records.
//
// Every document type is served by the same Collector, parameterized by a
// TypeConfig from the catalog: mapping table, fact templates, search-phrase
// strategy, party and detail specs.
package collector

import (
	"errors"
	"fmt"
	"strings"

	"lexdraft-backend/apperr"
	"lexdraft-backend/fields"
	"lexdraft-backend/logger"
	"lexdraft-backend/models"
)

var ErrUnknownType = errors.New("unknown document type")

const valuePlaceholder = "{value}"

// Collector builds CaseRecords for one document type
type Collector struct {
	docType   models.DocumentType
	cfg       *TypeConfig
	extractor PhraseExtractor
	logger    logger.Logger
}

// NewCollector creates a collector for docType
func NewCollector(docType models.DocumentType, cfg *TypeConfig, log logger.Logger) *Collector {
	if log == nil {
		log = logger.NewNop()
	}
	return &Collector{
		docType:   docType,
		cfg:       cfg,
		extractor: newExtractor(cfg.Extraction),
		logger:    log.With(logger.Fields{"document_type": string(docType)}),
	}
}

// DocumentType returns the type this collector serves
func (c *Collector) DocumentType() models.DocumentType {
	return c.docType
}

// Collect runs normalize, consolidate facts, extract phrases and assemble.
// Any fault inside the pipeline is returned as a COLLECTOR_FAILED error.
func (c *Collector) Collect(raw models.RawFormData) (record *models.CaseRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Collector pipeline panicked", logger.Fields{"panic": fmt.Sprint(r)})
			record = nil
			err = apperr.New(models.StageCollecting, apperr.CodeCollectorFailed,
				fmt.Sprintf("could not collect %s data", c.docType), fmt.Errorf("panic: %v", r))
		}
	}()

	data := fields.NormalizeData(raw)
	return c.CollectData(data), nil
}

// CollectData builds a record from already-normalized form data
func (c *Collector) CollectData(data fields.Data) *models.CaseRecord {
	facts := c.consolidateFacts(data)
	phrases := c.extractor.Extract(c.extractionText(data, facts))

	record := &models.CaseRecord{
		DocumentType:         c.docType,
		ConsolidatedFacts:    facts,
		RequiredLegalGrounds: phrases,
	}
	if c.cfg.RequestField != "" {
		record.Request = c.cfg.Mappings.Resolve(data, c.cfg.RequestField, "")
	}
	if vc := c.cfg.ValorCausa; vc != nil {
		record.ValorCausa = formatCurrency(c.cfg.Mappings.Resolve(data, vc.Field, ""), vc.Default)
	}
	for _, spec := range c.cfg.Parties {
		record.SetParty(spec.Role, c.buildParty(data, spec))
	}
	for _, d := range c.cfg.Details {
		value := c.cfg.Mappings.Resolve(data, d.Field, d.Default)
		if value == "" {
			continue
		}
		if record.Details == nil {
			record.Details = make(map[string]string, len(c.cfg.Details))
		}
		record.Details[d.Key] = value
	}

	c.logger.Debug("Collected case record", logger.Fields{
		"facts_length": len(facts),
		"phrases":      phrases,
	})
	return record
}

// consolidateFacts renders present narrative fields in template order
func (c *Collector) consolidateFacts(data fields.Data) string {
	var parts []string
	for _, f := range c.cfg.Facts {
		value := c.cfg.Mappings.Resolve(data, f.Field, "")
		if value == "" {
			continue
		}
		parts = append(parts, strings.ReplaceAll(f.Template, valuePlaceholder, value))
	}
	return strings.Join(parts, " ")
}

func (c *Collector) extractionText(data fields.Data, facts string) string {
	parts := []string{facts}
	if c.cfg.RequestField != "" {
		parts = append(parts, c.cfg.Mappings.Resolve(data, c.cfg.RequestField, ""))
	}
	for _, f := range c.cfg.Extraction.ExtraFields {
		parts = append(parts, c.cfg.Mappings.Resolve(data, f, ""))
	}
	return strings.Join(parts, " ")
}

func (c *Collector) buildParty(data fields.Data, spec PartySpec) *models.Party {
	resolve := func(leaf, def string) string {
		return c.cfg.Mappings.Resolve(data, spec.Prefix+"_"+leaf, def)
	}

	party := &models.Party{Name: resolve("nome", spec.Placeholder)}
	if spec.Qualification {
		party.Qualification = resolve("qualificacao", "[QUALIFICAÇÃO]")
	}
	if spec.Documents {
		party.CNPJ = resolve("cnpj", "")
		party.CPF = resolve("cpf", "[CPF/CNPJ]")
		party.RG = resolve("rg", "")
		if c.cfg.Mappings.Has(data, spec.Prefix+"_cnpj") && !c.cfg.Mappings.Has(data, spec.Prefix+"_cpf") {
			party.CPF = ""
		}
	}
	if spec.Address {
		party.Address = resolve("endereco", "[ENDEREÇO]")
	}
	return party
}

func formatCurrency(value, def string) string {
	if value == "" {
		return def
	}
	if strings.HasPrefix(strings.ToUpper(value), "R$") {
		return value
	}
	return "R$ " + value
}

// Registry classifies submissions and dispatches them to the matching collector
type Registry struct {
	catalog    *Catalog
	classifier *Classifier
	collectors map[models.DocumentType]*Collector
}

// NewRegistry builds one collector per catalog entry
func NewRegistry(cat *Catalog, log logger.Logger) *Registry {
	r := &Registry{
		catalog:    cat,
		classifier: NewClassifier(cat.Classifier),
		collectors: make(map[models.DocumentType]*Collector, len(cat.Types)),
	}
	for docType, tc := range cat.Types {
		r.collectors[docType] = NewCollector(docType, tc, log)
	}
	return r
}

// Catalog returns the catalog the registry was built from
func (r *Registry) Catalog() *Catalog {
	return r.catalog
}

// Classify returns the document type for raw form data
func (r *Registry) Classify(raw models.RawFormData) models.DocumentType {
	return r.classifier.Classify(raw)
}

// Collector returns the collector for docType
func (r *Registry) Collector(docType models.DocumentType) (*Collector, error) {
	c, ok := r.collectors[docType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, docType)
	}
	return c, nil
}

// Collect classifies raw and runs the matching collector
func (r *Registry) Collect(raw models.RawFormData) (models.DocumentType, *models.CaseRecord, error) {
	docType := r.Classify(raw)
	c, err := r.Collector(docType)
	if err != nil {
		return docType, nil, apperr.New(models.StageClassified, apperr.CodeUnsupportedType, "no collector for document type", err)
	}
	record, err := c.Collect(raw)
	return docType, record, err
}
