package collector

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"lexdraft-backend/fields"
	"lexdraft-backend/models"
)

//go:embed doctypes.yaml
var defaultCatalog []byte

const (
	StrategyNGram    = "ngram"
	StrategyKeywords = "keywords"

	defaultPhraseLimit    = 5
	defaultMinTokenLength = 4
)

var ErrInvalidCatalog = errors.New("invalid document-type catalog")

// Catalog is the declarative description of every supported document type
type Catalog struct {
	StopWords  []string                            `yaml:"stop_words"`
	Classifier ClassifierConfig                    `yaml:"classifier"`
	Types      map[models.DocumentType]*TypeConfig `yaml:"types"`
}

// ClassifierConfig drives DocumentType classification
type ClassifierConfig struct {
	// TypeField is the normalized key whose value may force a type
	TypeField  string      `yaml:"type_field"`
	Overrides  []Override  `yaml:"overrides"`
	Signatures []Signature `yaml:"signatures"`
}

// Override forces Type when the folded TypeField value contains Contains
type Override struct {
	Contains string              `yaml:"contains"`
	Type     models.DocumentType `yaml:"type"`
}

// Signature is a set of normalized keys characteristic of one document type.
// Signatures are checked in declaration order.
type Signature struct {
	Type models.DocumentType `yaml:"type"`
	Keys []string            `yaml:"keys"`
}

// TypeConfig describes how to build a CaseRecord for one document type
type TypeConfig struct {
	Mappings     fields.MappingTable `yaml:"mappings"`
	Facts        []FactTemplate      `yaml:"facts"`
	RequestField string              `yaml:"request_field"`
	ValorCausa   *DetailSpec         `yaml:"valor_causa"`
	Parties      []PartySpec         `yaml:"parties"`
	Details      []DetailSpec        `yaml:"details"`
	Extraction   ExtractionConfig    `yaml:"extraction"`
}

// FactTemplate renders one narrative field into the consolidated facts.
// "{value}" is replaced by the resolved value.
type FactTemplate struct {
	Field    string `yaml:"field"`
	Template string `yaml:"template"`
}

// PartySpec describes one party sub-record. Leaf fields are resolved from
// "<prefix>_nome", "<prefix>_qualificacao", "<prefix>_cpf" and so on.
type PartySpec struct {
	Role          models.PartyRole `yaml:"role"`
	Prefix        string           `yaml:"prefix"`
	Label         string           `yaml:"label"`
	Placeholder   string           `yaml:"placeholder"`
	Qualification bool             `yaml:"qualification"`
	Documents     bool             `yaml:"documents"`
	Address       bool             `yaml:"address"`
}

// DetailSpec copies one resolved field into CaseRecord.Details.
// An empty Default omits the key when nothing resolves.
type DetailSpec struct {
	Key     string `yaml:"key"`
	Field   string `yaml:"field"`
	Default string `yaml:"default"`
}

// ExtractionConfig selects and parameterizes the search-phrase strategy
type ExtractionConfig struct {
	Strategy        string    `yaml:"strategy"`
	StopWords       []string  `yaml:"stop_words"`
	MinTokenLength  int       `yaml:"min_token_length"`
	SortByLength    bool      `yaml:"sort_by_length"`
	Baseline        []string  `yaml:"baseline"`
	Triggers        []Trigger `yaml:"triggers"`
	DropWhenCrowded []string  `yaml:"drop_when_crowded"`
	Fallback        []string  `yaml:"fallback"`
	ExtraFields     []string  `yaml:"extra_fields"`
	Limit           int       `yaml:"limit"`
}

// Trigger adds Phrase when any Match substring occurs in the folded text
type Trigger struct {
	Match  []string `yaml:"match"`
	Phrase string   `yaml:"phrase"`
}

// LoadDefault parses the catalog embedded in the binary
func LoadDefault() (*Catalog, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// Load parses and validates a catalog
func Load(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cat Catalog
	if err := dec.Decode(&cat); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	cat.applyDefaults()
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Source reads catalog objects, e.g. a storage backend
type Source interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

// LoadFrom reads and validates the catalog stored under key
func LoadFrom(ctx context.Context, src Source, key string) (*Catalog, error) {
	rc, err := src.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", key, err)
	}
	defer rc.Close()
	return Load(rc)
}

// DefaultCatalogBytes returns a copy of the embedded catalog source
func DefaultCatalogBytes() []byte {
	return append([]byte(nil), defaultCatalog...)
}

func (c *Catalog) applyDefaults() {
	for _, tc := range c.Types {
		if tc == nil {
			continue
		}
		if tc.Extraction.Limit <= 0 {
			tc.Extraction.Limit = defaultPhraseLimit
		}
		if tc.Extraction.MinTokenLength <= 0 {
			tc.Extraction.MinTokenLength = defaultMinTokenLength
		}
		if len(tc.Extraction.StopWords) == 0 {
			tc.Extraction.StopWords = c.StopWords
		}
	}
}

// Validate checks the catalog for internal consistency. All problems are
// reported together.
func (c *Catalog) Validate() error {
	var errs []error

	for _, docType := range models.DocumentTypes {
		if c.Types[docType] == nil {
			errs = append(errs, fmt.Errorf("type %s: missing configuration", docType))
		}
	}
	if c.Classifier.TypeField != "" && fields.Normalize(c.Classifier.TypeField) != c.Classifier.TypeField {
		errs = append(errs, fmt.Errorf("classifier: type_field %q is not normalized", c.Classifier.TypeField))
	}
	for _, o := range c.Classifier.Overrides {
		if !o.Type.Valid() {
			errs = append(errs, fmt.Errorf("classifier: override to unknown type %q", o.Type))
		}
		if o.Contains == "" {
			errs = append(errs, fmt.Errorf("classifier: override to %s has empty match", o.Type))
		}
	}
	for i, sig := range c.Classifier.Signatures {
		if !sig.Type.Valid() {
			errs = append(errs, fmt.Errorf("classifier: signature %d has unknown type %q", i, sig.Type))
		}
		for _, key := range sig.Keys {
			if fields.Normalize(key) != key {
				errs = append(errs, fmt.Errorf("classifier: signature %s key %q is not normalized", sig.Type, key))
			}
		}
	}

	for docType, tc := range c.Types {
		if !docType.Valid() {
			errs = append(errs, fmt.Errorf("type %q: unknown document type", docType))
			continue
		}
		if tc == nil {
			continue
		}
		if err := tc.validate(); err != nil {
			errs = append(errs, fmt.Errorf("type %s: %w", docType, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return nil
}

func (tc *TypeConfig) validate() error {
	var errs []error
	if err := tc.Mappings.Validate(); err != nil {
		errs = append(errs, err)
	}
	known := func(field string) bool {
		_, ok := tc.Mappings[field]
		return ok
	}

	for _, f := range tc.Facts {
		if !known(f.Field) {
			errs = append(errs, fmt.Errorf("fact field %q has no mapping", f.Field))
		}
	}
	if tc.RequestField != "" && !known(tc.RequestField) {
		errs = append(errs, fmt.Errorf("request field %q has no mapping", tc.RequestField))
	}
	if tc.ValorCausa != nil && !known(tc.ValorCausa.Field) {
		errs = append(errs, fmt.Errorf("valor_causa field %q has no mapping", tc.ValorCausa.Field))
	}
	for _, d := range tc.Details {
		if !known(d.Field) {
			errs = append(errs, fmt.Errorf("detail %q field %q has no mapping", d.Key, d.Field))
		}
	}
	seenRoles := make(map[models.PartyRole]bool)
	for _, p := range tc.Parties {
		if seenRoles[p.Role] {
			errs = append(errs, fmt.Errorf("party role %q declared twice", p.Role))
		}
		seenRoles[p.Role] = true
		if !known(p.Prefix + "_nome") {
			errs = append(errs, fmt.Errorf("party %s has no %s_nome mapping", p.Role, p.Prefix))
		}
		if p.Placeholder == "" {
			errs = append(errs, fmt.Errorf("party %s has no placeholder", p.Role))
		}
	}

	ex := tc.Extraction
	switch ex.Strategy {
	case StrategyNGram:
	case StrategyKeywords:
		if len(ex.Baseline) == 0 && len(ex.Triggers) == 0 {
			errs = append(errs, errors.New("keywords strategy needs a baseline or triggers"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown extraction strategy %q", ex.Strategy))
	}
	if len(ex.Fallback) == 0 {
		errs = append(errs, errors.New("extraction has no fallback phrases"))
	}
	for _, f := range ex.ExtraFields {
		if !known(f) {
			errs = append(errs, fmt.Errorf("extraction field %q has no mapping", f))
		}
	}
	return errors.Join(errs...)
}
