package collector

import (
	"strings"

	"lexdraft-backend/fields"
	"lexdraft-backend/models"
)

// Classifier infers the DocumentType of a raw form submission
type Classifier struct {
	cfg ClassifierConfig
}

// NewClassifier creates a classifier from catalog settings
func NewClassifier(cfg ClassifierConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify never fails: unrecognized input yields models.DefaultDocumentType.
// A matching override on the type field beats key signatures; otherwise the
// first signature sharing a key with the non-blank form fields wins.
func (c *Classifier) Classify(raw models.RawFormData) (docType models.DocumentType) {
	defer func() {
		if r := recover(); r != nil {
			docType = models.DefaultDocumentType
		}
	}()

	data := fields.NormalizeData(raw)
	return c.ClassifyData(data)
}

// ClassifyData classifies already-normalized form data
func (c *Classifier) ClassifyData(data fields.Data) models.DocumentType {
	if c.cfg.TypeField != "" {
		if value := fields.Fold(data[c.cfg.TypeField]); value != "" {
			for _, o := range c.cfg.Overrides {
				if strings.Contains(value, fields.Fold(o.Contains)) {
					return o.Type
				}
			}
		}
	}

	relevant := data.RelevantKeys()
	for _, sig := range c.cfg.Signatures {
		for _, key := range sig.Keys {
			if relevant[key] {
				return sig.Type
			}
		}
	}
	return models.DefaultDocumentType
}
