package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"lexdraft-backend/llm"
	"lexdraft-backend/logger"
	"lexdraft-backend/models"
)

// Validator reviews an assembled document
type Validator interface {
	Validate(ctx context.Context, docType models.DocumentType, record *models.CaseRecord, documentHTML string) (models.ValidationResult, error)
}

// ValidatorFunc adapts a function to Validator
type ValidatorFunc func(ctx context.Context, docType models.DocumentType, record *models.CaseRecord, documentHTML string) (models.ValidationResult, error)

func (f ValidatorFunc) Validate(ctx context.Context, docType models.DocumentType, record *models.CaseRecord, documentHTML string) (models.ValidationResult, error) {
	return f(ctx, docType, record, documentHTML)
}

const validatorTemperature = 0.1

const validationPrompt = `Você é um revisor jurídico sênior. Avalie o documento abaixo (%s) quanto a:
- fidelidade aos DADOS DO CASO (nomes, datas e valores não podem ser inventados);
- completude das seções esperadas e coerência entre fatos, fundamentos e pedidos;
- correção técnica e linguagem jurídica formal.

Responda SOMENTE com um objeto JSON, sem texto adicional, no formato:
{"status": "approved" | "needs_revision", "recommendations": ["recomendação objetiva", ...]}

Use "approved" quando o documento puder ser entregue sem alterações relevantes.

DADOS DO CASO (JSON):
%s

DOCUMENTO:
%s`

// LLMValidator asks the completion service for a JSON verdict
type LLMValidator struct {
	completer      llm.Completer
	maxPromptChars int
	logger         logger.Logger
}

// NewLLMValidator creates a validator backed by completer
func NewLLMValidator(completer llm.Completer, maxPromptChars int, log logger.Logger) *LLMValidator {
	if maxPromptChars <= 0 {
		maxPromptChars = defaultMaxPromptChars
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &LLMValidator{completer: completer, maxPromptChars: maxPromptChars, logger: log}
}

func (v *LLMValidator) Validate(ctx context.Context, docType models.DocumentType, record *models.CaseRecord, documentHTML string) (models.ValidationResult, error) {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return models.ValidationResult{}, fmt.Errorf("serialize case record: %w", err)
	}

	prompt, _ := llm.Truncate(fmt.Sprintf(validationPrompt, docType.Label(), data, documentHTML), v.maxPromptChars)
	text, err := v.completer.Complete(ctx, prompt, llm.Params{Temperature: validatorTemperature})
	if err != nil {
		return models.ValidationResult{}, fmt.Errorf("validation call failed: %w", err)
	}

	result, ok := parseVerdict(text)
	if !ok {
		v.logger.Warn("Unparsable validation verdict, approving document", logger.Fields{
			"document_type": docType,
			"response":      truncateForLog(text),
		})
		return models.ValidationResult{Status: models.ValidationApproved}, nil
	}
	return result, nil
}

// parseVerdict reads the JSON verdict. needs_revision without recommendations
// counts as approved since there is nothing to revise against.
func parseVerdict(text string) (models.ValidationResult, bool) {
	text = llm.StripCodeFences(text)
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		text = text[start : end+1]
	}

	var raw struct {
		Status          string   `json:"status"`
		Recommendations []string `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return models.ValidationResult{}, false
	}

	var recs []string
	for _, r := range raw.Recommendations {
		if r = strings.TrimSpace(r); r != "" {
			recs = append(recs, r)
		}
	}

	switch models.ValidationStatus(strings.ToLower(strings.TrimSpace(raw.Status))) {
	case models.ValidationApproved:
		return models.ValidationResult{Status: models.ValidationApproved, Recommendations: recs}, true
	case models.ValidationNeedsRevision:
		if len(recs) == 0 {
			return models.ValidationResult{Status: models.ValidationApproved}, true
		}
		return models.ValidationResult{Status: models.ValidationNeedsRevision, Recommendations: recs}, true
	}
	return models.ValidationResult{}, false
}

func truncateForLog(s string) string {
	out, _ := llm.Truncate(s, 300)
	return out
}
