package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"lexdraft-backend/apperr"
	"lexdraft-backend/collector"
	"lexdraft-backend/logger"
	"lexdraft-backend/metrics"
	"lexdraft-backend/models"
)

// Researcher gathers snippets for a list of search phrases
type Researcher interface {
	Gather(ctx context.Context, phrases []string) *models.Research
}

// DraftService runs the generation pipeline for one submission
type DraftService struct {
	registry     *collector.Registry
	researcher   Researcher
	builder      *PromptBuilder
	generator    *SectionGenerator
	assembler    *Assembler
	validator    Validator
	maxRevisions int
	logger       logger.Logger
	now          func() time.Time
}

// DraftServiceOption is a functional option for DraftService
type DraftServiceOption func(*DraftService)

// DraftWithRegistry sets the collector registry
func DraftWithRegistry(registry *collector.Registry) DraftServiceOption {
	return func(s *DraftService) {
		s.registry = registry
	}
}

// DraftWithResearcher sets the research gatherer
func DraftWithResearcher(r Researcher) DraftServiceOption {
	return func(s *DraftService) {
		s.researcher = r
	}
}

// DraftWithPromptBuilder sets the prompt builder
func DraftWithPromptBuilder(b *PromptBuilder) DraftServiceOption {
	return func(s *DraftService) {
		s.builder = b
	}
}

// DraftWithGenerator sets the section generator
func DraftWithGenerator(g *SectionGenerator) DraftServiceOption {
	return func(s *DraftService) {
		s.generator = g
	}
}

// DraftWithValidator sets the validator; without one the revision loop is skipped
func DraftWithValidator(v Validator) DraftServiceOption {
	return func(s *DraftService) {
		s.validator = v
	}
}

// DraftWithMaxRevisions caps validation-driven revisions
func DraftWithMaxRevisions(n int) DraftServiceOption {
	return func(s *DraftService) {
		if n >= 0 {
			s.maxRevisions = n
		}
	}
}

// DraftWithLogger sets the logger
func DraftWithLogger(log logger.Logger) DraftServiceOption {
	return func(s *DraftService) {
		if log != nil {
			s.logger = log
		}
	}
}

// DraftWithClock sets the clock used for trace timestamps and document dates
func DraftWithClock(now func() time.Time) DraftServiceOption {
	return func(s *DraftService) {
		s.now = now
	}
}

// NewDraftService creates a new draft service
func NewDraftService(opts ...DraftServiceOption) *DraftService {
	s := &DraftService{
		maxRevisions: defaultMaxRevisions,
		logger:       logger.NewNop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.builder == nil {
		s.builder = NewPromptBuilder(defaultMaxPromptChars, s.logger)
	}
	if s.generator == nil {
		s.generator = NewSectionGenerator(nil, GeneratorWithLogger(s.logger))
	}
	if s.assembler == nil {
		s.assembler = NewAssembler()
	}
	s.assembler.now = s.now
	return s
}

// GenerateRequest is one form submission to turn into a document
type GenerateRequest struct {
	RequestID string
	FormData  models.RawFormData
	// Validate runs the validate/revise loop when a validator is configured
	Validate bool
}

// RevisionRequest asks for a document to be redrafted against reviewer recommendations
type RevisionRequest struct {
	RequestID       string
	FormData        models.RawFormData
	PreviousHTML    string
	Recommendations []string
}

// DraftResult is the outcome of a generation or revision request
type DraftResult struct {
	RequestID    string                             `json:"request_id"`
	DocumentType models.DocumentType                `json:"document_type"`
	Record       *models.CaseRecord                 `json:"record,omitempty"`
	HTML         string                             `json:"html,omitempty"`
	Sections     map[string]models.GeneratedSection `json:"-"`
	Research     *models.Research                   `json:"-"`
	Validation   *models.ValidationSummary          `json:"validation,omitempty"`
	Trace        models.Trace                       `json:"trace"`
}

var (
	ErrNoRegistry        = errors.New("collector registry not configured")
	ErrNoRecommendations = errors.New("revision requires at least one recommendation")
	ErrEmptySubmission   = errors.New("form data is empty")
)

const defaultMaxRevisions = 2

// Collect classifies the submission and runs its collector
func (s *DraftService) Collect(raw models.RawFormData) (models.DocumentType, *models.CaseRecord, error) {
	if s.registry == nil {
		return "", nil, apperr.New(models.StageCollecting, apperr.CodeInternal, "collector registry not configured", ErrNoRegistry)
	}
	if len(raw) == 0 {
		return "", nil, apperr.New(models.StageCollecting, apperr.CodeInvalidRequest, "form data is empty", ErrEmptySubmission)
	}
	return s.registry.Collect(raw)
}

// Generate drives a submission through collecting, research, drafting,
// assembly and the optional validate/revise loop. A non-nil result is
// returned alongside errors so callers can report the trace.
func (s *DraftService) Generate(ctx context.Context, req GenerateRequest) (*DraftResult, error) {
	start := s.now()
	res := s.newResult(req.RequestID)
	log := logger.ForRequest(s.logger, res.RequestID, "")

	if err := s.prepare(ctx, res, req.FormData); err != nil {
		return res, s.fail(res, err, models.StageCollecting)
	}
	log = logger.ForRequest(log, "", string(res.DocumentType))

	if err := s.draft(ctx, res, "", nil); err != nil {
		return res, s.fail(res, err, models.StageDrafting)
	}

	if req.Validate && s.validator != nil {
		res.Validation = s.validateLoop(ctx, res, log)
	}
	if !res.Trace.Current().Terminal() {
		s.step(res, models.StageDone, "")
	}
	metrics.DocumentsTotal.WithLabelValues(string(res.DocumentType), string(res.Trace.Current())).Inc()
	metrics.GenerationDuration.WithLabelValues(string(res.DocumentType)).Observe(s.now().Sub(start).Seconds())

	log.Info("Document generated", logger.Fields{
		"stage":    res.Trace.Current(),
		"sections": len(res.Sections),
		"duration": s.now().Sub(start).String(),
	})
	return res, nil
}

// Revise redrafts every section once against the given recommendations
func (s *DraftService) Revise(ctx context.Context, req RevisionRequest) (*DraftResult, error) {
	res := s.newResult(req.RequestID)
	if len(req.Recommendations) == 0 {
		return res, s.fail(res, apperr.New(models.StageRevising, apperr.CodeInvalidRequest, "no recommendations given", ErrNoRecommendations), models.StageRevising)
	}

	if err := s.prepare(ctx, res, req.FormData); err != nil {
		return res, s.fail(res, err, models.StageCollecting)
	}

	s.step(res, models.StageRevising, "")
	if err := s.draft(ctx, res, req.PreviousHTML, req.Recommendations); err != nil {
		return res, s.fail(res, err, models.StageRevising)
	}
	s.step(res, models.StageDone, "")

	metrics.RevisionsTotal.WithLabelValues(string(res.DocumentType), "requested").Inc()
	return res, nil
}

func (s *DraftService) newResult(requestID string) *DraftResult {
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return &DraftResult{RequestID: requestID}
}

// prepare runs collecting, classification and research
func (s *DraftService) prepare(ctx context.Context, res *DraftResult, raw models.RawFormData) error {
	s.step(res, models.StageCollecting, "")
	docType, record, err := s.Collect(raw)
	if err != nil {
		res.DocumentType = docType
		return err
	}
	res.DocumentType = docType
	res.Record = record
	s.step(res, models.StageClassified, docType.Label())

	s.step(res, models.StageResearching, "")
	if s.researcher != nil {
		res.Research = s.researcher.Gather(ctx, record.RequiredLegalGrounds)
	} else {
		res.Research = models.NewResearch(record.RequiredLegalGrounds)
	}
	if res.Research.Empty() && len(record.RequiredLegalGrounds) > 0 {
		logger.ForRequest(s.logger, res.RequestID, string(docType)).
			Debug("No research found, drafting without citations", logger.Fields{"grounds": len(record.RequiredLegalGrounds)})
	}
	return nil
}

// draft builds prompts, generates every section and assembles the document
func (s *DraftService) draft(ctx context.Context, res *DraftResult, previousHTML string, recommendations []string) error {
	if len(recommendations) == 0 {
		s.step(res, models.StageDrafting, "")
	}
	specs, err := s.builder.Build(res.DocumentType, res.Record, res.Research, previousHTML, recommendations)
	if err != nil {
		return err
	}

	sections := s.generator.GenerateAll(ctx, specs)
	for _, sec := range sections {
		outcome := "ok"
		if sec.Failed {
			outcome = "failed"
		}
		metrics.SectionsTotal.WithLabelValues(string(res.DocumentType), outcome).Inc()
	}

	doc, err := s.assembler.Assemble(res.DocumentType, res.Record, sections)
	if err != nil {
		return err
	}
	res.Sections = sections
	res.HTML = doc
	s.step(res, models.StageAssembled, "")
	return nil
}

// validateLoop alternates validating and revising until approval or the revision cap
func (s *DraftService) validateLoop(ctx context.Context, res *DraftResult, log logger.Logger) *models.ValidationSummary {
	summary := &models.ValidationSummary{}
	for {
		s.step(res, models.StageValidating, "")
		verdict, err := s.validator.Validate(ctx, res.DocumentType, res.Record, res.HTML)
		if err != nil {
			log.WithError(err).Warn("Validation failed, keeping current document", logger.Fields{"revisions": summary.Revisions})
			summary.Error = err.Error()
			return summary
		}
		summary.Status = verdict.Status
		summary.Recommendations = verdict.Recommendations
		if verdict.Status != models.ValidationNeedsRevision {
			return summary
		}

		if summary.Revisions >= s.maxRevisions {
			summary.GaveUp = true
			s.step(res, models.StageGaveUp, "revision limit reached")
			metrics.RevisionsTotal.WithLabelValues(string(res.DocumentType), "gave_up").Inc()
			log.Warn("Revision limit reached, returning last draft", logger.Fields{
				"revisions":       summary.Revisions,
				"recommendations": len(verdict.Recommendations),
			})
			return summary
		}

		summary.Revisions++
		s.step(res, models.StageRevising, "")
		if err := s.draft(ctx, res, res.HTML, verdict.Recommendations); err != nil {
			log.WithError(err).Error("Revision failed, keeping previous draft", nil)
			summary.Error = err.Error()
			return summary
		}
		metrics.RevisionsTotal.WithLabelValues(string(res.DocumentType), "revised").Inc()
	}
}

func (s *DraftService) step(res *DraftResult, stage models.Stage, description string) {
	res.Trace = append(res.Trace, models.GenerationStep{Stage: stage, Description: description, At: s.now()})
}

func (s *DraftService) fail(res *DraftResult, err error, fallback models.Stage) error {
	appErr := apperr.As(err, fallback)
	s.step(res, models.StageFailed, appErr.Message)
	docType := string(res.DocumentType)
	if docType == "" {
		docType = "unknown"
	}
	metrics.DocumentsTotal.WithLabelValues(docType, "failed").Inc()
	logger.ForRequest(s.logger, res.RequestID, string(res.DocumentType)).WithError(err).
		Error("Document generation failed", logger.Fields{
			logger.FieldStage: appErr.Stage,
			"code":            appErr.Code,
		})
	return appErr
}
