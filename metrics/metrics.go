package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DocumentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexdraft_documents_total",
			Help: "Total number of document generation requests by outcome",
		},
		[]string{"document_type", "outcome"},
	)

	SectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexdraft_sections_total",
			Help: "Total number of generated sections by outcome",
		},
		[]string{"document_type", "outcome"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lexdraft_generation_duration_seconds",
			Help:    "Duration of a full document generation in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"document_type"},
	)

	RevisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexdraft_revisions_total",
			Help: "Total number of validation-driven revisions by result",
		},
		[]string{"document_type", "result"},
	)

	ResearchResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lexdraft_research_results",
			Help:    "Number of snippets returned per search phrase",
			Buckets: []float64{0, 1, 2, 5, 10, 20},
		},
		[]string{"source"},
	)
)
