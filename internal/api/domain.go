package api

import (
	"github.com/fieldline/curator/internal/annotations"
	"github.com/fieldline/curator/internal/config"
	"github.com/fieldline/curator/internal/documents"
	"github.com/fieldline/curator/internal/feedback"
	"github.com/fieldline/curator/internal/models"
	"github.com/fieldline/curator/internal/orchestrator"
	"github.com/fieldline/curator/internal/quality"
	"github.com/fieldline/curator/internal/records"
	"github.com/fieldline/curator/internal/schemas"
	"github.com/fieldline/curator/internal/training"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Schemas      schemas.System
	Documents    documents.System
	Annotations  annotations.System
	Records      records.System
	Feedback     feedback.System
	Training     training.System
	Models       models.System
	Orchestrator *orchestrator.Orchestrator
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	db := runtime.Database.Connection()
	scorer := quality.NewScorer(cfg.Learning.ValidationPenalty)

	schemaSystem := schemas.New(db, runtime.Logger, runtime.Pagination)

	documentSystem := documents.New(
		db,
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	recordSystem := records.New(db, runtime.Logger, runtime.Pagination)

	annotationSystem := annotations.New(
		db,
		runtime.Logger,
		runtime.Pagination,
		schemaSystem,
		recordSystem,
		scorer,
		cfg.Learning.MinAnnotations,
	)

	feedbackSystem := feedback.New(
		db,
		runtime.Logger,
		runtime.Pagination,
		cfg.Learning.ReviewThreshold,
	)

	modelSystem := models.New(
		runtime.Storage,
		models.NewBlobLoader(runtime.Storage),
		runtime.Logger,
	)

	trainer := training.NewRemoteTrainer(
		cfg.Trainer.Endpoint,
		cfg.Trainer.Token,
		cfg.Trainer.TimeoutDuration(),
	)

	trainingSystem := training.New(
		db,
		runtime.Logger,
		runtime.Pagination,
		recordSystem,
		feedbackSystem,
		modelSystem,
		trainer,
		training.Config{
			QualityThreshold:     cfg.Learning.QualityThreshold,
			RetrainingThreshold:  cfg.Learning.RetrainingThreshold,
			PerformanceThreshold: cfg.Learning.PerformanceThreshold,
			MinAnnotations:       cfg.Learning.MinAnnotations,
			Timeout:              cfg.Trainer.TimeoutDuration(),
			MaxConcurrent:        cfg.Trainer.MaxJobs,
		},
	)

	learningLoop := orchestrator.New(
		runtime.Logger,
		feedbackSystem,
		documentSystem,
		recordSystem,
		trainingSystem,
		scorer,
		cfg.Learning.EvaluateIntervalDuration(),
	)

	return &Domain{
		Schemas:      schemaSystem,
		Documents:    documentSystem,
		Annotations:  annotationSystem,
		Records:      recordSystem,
		Feedback:     feedbackSystem,
		Training:     trainingSystem,
		Models:       modelSystem,
		Orchestrator: learningLoop,
	}
}

// Start registers the lifecycle-bound domain systems with the coordinator.
func (d *Domain) Start(runtime *Runtime) error {
	if err := d.Models.Start(runtime.Lifecycle); err != nil {
		return err
	}
	if err := d.Training.Start(runtime.Lifecycle); err != nil {
		return err
	}
	return d.Orchestrator.Start(runtime.Lifecycle)
}
