package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvLearningMinAnnotations       = "CURATOR_LEARNING_MIN_ANNOTATIONS"
	EnvLearningRetrainingThreshold  = "CURATOR_LEARNING_RETRAINING_THRESHOLD"
	EnvLearningPerformanceThreshold = "CURATOR_LEARNING_PERFORMANCE_THRESHOLD"
	EnvLearningQualityThreshold     = "CURATOR_LEARNING_QUALITY_THRESHOLD"
	EnvLearningReviewThreshold      = "CURATOR_LEARNING_REVIEW_THRESHOLD"
	EnvLearningConfidenceFloor      = "CURATOR_LEARNING_CONFIDENCE_FLOOR"
	EnvLearningValidationPenalty    = "CURATOR_LEARNING_VALIDATION_PENALTY"
	EnvLearningEvaluateInterval     = "CURATOR_LEARNING_EVALUATE_INTERVAL"
)

// LearningConfig holds the continuous-learning thresholds. These are
// operational tuning knobs; the config file (checked into deployment
// repositories) is their audit trail.
type LearningConfig struct {
	// MinAnnotations is the completed-session count required before a
	// document type is considered trainable.
	MinAnnotations int `toml:"min_annotations"`
	// RetrainingThreshold is the number of new training records since the
	// last completed job that fires a threshold trigger.
	RetrainingThreshold int `toml:"retraining_threshold"`
	// PerformanceThreshold is the rolling field accuracy below which a
	// performance trigger fires.
	PerformanceThreshold float64 `toml:"performance_threshold"`
	// QualityThreshold is the minimum record quality score admitted to a
	// training dataset.
	QualityThreshold float64 `toml:"quality_threshold"`
	// ReviewThreshold is the extraction confidence below which a processed
	// document requires human review.
	ReviewThreshold float64 `toml:"review_threshold"`
	// ConfidenceFloor is the default per-annotation confidence floor for
	// training readiness; field schemas may override it.
	ConfidenceFloor float64 `toml:"confidence_floor"`
	// ValidationPenalty is the quality score deduction per field lacking a
	// user validation.
	ValidationPenalty float64 `toml:"validation_penalty"`
	// EvaluateInterval is how often the orchestrator evaluates training triggers.
	EvaluateInterval string `toml:"evaluate_interval"`
}

// EvaluateIntervalDuration returns EvaluateInterval as a time.Duration.
func (c *LearningConfig) EvaluateIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.EvaluateInterval)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *LearningConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *LearningConfig) Merge(overlay *LearningConfig) {
	if overlay.MinAnnotations != 0 {
		c.MinAnnotations = overlay.MinAnnotations
	}
	if overlay.RetrainingThreshold != 0 {
		c.RetrainingThreshold = overlay.RetrainingThreshold
	}
	if overlay.PerformanceThreshold != 0 {
		c.PerformanceThreshold = overlay.PerformanceThreshold
	}
	if overlay.QualityThreshold != 0 {
		c.QualityThreshold = overlay.QualityThreshold
	}
	if overlay.ReviewThreshold != 0 {
		c.ReviewThreshold = overlay.ReviewThreshold
	}
	if overlay.ConfidenceFloor != 0 {
		c.ConfidenceFloor = overlay.ConfidenceFloor
	}
	if overlay.ValidationPenalty != 0 {
		c.ValidationPenalty = overlay.ValidationPenalty
	}
	if overlay.EvaluateInterval != "" {
		c.EvaluateInterval = overlay.EvaluateInterval
	}
}

func (c *LearningConfig) loadDefaults() {
	if c.MinAnnotations == 0 {
		c.MinAnnotations = 5
	}
	if c.RetrainingThreshold == 0 {
		c.RetrainingThreshold = 50
	}
	if c.PerformanceThreshold == 0 {
		c.PerformanceThreshold = 0.8
	}
	if c.QualityThreshold == 0 {
		c.QualityThreshold = 0.7
	}
	if c.ReviewThreshold == 0 {
		c.ReviewThreshold = 0.6
	}
	if c.ConfidenceFloor == 0 {
		c.ConfidenceFloor = 0.5
	}
	if c.ValidationPenalty == 0 {
		c.ValidationPenalty = 0.1
	}
	if c.EvaluateInterval == "" {
		c.EvaluateInterval = "5m"
	}
}

func (c *LearningConfig) loadEnv() {
	loadInt := func(env string, target *int) {
		if v := os.Getenv(env); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*target = n
			}
		}
	}
	loadFloat := func(env string, target *float64) {
		if v := os.Getenv(env); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*target = f
			}
		}
	}

	loadInt(EnvLearningMinAnnotations, &c.MinAnnotations)
	loadInt(EnvLearningRetrainingThreshold, &c.RetrainingThreshold)
	loadFloat(EnvLearningPerformanceThreshold, &c.PerformanceThreshold)
	loadFloat(EnvLearningQualityThreshold, &c.QualityThreshold)
	loadFloat(EnvLearningReviewThreshold, &c.ReviewThreshold)
	loadFloat(EnvLearningConfidenceFloor, &c.ConfidenceFloor)
	loadFloat(EnvLearningValidationPenalty, &c.ValidationPenalty)

	if v := os.Getenv(EnvLearningEvaluateInterval); v != "" {
		c.EvaluateInterval = v
	}
}

func (c *LearningConfig) validate() error {
	if c.MinAnnotations < 1 {
		return fmt.Errorf("min_annotations must be positive")
	}
	if c.RetrainingThreshold < 1 {
		return fmt.Errorf("retraining_threshold must be positive")
	}

	ratios := map[string]float64{
		"performance_threshold": c.PerformanceThreshold,
		"quality_threshold":     c.QualityThreshold,
		"review_threshold":      c.ReviewThreshold,
		"confidence_floor":      c.ConfidenceFloor,
		"validation_penalty":    c.ValidationPenalty,
	}
	for name, v := range ratios {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0, 1]: %v", name, v)
		}
	}

	if _, err := time.ParseDuration(c.EvaluateInterval); err != nil {
		return fmt.Errorf("invalid evaluate_interval: %w", err)
	}
	return nil
}
