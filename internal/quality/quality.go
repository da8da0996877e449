// Package quality computes training-sample quality scores.
// Scoring is pure: identical inputs always produce identical scores,
// which keeps training dataset selection reproducible.
package quality

// Scorer computes a scalar fitness score for a training sample from its
// per-field extraction confidences and user validation coverage.
type Scorer struct {
	// ValidationPenalty is deducted for every field with no user validation.
	ValidationPenalty float64
}

// NewScorer creates a Scorer with the given per-field validation penalty.
func NewScorer(validationPenalty float64) Scorer {
	return Scorer{ValidationPenalty: validationPenalty}
}

// Score returns the quality of a sample as the mean of its field confidences,
// reduced by ValidationPenalty for each field lacking a user validation.
// The result is clamped to [0, 1]. Samples with no fields score 0.
func (s Scorer) Score(confidences map[string]float64, validatedFields map[string]bool) float64 {
	if len(confidences) == 0 {
		return 0
	}

	var sum float64
	unvalidated := 0

	for field, confidence := range confidences {
		sum += confidence
		if !validatedFields[field] {
			unvalidated++
		}
	}

	score := sum/float64(len(confidences)) - s.ValidationPenalty*float64(unvalidated)

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
