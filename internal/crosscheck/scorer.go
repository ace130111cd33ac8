// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package crosscheck

// ConfidenceScorer turns validation outcomes into confidence values.
type ConfidenceScorer struct {
	config ConfidenceConfig
}

// NewConfidenceScorer creates a scorer over the given values.
func NewConfidenceScorer(config ConfidenceConfig) *ConfidenceScorer {
	return &ConfidenceScorer{config: config}
}

// FieldConfidence looks up the confidence for one field from which sources
// supplied it and whether they agreed. The result is always within [0, 1].
func (s *ConfidenceScorer) FieldConfidence(result FieldValidationResult) float64 {
	hasMRZ := result.MRZValue != nil
	hasVLM := result.VLMValue != nil

	var confidence float64
	switch {
	case hasMRZ && hasVLM && result.Validated:
		confidence = s.config.AgreementConfidence
	case hasMRZ && hasVLM:
		confidence = s.config.DisagreementBaseConfidence
	case hasMRZ:
		confidence = s.config.SingleSourceMRZConfidence
	case hasVLM:
		confidence = s.config.SingleSourceVLMConfidence
	default:
		confidence = 0.0
	}
	return clamp(confidence)
}

// FieldConfidences scores every result.
func (s *ConfidenceScorer) FieldConfidences(results []FieldValidationResult) map[Field]float64 {
	confidences := make(map[Field]float64, len(results))
	for _, r := range results {
		confidences[r.FieldName] = s.FieldConfidence(r)
	}
	return confidences
}

// DocumentConfidence is the weighted mean of the field confidences, with
// critical fields weighted higher. It returns nil when no field was scored.
func (s *ConfidenceScorer) DocumentConfidence(fieldConfidences map[Field]float64) *float64 {
	if len(fieldConfidences) == 0 {
		return nil
	}

	var weightedSum, totalWeight float64
	for _, f := range StandardFields {
		c, ok := fieldConfidences[f]
		if !ok {
			continue
		}
		w := s.weight(f)
		weightedSum += clamp(c) * w
		totalWeight += w
	}
	for f, c := range fieldConfidences {
		if f.IsStandard() {
			continue
		}
		w := s.weight(f)
		weightedSum += clamp(c) * w
		totalWeight += w
	}

	if totalWeight == 0 {
		return nil
	}
	doc := clamp(weightedSum / totalWeight)
	return &doc
}

func (s *ConfidenceScorer) weight(f Field) float64 {
	if PolicyFor(f).Critical {
		return s.config.CriticalFieldWeight
	}
	return s.config.StandardFieldWeight
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
