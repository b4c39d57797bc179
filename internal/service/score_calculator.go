package service

import "mangrovewatch/internal/models"

// CalculateValidationScore computes a report's validation score from its
// evidentiary content. The formula is fixed and auditable; historical scores
// were produced by exactly these weights, so do not retune them:
//
//	base 10 for existence
//	+20 if at least one photo, +10 more if more than 2 photos
//	+15 if both coordinate values are present
//	+10 if the description exceeds 100 chars, +5 more if it exceeds 300
//	+10 if an estimated-area record is present
//	+5 if at least one tag
//
// The result is clamped to [0, 100]. Pure and deterministic: recomputing on
// unchanged content always yields the same value.
func CalculateValidationScore(report *models.Report) int32 {
	score := int32(10)

	if len(report.Photos) >= 1 {
		score += 20
	}
	if len(report.Photos) > 2 {
		score += 10
	}

	if report.Location.HasCoordinates() {
		score += 15
	}

	if len(report.Description) > 100 {
		score += 10
	}
	if len(report.Description) > 300 {
		score += 5
	}

	if report.EstimatedArea != nil {
		score += 10
	}

	if len(report.Tags) >= 1 {
		score += 5
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
