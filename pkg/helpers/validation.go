package helpers

import (
	"github.com/go-playground/validator/v10"

	"mangrovewatch/internal/models"
)

// CustomValidator wraps go-playground validator with domain rules.
type CustomValidator struct {
	validate *validator.Validate
}

// NewCustomValidator creates a validator with the report-domain rules
// registered.
func NewCustomValidator() *CustomValidator {
	v := validator.New()

	v.RegisterValidation("report_category", validateReportCategory)
	v.RegisterValidation("report_severity", validateReportSeverity)

	return &CustomValidator{validate: v}
}

// Validate validates a struct against its tags.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validate.Struct(i)
}

// validateReportCategory enforces the closed category set.
func validateReportCategory(fl validator.FieldLevel) bool {
	return models.ValidCategory(models.ReportCategory(fl.Field().String()))
}

// validateReportSeverity enforces the severity enum.
func validateReportSeverity(fl validator.FieldLevel) bool {
	switch models.ReportSeverity(fl.Field().String()) {
	case models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical:
		return true
	}
	return false
}

// FieldErrors flattens a validator error into a field -> message map usable
// in API error payloads. Returns nil for non-validation errors.
func FieldErrors(err error) map[string]string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}
