package helpers

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReportCode(t *testing.T) {
	g := NewIDGenerator()

	pattern := regexp.MustCompile(`^RPT-\d{8}-[A-Z0-9]{6}$`)

	code := g.GenerateReportCode()
	assert.Regexp(t, pattern, code)
	assert.Contains(t, code, time.Now().Format("20060102"))

	// Collisions over a small sample are astronomically unlikely; a repeat
	// here means the generator is not advancing its source.
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		c := g.GenerateReportCode()
		assert.False(t, seen[c], "duplicate code %s", c)
		seen[c] = true
	}
}

func TestGenerateUUID(t *testing.T) {
	g := NewIDGenerator()

	id := g.GenerateUUID()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
}

func TestCustomValidator_ReportRules(t *testing.T) {
	cv := NewCustomValidator()

	type payload struct {
		Category string `validate:"required,report_category"`
		Severity string `validate:"required,report_severity"`
	}

	t.Run("Valid", func(t *testing.T) {
		err := cv.Validate(payload{Category: "illegal_cutting", Severity: "high"})
		assert.NoError(t, err)
	})

	t.Run("UnknownCategory", func(t *testing.T) {
		err := cv.Validate(payload{Category: "littering", Severity: "high"})
		require.Error(t, err)
		fields := FieldErrors(err)
		assert.Equal(t, "report_category", fields["Category"])
	})

	t.Run("UnknownSeverity", func(t *testing.T) {
		err := cv.Validate(payload{Category: "pollution", Severity: "extreme"})
		require.Error(t, err)
		fields := FieldErrors(err)
		assert.Equal(t, "report_severity", fields["Severity"])
	})
}

func TestFieldErrors_NonValidationError(t *testing.T) {
	assert.Nil(t, FieldErrors(errors.New("boom")))
}
