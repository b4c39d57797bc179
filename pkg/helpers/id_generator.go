package helpers

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// IDGenerator generates the identifier formats used across the service.
type IDGenerator struct {
	rand *rand.Rand
}

// NewIDGenerator creates a new ID generator.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GenerateUUID generates a UUID v4.
func (g *IDGenerator) GenerateUUID() string {
	return uuid.New().String()
}

// GenerateReportCode generates a public report code.
// Format: RPT-YYYYMMDD-XXXXXX (e.g. RPT-20250830-A1B2C3).
func (g *IDGenerator) GenerateReportCode() string {
	dateStr := time.Now().Format("20060102")
	return fmt.Sprintf("RPT-%s-%s", dateStr, g.randomAlphanumeric(6))
}

// randomAlphanumeric generates a random uppercase alphanumeric string.
func (g *IDGenerator) randomAlphanumeric(length int) string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		result[i] = chars[g.rand.Intn(len(chars))]
	}
	return string(result)
}
