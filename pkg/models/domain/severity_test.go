package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		label    string
		expected Severity
	}{
		{"LOW", SeverityLow},
		{"  high ", SeverityHigh},
		{"Maximum", SeverityMaximum},
		{"unknown", SeverityUnknown},
		{"medium\n", SeverityMedium},
		{"critical", SeverityNone},
		{"", SeverityNone},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseSeverity(tt.label))
		})
	}
}

func TestSeverityWeight_Ordering(t *testing.T) {
	ordered := []string{"unknown", "low", "medium", "high", "maximum"}
	for i := 1; i < len(ordered); i++ {
		assert.Less(t, SeverityWeight(ordered[i-1]), SeverityWeight(ordered[i]),
			"%s must weigh less than %s", ordered[i-1], ordered[i])
	}
	assert.Equal(t, 0, SeverityWeight("bogus"))
	assert.Equal(t, 0, SeverityWeight(""))
	assert.Greater(t, SeverityWeight("unknown"), 0)
}

func TestService_ReviewScore(t *testing.T) {
	ten := 10
	one := 1

	tests := []struct {
		name     string
		service  Service
		expected int
	}{
		{
			name:     "no impact recorded",
			service:  Service{Name: "svc"},
			expected: 0,
		},
		{
			name:     "impact only",
			service:  Service{HighestRiskImpact: "HIGH"},
			expected: SeverityWeight("HIGH"),
		},
		{
			name:     "recommendations override impact",
			service:  Service{HighestRiskImpact: "LOW", Recommendations: &ten},
			expected: 10 - SeverityWeight("LOW"),
		},
		{
			name:     "recommendations below impact weight",
			service:  Service{HighestRiskImpact: "MEDIUM", Recommendations: &one},
			expected: SeverityWeight("MEDIUM"),
		},
		{
			name:     "unrecognized impact",
			service:  Service{HighestRiskImpact: "severe"},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.service.ReviewScore())
		})
	}
}
