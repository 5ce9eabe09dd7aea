package domain

import "strings"

type Severity string

const (
	SeverityNone    Severity = ""
	SeverityUnknown Severity = "UNKNOWN"
	SeverityLow     Severity = "LOW"
	SeverityMedium  Severity = "MEDIUM"
	SeverityHigh    Severity = "HIGH"
	SeverityMaximum Severity = "MAXIMUM"
)

var severityWeights = map[Severity]int{
	SeverityUnknown: 1,
	SeverityLow:     2,
	SeverityMedium:  3,
	SeverityHigh:    4,
	SeverityMaximum: 5,
}

// ParseSeverity normalizes a free-form impact or likelihood label.
// Unrecognized labels map to SeverityNone.
func ParseSeverity(label string) Severity {
	s := Severity(strings.ToUpper(strings.TrimSpace(label)))
	if _, ok := severityWeights[s]; ok {
		return s
	}
	return SeverityNone
}

// Weight is 1 (UNKNOWN) through 5 (MAXIMUM), 0 for anything unrecognized.
func (s Severity) Weight() int {
	return severityWeights[s]
}

func SeverityWeight(label string) int {
	return ParseSeverity(label).Weight()
}
