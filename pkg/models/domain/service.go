package domain

import "time"

// Service is a business service under periodic risk review.
type Service struct {
	ID                        string
	Name                      string
	Link                      string
	Masked                    bool
	ServiceOwner              string
	Director                  string
	ServiceDataClassification string
	HighestRiskImpact         string
	// Recommendations is nil when the review recorded no count.
	Recommendations       *int
	HighestRecommendation string
	CreationDate          string
	ModificationDate      string
	Score                 int
	Timestamp             time.Time
}

// ReviewScore derives the score a service earns from its own review data,
// before any rollup from linked assets.
func (s Service) ReviewScore() int {
	if s.HighestRiskImpact == "" {
		return 0
	}
	weight := ParseSeverity(s.HighestRiskImpact).Weight()
	if s.Recommendations != nil && *s.Recommendations > weight {
		return *s.Recommendations - weight
	}
	return weight
}
