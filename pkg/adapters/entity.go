package adapters

import (
	"fmt"
	"time"

	"github.com/de-tools/service-map/pkg/models/domain"
	"github.com/de-tools/service-map/pkg/models/store"
)

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTimestamp is lenient: records written by older importers may carry
// an empty or non-RFC3339 value, which maps to the zero time.
func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func MapStoreAssetToDomain(a store.Asset) domain.Asset {
	return domain.Asset{
		ID:              a.ID,
		AssetType:       a.AssetType,
		AssetIdentifier: a.AssetIdentifier,
		Team:            a.Team,
		Operator:        a.Operator,
		Zone:            a.Zone,
		AssetGroupID:    a.AssetGroupID,
		Description:     a.Description,
		Score:           a.Score,
		Timestamp:       parseTimestamp(a.TimestampUTC),
	}
}

func MapDomainAssetToStore(a domain.Asset) store.Asset {
	return store.Asset{
		ID:              a.ID,
		AssetType:       a.AssetType,
		AssetIdentifier: a.AssetIdentifier,
		Team:            a.Team,
		Operator:        a.Operator,
		Zone:            a.Zone,
		AssetGroupID:    a.AssetGroupID,
		Description:     a.Description,
		Score:           a.Score,
		TimestampUTC:    formatTimestamp(a.Timestamp),
	}
}

func MapStoreAssetGroupToDomain(g store.AssetGroup) domain.AssetGroup {
	return domain.AssetGroup{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		ServiceID:   g.ServiceID,
		Timestamp:   parseTimestamp(g.TimestampUTC),
	}
}

func MapDomainAssetGroupToStore(g domain.AssetGroup) store.AssetGroup {
	return store.AssetGroup{
		ID:           g.ID,
		Name:         g.Name,
		Description:  g.Description,
		ServiceID:    g.ServiceID,
		TimestampUTC: formatTimestamp(g.Timestamp),
	}
}

func MapStoreAssetOwnerToDomain(o store.AssetOwner) domain.AssetOwner {
	return domain.AssetOwner{ID: o.ID, Team: o.Team, Operator: o.Operator}
}

func MapDomainAssetOwnerToStore(o domain.AssetOwner) store.AssetOwner {
	return store.AssetOwner{ID: o.ID, Team: o.Team, Operator: o.Operator}
}

func MapStoreServiceToDomain(s store.Service) domain.Service {
	return domain.Service{
		ID:                        s.ID,
		Name:                      s.Name,
		Link:                      s.Link,
		Masked:                    s.Masked,
		ServiceOwner:              s.ServiceOwner,
		Director:                  s.Director,
		ServiceDataClassification: s.ServiceDataClassification,
		HighestRiskImpact:         s.HighestRiskImpact,
		Recommendations:           copyInt(s.Recommendations),
		HighestRecommendation:     s.HighestRecommendation,
		CreationDate:              s.CreationDate,
		ModificationDate:          s.ModificationDate,
		Score:                     s.Score,
		Timestamp:                 parseTimestamp(s.TimestampUTC),
	}
}

func MapDomainServiceToStore(s domain.Service) store.Service {
	return store.Service{
		ID:                        s.ID,
		Name:                      s.Name,
		Link:                      s.Link,
		Masked:                    s.Masked,
		ServiceOwner:              s.ServiceOwner,
		Director:                  s.Director,
		ServiceDataClassification: s.ServiceDataClassification,
		HighestRiskImpact:         s.HighestRiskImpact,
		Recommendations:           copyInt(s.Recommendations),
		HighestRecommendation:     s.HighestRecommendation,
		CreationDate:              s.CreationDate,
		ModificationDate:          s.ModificationDate,
		Score:                     s.Score,
		TimestampUTC:              formatTimestamp(s.Timestamp),
	}
}

func MapStoreIndicatorToDomain(i store.Indicator) (domain.Indicator, error) {
	details, err := domain.DecodeDetails(i.Details)
	if err != nil {
		return domain.Indicator{}, fmt.Errorf("indicator %s: %w", i.ID, err)
	}
	return domain.Indicator{
		ID:                  i.ID,
		AssetID:             i.AssetID,
		Timestamp:           parseTimestamp(i.TimestampUTC),
		Description:         i.Description,
		EventSourceName:     i.EventSourceName,
		LikelihoodIndicator: i.LikelihoodIndicator,
		Details:             details,
	}, nil
}

func MapDomainIndicatorToStore(i domain.Indicator) (store.Indicator, error) {
	details, err := domain.EncodeDetails(i.Details)
	if err != nil {
		return store.Indicator{}, fmt.Errorf("indicator %s: %w", i.ID, err)
	}
	return store.Indicator{
		ID:                  i.ID,
		AssetID:             i.AssetID,
		TimestampUTC:        formatTimestamp(i.Timestamp),
		Description:         i.Description,
		EventSourceName:     i.EventSourceName,
		LikelihoodIndicator: i.LikelihoodIndicator,
		Details:             details,
	}, nil
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
