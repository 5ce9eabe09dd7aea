package adapters

import (
	"github.com/de-tools/service-map/pkg/models/api"
	"github.com/de-tools/service-map/pkg/models/domain"
)

func MapAssetDomainToApi(a domain.Asset) api.Asset {
	return api.Asset{
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

func MapAssetGroupDomainToApi(g domain.AssetGroup) api.AssetGroup {
	return api.AssetGroup{
		ID:           g.ID,
		Name:         g.Name,
		Description:  g.Description,
		ServiceID:    g.ServiceID,
		TimestampUTC: formatTimestamp(g.Timestamp),
	}
}

func MapAssetOwnerDomainToApi(o domain.AssetOwner) api.AssetOwner {
	return api.AssetOwner{ID: o.ID, Team: o.Team, Operator: o.Operator}
}

func MapServiceDomainToApi(s domain.Service) api.Service {
	return api.Service{
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

// MapIndicatorDomainToApi drops details that fail to re-encode rather than
// failing the whole response; domain details always originate from a
// successful decode.
func MapIndicatorDomainToApi(i domain.Indicator) api.Indicator {
	details, _ := domain.EncodeDetails(i.Details)
	return api.Indicator{
		ID:                  i.ID,
		AssetID:             i.AssetID,
		TimestampUTC:        formatTimestamp(i.Timestamp),
		Description:         i.Description,
		EventSourceName:     i.EventSourceName,
		LikelihoodIndicator: i.LikelihoodIndicator,
		Details:             details,
	}
}

func MapIndicatorsDomainToApi(indicators []domain.Indicator) []api.Indicator {
	out := make([]api.Indicator, 0, len(indicators))
	for _, i := range indicators {
		out = append(out, MapIndicatorDomainToApi(i))
	}
	return out
}
