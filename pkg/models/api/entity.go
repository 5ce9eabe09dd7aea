package api

type Asset struct {
	ID              string `json:"id"`
	AssetType       string `json:"asset_type"`
	AssetIdentifier string `json:"asset_identifier"`
	Team            string `json:"team,omitempty"`
	Operator        string `json:"operator,omitempty"`
	Zone            string `json:"zone"`
	AssetGroupID    string `json:"asset_group_id,omitempty"`
	Description     string `json:"description,omitempty"`
	Score           int    `json:"score"`
	TimestampUTC    string `json:"timestamp_utc"`
}

type AssetGroup struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	ServiceID    string `json:"service_id,omitempty"`
	TimestampUTC string `json:"timestamp_utc"`
}

type AssetOwner struct {
	ID       string `json:"id"`
	Team     string `json:"team"`
	Operator string `json:"operator"`
}

type Service struct {
	ID                        string `json:"id"`
	Name                      string `json:"name"`
	Link                      string `json:"link,omitempty"`
	Masked                    bool   `json:"masked"`
	ServiceOwner              string `json:"service_owner,omitempty"`
	Director                  string `json:"director,omitempty"`
	ServiceDataClassification string `json:"service_data_classification,omitempty"`
	HighestRiskImpact         string `json:"highest_risk_impact,omitempty"`
	Recommendations           *int   `json:"recommendations,omitempty"`
	HighestRecommendation     string `json:"highest_recommendation,omitempty"`
	CreationDate              string `json:"creation_date,omitempty"`
	ModificationDate          string `json:"modification_date,omitempty"`
	Score                     int    `json:"score"`
	TimestampUTC              string `json:"timestamp_utc"`
}

type Indicator struct {
	ID                  string         `json:"id"`
	AssetID             string         `json:"asset_id"`
	TimestampUTC        string         `json:"timestamp_utc"`
	Description         string         `json:"description,omitempty"`
	EventSourceName     string         `json:"event_source_name,omitempty"`
	LikelihoodIndicator string         `json:"likelihood_indicator,omitempty"`
	Details             map[string]any `json:"details,omitempty"`
}

// AssetIndicators is an asset search hit with its indicators embedded.
type AssetIndicators struct {
	Asset
	Indicators []Indicator `json:"indicators"`
}
