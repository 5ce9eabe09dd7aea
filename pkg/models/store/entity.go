package store

// Records mirror the persisted documents one to one. Attribute names are
// shared by every backend and by scan filters.

type Asset struct {
	ID              string `dynamodbav:"id" json:"id"`
	AssetType       string `dynamodbav:"asset_type" json:"asset_type"`
	AssetIdentifier string `dynamodbav:"asset_identifier" json:"asset_identifier"`
	Team            string `dynamodbav:"team,omitempty" json:"team,omitempty"`
	Operator        string `dynamodbav:"operator,omitempty" json:"operator,omitempty"`
	Zone            string `dynamodbav:"zone" json:"zone"`
	AssetGroupID    string `dynamodbav:"asset_group_id,omitempty" json:"asset_group_id,omitempty"`
	Description     string `dynamodbav:"description,omitempty" json:"description,omitempty"`
	Score           int    `dynamodbav:"score" json:"score"`
	TimestampUTC    string `dynamodbav:"timestamp_utc" json:"timestamp_utc"`
}

type AssetGroup struct {
	ID           string `dynamodbav:"id" json:"id"`
	Name         string `dynamodbav:"name" json:"name"`
	Description  string `dynamodbav:"description,omitempty" json:"description,omitempty"`
	ServiceID    string `dynamodbav:"service_id,omitempty" json:"service_id,omitempty"`
	TimestampUTC string `dynamodbav:"timestamp_utc" json:"timestamp_utc"`
}

type AssetOwner struct {
	ID       string `dynamodbav:"id" json:"id"`
	Team     string `dynamodbav:"team" json:"team"`
	Operator string `dynamodbav:"operator" json:"operator"`
}

type Service struct {
	ID                        string `dynamodbav:"id" json:"id"`
	Name                      string `dynamodbav:"name" json:"name"`
	Link                      string `dynamodbav:"link,omitempty" json:"link,omitempty"`
	Masked                    bool   `dynamodbav:"masked" json:"masked"`
	ServiceOwner              string `dynamodbav:"service_owner,omitempty" json:"service_owner,omitempty"`
	Director                  string `dynamodbav:"director,omitempty" json:"director,omitempty"`
	ServiceDataClassification string `dynamodbav:"service_data_classification,omitempty" json:"service_data_classification,omitempty"`
	HighestRiskImpact         string `dynamodbav:"highest_risk_impact,omitempty" json:"highest_risk_impact,omitempty"`
	Recommendations           *int   `dynamodbav:"recommendations,omitempty" json:"recommendations,omitempty"`
	HighestRecommendation     string `dynamodbav:"highest_recommendation,omitempty" json:"highest_recommendation,omitempty"`
	CreationDate              string `dynamodbav:"creation_date,omitempty" json:"creation_date,omitempty"`
	ModificationDate          string `dynamodbav:"modification_date,omitempty" json:"modification_date,omitempty"`
	Score                     int    `dynamodbav:"score" json:"score"`
	TimestampUTC              string `dynamodbav:"timestamp_utc" json:"timestamp_utc"`
}

type Indicator struct {
	ID                  string         `dynamodbav:"id" json:"id"`
	AssetID             string         `dynamodbav:"asset_id" json:"asset_id"`
	TimestampUTC        string         `dynamodbav:"timestamp_utc" json:"timestamp_utc"`
	Description         string         `dynamodbav:"description,omitempty" json:"description,omitempty"`
	EventSourceName     string         `dynamodbav:"event_source_name,omitempty" json:"event_source_name,omitempty"`
	LikelihoodIndicator string         `dynamodbav:"likelihood_indicator,omitempty" json:"likelihood_indicator,omitempty"`
	Details             map[string]any `dynamodbav:"details,omitempty" json:"details,omitempty"`
}
