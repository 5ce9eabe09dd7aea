package api

// CreateIndicatorRequest is the POST /api/v1/indicator payload. Either
// asset_id or asset_identifier identifies the asset; with only an
// identifier, an unknown asset is created from asset_type and zone.
type CreateIndicatorRequest struct {
	AssetID             string         `json:"asset_id" validate:"required_without=AssetIdentifier"`
	AssetIdentifier     string         `json:"asset_identifier" validate:"required_without=AssetID"`
	AssetType           string         `json:"asset_type"`
	Zone                string         `json:"zone"`
	Description         string         `json:"description"`
	EventSourceName     string         `json:"event_source_name" validate:"required"`
	LikelihoodIndicator string         `json:"likelihood_indicator" validate:"required"`
	TimestampUTC        string         `json:"timestamp_utc"`
	Details             map[string]any `json:"details"`
}

// CreateAssetOwnerRequest is the POST /api/v1/asset-owner payload.
type CreateAssetOwnerRequest struct {
	Team     string `json:"team" validate:"required"`
	Operator string `json:"operator" validate:"required"`
}

type StatusResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Exception string `json:"exception"`
}
