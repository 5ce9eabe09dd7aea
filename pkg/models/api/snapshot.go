package api

// Snapshot is the denormalized document the dashboard reads. It is rebuilt
// in full on every publish.
type Snapshot struct {
	Services []SnapshotService `json:"services"`
}

type SnapshotService struct {
	Service
	AssetGroups []SnapshotAssetGroup `json:"assetgroups"`
}

type SnapshotAssetGroup struct {
	AssetGroup
	Assets []SnapshotAsset `json:"assets"`
}

type SnapshotAsset struct {
	Asset
	Indicators []Indicator `json:"indicators"`
}
