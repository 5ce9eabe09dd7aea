package domain

import "time"

const (
	AssetTypeHostname = "hostname"
	AssetTypeWebsite  = "website"
	AssetTypeDatabase = "database"
)

type Asset struct {
	ID              string
	AssetType       string // hostname, website
	AssetIdentifier string // mana1.db.example.com, not unique
	Team            string
	Operator        string
	Zone            string
	AssetGroupID    string // empty when unlinked
	Description     string
	Score           int
	Timestamp       time.Time
}

type AssetGroup struct {
	ID          string
	Name        string
	Description string
	ServiceID   string // empty when unlinked
	Timestamp   time.Time
}

// AssetOwner is a registered team/operator pair. Assets carry the pair
// directly, the registry lists the pairs rule files declare.
type AssetOwner struct {
	ID       string
	Team     string
	Operator string
}
