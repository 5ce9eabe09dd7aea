package domain

type RuleKind string

const (
	RuleAssetGroupAdd         RuleKind = "assetgroupAdd"
	RuleAssetGroupRemove      RuleKind = "assetgroupRemove"
	RuleAssetGroupLinkService RuleKind = "assetgroupLinkService"
	RuleAssetLinkAssetGroup   RuleKind = "assetLinkAssetgroup"
	RuleAssetOwnership        RuleKind = "assetOwnership"
	RuleOwnerAdd              RuleKind = "ownerAdd"
	RuleOwnerRemove           RuleKind = "ownerRemove"
	RuleWebsiteAdd            RuleKind = "websiteAdd"
	RuleWebsiteRemove         RuleKind = "websiteRemove"
	RuleMaskService           RuleKind = "maskService"
	RuleAddService            RuleKind = "addService"
)

// Rule is one classified line of an interlink rule file. Only the fields
// relevant to Kind are populated.
type Rule struct {
	Kind   RuleKind
	Line   int      // 1-based line in the source document
	Tokens []string // source tokens as split from the line

	Pattern     string // asset match pattern, escape sequences intact
	AssetType   string // optional asset_type restriction from legacy forms
	AssetGroup  string
	Description string
	Service     string
	Team        string
	Operator    string
	Website     string // exact website identifier for add/remove website
}

// UnparsedRule is a non-comment line no grammar pattern accepted.
type UnparsedRule struct {
	Line int
	Text string
}
