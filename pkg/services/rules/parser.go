package rules

import (
	"context"
	"strings"

	"github.com/de-tools/service-map/pkg/models/domain"
	"github.com/rs/zerolog"
)

// Matcher classifies the tokens of one rule line. Matchers are tried in
// order and the first match wins, so shapes sharing an arity must be
// listed most specific first.
type Matcher struct {
	Name  string
	Match func(tokens []string) (domain.Rule, bool)
}

// DefaultMatchers returns the rule grammar in its fixed priority order.
func DefaultMatchers() []Matcher {
	return []Matcher{
		{Name: "add assetgroup", Match: matchAssetGroupAdd},
		{Name: "remove assetgroup", Match: matchAssetGroupRemove},
		{Name: "assetgroup link service", Match: matchAssetGroupLinkService},
		{Name: "asset link assetgroup", Match: matchAssetLinkAssetGroup},
		{Name: "host/website link assetgroup", Match: matchTypedLinkAssetGroup},
		{Name: "asset ownership", Match: matchAssetOwnership},
		{Name: "host ownership", Match: matchHostOwnership},
		{Name: "add/remove owner", Match: matchOwner},
		{Name: "add/remove website", Match: matchWebsite},
		{Name: "service mask", Match: matchServiceMask},
		{Name: "service matches mask", Match: matchLegacyServiceMask},
		{Name: "add service", Match: matchAddService},
	}
}

type Result struct {
	Rules    []domain.Rule
	Unparsed []domain.UnparsedRule
}

type Parser struct {
	matchers []Matcher
}

// NewParser builds a parser over the given matchers, or over
// DefaultMatchers when none are given.
func NewParser(matchers ...Matcher) *Parser {
	if len(matchers) == 0 {
		matchers = DefaultMatchers()
	}
	return &Parser{matchers: matchers}
}

// Parse classifies every record of a rule document. Lines no matcher
// accepts are reported as unparsed and never stop parsing.
func (p *Parser) Parse(ctx context.Context, text string) Result {
	logger := zerolog.Ctx(ctx)
	result := Result{Rules: make([]domain.Rule, 0)}

	for i, record := range splitRecords(text) {
		line := i + 1
		record = strings.TrimSpace(record)
		if len(record) <= 1 {
			continue
		}
		tokens := strings.Split(record, " ")
		if len(tokens) < 2 || strings.Contains(tokens[0], "#") {
			continue
		}

		rule, ok := p.classify(tokens)
		if !ok {
			logger.Warn().Int("rule_line", line).Str("rule", record).Msg("Unparsed rule")
			result.Unparsed = append(result.Unparsed, domain.UnparsedRule{Line: line, Text: record})
			continue
		}
		rule.Line = line
		rule.Tokens = tokens
		result.Rules = append(result.Rules, rule)
	}
	return result
}

func (p *Parser) classify(tokens []string) (domain.Rule, bool) {
	for _, m := range p.matchers {
		if rule, ok := m.Match(tokens); ok {
			return rule, true
		}
	}
	return domain.Rule{}, false
}

// Parse classifies text with the default grammar.
func Parse(ctx context.Context, text string) Result {
	return NewParser().Parse(ctx, text)
}

// splitRecords accepts LF, CRLF and the historical bare CR separators.
func splitRecords(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

func join(tokens []string) string {
	return strings.Join(tokens, " ")
}

// add assetgroup <name> [description...]
func matchAssetGroupAdd(t []string) (domain.Rule, bool) {
	if len(t) < 3 || t[0] != "add" || t[1] != "assetgroup" {
		return domain.Rule{}, false
	}
	return domain.Rule{Kind: domain.RuleAssetGroupAdd, AssetGroup: t[2], Description: join(t[3:])}, true
}

// remove assetgroup <name>
func matchAssetGroupRemove(t []string) (domain.Rule, bool) {
	if len(t) < 3 || t[0] != "remove" || t[1] != "assetgroup" {
		return domain.Rule{}, false
	}
	return domain.Rule{Kind: domain.RuleAssetGroupRemove, AssetGroup: t[2]}, true
}

// assetgroup matches <name> link service <service name...>
func matchAssetGroupLinkService(t []string) (domain.Rule, bool) {
	if len(t) < 6 || t[0] != "assetgroup" || t[1] != "matches" || t[3] != "link" || t[4] != "service" {
		return domain.Rule{}, false
	}
	return domain.Rule{
		Kind:       domain.RuleAssetGroupLinkService,
		AssetGroup: t[2],
		Service:    plainName(join(t[5:])),
	}, true
}

// asset matches <pattern> link assetgroup <name>
func matchAssetLinkAssetGroup(t []string) (domain.Rule, bool) {
	if len(t) != 6 || t[0] != "asset" || t[1] != "matches" || t[3] != "link" || t[4] != "assetgroup" {
		return domain.Rule{}, false
	}
	return domain.Rule{Kind: domain.RuleAssetLinkAssetGroup, Pattern: t[2], AssetGroup: t[5]}, true
}

// host|website matches <pattern> link assetgroup <name>
func matchTypedLinkAssetGroup(t []string) (domain.Rule, bool) {
	if len(t) != 6 || t[1] != "matches" || t[3] != "link" || t[4] != "assetgroup" {
		return domain.Rule{}, false
	}
	var assetType string
	switch t[0] {
	case "host":
		assetType = domain.AssetTypeHostname
	case "website":
		assetType = domain.AssetTypeWebsite
	default:
		return domain.Rule{}, false
	}
	return domain.Rule{
		Kind:       domain.RuleAssetLinkAssetGroup,
		Pattern:    t[2],
		AssetType:  assetType,
		AssetGroup: t[5],
	}, true
}

// asset matches <pattern> ownership <team> <operator> [...]
func matchAssetOwnership(t []string) (domain.Rule, bool) {
	if len(t) < 6 || t[0] != "asset" || t[1] != "matches" || t[3] != "ownership" {
		return domain.Rule{}, false
	}
	return domain.Rule{Kind: domain.RuleAssetOwnership, Pattern: t[2], Team: t[4], Operator: t[5]}, true
}

// host matches <pattern> ownership <team> <operator> [...]
func matchHostOwnership(t []string) (domain.Rule, bool) {
	if len(t) < 6 || t[0] != "host" || t[1] != "matches" || t[3] != "ownership" {
		return domain.Rule{}, false
	}
	return domain.Rule{
		Kind:      domain.RuleAssetOwnership,
		Pattern:   t[2],
		AssetType: domain.AssetTypeHostname,
		Team:      t[4],
		Operator:  t[5],
	}, true
}

// add|remove owner <team> <operator>
func matchOwner(t []string) (domain.Rule, bool) {
	if len(t) != 4 || t[1] != "owner" {
		return domain.Rule{}, false
	}
	switch t[0] {
	case "add":
		return domain.Rule{Kind: domain.RuleOwnerAdd, Team: t[2], Operator: t[3]}, true
	case "remove":
		return domain.Rule{Kind: domain.RuleOwnerRemove, Team: t[2], Operator: t[3]}, true
	}
	return domain.Rule{}, false
}

// add|remove website <identifier>
func matchWebsite(t []string) (domain.Rule, bool) {
	if len(t) != 3 || t[1] != "website" {
		return domain.Rule{}, false
	}
	switch t[0] {
	case "add":
		return domain.Rule{Kind: domain.RuleWebsiteAdd, Website: t[2]}, true
	case "remove":
		return domain.Rule{Kind: domain.RuleWebsiteRemove, Website: t[2]}, true
	}
	return domain.Rule{}, false
}

// service mask <name words...>
func matchServiceMask(t []string) (domain.Rule, bool) {
	if len(t) < 3 || t[0] != "service" || t[1] != "mask" {
		return domain.Rule{}, false
	}
	return domain.Rule{Kind: domain.RuleMaskService, Service: join(t[2:])}, true
}

// service matches <name> mask
func matchLegacyServiceMask(t []string) (domain.Rule, bool) {
	if len(t) != 4 || t[0] != "service" || t[1] != "matches" || t[3] != "mask" {
		return domain.Rule{}, false
	}
	return domain.Rule{Kind: domain.RuleMaskService, Service: plainName(t[2])}, true
}

// service add <name words...> | add service <name words...>
func matchAddService(t []string) (domain.Rule, bool) {
	if len(t) < 3 {
		return domain.Rule{}, false
	}
	if (t[0] == "service" && t[1] == "add") || (t[0] == "add" && t[1] == "service") {
		return domain.Rule{Kind: domain.RuleAddService, Service: join(t[2:])}, true
	}
	return domain.Rule{}, false
}
