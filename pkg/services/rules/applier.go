package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/service-map/pkg/models/domain"
	"github.com/de-tools/service-map/pkg/store/entity"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeNoOp    Outcome = "noop"
	OutcomeFailed  Outcome = "failed"
)

type RuleOutcome struct {
	Rule     domain.Rule
	Outcome  Outcome
	Affected int // records written or deleted
	Err      error
}

type Report struct {
	Applied  []RuleOutcome
	NoOp     []RuleOutcome
	Failed   []RuleOutcome
	Unparsed []domain.UnparsedRule
}

// Err joins the failures of every failed rule, or returns nil.
func (r Report) Err() error {
	errs := make([]error, 0, len(r.Failed))
	for _, o := range r.Failed {
		errs = append(errs, fmt.Errorf("line %d (%s): %w", o.Rule.Line, o.Rule.Kind, o.Err))
	}
	return errors.Join(errs...)
}

func (r *Report) add(o RuleOutcome) {
	switch o.Outcome {
	case OutcomeApplied:
		r.Applied = append(r.Applied, o)
	case OutcomeNoOp:
		r.NoOp = append(r.NoOp, o)
	case OutcomeFailed:
		r.Failed = append(r.Failed, o)
	}
}

type handler func(ctx context.Context, rule domain.Rule) (int, error)

// Applier executes classified rules against the entity store one at a
// time. Every rule is an idempotent upsert, and a failing rule does not
// stop the rules after it.
type Applier struct {
	store    entity.Store
	parser   *Parser
	newID    func() string
	now      func() time.Time
	handlers map[domain.RuleKind]handler
}

func NewApplier(store entity.Store) (*Applier, error) {
	if store == nil {
		return nil, fmt.Errorf("entity store is required")
	}
	a := &Applier{
		store:  store,
		parser: NewParser(),
		newID:  uuid.NewString,
		now:    func() time.Time { return time.Now().UTC() },
	}
	a.handlers = map[domain.RuleKind]handler{
		domain.RuleAssetGroupAdd:         a.addAssetGroup,
		domain.RuleAssetGroupRemove:      a.removeAssetGroup,
		domain.RuleAssetGroupLinkService: a.linkService,
		domain.RuleAssetLinkAssetGroup:   a.linkAssetGroup,
		domain.RuleAssetOwnership:        a.setOwnership,
		domain.RuleOwnerAdd:              a.addOwner,
		domain.RuleOwnerRemove:           a.removeOwner,
		domain.RuleWebsiteAdd:            a.addWebsite,
		domain.RuleWebsiteRemove:         a.removeWebsite,
		domain.RuleMaskService:           a.maskService,
		domain.RuleAddService:            a.addService,
	}
	return a, nil
}

// ApplyText parses a rule document and applies the rules it yields.
func (a *Applier) ApplyText(ctx context.Context, text string) (Report, error) {
	parsed := a.parser.Parse(ctx, text)
	report, err := a.Apply(ctx, parsed.Rules)
	report.Unparsed = parsed.Unparsed
	return report, err
}

// Apply runs rules in order. The returned error is non-nil when the
// context was cancelled or at least one rule failed.
func (a *Applier) Apply(ctx context.Context, rules []domain.Rule) (Report, error) {
	logger := zerolog.Ctx(ctx)
	var report Report

	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return report, errors.Join(report.Err(), err)
		}
		outcome := a.applyOne(ctx, rule)
		report.add(outcome)

		event := logger.Debug()
		if outcome.Outcome == OutcomeFailed {
			event = logger.Error().Err(outcome.Err)
		}
		event.Int("rule_line", rule.Line).
			Str("rule_kind", string(rule.Kind)).
			Str("outcome", string(outcome.Outcome)).
			Int("affected", outcome.Affected).
			Msg("Rule processed")
	}

	logger.Info().
		Int("applied", len(report.Applied)).
		Int("noop", len(report.NoOp)).
		Int("failed", len(report.Failed)).
		Msg("Rules applied")
	return report, report.Err()
}

func (a *Applier) applyOne(ctx context.Context, rule domain.Rule) RuleOutcome {
	h, ok := a.handlers[rule.Kind]
	if !ok {
		return RuleOutcome{Rule: rule, Outcome: OutcomeFailed, Err: fmt.Errorf("unknown rule kind %q", rule.Kind)}
	}

	var affected int
	run := func(ctx context.Context) error {
		n, err := h(ctx, rule)
		affected = n
		return err
	}

	var err error
	if tx, ok := a.store.(entity.Transactor); ok {
		err = tx.WithinTx(ctx, run)
	} else {
		err = run(ctx)
	}

	switch {
	case err != nil:
		return RuleOutcome{Rule: rule, Outcome: OutcomeFailed, Err: err}
	case affected == 0:
		return RuleOutcome{Rule: rule, Outcome: OutcomeNoOp}
	default:
		return RuleOutcome{Rule: rule, Outcome: OutcomeApplied, Affected: affected}
	}
}

// lastGroup resolves a group by exact name. With duplicates the last one
// in scan order wins.
func (a *Applier) lastGroup(ctx context.Context, name string) (*domain.AssetGroup, error) {
	groups, err := a.store.AssetGroups().Scan(ctx, entity.Equals(entity.AttrName, name))
	if err != nil {
		return nil, fmt.Errorf("find asset group %q: %w", name, err)
	}
	if len(groups) == 0 {
		return nil, nil
	}
	return &groups[len(groups)-1], nil
}

func (a *Applier) servicesNamed(ctx context.Context, name string) ([]domain.Service, error) {
	services, err := a.store.Services().Scan(ctx, entity.Equals(entity.AttrName, name))
	if err != nil {
		return nil, fmt.Errorf("find service %q: %w", name, err)
	}
	return services, nil
}

// matchingAssets narrows on the pattern key in the store and checks the
// full fragment order in process.
func (a *Applier) matchingAssets(ctx context.Context, rule domain.Rule) ([]domain.Asset, error) {
	pattern := CompilePattern(rule.Pattern)
	if len(pattern.Fragments) == 0 {
		zerolog.Ctx(ctx).Warn().
			Int("rule_line", rule.Line).
			Str("pattern", rule.Pattern).
			Str("rule_kind", string(rule.Kind)).
			Msg("Pattern has no literal text and matches every asset")
	}

	filters := make([]entity.Filter, 0, 2)
	if key := pattern.Key(); key != "" {
		filters = append(filters, entity.Contains(entity.AttrAssetIdentifier, key))
	}
	if rule.AssetType != "" {
		filters = append(filters, entity.Equals(entity.AttrAssetType, rule.AssetType))
	}

	candidates, err := a.store.Assets().Scan(ctx, filters...)
	if err != nil {
		return nil, fmt.Errorf("find assets matching %q: %w", pattern, err)
	}
	assets := make([]domain.Asset, 0, len(candidates))
	for _, asset := range candidates {
		if pattern.Match(asset.AssetIdentifier) {
			assets = append(assets, asset)
		}
	}
	return assets, nil
}

func (a *Applier) addAssetGroup(ctx context.Context, rule domain.Rule) (int, error) {
	group, err := a.lastGroup(ctx, rule.AssetGroup)
	if err != nil {
		return 0, err
	}
	if group == nil {
		group = &domain.AssetGroup{ID: a.newID(), Name: rule.AssetGroup, Timestamp: a.now()}
	}
	if rule.Description != "" {
		group.Description = rule.Description
	}
	if err := a.store.AssetGroups().Put(ctx, *group); err != nil {
		return 0, err
	}
	return 1, nil
}

func (a *Applier) removeAssetGroup(ctx context.Context, rule domain.Rule) (int, error) {
	groups, err := a.store.AssetGroups().Scan(ctx, entity.Equals(entity.AttrName, rule.AssetGroup))
	if err != nil {
		return 0, fmt.Errorf("find asset group %q: %w", rule.AssetGroup, err)
	}

	affected := 0
	for _, group := range groups {
		members, err := a.store.Assets().Scan(ctx, entity.Equals(entity.AttrAssetGroupID, group.ID))
		if err != nil {
			return affected, fmt.Errorf("find members of %s: %w", group.ID, err)
		}
		for _, asset := range members {
			asset.AssetGroupID = ""
			if err := a.store.Assets().Put(ctx, asset); err != nil {
				return affected, err
			}
			affected++
		}
		if err := a.store.AssetGroups().Delete(ctx, group.ID); err != nil {
			return affected, err
		}
		affected++
	}
	return affected, nil
}

func (a *Applier) linkService(ctx context.Context, rule domain.Rule) (int, error) {
	logger := zerolog.Ctx(ctx)
	group, err := a.lastGroup(ctx, rule.AssetGroup)
	if err != nil {
		return 0, err
	}
	if group == nil {
		logger.Debug().Str("asset_group", rule.AssetGroup).Msg("Asset group not found")
		return 0, nil
	}

	services, err := a.servicesNamed(ctx, rule.Service)
	if err != nil {
		return 0, err
	}
	if len(services) == 0 {
		logger.Debug().Str("service", rule.Service).Msg("Service not found")
		return 0, nil
	}

	group.ServiceID = services[len(services)-1].ID
	if err := a.store.AssetGroups().Put(ctx, *group); err != nil {
		return 0, err
	}
	return 1, nil
}

func (a *Applier) linkAssetGroup(ctx context.Context, rule domain.Rule) (int, error) {
	group, err := a.lastGroup(ctx, rule.AssetGroup)
	if err != nil {
		return 0, err
	}
	if group == nil {
		zerolog.Ctx(ctx).Debug().Str("asset_group", rule.AssetGroup).Msg("Asset group not found")
		return 0, nil
	}

	assets, err := a.matchingAssets(ctx, rule)
	if err != nil {
		return 0, err
	}
	for i, asset := range assets {
		asset.AssetGroupID = group.ID
		if err := a.store.Assets().Put(ctx, asset); err != nil {
			return i, err
		}
	}
	return len(assets), nil
}

func (a *Applier) setOwnership(ctx context.Context, rule domain.Rule) (int, error) {
	assets, err := a.matchingAssets(ctx, rule)
	if err != nil {
		return 0, err
	}
	for i, asset := range assets {
		asset.Team = rule.Team
		asset.Operator = rule.Operator
		if err := a.store.Assets().Put(ctx, asset); err != nil {
			return i, err
		}
	}
	return len(assets), nil
}

func (a *Applier) owners(ctx context.Context, rule domain.Rule) ([]domain.AssetOwner, error) {
	owners, err := a.store.AssetOwners().Scan(ctx,
		entity.Equals(entity.AttrTeam, rule.Team),
		entity.Equals(entity.AttrOperator, rule.Operator),
	)
	if err != nil {
		return nil, fmt.Errorf("find owner %s/%s: %w", rule.Team, rule.Operator, err)
	}
	return owners, nil
}

func (a *Applier) addOwner(ctx context.Context, rule domain.Rule) (int, error) {
	owners, err := a.owners(ctx, rule)
	if err != nil {
		return 0, err
	}
	if len(owners) > 0 {
		return 0, nil
	}
	owner := domain.AssetOwner{ID: a.newID(), Team: rule.Team, Operator: rule.Operator}
	if err := a.store.AssetOwners().Put(ctx, owner); err != nil {
		return 0, err
	}
	return 1, nil
}

// removeOwner drops the registry entry only. Assets keep the team and
// operator they were assigned.
func (a *Applier) removeOwner(ctx context.Context, rule domain.Rule) (int, error) {
	owners, err := a.owners(ctx, rule)
	if err != nil {
		return 0, err
	}
	for i, owner := range owners {
		if err := a.store.AssetOwners().Delete(ctx, owner.ID); err != nil {
			return i, err
		}
	}
	return len(owners), nil
}

func (a *Applier) websites(ctx context.Context, identifier string) ([]domain.Asset, error) {
	assets, err := a.store.Assets().Scan(ctx,
		entity.Equals(entity.AttrAssetIdentifier, identifier),
		entity.Equals(entity.AttrAssetType, domain.AssetTypeWebsite),
	)
	if err != nil {
		return nil, fmt.Errorf("find website %q: %w", identifier, err)
	}
	return assets, nil
}

func (a *Applier) addWebsite(ctx context.Context, rule domain.Rule) (int, error) {
	existing, err := a.websites(ctx, rule.Website)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	asset := domain.Asset{
		ID:              a.newID(),
		AssetType:       domain.AssetTypeWebsite,
		AssetIdentifier: rule.Website,
		Timestamp:       a.now(),
	}
	if err := a.store.Assets().Put(ctx, asset); err != nil {
		return 0, err
	}
	return 1, nil
}

// removeWebsite deletes the website assets with that exact identifier
// together with their indicators.
func (a *Applier) removeWebsite(ctx context.Context, rule domain.Rule) (int, error) {
	assets, err := a.websites(ctx, rule.Website)
	if err != nil {
		return 0, err
	}

	affected := 0
	for _, asset := range assets {
		indicators, err := a.store.Indicators().Scan(ctx, entity.Equals(entity.AttrAssetID, asset.ID))
		if err != nil {
			return affected, fmt.Errorf("find indicators of %s: %w", asset.ID, err)
		}
		for _, ind := range indicators {
			if err := a.store.Indicators().Delete(ctx, ind.ID); err != nil {
				return affected, err
			}
			affected++
		}
		if err := a.store.Assets().Delete(ctx, asset.ID); err != nil {
			return affected, err
		}
		affected++
	}
	return affected, nil
}

func (a *Applier) maskService(ctx context.Context, rule domain.Rule) (int, error) {
	services, err := a.servicesNamed(ctx, rule.Service)
	if err != nil {
		return 0, err
	}
	for i, service := range services {
		service.Masked = true
		if err := a.store.Services().Put(ctx, service); err != nil {
			return i, err
		}
	}
	return len(services), nil
}

func (a *Applier) addService(ctx context.Context, rule domain.Rule) (int, error) {
	services, err := a.servicesNamed(ctx, rule.Service)
	if err != nil {
		return 0, err
	}
	if len(services) > 0 {
		return 0, nil
	}
	service := domain.Service{ID: a.newID(), Name: rule.Service, Timestamp: a.now()}
	if err := a.store.Services().Put(ctx, service); err != nil {
		return 0, err
	}
	return 1, nil
}
