package inventory

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/de-tools/service-map/pkg/models/api"
	"github.com/de-tools/service-map/pkg/models/domain"
	"github.com/de-tools/service-map/pkg/store/entity"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type AssetIndicators struct {
	Asset      domain.Asset
	Indicators []domain.Indicator
}

// Service implements the CRUD surface over the entity store. Writes are
// validated before anything is persisted.
type Service struct {
	store    entity.Store
	validate *validator.Validate
	newID    func() string
	now      func() time.Time
}

func NewService(store entity.Store) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("entity store is required")
	}
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{
		store:    store,
		validate: validate,
		newID:    uuid.NewString,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Service) validateRequest(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	verr := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		verr.Fields[fe.Field()] = fieldMessage(fe)
	}
	return verr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return "one of asset_id or asset_identifier is required"
	default:
		return "failed " + fe.Tag()
	}
}

// CreateIndicator validates the payload, resolves or creates its asset and
// stores the indicator. A new asset is only written once the whole payload
// has validated.
func (s *Service) CreateIndicator(ctx context.Context, req api.CreateIndicatorRequest) (domain.Indicator, error) {
	if err := s.validateRequest(req); err != nil {
		return domain.Indicator{}, err
	}

	details, err := domain.DecodeDetails(req.Details)
	if err != nil {
		return domain.Indicator{}, invalid("details", err.Error())
	}
	timestamp := s.now()
	if req.TimestampUTC != "" {
		timestamp, err = time.Parse(time.RFC3339Nano, req.TimestampUTC)
		if err != nil {
			return domain.Indicator{}, invalid("timestamp_utc", "must be an RFC 3339 timestamp")
		}
	}

	asset, err := s.resolveAsset(ctx, req)
	if err != nil {
		return domain.Indicator{}, err
	}

	indicator := domain.Indicator{
		ID:                  s.newID(),
		AssetID:             asset.ID,
		Timestamp:           timestamp.UTC(),
		Description:         req.Description,
		EventSourceName:     req.EventSourceName,
		LikelihoodIndicator: req.LikelihoodIndicator,
		Details:             details,
	}
	if err := s.store.Indicators().Put(ctx, indicator); err != nil {
		return domain.Indicator{}, fmt.Errorf("store indicator: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Str("asset_id", asset.ID).Str("indicator_id", indicator.ID).Msg("Indicator created")
	return indicator, nil
}

func (s *Service) resolveAsset(ctx context.Context, req api.CreateIndicatorRequest) (*domain.Asset, error) {
	if req.AssetID != "" {
		asset, err := s.store.Assets().Get(ctx, req.AssetID)
		if errors.Is(err, entity.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", req.AssetID, ErrInvalidAsset)
		}
		return asset, err
	}

	assets, err := s.store.Assets().Scan(ctx, entity.Equals(entity.AttrAssetIdentifier, req.AssetIdentifier))
	if err != nil {
		return nil, fmt.Errorf("find asset %q: %w", req.AssetIdentifier, err)
	}
	if len(assets) > 0 {
		return &assets[0], nil
	}

	if req.AssetType == "" {
		return nil, invalid("asset_type", "is required when the asset does not exist")
	}
	asset := domain.Asset{
		ID:              s.newID(),
		AssetType:       req.AssetType,
		AssetIdentifier: req.AssetIdentifier,
		Zone:            req.Zone,
		Timestamp:       s.now(),
	}
	if err := s.store.Assets().Put(ctx, asset); err != nil {
		return nil, fmt.Errorf("create asset %q: %w", req.AssetIdentifier, err)
	}
	zerolog.Ctx(ctx).Info().Str("asset_id", asset.ID).Str("asset_identifier", asset.AssetIdentifier).Msg("Asset created")
	return &asset, nil
}

// DeleteAsset removes the asset and every indicator referencing it.
func (s *Service) DeleteAsset(ctx context.Context, id string) (*domain.Asset, error) {
	asset, err := s.store.Assets().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	indicators, err := s.store.Indicators().Scan(ctx, entity.Equals(entity.AttrAssetID, id))
	if err != nil {
		return nil, fmt.Errorf("find indicators of %s: %w", id, err)
	}
	for _, ind := range indicators {
		if err := s.store.Indicators().Delete(ctx, ind.ID); err != nil {
			return nil, err
		}
	}
	if err := s.store.Assets().Delete(ctx, id); err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("asset_id", id).Int("indicators", len(indicators)).Msg("Asset deleted")
	return asset, nil
}

// DeleteIndicator removes the indicator with exactly this id, returning
// what was deleted.
func (s *Service) DeleteIndicator(ctx context.Context, id string) ([]domain.Indicator, error) {
	indicators, err := s.store.Indicators().Scan(ctx, entity.Equals(entity.AttrID, id))
	if err != nil {
		return nil, err
	}
	for _, ind := range indicators {
		if err := s.store.Indicators().Delete(ctx, ind.ID); err != nil {
			return nil, err
		}
	}
	return indicators, nil
}

// searchFilters matches everything for an empty term and substrings
// otherwise.
func searchFilters(attr, term string) []entity.Filter {
	if term == "" {
		return nil
	}
	return []entity.Filter{entity.Contains(attr, term)}
}

func (s *Service) Assets(ctx context.Context, identifier string) ([]domain.Asset, error) {
	return s.store.Assets().Scan(ctx, searchFilters(entity.AttrAssetIdentifier, identifier)...)
}

func (s *Service) Asset(ctx context.Context, id string) (*domain.Asset, error) {
	return s.store.Assets().Get(ctx, id)
}

func (s *Service) Indicators(ctx context.Context, id string) ([]domain.Indicator, error) {
	return s.store.Indicators().Scan(ctx, searchFilters(entity.AttrID, id)...)
}

// AssetIndicators finds assets by identifier substring with their
// indicators.
func (s *Service) AssetIndicators(ctx context.Context, identifier string) ([]AssetIndicators, error) {
	assets, err := s.Assets(ctx, identifier)
	if err != nil {
		return nil, err
	}
	out := make([]AssetIndicators, 0, len(assets))
	for _, asset := range assets {
		indicators, err := s.store.Indicators().Scan(ctx, entity.Equals(entity.AttrAssetID, asset.ID))
		if err != nil {
			return nil, err
		}
		out = append(out, AssetIndicators{Asset: asset, Indicators: indicators})
	}
	return out, nil
}

func (s *Service) AssetGroups(ctx context.Context, name string) ([]domain.AssetGroup, error) {
	return s.store.AssetGroups().Scan(ctx, searchFilters(entity.AttrName, name)...)
}

func (s *Service) AssetGroup(ctx context.Context, id string) (*domain.AssetGroup, error) {
	return s.store.AssetGroups().Get(ctx, id)
}

func (s *Service) Services(ctx context.Context, name string) ([]domain.Service, error) {
	return s.store.Services().Scan(ctx, searchFilters(entity.AttrName, name)...)
}

func (s *Service) Service(ctx context.Context, id string) (*domain.Service, error) {
	return s.store.Services().Get(ctx, id)
}

// CreateAssetOwner registers a team/operator pair. Registering a pair that
// already exists returns the stored owner.
func (s *Service) CreateAssetOwner(ctx context.Context, req api.CreateAssetOwnerRequest) (domain.AssetOwner, error) {
	if err := s.validateRequest(req); err != nil {
		return domain.AssetOwner{}, err
	}
	existing, err := s.store.AssetOwners().Scan(ctx,
		entity.Equals(entity.AttrTeam, req.Team),
		entity.Equals(entity.AttrOperator, req.Operator),
	)
	if err != nil {
		return domain.AssetOwner{}, fmt.Errorf("find owner %s/%s: %w", req.Team, req.Operator, err)
	}
	if len(existing) > 0 {
		return existing[0], nil
	}

	owner := domain.AssetOwner{ID: s.newID(), Team: req.Team, Operator: req.Operator}
	if err := s.store.AssetOwners().Put(ctx, owner); err != nil {
		return domain.AssetOwner{}, fmt.Errorf("store owner: %w", err)
	}
	return owner, nil
}

func (s *Service) AssetOwners(ctx context.Context, id string) ([]domain.AssetOwner, error) {
	return s.store.AssetOwners().Scan(ctx, searchFilters(entity.AttrID, id)...)
}

func (s *Service) DeleteAssetOwner(ctx context.Context, id string) (*domain.AssetOwner, error) {
	owner, err := s.store.AssetOwners().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.AssetOwners().Delete(ctx, id); err != nil {
		return nil, err
	}
	return owner, nil
}

// UpsertService matches an existing service on the (name, link) pair and
// replaces its review fields. Identity, mask and score are kept. It
// reports whether a new service was created.
func (s *Service) UpsertService(ctx context.Context, svc domain.Service) (domain.Service, bool, error) {
	if strings.TrimSpace(svc.Name) == "" {
		return domain.Service{}, false, invalid("name", "is required")
	}

	filters := []entity.Filter{entity.Equals(entity.AttrName, svc.Name)}
	if svc.Link != "" {
		filters = append(filters, entity.Equals(entity.AttrLink, svc.Link))
	}
	existing, err := s.store.Services().Scan(ctx, filters...)
	if err != nil {
		return domain.Service{}, false, fmt.Errorf("find service %q: %w", svc.Name, err)
	}
	// a service without link must not match one that has a link
	if svc.Link == "" {
		existing = withoutLink(existing)
	}

	created := len(existing) == 0
	if created {
		svc.ID = s.newID()
		svc.Masked = false
		svc.Score = 0
	} else {
		current := existing[0]
		svc.ID = current.ID
		svc.Masked = current.Masked
		svc.Score = current.Score
	}
	svc.Timestamp = s.now()

	if err := s.store.Services().Put(ctx, svc); err != nil {
		return domain.Service{}, false, fmt.Errorf("store service %q: %w", svc.Name, err)
	}
	return svc, created, nil
}

func withoutLink(services []domain.Service) []domain.Service {
	out := services[:0]
	for _, s := range services {
		if s.Link == "" {
			out = append(out, s)
		}
	}
	return out
}
