package entity

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/de-tools/service-map/pkg/adapters"
	"github.com/de-tools/service-map/pkg/models/domain"
	"github.com/de-tools/service-map/pkg/models/store"
)

// Codec converts between a domain type and its persisted record. Backends
// are generic over codecs so every record kind shares one implementation.
type Codec[T any, R any] struct {
	Kind       Kind
	ID         func(T) string
	ToRecord   func(T) (R, error)
	FromRecord func(R) (T, error)
}

var AssetCodec = Codec[domain.Asset, store.Asset]{
	Kind: KindAsset,
	ID:   func(a domain.Asset) string { return a.ID },
	ToRecord: func(a domain.Asset) (store.Asset, error) {
		return adapters.MapDomainAssetToStore(a), nil
	},
	FromRecord: func(r store.Asset) (domain.Asset, error) {
		return adapters.MapStoreAssetToDomain(r), nil
	},
}

var AssetGroupCodec = Codec[domain.AssetGroup, store.AssetGroup]{
	Kind: KindAssetGroup,
	ID:   func(g domain.AssetGroup) string { return g.ID },
	ToRecord: func(g domain.AssetGroup) (store.AssetGroup, error) {
		return adapters.MapDomainAssetGroupToStore(g), nil
	},
	FromRecord: func(r store.AssetGroup) (domain.AssetGroup, error) {
		return adapters.MapStoreAssetGroupToDomain(r), nil
	},
}

var ServiceCodec = Codec[domain.Service, store.Service]{
	Kind: KindService,
	ID:   func(s domain.Service) string { return s.ID },
	ToRecord: func(s domain.Service) (store.Service, error) {
		return adapters.MapDomainServiceToStore(s), nil
	},
	FromRecord: func(r store.Service) (domain.Service, error) {
		return adapters.MapStoreServiceToDomain(r), nil
	},
}

var IndicatorCodec = Codec[domain.Indicator, store.Indicator]{
	Kind:       KindIndicator,
	ID:         func(i domain.Indicator) string { return i.ID },
	ToRecord:   adapters.MapDomainIndicatorToStore,
	FromRecord: adapters.MapStoreIndicatorToDomain,
}

var AssetOwnerCodec = Codec[domain.AssetOwner, store.AssetOwner]{
	Kind: KindAssetOwner,
	ID:   func(o domain.AssetOwner) string { return o.ID },
	ToRecord: func(o domain.AssetOwner) (store.AssetOwner, error) {
		return adapters.MapDomainAssetOwnerToStore(o), nil
	},
	FromRecord: func(r store.AssetOwner) (domain.AssetOwner, error) {
		return adapters.MapStoreAssetOwnerToDomain(r), nil
	},
}

// Attributes flattens a record into its scalar attributes keyed by the
// persisted attribute name. Nested values are skipped.
func Attributes(record any) (map[string]string, error) {
	buf, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(buf, &raw); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}

	attrs := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			attrs[k] = val
		case bool:
			attrs[k] = strconv.FormatBool(val)
		case float64:
			attrs[k] = strconv.FormatFloat(val, 'f', -1, 64)
		}
	}
	return attrs, nil
}
