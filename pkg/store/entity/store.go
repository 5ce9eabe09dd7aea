package entity

import (
	"context"
	"errors"

	"github.com/de-tools/service-map/pkg/models/domain"
)

var ErrNotFound = errors.New("record not found")

// Table gives uniform access to one record kind. Put replaces the whole
// record; Delete of a missing id is not an error.
type Table[T any] interface {
	Get(ctx context.Context, id string) (*T, error)
	Scan(ctx context.Context, filters ...Filter) ([]T, error)
	Put(ctx context.Context, item T) error
	Delete(ctx context.Context, id string) error
}

// ScoredTable holds records carrying a derived score. SetScore updates the
// score attribute alone, leaving every other attribute as stored, and
// returns ErrNotFound when the record is gone.
type ScoredTable[T any] interface {
	Table[T]
	SetScore(ctx context.Context, id string, score int) error
}

type Store interface {
	Assets() ScoredTable[domain.Asset]
	AssetGroups() Table[domain.AssetGroup]
	Services() ScoredTable[domain.Service]
	Indicators() Table[domain.Indicator]
	AssetOwners() Table[domain.AssetOwner]
}

// Transactor is implemented by backends able to scope a unit of work to a
// local transaction. fn receives a context carrying the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Initializer is implemented by backends that provision their tables.
// Provisioning is idempotent.
type Initializer interface {
	EnsureTables(ctx context.Context) error
}

// Kind names a record kind independently of any backend naming.
type Kind string

const (
	KindAsset      Kind = "Assets"
	KindAssetGroup Kind = "AssetGroups"
	KindService    Kind = "Services"
	KindIndicator  Kind = "Indicators"
	KindAssetOwner Kind = "AssetOwners"
)

var Kinds = []Kind{KindAsset, KindAssetGroup, KindService, KindIndicator, KindAssetOwner}
