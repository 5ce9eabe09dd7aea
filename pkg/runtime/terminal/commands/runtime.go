package commands

import (
	"context"

	"github.com/de-tools/service-map/pkg/config"
	"github.com/de-tools/service-map/pkg/services/discovery"
	"github.com/de-tools/service-map/pkg/store/blob"
	"github.com/de-tools/service-map/pkg/store/entity"
)

// Runtime gives commands their settings and lazily opened backends.
type Runtime interface {
	Settings() *config.Settings
	Store(ctx context.Context) (entity.Store, error)
	Blobs(ctx context.Context) (blob.Store, error)
	Sources(ctx context.Context, names []string) ([]discovery.Source, error)
}
