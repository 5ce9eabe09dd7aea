package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/de-tools/service-map/pkg/config"
	"github.com/de-tools/service-map/pkg/store/duckdb"
	"github.com/de-tools/service-map/pkg/store/duckdb/documents"
	"github.com/de-tools/service-map/pkg/store/dynamo"
	"github.com/de-tools/service-map/pkg/store/entity"
	"github.com/de-tools/service-map/pkg/store/memory"
)

const (
	BackendDynamoDB = "dynamodb"
	BackendDuckDB   = "duckdb"
	BackendMemory   = "memory"
)

// StoreFactory opens an entity store from settings.
type StoreFactory func(ctx context.Context, cfg *config.Settings) (entity.Store, error)

// Registry manages store backend factories
type Registry interface {
	// Register adds a new backend factory
	Register(backend string, factory StoreFactory) error
	// Open instantiates the store for the specified backend
	Open(ctx context.Context, backend string, cfg *config.Settings) (entity.Store, error)
	// ListBackends returns the registered backend names, sorted
	ListBackends() []string
}

type registry struct {
	mu        sync.RWMutex
	factories map[string]StoreFactory
}

func NewRegistry() Registry {
	return &registry{
		factories: make(map[string]StoreFactory),
	}
}

// Default returns a registry with every built-in backend.
func Default() Registry {
	r := NewRegistry()
	_ = r.Register(BackendDynamoDB, openDynamo)
	_ = r.Register(BackendDuckDB, openDuckDB)
	_ = r.Register(BackendMemory, openMemory)
	return r
}

func (r *registry) Register(backend string, factory StoreFactory) error {
	if backend == "" {
		return fmt.Errorf("backend name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[backend]; exists {
		return fmt.Errorf("backend %q is already registered", backend)
	}

	r.factories[backend] = factory
	return nil
}

func (r *registry) Open(ctx context.Context, backend string, cfg *config.Settings) (entity.Store, error) {
	r.mu.RLock()
	factory, exists := r.factories[backend]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("backend %q is not registered", backend)
	}

	return factory(ctx, cfg)
}

func (r *registry) ListBackends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	backends := make([]string, 0, len(r.factories))
	for backend := range r.factories {
		backends = append(backends, backend)
	}
	slices.Sort(backends)
	return backends
}

func openDynamo(ctx context.Context, cfg *config.Settings) (entity.Store, error) {
	awsCfg, err := cfg.AWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	return dynamo.NewStore(dynamodb.NewFromConfig(awsCfg), cfg.Tables(), dynamo.Options{
		CallTimeout:    cfg.Store.CallTimeout,
		ConsistentRead: cfg.Store.ConsistentReads,
	})
}

func openDuckDB(_ context.Context, cfg *config.Settings) (entity.Store, error) {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: cfg.Store.DuckDBPath})
	if err != nil {
		return nil, fmt.Errorf("open duckdb %s: %w", cfg.Store.DuckDBPath, err)
	}
	return documents.NewStore(db)
}

func openMemory(context.Context, *config.Settings) (entity.Store, error) {
	return memory.NewStore(), nil
}
