package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/de-tools/service-map/pkg/models/api"
	"github.com/de-tools/service-map/pkg/models/domain"
	"github.com/de-tools/service-map/pkg/services/inventory"
	"github.com/de-tools/service-map/pkg/store/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T, logger zerolog.Logger) (*WebAPI, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	inv, err := inventory.NewService(store)
	require.NoError(t, err)
	return NewWebAPI(logger, Config{
		Addr:         "127.0.0.1:0",
		Dependencies: Dependencies{Inventory: inv},
	}), store
}

func TestWebAPI_Endpoints(t *testing.T) {
	webAPI, store := newTestAPI(t, zerolog.New(zerolog.NewTestWriter(t)))
	require.NoError(t, store.Assets().Put(context.Background(), domain.Asset{ID: "a-1", AssetIdentifier: "host1"}))

	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{name: "status", path: "/api/v1/asset/status", expectedStatus: http.StatusOK},
		{name: "asset", path: "/api/v1/asset/a-1", expectedStatus: http.StatusOK},
		{name: "missing asset", path: "/api/v1/asset/a-2", expectedStatus: http.StatusNotFound},
		{name: "unknown route", path: "/api/v2/assets/", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			webAPI.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestWebAPI_EmptySearchIsArray(t *testing.T) {
	webAPI, _ := newTestAPI(t, zerolog.Nop())

	rec := httptest.NewRecorder()
	webAPI.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/services/missing-service", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var services []api.Service
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &services))
	assert.Empty(t, services)
}

func TestWebAPI_StartStopsOnContextCancel(t *testing.T) {
	webAPI, _ := newTestAPI(t, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- webAPI.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
