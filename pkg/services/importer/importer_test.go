package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/de-tools/service-map/pkg/models/domain"
	"github.com/de-tools/service-map/pkg/services/inventory"
	"github.com/de-tools/service-map/pkg/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const reviews = `
services:
  - name: Widgets
    link: https://reviews.example.com/widgets
    service_owner: alice
    highest_risk_impact: HIGH
    recommendations: 2
  - name: Gadgets
    highest_risk_impact: LOW
`

func TestImport_UpsertsByNameAndLink(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	inv, err := inventory.NewService(store)
	require.NoError(t, err)
	imp, err := NewImporter(inv)
	require.NoError(t, err)

	result, err := imp.Import(ctx, strings.NewReader(reviews))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.NoError(t, result.Err())

	result, err = imp.Import(ctx, strings.NewReader(reviews))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 2, result.Updated)

	services, err := store.Services().Scan(ctx)
	require.NoError(t, err)
	require.Len(t, services, 2)
	var widgets domain.Service
	for _, s := range services {
		if s.Name == "Widgets" {
			widgets = s
		}
	}
	assert.Equal(t, "alice", widgets.ServiceOwner)
	require.NotNil(t, widgets.Recommendations)
	assert.Equal(t, 2, *widgets.Recommendations)
}

type mockUpserter struct {
	mock.Mock
}

func (m *mockUpserter) UpsertService(ctx context.Context, svc domain.Service) (domain.Service, bool, error) {
	args := m.Called(ctx, svc)
	return args.Get(0).(domain.Service), args.Bool(1), args.Error(2)
}

func TestImport_ContinuesAfterRowFailure(t *testing.T) {
	upserter := new(mockUpserter)
	boom := errors.New("throttled")
	upserter.On("UpsertService", mock.Anything, mock.MatchedBy(func(s domain.Service) bool { return s.Name == "Widgets" })).
		Return(domain.Service{}, false, boom)
	upserter.On("UpsertService", mock.Anything, mock.MatchedBy(func(s domain.Service) bool { return s.Name == "Gadgets" })).
		Return(domain.Service{ID: "s-2", Name: "Gadgets"}, true, nil)

	imp, err := NewImporter(upserter)
	require.NoError(t, err)

	result, err := imp.Import(context.Background(), strings.NewReader(reviews))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, 1, result.Failed[0].Row)
	assert.ErrorIs(t, result.Err(), boom)
	upserter.AssertExpectations(t)
}

func TestImport_MalformedFile(t *testing.T) {
	imp, err := NewImporter(new(mockUpserter))
	require.NoError(t, err)

	_, err = imp.Import(context.Background(), strings.NewReader("services: [name: {"))
	assert.Error(t, err)
}

func TestImport_EmptyFile(t *testing.T) {
	imp, err := NewImporter(new(mockUpserter))
	require.NoError(t, err)

	result, err := imp.Import(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, result.Created+result.Updated)
}
