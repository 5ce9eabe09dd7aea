package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/de-tools/service-map/pkg/models/domain"
	"github.com/de-tools/service-map/pkg/store/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.UpdateItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.DeleteItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.ScanOutput)
	return out, args.Error(1)
}

func (m *mockAPI) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.DescribeTableOutput)
	return out, args.Error(1)
}

func (m *mockAPI) CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.CreateTableOutput)
	return out, args.Error(1)
}

var testTables = map[entity.Kind]string{
	entity.KindAsset:      "test-Assets",
	entity.KindAssetGroup: "test-AssetGroups",
	entity.KindService:    "test-Services",
	entity.KindIndicator:  "test-Indicators",
	entity.KindAssetOwner: "test-AssetOwners",
}

type fixture struct {
	api   *mockAPI
	store *Store
}

func setupFixture(t *testing.T) fixture {
	t.Helper()
	api := &mockAPI{}
	s, err := NewStore(api, testTables, Options{CallTimeout: time.Second, ConsistentRead: true})
	require.NoError(t, err)
	t.Cleanup(func() { api.AssertExpectations(t) })
	return fixture{api: api, store: s}
}

func str(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

func TestNewStore_Validation(t *testing.T) {
	_, err := NewStore(nil, testTables, Options{})
	assert.Error(t, err)

	_, err = NewStore(&mockAPI{}, map[entity.Kind]string{entity.KindAsset: "x"}, Options{})
	assert.Error(t, err)
}

func TestTable_GetMiss(t *testing.T) {
	f := setupFixture(t)
	f.api.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return aws.ToString(in.TableName) == "test-Assets" && aws.ToBool(in.ConsistentRead)
	})).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := f.store.Assets().Get(context.Background(), "missing")

	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestTable_GetDecodesItem(t *testing.T) {
	f := setupFixture(t)
	f.api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{
		Item: map[string]types.AttributeValue{
			"id":               str("a1"),
			"asset_type":       str("hostname"),
			"asset_identifier": str("host1.example.com"),
			"team":             str("infra"),
			"score":            &types.AttributeValueMemberN{Value: "4"},
		},
	}, nil)

	asset, err := f.store.Assets().Get(context.Background(), "a1")

	require.NoError(t, err)
	assert.Equal(t, "host1.example.com", asset.AssetIdentifier)
	assert.Equal(t, "infra", asset.Team)
	assert.Equal(t, 4, asset.Score)
}

func TestTable_PutMarshalsRecord(t *testing.T) {
	f := setupFixture(t)
	f.api.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		name, ok := in.Item["name"].(*types.AttributeValueMemberS)
		return aws.ToString(in.TableName) == "test-AssetGroups" && ok && name.Value == "Widgets"
	})).Return(&dynamodb.PutItemOutput{}, nil)

	err := f.store.AssetGroups().Put(context.Background(), domain.AssetGroup{ID: "g1", Name: "Widgets"})

	assert.NoError(t, err)
}

func TestTable_PutRejectsEmptyID(t *testing.T) {
	f := setupFixture(t)

	err := f.store.Services().Put(context.Background(), domain.Service{Name: "Widgets"})

	assert.Error(t, err)
	f.api.AssertNotCalled(t, "PutItem", mock.Anything, mock.Anything)
}

func TestTable_ScanPaginatesWithFilter(t *testing.T) {
	f := setupFixture(t)
	withFilter := mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		return in.FilterExpression != nil && len(in.ExpressionAttributeValues) == 1
	})
	f.api.On("Scan", mock.Anything, withFilter).Return(&dynamodb.ScanOutput{
		Items:            []map[string]types.AttributeValue{{"id": str("a1"), "asset_identifier": str("host1")}},
		LastEvaluatedKey: map[string]types.AttributeValue{"id": str("a1")},
	}, nil).Once()
	f.api.On("Scan", mock.Anything, withFilter).Return(&dynamodb.ScanOutput{
		Items: []map[string]types.AttributeValue{{"id": str("a2"), "asset_identifier": str("host12")}},
	}, nil).Once()

	assets, err := f.store.Assets().Scan(context.Background(), entity.Contains(entity.AttrAssetIdentifier, "host1"))

	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "a1", assets[0].ID)
	assert.Equal(t, "a2", assets[1].ID)
}

func TestTable_ScanError(t *testing.T) {
	f := setupFixture(t)
	f.api.On("Scan", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	_, err := f.store.Indicators().Scan(context.Background())

	assert.ErrorContains(t, err, "throttled")
}

func TestTable_Delete(t *testing.T) {
	f := setupFixture(t)
	f.api.On("DeleteItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.DeleteItemInput) bool {
		id, ok := in.Key["id"].(*types.AttributeValueMemberS)
		return ok && id.Value == "i1"
	})).Return(&dynamodb.DeleteItemOutput{}, nil)

	assert.NoError(t, f.store.Indicators().Delete(context.Background(), "i1"))
}

func TestTable_SetScoreUpdatesScoreOnly(t *testing.T) {
	f := setupFixture(t)
	f.api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		id, ok := in.Key["id"].(*types.AttributeValueMemberS)
		if !ok || id.Value != "a1" || aws.ToString(in.TableName) != "test-Assets" {
			return false
		}
		if in.UpdateExpression == nil || in.ConditionExpression == nil || len(in.ExpressionAttributeValues) != 1 {
			return false
		}
		for _, v := range in.ExpressionAttributeValues {
			n, ok := v.(*types.AttributeValueMemberN)
			return ok && n.Value == "4"
		}
		return false
	})).Return(&dynamodb.UpdateItemOutput{}, nil).Once()

	err := f.store.Assets().SetScore(context.Background(), "a1", 4)

	assert.NoError(t, err)
	f.api.AssertNotCalled(t, "PutItem", mock.Anything, mock.Anything)
}

func TestTable_SetScoreMissingRecord(t *testing.T) {
	f := setupFixture(t)
	f.api.On("UpdateItem", mock.Anything, mock.Anything).
		Return(nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}).Once()

	err := f.store.Services().SetScore(context.Background(), "gone", 2)

	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestFilterExpression(t *testing.T) {
	tests := []struct {
		name    string
		filters []entity.Filter
		values  int
	}{
		{name: "single equals", filters: []entity.Filter{entity.Equals(entity.AttrName, "Widgets")}, values: 1},
		{name: "exists has no value", filters: []entity.Filter{entity.Exists(entity.AttrAssetGroupID)}, values: 0},
		{
			name: "anded filters",
			filters: []entity.Filter{
				entity.Contains(entity.AttrAssetIdentifier, "mana"),
				entity.Equals(entity.AttrAssetType, "hostname"),
				entity.Exists(entity.AttrAssetGroupID),
			},
			values: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := filterExpression(tt.filters)

			require.NoError(t, err)
			assert.NotNil(t, expr.Filter())
			assert.Len(t, expr.Values(), tt.values)
		})
	}
}

func TestStore_EnsureTablesCreatesMissing(t *testing.T) {
	f := setupFixture(t)
	active := &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableStatus: types.TableStatusActive}}
	for _, kind := range entity.Kinds {
		name := testTables[kind]
		matches := mock.MatchedBy(func(in *dynamodb.DescribeTableInput) bool { return aws.ToString(in.TableName) == name })
		if kind == entity.KindIndicator {
			f.api.On("DescribeTable", mock.Anything, matches).
				Return(nil, &types.ResourceNotFoundException{Message: aws.String("missing")}).Once()
			f.api.On("DescribeTable", mock.Anything, matches).Return(active, nil).Once()
			continue
		}
		f.api.On("DescribeTable", mock.Anything, matches).Return(active, nil).Once()
	}
	f.api.On("CreateTable", mock.Anything, mock.MatchedBy(func(in *dynamodb.CreateTableInput) bool {
		return aws.ToString(in.TableName) == "test-Indicators" && in.BillingMode == types.BillingModePayPerRequest
	})).Return(&dynamodb.CreateTableOutput{}, nil).Once()

	err := f.store.EnsureTables(context.Background())

	assert.NoError(t, err)
}
