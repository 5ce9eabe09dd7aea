package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/de-tools/service-map/pkg/models/domain"
	"github.com/de-tools/service-map/pkg/models/store"
	"github.com/de-tools/service-map/pkg/store/entity"
	"github.com/rs/zerolog"
)

const (
	hashKey          = "id"
	defaultTimeout   = 10 * time.Second
	tableWaitTimeout = 2 * time.Minute
)

// API is the subset of the DynamoDB client the store calls.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

type Options struct {
	// CallTimeout bounds every single request, including each scan page.
	CallTimeout    time.Duration
	ConsistentRead bool
}

type Store struct {
	client API
	tables map[entity.Kind]string

	assets      *table[domain.Asset, store.Asset]
	assetGroups *table[domain.AssetGroup, store.AssetGroup]
	services    *table[domain.Service, store.Service]
	indicators  *table[domain.Indicator, store.Indicator]
	assetOwners *table[domain.AssetOwner, store.AssetOwner]
}

func NewStore(client API, tables map[entity.Kind]string, opts Options) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("dynamodb client is required")
	}
	for _, kind := range entity.Kinds {
		if tables[kind] == "" {
			return nil, fmt.Errorf("no table name for %s", kind)
		}
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultTimeout
	}

	return &Store{
		client:      client,
		tables:      tables,
		assets:      newTable(client, tables[entity.KindAsset], entity.AssetCodec, opts),
		assetGroups: newTable(client, tables[entity.KindAssetGroup], entity.AssetGroupCodec, opts),
		services:    newTable(client, tables[entity.KindService], entity.ServiceCodec, opts),
		indicators:  newTable(client, tables[entity.KindIndicator], entity.IndicatorCodec, opts),
		assetOwners: newTable(client, tables[entity.KindAssetOwner], entity.AssetOwnerCodec, opts),
	}, nil
}

func (s *Store) Assets() entity.ScoredTable[domain.Asset]     { return s.assets }
func (s *Store) AssetGroups() entity.Table[domain.AssetGroup] { return s.assetGroups }
func (s *Store) Services() entity.ScoredTable[domain.Service] { return s.services }
func (s *Store) Indicators() entity.Table[domain.Indicator]   { return s.indicators }
func (s *Store) AssetOwners() entity.Table[domain.AssetOwner] { return s.assetOwners }

// EnsureTables creates any missing table with on-demand billing and waits
// until it is active.
func (s *Store) EnsureTables(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	for _, kind := range entity.Kinds {
		name := s.tables[kind]
		_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
		if err == nil {
			continue
		}
		var notFound *types.ResourceNotFoundException
		if !errors.As(err, &notFound) {
			return fmt.Errorf("describe table %s: %w", name, err)
		}

		logger.Info().Str("table", name).Msg("Creating table")
		_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName: aws.String(name),
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String(hashKey), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
			},
			BillingMode: types.BillingModePayPerRequest,
		})
		if err != nil {
			return fmt.Errorf("create table %s: %w", name, err)
		}

		waiter := dynamodb.NewTableExistsWaiter(s.client)
		err = waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, tableWaitTimeout)
		if err != nil {
			return fmt.Errorf("wait for table %s: %w", name, err)
		}
	}
	return nil
}

type table[T any, R any] struct {
	client API
	name   string
	codec  entity.Codec[T, R]
	opts   Options
}

func newTable[T any, R any](client API, name string, codec entity.Codec[T, R], opts Options) *table[T, R] {
	return &table[T, R]{client: client, name: name, codec: codec, opts: opts}
}

func (t *table[T, R]) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		hashKey: &types.AttributeValueMemberS{Value: id},
	}
}

func (t *table[T, R]) decode(item map[string]types.AttributeValue) (T, error) {
	var zero T
	var record R
	if err := attributevalue.UnmarshalMap(item, &record); err != nil {
		return zero, fmt.Errorf("unmarshal %s item: %w", t.codec.Kind, err)
	}
	v, err := t.codec.FromRecord(record)
	if err != nil {
		return zero, fmt.Errorf("decode %s: %w", t.codec.Kind, err)
	}
	return v, nil
}

func (t *table[T, R]) Get(ctx context.Context, id string) (*T, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.opts.CallTimeout)
	defer cancel()

	out, err := t.client.GetItem(callCtx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.name),
		Key:            t.key(id),
		ConsistentRead: aws.Bool(t.opts.ConsistentRead),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", t.codec.Kind, id, err)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("%s %s: %w", t.codec.Kind, id, entity.ErrNotFound)
	}

	item, err := t.decode(out.Item)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (t *table[T, R]) Scan(ctx context.Context, filters ...entity.Filter) ([]T, error) {
	input := &dynamodb.ScanInput{
		TableName:      aws.String(t.name),
		ConsistentRead: aws.Bool(t.opts.ConsistentRead),
	}
	if len(filters) > 0 {
		expr, err := filterExpression(filters)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.codec.Kind, err)
		}
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	items := make([]T, 0)
	paginator := dynamodb.NewScanPaginator(t.client, input)
	for paginator.HasMorePages() {
		page, err := t.nextPage(ctx, paginator)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.codec.Kind, err)
		}
		for _, raw := range page.Items {
			item, err := t.decode(raw)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}
	return items, nil
}

func (t *table[T, R]) nextPage(ctx context.Context, paginator *dynamodb.ScanPaginator) (*dynamodb.ScanOutput, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.opts.CallTimeout)
	defer cancel()
	return paginator.NextPage(callCtx)
}

func (t *table[T, R]) Put(ctx context.Context, v T) error {
	id := t.codec.ID(v)
	if id == "" {
		return fmt.Errorf("put %s: empty id", t.codec.Kind)
	}
	record, err := t.codec.ToRecord(v)
	if err != nil {
		return fmt.Errorf("put %s %s: %w", t.codec.Kind, id, err)
	}
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshal %s %s: %w", t.codec.Kind, id, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, t.opts.CallTimeout)
	defer cancel()
	_, err = t.client.PutItem(callCtx, &dynamodb.PutItemInput{
		TableName: aws.String(t.name),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put %s %s: %w", t.codec.Kind, id, err)
	}
	return nil
}

// SetScore issues a conditional UpdateItem touching only the score, so
// concurrent rule writes to other attributes survive.
func (t *table[T, R]) SetScore(ctx context.Context, id string, score int) error {
	update := expression.Set(expression.Name(entity.AttrScore), expression.Value(score))
	exists := expression.Name(hashKey).AttributeExists()
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(exists).Build()
	if err != nil {
		return fmt.Errorf("score %s %s: %w", t.codec.Kind, id, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, t.opts.CallTimeout)
	defer cancel()
	_, err = t.client.UpdateItem(callCtx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.name),
		Key:                       t.key(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	var missing *types.ConditionalCheckFailedException
	if errors.As(err, &missing) {
		return fmt.Errorf("%s %s: %w", t.codec.Kind, id, entity.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("score %s %s: %w", t.codec.Kind, id, err)
	}
	return nil
}

func (t *table[T, R]) Delete(ctx context.Context, id string) error {
	callCtx, cancel := context.WithTimeout(ctx, t.opts.CallTimeout)
	defer cancel()

	_, err := t.client.DeleteItem(callCtx, &dynamodb.DeleteItemInput{
		TableName: aws.String(t.name),
		Key:       t.key(id),
	})
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", t.codec.Kind, id, err)
	}
	return nil
}

func filterExpression(filters []entity.Filter) (expression.Expression, error) {
	conditions := make([]expression.ConditionBuilder, 0, len(filters))
	for _, f := range filters {
		cond, err := condition(f)
		if err != nil {
			return expression.Expression{}, err
		}
		conditions = append(conditions, cond)
	}

	filter := conditions[0]
	if len(conditions) > 1 {
		filter = expression.And(conditions[0], conditions[1], conditions[2:]...)
	}
	return expression.NewBuilder().WithFilter(filter).Build()
}

func condition(f entity.Filter) (expression.ConditionBuilder, error) {
	name := expression.Name(f.Attribute)
	switch f.Op {
	case entity.OpEquals:
		return name.Equal(expression.Value(f.Value)), nil
	case entity.OpContains:
		return name.Contains(f.Value), nil
	case entity.OpExists:
		return name.AttributeExists(), nil
	default:
		return expression.ConditionBuilder{}, fmt.Errorf("unsupported filter %s", f)
	}
}
