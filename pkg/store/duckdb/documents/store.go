package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/de-tools/service-map/pkg/models/domain"
	"github.com/de-tools/service-map/pkg/store/duckdb"
	"github.com/de-tools/service-map/pkg/store/entity"
)

// attributePattern guards attribute names spliced into JSON paths.
var attributePattern = regexp.MustCompile(`^[a-z_]+$`)

// Store keeps every record kind as JSON documents in DuckDB. Calls join the
// transaction carried by the context, if any.
type Store struct {
	db *sql.DB

	assets      *table[domain.Asset]
	assetGroups *table[domain.AssetGroup]
	services    *table[domain.Service]
	indicators  *table[domain.Indicator]
	assetOwners *table[domain.AssetOwner]
}

func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &Store{
		db:          db,
		assets:      newTable(db, duckdb.AssetsTable, entity.AssetCodec),
		assetGroups: newTable(db, duckdb.AssetGroupsTable, entity.AssetGroupCodec),
		services:    newTable(db, duckdb.ServicesTable, entity.ServiceCodec),
		indicators:  newTable(db, duckdb.IndicatorsTable, entity.IndicatorCodec),
		assetOwners: newTable(db, duckdb.AssetOwnersTable, entity.AssetOwnerCodec),
	}, nil
}

func (s *Store) Assets() entity.ScoredTable[domain.Asset]     { return s.assets }
func (s *Store) AssetGroups() entity.Table[domain.AssetGroup] { return s.assetGroups }
func (s *Store) Services() entity.ScoredTable[domain.Service] { return s.services }
func (s *Store) Indicators() entity.Table[domain.Indicator]   { return s.indicators }
func (s *Store) AssetOwners() entity.Table[domain.AssetOwner] { return s.assetOwners }

func (s *Store) EnsureTables(ctx context.Context) error {
	return duckdb.Bootstrap(ctx, s.db)
}

// WithinTx runs fn in a transaction committed only when fn succeeds. A
// context already carrying a transaction is reused as is.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return duckdb.InTransaction(ctx, s.db, fn)
}

func (s *Store) Close() error {
	return s.db.Close()
}

type table[T any] struct {
	db     *sql.DB
	name   string
	kind   entity.Kind
	id     func(T) string
	encode func(T) ([]byte, error)
	decode func([]byte) (T, error)
}

func newTable[T any, R any](db *sql.DB, name string, codec entity.Codec[T, R]) *table[T] {
	return &table[T]{
		db:   db,
		name: name,
		kind: codec.Kind,
		id:   codec.ID,
		encode: func(v T) ([]byte, error) {
			record, err := codec.ToRecord(v)
			if err != nil {
				return nil, err
			}
			return json.Marshal(record)
		},
		decode: func(doc []byte) (T, error) {
			var record R
			if err := json.Unmarshal(doc, &record); err != nil {
				var zero T
				return zero, err
			}
			return codec.FromRecord(record)
		},
	}
}

func (t *table[T]) conn(ctx context.Context) duckdb.Querier {
	return duckdb.Conn(ctx, t.db)
}

func (t *table[T]) Get(ctx context.Context, id string) (*T, error) {
	query := fmt.Sprintf(`SELECT CAST(doc AS VARCHAR) FROM %s WHERE id = ?`, t.name)

	var doc string
	err := t.conn(ctx).QueryRowContext(ctx, query, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", t.kind, id, entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", t.kind, id, err)
	}

	item, err := t.decode([]byte(doc))
	if err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", t.kind, id, err)
	}
	return &item, nil
}

func (t *table[T]) Scan(ctx context.Context, filters ...entity.Filter) ([]T, error) {
	where, args, err := predicates(filters)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", t.kind, err)
	}
	query := fmt.Sprintf(`SELECT CAST(doc AS VARCHAR) FROM %s%s ORDER BY id`, t.name, where)

	rows, err := t.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", t.kind, err)
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", t.kind, err)
		}
		item, err := t.decode([]byte(doc))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", t.kind, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", t.kind, err)
	}
	return items, nil
}

func (t *table[T]) Put(ctx context.Context, v T) error {
	id := t.id(v)
	if id == "" {
		return fmt.Errorf("put %s: empty id", t.kind)
	}
	doc, err := t.encode(v)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", t.kind, id, err)
	}

	query := fmt.Sprintf(`INSERT OR REPLACE INTO %s (id, doc) VALUES (?, ?)`, t.name)
	if _, err := t.conn(ctx).ExecContext(ctx, query, id, string(doc)); err != nil {
		return fmt.Errorf("put %s %s: %w", t.kind, id, err)
	}
	return nil
}

// SetScore patches the score into the stored document in place.
func (t *table[T]) SetScore(ctx context.Context, id string, score int) error {
	query := fmt.Sprintf(
		`UPDATE %s SET doc = json_merge_patch(doc, json_object('score', CAST(? AS INTEGER))) WHERE id = ?`,
		t.name,
	)
	res, err := t.conn(ctx).ExecContext(ctx, query, score, id)
	if err != nil {
		return fmt.Errorf("score %s %s: %w", t.kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("score %s %s: %w", t.kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", t.kind, id, entity.ErrNotFound)
	}
	return nil
}

func (t *table[T]) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, t.name)
	if _, err := t.conn(ctx).ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", t.kind, id, err)
	}
	return nil
}

// predicates renders filters as a WHERE clause over the document's
// top-level attributes.
func predicates(filters []entity.Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	clauses := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		if !attributePattern.MatchString(f.Attribute) {
			return "", nil, fmt.Errorf("invalid attribute %q", f.Attribute)
		}
		attr := fmt.Sprintf(`json_extract_string(doc, '$.%s')`, f.Attribute)
		switch f.Op {
		case entity.OpEquals:
			clauses = append(clauses, attr+" = ?")
			args = append(args, f.Value)
		case entity.OpContains:
			clauses = append(clauses, "contains("+attr+", ?)")
			args = append(args, f.Value)
		case entity.OpExists:
			clauses = append(clauses, attr+" IS NOT NULL")
		default:
			return "", nil, fmt.Errorf("unsupported filter %s", f)
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}
