package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const (
	AssetsTable      = "assets"
	AssetGroupsTable = "asset_groups"
	ServicesTable    = "services"
	IndicatorsTable  = "indicators"
	AssetOwnersTable = "asset_owners"
)

// documentTable holds one record kind as a JSON document keyed by id.
const documentTable = `
	CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR PRIMARY KEY,
		doc JSON NOT NULL
	);
`

var bootQueries = []string{
	fmt.Sprintf(documentTable, AssetsTable),
	fmt.Sprintf(documentTable, AssetGroupsTable),
	fmt.Sprintf(documentTable, ServicesTable),
	fmt.Sprintf(documentTable, IndicatorsTable),
	fmt.Sprintf(documentTable, AssetOwnersTable),
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(c)
	return db, nil
}

// Bootstrap runs the boot queries on an already open database.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	for _, query := range bootQueries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("boot query: %w", err)
		}
	}
	return nil
}
