package pg

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/airbusgeo/coverstore/interface/database"
	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/tiling"

	"github.com/lib/pq"
)

// schema of the catalog and of the tables of the coverages
const schema = "coverstore"

const maxOpenConns = 5

// pgInterface allows to use either a sql.DB or a sql.Tx
type pgInterface interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// BackendTx implements RasterTxBackend
type BackendTx struct {
	*sql.Tx
	Backend
}

// BackendDB implements RasterDBBackend
type BackendDB struct {
	*sql.DB
	Backend
}

// Backend implements RasterBackend
type Backend struct {
	pg pgInterface
}

var _ database.RasterDBBackend = BackendDB{}
var _ database.RasterTxBackend = BackendTx{}

// StartTransaction implements RasterDBBackend
func (bdb BackendDB) StartTransaction(ctx context.Context) (database.RasterTxBackend, error) {
	tx, err := bdb.BeginTx(ctx, nil)
	if err != nil {
		return BackendTx{}, pqErrorFormat("StartTransaction: %w", err)
	}
	return BackendTx{tx, Backend{pg: tx}}, nil
}

// Rollback overloads sql.Tx.Rollback to be idempotent
func (btx BackendTx) Rollback() error {
	err := btx.Tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

// ConnStringFromId returns the url of the database. The password is escaped.
func ConnStringFromId(dbName, dbUser, dbHost, dbPassword string) (string, error) {
	for flag, v := range map[string]string{"dbName": dbName, "dbUser": dbUser, "dbHost": dbHost, "dbPassword": dbPassword} {
		if v == "" {
			return "", fmt.Errorf("missing %s flag", flag)
		}
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(dbUser, dbPassword),
		Host:     dbHost,
		Path:     "/" + dbName,
		RawQuery: "binary_parameters=yes",
	}
	return u.String(), nil
}

// New connects to the database
func New(ctx context.Context, dbConnection string) (*BackendDB, error) {
	db, err := sql.Open("postgres", dbConnection)
	if err != nil {
		return nil, fmt.Errorf("sql.open: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, pqErrorFormat("pg.New.ping: %w", err)
	}
	return &BackendDB{db, Backend{pg: db}}, nil
}

// ReadRawRaster implements RasterBackend
func (b Backend) ReadRawRaster(ctx context.Context, cov *coverage.Coverage, req coverage.WindowRequest) ([]byte, error) {
	return tiling.ReadWindow(ctx, b, cov, req)
}

// LoadRawTiles implements RasterBackend
func (b Backend) LoadRawTiles(ctx context.Context, cov *coverage.Coverage, req coverage.LoadRequest, producer coverage.TileProducer) (coverage.Section, error) {
	return tiling.Load(ctx, b, cov, req, producer)
}

// tableName returns the qualified name of one of the tables of a coverage
func tableName(cov, suffix string) string {
	return schema + "." + pq.QuoteIdentifier(cov+"_"+suffix)
}

func (b Backend) bulkInsert(ctx context.Context, table string, columns []string, data [][]interface{}) (err error) {
	// Prepare the insert
	stmt, err := b.pg.PrepareContext(ctx, pq.CopyInSchema(schema, table, columns...))
	if err != nil {
		return pqErrorFormat("bulkInsert.prepare: %w", err)
	}
	defer func() {
		if e := stmt.Close(); e != nil && err == nil {
			err = e
		}
	}()

	// Append the datas
	for _, d := range data {
		if _, err := stmt.ExecContext(ctx, d...); err != nil {
			return pqErrorFormat("bulkInsert.append: %w", err)
		}
	}

	// Execute statement
	if _, err = stmt.ExecContext(ctx); err != nil {
		return pqErrorFormat("bulkInsert.exec: %w", err)
	}
	return nil
}

// conditions builds a WHERE clause with numbered parameters
type conditions struct {
	Parameters []interface{}
	terms      []string
}

// and appends a condition. Each %d of cond is replaced by the position of the next parameter.
func (c *conditions) and(cond string, parameters ...interface{}) {
	positions := make([]interface{}, len(parameters))
	for i := range parameters {
		positions[i] = len(c.Parameters) + i + 1
	}
	c.Parameters = append(c.Parameters, parameters...)
	c.terms = append(c.terms, fmt.Sprintf(cond, positions...))
}

// Where returns " WHERE cond1 AND cond2..." or "" without any condition
func (c conditions) Where() string {
	if len(c.terms) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.terms, " AND ")
}
