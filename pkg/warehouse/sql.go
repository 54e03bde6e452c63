package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"rasgo-sdk/internal/tracking"
	"rasgo-sdk/pkg/api"
	"rasgo-sdk/pkg/frame"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/snowflakedb/gosnowflake"
)

// Credentials locate and authenticate a warehouse connection. A DSN is used
// verbatim, otherwise one is built from the remaining fields.
type Credentials struct {
	Dialect    string
	DSN        string
	Username   string
	Password   string
	Account    string
	Database   string
	Schema     string
	Warehouse  string
	Role       string
	RolePrefix string
}

// CredentialsFromProfile reads snowflake credentials from the user profile
// returned by the web api.
func CredentialsFromProfile(p api.UserProfile) Credentials {
	creds := Credentials{
		Dialect:   "snowflake",
		Password:  p.SnowPassword,
		Account:   p.Organization.Account,
		Database:  p.Organization.Database,
		Schema:    p.Organization.Schema,
		Warehouse: p.Organization.Warehouse,
		Role:      p.SnowRole,
	}
	if p.SnowUsername != nil {
		creds.Username = *p.SnowUsername
	}
	if p.Organization.RolePrefix != nil {
		creds.RolePrefix = *p.Organization.RolePrefix
	}
	return creds
}

func (c Credentials) validate() (Credentials, error) {
	if c.DSN != "" {
		return c, nil
	}
	if c.Username == "" {
		return c, api.Errorf(api.ErrMissingCredentials, "Your user is missing credentials, please contact Rasgo support.")
	}
	if c.RolePrefix == "" {
		return c, api.Errorf(api.ErrMissingCredentials, "Your organization is missing credentials, please contact Rasgo support.")
	}
	if c.Role == "" {
		c.Role = fmt.Sprintf("%s_%s", c.RolePrefix, c.Username)
	}
	return c, nil
}

func openDB(d *Dialect, c Credentials) (*sqlx.DB, error) {
	if c.DSN != "" {
		return sqlx.Open(d.Driver, c.DSN)
	}

	switch d.Name {
	case "snowflake":
		dsn, err := gosnowflake.DSN(&gosnowflake.Config{
			Account:   c.Account,
			User:      c.Username,
			Password:  c.Password,
			Database:  c.Database,
			Schema:    c.Schema,
			Warehouse: c.Warehouse,
			Role:      c.Role,
		})
		if err != nil {
			return nil, fmt.Errorf("error building snowflake dsn: %w", err)
		}
		return sqlx.Open(d.Driver, dsn)
	case "clickhouse":
		db := clickhouse.OpenDB(&clickhouse.Options{
			Addr: []string{c.Account},
			Auth: clickhouse.Auth{Database: c.Database, Username: c.Username, Password: c.Password},
		})
		return sqlx.NewDb(db, d.Driver), nil
	case "postgres":
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.Username, c.Password),
			Host:     c.Account,
			Path:     "/" + c.Database,
			RawQuery: url.Values{"search_path": {c.Schema}}.Encode(),
		}
		return sqlx.Open(d.Driver, u.String())
	default:
		return sqlx.Open(d.Driver, c.Database)
	}
}

// SQLWarehouse is a DataWarehouse over a database/sql driver.
type SQLWarehouse struct {
	db      *sqlx.DB
	dialect *Dialect
	creds   Credentials
	writer  Writer
	tracker tracking.Tracker
}

type Option func(*SQLWarehouse)

func WithWriter(w Writer) Option {
	return func(s *SQLWarehouse) {
		s.writer = w
	}
}

func WithTracker(t tracking.Tracker) Option {
	return func(s *SQLWarehouse) {
		s.tracker = t
	}
}

// Connect opens and pings a warehouse connection. Without a DSN the username
// and the organization role prefix are required, and the role defaults to
// <prefix>_<username>.
func Connect(ctx context.Context, creds Credentials, opts ...Option) (*SQLWarehouse, error) {
	d, err := GetDialect(creds.Dialect)
	if err != nil {
		return nil, err
	}
	creds, err = creds.validate()
	if err != nil {
		return nil, err
	}

	db, err := openDB(d, creds)
	if err != nil {
		return nil, fmt.Errorf("error opening %s connection: %w", d.Name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to %s warehouse: %w", d.Name, err)
	}
	slog.Info("connected to warehouse", "dialect", d.Name, "database", creds.Database, "schema", creds.Schema)

	return NewSQLWarehouse(db, d, creds, opts...), nil
}

// NewSQLWarehouse wraps an open connection. Writes default to batched inserts.
func NewSQLWarehouse(db *sqlx.DB, dialect *Dialect, creds Credentials, opts ...Option) *SQLWarehouse {
	w := &SQLWarehouse{
		db:      db,
		dialect: dialect,
		creds:   creds,
		writer:  &InsertWriter{BatchSize: 1000, MultiRow: dialect.MultiRowInsert},
		tracker: tracking.NoopTracker{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *SQLWarehouse) Dialect() *Dialect {
	return w.dialect
}

func (w *SQLWarehouse) DB() *sqlx.DB {
	return w.db
}

func (w *SQLWarehouse) Close() error {
	return w.db.Close()
}

// PublisherRole is the organization role that owns published tables.
func (w *SQLWarehouse) PublisherRole() string {
	return w.creds.RolePrefix + "PUBLISHER"
}

// ReaderRole is the organization role granted read access to published tables.
func (w *SQLWarehouse) ReaderRole() string {
	return w.creds.RolePrefix + "READER"
}

// UserCredentials returns the credentials the connection was opened with,
// the default role filled in.
func (w *SQLWarehouse) UserCredentials() Credentials {
	return w.creds
}

func (w *SQLWarehouse) track(ctx context.Context, operation string, start time.Time, err error) {
	w.tracker.Track(ctx, "warehouse."+operation, "", start, err)
}

func (w *SQLWarehouse) qualify(database, schema, table string) TableMetadata {
	if database == "" {
		database = w.creds.Database
	}
	if schema == "" {
		schema = w.creds.Schema
	}
	return w.dialect.QualifyTable(database, schema, table)
}

func (w *SQLWarehouse) query(ctx context.Context, query string, args ...any) (*frame.Dataset, error) {
	rows, err := w.db.QueryxContext(ctx, w.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("error running query: %w", err)
	}
	return scanDataset(rows, w.dialect)
}

func (w *SQLWarehouse) GetSourceTable(ctx context.Context, table string, opts TableOptions) (ds *frame.Dataset, err error) {
	defer func(start time.Time) { w.track(ctx, "get_source_table", start, err) }(time.Now())

	query, args, err := MakeSelectStatement(w.qualify(opts.Database, opts.Schema, table), opts.Filters, opts.Limit, opts.Columns)
	if err != nil {
		return nil, err
	}
	slog.Debug("reading source table", "query", query, "args", args)
	return w.query(ctx, query, args...)
}

func (w *SQLWarehouse) namedQuery(text string, database, schema string, params map[string]any) (string, []any, error) {
	if database == "" {
		database = w.creds.Database
	}
	if schema == "" {
		schema = w.creds.Schema
	}
	if strings.Contains(text, "{{.Database}}") {
		if err := checkIdentifier("database", database); err != nil {
			return "", nil, err
		}
	}
	query, err := render("query", text, TableMetadata{Database: database, Schema: schema})
	if err != nil {
		return "", nil, err
	}
	params["database"] = database
	params["schema"] = schema
	return sqlx.Named(query, params)
}

// GetSourceTables lists the tables of a schema.
func (w *SQLWarehouse) GetSourceTables(ctx context.Context, database, schema string) (ds *frame.Dataset, err error) {
	defer func(start time.Time) { w.track(ctx, "get_source_tables", start, err) }(time.Now())

	query, args, err := w.namedQuery(w.dialect.TablesQuery, database, schema, map[string]any{})
	if err != nil {
		return nil, err
	}
	return w.query(ctx, query, args...)
}

// GetSourceColumns lists the columns of a schema, optionally limited to one
// table or one data type.
func (w *SQLWarehouse) GetSourceColumns(ctx context.Context, filter ColumnFilter) (ds *frame.Dataset, err error) {
	defer func(start time.Time) { w.track(ctx, "get_source_columns", start, err) }(time.Now())

	text := w.dialect.ColumnsQuery
	params := map[string]any{}
	if filter.Table != "" {
		text += w.dialect.ColumnsTableFilter
		params["table"] = filter.Table
	}
	if filter.DataType != "" {
		text += w.dialect.ColumnsTypeFilter
		params["data_type"] = filter.DataType
	}

	query, args, err := w.namedQuery(text, filter.Database, filter.Schema, params)
	if err != nil {
		return nil, err
	}
	return w.query(ctx, query, args...)
}

// WriteDataFrameToTable creates the table from the dataset schema, replacing
// it unless appendRows is set, then writes the rows with the configured
// writer. The table is written to the default database and schema.
func (w *SQLWarehouse) WriteDataFrameToTable(ctx context.Context, ds *frame.Dataset, table string, appendRows bool) (err error) {
	defer func(start time.Time) { w.track(ctx, "write_dataframe_to_table", start, err) }(time.Now())

	if idx := strings.LastIndex(table, "."); idx >= 0 {
		table = table[idx+1:]
	}
	if w.dialect.NormalizeIdentifiers {
		table = frame.NormalizeName(table)
		ds = ds.Copy()
		if err := frame.NormalizeColumns(ds); err != nil {
			return err
		}
	}
	if err := checkIdentifier("table", table); err != nil {
		return err
	}
	for _, c := range ds.Names() {
		if err := checkIdentifier("column", c); err != nil {
			return err
		}
	}

	fqtn := w.qualify("", "", table).FQTN()
	ddlOpts := frame.DDLOptions{Append: appendRows, Types: w.dialect.TypeMap(), Suffix: w.dialect.TableSuffix}

	if !appendRows && w.dialect.Replace == ReplaceDropCreate {
		if _, err := w.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+fqtn); err != nil {
			return fmt.Errorf("error dropping table %s: %w", fqtn, err)
		}
		ddlOpts.Append = true
	}

	ddl := frame.GenerateDDL(ds, fqtn, ddlOpts)
	slog.Debug("creating table", "ddl", ddl)
	if _, err := w.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("error creating table %s: %w", fqtn, err)
	}

	if err := w.writer.Write(ctx, w.db, fqtn, ds); err != nil {
		return err
	}
	slog.Info("wrote dataframe to table", "table", fqtn, "rows", ds.Nrow(), "append", appendRows)
	return nil
}

func (w *SQLWarehouse) ExecuteQuery(ctx context.Context, query string, args ...any) (err error) {
	defer func(start time.Time) { w.track(ctx, "execute_query", start, err) }(time.Now())

	if _, err := w.db.ExecContext(ctx, w.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}

func (w *SQLWarehouse) QueryIntoDataFrame(ctx context.Context, query string, args ...any) (ds *frame.Dataset, err error) {
	defer func(start time.Time) { w.track(ctx, "query_into_dataframe", start, err) }(time.Now())
	return w.query(ctx, query, args...)
}

type grantParams struct {
	Table string
	Role  string
}

func (w *SQLWarehouse) grant(ctx context.Context, kind, text, table, role string) error {
	if text == "" {
		return api.Errorf(api.ErrUnsupported, "%s is not supported by the %s dialect", kind, w.dialect.Name)
	}
	fqtn := w.qualify("", "", table).FQTN()
	if err := checkIdentifier("table", fqtn); err != nil {
		return err
	}
	if err := checkIdentifier("role", role); err != nil {
		return err
	}
	stmt, err := render(kind, text, grantParams{Table: fqtn, Role: role})
	if err != nil {
		return err
	}
	return w.ExecuteQuery(ctx, stmt)
}

// GrantTableOwnership transfers ownership of table to role, the publisher
// role when empty.
func (w *SQLWarehouse) GrantTableOwnership(ctx context.Context, table, role string) error {
	if role == "" {
		role = w.PublisherRole()
	}
	return w.grant(ctx, "grant_ownership", w.dialect.GrantOwnership, table, role)
}

// GrantTableAccess grants select on table to role, the reader role when empty.
func (w *SQLWarehouse) GrantTableAccess(ctx context.Context, table, role string) error {
	if role == "" {
		role = w.ReaderRole()
	}
	return w.grant(ctx, "grant_select", w.dialect.GrantSelect, table, role)
}

type cloneParams struct {
	New      string
	Existing string
}

// CloneTable copies existing into a new table. With overwrite an existing
// target is replaced.
func (w *SQLWarehouse) CloneTable(ctx context.Context, newTable, existing string, overwrite bool) error {
	params := cloneParams{
		New:      w.qualify("", "", newTable).FQTN(),
		Existing: w.qualify("", "", existing).FQTN(),
	}
	if err := checkIdentifier("table", params.New); err != nil {
		return err
	}
	if err := checkIdentifier("table", params.Existing); err != nil {
		return err
	}

	statements := w.dialect.Clone
	if overwrite {
		if len(w.dialect.CloneReplace) > 0 {
			statements = w.dialect.CloneReplace
		} else {
			statements = append([]string{"DROP TABLE IF EXISTS {{.New}}"}, statements...)
		}
	}
	if len(statements) == 0 {
		return api.Errorf(api.ErrUnsupported, "clone is not supported by the %s dialect", w.dialect.Name)
	}

	for _, text := range statements {
		stmt, err := render("clone", text, params)
		if err != nil {
			return err
		}
		if err := w.ExecuteQuery(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// AppendToTable inserts every row of from into into.
func (w *SQLWarehouse) AppendToTable(ctx context.Context, from, into string) error {
	fromTable := w.qualify("", "", from).FQTN()
	intoTable := w.qualify("", "", into).FQTN()
	if err := checkIdentifier("table", fromTable); err != nil {
		return err
	}
	if err := checkIdentifier("table", intoTable); err != nil {
		return err
	}
	return w.ExecuteQuery(ctx, fmt.Sprintf("INSERT INTO %s SELECT * FROM %s", intoTable, fromTable))
}
