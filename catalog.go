package seqtable

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	// Pure-Go SQLite driver; no cgo.
	_ "modernc.org/sqlite"
)

// CatalogConfig configures the external-table catalog store.
type CatalogConfig struct {
	// Path to the SQLite database file.
	Path string

	// BusyTimeout is the timeout for acquiring locks in milliseconds.
	BusyTimeout int
}

// DefaultCatalogConfig returns default configuration.
func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Path:        "seqtable.db",
		BusyTimeout: 5000,
	}
}

// TableDef is the durable form of a table binding: everything needed to
// rebuild a Table except the live StorageBackend, which the caller owns.
type TableDef struct {
	Name          string
	Format        Format
	Root          string
	Compression   *Compression
	PartitionKeys []string
	Indexed       bool
	Options       ScanOptions
	CreatedAt     time.Time
}

// Catalog persists external-table definitions in SQLite so bindings survive
// process restarts.
type Catalog struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// OpenCatalog opens (and if needed initializes) the catalog database.
func OpenCatalog(config CatalogConfig) (*Catalog, error) {
	if config.Path == "" {
		config.Path = "seqtable.db"
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5000
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d", config.Path, config.BusyTimeout)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS tables (
			name TEXT PRIMARY KEY,
			format TEXT NOT NULL,
			root TEXT NOT NULL,
			compression TEXT,
			partition_keys TEXT NOT NULL,  -- JSON encoded
			indexed INTEGER NOT NULL,
			options TEXT NOT NULL,         -- JSON encoded
			created_at INTEGER NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Register stores a table definition. Re-registering an existing name
// replaces the prior definition.
func (c *Catalog) Register(ctx context.Context, def TableDef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if def.Name == "" {
		return newConfigError("catalog", "empty table name", nil)
	}
	if _, err := ParseFormat(def.Format.String()); err != nil {
		return newConfigError(def.Name, "unknown format", ErrUnknownFormat)
	}

	keys, err := json.Marshal(def.PartitionKeys)
	if err != nil {
		return fmt.Errorf("failed to encode partition keys: %w", err)
	}
	opts, err := json.Marshal(def.Options)
	if err != nil {
		return fmt.Errorf("failed to encode scan options: %w", err)
	}
	var compression any
	if def.Compression != nil {
		compression = def.Compression.String()
	}
	created := def.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO tables (name, format, root, compression, partition_keys, indexed, options, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			format = excluded.format,
			root = excluded.root,
			compression = excluded.compression,
			partition_keys = excluded.partition_keys,
			indexed = excluded.indexed,
			options = excluded.options`,
		def.Name, def.Format.String(), def.Root, compression,
		string(keys), boolToInt(def.Indexed), string(opts), created.Unix())
	if err != nil {
		return fmt.Errorf("failed to register table %s: %w", def.Name, err)
	}
	return nil
}

// Lookup returns the definition registered under name.
func (c *Catalog) Lookup(ctx context.Context, name string) (TableDef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return TableDef{}, ErrClosed
	}
	row := c.db.QueryRowContext(ctx, `
		SELECT name, format, root, compression, partition_keys, indexed, options, created_at
		FROM tables WHERE name = ?`, name)
	def, err := scanTableDef(row)
	if err == sql.ErrNoRows {
		return TableDef{}, newConfigError(name, "table not registered", ErrMissingLocation)
	}
	return def, err
}

// List returns every registered definition in name order.
func (c *Catalog) List(ctx context.Context) ([]TableDef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT name, format, root, compression, partition_keys, indexed, options, created_at
		FROM tables ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var defs []TableDef
	for rows.Next() {
		def, err := scanTableDef(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// Drop removes a table definition. Dropping an unknown name is not an error.
func (c *Catalog) Drop(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	_, err := c.db.ExecContext(ctx, `DELETE FROM tables WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	return nil
}

// Table rebuilds a live Table from a registered definition and the caller's
// backend.
func (c *Catalog) Table(ctx context.Context, name string, backend StorageBackend) (*Table, error) {
	def, err := c.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	opts := []TableOption{WithScanOptions(def.Options)}
	if def.Compression != nil {
		opts = append(opts, WithCompression(*def.Compression))
	}
	if len(def.PartitionKeys) > 0 {
		opts = append(opts, WithPartitionKeys(def.PartitionKeys...))
	}
	if def.Indexed {
		opts = append(opts, WithIndex())
	}
	return NewTable(def.Name, def.Format, backend, def.Root, opts...)
}

// Close releases the catalog database.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTableDef(row rowScanner) (TableDef, error) {
	var (
		def         TableDef
		format      string
		compression sql.NullString
		keysJSON    string
		indexed     int
		optsJSON    string
		createdAt   int64
	)
	if err := row.Scan(&def.Name, &format, &def.Root, &compression, &keysJSON, &indexed, &optsJSON, &createdAt); err != nil {
		return TableDef{}, err
	}
	f, err := ParseFormat(format)
	if err != nil {
		return TableDef{}, fmt.Errorf("catalog entry %s: %w", def.Name, err)
	}
	def.Format = f
	if compression.Valid {
		c, err := ParseCompression(compression.String)
		if err != nil {
			return TableDef{}, fmt.Errorf("catalog entry %s: %w", def.Name, err)
		}
		def.Compression = &c
	}
	if err := json.Unmarshal([]byte(keysJSON), &def.PartitionKeys); err != nil {
		return TableDef{}, fmt.Errorf("catalog entry %s: partition keys: %w", def.Name, err)
	}
	if err := json.Unmarshal([]byte(optsJSON), &def.Options); err != nil {
		return TableDef{}, fmt.Errorf("catalog entry %s: options: %w", def.Name, err)
	}
	def.Indexed = indexed != 0
	def.CreatedAt = time.Unix(createdAt, 0)
	return def, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
