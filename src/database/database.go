package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/username/nanopos/src/logger"
	_ "modernc.org/sqlite"
)

// Settings keys and the sections they are stored under in global_config.
const (
	SectionNodes        = "nodes"
	SectionNodeRelated  = "nodeRelated"
	SectionMoneyRelated = "moneyRelated"
	SectionSecurity     = "security"

	SettingRPCNode   = "rpcNode"
	SettingWSSServer = "wssServer"
	SettingCurrency  = "currency"
	SettingPinHash   = "operatorPinHash"
)

// Seed holds the settings written on first start.
type Seed struct {
	RPCNode   string
	WSSServer string
	Currency  string

	// Location is the calendar legacy price timestamps are converted in. It
	// must match the one price lookups use; nil means time.Local.
	Location *time.Location
}

const schema = `
CREATE TABLE IF NOT EXISTS global_config (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	section_name TEXT NOT NULL,
	setting_name TEXT NOT NULL,
	setting_value TEXT,
	setting_type TEXT NOT NULL DEFAULT 'string'
);

CREATE TABLE IF NOT EXISTS transactions (
	hash TEXT PRIMARY KEY,
	account TEXT NOT NULL,
	amount TEXT NOT NULL,
	date INTEGER NOT NULL,
	type INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	barcode TEXT,
	category TEXT,
	price REAL NOT NULL,
	extra TEXT
);

CREATE TABLE IF NOT EXISTS bills (
	transaction_hash TEXT PRIMARY KEY,
	price REAL NOT NULL,
	date INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS bill_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	bill_id TEXT NOT NULL,
	item_id INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS nano_price (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	currency TEXT NOT NULL,
	price REAL NOT NULL,
	date TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account, date);
CREATE INDEX IF NOT EXISTS idx_bill_items_bill ON bill_items(bill_id);
`

// InitDB opens the SQLite database at databasePath, creates the schema,
// migrates databases written by older releases and seeds default settings.
func InitDB(databasePath string, seed Seed) (*sql.DB, error) {
	dsn := databasePath
	if databasePath != ":memory:" {
		if dir := filepath.Dir(databasePath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
		dsn = databasePath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", databasePath, err)
	}
	if databasePath == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	logger.L.Info("Checking database migrations", "databasePath", databasePath)
	migrateItemsTable(db)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := migrateNanoPriceTable(db, seed.Location); err != nil {
		db.Close()
		return nil, err
	}
	if err := ensureUniqueIndex(db, "global_config", "ux_global_config_setting", "setting_name"); err != nil {
		db.Close()
		return nil, err
	}

	if err := seedSettings(db, seed); err != nil {
		db.Close()
		return nil, err
	}
	logger.L.Info("Database tables ensured/created.")
	return db, nil
}

// tableColumns returns the column names of table, or nil when it does not exist yet.
func tableColumns(db *sql.DB, table string) (map[string]string, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string]string)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			return nil, err
		}
		columns[name] = strings.ToUpper(dataType)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, nil
	}
	return columns, nil
}

// migrateItemsTable adds the optional catalogue columns to item tables
// created before barcode, category and extra existed.
func migrateItemsTable(db *sql.DB) {
	columns, err := tableColumns(db, "items")
	if err != nil {
		logger.L.Error("Error querying table schema for 'items'", "error", err)
		return
	}
	if columns == nil {
		logger.L.Info("'items' table does not exist, no migration needed as table will be created.")
		return
	}

	for _, col := range []string{"description", "barcode", "category", "extra"} {
		if _, ok := columns[col]; ok {
			continue
		}
		if _, err := db.Exec(fmt.Sprintf("ALTER TABLE items ADD COLUMN %s TEXT", col)); err != nil {
			logger.L.Error("Error adding column to 'items' table", "column", col, "error", err)
		} else {
			logger.L.Info("Added column to 'items' table", "column", col)
		}
	}
}

// migrateNanoPriceTable rewrites legacy unix-second keys into calendar dates
// of loc and enforces one row per (currency, date).
func migrateNanoPriceTable(db *sql.DB, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	rows, err := db.Query(`SELECT id, CAST(date AS INTEGER) FROM nano_price WHERE typeof(date) IN ('integer', 'real')`)
	if err != nil {
		return fmt.Errorf("failed to read legacy nano_price dates: %w", err)
	}
	keys := make(map[int64]string)
	for rows.Next() {
		var id, unixSeconds int64
		if err := rows.Scan(&id, &unixSeconds); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan legacy nano_price row: %w", err)
		}
		keys[id] = time.Unix(unixSeconds, 0).In(loc).Format("2006-01-02")
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read legacy nano_price dates: %w", err)
	}

	if len(keys) > 0 {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to migrate nano_price dates: %w", err)
		}
		defer tx.Rollback()
		for id, day := range keys {
			if _, err := tx.Exec(`UPDATE nano_price SET date = ? WHERE id = ?`, day, id); err != nil {
				return fmt.Errorf("failed to migrate nano_price row %d: %w", id, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to migrate nano_price dates: %w", err)
		}
		logger.L.Info("Converted legacy nano_price timestamps to calendar dates", "rows", len(keys), "location", loc.String())
	}
	return ensureUniqueIndex(db, "nano_price", "ux_nano_price_currency_date", "currency", "date")
}

// ensureUniqueIndex removes duplicate rows (keeping the oldest id) and creates
// a unique index over cols.
func ensureUniqueIndex(db *sql.DB, table, index string, cols ...string) error {
	colList := strings.Join(cols, ", ")
	dedupe := fmt.Sprintf(`DELETE FROM %s WHERE id NOT IN (SELECT MIN(id) FROM %s GROUP BY %s)`, table, table, colList)
	res, err := db.Exec(dedupe)
	if err != nil {
		return fmt.Errorf("failed to de-duplicate %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		logger.L.Warn("Removed duplicate rows before creating unique index", "table", table, "rows", n)
	}
	if _, err := db.Exec(fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s(%s)", index, table, colList)); err != nil {
		return fmt.Errorf("failed to create index %s: %w", index, err)
	}
	return nil
}

func seedSettings(db *sql.DB, seed Seed) error {
	defaults := []struct{ section, name, value string }{
		{SectionNodes, SettingRPCNode, seed.RPCNode},
		{SectionNodeRelated, SettingWSSServer, seed.WSSServer},
		{SectionMoneyRelated, SettingCurrency, seed.Currency},
	}
	for _, d := range defaults {
		if d.value == "" {
			continue
		}
		res, err := db.Exec(`INSERT OR IGNORE INTO global_config (section_name, setting_name, setting_value, setting_type) VALUES (?, ?, ?, 'string')`,
			d.section, d.name, d.value)
		if err != nil {
			return fmt.Errorf("failed to seed setting %s: %w", d.name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			logger.L.Info("Seeded default setting", "setting", d.name, "value", d.value)
		}
	}
	return nil
}
