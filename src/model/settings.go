package model

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/username/nanopos/src/database"
)

// Setting is one row of global_config.
type Setting struct {
	Section string `json:"section"`
	Name    string `json:"setting"`
	Value   string `json:"value"`
	Type    string `json:"type"`
}

// Settings are the runtime settings the operator edits.
type Settings struct {
	RPCNode   string `json:"rpcNode"`
	WSSServer string `json:"wssServer"`
	Currency  string `json:"currency"`
}

// Editable lists the settings that save-changes may touch, by name.
var Editable = map[string]string{
	database.SettingRPCNode:   database.SectionNodes,
	database.SettingWSSServer: database.SectionNodeRelated,
	database.SettingCurrency:  database.SectionMoneyRelated,
}

// GetConfigs returns every row of global_config.
func GetConfigs(ctx context.Context, db DBTX) ([]Setting, error) {
	rows, err := db.QueryContext(ctx, `SELECT section_name, setting_name, COALESCE(setting_value, ''), setting_type FROM global_config ORDER BY id`)
	if err != nil {
		return nil, storageErr("query settings", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Section, &s.Name, &s.Value, &s.Type); err != nil {
			return nil, storageErr("scan setting", err)
		}
		settings = append(settings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate settings", err)
	}
	return settings, nil
}

// GetSettings reads the runtime settings. A missing setting is ErrNotFound.
func GetSettings(ctx context.Context, db DBTX) (Settings, error) {
	configs, err := GetConfigs(ctx, db)
	if err != nil {
		return Settings{}, err
	}
	byName := make(map[string]string, len(configs))
	for _, c := range configs {
		byName[c.Name] = c.Value
	}

	s := Settings{
		RPCNode:   byName[database.SettingRPCNode],
		WSSServer: byName[database.SettingWSSServer],
		Currency:  byName[database.SettingCurrency],
	}
	for name, value := range map[string]string{
		database.SettingRPCNode:   s.RPCNode,
		database.SettingWSSServer: s.WSSServer,
		database.SettingCurrency:  s.Currency,
	} {
		if value == "" {
			return s, fmt.Errorf("%w: setting %s", ErrNotFound, name)
		}
	}
	return s, nil
}

// SaveSettings clears the runtime settings and rewrites them in one
// transaction.
func SaveSettings(ctx context.Context, db *sql.DB, s Settings) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin save settings", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM global_config WHERE setting_name IN (?, ?, ?)`,
		database.SettingRPCNode, database.SettingWSSServer, database.SettingCurrency); err != nil {
		return storageErr("clear settings", err)
	}
	for _, row := range []Setting{
		{Section: database.SectionNodes, Name: database.SettingRPCNode, Value: s.RPCNode},
		{Section: database.SectionNodeRelated, Name: database.SettingWSSServer, Value: s.WSSServer},
		{Section: database.SectionMoneyRelated, Name: database.SettingCurrency, Value: s.Currency},
	} {
		if _, err := tx.ExecContext(ctx, `INSERT INTO global_config (section_name, setting_name, setting_value, setting_type) VALUES (?, ?, ?, 'string')`,
			row.Section, row.Name, row.Value); err != nil {
			return storageErr("insert setting "+row.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit settings", err)
	}
	return nil
}

// GetConfig reads a single setting.
func GetConfig(ctx context.Context, db DBTX, name string) (string, bool, error) {
	var value sql.NullString
	err := db.QueryRowContext(ctx, `SELECT setting_value FROM global_config WHERE setting_name = ?`, name).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageErr("get setting "+name, err)
	}
	return value.String, true, nil
}

// SetConfig inserts or replaces a single setting.
func SetConfig(ctx context.Context, db DBTX, section, name, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO global_config (section_name, setting_name, setting_value, setting_type)
		VALUES (?, ?, ?, 'string')
		ON CONFLICT(setting_name) DO UPDATE SET setting_value = excluded.setting_value, section_name = excluded.section_name`,
		section, name, value)
	if err != nil {
		return storageErr("set setting "+name, err)
	}
	return nil
}
