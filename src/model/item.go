package model

import (
	"context"

	"github.com/shopspring/decimal"
)

// Item is a catalogue entry. IDs are assigned by the operator.
type Item struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Barcode     *string         `json:"barcode"`
	Category    *string         `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Extra       *string         `json:"extra"`
}

const itemColumns = `id, name, description, barcode, category, price, extra`

// InsertItem stores item unless its id is taken. It reports whether a row
// was written.
func InsertItem(ctx context.Context, db DBTX, item Item) (bool, error) {
	res, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Description, item.Barcode, item.Category, item.Price, item.Extra)
	if err != nil {
		return false, storageErr("insert item", err)
	}
	return affected(res), nil
}

// DeleteItem removes one item. Bills that reference it keep the id.
func DeleteItem(ctx context.Context, db DBTX, id int64) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return false, storageErr("delete item", err)
	}
	return affected(res), nil
}

// DeleteItems empties the catalogue.
func DeleteItems(ctx context.Context, db DBTX) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return storageErr("delete items", err)
	}
	return nil
}

// ListItems returns the catalogue ordered by id.
func ListItems(ctx context.Context, db DBTX) ([]Item, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items ORDER BY id`)
	if err != nil {
		return nil, storageErr("query items", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Description, &it.Barcode, &it.Category, &it.Price, &it.Extra); err != nil {
			return nil, storageErr("scan item", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate items", err)
	}
	return items, nil
}

// GetItemsByIDs looks up several items in one query, keyed by id. Unknown
// ids are absent from the map.
func GetItemsByIDs(ctx context.Context, db DBTX, ids []int64) (map[int64]Item, error) {
	items := make(map[int64]Item)
	if len(ids) == 0 {
		return items, nil
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, storageErr("query items by id", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Description, &it.Barcode, &it.Category, &it.Price, &it.Extra); err != nil {
			return nil, storageErr("scan item", err)
		}
		items[it.ID] = it
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate items", err)
	}
	return items, nil
}
