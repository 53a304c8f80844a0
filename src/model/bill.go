package model

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/username/nanopos/src/logger"
	"github.com/username/nanopos/src/utils"
)

// Bill links a received payment to the items sold.
type Bill struct {
	TransactionHash string          `json:"transactionHash"`
	Price           decimal.Decimal `json:"price"`
	Date            int64           `json:"date"`
	ItemIDs         []int64         `json:"itemIds,omitempty"`
}

// BillDetail is one catalogue line of a bill. Missing is set when the item
// was deleted after the sale; only ID and Count are known then.
type BillDetail struct {
	Item
	Count   int  `json:"amount"`
	Missing bool `json:"missing,omitempty"`
}

// InsertBill records a bill for hash and one bill_items row per entry of
// itemIDs, so repeated ids mean quantity. The price is the sum of the
// current item prices rounded to cents. Nothing is written when hash already
// has a bill.
func InsertBill(ctx context.Context, db *sql.DB, hash string, itemIDs []int64, date int64) (*Bill, bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, storageErr("begin insert bill", err)
	}
	defer tx.Rollback()

	items, err := GetItemsByIDs(ctx, tx, itemIDs)
	if err != nil {
		return nil, false, err
	}
	total := decimal.Zero
	for _, id := range itemIDs {
		it, ok := items[id]
		if !ok {
			logger.FromContext(ctx).Warn("Bill references unknown item, pricing it at zero", "hash", hash, "itemID", id)
			continue
		}
		total = total.Add(it.Price)
	}
	bill := &Bill{TransactionHash: hash, Price: utils.RoundHalfUp(total, 2), Date: date, ItemIDs: itemIDs}

	res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO bills (transaction_hash, price, date) VALUES (?, ?, ?)`, hash, bill.Price, date)
	if err != nil {
		return nil, false, storageErr("insert bill "+hash, err)
	}
	if !affected(res) {
		return bill, false, nil
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO bill_items (bill_id, item_id) VALUES (?, ?)`)
	if err != nil {
		return nil, false, storageErr("prepare bill items", err)
	}
	defer stmt.Close()
	for _, id := range itemIDs {
		if _, err := stmt.ExecContext(ctx, hash, id); err != nil {
			return nil, false, storageErr("insert bill item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, storageErr("commit bill", err)
	}
	return bill, true, nil
}

// GetBill reads a bill and the item ids linked to it.
func GetBill(ctx context.Context, db DBTX, hash string) (*Bill, error) {
	bill := &Bill{TransactionHash: hash}
	err := db.QueryRowContext(ctx, `SELECT price, date FROM bills WHERE transaction_hash = ?`, hash).Scan(&bill.Price, &bill.Date)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get bill "+hash, err)
	}

	rows, err := db.QueryContext(ctx, `SELECT item_id FROM bill_items WHERE bill_id = ? ORDER BY id`, hash)
	if err != nil {
		return nil, storageErr("query bill items", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr("scan bill item", err)
		}
		bill.ItemIDs = append(bill.ItemIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate bill items", err)
	}
	return bill, nil
}

const billDetailQuery = `
	SELECT bi.bill_id, bi.item_id, COUNT(*) AS cnt,
		i.id, i.name, i.description, i.barcode, i.category, i.price, i.extra
	FROM bill_items bi
	LEFT JOIN items i ON i.id = bi.item_id
	%s
	GROUP BY bi.bill_id, bi.item_id
	HAVING cnt > 0
	ORDER BY bi.bill_id, bi.item_id`

// GetBillDetails returns the item breakdown of one bill.
func GetBillDetails(ctx context.Context, db DBTX, hash string) ([]BillDetail, error) {
	details, err := queryBillDetails(ctx, db, "WHERE bi.bill_id = ?", hash)
	if err != nil {
		return nil, err
	}
	return details[hash], nil
}

// ListBillDetails returns the item breakdown of every bill, keyed by
// transaction hash.
func ListBillDetails(ctx context.Context, db DBTX) (map[string][]BillDetail, error) {
	return queryBillDetails(ctx, db, "")
}

func queryBillDetails(ctx context.Context, db DBTX, where string, args ...interface{}) (map[string][]BillDetail, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(billDetailQuery, where), args...)
	if err != nil {
		return nil, storageErr("query bill details", err)
	}
	defer rows.Close()

	details := make(map[string][]BillDetail)
	for rows.Next() {
		var (
			billID string
			itemID int64
			count  int
			joinID sql.NullInt64
			name   sql.NullString
			price  decimal.NullDecimal
			d      BillDetail
		)
		if err := rows.Scan(&billID, &itemID, &count, &joinID, &name, &d.Description, &d.Barcode, &d.Category, &price, &d.Extra); err != nil {
			return nil, storageErr("scan bill detail", err)
		}
		d.ID = itemID
		d.Count = count
		if joinID.Valid {
			d.Name = name.String
			d.Price = price.Decimal
		} else {
			d.Missing = true
		}
		details[billID] = append(details[billID], d)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate bill details", err)
	}
	return details, nil
}
