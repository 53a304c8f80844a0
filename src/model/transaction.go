package model

import (
	"context"

	"github.com/shopspring/decimal"
)

// TransactionType is the stored direction of a block.
type TransactionType int

const (
	TypeSend    TransactionType = 0
	TypeReceive TransactionType = 1
)

func (t TransactionType) String() string {
	if t == TypeSend {
		return "Send"
	}
	return "Receive"
}

// TypeFromSubtype maps a block subtype to a direction: "send" is a Send,
// anything else counts as a Receive.
func TypeFromSubtype(subtype string) TransactionType {
	if subtype == "send" {
		return TypeSend
	}
	return TypeReceive
}

// Transaction is a ledger block mirrored locally. Rows are never updated.
type Transaction struct {
	Hash    string          `json:"hash"`
	Account string          `json:"account"`
	Amount  decimal.Decimal `json:"amount"` // atomic units
	Date    int64           `json:"date"`   // unix seconds
	Type    TransactionType `json:"type"`
}

// InsertTransaction stores tx unless its hash is already present. It reports
// whether a row was written.
func InsertTransaction(ctx context.Context, db DBTX, tx Transaction) (bool, error) {
	res, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO transactions (hash, account, amount, date, type) VALUES (?, ?, ?, ?, ?)`,
		tx.Hash, tx.Account, tx.Amount.String(), tx.Date, int(tx.Type))
	if err != nil {
		return false, storageErr("insert transaction "+tx.Hash, err)
	}
	return affected(res), nil
}

// ListTransactionHashes returns the set of hashes stored for account.
func ListTransactionHashes(ctx context.Context, db DBTX, account string) (map[string]struct{}, error) {
	rows, err := db.QueryContext(ctx, `SELECT hash FROM transactions WHERE account = ?`, account)
	if err != nil {
		return nil, storageErr("query transaction hashes", err)
	}
	defer rows.Close()

	hashes := make(map[string]struct{})
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, storageErr("scan transaction hash", err)
		}
		hashes[h] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate transaction hashes", err)
	}
	return hashes, nil
}

// ListTransactions returns every transaction of account, newest first.
func ListTransactions(ctx context.Context, db DBTX, account string) ([]Transaction, error) {
	rows, err := db.QueryContext(ctx, `SELECT hash, account, amount, date, type FROM transactions WHERE account = ? ORDER BY date DESC, hash`, account)
	if err != nil {
		return nil, storageErr("query transactions", err)
	}
	defer rows.Close()

	txs := []Transaction{}
	for rows.Next() {
		var tx Transaction
		var typ int
		if err := rows.Scan(&tx.Hash, &tx.Account, &tx.Amount, &tx.Date, &typ); err != nil {
			return nil, storageErr("scan transaction", err)
		}
		tx.Type = TransactionType(typ)
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate transactions", err)
	}
	return txs, nil
}

// DeleteTransactions empties the transaction table.
func DeleteTransactions(ctx context.Context, db DBTX) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return storageErr("delete transactions", err)
	}
	return nil
}
