package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/nanopos/src/model"
	"github.com/username/nanopos/src/utils"
)

// PrettyAmount is an amount formatted for display, e.g. {"12.35", "24.70 USD"}.
type PrettyAmount struct {
	Nano     string `json:"nano"`
	Currency string `json:"currency"`
}

// RawAmount carries the exact values behind a PrettyAmount: atomic units and
// the unrounded fiat value.
type RawAmount struct {
	Nano     decimal.Decimal `json:"nano"`
	Currency decimal.Decimal `json:"currency"`
}

type PrettyTransaction struct {
	Hash   string           `json:"hash"`
	Date   utils.DateFormat `json:"date"`
	Amount PrettyAmount     `json:"amount"`
	Type   string           `json:"type"`
}

type RawTransaction struct {
	Hash    string                `json:"hash"`
	Date    int64                 `json:"date"`
	Amount  RawAmount             `json:"amount"`
	Type    model.TransactionType `json:"type"`
	Price   decimal.Decimal       `json:"price"`
	Details []model.BillDetail    `json:"details"` // nil when no bill
}

type PrettyItem struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Barcode     *string `json:"barcode"`
	Category    *string `json:"category"`
	Price       string  `json:"price"`
	Extra       *string `json:"extra"`
}

// Balance is derived from the transaction table on every cycle.
type Balance struct {
	Total    string          `json:"total"`
	Today    string          `json:"today"`
	RawTotal decimal.Decimal `json:"rawTotal"` // atomic units, signed
	RawToday decimal.Decimal `json:"rawToday"` // atomic units
}

// Snapshot is the account view produced by one reconciliation cycle.
// Snapshots are never mutated after publication.
type Snapshot struct {
	Address            string              `json:"address"`
	Settings           model.Settings      `json:"settings"`
	CurrentNanoPrice   decimal.Decimal     `json:"currentNanoPrice"`
	Balance            Balance             `json:"balance"`
	PrettyTransactions []PrettyTransaction `json:"prettyTransactions"`
	RawTransactions    []RawTransaction    `json:"rawTransactions"`
	PrettyItems        []PrettyItem        `json:"prettyItems"`
	RawItems           []model.Item        `json:"rawItems"`
	Merged             int                 `json:"merged"`
	GeneratedAt        time.Time           `json:"generatedAt"`
}
