package processors

import (
	"github.com/username/nanopos/src/model"
	"github.com/username/nanopos/src/nano"
)

// BlockProcessor maps ledger blocks to new local transactions.
type BlockProcessor interface {
	Process(account string, blocks []nano.Block, known map[string]struct{}) []model.Transaction
}

// BalanceProcessor derives balances from stored transactions.
type BalanceProcessor interface {
	Calculate(txs []model.Transaction) BalanceResult
}
