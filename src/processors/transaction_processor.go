package processors

import (
	"github.com/username/nanopos/src/model"
	"github.com/username/nanopos/src/nano"
)

type TransactionProcessor struct{}

func NewTransactionProcessor() *TransactionProcessor { return &TransactionProcessor{} }

// Process turns ledger blocks into transactions of account, skipping hashes
// listed in known and repeats within blocks. Order is preserved.
func (p *TransactionProcessor) Process(account string, blocks []nano.Block, known map[string]struct{}) []model.Transaction {
	seen := make(map[string]struct{}, len(blocks))
	var txs []model.Transaction
	for _, b := range blocks {
		if _, ok := known[b.Hash]; ok {
			continue
		}
		if _, ok := seen[b.Hash]; ok {
			continue
		}
		seen[b.Hash] = struct{}{}

		txs = append(txs, model.Transaction{
			Hash:    b.Hash,
			Account: account,
			Amount:  b.Amount,
			Date:    b.LocalTimestamp,
			Type:    model.TypeFromSubtype(b.Kind()),
		})
	}
	return txs
}
