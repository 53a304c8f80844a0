package nano

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// AccountInfo is the parsed account_info response.
type AccountInfo struct {
	Frontier                   string          `json:"frontier"`
	OpenBlock                  string          `json:"open_block"`
	RepresentativeBlock        string          `json:"representative_block"`
	Balance                    decimal.Decimal `json:"balance"`
	ModifiedTimestamp          int64           `json:"modified_timestamp"`
	BlockCount                 uint64          `json:"block_count"`
	AccountVersion             uint64          `json:"account_version"`
	ConfirmationHeight         uint64          `json:"confirmation_height"`
	ConfirmationHeightFrontier string          `json:"confirmation_height_frontier"`
}

// Block is one entry of an account history, most recent first.
type Block struct {
	Type           string          `json:"type"`
	Subtype        string          `json:"subtype,omitempty"`
	Account        string          `json:"account"`
	Amount         decimal.Decimal `json:"amount"`
	LocalTimestamp int64           `json:"local_timestamp"`
	Height         uint64          `json:"height"`
	Hash           string          `json:"hash"`
}

// Kind returns the block direction. Raw histories carry it in subtype,
// plain histories in type.
func (b Block) Kind() string {
	if b.Subtype != "" {
		return b.Subtype
	}
	return b.Type
}

// AccountHistory is the parsed account_history response.
type AccountHistory struct {
	Account  string  `json:"account"`
	History  []Block `json:"history"`
	Previous string  `json:"previous,omitempty"`
}

// AccountBalance is the parsed account_balance response.
type AccountBalance struct {
	Balance decimal.Decimal `json:"balance"`
	Pending decimal.Decimal `json:"pending"`
}

// wire forms: every number travels as a decimal string

type rpcRequest struct {
	Action  string `json:"action"`
	Account string `json:"account"`
	Count   *int   `json:"count,omitempty"`
	Head    string `json:"head,omitempty"`
}

type rawAccountInfo struct {
	Error                      string `json:"error"`
	Frontier                   string `json:"frontier"`
	OpenBlock                  string `json:"open_block"`
	RepresentativeBlock        string `json:"representative_block"`
	Balance                    string `json:"balance"`
	ModifiedTimestamp          string `json:"modified_timestamp"`
	BlockCount                 string `json:"block_count"`
	AccountVersion             string `json:"account_version"`
	ConfirmationHeight         string `json:"confirmation_height"`
	ConfirmationHeightFrontier string `json:"confirmation_height_frontier"`
}

type rawBlock struct {
	Type           string `json:"type"`
	Subtype        string `json:"subtype"`
	Account        string `json:"account"`
	Amount         string `json:"amount"`
	LocalTimestamp string `json:"local_timestamp"`
	Height         string `json:"height"`
	Hash           string `json:"hash"`
}

type rawAccountBalance struct {
	Error      string  `json:"error"`
	Balance    *string `json:"balance"`
	Pending    *string `json:"pending"`
	Receivable *string `json:"receivable"`
}

type rawAccountHistory struct {
	Error    string          `json:"error"`
	Account  string          `json:"account"`
	History  json.RawMessage `json:"history"`
	Previous string          `json:"previous"`
}
