// Package nano talks to a Nano node: unary JSON RPC over HTTP for account
// state and the websocket confirmation feed for live payments.
package nano

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/username/nanopos/src/logger"
	"github.com/username/nanopos/src/units"
)

// DefaultTimeout bounds every RPC call.
const DefaultTimeout = 10 * time.Second

const maxResponseBytes = 32 << 20

// Client is a Remote Ledger client. The node URL is passed per call because
// it is a runtime setting the operator can change.
type Client struct {
	httpClient *http.Client
}

// NewClient returns a client whose requests fail with ErrTimeout after timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// NewClientWithHTTP wraps an existing http.Client.
func NewClientWithHTTP(httpClient *http.Client) *Client {
	return &Client{httpClient: httpClient}
}

// AccountInfo fetches the account's frontier and confirmation pointers.
func (c *Client) AccountInfo(ctx context.Context, node, address string) (*AccountInfo, error) {
	var raw rawAccountInfo
	if err := c.post(ctx, node, rpcRequest{Action: "account_info", Account: address}, &raw); err != nil {
		return nil, err
	}
	if raw.Error != "" {
		return nil, nodeError("account_info", raw.Error)
	}

	required := map[string]string{
		"frontier":                     raw.Frontier,
		"open_block":                   raw.OpenBlock,
		"representative_block":         raw.RepresentativeBlock,
		"balance":                      raw.Balance,
		"modified_timestamp":           raw.ModifiedTimestamp,
		"block_count":                  raw.BlockCount,
		"account_version":              raw.AccountVersion,
		"confirmation_height":          raw.ConfirmationHeight,
		"confirmation_height_frontier": raw.ConfirmationHeightFrontier,
	}
	for field, value := range required {
		if value == "" {
			return nil, fmt.Errorf("%w: account_info missing field %s", ErrProtocol, field)
		}
	}

	info := &AccountInfo{
		Frontier:                   raw.Frontier,
		OpenBlock:                  raw.OpenBlock,
		RepresentativeBlock:        raw.RepresentativeBlock,
		ConfirmationHeightFrontier: raw.ConfirmationHeightFrontier,
	}
	var err error
	if info.Balance, err = units.ParseAtomic(raw.Balance); err != nil {
		return nil, fmt.Errorf("%w: account_info balance: %v", ErrProtocol, err)
	}
	if info.ModifiedTimestamp, err = strconv.ParseInt(raw.ModifiedTimestamp, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: account_info modified_timestamp: %v", ErrProtocol, err)
	}
	if info.BlockCount, err = strconv.ParseUint(raw.BlockCount, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: account_info block_count: %v", ErrProtocol, err)
	}
	if info.AccountVersion, err = strconv.ParseUint(raw.AccountVersion, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: account_info account_version: %v", ErrProtocol, err)
	}
	if info.ConfirmationHeight, err = strconv.ParseUint(raw.ConfirmationHeight, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: account_info confirmation_height: %v", ErrProtocol, err)
	}
	return info, nil
}

// AccountHistory fetches the whole history reachable from head, most recent
// first. An empty head starts from the account's latest block.
func (c *Client) AccountHistory(ctx context.Context, node, address, head string) (*AccountHistory, error) {
	count := -1
	req := rpcRequest{Action: "account_history", Account: address, Count: &count, Head: head}

	var raw rawAccountHistory
	if err := c.post(ctx, node, req, &raw); err != nil {
		return nil, err
	}
	if raw.Error != "" {
		return nil, nodeError("account_history", raw.Error)
	}
	if raw.Account == "" || len(raw.History) == 0 {
		return nil, fmt.Errorf("%w: account_history missing account or history", ErrProtocol)
	}

	history := &AccountHistory{Account: raw.Account, Previous: raw.Previous}

	// nodes send "history": "" for accounts without blocks
	var empty string
	if err := json.Unmarshal(raw.History, &empty); err == nil {
		if empty != "" {
			return nil, fmt.Errorf("%w: account_history history is %q", ErrProtocol, empty)
		}
		history.History = []Block{}
		return history, nil
	}

	var rawBlocks []rawBlock
	if err := json.Unmarshal(raw.History, &rawBlocks); err != nil {
		return nil, fmt.Errorf("%w: account_history history: %v", ErrProtocol, err)
	}
	history.History = make([]Block, 0, len(rawBlocks))
	for i, rb := range rawBlocks {
		b, err := parseBlock(rb)
		if err != nil {
			return nil, fmt.Errorf("%w: account_history block %d: %v", ErrProtocol, i, err)
		}
		history.History = append(history.History, b)
	}
	return history, nil
}

// AccountBalance fetches the confirmed balance and the receivable amount.
func (c *Client) AccountBalance(ctx context.Context, node, address string) (*AccountBalance, error) {
	var raw rawAccountBalance
	if err := c.post(ctx, node, rpcRequest{Action: "account_balance", Account: address}, &raw); err != nil {
		return nil, err
	}
	if raw.Error != "" {
		return nil, nodeError("account_balance", raw.Error)
	}
	pending := raw.Pending
	if pending == nil {
		pending = raw.Receivable
	}
	if raw.Balance == nil || pending == nil {
		return nil, fmt.Errorf("%w: account_balance missing balance or pending", ErrProtocol)
	}

	balance, err := units.ParseAtomic(*raw.Balance)
	if err != nil {
		return nil, fmt.Errorf("%w: account_balance balance: %v", ErrProtocol, err)
	}
	receivable, err := units.ParseAtomic(*pending)
	if err != nil {
		return nil, fmt.Errorf("%w: account_balance pending: %v", ErrProtocol, err)
	}
	return &AccountBalance{Balance: balance, Pending: receivable}, nil
}

func parseBlock(rb rawBlock) (Block, error) {
	if rb.Hash == "" {
		return Block{}, errors.New("missing hash")
	}
	amount, err := units.ParseAtomic(rb.Amount)
	if err != nil {
		return Block{}, fmt.Errorf("amount: %w", err)
	}
	b := Block{
		Type:    rb.Type,
		Subtype: rb.Subtype,
		Account: rb.Account,
		Amount:  amount,
		Hash:    rb.Hash,
	}
	if rb.LocalTimestamp != "" {
		if b.LocalTimestamp, err = strconv.ParseInt(rb.LocalTimestamp, 10, 64); err != nil {
			return Block{}, fmt.Errorf("local_timestamp: %w", err)
		}
	}
	if rb.Height != "" {
		if b.Height, err = strconv.ParseUint(rb.Height, 10, 64); err != nil {
			return Block{}, fmt.Errorf("height: %w", err)
		}
	}
	return b, nil
}

func (c *Client) post(ctx context.Context, node string, params rpcRequest, out interface{}) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", params.Action, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, node, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: invalid node url %q: %v", ErrConnection, node, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(params.Action, node, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: error %d while trying to connect to %s", ErrConnection, resp.StatusCode, node)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(params.Action, node, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to parse %s response: %v", ErrProtocol, params.Action, err)
	}
	logger.FromContext(ctx).Debug("Node RPC call complete", "action", params.Action, "node", node, "duration", time.Since(start))
	return nil
}

func transportError(action, node string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s to %s: %v", ErrTimeout, action, node, err)
	}
	return fmt.Errorf("%w: %s to %s: %v", ErrConnection, action, node, err)
}

func nodeError(action, msg string) error {
	if strings.EqualFold(strings.TrimSpace(msg), "Account not found") {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, action)
	}
	return fmt.Errorf("%w: %s returned error %q", ErrProtocol, action, msg)
}
