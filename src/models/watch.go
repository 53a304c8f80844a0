package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WatchState is the state of a payment watch.
type WatchState string

const (
	WatchConnecting WatchState = "Connecting"
	WatchSubscribed WatchState = "Subscribed"
	WatchMatched    WatchState = "Matched"
	WatchMismatched WatchState = "Mismatched"
	WatchCancelled  WatchState = "Cancelled"
	WatchError      WatchState = "Error"
)

// Terminal reports whether no further transition can happen.
func (s WatchState) Terminal() bool {
	switch s {
	case WatchMatched, WatchMismatched, WatchCancelled, WatchError:
		return true
	}
	return false
}

// WatchStatus is what the operator sees of a watch. Amounts are in Nano.
type WatchStatus struct {
	ID        string          `json:"id"`
	Address   string          `json:"address"`
	State     WatchState      `json:"state"`
	ItemIDs   []int64         `json:"itemIds"`
	FiatTotal decimal.Decimal `json:"fiatTotal"`
	Expected  decimal.Decimal `json:"expected"`
	Received  decimal.Decimal `json:"received"`
	Exceed    decimal.Decimal `json:"exceed"` // received minus expected
	Hash      string          `json:"hash,omitempty"`
	Error     string          `json:"error,omitempty"`
	StartedAt time.Time       `json:"startedAt"`
	EndedAt   *time.Time      `json:"endedAt,omitempty"`
}

// SyncState is the state of the reconciliation engine.
type SyncState string

const (
	SyncIdle     SyncState = "Idle"
	SyncFetching SyncState = "Fetching"
	SyncMerging  SyncState = "Merging"
	SyncPricing  SyncState = "Pricing"
	SyncReady    SyncState = "Ready"
	SyncFailed   SyncState = "Failed"
)

// SyncStatus reports the engine state and the last failure, if any.
type SyncStatus struct {
	State       SyncState  `json:"state"`
	LastError   string     `json:"lastError,omitempty"`
	LastCycleID string     `json:"lastCycleId,omitempty"`
	LastReadyAt *time.Time `json:"lastReadyAt,omitempty"`
}
