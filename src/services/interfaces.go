package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/nanopos/src/model"
	"github.com/username/nanopos/src/models"
	"github.com/username/nanopos/src/nano"
)

// LedgerClient is the subset of the node RPC the services use.
type LedgerClient interface {
	AccountInfo(ctx context.Context, node, address string) (*nano.AccountInfo, error)
	AccountHistory(ctx context.Context, node, address, head string) (*nano.AccountHistory, error)
	AccountBalance(ctx context.Context, node, address string) (*nano.AccountBalance, error)
}

// PriceService quotes Nano against a fiat currency. date is dd-mm-yyyy.
type PriceService interface {
	CurrentPrice(ctx context.Context, currency string) (decimal.Decimal, error)
	HistoricalPrice(ctx context.Context, currency, date string) (decimal.Decimal, error)
}

// PriceOracle is a PriceService with historical quotes cached by day.
type PriceOracle interface {
	CurrentPrice(ctx context.Context, currency string) (decimal.Decimal, error)
	HistoricalPrice(ctx context.Context, currency string, day time.Time) (decimal.Decimal, error)
}

// SyncService mirrors the ledger into the local store and publishes
// snapshots of the account.
type SyncService interface {
	// UpdateInfo runs one cycle. With sync false the ledger is not queried
	// and the snapshot is rebuilt from the local store only.
	UpdateInfo(ctx context.Context, sync bool) (*models.Snapshot, error)
	Snapshot() (*models.Snapshot, bool)
	Status() models.SyncStatus
	Invalidate()
}

// WatchRequest describes the payment a watch waits for. Expected is in Nano.
type WatchRequest struct {
	ItemIDs  []int64
	Expected decimal.Decimal
}

// WatchService waits for a single incoming payment on the session address.
type WatchService interface {
	// Start prices itemIDs at the current rate and watches for that amount.
	Start(ctx context.Context, itemIDs []int64) (models.WatchStatus, error)
	// Watch waits for an amount the caller has already computed.
	Watch(ctx context.Context, req WatchRequest) (models.WatchStatus, error)
	Stop() (models.WatchStatus, error)
	Status() (models.WatchStatus, bool)
	// Wait blocks until the active watch reaches a terminal state.
	Wait(ctx context.Context) (models.WatchStatus, error)
}

// ImportResult counts the outcome of an item import.
type ImportResult struct {
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
}

// ItemService manages the catalogue.
type ItemService interface {
	Insert(ctx context.Context, item model.Item) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context) ([]model.Item, error)
	ImportCSV(ctx context.Context, path string) (*ImportResult, error)
}

// SettingChange sets one editable setting.
type SettingChange struct {
	Setting string `json:"setting"`
	Value   string `json:"value"`
}

// SettingsService reads and edits runtime settings.
type SettingsService interface {
	Get(ctx context.Context) (model.Settings, error)
	SaveChanges(ctx context.Context, changes []SettingChange) (model.Settings, error)
}

// AuthService guards the command surface with an operator PIN.
type AuthService interface {
	SetPIN(ctx context.Context, pin string) error
	PINConfigured(ctx context.Context) (bool, error)
	Login(ctx context.Context, pin string) (string, error)
	ValidateToken(token string) error
}
