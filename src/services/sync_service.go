package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/nanopos/src/database"
	"github.com/username/nanopos/src/logger"
	"github.com/username/nanopos/src/model"
	"github.com/username/nanopos/src/models"
	"github.com/username/nanopos/src/nano"
	"github.com/username/nanopos/src/processors"
	"github.com/username/nanopos/src/session"
	"github.com/username/nanopos/src/units"
	"github.com/username/nanopos/src/utils"
)

const (
	ckSnapshot = "snapshot_%s"

	DefaultCacheExpiration = cache.NoExpiration
	CacheCleanupInterval   = 30 * time.Minute
)

type syncServiceImpl struct {
	db               *sql.DB
	writer           *database.Writer
	session          *session.Session
	ledger           LedgerClient
	oracle           PriceOracle
	blockProcessor   processors.BlockProcessor
	balanceProcessor processors.BalanceProcessor
	snapshotCache    *cache.Cache
	loc              *time.Location

	// cycleMu serialises cycles so Fetching, Merging and Pricing of two
	// cycles never interleave.
	cycleMu  sync.Mutex
	statusMu sync.RWMutex
	status   models.SyncStatus
}

func NewSyncService(
	db *sql.DB,
	writer *database.Writer,
	sess *session.Session,
	ledger LedgerClient,
	oracle PriceOracle,
	blockProcessor processors.BlockProcessor,
	balanceProcessor processors.BalanceProcessor,
	snapshotCache *cache.Cache,
	loc *time.Location,
) SyncService {
	if loc == nil {
		loc = time.Local
	}
	return &syncServiceImpl{
		db:               db,
		writer:           writer,
		session:          sess,
		ledger:           ledger,
		oracle:           oracle,
		blockProcessor:   blockProcessor,
		balanceProcessor: balanceProcessor,
		snapshotCache:    snapshotCache,
		loc:              loc,
		status:           models.SyncStatus{State: models.SyncIdle},
	}
}

// UpdateInfo runs one cycle to Ready or Failed. The caller's cancellation is
// not propagated into the cycle once it has started.
func (s *syncServiceImpl) UpdateInfo(ctx context.Context, syncLedger bool) (*models.Snapshot, error) {
	ctx = context.WithoutCancel(ctx)

	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	cycleID := uuid.NewString()
	address := s.session.Address()
	log := logger.FromContext(ctx).With("cycle", cycleID, "address", address)
	ctx = logger.WithContext(ctx, log)
	start := time.Now()

	if address == "" {
		s.fail(ctx, cycleID, ErrNoAddress)
		return nil, ErrNoAddress
	}

	settings, err := model.GetSettings(ctx, s.db)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			err = fmt.Errorf("%w: %v", ErrSettingsIncomplete, err)
		}
		s.fail(ctx, cycleID, err)
		return nil, err
	}

	merged := 0
	if syncLedger {
		s.setState(ctx, cycleID, models.SyncFetching)
		blocks, err := s.fetch(ctx, settings.RPCNode, address)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrSyncFailed, err)
			s.fail(ctx, cycleID, err)
			return nil, err
		}

		s.setState(ctx, cycleID, models.SyncMerging)
		merged, err = s.merge(ctx, address, blocks)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrSyncFailed, err)
			s.fail(ctx, cycleID, err)
			return nil, err
		}
	}

	s.setState(ctx, cycleID, models.SyncPricing)
	snap, err := s.buildSnapshot(ctx, address, settings)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSnapshotFailed, err)
		s.fail(ctx, cycleID, err)
		return nil, err
	}
	snap.Merged = merged

	s.snapshotCache.Set(fmt.Sprintf(ckSnapshot, address), snap, DefaultCacheExpiration)

	now := time.Now()
	s.statusMu.Lock()
	s.status = models.SyncStatus{State: models.SyncReady, LastCycleID: cycleID, LastReadyAt: &now}
	s.statusMu.Unlock()
	log.Info("Sync cycle ready", "state", models.SyncReady, "merged", merged,
		"transactions", len(snap.RawTransactions), "duration", time.Since(start))
	return snap, nil
}

// fetch pulls the confirmed history of address. An account the node has
// never seen is an empty history.
func (s *syncServiceImpl) fetch(ctx context.Context, node, address string) ([]nano.Block, error) {
	log := logger.FromContext(ctx)
	info, err := s.ledger.AccountInfo(ctx, node, address)
	if errors.Is(err, nano.ErrAccountNotFound) {
		log.Info("Account not opened yet, treating history as empty")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	history, err := s.ledger.AccountHistory(ctx, node, address, info.ConfirmationHeightFrontier)
	if err != nil {
		return nil, err
	}
	log.Debug("Fetched account history", "blocks", len(history.History), "head", info.ConfirmationHeightFrontier)
	return history.History, nil
}

// merge inserts blocks not yet stored. A row that fails to insert is logged
// and skipped; the next cycle sees it as new again.
func (s *syncServiceImpl) merge(ctx context.Context, address string, blocks []nano.Block) (int, error) {
	if len(blocks) == 0 {
		return 0, nil
	}
	log := logger.FromContext(ctx)

	known, err := model.ListTransactionHashes(ctx, s.db, address)
	if err != nil {
		return 0, err
	}

	merged := 0
	for _, tx := range s.blockProcessor.Process(address, blocks, known) {
		var inserted bool
		err := s.writer.Do(ctx, func(ctx context.Context, db *sql.DB) error {
			var err error
			inserted, err = model.InsertTransaction(ctx, db, tx)
			return err
		})
		if err != nil {
			if errors.Is(err, database.ErrWriterClosed) {
				return merged, err
			}
			log.Warn("Skipping transaction that failed to insert", "hash", tx.Hash, "error", err)
			continue
		}
		if inserted {
			merged++
		}
	}
	return merged, nil
}

// buildSnapshot re-reads every stored transaction of address and prices it
// at the quote of its own day.
func (s *syncServiceImpl) buildSnapshot(ctx context.Context, address string, settings model.Settings) (*models.Snapshot, error) {
	currentPrice, err := s.oracle.CurrentPrice(ctx, settings.Currency)
	if err != nil {
		return nil, err
	}

	txs, err := model.ListTransactions(ctx, s.db, address)
	if err != nil {
		return nil, err
	}
	details, err := model.ListBillDetails(ctx, s.db)
	if err != nil {
		return nil, err
	}
	items, err := model.ListItems(ctx, s.db)
	if err != nil {
		return nil, err
	}

	snap := &models.Snapshot{
		Address:            address,
		Settings:           settings,
		CurrentNanoPrice:   currentPrice,
		PrettyTransactions: []models.PrettyTransaction{},
		RawTransactions:    []models.RawTransaction{},
		PrettyItems:        make([]models.PrettyItem, 0, len(items)),
		RawItems:           items,
		GeneratedAt:        time.Now(),
	}

	// quotes already resolved in this cycle, by calendar day
	dayPrices := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if processors.IsDust(tx.Amount) {
			continue
		}
		when := time.Unix(tx.Date, 0).In(s.loc)
		dayKey := when.Format(utils.DayKeyFormat)
		price, ok := dayPrices[dayKey]
		if !ok {
			price, err = s.oracle.HistoricalPrice(ctx, settings.Currency, when)
			if err != nil {
				return nil, fmt.Errorf("pricing transaction %s: %w", tx.Hash, err)
			}
			dayPrices[dayKey] = price
		}

		exact, rounded := processors.FiatValue(tx.Amount, price)
		snap.PrettyTransactions = append(snap.PrettyTransactions, models.PrettyTransaction{
			Hash: tx.Hash,
			Date: utils.FormatDateTime(tx.Date, s.loc),
			Amount: models.PrettyAmount{
				Nano:     units.ToDisplayAmount(tx.Amount),
				Currency: units.FormatFiat(rounded, settings.Currency),
			},
			Type: tx.Type.String(),
		})
		snap.RawTransactions = append(snap.RawTransactions, models.RawTransaction{
			Hash:    tx.Hash,
			Date:    tx.Date,
			Amount:  models.RawAmount{Nano: tx.Amount, Currency: exact},
			Type:    tx.Type,
			Price:   price,
			Details: details[tx.Hash],
		})
	}

	for _, it := range items {
		snap.PrettyItems = append(snap.PrettyItems, models.PrettyItem{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			Barcode:     it.Barcode,
			Category:    it.Category,
			Price:       units.FormatFiat(it.Price, settings.Currency),
			Extra:       it.Extra,
		})
	}

	bal := s.balanceProcessor.Calculate(txs)
	snap.Balance = models.Balance{
		Total:    units.ToDisplayAmount(bal.Total),
		Today:    units.ToDisplayAmount(bal.Today),
		RawTotal: bal.Total,
		RawToday: bal.Today,
	}
	return snap, nil
}

// Snapshot returns the last published snapshot of the session address.
func (s *syncServiceImpl) Snapshot() (*models.Snapshot, bool) {
	address := s.session.Address()
	if address == "" {
		return nil, false
	}
	if v, found := s.snapshotCache.Get(fmt.Sprintf(ckSnapshot, address)); found {
		return v.(*models.Snapshot), true
	}
	return nil, false
}

func (s *syncServiceImpl) Status() models.SyncStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// Invalidate drops every published snapshot.
func (s *syncServiceImpl) Invalidate() {
	s.snapshotCache.Flush()
	logger.L.Info("Invalidated snapshot cache")
}

func (s *syncServiceImpl) setState(ctx context.Context, cycleID string, state models.SyncState) {
	s.statusMu.Lock()
	s.status.State = state
	s.status.LastCycleID = cycleID
	s.statusMu.Unlock()
	logger.FromContext(ctx).Debug("Sync state changed", "state", state)
}

func (s *syncServiceImpl) fail(ctx context.Context, cycleID string, err error) {
	s.statusMu.Lock()
	s.status.State = models.SyncFailed
	s.status.LastCycleID = cycleID
	s.status.LastError = err.Error()
	s.statusMu.Unlock()
	logger.FromContext(ctx).Error("Sync cycle failed", "state", models.SyncFailed, "error", err)
}
