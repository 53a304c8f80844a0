package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/nanopos/src/database"
	"github.com/username/nanopos/src/models"
	"github.com/username/nanopos/src/nano"
	"github.com/username/nanopos/src/processors"
	"github.com/username/nanopos/src/session"
)

const testAddress = "nano_3t6k35gi95xu6tergt6p69ck76ogmitsa8mnijtpxm9fkcm736xtoncuohr3"

type fakeLedger struct {
	mu      sync.Mutex
	blocks  []nano.Block
	infoErr error
	heads   []string
}

func (f *fakeLedger) AccountInfo(ctx context.Context, node, address string) (*nano.AccountInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return &nano.AccountInfo{ConfirmationHeightFrontier: "HEAD"}, nil
}

func (f *fakeLedger) AccountHistory(ctx context.Context, node, address, head string) (*nano.AccountHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heads = append(f.heads, head)
	return &nano.AccountHistory{Account: address, History: f.blocks}, nil
}

func (f *fakeLedger) AccountBalance(ctx context.Context, node, address string) (*nano.AccountBalance, error) {
	return &nano.AccountBalance{}, nil
}

// fakeOracle quotes the same price for every day.
type fakeOracle struct {
	price decimal.Decimal
	err   error
}

func (f *fakeOracle) CurrentPrice(ctx context.Context, currency string) (decimal.Decimal, error) {
	return f.price, f.err
}

func (f *fakeOracle) HistoricalPrice(ctx context.Context, currency string, day time.Time) (decimal.Decimal, error) {
	return f.price, f.err
}

type syncFixture struct {
	db      *sql.DB
	writer  *database.Writer
	session *session.Session
	ledger  *fakeLedger
	oracle  *fakeOracle
	sync    SyncService
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	db, w := openTestStore(t)
	sess, err := session.New(testAddress)
	if err != nil {
		t.Fatalf("session.New() unexpected error = %v", err)
	}
	f := &syncFixture{
		db:      db,
		writer:  w,
		session: sess,
		ledger:  &fakeLedger{},
		oracle:  &fakeOracle{price: decimal.RequireFromString("4")},
	}
	f.sync = NewSyncService(db, w, sess, f.ledger, f.oracle,
		processors.NewTransactionProcessor(),
		processors.NewBalanceProcessor(time.UTC, nil),
		cache.New(DefaultCacheExpiration, CacheCleanupInterval),
		time.UTC)
	return f
}

func nanoAtomic(s string) decimal.Decimal {
	return decimal.RequireFromString(s).Shift(30)
}

func TestUpdateInfoMergesAndPrices(t *testing.T) {
	f := newSyncFixture(t)
	now := time.Now().Unix()
	f.ledger.blocks = []nano.Block{
		{Type: "send", Hash: "H2", Amount: nanoAtomic("2"), LocalTimestamp: now},
		{Type: "receive", Hash: "H1", Amount: nanoAtomic("5"), LocalTimestamp: now - 1},
		{Type: "receive", Hash: "DUST", Amount: decimal.NewFromInt(1), LocalTimestamp: now - 2},
	}

	snap, err := f.sync.UpdateInfo(context.Background(), true)
	if err != nil {
		t.Fatalf("UpdateInfo() unexpected error = %v", err)
	}
	if snap.Merged != 3 {
		t.Errorf("Merged = %d, want 3", snap.Merged)
	}
	if len(snap.RawTransactions) != 2 {
		t.Fatalf("len(RawTransactions) = %d, want 2 without dust", len(snap.RawTransactions))
	}
	if snap.Balance.Total != "03.00" || snap.Balance.Today != "05.00" {
		t.Errorf("Balance = %+v, want total 03.00 today 05.00", snap.Balance)
	}
	first := snap.PrettyTransactions[0]
	if first.Hash != "H2" || first.Type != "Send" || first.Amount.Nano != "02.00" || first.Amount.Currency != "08.00 USD" {
		t.Errorf("PrettyTransactions[0] = %+v", first)
	}
	if f.ledger.heads[0] != "HEAD" {
		t.Errorf("history head = %q, want the confirmed frontier", f.ledger.heads[0])
	}
	if st := f.sync.Status(); st.State != models.SyncReady || st.LastReadyAt == nil {
		t.Errorf("Status() = %+v, want Ready", st)
	}
	if cached, ok := f.sync.Snapshot(); !ok || cached != snap {
		t.Error("Snapshot() does not return the published snapshot")
	}
}

func TestUpdateInfoIsIdempotent(t *testing.T) {
	f := newSyncFixture(t)
	f.ledger.blocks = []nano.Block{
		{Type: "receive", Hash: "H1", Amount: nanoAtomic("5"), LocalTimestamp: 100},
	}

	for i, wantMerged := range []int{1, 0, 0} {
		snap, err := f.sync.UpdateInfo(context.Background(), true)
		if err != nil {
			t.Fatalf("cycle %d: UpdateInfo() unexpected error = %v", i, err)
		}
		if snap.Merged != wantMerged {
			t.Errorf("cycle %d: Merged = %d, want %d", i, snap.Merged, wantMerged)
		}
		if len(snap.RawTransactions) != 1 {
			t.Errorf("cycle %d: len(RawTransactions) = %d, want 1", i, len(snap.RawTransactions))
		}
	}
}

func TestUpdateInfoFailureKeepsSnapshot(t *testing.T) {
	f := newSyncFixture(t)
	f.ledger.blocks = []nano.Block{
		{Type: "receive", Hash: "H1", Amount: nanoAtomic("5"), LocalTimestamp: 100},
	}
	first, err := f.sync.UpdateInfo(context.Background(), true)
	if err != nil {
		t.Fatalf("UpdateInfo() unexpected error = %v", err)
	}

	f.ledger.infoErr = nano.ErrConnection
	_, err = f.sync.UpdateInfo(context.Background(), true)
	if !errors.Is(err, ErrSyncFailed) || !errors.Is(err, nano.ErrConnection) {
		t.Fatalf("UpdateInfo() error = %v, want ErrSyncFailed wrapping ErrConnection", err)
	}
	if st := f.sync.Status(); st.State != models.SyncFailed || st.LastError == "" {
		t.Errorf("Status() = %+v, want Failed with an error", st)
	}
	if snap, ok := f.sync.Snapshot(); !ok || snap != first {
		t.Error("Snapshot() lost the last good snapshot after a failed cycle")
	}
}

func TestUpdateInfoPricingFailure(t *testing.T) {
	f := newSyncFixture(t)
	f.oracle.err = ErrPriceUnavailable
	_, err := f.sync.UpdateInfo(context.Background(), false)
	if !errors.Is(err, ErrSnapshotFailed) {
		t.Errorf("UpdateInfo() error = %v, want ErrSnapshotFailed", err)
	}
}

func TestUpdateInfoUnopenedAccount(t *testing.T) {
	f := newSyncFixture(t)
	f.ledger.infoErr = nano.ErrAccountNotFound

	snap, err := f.sync.UpdateInfo(context.Background(), true)
	if err != nil {
		t.Fatalf("UpdateInfo() unexpected error = %v", err)
	}
	if len(snap.RawTransactions) != 0 || snap.Balance.Total != "00.00" {
		t.Errorf("snapshot = %+v, want empty", snap)
	}
}

func TestUpdateInfoWithoutLedgerSync(t *testing.T) {
	f := newSyncFixture(t)
	f.ledger.blocks = []nano.Block{
		{Type: "receive", Hash: "H1", Amount: nanoAtomic("5"), LocalTimestamp: 100},
	}
	snap, err := f.sync.UpdateInfo(context.Background(), false)
	if err != nil {
		t.Fatalf("UpdateInfo() unexpected error = %v", err)
	}
	if len(f.ledger.heads) != 0 {
		t.Error("ledger was queried with sync disabled")
	}
	if len(snap.RawTransactions) != 0 {
		t.Errorf("len(RawTransactions) = %d, want 0", len(snap.RawTransactions))
	}
}

func TestUpdateInfoNoAddress(t *testing.T) {
	db, w := openTestStore(t)
	sess, _ := session.New("")
	svc := NewSyncService(db, w, sess, &fakeLedger{}, &fakeOracle{price: decimal.NewFromInt(1)},
		processors.NewTransactionProcessor(), processors.NewBalanceProcessor(time.UTC, nil),
		cache.New(DefaultCacheExpiration, CacheCleanupInterval), time.UTC)

	if _, err := svc.UpdateInfo(context.Background(), true); !errors.Is(err, ErrNoAddress) {
		t.Errorf("UpdateInfo() error = %v, want ErrNoAddress", err)
	}
}

func TestUpdateInfoSurvivesCallerCancellation(t *testing.T) {
	f := newSyncFixture(t)
	f.ledger.blocks = []nano.Block{
		{Type: "receive", Hash: "H1", Amount: nanoAtomic("5"), LocalTimestamp: 100},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := f.sync.UpdateInfo(ctx, true)
	if err != nil {
		t.Fatalf("UpdateInfo() unexpected error = %v", err)
	}
	if snap.Merged != 1 {
		t.Errorf("Merged = %d, want 1", snap.Merged)
	}
}
