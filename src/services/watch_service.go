package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/username/nanopos/src/database"
	"github.com/username/nanopos/src/logger"
	"github.com/username/nanopos/src/model"
	"github.com/username/nanopos/src/models"
	"github.com/username/nanopos/src/nano"
	"github.com/username/nanopos/src/processors"
	"github.com/username/nanopos/src/session"
	"github.com/username/nanopos/src/units"
)

// Feed is a push channel connection.
type Feed interface {
	Subscribe(accounts []string) error
	Unsubscribe(accounts []string) error
	Ping() error
	Next() (*nano.Event, error)
	Close() error
}

// DialFunc opens a Feed to a push channel url.
type DialFunc func(ctx context.Context, url string) (Feed, error)

// DialNano dials a node websocket with handshakeTimeout.
func DialNano(handshakeTimeout time.Duration) DialFunc {
	return func(ctx context.Context, url string) (Feed, error) {
		return nano.DialFeed(ctx, url, handshakeTimeout)
	}
}

// WatchServiceOptions tunes the watcher.
type WatchServiceOptions struct {
	Heartbeat time.Duration
	Tolerance decimal.Decimal // in Nano
	// OnRecorded runs after a matched or mismatched payment has been stored.
	OnRecorded func(ctx context.Context, status models.WatchStatus)
}

type watchServiceImpl struct {
	db      *sql.DB
	writer  *database.Writer
	session *session.Session
	oracle  PriceOracle
	dial    DialFunc
	opts    WatchServiceOptions
	now     func() time.Time
}

func NewWatchService(db *sql.DB, writer *database.Writer, sess *session.Session, oracle PriceOracle, dial DialFunc, opts WatchServiceOptions) WatchService {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 5 * time.Second
	}
	return &watchServiceImpl{
		db:      db,
		writer:  writer,
		session: sess,
		oracle:  oracle,
		dial:    dial,
		opts:    opts,
		now:     time.Now,
	}
}

// Start prices the basket at the live rate and waits for that many Nano.
// Repeated ids are quantities.
func (s *watchServiceImpl) Start(ctx context.Context, itemIDs []int64) (models.WatchStatus, error) {
	if len(itemIDs) == 0 {
		return models.WatchStatus{}, fmt.Errorf("%w: no items to charge", ErrInvalidItem)
	}
	settings, err := s.settings(ctx)
	if err != nil {
		return models.WatchStatus{}, err
	}

	items, err := model.GetItemsByIDs(ctx, s.db, itemIDs)
	if err != nil {
		return models.WatchStatus{}, err
	}
	fiatTotal := decimal.Zero
	for _, id := range itemIDs {
		it, ok := items[id]
		if !ok {
			return models.WatchStatus{}, fmt.Errorf("%w: unknown item id %d", ErrInvalidItem, id)
		}
		fiatTotal = fiatTotal.Add(it.Price)
	}

	price, err := s.oracle.CurrentPrice(ctx, settings.Currency)
	if err != nil {
		return models.WatchStatus{}, err
	}
	expected := processors.ExpectedNano(fiatTotal, price)
	logger.FromContext(ctx).Info("Checkout priced", "fiatTotal", fiatTotal.String(), "currency", settings.Currency,
		"price", price.String(), "expected", expected.String())
	return s.launch(ctx, settings, itemIDs, expected, fiatTotal)
}

// Watch waits for req.Expected Nano.
func (s *watchServiceImpl) Watch(ctx context.Context, req WatchRequest) (models.WatchStatus, error) {
	if !req.Expected.IsPositive() {
		return models.WatchStatus{}, fmt.Errorf("%w: expected amount must be positive", units.ErrInvalidAmount)
	}
	settings, err := s.settings(ctx)
	if err != nil {
		return models.WatchStatus{}, err
	}
	return s.launch(ctx, settings, req.ItemIDs, units.RoundDisplay(req.Expected), decimal.Zero)
}

func (s *watchServiceImpl) settings(ctx context.Context) (model.Settings, error) {
	settings, err := model.GetSettings(ctx, s.db)
	if errors.Is(err, model.ErrNotFound) {
		return settings, fmt.Errorf("%w: %v", ErrSettingsIncomplete, err)
	}
	return settings, err
}

func (s *watchServiceImpl) launch(ctx context.Context, settings model.Settings, itemIDs []int64, expected, fiatTotal decimal.Decimal) (models.WatchStatus, error) {
	address := s.session.Address()
	if address == "" {
		return models.WatchStatus{}, ErrNoAddress
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w := &paymentWatch{
		status: models.WatchStatus{
			ID:        uuid.NewString(),
			Address:   address,
			State:     models.WatchConnecting,
			ItemIDs:   append([]int64(nil), itemIDs...),
			FiatTotal: fiatTotal,
			Expected:  expected,
			StartedAt: s.now(),
		},
		cancel:  cancel,
		settled: make(chan struct{}),
		done:    make(chan struct{}),
	}
	w.log = logger.FromContext(ctx).With("watch", w.status.ID, "address", address)
	s.session.ReplaceWatch(w)

	w.log.Info("Payment watch started", "state", models.WatchConnecting, "expected", expected.String(), "wss", settings.WSSServer)
	go s.run(runCtx, w, settings.WSSServer)
	return w.Status(), nil
}

func (s *watchServiceImpl) run(ctx context.Context, w *paymentWatch, url string) {
	feed, err := s.dial(ctx, url)
	if err != nil {
		w.fail(err)
		return
	}
	if !w.attach(feed) {
		// cancelled while dialling
		feed.Close()
		return
	}

	address := w.Status().Address
	if err := feed.Unsubscribe(nil); err != nil {
		w.fail(err)
		return
	}
	if err := feed.Subscribe([]string{address}); err != nil {
		w.fail(err)
		return
	}
	if !w.transition(models.WatchSubscribed) {
		return
	}

	go s.heartbeat(w, feed)

	for {
		ev, err := feed.Next()
		if err != nil {
			w.fail(err)
			return
		}
		if ev.Ack != "" || ev.Topic != nano.TopicConfirmation {
			continue
		}
		conf, err := ev.Confirmation()
		if err != nil {
			w.log.Warn("Ignoring malformed confirmation", "error", err)
			continue
		}
		if conf.Block.Subtype == "send" || conf.Account != address {
			w.log.Debug("Ignoring confirmation", "hash", conf.Hash, "account", conf.Account, "subtype", conf.Block.Subtype)
			continue
		}
		atomic, err := units.ParseAtomic(conf.Amount)
		if err != nil {
			w.log.Warn("Ignoring confirmation with bad amount", "hash", conf.Hash, "error", err)
			continue
		}

		received := units.ToDisplay(atomic)
		state := models.WatchMismatched
		if received.GreaterThanOrEqual(w.Status().Expected.Sub(s.opts.Tolerance)) {
			state = models.WatchMatched
		}
		if !w.settle(state, received, conf.Hash, nil) {
			return
		}
		s.record(ctx, w, atomic)
		return
	}
}

func (s *watchServiceImpl) heartbeat(w *paymentWatch, feed Feed) {
	ticker := time.NewTicker(s.opts.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-w.settled:
			return
		case <-ticker.C:
			if err := feed.Ping(); err != nil {
				w.fail(err)
				return
			}
		}
	}
}

// record stores the receive transaction and its bill, then releases waiters.
func (s *watchServiceImpl) record(ctx context.Context, w *paymentWatch, atomic decimal.Decimal) {
	defer w.closeDone()

	st := w.Status()
	date := s.now().Unix()
	tx := model.Transaction{
		Hash:    st.Hash,
		Account: st.Address,
		Amount:  atomic,
		Date:    date,
		Type:    model.TypeReceive,
	}
	err := s.writer.Do(context.WithoutCancel(ctx), func(ctx context.Context, db *sql.DB) error {
		if _, err := model.InsertTransaction(ctx, db, tx); err != nil {
			return err
		}
		bill, inserted, err := model.InsertBill(ctx, db, st.Hash, st.ItemIDs, date)
		if err != nil {
			return err
		}
		if !inserted {
			w.log.Warn("Bill already recorded for transaction", "hash", st.Hash)
			return nil
		}
		w.log.Info("Bill recorded", "hash", st.Hash, "price", bill.Price.String(), "items", len(st.ItemIDs))
		return nil
	})
	if err != nil {
		w.log.Error("Recording payment failed", "hash", st.Hash, "error", err)
		w.setError(err)
		return
	}
	if s.opts.OnRecorded != nil {
		s.opts.OnRecorded(context.WithoutCancel(ctx), w.Status())
	}
}

func (s *watchServiceImpl) Stop() (models.WatchStatus, error) {
	w := s.session.ActiveWatch()
	if w == nil || w.Status().State.Terminal() {
		return models.WatchStatus{}, ErrNoActiveWatch
	}
	w.Cancel()
	return w.Status(), nil
}

func (s *watchServiceImpl) Status() (models.WatchStatus, bool) {
	w := s.session.ActiveWatch()
	if w == nil {
		return models.WatchStatus{}, false
	}
	return w.Status(), true
}

func (s *watchServiceImpl) Wait(ctx context.Context) (models.WatchStatus, error) {
	w := s.session.ActiveWatch()
	if w == nil {
		return models.WatchStatus{}, ErrNoActiveWatch
	}
	select {
	case <-w.Done():
		return w.Status(), nil
	case <-ctx.Done():
		return w.Status(), ctx.Err()
	}
}

// paymentWatch is one watch. The first terminal transition wins; later
// ones are ignored.
type paymentWatch struct {
	mu     sync.Mutex
	status models.WatchStatus
	feed   Feed
	cancel context.CancelFunc
	log    *slog.Logger

	// settled closes on the terminal transition, done once the payment (if
	// any) is stored.
	settled  chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

func (w *paymentWatch) attach(feed Feed) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status.State.Terminal() {
		return false
	}
	w.feed = feed
	return true
}

func (w *paymentWatch) transition(state models.WatchState) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status.State.Terminal() {
		return false
	}
	w.status.State = state
	w.log.Info("Payment watch state changed", "state", state)
	return true
}

// settle moves to a terminal state and closes the connection. It reports
// false when another terminal state got there first. cause is recorded only
// if this transition wins.
func (w *paymentWatch) settle(state models.WatchState, received decimal.Decimal, hash string, cause error) bool {
	w.mu.Lock()
	if w.status.State.Terminal() {
		w.mu.Unlock()
		return false
	}
	now := time.Now()
	w.status.State = state
	w.status.EndedAt = &now
	if cause != nil {
		w.status.Error = cause.Error()
	}
	if hash != "" {
		w.status.Received = received
		w.status.Exceed = received.Sub(w.status.Expected)
		w.status.Hash = hash
	}
	feed := w.feed
	close(w.settled)
	w.mu.Unlock()

	w.log.Info("Payment watch finished", "state", state, "hash", hash, "received", received.String())
	if feed != nil {
		feed.Close()
	}
	w.cancel()
	return true
}

func (w *paymentWatch) fail(err error) {
	if w.settle(models.WatchError, decimal.Zero, "", err) {
		w.log.Error("Payment watch failed", "error", err)
		w.closeDone()
	}
}

func (w *paymentWatch) setError(err error) {
	w.mu.Lock()
	w.status.Error = err.Error()
	w.mu.Unlock()
}

// Cancel ends the watch unless it already finished. A payment arriving
// afterwards is not recorded.
func (w *paymentWatch) Cancel() {
	if w.settle(models.WatchCancelled, decimal.Zero, "", nil) {
		w.closeDone()
	}
}

func (w *paymentWatch) Status() models.WatchStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := w.status
	st.ItemIDs = append([]int64(nil), w.status.ItemIDs...)
	return st
}

// Done is closed once the watch is terminal and any payment is stored.
func (w *paymentWatch) Done() <-chan struct{} {
	return w.done
}

func (w *paymentWatch) closeDone() {
	w.doneOnce.Do(func() { close(w.done) })
}

var _ session.Watch = (*paymentWatch)(nil)
