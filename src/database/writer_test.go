package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "pos.db"), Seed{
		RPCNode:   "http://localhost:7076",
		WSSServer: "ws://localhost:7078",
		Currency:  "usd",
	})
	if err != nil {
		t.Fatalf("InitDB() unexpected error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestWriterRunsInSubmissionOrder(t *testing.T) {
	w := NewWriter(openTestDB(t), 8)
	w.Start()
	defer w.Close()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		err := w.Do(context.Background(), func(ctx context.Context, db *sql.DB) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
		if err != nil {
			t.Fatalf("Do() unexpected error = %v", err)
		}
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want ascending", order)
		}
	}
}

func TestWriterSerialisesConcurrentWrites(t *testing.T) {
	w := NewWriter(openTestDB(t), 4)
	w.Start()
	defer w.Close()

	var running, maxRunning int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Do(context.Background(), func(ctx context.Context, db *sql.DB) error {
				mu.Lock()
				running++
				if running > maxRunning {
					maxRunning = running
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	if maxRunning != 1 {
		t.Errorf("max concurrent writes = %d, want 1", maxRunning)
	}
}

func TestWriterReturnsMutationError(t *testing.T) {
	w := NewWriter(openTestDB(t), 1)
	w.Start()
	defer w.Close()

	boom := errors.New("boom")
	err := w.Do(context.Background(), func(ctx context.Context, db *sql.DB) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("Do() error = %v, want %v", err, boom)
	}
}

func TestWriterClose(t *testing.T) {
	w := NewWriter(openTestDB(t), 1)
	w.Start()

	if err := w.Close(); err != nil {
		t.Fatalf("Close() unexpected error = %v", err)
	}
	err := w.Do(context.Background(), func(ctx context.Context, db *sql.DB) error { return nil })
	if !errors.Is(err, ErrWriterClosed) {
		t.Errorf("Do() after Close error = %v, want ErrWriterClosed", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() unexpected error = %v", err)
	}
}

func TestWriterCancelledContext(t *testing.T) {
	w := NewWriter(openTestDB(t), 1)
	w.Start()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		t.Error("mutation ran with a cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
}

func TestWriterReportsQueuedMutationAfterCancel(t *testing.T) {
	db := openTestDB(t)
	w := NewWriter(db, 1)
	w.Start()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	resume := make(chan struct{})
	result := make(chan error, 1)
	go func() {
		result <- w.Do(ctx, func(_ context.Context, db *sql.DB) error {
			close(started)
			<-resume
			_, err := db.Exec(`INSERT INTO global_config (section_name, setting_name, setting_value) VALUES ('test', 'late', 'x')`)
			return err
		})
	}()

	<-started
	cancel()
	close(resume)

	if err := <-result; err != nil {
		t.Errorf("Do() error = %v, want nil for a mutation that committed", err)
	}
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM global_config WHERE setting_name = 'late'`).Scan(&count); err != nil {
		t.Fatalf("read row: %v", err)
	}
	if count != 1 {
		t.Errorf("rows = %d, want 1", count)
	}
}

func TestWriterSkipsQueuedMutationCancelledBeforeRun(t *testing.T) {
	w := NewWriter(openTestDB(t), 4)
	w.Start()
	defer w.Close()

	// hold the writer so the second request waits in the queue
	release := make(chan struct{})
	holding := make(chan struct{})
	go w.Do(context.Background(), func(context.Context, *sql.DB) error {
		close(holding)
		<-release
		return nil
	})
	<-holding

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	ran := make(chan struct{}, 1)
	go func() {
		result <- w.Do(ctx, func(context.Context, *sql.DB) error {
			ran <- struct{}{}
			return nil
		})
	}()
	// give the request time to be queued behind the held one
	time.Sleep(20 * time.Millisecond)
	cancel()
	close(release)

	if err := <-result; !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
	select {
	case <-ran:
		t.Error("mutation ran although Do reported cancellation")
	default:
	}
}

func TestInitDBSeedsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pos.db")
	db, err := InitDB(path, Seed{RPCNode: "http://a", WSSServer: "ws://a", Currency: "usd"})
	if err != nil {
		t.Fatalf("InitDB() unexpected error = %v", err)
	}
	if _, err := db.Exec(`UPDATE global_config SET setting_value = 'eur' WHERE setting_name = ?`, SettingCurrency); err != nil {
		t.Fatalf("update currency: %v", err)
	}
	db.Close()

	db, err = InitDB(path, Seed{RPCNode: "http://b", WSSServer: "ws://b", Currency: "gbp"})
	if err != nil {
		t.Fatalf("second InitDB() unexpected error = %v", err)
	}
	defer db.Close()

	var currency string
	if err := db.QueryRow(`SELECT setting_value FROM global_config WHERE setting_name = ?`, SettingCurrency).Scan(&currency); err != nil {
		t.Fatalf("read currency: %v", err)
	}
	if currency != "eur" {
		t.Errorf("currency = %q, want the operator's value eur", currency)
	}
}

func TestInitDBMigratesLegacyPrices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pos.db")
	legacy, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open legacy database: %v", err)
	}
	// older releases keyed prices by unix seconds and allowed duplicates
	if _, err := legacy.Exec(`CREATE TABLE nano_price (id INTEGER PRIMARY KEY AUTOINCREMENT, currency TEXT, price REAL, date INTEGER)`); err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
	for _, ts := range []int64{1620498240, 1620498300} {
		if _, err := legacy.Exec(`INSERT INTO nano_price (currency, price, date) VALUES ('usd', 5.1, ?)`, ts); err != nil {
			t.Fatalf("insert legacy price: %v", err)
		}
	}
	legacy.Close()

	db, err := InitDB(path, Seed{})
	if err != nil {
		t.Fatalf("InitDB() unexpected error = %v", err)
	}
	defer db.Close()

	var count int
	var day string
	if err := db.QueryRow(`SELECT COUNT(*), MIN(date) FROM nano_price`).Scan(&count, &day); err != nil {
		t.Fatalf("read prices: %v", err)
	}
	if count != 1 {
		t.Errorf("price rows = %d, want 1 after de-duplication", count)
	}
	if len(day) != len("2006-01-02") {
		t.Errorf("date = %q, want a YYYY-MM-DD key", day)
	}
}

func TestInitDBMigratesLegacyPricesInLocation(t *testing.T) {
	// 2021-05-08 18:24 UTC is already 2021-05-09 in UTC+9
	tests := []struct {
		name string
		loc  *time.Location
		want string
	}{
		{"utc", time.UTC, "2021-05-08"},
		{"utc+9", time.FixedZone("UTC+9", 9*3600), "2021-05-09"},
		{"utc-7", time.FixedZone("UTC-7", -7*3600), "2021-05-08"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pos.db")
			legacy, err := sql.Open("sqlite", path)
			if err != nil {
				t.Fatalf("open legacy database: %v", err)
			}
			if _, err := legacy.Exec(`CREATE TABLE nano_price (id INTEGER PRIMARY KEY AUTOINCREMENT, currency TEXT, price REAL, date INTEGER)`); err != nil {
				t.Fatalf("create legacy table: %v", err)
			}
			if _, err := legacy.Exec(`INSERT INTO nano_price (currency, price, date) VALUES ('usd', 5.1, 1620498240)`); err != nil {
				t.Fatalf("insert legacy price: %v", err)
			}
			legacy.Close()

			db, err := InitDB(path, Seed{Location: tt.loc})
			if err != nil {
				t.Fatalf("InitDB() unexpected error = %v", err)
			}
			defer db.Close()

			var day string
			if err := db.QueryRow(`SELECT date FROM nano_price WHERE currency = 'usd'`).Scan(&day); err != nil {
				t.Fatalf("read price: %v", err)
			}
			if day != tt.want {
				t.Errorf("date = %q, want %q", day, tt.want)
			}
		})
	}
}
