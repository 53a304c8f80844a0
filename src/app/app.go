// Package app wires the store, clients and services of one terminal.
package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/nanopos/src/commands"
	"github.com/username/nanopos/src/config"
	"github.com/username/nanopos/src/database"
	"github.com/username/nanopos/src/logger"
	"github.com/username/nanopos/src/models"
	"github.com/username/nanopos/src/nano"
	"github.com/username/nanopos/src/processors"
	"github.com/username/nanopos/src/security"
	"github.com/username/nanopos/src/services"
	"github.com/username/nanopos/src/session"
)

const writerQueueSize = 64

// App holds the long-lived objects of a running terminal.
type App struct {
	DB         *sql.DB
	Writer     *database.Writer
	Session    *session.Session
	Sync       services.SyncService
	Watch      services.WatchService
	Items      services.ItemService
	Settings   services.SettingsService
	Auth       services.AuthService
	Reset      services.ResetService
	Dispatcher *commands.Dispatcher
}

// New opens the store described by cfg and builds the services.
func New(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	loc := cfg.Location()
	logger.L.Info("Initializing database...", "path", cfg.DatabasePath)
	db, err := database.InitDB(cfg.DatabasePath, database.Seed{
		RPCNode:   cfg.DefaultRPCNode,
		WSSServer: cfg.DefaultWSSServer,
		Currency:  cfg.DefaultCurrency,
		Location:  loc,
	})
	if err != nil {
		return nil, err
	}

	sess, err := session.New(cfg.Address)
	if err != nil {
		db.Close()
		return nil, err
	}

	writer := database.NewWriter(db, writerQueueSize)
	writer.Start()

	priceService := services.NewPriceService(services.PriceServiceOptions{
		BaseURL:       cfg.PriceAPIURL,
		APIKey:        cfg.PriceAPIKey,
		CoinID:        cfg.PriceCoinID,
		Timeout:       cfg.PriceTimeout,
		RatePerMinute: cfg.PriceRatePerMinute,
	})
	priceMemo := cache.New(cache.NoExpiration, services.CacheCleanupInterval)
	oracle := services.NewPriceOracle(db, writer, priceService, priceMemo, loc)

	snapshotCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)
	syncService := services.NewSyncService(
		db, writer, sess,
		nano.NewClient(cfg.RPCTimeout),
		oracle,
		processors.NewTransactionProcessor(),
		processors.NewBalanceProcessor(loc, nil),
		snapshotCache,
		loc,
	)

	watchService := services.NewWatchService(db, writer, sess, oracle, services.DialNano(cfg.RPCTimeout), services.WatchServiceOptions{
		Heartbeat: cfg.HeartbeatInterval,
		Tolerance: decimal.NewFromFloat(cfg.PaymentTolerance),
		OnRecorded: func(ctx context.Context, status models.WatchStatus) {
			go func() {
				if _, err := syncService.UpdateInfo(ctx, false); err != nil {
					logger.FromContext(ctx).Warn("Snapshot refresh after payment failed", "hash", status.Hash, "error", err)
				}
			}()
		},
	})

	itemService := services.NewItemService(db, writer)
	settingsService := services.NewSettingsService(db, writer)
	authService := services.NewAuthService(db, writer, security.NewAuthService(cfg.JWTSecret, cfg.AccessTokenExpiry))

	logger.L.Info("Services initialized", "address", sess.Address(), "timezone", loc.String())
	return &App{
		DB:         db,
		Writer:     writer,
		Session:    sess,
		Sync:       syncService,
		Watch:      watchService,
		Items:      itemService,
		Settings:   settingsService,
		Auth:       authService,
		Reset:      services.NewResetService(writer, syncService),
		Dispatcher: commands.NewDispatcher(sess, syncService, watchService, itemService, settingsService),
	}, nil
}

// Close cancels any watch, drains pending writes and closes the store.
func (a *App) Close() error {
	a.Session.Close()

	// give a just-settled watch the chance to store its bill
	if _, ok := a.Watch.Status(); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		a.Watch.Wait(ctx)
		cancel()
	}

	if err := a.Writer.Close(); err != nil {
		logger.L.Error("Closing database writer failed", "error", err)
	}
	return a.DB.Close()
}
