package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/username/nanopos/src/database"
	"github.com/username/nanopos/src/logger"
	"github.com/username/nanopos/src/model"
)

// ResetOptions selects the tables Reset empties.
type ResetOptions struct {
	Items        bool
	Transactions bool
}

// ResetService empties local tables. The ledger itself is untouched, so the
// next sync mirrors the account again; bills stay keyed by hash and reattach
// to the transactions it brings back.
type ResetService interface {
	Reset(ctx context.Context, opts ResetOptions) error
}

type resetServiceImpl struct {
	writer *database.Writer
	sync   SyncService
}

func NewResetService(writer *database.Writer, sync SyncService) ResetService {
	return &resetServiceImpl{writer: writer, sync: sync}
}

func (s *resetServiceImpl) Reset(ctx context.Context, opts ResetOptions) error {
	if !opts.Items && !opts.Transactions {
		return ErrNothingToReset
	}
	err := s.writer.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: begin reset: %v", model.ErrStorage, err)
		}
		defer tx.Rollback()
		if opts.Transactions {
			if err := model.DeleteTransactions(ctx, tx); err != nil {
				return err
			}
		}
		if opts.Items {
			if err := model.DeleteItems(ctx, tx); err != nil {
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%w: commit reset: %v", model.ErrStorage, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.sync.Invalidate()
	logger.FromContext(ctx).Warn("Local store reset", "items", opts.Items, "transactions", opts.Transactions)
	return nil
}
