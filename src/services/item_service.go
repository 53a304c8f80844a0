package services

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/username/nanopos/src/database"
	"github.com/username/nanopos/src/logger"
	"github.com/username/nanopos/src/model"
	"github.com/username/nanopos/src/parsers"
	"github.com/username/nanopos/src/security/validation"
)

type itemServiceImpl struct {
	db     *sql.DB
	writer *database.Writer
}

func NewItemService(db *sql.DB, writer *database.Writer) ItemService {
	return &itemServiceImpl{db: db, writer: writer}
}

// Insert adds item to the catalogue. An id already in use is not an error;
// the call reports false and the stored item is kept.
func (s *itemServiceImpl) Insert(ctx context.Context, item model.Item) (bool, error) {
	item, err := normalizeItem(item)
	if err != nil {
		return false, err
	}
	var inserted bool
	err = s.writer.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		var err error
		inserted, err = model.InsertItem(ctx, db, item)
		return err
	})
	if err != nil {
		return false, err
	}
	logger.FromContext(ctx).Info("Item insert", "id", item.ID, "inserted", inserted)
	return inserted, nil
}

func (s *itemServiceImpl) Delete(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, fmt.Errorf("%w: id must be positive", ErrInvalidItem)
	}
	var deleted bool
	err := s.writer.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		var err error
		deleted, err = model.DeleteItem(ctx, db, id)
		return err
	})
	if err != nil {
		return false, err
	}
	logger.FromContext(ctx).Info("Item delete", "id", id, "deleted", deleted)
	return deleted, nil
}

func (s *itemServiceImpl) List(ctx context.Context) ([]model.Item, error) {
	return model.ListItems(ctx, s.db)
}

// ImportCSV loads a catalogue file. Rows with a missing id, name or price
// are skipped; rows whose id exists are counted as duplicates.
func (s *itemServiceImpl) ImportCSV(ctx context.Context, path string) (*ImportResult, error) {
	log := logger.FromContext(ctx)
	if err := validation.ValidateCSVFile(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	parser, err := parsers.GetParser("csv")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	defer f.Close()

	parsed, err := parser.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	result := &ImportResult{Skipped: len(parsed.Skipped)}
	err = s.writer.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: begin import: %v", model.ErrStorage, err)
		}
		defer tx.Rollback()

		for _, item := range parsed.Items {
			inserted, err := model.InsertItem(ctx, tx, item)
			if err != nil {
				return err
			}
			if inserted {
				result.Inserted++
			} else {
				result.Duplicates++
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%w: commit import: %v", model.ErrStorage, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("Catalogue imported", "path", path, "inserted", result.Inserted,
		"duplicates", result.Duplicates, "skipped", result.Skipped)
	return result, nil
}

func normalizeItem(item model.Item) (model.Item, error) {
	if item.ID <= 0 {
		return item, fmt.Errorf("%w: id must be positive", ErrInvalidItem)
	}
	item.Name = validation.CleanText(item.Name)
	if item.Name == "" {
		return item, fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if item.Price.IsNegative() {
		return item, fmt.Errorf("%w: price must not be negative", ErrInvalidItem)
	}
	for _, p := range []**string{&item.Description, &item.Barcode, &item.Category, &item.Extra} {
		if *p == nil {
			continue
		}
		v := validation.CleanText(**p)
		if v == "" {
			*p = nil
		} else {
			*p = &v
		}
	}
	return item, nil
}
