package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/username/nanopos/src/database"
	"github.com/username/nanopos/src/logger"
	"github.com/username/nanopos/src/model"
	"github.com/username/nanopos/src/utils"
)

type settingsServiceImpl struct {
	db     *sql.DB
	writer *database.Writer
}

func NewSettingsService(db *sql.DB, writer *database.Writer) SettingsService {
	return &settingsServiceImpl{db: db, writer: writer}
}

func (s *settingsServiceImpl) Get(ctx context.Context) (model.Settings, error) {
	settings, err := model.GetSettings(ctx, s.db)
	if errors.Is(err, model.ErrNotFound) {
		return settings, fmt.Errorf("%w: %v", ErrSettingsIncomplete, err)
	}
	return settings, err
}

// SaveChanges applies changes on top of the stored settings and rewrites
// them. Nothing is written when any change is invalid.
func (s *settingsServiceImpl) SaveChanges(ctx context.Context, changes []SettingChange) (model.Settings, error) {
	current, err := model.GetSettings(ctx, s.db)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return model.Settings{}, err
	}

	next := current
	for _, c := range changes {
		if _, ok := model.Editable[c.Setting]; !ok {
			return current, fmt.Errorf("%w: unknown setting %q", ErrInvalidSetting, c.Setting)
		}
		value := strings.TrimSpace(c.Value)
		switch c.Setting {
		case database.SettingRPCNode:
			if err := validateURL(value, "http", "https"); err != nil {
				return current, fmt.Errorf("%w: %s: %v", ErrInvalidSetting, c.Setting, err)
			}
			next.RPCNode = value
		case database.SettingWSSServer:
			if err := validateURL(value, "ws", "wss"); err != nil {
				return current, fmt.Errorf("%w: %s: %v", ErrInvalidSetting, c.Setting, err)
			}
			next.WSSServer = value
		case database.SettingCurrency:
			code, err := utils.NormalizeCurrency(value)
			if err != nil {
				return current, fmt.Errorf("%w: %s: %v", ErrInvalidSetting, c.Setting, err)
			}
			next.Currency = code
		}
	}
	if next.RPCNode == "" || next.WSSServer == "" || next.Currency == "" {
		return current, ErrSettingsIncomplete
	}

	if err := s.writer.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		return model.SaveSettings(ctx, db, next)
	}); err != nil {
		return current, err
	}
	logger.FromContext(ctx).Info("Settings saved", "rpcNode", next.RPCNode, "wssServer", next.WSSServer, "currency", next.Currency)
	return next, nil
}

func validateURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) {
			return nil
		}
	}
	return fmt.Errorf("%q must use one of %s", raw, strings.Join(schemes, ", "))
}
