package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/username/nanopos/src/logger"
	"github.com/username/nanopos/src/model"
	"github.com/username/nanopos/src/models"
	"github.com/username/nanopos/src/services"
	"github.com/username/nanopos/src/session"
)

// Result is what a dispatched command hands back to the caller. Only the
// fields relevant to the command are set.
type Result struct {
	Command  string                 `json:"command"`
	Snapshot *models.Snapshot       `json:"snapshot,omitempty"`
	Stale    bool                   `json:"stale,omitempty"`
	Warning  string                 `json:"warning,omitempty"`
	Watch    *models.WatchStatus    `json:"watch,omitempty"`
	Import   *services.ImportResult `json:"import,omitempty"`
	Settings *model.Settings        `json:"settings,omitempty"`
	Changed  *bool                  `json:"changed,omitempty"`
}

type Dispatcher struct {
	session  *session.Session
	sync     services.SyncService
	watch    services.WatchService
	items    services.ItemService
	settings services.SettingsService
}

func NewDispatcher(sess *session.Session, sync services.SyncService, watch services.WatchService, items services.ItemService, settings services.SettingsService) *Dispatcher {
	return &Dispatcher{session: sess, sync: sync, watch: watch, items: items, settings: settings}
}

// Dispatch runs cmd.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (*Result, error) {
	log := logger.FromContext(ctx).With("command", cmd.Name())
	ctx = logger.WithContext(ctx, log)
	res := &Result{Command: cmd.Name()}

	switch c := cmd.(type) {
	case UpdateInfo:
		snap, err := d.sync.UpdateInfo(ctx, c.Sync)
		if err != nil {
			// a failed fetch leaves the last snapshot valid
			if prev, ok := d.sync.Snapshot(); ok && errors.Is(err, services.ErrSyncFailed) {
				res.Snapshot = prev
				res.Stale = true
				res.Warning = err.Error()
				return res, nil
			}
			return nil, err
		}
		res.Snapshot = snap

	case ImportCSV:
		imported, err := d.items.ImportCSV(ctx, c.CSVPath)
		if err != nil {
			return nil, err
		}
		res.Import = imported
		d.refresh(ctx, res)

	case InsertItem:
		inserted, err := d.items.Insert(ctx, c.Item)
		if err != nil {
			return nil, err
		}
		res.Changed = &inserted
		d.refresh(ctx, res)

	case DeleteItem:
		deleted, err := d.items.Delete(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		res.Changed = &deleted
		d.refresh(ctx, res)

	case Watch:
		var (
			status models.WatchStatus
			err    error
		)
		if c.Amount != nil {
			status, err = d.watch.Watch(ctx, services.WatchRequest{ItemIDs: c.ItemIDs, Expected: *c.Amount})
		} else {
			status, err = d.watch.Start(ctx, c.ItemIDs)
		}
		if err != nil {
			return nil, err
		}
		res.Watch = &status

	case StopWatch:
		status, err := d.watch.Stop()
		if err != nil {
			return nil, err
		}
		res.Watch = &status

	case SaveChanges:
		saved, err := d.settings.SaveChanges(ctx, c.Changes)
		if err != nil {
			return nil, err
		}
		res.Settings = &saved
		d.refresh(ctx, res)

	case SetAddress:
		changed, err := d.session.SetAddress(c.Address)
		if err != nil {
			return nil, invalid(cmd.Name(), "address", err.Error())
		}
		res.Changed = &changed
		if changed {
			d.sync.Invalidate()
			snap, err := d.sync.UpdateInfo(ctx, true)
			if err != nil {
				log.Warn("Sync after address change failed", "error", err)
				res.Warning = err.Error()
			} else {
				res.Snapshot = snap
			}
		}

	default:
		return nil, fmt.Errorf("unhandled command type %T", cmd)
	}
	return res, nil
}

// refresh rebuilds the snapshot from the local store after a mutation. A
// failure leaves the mutation in place and is reported as a warning.
func (d *Dispatcher) refresh(ctx context.Context, res *Result) {
	if d.session.Address() == "" {
		return
	}
	snap, err := d.sync.UpdateInfo(ctx, false)
	if err != nil {
		logger.FromContext(ctx).Warn("Snapshot refresh failed", "error", err)
		res.Warning = err.Error()
		return
	}
	res.Snapshot = snap
}
