package services

import "errors"

var (
	// ErrPriceUnavailable is returned when the price provider cannot quote
	// the requested currency or date.
	ErrPriceUnavailable = errors.New("price unavailable")
	// ErrSyncFailed wraps failures of the Fetching and Merging stages. The
	// previous snapshot stays valid.
	ErrSyncFailed = errors.New("ledger sync failed")
	// ErrSnapshotFailed wraps failures of the Pricing stage.
	ErrSnapshotFailed = errors.New("snapshot build failed")
	// ErrNoAddress is returned when no account address is configured.
	ErrNoAddress = errors.New("no account address configured")
	// ErrSettingsIncomplete is returned when a runtime setting is missing.
	ErrSettingsIncomplete = errors.New("settings incomplete")
	// ErrNoActiveWatch is returned by Stop when nothing is being watched.
	ErrNoActiveWatch = errors.New("no active payment watch")
	// ErrInvalidItem is returned for catalogue entries that fail validation.
	ErrInvalidItem = errors.New("invalid item")
	// ErrInvalidSetting is returned for settings that fail validation.
	ErrInvalidSetting = errors.New("invalid setting")
	// ErrParsingFailed is returned when an import file cannot be read.
	ErrParsingFailed = errors.New("parsing failed")
	// ErrInvalidPIN is returned when operator authentication fails.
	ErrInvalidPIN = errors.New("invalid operator pin")
	// ErrNothingToReset is returned by Reset when no table is selected.
	ErrNothingToReset = errors.New("nothing selected to reset")
)

// RestartMessage is the only text shown to the operator when a snapshot
// cannot be built.
const RestartMessage = "Program crashed, try restarting it"
