package nano

import "errors"

var (
	// ErrProtocol is returned when the node answers with something that is
	// not the documented response shape.
	ErrProtocol = errors.New("malformed node response")
	// ErrTimeout is returned when the node does not answer within the
	// client timeout.
	ErrTimeout = errors.New("node request timed out")
	// ErrConnection covers transport failures and non-200 statuses.
	ErrConnection = errors.New("node connection failed")
	// ErrAccountNotFound is returned for accounts the ledger has never seen,
	// i.e. addresses that have not received their first block yet.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidAddress is returned by ValidateAddress.
	ErrInvalidAddress = errors.New("invalid nano address")
)
