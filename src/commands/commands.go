// Package commands decodes the operator command envelope into typed
// commands and dispatches them to the services.
package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/nanopos/src/model"
	"github.com/username/nanopos/src/services"
)

// Command names on the wire.
const (
	NameUpdateInfo  = "update-info"
	NameImportCSV   = "import-csv"
	NameInsertItem  = "insert-item"
	NameDeleteItem  = "delete-item"
	NameWatch       = "watch"
	NameStopWatch   = "stop-watch"
	NameSaveChanges = "save-changes"
	NameSetAddress  = "set-address"
)

// Envelope is the wire form of every command.
type Envelope struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Command is one of the concrete command types below.
type Command interface {
	Name() string
	isCommand()
}

type UpdateInfo struct {
	Sync bool
}

type ImportCSV struct {
	CSVPath string
}

type InsertItem struct {
	Item model.Item
}

type DeleteItem struct {
	ID int64
}

// Watch starts a payment watch for ItemIDs. When Amount is set it is the
// expected Nano amount; otherwise the items are priced at the live rate.
type Watch struct {
	ItemIDs []int64
	Amount  *decimal.Decimal
}

type StopWatch struct{}

type SaveChanges struct {
	Changes []services.SettingChange
}

type SetAddress struct {
	Address string
}

func (UpdateInfo) Name() string  { return NameUpdateInfo }
func (ImportCSV) Name() string   { return NameImportCSV }
func (InsertItem) Name() string  { return NameInsertItem }
func (DeleteItem) Name() string  { return NameDeleteItem }
func (Watch) Name() string       { return NameWatch }
func (StopWatch) Name() string   { return NameStopWatch }
func (SaveChanges) Name() string { return NameSaveChanges }
func (SetAddress) Name() string  { return NameSetAddress }

func (UpdateInfo) isCommand()  {}
func (ImportCSV) isCommand()   {}
func (InsertItem) isCommand()  {}
func (DeleteItem) isCommand()  {}
func (Watch) isCommand()       {}
func (StopWatch) isCommand()   {}
func (SaveChanges) isCommand() {}
func (SetAddress) isCommand()  {}

// wire payloads; pointers tell a missing field from a zero value

type updateInfoPayload struct {
	Sync *bool `json:"sync"`
}

type importCSVPayload struct {
	CSVPath *string `json:"csvPath"`
}

type insertItemPayload struct {
	ID          *int64           `json:"id"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Barcode     *string          `json:"barcode"`
	Category    *string          `json:"category"`
	Price       *decimal.Decimal `json:"price"`
	Extra       *string          `json:"extra"`
}

type deleteItemPayload struct {
	ID *int64 `json:"id"`
}

type watchPayload struct {
	ItemsID *[]int64         `json:"itemsId"`
	Amount  *decimal.Decimal `json:"amount"`
}

type saveChangesPayload struct {
	Changes *[]struct {
		Setting *string `json:"setting"`
		Value   *string `json:"value"`
	} `json:"changes"`
}

type setAddressPayload struct {
	Address *string `json:"address"`
}

// Decode parses an envelope. Any shape error is a *ValidationError.
func Decode(data []byte) (Command, error) {
	var env Envelope
	if err := strictUnmarshal(data, &env); err != nil {
		return nil, fieldError("", err)
	}
	return env.Decode()
}

// Decode turns the envelope payload into the command named by Command.
func (env Envelope) Decode() (Command, error) {
	name := strings.TrimSpace(env.Command)
	switch name {
	case NameUpdateInfo:
		var p updateInfoPayload
		if err := decodePayload(name, env.Payload, &p); err != nil {
			return nil, err
		}
		if p.Sync == nil {
			return nil, invalid(name, "sync", "is required")
		}
		return UpdateInfo{Sync: *p.Sync}, nil

	case NameImportCSV:
		var p importCSVPayload
		if err := decodePayload(name, env.Payload, &p); err != nil {
			return nil, err
		}
		if p.CSVPath == nil || strings.TrimSpace(*p.CSVPath) == "" {
			return nil, invalid(name, "csvPath", "is required")
		}
		return ImportCSV{CSVPath: strings.TrimSpace(*p.CSVPath)}, nil

	case NameInsertItem:
		var p insertItemPayload
		if err := decodePayload(name, env.Payload, &p); err != nil {
			return nil, err
		}
		switch {
		case p.ID == nil:
			return nil, invalid(name, "id", "is required")
		case *p.ID <= 0:
			return nil, invalid(name, "id", "must be positive")
		case p.Name == nil || strings.TrimSpace(*p.Name) == "":
			return nil, invalid(name, "name", "is required")
		case p.Price == nil:
			return nil, invalid(name, "price", "is required")
		case p.Price.IsNegative():
			return nil, invalid(name, "price", "must not be negative")
		}
		return InsertItem{Item: model.Item{
			ID:          *p.ID,
			Name:        *p.Name,
			Description: p.Description,
			Barcode:     p.Barcode,
			Category:    p.Category,
			Price:       *p.Price,
			Extra:       p.Extra,
		}}, nil

	case NameDeleteItem:
		var p deleteItemPayload
		if err := decodePayload(name, env.Payload, &p); err != nil {
			return nil, err
		}
		if p.ID == nil {
			return nil, invalid(name, "id", "is required")
		}
		if *p.ID <= 0 {
			return nil, invalid(name, "id", "must be positive")
		}
		return DeleteItem{ID: *p.ID}, nil

	case NameWatch:
		var p watchPayload
		if err := decodePayload(name, env.Payload, &p); err != nil {
			return nil, err
		}
		if p.ItemsID == nil {
			return nil, invalid(name, "itemsId", "is required")
		}
		for i, id := range *p.ItemsID {
			if id <= 0 {
				return nil, invalid(name, fmt.Sprintf("itemsId[%d]", i), "must be positive")
			}
		}
		if p.Amount == nil && len(*p.ItemsID) == 0 {
			return nil, invalid(name, "itemsId", "must not be empty")
		}
		if p.Amount != nil && !p.Amount.IsPositive() {
			return nil, invalid(name, "amount", "must be positive")
		}
		return Watch{ItemIDs: *p.ItemsID, Amount: p.Amount}, nil

	case NameStopWatch:
		if len(bytes.TrimSpace(env.Payload)) > 0 && !isEmptyObject(env.Payload) {
			return nil, invalid(name, "payload", "must be empty")
		}
		return StopWatch{}, nil

	case NameSaveChanges:
		var p saveChangesPayload
		if err := decodePayload(name, env.Payload, &p); err != nil {
			return nil, err
		}
		if p.Changes == nil {
			return nil, invalid(name, "changes", "is required")
		}
		changes := make([]services.SettingChange, 0, len(*p.Changes))
		for i, c := range *p.Changes {
			if c.Setting == nil {
				return nil, invalid(name, fmt.Sprintf("changes[%d].setting", i), "is required")
			}
			if c.Value == nil {
				return nil, invalid(name, fmt.Sprintf("changes[%d].value", i), "is required")
			}
			changes = append(changes, services.SettingChange{Setting: *c.Setting, Value: *c.Value})
		}
		return SaveChanges{Changes: changes}, nil

	case NameSetAddress:
		var p setAddressPayload
		if err := decodePayload(name, env.Payload, &p); err != nil {
			return nil, err
		}
		if p.Address == nil || strings.TrimSpace(*p.Address) == "" {
			return nil, invalid(name, "address", "is required")
		}
		return SetAddress{Address: strings.TrimSpace(*p.Address)}, nil

	case "":
		return nil, invalid("", "command", "is required")
	default:
		return nil, invalid(name, "command", "unknown command")
	}
}

func decodePayload(command string, raw json.RawMessage, v interface{}) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return invalid(command, "payload", "is required")
	}
	if err := strictUnmarshal(raw, v); err != nil {
		return fieldError(command, err)
	}
	return nil
}

func strictUnmarshal(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

func fieldError(command string, err error) *ValidationError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "payload"
		}
		return invalid(command, field, fmt.Sprintf("must be %s, got %s", typeErr.Type, typeErr.Value))
	}
	const unknownPrefix = "json: unknown field "
	if msg := err.Error(); strings.HasPrefix(msg, unknownPrefix) {
		return invalid(command, strings.Trim(strings.TrimPrefix(msg, unknownPrefix), `"`), "unknown field")
	}
	return invalid(command, "", err.Error())
}

func isEmptyObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	var m map[string]json.RawMessage
	return json.Unmarshal(trimmed, &m) == nil && len(m) == 0
}
