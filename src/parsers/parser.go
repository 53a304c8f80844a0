package parsers

import (
	"io"

	"github.com/username/nanopos/src/models"
)

// Parser reads a catalogue file into items.
type Parser interface {
	Parse(file io.Reader) (*models.ParsedItems, error)
}
