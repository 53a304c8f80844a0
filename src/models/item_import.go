package models

import "github.com/username/nanopos/src/model"

// SkippedRow is an import row that was not turned into an item.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ParsedItems is the result of parsing a catalogue file.
type ParsedItems struct {
	Items   []model.Item `json:"items"`
	Skipped []SkippedRow `json:"skipped"`
}
