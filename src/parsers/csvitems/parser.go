// Package csvitems parses catalogue files with a header row of
// id,name,description,barcode,category,price,extra in any order.
package csvitems

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/nanopos/src/logger"
	"github.com/username/nanopos/src/model"
	"github.com/username/nanopos/src/models"
	"github.com/username/nanopos/src/security/validation"
)

var requiredColumns = []string{"id", "name", "price"}

type ItemsParser struct{}

func NewParser() *ItemsParser {
	return &ItemsParser{}
}

func (p *ItemsParser) Parse(file io.Reader) (*models.ParsedItems, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty CSV file")
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		columns[name] = i
	}
	for _, col := range requiredColumns {
		if _, ok := columns[col]; !ok {
			return nil, fmt.Errorf("CSV header is missing required column %q", col)
		}
	}

	result := &models.ParsedItems{Items: []model.Item{}, Skipped: []models.SkippedRow{}}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}

		field := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(record) {
				return ""
			}
			return validation.StripUnprintable(strings.TrimSpace(record[i]))
		}

		item, reason := buildItem(field)
		if reason != "" {
			logger.L.Debug("Skipping catalogue row", "line", line, "reason", reason)
			result.Skipped = append(result.Skipped, models.SkippedRow{Line: line, Reason: reason})
			continue
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

// buildItem validates one row. id must be a positive integer, name must be
// present and price must be a positive decimal.
func buildItem(field func(string) string) (model.Item, string) {
	id, err := strconv.ParseInt(field("id"), 10, 64)
	if err != nil || id <= 0 {
		return model.Item{}, fmt.Sprintf("invalid id %q", field("id"))
	}
	name := field("name")
	if name == "" {
		return model.Item{}, "missing name"
	}
	price, err := decimal.NewFromString(field("price"))
	if err != nil || !price.IsPositive() {
		return model.Item{}, fmt.Sprintf("invalid price %q", field("price"))
	}

	return model.Item{
		ID:          id,
		Name:        name,
		Description: optional(field("description")),
		Barcode:     optional(field("barcode")),
		Category:    optional(field("category")),
		Price:       price,
		Extra:       optional(field("extra")),
	}, ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
