package parsers

import (
	"fmt"
	"strings"

	"github.com/username/nanopos/src/parsers/csvitems"
)

func GetParser(format string) (Parser, error) {
	switch strings.ToLower(format) {
	case "csv", "":
		return csvitems.NewParser(), nil
	default:
		return nil, fmt.Errorf("no parser available for format: %s", format)
	}
}
