package parsers

import "testing"

func TestGetParser(t *testing.T) {
	for _, format := range []string{"csv", "CSV", ""} {
		if p, err := GetParser(format); err != nil || p == nil {
			t.Errorf("GetParser(%q) = %v, %v", format, p, err)
		}
	}
	if _, err := GetParser("xlsx"); err == nil {
		t.Error("GetParser(xlsx) expected an error")
	}
}
