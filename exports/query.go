package exports

import (
	"fmt"
	"net/url"
	"strings"
)

// sortColumns maps the public sort keys onto exported_proposals columns.
var sortColumns = map[string]string{
	"created": "created_at",
	"format":  "format",
	"status":  "status",
	"client":  "client_name",
}

// The readString() helper returns a string value from the query string, or the provided
// default value if no matching key could be found.
func (e *Export) readString(qs url.Values, key string, defaultValue string) string {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}
	return s
}

// The readCSV() helper reads a string value from the query string and then splits it
// into a slice on the comma character. If no matching key could be found, it returns
// the provided default value.
func (e *Export) readCSV(qs url.Values, key string, defaultValue []string) []string {
	csv := qs.Get(key)
	if csv == "" {
		return defaultValue
	}
	return strings.Split(csv, ",")
}

// convertSortParams turns keys like "-created" into "created_at desc".
// Unknown keys are dropped.
func (e *Export) convertSortParams(in []string) []string {
	result := []string{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		direction := "asc"
		if strings.HasPrefix(s, "-") {
			direction = "desc"
			s = strings.TrimPrefix(s, "-")
		}
		column, ok := sortColumns[s]
		if !ok {
			continue
		}
		result = append(result, fmt.Sprintf("%s %s", column, direction))
	}
	return result
}
