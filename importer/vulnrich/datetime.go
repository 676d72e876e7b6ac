// Package vulnrich reads CVE records in the CVE JSON 5 format from the
// CISA vulnrichment git repository.
package vulnrich

import (
	"encoding/json"
	"time"
)

// DateTime unmarshals the timestamp variants found across vulnrichment
// records. Zone designators and fractional seconds are both optional there.
type DateTime struct {
	time.Time
}

var _ json.Unmarshaler = (*DateTime)(nil)

func (t *DateTime) UnmarshalJSON(b []byte) error {
	var value string
	if err := json.Unmarshal(b, &value); err != nil {
		return err
	}

	formats := []string{
		"2006-01-02T15:04:05.999999Z07:00",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05.999999",
		"2006-01-02T15:04:05",
	}

	var parsed time.Time
	var err error
	for _, format := range formats {
		parsed, err = time.Parse(format, value)
		if err == nil {
			break
		}
	}
	if err != nil {
		return err
	}

	*t = DateTime{parsed}
	return nil
}
