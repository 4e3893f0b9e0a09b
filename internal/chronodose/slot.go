package chronodose

import (
	"time"

	"github.com/rotisserie/eris"
)

// Slot is a candidate appointment start as returned by the availability
// calendar, in fixed-offset ISO-8601 form.
type Slot string

// naiveOffset is applied to timestamps that carry no offset.
var naiveOffset = time.FixedZone("CEST", 2*60*60)

var slotLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
}

// ParseTimestamp parses a backend timestamp. Offsets may be written with or
// without a colon; timestamps without an offset are read at +02:00.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range slotLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", s, naiveOffset)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "parse timestamp %q", s)
	}
	return t, nil
}

// Time parses the slot's start.
func (s Slot) Time() (time.Time, error) {
	return ParseTimestamp(string(s))
}
