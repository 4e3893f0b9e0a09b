// Package feed reads the open-data availability snapshot: one document per
// department listing vaccination centers with their last known schedules.
package feed

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/sells-group/chronodose-cli/internal/chronodose"
	"github.com/sells-group/chronodose-cli/internal/geo"
)

// ChronodoseSchedule is the schedule name carrying short-notice slot counts.
const ChronodoseSchedule = "chronodose"

// Department is one department snapshot, served at <base>/<NN>.json.
type Department struct {
	Version     int      `json:"version"`
	LastUpdated string   `json:"last_updated"`
	LastScrap   []string `json:"last_scrap"`
	Available   []Center `json:"centres_disponibles"`
	Unavailable []Center `json:"centres_indisponibles"`
}

// Center is a vaccination center as scraped by the feed.
type Center struct {
	Department                 string                `json:"departement"`
	Name                       string                `json:"nom"`
	URL                        string                `json:"url"`
	Location                   *Location             `json:"location"`
	Metadata                   Metadata              `json:"metadata"`
	NextAppointment            Timestamp             `json:"prochain_rdv"`
	Platform                   string                `json:"plateforme"`
	Type                       string                `json:"type"`
	AppointmentCount           int                   `json:"appointment_count"`
	InternalID                 string                `json:"internal_id"`
	VaccineType                []string              `json:"vaccine_type"`
	AppointmentByPhoneOnly     bool                  `json:"appointment_by_phone_only"`
	Error                      *string               `json:"erreur"`
	LastScanWithAvailabilities Timestamp             `json:"last_scan_with_availabilities"`
	RequestCounts              *RequestCount         `json:"request_counts"`
	AppointmentSchedules       []AppointmentSchedule `json:"appointment_schedules"`
	GID                        string                `json:"gid"`
}

// Location is where a center is.
type Location struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	City      string  `json:"city"`
	CP        string  `json:"cp"`
}

// Point converts the location for distance scoring. A nil location yields nil.
func (l *Location) Point() *geo.Point {
	if l == nil {
		return nil
	}
	p := geo.NewPoint(l.Latitude, l.Longitude)
	return &p
}

// Metadata holds the contact details of a center.
type Metadata struct {
	Address       string             `json:"address"`
	BusinessHours map[string]*string `json:"business_hours"`
	PhoneNumber   string             `json:"phone_number"`
}

// RequestCount reports how many calls the scraper needed.
type RequestCount struct {
	Slots *int `json:"slots"`
}

// AppointmentSchedule counts slots in a named time range.
type AppointmentSchedule struct {
	Name  string    `json:"name"`
	From  Timestamp `json:"from"`
	To    Timestamp `json:"to"`
	Total int       `json:"total"`
}

// Timestamp accepts RFC 3339, offsets without a colon, naive timestamps
// (read at +02:00) and null.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := chronodose.ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalJSON implements json.Marshaler. The zero time encodes as null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}

func (c *Center) chronodoseSchedule() *AppointmentSchedule {
	for i := range c.AppointmentSchedules {
		if c.AppointmentSchedules[i].Name == ChronodoseSchedule {
			return &c.AppointmentSchedules[i]
		}
	}
	return nil
}

// HasChronodose reports whether the feed counted at least one chronodose.
func (c *Center) HasChronodose() bool {
	s := c.chronodoseSchedule()
	return s != nil && s.Total > 0
}

// ChronodoseCount is the feed's chronodose total, zero when absent.
func (c *Center) ChronodoseCount() int {
	if s := c.chronodoseSchedule(); s != nil {
		return s.Total
	}
	return 0
}

// HasVaccine reports whether any vaccine type contains pat, ignoring case
// and accents.
func (c *Center) HasVaccine(pat string) bool {
	want := fold(pat)
	for _, v := range c.VaccineType {
		if strings.Contains(fold(v), want) {
			return true
		}
	}
	return false
}

// IsLiveVerifiable reports whether the booking URL points at liveHost, whose
// chronodose counts can be confirmed live.
func (c *Center) IsLiveVerifiable(liveHost string) bool {
	u, err := url.Parse(c.URL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	liveHost = strings.ToLower(liveHost)
	return host == liveHost || strings.HasSuffix(host, "."+liveHost)
}
