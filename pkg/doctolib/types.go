package doctolib

import (
	"bytes"
	"encoding/json"
)

// Booking is the booking-page metadata document served at /booking/{slug}.json.
type Booking struct {
	Data BookingData `json:"data"`
}

// BookingData holds the motives and agendas of one center.
// Nil slices mean the key was absent from the document.
type BookingData struct {
	Profile      *Profile      `json:"profile"`
	VisitMotives []VisitMotive `json:"visit_motives"`
	Agendas      []Agenda      `json:"agendas"`
}

// Profile describes the center itself.
type Profile struct {
	ID            int64  `json:"id"`
	NameWithTitle string `json:"name_with_title"`
}

// Name returns the display name of the center, or "" when the profile is absent.
func (d BookingData) Name() string {
	if d.Profile == nil {
		return ""
	}
	return d.Profile.NameWithTitle
}

// VisitMotive is an appointment type. Required fields are pointers so that
// absence can be told apart from a zero value.
type VisitMotive struct {
	ID   *int64  `json:"id"`
	Name *string `json:"name"`
}

// Agenda is a calendar resource mapping practices to the motives it serves.
type Agenda struct {
	ID                         *int64             `json:"id"`
	BookingDisabled            bool               `json:"booking_disabled"`
	VisitMotiveIDsByPracticeID map[string][]int64 `json:"visit_motive_ids_by_practice_id"`
}

// AvailabilityQuery is the query string of /availabilities.json. Identifier
// fields carry dash-joined decimal ids.
type AvailabilityQuery struct {
	StartDate        string
	VisitMotiveIDs   string
	AgendaIDs        string
	PracticeIDs      string
	InsuranceSector  string
	DestroyTemporary bool
	Limit            int
}

// AvailabilityResponse is the availability calendar, one bucket per day.
type AvailabilityResponse struct {
	Availabilities []DayAvailability `json:"availabilities"`
	Total          int               `json:"total"`
	NextSlot       string            `json:"next_slot"`
}

// DayAvailability lists the slots of a single day.
type DayAvailability struct {
	Date  string      `json:"date"`
	Slots []SlotEntry `json:"slots"`
}

// SlotEntry is one calendar slot. The backend sends either a bare timestamp
// string or an object with a start_date field; anything else decodes to an
// empty StartDate.
type SlotEntry struct {
	StartDate string
}

// UnmarshalJSON accepts both slot shapes and never fails.
func (s *SlotEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err == nil {
			s.StartDate = str
		}
	case '{':
		var obj struct {
			StartDate any `json:"start_date"`
		}
		if err := json.Unmarshal(data, &obj); err == nil {
			if str, ok := obj.StartDate.(string); ok {
				s.StartDate = str
			}
		}
	}
	return nil
}

// AppointmentRequest is the body of POST /appointments.json.
type AppointmentRequest struct {
	AgendaIDs   string          `json:"agenda_ids"`
	PracticeIDs []string        `json:"practice_ids"`
	Appointment AppointmentSlot `json:"appointment"`
}

// AppointmentSlot names the slot being claimed.
type AppointmentSlot struct {
	StartDate      string `json:"start_date"`
	VisitMotiveIDs string `json:"visit_motive_ids"`
}

// AppointmentResponse is either a created reservation or an error document.
type AppointmentResponse struct {
	Fields map[string]json.RawMessage
}

// Rejected reports whether the backend refused the claim. The presence of an
// "error" key is the only discriminator, whatever its value.
func (r *AppointmentResponse) Rejected() bool {
	if r == nil {
		return false
	}
	_, ok := r.Fields["error"]
	return ok
}

// ErrorMessage returns the error value as text, for logging.
func (r *AppointmentResponse) ErrorMessage() string {
	if r == nil {
		return ""
	}
	raw, ok := r.Fields["error"]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// ID returns the created reservation id, if the backend sent one.
func (r *AppointmentResponse) ID() string {
	if r == nil {
		return ""
	}
	raw, ok := r.Fields["id"]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.Trim(raw, `"`))
}
