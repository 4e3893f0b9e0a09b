package feed

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDepartment(t *testing.T) *Department {
	t.Helper()
	data, err := os.ReadFile("testdata/75.json")
	require.NoError(t, err)
	var d Department
	require.NoError(t, json.Unmarshal(data, &d))
	return &d
}

func TestDepartment_Decode(t *testing.T) {
	d := loadDepartment(t)
	require.Len(t, d.Available, 2)
	assert.Empty(t, d.Unavailable)

	c := d.Available[0]
	assert.Equal(t, "Centre de vaccination Paris 15", c.Name)
	assert.Equal(t, "vaccination-center", c.Type)
	require.NotNil(t, c.Location)
	assert.Equal(t, "75015", c.Location.CP)
	assert.Nil(t, c.Metadata.BusinessHours["dimanche"])
	require.NotNil(t, c.RequestCounts)
	assert.Equal(t, 3, *c.RequestCounts.Slots)

	cest := time.FixedZone("", 2*3600)
	assert.True(t, c.NextAppointment.Equal(time.Date(2021, 5, 12, 14, 30, 0, 0, cest)))
	assert.True(t, c.LastScanWithAvailabilities.Equal(time.Date(2021, 5, 12, 7, 58, 0, 0, cest)))
	assert.True(t, c.AppointmentSchedules[0].From.Equal(time.Date(2021, 5, 12, 0, 0, 0, 0, cest)))

	assert.Nil(t, d.Available[1].Location)
	assert.True(t, d.Available[1].NextAppointment.IsZero())
}

func TestTimestamp_Invalid(t *testing.T) {
	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"next tuesday"`), &ts))
	assert.Error(t, json.Unmarshal([]byte(`12`), &ts))
	require.NoError(t, json.Unmarshal([]byte(`""`), &ts))
	assert.True(t, ts.IsZero())
}

func TestTimestamp_Marshal(t *testing.T) {
	out, err := json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))

	ts := Timestamp{time.Date(2021, 5, 12, 9, 0, 0, 0, time.FixedZone("", 7200))}
	out, err = json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2021-05-12T09:00:00+02:00"`, string(out))
}

func TestCenter_Chronodose(t *testing.T) {
	d := loadDepartment(t)
	assert.True(t, d.Available[0].HasChronodose())
	assert.Equal(t, 6, d.Available[0].ChronodoseCount())

	assert.False(t, d.Available[1].HasChronodose())
	assert.Zero(t, d.Available[1].ChronodoseCount())

	var bare Center
	assert.False(t, bare.HasChronodose())
}

func TestCenter_HasVaccine(t *testing.T) {
	c := Center{VaccineType: []string{"Pfizer-BioNTech", "Modérna"}}
	assert.True(t, c.HasVaccine("pfizer"))
	assert.True(t, c.HasVaccine("PFIZER"))
	assert.True(t, c.HasVaccine("moderna"))
	assert.False(t, c.HasVaccine("janssen"))
	assert.False(t, (&Center{}).HasVaccine("pfizer"))
}

func TestCenter_IsLiveVerifiable(t *testing.T) {
	d := loadDepartment(t)
	assert.True(t, d.Available[0].IsLiveVerifiable("doctolib.fr"))
	assert.True(t, d.Available[0].IsLiveVerifiable("www.doctolib.fr"))
	assert.False(t, d.Available[1].IsLiveVerifiable("doctolib.fr"))
	assert.False(t, (&Center{URL: "https://notdoctolib.fr/x"}).IsLiveVerifiable("doctolib.fr"))
	assert.False(t, (&Center{URL: "::"}).IsLiveVerifiable("doctolib.fr"))
}

func TestLocation_Point(t *testing.T) {
	var l *Location
	assert.Nil(t, l.Point())

	p := (&Location{Latitude: 48.8, Longitude: 2.3}).Point()
	require.NotNil(t, p)
	assert.Equal(t, 48.8, p.Lat())
	assert.Equal(t, 2.3, p.Lon())
}
