package chronodose

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2021, 5, 12, 14, 30, 0, 0, time.FixedZone("", 2*3600))

	tests := []struct {
		name string
		in   string
	}{
		{"rfc3339", "2021-05-12T14:30:00+02:00"},
		{"fractional", "2021-05-12T14:30:00.000+02:00"},
		{"no colon offset", "2021-05-12T14:30:00.000+0200"},
		{"utc", "2021-05-12T12:30:00Z"},
		{"naive", "2021-05-12T14:30:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	for _, in := range []string{"", "tomorrow", "2021-05-12"} {
		_, err := ParseTimestamp(in)
		assert.Error(t, err, in)
	}
}

func TestSlot_Time(t *testing.T) {
	got, err := Slot("2021-05-12T09:00:00.000+02:00").Time()
	require.NoError(t, err)
	assert.Equal(t, 7, got.UTC().Hour())
}
