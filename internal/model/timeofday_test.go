package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want TimeOfDay
	}{
		{"00:00", 0},
		{"09:00", 540},
		{"09:30", 570},
		{"17:00", 1020},
		{"23:59", 1439},
		{"24:00", MinutesPerDay},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseClockRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "9", "25:00", "24:01", "10:60", "10:-1", "ten:30", "10:30:00x"} {
		_, err := ParseClock(in)
		assert.Error(t, err, in)
	}
}

func TestTimeOfDayString(t *testing.T) {
	assert.Equal(t, "09:05", TimeOfDay(545).String())
	assert.Equal(t, "00:00", TimeOfDay(0).String())
	assert.Equal(t, "24:00", TimeOfDay(MinutesPerDay).String())
}

func TestTimeOfDayJSONRoundTrip(t *testing.T) {
	b, err := json.Marshal(TimeOfDay(570))
	require.NoError(t, err)
	assert.Equal(t, `"09:30"`, string(b))

	var out TimeOfDay
	require.NoError(t, json.Unmarshal([]byte(`"17:00"`), &out))
	assert.Equal(t, TimeOfDay(1020), out)

	assert.Error(t, json.Unmarshal([]byte(`930`), &out))
}
