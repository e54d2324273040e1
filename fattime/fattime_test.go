package fattime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLeap(t *testing.T) {
	require.True(t, IsLeap(1996))
	require.True(t, IsLeap(2000))
	require.False(t, IsLeap(1900))
	require.False(t, IsLeap(2100))
	require.False(t, IsLeap(2023))
}

func TestRoundTrip(t *testing.T) {
	for year := MinYear; year <= MaxYear; year++ {
		for month := time.January; month <= time.December; month++ {
			for _, day := range []int{1, 15, 28} {
				for _, hms := range [][3]int{{0, 0, 0}, {12, 30, 58}, {23, 59, 30}} {
					src := time.Date(year, month, day, hms[0], hms[1], hms[2], 0, time.UTC)
					date, tm := Encode(src)
					require.Equal(t, src, Decode(date, tm), "%v", src)
				}
			}
		}
	}
}

func TestDecodeMatchesCalendar(t *testing.T) {
	cases := []time.Time{
		time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2000, time.February, 29, 13, 14, 16, 0, time.UTC),
		time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2019, time.March, 1, 1, 2, 4, 0, time.UTC),
		time.Date(2024, time.December, 31, 23, 59, 58, 0, time.UTC),
		time.Date(2107, time.December, 31, 23, 59, 58, 0, time.UTC),
	}
	for _, c := range cases {
		date := uint16(c.Year()-1980)<<9 | uint16(c.Month())<<5 | uint16(c.Day())
		tm := uint16(c.Hour())<<11 | uint16(c.Minute())<<5 | uint16(c.Second()/2)
		require.Equal(t, c.Unix(), Decode(date, tm).Unix(), "%v", c)
	}
}

func TestEncodeClampsYear(t *testing.T) {
	date, tm := Encode(time.Date(1979, time.December, 31, 10, 20, 30, 0, time.UTC))
	require.Equal(t, uint16(0), date)
	require.Equal(t, uint16(10<<11|20<<5|15), tm)

	date, _ = Encode(time.Date(2108, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.Equal(t, uint16(0), date)

	require.True(t, Decode(0, tm).IsZero())
}

func TestEncodeTwoSecondResolution(t *testing.T) {
	src := time.Date(2021, time.June, 5, 7, 8, 9, 500, time.UTC)
	date, tm := Encode(src)
	require.Equal(t, Truncate(src), Decode(date, tm))
	require.Equal(t, 8, Decode(date, tm).Second())
}
