// Package fattime converts between packed 16-bit FAT date/time pairs and
// absolute time.
//
// The date word holds year-1980 (7 bits), month (4 bits) and day (5 bits).
// The time word holds hour (5 bits), minute (6 bits) and 2-second units
// (5 bits). All conversions are in UTC.
package fattime

import (
	"time"
)

const (
	MinYear = 1980
	MaxYear = MinYear + 0x7F

	secondsPerDay = 86400

	// 2018-01-01T00:00:00Z, skips the bulk of the year walk for recent dates
	fastYear  = 2018
	fastEpoch = 1514764800
)

var monthDays = [2][12]int64{
	{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31},
	{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31},
}

// IsLeap applies the Gregorian rule.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func leapIndex(year int) int {
	if IsLeap(year) {
		return 1
	}
	return 0
}

// Decode returns the absolute time of a packed date/time pair. A zero date
// is the "unknown" sentinel and decodes to the zero time.
func Decode(date, tm uint16) time.Time {
	if date == 0 {
		return time.Time{}
	}

	year := int((date>>9)&0x7F) + MinYear
	y := 1970
	var days int64
	if year > fastYear {
		days = fastEpoch / secondsPerDay
		y = fastYear
	}
	for ; y < year; y++ {
		days += 365 + int64(leapIndex(y))
	}

	month := int((date >> 5) & 0xF)
	for m := 0; m < month-1 && m < 12; m++ {
		days += monthDays[leapIndex(year)][m]
	}
	days += int64(date&0x1F) - 1

	secs := days * secondsPerDay
	secs += 3600 * int64((tm>>11)&0x1F)
	secs += 60 * int64((tm>>5)&0x3F)
	secs += 2 * int64(tm&0x1F)

	return time.Unix(secs, 0).UTC()
}

// Encode packs t into a date/time pair with 2-second resolution. Years
// outside MinYear..MaxYear leave the date at the zero sentinel rather than
// wrapping.
func Encode(t time.Time) (date, tm uint16) {
	if t.IsZero() {
		return 0, 0
	}
	u := t.UTC()
	if y := u.Year(); y >= MinYear && y <= MaxYear {
		date = uint16(y-MinYear)<<9 | uint16(u.Month())<<5 | uint16(u.Day())
	}
	tm = uint16(u.Hour())<<11 | uint16(u.Minute())<<5 | uint16(u.Second()/2)
	return date, tm
}

// Truncate drops t to the resolution a packed pair can hold.
func Truncate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), u.Second()&^1, 0, time.UTC)
}
