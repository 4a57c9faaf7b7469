package util

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jinzhu/now"
)

// Datetime related utility functions.
// General convention for date functions - suffix Z if utc based, no suffix if localTime.
const (
	DATETIME_FORMAT_YYYYMMDD_HYPHEN string = "2006-01-02"
	DATETIME_FORMAT_YYYYMMDD        string = "20060102"
	DATETIME_FORMAT_DB              string = "2006-01-02 15:04:05"

	SecsInADay = int64(86400)
)

// TimeNowZ Return current time in UTC. Should be used everywhere to avoid local timezone.
func TimeNowZ() time.Time {
	return time.Now().UTC()
}

// TimeNowUnix Returns current epoch time.
func TimeNowUnix() int64 {
	return TimeNowZ().Unix()
}

// GetDateOnlyFromTimestampZ Returns date in YYYYMMDD format.
func GetDateOnlyFromTimestampZ(timestamp int64) string {
	return time.Unix(timestamp, 0).UTC().Format(DATETIME_FORMAT_YYYYMMDD)
}

func GetBeginningOfDayTimestampZ(timestamp int64) int64 {
	t := time.Unix(timestamp, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).Unix()
}

func GetEndOfDayTimestampZ(timestamp int64) int64 {
	t := time.Unix(timestamp, 0).UTC()
	return now.New(t).EndOfDay().Unix()
}

// DateAsFormattedInt Returns the date portion of the given time as YYYYMMDD.
func DateAsFormattedInt(dateTime time.Time) uint64 {
	dateInt, _ := strconv.ParseUint(fmt.Sprintf("%d%02d%02d", dateTime.Year(), int(dateTime.Month()), dateTime.Day()), 10, 64)
	return dateInt
}

// DateKeyFromTimestampZ Returns the UTC day of the given epoch as YYYYMMDD.
func DateKeyFromTimestampZ(timestamp int64) uint64 {
	return DateAsFormattedInt(time.Unix(timestamp, 0).UTC())
}

// TimeFromDateKey Parses a YYYYMMDD date back into the beginning of that UTC day.
func TimeFromDateKey(dateKey uint64) (time.Time, error) {
	t, err := time.Parse(DATETIME_FORMAT_YYYYMMDD, fmt.Sprintf("%d", dateKey))
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// DayRangeForDateKey Returns the [start, end] epoch range covering the given YYYYMMDD day in UTC.
func DayRangeForDateKey(dateKey uint64) (int64, int64, error) {
	dayStart, err := TimeFromDateKey(dateKey)
	if err != nil {
		return 0, 0, err
	}
	return dayStart.Unix(), now.New(dayStart).EndOfDay().Unix(), nil
}

// DateKeysInRange Lists YYYYMMDD keys for each day from 'from' to 'to' inclusive, oldest first.
func DateKeysInRange(from, to time.Time) []uint64 {
	dateKeys := make([]uint64, 0)
	day := now.New(from.UTC()).BeginningOfDay()
	end := now.New(to.UTC()).BeginningOfDay()
	for !day.After(end) {
		dateKeys = append(dateKeys, DateAsFormattedInt(day))
		day = day.AddDate(0, 0, 1)
	}
	return dateKeys
}
