package util

import (
	"errors"
	"time"
)

const messageTimestampFormat = "02-01-2006 03:04 PM"
const logTimestampFormat = "02-01-2006 15:04:05"

func NowMillis() int64 {
	return time.Now().UnixNano() / 1000000
}

func FromMillis(m int64) time.Time {
	return time.Unix(0, m*int64(time.Millisecond))
}

// ParseDiscordTimestamp parses the ISO 8601 timestamps the API returns and
// converts them to local wall-clock time, which is what window filters and
// transcripts operate on.
func ParseDiscordTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("timestamp is empty")
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		t, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, err
		}
	}
	return t.Local(), nil
}

// FormatMessageTimestamp renders a reader-facing timestamp (12-hour clock).
func FormatMessageTimestamp(t time.Time) string {
	return t.Local().Format(messageTimestampFormat)
}

// FormatLogTimestamp renders an operator-facing timestamp (24-hour clock).
func FormatLogTimestamp(t time.Time) string {
	return t.Local().Format(logTimestampFormat)
}
