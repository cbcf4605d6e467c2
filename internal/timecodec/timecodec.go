// Package timecodec converts between "HH:MM:SS" clock strings and durations
// since midnight of the service day.
//
// Transit schedules run past midnight on the same service day, so the hour
// field is never wrapped: "25:00:00" is one hour after midnight of the next
// calendar day and stays "25:00:00" through every conversion.
package timecodec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTime is returned for strings that are not HH:MM:SS.
var ErrInvalidTime = errors.New("invalid time of day")

// ToDuration parses "HH:MM:SS" into seconds since midnight of day 0.
// The hour may exceed 23; minutes and seconds must be 0-59.
func ToDuration(hms string) (int, error) {
	h, m, s, err := split(hms)
	if err != nil {
		return 0, err
	}
	return h*3600 + m*60 + s, nil
}

// ToHMS formats seconds as zero-padded "HH:MM:SS" without wrapping the hour.
// Negative values are prefixed with "-".
func ToHMS(seconds int) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, seconds/3600, seconds/60%60, seconds%60)
}

// SumOfTwoTimes adds two "HH:MM:SS" strings field by field with carry.
// Used to stack a journey departure and a profile offset.
func SumOfTwoTimes(a, b string) (string, error) {
	ah, am, as, err := split(a)
	if err != nil {
		return "", err
	}
	bh, bm, bs, err := split(b)
	if err != nil {
		return "", err
	}

	s := as + bs
	m := am + bm + s/60
	h := ah + bh + m/60
	return fmt.Sprintf("%02d:%02d:%02d", h, m%60, s%60), nil
}

// Parse converts "HH:MM:SS" into a time.Duration since midnight.
func Parse(hms string) (time.Duration, error) {
	secs, err := ToDuration(hms)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs) * time.Second, nil
}

// Format is the inverse of Parse. Sub-second precision is truncated.
func Format(d time.Duration) string {
	return ToHMS(int(d / time.Second))
}

func split(hms string) (h, m, s int, err error) {
	parts := strings.Split(strings.TrimSpace(hms), ":")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, hms)
	}

	vals := [3]int{}
	for i, p := range parts {
		if p == "" {
			return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, hms)
		}
		n, convErr := strconv.Atoi(p)
		if convErr != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, hms)
		}
		vals[i] = n
	}

	if vals[1] > 59 || vals[2] > 59 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, hms)
	}
	return vals[0], vals[1], vals[2], nil
}
