/*
Copyright 2024 The CloudEnvelope Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package types

import (
	"fmt"
	"strings"
	"time"
)

// Timestamps on the wire are RFC 3339 with at most 100-nanosecond (one tick)
// resolution. The offset is "Z" or "+HH:MM"/"-HH:MM" and its magnitude must
// not exceed 14 hours. time.Parse with RFC3339Nano is deliberately not used:
// it neither bounds the offset nor truncates sub-tick fractional digits.

const (
	// maxOffsetMinutes is the largest UTC offset RFC 3339 permits.
	maxOffsetMinutes = 14 * 60

	// tickDigits is the number of significant fractional-second digits
	// retained when parsing. One tick is 100ns.
	tickDigits = 7
)

// ParseTimestamp parses an RFC 3339 timestamp string. Fractional seconds of
// any length are accepted, but only the first seven digits contribute to the
// result; the remainder must still be ASCII digits.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := parseTimestamp(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid RFC 3339 timestamp %q: %w", s, err)
	}
	return t, nil
}

// TryParseTimestamp is the non-erroring form of ParseTimestamp.
func TryParseTimestamp(s string) (time.Time, bool) {
	t, err := parseTimestamp(s)
	return t, err == nil
}

func parseTimestamp(s string) (time.Time, error) {
	// Fixed-width date/time prefix: "YYYY-MM-DDTHH:MM:SS".
	if len(s) < 20 {
		return time.Time{}, fmt.Errorf("too short")
	}
	if s[4] != '-' || s[7] != '-' || s[10] != 'T' || s[13] != ':' || s[16] != ':' {
		return time.Time{}, fmt.Errorf("malformed date/time separators")
	}
	year, ok1 := digits(s[0:4])
	month, ok2 := digits(s[5:7])
	day, ok3 := digits(s[8:10])
	hour, ok4 := digits(s[11:13])
	min, ok5 := digits(s[14:16])
	sec, ok6 := digits(s[17:19])
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6) {
		return time.Time{}, fmt.Errorf("non-digit in numeric field")
	}

	rest := s[19:]
	nanos := 0
	if rest[0] == '.' {
		rest = rest[1:]
		n := 0
		for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
			n++
		}
		if n == 0 {
			return time.Time{}, fmt.Errorf("empty fractional seconds")
		}
		frac := rest[:n]
		rest = rest[n:]
		// Only the first seven digits are significant; one tick is 100ns.
		if len(frac) > tickDigits {
			frac = frac[:tickDigits]
		}
		ticks, _ := digits(frac)
		for i := len(frac); i < tickDigits; i++ {
			ticks *= 10
		}
		nanos = ticks * 100
	}

	offset, err := parseOffset(rest)
	if err != nil {
		return time.Time{}, err
	}

	if month < 1 || month > 12 || hour > 23 || min > 59 || sec > 59 {
		return time.Time{}, fmt.Errorf("field out of range")
	}
	if day < 1 || day > daysIn(year, month) {
		return time.Time{}, fmt.Errorf("day out of range")
	}

	loc := time.UTC
	if offset != 0 {
		loc = time.FixedZone("", offset)
	}
	return time.Date(year, time.Month(month), day, hour, min, sec, nanos, loc), nil
}

// parseOffset parses the trailing "Z" or "±HH:MM" and returns the offset in
// seconds east of UTC.
func parseOffset(s string) (int, error) {
	if s == "Z" {
		return 0, nil
	}
	if len(s) != 6 || (s[0] != '+' && s[0] != '-') || s[3] != ':' {
		return 0, fmt.Errorf("missing or malformed UTC offset")
	}
	hh, ok1 := digits(s[1:3])
	mm, ok2 := digits(s[4:6])
	if !ok1 || !ok2 || mm > 59 {
		return 0, fmt.Errorf("malformed UTC offset")
	}
	total := hh*60 + mm
	if total > maxOffsetMinutes {
		return 0, fmt.Errorf("UTC offset exceeds 14 hours")
	}
	offset := total * 60
	if s[0] == '-' {
		offset = -offset
	}
	return offset, nil
}

// FormatTimestamp renders t as RFC 3339, choosing the smallest sufficient
// fractional-second precision among none, milliseconds, microseconds and
// ticks. A zero offset is rendered as "Z". Sub-tick nanoseconds are
// truncated, matching the parse-side rule.
func FormatTimestamp(t time.Time) string {
	var b strings.Builder
	b.WriteString(t.Format("2006-01-02T15:04:05"))

	ticks := t.Nanosecond() / 100
	switch {
	case ticks == 0:
		// whole second
	case ticks%10000 == 0:
		fmt.Fprintf(&b, ".%03d", ticks/10000)
	case ticks%10 == 0:
		fmt.Fprintf(&b, ".%06d", ticks/10)
	default:
		fmt.Fprintf(&b, ".%07d", ticks)
	}

	_, offset := t.Zone()
	if offset == 0 {
		b.WriteByte('Z')
	} else {
		sign := byte('+')
		if offset < 0 {
			sign = '-'
			offset = -offset
		}
		fmt.Fprintf(&b, "%c%02d:%02d", sign, offset/3600, (offset%3600)/60)
	}
	return b.String()
}

func digits(s string) (int, bool) {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

func daysIn(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	}
	if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
		return 29
	}
	return 28
}
