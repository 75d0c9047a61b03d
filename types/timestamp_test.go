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
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{{
		name: "whole second UTC",
		in:   "2021-01-18T14:52:01Z",
		want: time.Date(2021, 1, 18, 14, 52, 1, 0, time.UTC),
	}, {
		name: "seven fractional digits",
		in:   "2021-01-18T14:52:01.1234567Z",
		want: time.Date(2021, 1, 18, 14, 52, 1, 123456700, time.UTC),
	}, {
		name: "sub-tick digits truncated",
		in:   "2021-01-18T14:52:01.123456789Z",
		want: time.Date(2021, 1, 18, 14, 52, 1, 123456700, time.UTC),
	}, {
		name: "positive offset",
		in:   "2000-02-29T01:23:45.678+01:30",
		want: time.Date(2000, 2, 29, 1, 23, 45, 678000000, time.FixedZone("", 90*60)),
	}, {
		name: "negative offset",
		in:   "2018-04-05T17:31:00-08:00",
		want: time.Date(2018, 4, 5, 17, 31, 0, 0, time.FixedZone("", -8*60*60)),
	}, {
		name: "maximum offset",
		in:   "2021-06-01T00:00:00+14:00",
		want: time.Date(2021, 6, 1, 0, 0, 0, 0, time.FixedZone("", 14*60*60)),
	}}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTimestamp(tc.in)
			if err != nil {
				t.Fatalf("ParseTimestamp(%q) returned error: %v", tc.in, err)
			}
			if !got.Equal(tc.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tc.in, got, tc.want)
			}
			_, gotOff := got.Zone()
			_, wantOff := tc.want.Zone()
			if gotOff != wantOff {
				t.Errorf("ParseTimestamp(%q) offset = %d, want %d", tc.in, gotOff, wantOff)
			}
		})
	}
}

func TestParseTimestampInvalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"too short", "2021-01-18T14:52"},
		{"missing offset", "2021-01-18T14:52:01"},
		{"missing offset after fraction", "2021-01-18T14:52:01.123"},
		{"space separator", "2021-01-18 14:52:01Z"},
		{"month out of range", "2021-13-18T14:52:01Z"},
		{"day out of range", "2021-02-29T14:52:01Z"},
		{"hour out of range", "2021-01-18T24:52:01Z"},
		{"offset exceeds 14 hours", "2021-01-18T14:52:01+14:01"},
		{"offset minutes out of range", "2021-01-18T14:52:01+01:60"},
		{"short offset", "2021-01-18T14:52:01+0100"},
		{"empty fraction", "2021-01-18T14:52:01.Z"},
		{"non-digit fraction", "2021-01-18T14:52:01.12aZ"},
		{"non-digit year", "202a-01-18T14:52:01Z"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseTimestamp(tc.in); err == nil {
				t.Errorf("ParseTimestamp(%q) succeeded, want error", tc.in)
			}
			if _, ok := TryParseTimestamp(tc.in); ok {
				t.Errorf("TryParseTimestamp(%q) = true, want false", tc.in)
			}
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{{
		name: "whole second",
		in:   time.Date(2021, 1, 18, 14, 52, 1, 0, time.UTC),
		want: "2021-01-18T14:52:01Z",
	}, {
		name: "milliseconds",
		in:   time.Date(2000, 2, 29, 1, 23, 45, 678000000, time.FixedZone("", 90*60)),
		want: "2000-02-29T01:23:45.678+01:30",
	}, {
		name: "microseconds",
		in:   time.Date(2021, 1, 18, 14, 52, 1, 123456000, time.UTC),
		want: "2021-01-18T14:52:01.123456Z",
	}, {
		name: "ticks",
		in:   time.Date(2021, 1, 18, 14, 52, 1, 123456700, time.UTC),
		want: "2021-01-18T14:52:01.1234567Z",
	}, {
		name: "sub-tick nanoseconds truncated",
		in:   time.Date(2021, 1, 18, 14, 52, 1, 123456789, time.UTC),
		want: "2021-01-18T14:52:01.1234567Z",
	}, {
		name: "negative offset",
		in:   time.Date(2018, 4, 5, 17, 31, 0, 0, time.FixedZone("", -8*60*60)),
		want: "2018-04-05T17:31:00-08:00",
	}}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatTimestamp(tc.in); got != tc.want {
				t.Errorf("FormatTimestamp = %q, want %q", got, tc.want)
			}
		})
	}
}

// Formatting a parsed timestamp must reproduce the input whenever the input
// already uses minimal precision.
func TestTimestampRoundTrip(t *testing.T) {
	inputs := []string{
		"2021-01-18T14:52:01Z",
		"2021-01-18T14:52:01.123Z",
		"2021-01-18T14:52:01.123456Z",
		"2021-01-18T14:52:01.1234567Z",
		"2000-02-29T01:23:45.678+01:30",
		"2018-04-05T17:31:00-08:00",
		"2021-06-01T00:00:00+14:00",
	}
	for _, in := range inputs {
		parsed, err := ParseTimestamp(in)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q) returned error: %v", in, err)
		}
		if got := FormatTimestamp(parsed); got != in {
			t.Errorf("round trip of %q produced %q", in, got)
		}
	}
}
