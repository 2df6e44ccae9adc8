package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{"09:00", NewClock(9, 0), false},
		{"9:05", NewClock(9, 5), false},
		{"00:00", 0, false},
		{"24:00", EndOfDay, false},
		{"24:01", 0, true},
		{"12:60", 0, true},
		{"1200", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClock(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClockAddClamps(t *testing.T) {
	c := NewClock(23, 0)
	if got := c.Add(30); got.String() != "23:30" {
		t.Errorf("Add(30) = %s", got)
	}
	if got := c.Add(120); got != EndOfDay {
		t.Errorf("Add(120) = %s, want 24:00", got)
	}
	if got := Clock(10).Add(-20); got != 0 {
		t.Errorf("Add(-20) = %s, want 00:00", got)
	}
}

func TestClockJSON(t *testing.T) {
	type wrap struct {
		At Clock `json:"at"`
	}
	b, err := json.Marshal(wrap{At: NewClock(7, 30)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"at":"07:30"}` {
		t.Errorf("marshal = %s", b)
	}
	var w wrap
	if err := json.Unmarshal([]byte(`{"at":"18:45"}`), &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if w.At != NewClock(18, 45) {
		t.Errorf("unmarshal = %s", w.At)
	}
}

func TestParseWeekdays(t *testing.T) {
	tests := []struct {
		in   string
		want WeekdaySet
	}{
		{"mon,tue", NewWeekdaySet(time.Monday, time.Tuesday)},
		{"1,2,3,4,5", Weekdays},
		{"weekdays", Weekdays},
		{"Sat, sunday", NewWeekdaySet(time.Saturday, time.Sunday)},
		{"all", AllDays},
		{"mon-fri", Weekdays},
		{"Monday-Friday", Weekdays},
		{"1-3", NewWeekdaySet(time.Monday, time.Tuesday, time.Wednesday)},
		{"fri-mon", NewWeekdaySet(time.Friday, time.Saturday, time.Sunday, time.Monday)},
		{"wed-wed", NewWeekdaySet(time.Wednesday)},
		{"mon-tue,sat", NewWeekdaySet(time.Monday, time.Tuesday, time.Saturday)},
		{"", 0},
	}
	for _, tt := range tests {
		got, err := ParseWeekdays(tt.in)
		if err != nil {
			t.Errorf("ParseWeekdays(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseWeekdays(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"7", "-1", "funday", "mon-", "mon-funday", "1-9", "mon-wed-fri"} {
		if _, err := ParseWeekdays(bad); err == nil {
			t.Errorf("ParseWeekdays(%q) expected error", bad)
		}
	}
}

func TestWeekdaySetJSON(t *testing.T) {
	s := NewWeekdaySet(time.Monday, time.Friday)
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "[1,5]" {
		t.Errorf("marshal = %s", b)
	}
	var got WeekdaySet
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != s {
		t.Errorf("round trip = %s, want %s", got, s)
	}
	if err := json.Unmarshal([]byte("[9]"), &got); err == nil {
		t.Error("expected error for weekday 9")
	}
}

func TestWeekday(t *testing.T) {
	// 2025-01-06 is a Monday.
	d := civil.Date{Year: 2025, Month: time.January, Day: 6}
	if got := Weekday(d); got != time.Monday {
		t.Errorf("Weekday(%s) = %s", d, got)
	}
	if got := Weekday(d.AddDays(5)); got != time.Saturday {
		t.Errorf("Weekday(%s) = %s", d.AddDays(5), got)
	}
}

func TestTodayUsesLocation(t *testing.T) {
	now := time.Date(2025, 1, 6, 23, 30, 0, 0, time.UTC)
	tokyo := time.FixedZone("JST", 9*60*60)
	if got := Today(now, time.UTC); got.String() != "2025-01-06" {
		t.Errorf("Today UTC = %s", got)
	}
	if got := Today(now, tokyo); got.String() != "2025-01-07" {
		t.Errorf("Today JST = %s", got)
	}
}
