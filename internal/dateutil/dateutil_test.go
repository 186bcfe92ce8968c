package dateutil

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	t.Run("valid date is local midnight", func(t *testing.T) {
		got, err := ParseDate("2024-01-19")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2024, 1, 19, 0, 0, 0, 0, time.Local)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("empty defaults to today", func(t *testing.T) {
		got, err := ParseDate("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.Equal(TruncateToDay(time.Now())) {
			t.Errorf("got %v, want today", got)
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := ParseDate("01-19-2024")
		if !errors.Is(err, ErrInvalidDateFormat) {
			t.Errorf("got error %v, want %v", err, ErrInvalidDateFormat)
		}
	})
}

func TestNewDateRange(t *testing.T) {
	dr, err := NewDateRange("2024-01-10", "2024-01-12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	days := dr.Days()
	if len(days) != 3 {
		t.Fatalf("got %d days, want 3", len(days))
	}
	if days[2].Day() != 12 {
		t.Errorf("last day = %v", days[2])
	}

	if _, err := NewDateRange("2024-01-12", "2024-01-10"); !errors.Is(err, ErrEndDateBeforeStart) {
		t.Errorf("got error %v, want %v", err, ErrEndDateBeforeStart)
	}

	single, err := NewDateRange("2024-01-10", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !single.Start.Equal(single.End) {
		t.Errorf("expected single-day range, got %v..%v", single.Start, single.End)
	}
}

func TestParseWeekday(t *testing.T) {
	wd, err := ParseWeekday(" Monday ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wd != time.Monday {
		t.Errorf("got %v, want Monday", wd)
	}
	if _, err := ParseWeekday("funday"); !errors.Is(err, ErrInvalidWeekday) {
		t.Errorf("got error %v, want %v", err, ErrInvalidWeekday)
	}
}

func TestParseRelativeDate(t *testing.T) {
	// Wednesday.
	ref := time.Date(2024, 1, 10, 15, 30, 0, 0, time.Local)
	today := TruncateToDay(ref)

	tests := []struct {
		name      string
		input     string
		allowPast bool
		want      time.Time
		wantErr   error
	}{
		{"empty", "", false, today, nil},
		{"today", "TODAY", false, today, nil},
		{"tomorrow", "tomorrow", false, today.AddDate(0, 0, 1), nil},
		{"next-week", "next-week", false, today.AddDate(0, 0, 7), nil},
		{"friday", "friday", false, time.Date(2024, 1, 12, 0, 0, 0, 0, time.Local), nil},
		{"same weekday rolls a week", "wednesday", false, today.AddDate(0, 0, 7), nil},
		{"next-sunday", "next-sunday", false, time.Date(2024, 1, 14, 0, 0, 0, 0, time.Local), nil},
		{"absolute", "2024-02-01", false, time.Date(2024, 2, 1, 0, 0, 0, 0, time.Local), nil},
		{"past rejected", "2024-01-01", false, time.Time{}, ErrDateInPast},
		{"past allowed", "2024-01-01", true, time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local), nil},
		{"yesterday rejected", "yesterday", false, time.Time{}, ErrDateInPast},
		{"yesterday allowed", "yesterday", true, today.AddDate(0, 0, -1), nil},
		{"garbage", "someday", false, time.Time{}, ErrInvalidDateFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRelativeDate(tt.input, ref, tt.allowPast)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got error %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2024, 1, 10, 0, 1, 0, 0, time.Local)
	b := time.Date(2024, 1, 10, 23, 59, 0, 0, time.Local)
	if !SameDay(a, b) {
		t.Error("expected same day")
	}
	if SameDay(a, b.AddDate(0, 0, 1)) {
		t.Error("expected different days")
	}
}
