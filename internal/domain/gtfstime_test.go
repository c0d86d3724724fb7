package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/domain"
)

func TestParseGTFSTime(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		raw       string
		want      int
		wantError bool
	}{
		{name: "morning", raw: "06:30:15", want: 6*3600 + 30*60 + 15},
		{name: "past midnight", raw: "25:01:00", want: 25*3600 + 60},
		{name: "single digit hour", raw: "7:05:00", want: 7*3600 + 5*60},
		{name: "surrounding spaces", raw: " 08:00:00 ", want: 8 * 3600},
		{name: "missing seconds", raw: "08:00", wantError: true},
		{name: "letters", raw: "aa:bb:cc", wantError: true},
		{name: "empty", raw: "", wantError: true},
		{name: "latest accepted", raw: "48:00:00", want: domain.MaxGTFSTime},
		{name: "beyond two days", raw: "48:00:01", wantError: true},
		{name: "overflowing hours", raw: "700000:00:00", wantError: true},
		{name: "minutes out of range", raw: "08:60:00", wantError: true},
		{name: "seconds out of range", raw: "08:00:75", wantError: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := domain.ParseGTFSTime(tc.raw)
			if tc.wantError {
				if !errors.Is(err, domain.ErrInvalidInput) {
					t.Fatalf("expected invalid input error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	t.Parallel()

	if got, err := domain.ParseClock("24:10:00"); err != nil || got != 24*3600+600 {
		t.Fatalf("expected 24:10:00 to parse, got %d %v", got, err)
	}
	for _, raw := range []string{"12:60:00", "12:00:60", "123:00:00", "12-00-00", "12:0:00"} {
		if _, err := domain.ParseClock(raw); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected %q to be rejected, got %v", raw, err)
		}
	}
}

func TestFormatGTFSTime(t *testing.T) {
	t.Parallel()

	if got := domain.FormatGTFSTime(25*3600 + 61); got != "25:01:01" {
		t.Fatalf("unexpected format: %s", got)
	}
	if got := domain.FormatGTFSTime(0); got != "00:00:00" {
		t.Fatalf("unexpected format: %s", got)
	}
	if got := domain.FormatGTFSTime(-5); got != "00:00:00" {
		t.Fatalf("negative seconds should clamp, got %s", got)
	}
}

func TestParseGTFSDate(t *testing.T) {
	t.Parallel()

	got, err := domain.ParseGTFSDate("20240229")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	if !got.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", got)
	}
	for _, raw := range []string{"2024022", "20241301", "2024-02-2", ""} {
		if _, err := domain.ParseGTFSDate(raw); err == nil {
			t.Fatalf("expected %q to fail", raw)
		}
	}
}
