package calendar

import (
	"testing"
	"time"

	"vol-rv-lab/internal/domain"
)

func TestBusinessDaysBetween(t *testing.T) {
	mon := domain.NewDate(2024, time.January, 8)
	fri := domain.NewDate(2024, time.January, 12)
	nextMon := domain.NewDate(2024, time.January, 15)

	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{"same day", mon, mon, 0},
		{"mon to fri excludes end", mon, fri, 4},
		{"mon to next mon skips weekend", mon, nextMon, 5},
		{"weekend start", domain.NewDate(2024, time.January, 13), nextMon, 0},
		{"reversed is negative", fri, mon, -4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BusinessDaysBetween(tc.start, tc.end); got != tc.want {
				t.Errorf("BusinessDaysBetween(%s, %s) = %d, want %d",
					domain.FormatDate(tc.start), domain.FormatDate(tc.end), got, tc.want)
			}
		})
	}
}

func TestBusinessRange(t *testing.T) {
	// Thu Jan 11 .. Tue Jan 16 spans one weekend.
	got := BusinessRange(domain.NewDate(2024, time.January, 11), domain.NewDate(2024, time.January, 16))
	if len(got) != 4 {
		t.Fatalf("expected 4 business days, got %d", len(got))
	}
	if got[1].Weekday() != time.Friday || got[2].Weekday() != time.Monday {
		t.Errorf("expected weekend skipped, got %v", got)
	}
}
