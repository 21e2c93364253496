package pricing

import (
	"testing"
	"time"

	"github.com/codr1/courtsync/internal/timeslot"
)

func fixtureCourt() Court {
	return Court{
		ID:   1,
		Name: "Court 1",
		Type: "solo",
		Tariffs: []Slot{
			{Kind: DayKindWeekday, Start: 16 * 60, End: 23 * 60, Price: 80},
			{Kind: DayKindWeekday, Start: 0, End: 7 * 60, Price: 80},
			{Kind: DayKindWeekday, Start: 7 * 60, End: 16 * 60, Price: 60},
			{Kind: DayKindWeekend, Start: 0, End: 23 * 60, Price: 100},
		},
		PeakPrice:    90,
		OffPeakPrice: 50,
		PeakStart:    17 * 60,
		PeakEnd:      23 * 60,
	}
}

// Wednesday
var weekday = time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

func TestPriceFor_TariffSlots(t *testing.T) {
	calc := NewCalculator(NewCalendarPolicy())
	court := fixtureCourt()

	tests := []struct {
		name  string
		start int
		want  int64
	}{
		{"morning slot", 10 * 60, 60},
		{"evening slot", 20 * 60, 80},
		{"night slot", 3 * 60, 80},
		{"slot boundary belongs to later slot", 16 * 60, 80},
		{"no slot falls back to flat off-peak", 23*60 + 30, 50},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := calc.PriceFor(court, weekday, tc.start); got != tc.want {
				t.Fatalf("PriceFor(%s) = %d, want %d", timeslot.FormatClock(tc.start), got, tc.want)
			}
		})
	}
}

func TestPriceFor_WeekendAndHoliday(t *testing.T) {
	calc := NewCalculator(NewCalendarPolicy("2025-03-12"))
	court := fixtureCourt()

	saturday := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	if got := calc.PriceFor(court, saturday, 10*60); got != 100 {
		t.Fatalf("saturday price = %d, want 100", got)
	}
	if got := calc.PriceFor(court, weekday, 10*60); got != 100 {
		t.Fatalf("holiday price = %d, want 100", got)
	}
}

func TestWithHolidays_KeepsBasePolicy(t *testing.T) {
	base := NewCalculator(NewCalendarPolicy("2025-03-12"))
	calc := base.WithHolidays("2025-03-13")
	court := fixtureCourt()

	thursday := time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)
	if got := calc.PriceFor(court, thursday, 10*60); got != 100 {
		t.Fatalf("added holiday price = %d, want 100", got)
	}
	if got := calc.PriceFor(court, weekday, 10*60); got != 100 {
		t.Fatalf("base holiday price = %d, want 100", got)
	}
	if got := base.PriceFor(court, thursday, 10*60); got == 100 {
		t.Fatalf("base calculator changed by WithHolidays")
	}
	if base.WithHolidays() != base {
		t.Fatalf("no holidays should return the same calculator")
	}
}

func TestPriceFor_FlatFallbackWithoutTariffs(t *testing.T) {
	calc := NewCalculator(nil)
	court := fixtureCourt()
	court.Tariffs = nil

	if got := calc.PriceFor(court, weekday, 18*60); got != 90 {
		t.Fatalf("peak fallback = %d, want 90", got)
	}
	if got := calc.PriceFor(court, weekday, 9*60); got != 50 {
		t.Fatalf("off-peak fallback = %d, want 50", got)
	}
}

func TestQuote_PerStartedHour(t *testing.T) {
	calc := NewCalculator(NewCalendarPolicy())
	court := fixtureCourt()

	oneHour := calc.Quote(court, weekday, timeslot.Interval{Start: 10 * 60, End: 11 * 60})
	if oneHour.Final != 60 || oneHour.Base != 60 || oneHour.Discount != 0 {
		t.Fatalf("one hour quote = %+v", oneHour)
	}

	// 15:00-17:00 spans the 60 and 80 tariffs.
	twoHours := calc.Quote(court, weekday, timeslot.Interval{Start: 15 * 60, End: 17 * 60})
	if twoHours.Final != 140 {
		t.Fatalf("two hour quote = %+v, want 140", twoHours)
	}

	halfHour := calc.Quote(court, weekday, timeslot.Interval{Start: 20 * 60, End: 20*60 + 30})
	if halfHour.Final != 80 {
		t.Fatalf("half hour quote = %+v, want 80", halfHour)
	}
}

func TestPriceFor_Deterministic(t *testing.T) {
	calc := NewCalculator(NewCalendarPolicy())
	court := fixtureCourt()
	first := calc.PriceFor(court, weekday, 12*60)
	for i := 0; i < 50; i++ {
		if got := calc.PriceFor(court, weekday, 12*60); got != first {
			t.Fatalf("price changed between calls: %d != %d", got, first)
		}
	}
}
