// Package pricing computes reservation prices from court tariffs.
//
// Everything here is pure: callers load courts, tariffs and holidays and pass
// them in, so results depend only on the arguments.
package pricing

import (
	"sort"
	"time"

	"github.com/codr1/courtsync/internal/timeslot"
)

type DayKind string

const (
	DayKindWeekday DayKind = "weekday"
	DayKindWeekend DayKind = "weekend"
)

// Slot prices bookings whose start minute falls in [Start, End) on days of Kind.
type Slot struct {
	Kind  DayKind
	Start int
	End   int
	Price int64
}

// Court carries what the calculator needs from a court record.
type Court struct {
	ID      int64
	Name    string
	Type    string
	Tariffs []Slot

	// Flat fallback used when no slot matches.
	PeakPrice    int64
	OffPeakPrice int64
	PeakStart    int
	PeakEnd      int
}

// WeekendPolicy decides which tariff column a date uses.
type WeekendPolicy interface {
	IsWeekend(date time.Time) bool
}

// CalendarPolicy treats Saturday, Sunday and listed holidays as weekend days.
type CalendarPolicy struct {
	holidays map[string]struct{}
}

// NewCalendarPolicy builds a policy from YYYY-MM-DD holiday dates.
func NewCalendarPolicy(holidays ...string) CalendarPolicy {
	set := make(map[string]struct{}, len(holidays))
	for _, day := range holidays {
		set[day] = struct{}{}
	}
	return CalendarPolicy{holidays: set}
}

func (p CalendarPolicy) IsWeekend(date time.Time) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	_, ok := p.holidays[date.Format(time.DateOnly)]
	return ok
}

// Breakdown is the pricing snapshot stored on a reservation.
type Breakdown struct {
	Base     int64 `json:"base"`
	Discount int64 `json:"discount"`
	Final    int64 `json:"final"`
}

type Calculator struct {
	policy WeekendPolicy
}

func NewCalculator(policy WeekendPolicy) *Calculator {
	if policy == nil {
		policy = NewCalendarPolicy()
	}
	return &Calculator{policy: policy}
}

// WithHolidays returns a calculator that also prices holidays as weekend days.
func (c *Calculator) WithHolidays(holidays ...string) *Calculator {
	if len(holidays) == 0 {
		return c
	}
	return &Calculator{policy: extendedPolicy{base: c.policy, extra: NewCalendarPolicy(holidays...)}}
}

type extendedPolicy struct {
	base  WeekendPolicy
	extra CalendarPolicy
}

func (p extendedPolicy) IsWeekend(date time.Time) bool {
	return p.base.IsWeekend(date) || p.extra.IsWeekend(date)
}

// PriceFor returns the price of a booking on court that starts at start
// (minutes after midnight) on date.
func (c *Calculator) PriceFor(court Court, date time.Time, start int) int64 {
	kind := DayKindWeekday
	if c.policy.IsWeekend(date) {
		kind = DayKindWeekend
	}

	for _, slot := range sortedSlots(court.Tariffs) {
		if slot.Kind != kind {
			continue
		}
		if (timeslot.Interval{Start: slot.Start, End: slot.End}).Contains(start) {
			return slot.Price
		}
	}

	if court.PeakStart <= start && start < court.PeakEnd {
		return court.PeakPrice
	}
	return court.OffPeakPrice
}

// Quote prices [interval.Start, interval.End) per started hour, each hour at
// the rate in force when it begins. A one-hour booking costs PriceFor(start).
func (c *Calculator) Quote(court Court, date time.Time, interval timeslot.Interval) Breakdown {
	var base int64
	for minute := interval.Start; minute < interval.End; minute += 60 {
		base += c.PriceFor(court, date, minute)
	}
	return Breakdown{Base: base, Final: base}
}

func sortedSlots(slots []Slot) []Slot {
	sorted := make([]Slot, len(slots))
	copy(sorted, slots)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})
	return sorted
}
