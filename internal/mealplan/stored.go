package mealplan

import (
	"encoding/json"
	"fmt"
	"time"
)

// PlanStatus is the state of a confirmed, stored plan.
type PlanStatus string

const PlanActive PlanStatus = "active"

const dateLayout = "2006-01-02"

// Date is a calendar day without time of day, serialized as YYYY-MM-DD.
type Date struct {
	t time.Time
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{t: t}, nil
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string { return d.t.Format(dateLayout) }

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

func (d Date) After(o Date) bool { return d.t.After(o.t) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// EndDateFor returns the last day of a plan of the given length starting on start.
func EndDateFor(start Date, days int) Date {
	if days < 1 {
		days = 1
	}
	return start.AddDays(days - 1)
}

// Overlaps reports whether the closed intervals [aStart,aEnd] and [bStart,bEnd] intersect.
func Overlaps(aStart, aEnd, bStart, bEnd Date) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}

// StoredMealPlan is a confirmed plan, optionally placed on the calendar.
type StoredMealPlan struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Plan      MealPlan   `json:"mealPlan"`
	CreatedAt time.Time  `json:"createdAt"`
	Status    PlanStatus `json:"status"`
	StartDate *Date      `json:"startDate,omitempty"`
	EndDate   *Date      `json:"endDate,omitempty"`
}

// Scheduled reports whether the plan occupies a date range.
func (p StoredMealPlan) Scheduled() bool {
	return p.StartDate != nil && p.EndDate != nil
}
