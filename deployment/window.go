package deployment

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Window restricts deploys to weekdays and hours [StartHour, EndHour) in Location
type Window struct {
	Location  *time.Location
	Weekdays  []time.Weekday
	StartHour int
	EndHour   int
}

// NewWindow builds a window from configuration values such as "Europe/Berlin" and "mon".
func NewWindow(timezone string, weekdays []string, startHour, endHour int) (Window, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Window{}, fmt.Errorf("invalid deployment window timezone %q: %w", timezone, err)
	}
	if startHour < 0 || endHour > 24 || startHour >= endHour {
		return Window{}, fmt.Errorf("invalid deployment window hours %d-%d", startHour, endHour)
	}
	w := Window{Location: loc, StartHour: startHour, EndHour: endHour}
	for _, name := range weekdays {
		key := strings.ToLower(strings.TrimSpace(name))
		if len(key) > 3 {
			key = key[:3]
		}
		day, ok := weekdayNames[key]
		if !ok {
			return Window{}, fmt.Errorf("invalid deployment window weekday %q", name)
		}
		if !slices.Contains(w.Weekdays, day) {
			w.Weekdays = append(w.Weekdays, day)
		}
	}
	if len(w.Weekdays) == 0 {
		return Window{}, fmt.Errorf("deployment window needs at least one weekday")
	}
	return w, nil
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	if !slices.Contains(w.Weekdays, local.Weekday()) {
		return false
	}
	return local.Hour() >= w.StartHour && local.Hour() < w.EndHour
}

// NextOpen returns the first full hour at or after t inside the window, or zero if none within two weeks
func (w Window) NextOpen(t time.Time) time.Time {
	if w.Contains(t) {
		return t
	}
	candidate := t.Truncate(time.Hour)
	for range 14 * 24 {
		candidate = candidate.Add(time.Hour)
		if w.Contains(candidate) {
			return candidate
		}
	}
	return time.Time{}
}
