package weekwindow

import (
	"fmt"
	"strings"
	"time"
)

// Window - полуоткрытый интервал [Start, End) одной учетной недели
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains проверяет, попадает ли момент в окно
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// UTC возвращает окно с границами в UTC (так окна хранятся в базе)
func (w Window) UTC() Window {
	return Window{Start: w.Start.UTC(), End: w.End.UTC()}
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

// WindowFor возвращает неделю, содержащую reference. Начало - полночь в loc
// ближайшего weekStart не позже reference, конец - ровно через 7 календарных дней.
func WindowFor(reference time.Time, weekStart time.Weekday, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}

	local := reference.In(loc)
	offset := (int(local.Weekday()) - int(weekStart) + 7) % 7

	start := time.Date(local.Year(), local.Month(), local.Day()-offset, 0, 0, 0, 0, loc)
	end := time.Date(start.Year(), start.Month(), start.Day()+7, 0, 0, 0, 0, loc)

	return Window{Start: start, End: end}
}

// Calculator хранит единственную настроенную конвенцию недели
type Calculator struct {
	weekStart time.Weekday
	loc       *time.Location
}

func NewCalculator(weekStart time.Weekday, loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{weekStart: weekStart, loc: loc}
}

// WindowFor возвращает окно недели для reference
func (c *Calculator) WindowFor(reference time.Time) Window {
	return WindowFor(reference, c.weekStart, c.loc)
}

// Previous возвращает окно недели, предшествующей окну reference
func (c *Calculator) Previous(reference time.Time) Window {
	current := c.WindowFor(reference)
	return c.WindowFor(current.Start.AddDate(0, 0, -1))
}

func (c *Calculator) WeekStart() time.Weekday {
	return c.weekStart
}

func (c *Calculator) Location() *time.Location {
	return c.loc
}

// ParseDate разбирает "2006-01-02" как полночь в часовом поясе калькулятора
func (c *Calculator) ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(value), c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", value, err)
	}
	return t, nil
}

// ParseWeekday разбирает название дня недели ("monday", "Mon", "1")
func ParseWeekday(value string) (time.Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if v == name || v == name[:3] || v == fmt.Sprint(int(d)) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown week day %q", value)
}
