package rollover

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var weekdayNames = map[string]string{
	"0": "воскресенье", "7": "воскресенье", "sun": "воскресенье",
	"1": "понедельник", "mon": "понедельник",
	"2": "вторник", "tue": "вторник",
	"3": "среду", "wed": "среду",
	"4": "четверг", "thu": "четверг",
	"5": "пятницу", "fri": "пятницу",
	"6": "субботу", "sat": "субботу",
}

// Describe переводит простое cron выражение "M H * * D" в понятный текст.
// Для остальных выражений возвращается само выражение.
func Describe(expr string, loc *time.Location) string {
	zone := "UTC"
	if loc != nil {
		zone = loc.String()
	}

	fields := strings.Fields(expr)
	if len(fields) != 5 || fields[2] != "*" || fields[3] != "*" {
		return fmt.Sprintf("по расписанию cron %q (%s)", expr, zone)
	}

	minute, errM := strconv.Atoi(fields[0])
	hour, errH := strconv.Atoi(fields[1])
	if errM != nil || errH != nil {
		return fmt.Sprintf("по расписанию cron %q (%s)", expr, zone)
	}
	clock := fmt.Sprintf("%02d:%02d", hour, minute)

	if fields[4] == "*" {
		return fmt.Sprintf("каждый день в %s (%s)", clock, zone)
	}

	day, ok := weekdayNames[strings.ToLower(fields[4])]
	if !ok {
		return fmt.Sprintf("по расписанию cron %q (%s)", expr, zone)
	}

	prefix := "каждый"
	switch day {
	case "среду", "пятницу", "субботу":
		prefix = "каждую"
	case "воскресенье":
		prefix = "каждое"
	}

	return fmt.Sprintf("%s %s в %s (%s)", prefix, day, clock, zone)
}
