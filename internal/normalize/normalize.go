package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// The normalizer turns loosely formatted Spanish date/time/email text into
// canonical ISO forms. Every function is total: bad input yields the zero
// value, never an error.

var (
	dayFirstRE = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{4})`)
	isoDateRE  = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	clockRE    = regexp.MustCompile(`(\d{1,2})[:.](\d{2})`)
	spokenRE   = regexp.MustCompile(`a las? (\d{1,2})(?::(\d{2}))?`)
	emailRE    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

var weekdays = map[string]time.Weekday{
	"lunes":     time.Monday,
	"martes":    time.Tuesday,
	"miercoles": time.Wednesday,
	"miércoles": time.Wednesday,
	"jueves":    time.Thursday,
	"viernes":   time.Friday,
	"sabado":    time.Saturday,
	"sábado":    time.Saturday,
	"domingo":   time.Sunday,
}

// Date parses text that is itself a date: day-first numeric forms
// (DD/MM/YYYY, DD-MM-YYYY), ISO YYYY-MM-DD, or a relative Spanish expression
// resolved against now. Returns "" when nothing parses.
func Date(text string, now time.Time) string {
	s := strings.TrimSpace(strings.ToLower(text))
	if s == "" {
		return ""
	}
	if m := dayFirstRE.FindStringSubmatch(s); m != nil {
		return buildISODate(m[3], m[2], m[1])
	}
	if m := isoDateRE.FindStringSubmatch(s); m != nil {
		return buildISODate(m[1], m[2], m[3])
	}
	return relativeDate(s, now)
}

// ExtractDate searches free text for a date substring or relative expression.
// Explicit numeric dates win over relative words.
func ExtractDate(text string, now time.Time) string {
	return Date(text, now)
}

// Time parses a clock time, tolerating a period as separator and zero-padding
// the hour. Minutes must be two digits: "9.5" is not a valid time.
func Time(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, ".", ":")
	m := clockRE.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return buildClock(m[1], m[2])
}

// ExtractTime searches free text for an explicit HH:MM or a spoken Spanish
// form like "a las 10" or "a las 5 de la tarde".
func ExtractTime(text string) string {
	s := strings.ToLower(text)
	if m := clockRE.FindStringSubmatch(s); m != nil {
		if t := buildClock(m[1], m[2]); t != "" {
			return t
		}
	}
	if m := spokenRE.FindStringSubmatch(s); m != nil {
		hour, err := strconv.Atoi(m[1])
		if err != nil || hour > 23 {
			return ""
		}
		minute := 0
		if m[2] != "" {
			minute, err = strconv.Atoi(m[2])
			if err != nil || minute > 59 {
				return ""
			}
		}
		if hour < 12 && mentionsAfternoon(s) {
			hour += 12
		}
		return fmt.Sprintf("%02d:%02d", hour, minute)
	}
	return ""
}

// ValidEmail performs a shape check (local@domain.tld). It gates what the
// slot-filler accepts; it does not guarantee deliverability.
func ValidEmail(text string) bool {
	return emailRE.MatchString(strings.TrimSpace(text))
}

func mentionsAfternoon(s string) bool {
	return strings.Contains(s, "de la tarde") || strings.Contains(s, "de la noche")
}

func buildISODate(year, month, day string) string {
	y, err := strconv.Atoi(year)
	if err != nil {
		return ""
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return ""
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return ""
	}
	// Round-trip through time.Date to reject impossible dates like 31/02.
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || t.Month() != time.Month(m) || t.Day() != d {
		return ""
	}
	return t.Format("2006-01-02")
}

func buildClock(hour, minute string) string {
	h, err := strconv.Atoi(hour)
	if err != nil || h > 23 {
		return ""
	}
	m, err := strconv.Atoi(minute)
	if err != nil || m > 59 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// relativeDate resolves Spanish relative expressions, preferring future
// dates: a bare weekday always means its next occurrence.
func relativeDate(s string, now time.Time) string {
	switch {
	case strings.Contains(s, "pasado mañana") || strings.Contains(s, "pasado manana"):
		return now.AddDate(0, 0, 2).Format("2006-01-02")
	case strings.Contains(s, "mañana") || strings.Contains(s, "manana"):
		return now.AddDate(0, 0, 1).Format("2006-01-02")
	case strings.Contains(s, "hoy"):
		return now.Format("2006-01-02")
	}
	for name, wd := range weekdays {
		if !containsWord(s, name) {
			continue
		}
		ahead := (int(wd) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return now.AddDate(0, 0, ahead).Format("2006-01-02")
	}
	return ""
}

func containsWord(s, word string) bool {
	idx := strings.Index(s, word)
	if idx < 0 {
		return false
	}
	if idx > 0 {
		prev := s[idx-1]
		if prev != ' ' && prev != ',' {
			return false
		}
	}
	return true
}
