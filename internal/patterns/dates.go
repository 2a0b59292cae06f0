package patterns

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Month-name table covering Spanish and English, abbreviated and full.
// Lookup keys are lowercase and accent-free.
var monthNames = map[string]time.Month{
	"ene": time.January, "enero": time.January,
	"feb": time.February, "febrero": time.February,
	"mar": time.March, "marzo": time.March,
	"abr": time.April, "abril": time.April,
	"may": time.May, "mayo": time.May,
	"jun": time.June, "junio": time.June,
	"jul": time.July, "julio": time.July,
	"ago": time.August, "agosto": time.August,
	"sep": time.September, "sept": time.September, "septiembre": time.September, "setiembre": time.September,
	"oct": time.October, "octubre": time.October,
	"nov": time.November, "noviembre": time.November,
	"dic": time.December, "diciembre": time.December,

	"jan": time.January, "january": time.January,
	"february": time.February,
	"march":    time.March,
	"apr":      time.April, "april": time.April,
	"june": time.June,
	"july": time.July,
	"aug":  time.August, "august": time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"dec":       time.December, "december": time.December,
}

var (
	isoDateRe    = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	monthNameRe  = regexp.MustCompile(`^(\d{1,2})[-\s/.]+([a-zñ]{3,10})\.?[-\s/.]+(\d{4})$`)
	spanishDeRe  = regexp.MustCompile(`^(\d{1,2})\s+de\s+([a-zñ]{3,10})\s+(?:de|del)\s+(\d{4})$`)
	numericRe    = regexp.MustCompile(`^(\d{1,2})[-/.](\d{1,2})[-/.](\d{2,4})$`)
	accentFolder = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u")
)

// NormalizeDate converts a free-form date string to canonical YYYY-MM-DD.
// Supported shapes: ISO, DD-MMM-YYYY with Spanish or English month names,
// "25 de mayo de 2025", and day-first numeric DD/MM/YY(YY). Out-of-range day
// or month values are coerced to the nearest valid value and reported via
// coerced; a date that cannot be parsed at all returns an error. Years must
// fall in 1900-2100.
func NormalizeDate(raw string) (iso string, coerced bool, err error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", false, fmt.Errorf("empty date")
	}
	s = accentFolder.Replace(s)

	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return buildDate(year, month, day)
	}

	if m := monthNameRe.FindStringSubmatch(s); m != nil {
		if month, ok := monthNames[m[2]]; ok {
			day, _ := strconv.Atoi(m[1])
			year, _ := strconv.Atoi(m[3])
			return buildDate(year, int(month), day)
		}
		return "", false, fmt.Errorf("unknown month name %q", m[2])
	}

	if m := spanishDeRe.FindStringSubmatch(s); m != nil {
		if month, ok := monthNames[m[2]]; ok {
			day, _ := strconv.Atoi(m[1])
			year, _ := strconv.Atoi(m[3])
			return buildDate(year, int(month), day)
		}
		return "", false, fmt.Errorf("unknown month name %q", m[2])
	}

	if m := numericRe.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			// Two-digit years below 50 read as 20xx, the rest as 19xx.
			if year < 50 {
				year += 2000
			} else {
				year += 1900
			}
		}
		return buildDate(year, month, day)
	}

	return "", false, fmt.Errorf("unrecognized date format %q", raw)
}

func buildDate(year, month, day int) (string, bool, error) {
	if year < 1900 || year > 2100 {
		return "", false, fmt.Errorf("year %d out of range", year)
	}

	coerced := false
	if month < 1 {
		month = 1
		coerced = true
	} else if month > 12 {
		month = 12
		coerced = true
	}
	if day < 1 {
		day = 1
		coerced = true
	} else if max := daysIn(year, time.Month(month)); day > max {
		day = max
		coerced = true
	}

	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), coerced, nil
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseISODate parses a canonical YYYY-MM-DD string.
func ParseISODate(iso string) (time.Time, error) {
	return time.Parse("2006-01-02", iso)
}
