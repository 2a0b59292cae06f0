package patterns

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	amountDigitsRe = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d{1,3}(?:\.\d{3})+(?:,\d{1,2})?|\d+(?:[.,]\d{1,2})?`)
	currencyHints  = []struct {
		marker   string
		currency string
	}{
		{"b/.", "PAB"},
		{"usd", "USD"},
		{"us$", "USD"},
		{"$", "USD"},
		{"eur", "EUR"},
		{"€", "EUR"},
		{"gbp", "GBP"},
		{"£", "GBP"},
		{"balboa", "PAB"},
		{"dolar", "USD"},
		{"dólar", "USD"},
	}
)

// ParseAmount parses a monetary string in either US ("35,000.00") or
// European ("35.000,00" / "35000,00") notation.
func ParseAmount(raw string) (float64, error) {
	s := amountDigitsRe.FindString(strings.TrimSpace(raw))
	if s == "" {
		return 0, fmt.Errorf("no numeric amount in %q", raw)
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		// Both separators present: the rightmost one is the decimal mark.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		// Comma only: decimal mark when followed by 1-2 digits, thousands
		// separator otherwise.
		if len(s)-lastComma-1 <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0:
		if len(s)-lastDot-1 == 3 && strings.Count(s, ".") >= 1 && len(s) > 4 {
			// "35.000" style thousands grouping.
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", raw, err)
	}
	return value, nil
}

// DetectCurrency scans text for a currency marker and returns its ISO code,
// or "" when none is found.
func DetectCurrency(text string) string {
	lower := strings.ToLower(text)
	for _, hint := range currencyHints {
		if strings.Contains(lower, hint.marker) {
			return hint.currency
		}
	}
	return ""
}

// LargestAmount returns the largest parseable monetary value in text along
// with its raw match. Contract principals are conventionally the largest
// figure on the page.
func (l *Library) LargestAmount(text string) (float64, string, bool) {
	var (
		best    float64
		bestRaw string
		found   bool
	)
	for _, raw := range l.amountPattern.FindAllString(text, -1) {
		if !strings.ContainsAny(raw, "$€£") && !strings.ContainsAny(raw, ".,") {
			continue
		}
		value, err := ParseAmount(raw)
		if err != nil {
			continue
		}
		if !found || value > best {
			best = value
			bestRaw = strings.TrimSpace(raw)
			found = true
		}
	}
	return best, bestRaw, found
}
