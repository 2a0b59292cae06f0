package patterns

import "strings"

// EntitySet holds every structured string family detected in a document.
// Slices keep first-seen order with duplicates removed.
type EntitySet struct {
	DNIs        []string
	Passports   []string
	Cedulas     []string
	Emails      []string
	Phones      []string
	IBANs       []string
	Dates       []string
	Amounts     []string
	Percentages []string
}

// Empty reports whether no family matched at all.
func (e EntitySet) Empty() bool {
	return len(e.DNIs) == 0 && len(e.Passports) == 0 && len(e.Cedulas) == 0 &&
		len(e.Emails) == 0 && len(e.Phones) == 0 && len(e.IBANs) == 0 &&
		len(e.Dates) == 0 && len(e.Amounts) == 0 && len(e.Percentages) == 0
}

// ScanEntities runs every regex family over text and returns the deduplicated
// matches per family.
func (l *Library) ScanEntities(text string) EntitySet {
	if text == "" {
		return EntitySet{}
	}

	set := EntitySet{
		DNIs:        dedup(l.entityFamilies["dni"].FindAllString(text, -1)),
		Passports:   dedup(l.entityFamilies["passport"].FindAllString(text, -1)),
		Cedulas:     dedup(l.entityFamilies["cedula"].FindAllString(text, -1)),
		Emails:      dedup(l.entityFamilies["email"].FindAllString(text, -1)),
		Phones:      dedup(l.entityFamilies["phone"].FindAllString(text, -1)),
		IBANs:       dedup(l.entityFamilies["iban"].FindAllString(text, -1)),
		Percentages: dedup(l.entityFamilies["percentage"].FindAllString(text, -1)),
	}

	var dates []string
	for _, p := range l.datePatterns {
		dates = append(dates, p.FindAllString(text, -1)...)
	}
	set.Dates = dedup(dates)

	var amounts []string
	for _, m := range l.amountPattern.FindAllString(text, -1) {
		// The amount shape also matches bare small integers; require either a
		// currency marker or a decimal/thousands separator.
		if strings.ContainsAny(m, "$€£") || strings.ContainsAny(m, ".,") {
			amounts = append(amounts, strings.TrimSpace(m))
		}
	}
	set.Amounts = dedup(amounts)

	return set
}

// CedulaFromPhones re-examines phone-shaped strings for a cédula layout. The
// OCR backend frequently tags Panamanian cédulas as phone numbers.
func (l *Library) CedulaFromPhones(phones []string) (string, bool) {
	for _, p := range phones {
		candidate := strings.ReplaceAll(strings.TrimSpace(p), " ", "-")
		if l.cedulaLoose.MatchString(candidate) {
			return l.cedulaLoose.FindString(candidate), true
		}
	}
	return "", false
}

func dedup(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
