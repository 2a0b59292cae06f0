// Package classify scores raw OCR text against the pattern library and
// resolves the concrete document type.
package classify

import (
	"log/slog"
	"strings"

	"github.com/istmo-digital/docintel/constants"
	"github.com/istmo-digital/docintel/internal/patterns"
)

// Scoring weights. A keyword is the unit signal; a hit inside the head of the
// document counts triple, a regex hit double, a strong identity regex triple.
// Structured-hint bonuses are expressed in the same units.
const (
	headWindow = 500

	keywordWeight    = 3
	headBonus        = 6
	regexWeight      = 6
	strongWeight     = 9
	cedulaBonus      = 15
	phoneCedulaBonus = 15
	generalIDBonus   = 9
	datePairBonus    = 3
	amountBonus      = 3

	// Below this raw score the winner is not trusted and the type defaults
	// to contract, the most common document in the intake stream.
	scoreFloor = 3

	maxConfidence = 0.95
)

// Result is the outcome of a classification pass.
type Result struct {
	DocumentType constants.DocumentType
	TypeID       constants.TypeID
	Confidence   float64
	Scores       map[constants.TypeID]int

	// RequiresReverification is set when the result came from filename
	// matching only and must be confirmed once OCR text exists.
	RequiresReverification bool
}

// Classifier scores text against the pattern library.
type Classifier struct {
	library *patterns.Library
	logger  *slog.Logger
}

func NewClassifier(library *patterns.Library, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{library: library, logger: logger}
}

// Classify scores fullText against every candidate type and returns the
// winner with a confidence in [0, 0.95]. Empty text yields unknown at 0.
func (c *Classifier) Classify(fullText string) Result {
	if strings.TrimSpace(fullText) == "" {
		return Result{
			DocumentType: constants.DocTypeUnknown,
			TypeID:       constants.TypeUnknown,
			Confidence:   0,
			Scores:       map[constants.TypeID]int{},
		}
	}

	lower := strings.ToLower(fullText)
	head := lower
	if len(head) > headWindow {
		head = head[:headWindow]
	}

	scores := make(map[constants.TypeID]int, len(constants.ClassifyOrder))
	for _, id := range constants.ClassifyOrder {
		rules, ok := c.library.Rules(id)
		if !ok {
			continue
		}
		score := 0
		for _, kw := range rules.Keywords {
			if !strings.Contains(lower, kw) {
				continue
			}
			score += keywordWeight
			if strings.Contains(head, kw) {
				score += headBonus
			}
		}
		for _, re := range rules.Regexes {
			if re.MatchString(fullText) {
				score += regexWeight
			}
		}
		for _, re := range rules.Strong {
			if re.MatchString(fullText) {
				score += strongWeight
			}
		}
		scores[id] = score
	}

	c.applyStructuredHints(fullText, scores)

	best, second := argmax(scores)
	if scores[best] < scoreFloor {
		c.logger.Debug("classification below floor, defaulting to contract",
			"best", best, "score", scores[best])
		return Result{
			DocumentType: constants.DocTypeContract,
			TypeID:       constants.TypeContrato,
			Confidence:   0.5,
			Scores:       scores,
		}
	}

	confidence := bandConfidence(scores[best])
	if scores[best] > 0 {
		margin := float64(scores[best]-scores[second]) / float64(scores[best])
		if margin < 0.3 {
			// Ambiguous winner.
			confidence *= 0.8
		}
	}
	confidence = clamp(confidence)

	c.logger.Debug("document classified",
		"type", best, "score", scores[best], "runner_up", second,
		"confidence", confidence)

	return Result{
		DocumentType: constants.CategoryOf(best),
		TypeID:       best,
		Confidence:   confidence,
		Scores:       scores,
	}
}

// applyStructuredHints adds fixed bonuses from detected entity shapes.
func (c *Classifier) applyStructuredHints(fullText string, scores map[constants.TypeID]int) {
	entities := c.library.ScanEntities(fullText)

	if len(entities.Cedulas) > 0 {
		scores[constants.TypeDNI] += cedulaBonus
	}
	if _, ok := c.library.CedulaFromPhones(entities.Phones); ok {
		scores[constants.TypeDNI] += phoneCedulaBonus
	}
	if len(entities.DNIs) > 0 {
		scores[constants.TypeDNI] += generalIDBonus
	}
	if len(entities.Passports) > 0 {
		scores[constants.TypePasaporte] += generalIDBonus
	}
	if len(entities.Dates) > 2 {
		scores[constants.TypeContrato] += datePairBonus
		scores[constants.TypeExtracto] += datePairBonus
	}
	if len(entities.Amounts) > 0 {
		scores[constants.TypeFactura] += amountBonus
		scores[constants.TypeNomina] += amountBonus
		scores[constants.TypeExtracto] += amountBonus
	}
}

// argmax returns the best and runner-up types. Ties resolve to the earliest
// entry in ClassifyOrder, which is the documented priority list.
func argmax(scores map[constants.TypeID]int) (best, second constants.TypeID) {
	bestScore, secondScore := -1, -1
	for _, id := range constants.ClassifyOrder {
		s := scores[id]
		switch {
		case s > bestScore:
			second, secondScore = best, bestScore
			best, bestScore = id, s
		case s > secondScore:
			second, secondScore = id, s
		}
	}
	return best, second
}

// bandConfidence maps a raw score onto the three-tier confidence scale.
func bandConfidence(score int) float64 {
	s := float64(score)
	switch {
	case s < 20:
		return 0.1 + 0.4*s/20
	case s < 50:
		return 0.5 + 0.25*(s-20)/30
	default:
		extra := (s - 50) / 100
		if extra > 1 {
			extra = 1
		}
		return 0.75 + 0.2*extra
	}
}

func clamp(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > maxConfidence {
		return maxConfidence
	}
	return confidence
}
