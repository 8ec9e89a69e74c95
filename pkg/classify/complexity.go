package classify

import (
	"strings"

	"github.com/revintel/insight-agent/pkg/domain"
)

// Complexity scoring weights. Each factor contributes a normalized
// value in [0,1] times its weight; extra data sources add a flat bonus.
// More signal never lowers the score.
const (
	lengthWeight      = 0.2
	reasoningWeight   = 0.3
	contextWeight     = 0.25
	multiStepWeight   = 0.25
	extraSourceBonus  = 0.15
	maxExtraSourceAdd = 0.3
)

var reasoningWords = []string{"why", "how", "should", "analyze", "compare", "correlate", "predict", "explain"}

var contextIndicators = []string{"previous", "trend", "pattern", "relationship", "that", "again", "last time"}

var multiStepConnectives = []string{" and ", " or ", " but ", "however", "therefore", " then "}

// EstimateComplexity scores a query into one of the four complexity
// levels. sourceCount is the number of distinct data sources the plan
// will touch; sources past the first push the score up.
func EstimateComplexity(text string, sourceCount int) (domain.Complexity, float64) {
	lower := strings.ToLower(text)
	tokens := len(strings.Fields(lower))

	var lenBucket float64
	switch {
	case tokens >= 20:
		lenBucket = 1.0
	case tokens >= 8:
		lenBucket = 0.5
	}

	reasonCount := 0
	for _, w := range reasoningWords {
		if containsWord(lower, w) {
			reasonCount++
		}
	}
	if reasonCount > 2 {
		reasonCount = 2
	}

	var ctxRef float64
	for _, ind := range contextIndicators {
		if strings.Contains(lower, ind) {
			ctxRef = 1.0
			break
		}
	}

	stepCount := 0
	for _, conn := range multiStepConnectives {
		if strings.Contains(lower, conn) {
			stepCount++
		}
	}
	if stepCount > 2 {
		stepCount = 2
	}

	score := lengthWeight*lenBucket +
		reasoningWeight*float64(reasonCount)/2 +
		contextWeight*ctxRef +
		multiStepWeight*float64(stepCount)/2

	if sourceCount > 1 {
		bonus := extraSourceBonus * float64(sourceCount-1)
		if bonus > maxExtraSourceAdd {
			bonus = maxExtraSourceAdd
		}
		score += bonus
	}

	switch {
	case score < 0.25:
		return domain.ComplexitySimple, score
	case score < 0.5:
		return domain.ComplexityModerate, score
	case score < 0.75:
		return domain.ComplexityComplex, score
	default:
		return domain.ComplexityAdvanced, score
	}
}

// containsWord matches a whole word, so "show" does not count as "how".
func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}
