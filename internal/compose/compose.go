// Package compose fits an ordered list of text segments into a hard
// character budget, reporting what was cut.
package compose

import (
	"strings"
	"unicode/utf8"
)

// Segment is one unit of snapshot output. Required segments are sliced in
// place when the budget runs out mid-segment; optional segments are
// all-or-nothing and carry a label for the truncation report.
type Segment struct {
	Text     string
	Required bool
	Label    string
}

// Result reports what survived composition. Label lists preserve the original
// segment order.
type Result struct {
	Text            string
	Truncated       bool
	TruncatedLabels []string
	IncludedLabels  []string
}

// Compose walks segments in order and emits the largest prefix that fits the
// character limit. A non-positive limit means unlimited: every segment is
// concatenated verbatim and every optional label is reported as included.
//
// A required segment that does not fit is sliced to the remaining budget
// (possibly to zero) and composition stops immediately; labels of the
// remaining segments are recorded as truncated. An optional segment that does
// not fit is dropped whole and latches the limit, so every later optional
// segment is dropped without a fit check. The emitted length never exceeds
// the limit.
func Compose(segments []Segment, limit int) Result {
	if limit <= 0 {
		return composeUnlimited(segments)
	}

	var textBuilder strings.Builder
	composed := Result{}
	emittedLength := 0
	optionalBudgetSpent := false
	compositionHalted := false

	for _, segment := range segments {
		if compositionHalted {
			if segment.Label != "" {
				composed.TruncatedLabels = append(composed.TruncatedLabels, segment.Label)
			}
			continue
		}

		remainingBudget := limit - emittedLength
		segmentLength := len(segment.Text)

		if segment.Required {
			if segmentLength <= remainingBudget {
				textBuilder.WriteString(segment.Text)
				emittedLength += segmentLength
				continue
			}
			slicedText := sliceToBudget(segment.Text, remainingBudget)
			textBuilder.WriteString(slicedText)
			emittedLength += len(slicedText)
			composed.Truncated = true
			compositionHalted = true
			continue
		}

		if optionalBudgetSpent || segmentLength > remainingBudget {
			composed.Truncated = true
			optionalBudgetSpent = true
			if segment.Label != "" {
				composed.TruncatedLabels = append(composed.TruncatedLabels, segment.Label)
			}
			continue
		}

		textBuilder.WriteString(segment.Text)
		emittedLength += segmentLength
		if segment.Label != "" {
			composed.IncludedLabels = append(composed.IncludedLabels, segment.Label)
		}
	}

	composed.Text = textBuilder.String()
	return composed
}

func composeUnlimited(segments []Segment) Result {
	var textBuilder strings.Builder
	composed := Result{}
	for _, segment := range segments {
		textBuilder.WriteString(segment.Text)
		if !segment.Required && segment.Label != "" {
			composed.IncludedLabels = append(composed.IncludedLabels, segment.Label)
		}
	}
	composed.Text = textBuilder.String()
	return composed
}

// sliceToBudget truncates text to at most budget bytes, backing off to the
// nearest rune boundary so a multi-byte character is never split.
func sliceToBudget(text string, budget int) string {
	if budget <= 0 {
		return ""
	}
	if len(text) <= budget {
		return text
	}
	sliceEnd := budget
	for sliceEnd > 0 && !utf8.RuneStart(text[sliceEnd]) {
		sliceEnd--
	}
	return text[:sliceEnd]
}
