package compose_test

import (
	"strings"
	"testing"

	"github.com/ctxsnap/ctxsnap/internal/compose"
)

// TestComposeUnlimited verifies a non-positive limit concatenates everything
// and reports every optional label as included.
func TestComposeUnlimited(testingInstance *testing.T) {
	segments := []compose.Segment{
		{Text: "header\n", Required: true},
		{Text: "file-one\n", Label: "one"},
		{Text: "file-two\n", Label: "two"},
	}
	composed := compose.Compose(segments, 0)
	if composed.Text != "header\nfile-one\nfile-two\n" {
		testingInstance.Fatalf("unexpected text %q", composed.Text)
	}
	if composed.Truncated {
		testingInstance.Fatalf("unlimited composition must not report truncation")
	}
	if strings.Join(composed.IncludedLabels, ",") != "one,two" {
		testingInstance.Fatalf("unexpected included labels %v", composed.IncludedLabels)
	}
	if len(composed.TruncatedLabels) != 0 {
		testingInstance.Fatalf("unexpected truncated labels %v", composed.TruncatedLabels)
	}
}

// TestComposeRequiredSliceHaltsComposition verifies a required segment larger
// than the budget is sliced in place and stops composition entirely.
func TestComposeRequiredSliceHaltsComposition(testingInstance *testing.T) {
	segments := []compose.Segment{
		{Text: "1234567890123", Required: true},
		{Text: "never", Label: "later-optional"},
		{Text: "never", Required: true},
	}
	composed := compose.Compose(segments, 10)
	if composed.Text != "1234567890" {
		testingInstance.Fatalf("expected a 10-character prefix, got %q", composed.Text)
	}
	if !composed.Truncated {
		testingInstance.Fatalf("expected truncation to be reported")
	}
	if strings.Join(composed.TruncatedLabels, ",") != "later-optional" {
		testingInstance.Fatalf("expected later labels recorded as truncated, got %v", composed.TruncatedLabels)
	}
	if len(composed.IncludedLabels) != 0 {
		testingInstance.Fatalf("expected no included labels, got %v", composed.IncludedLabels)
	}
}

// TestComposeOptionalDroppedWhole verifies optional segments are never sliced.
func TestComposeOptionalDroppedWhole(testingInstance *testing.T) {
	segments := []compose.Segment{
		{Text: "abc", Required: true},
		{Text: "defgh", Label: "f1"},
	}
	composed := compose.Compose(segments, 5)
	if composed.Text != "abc" {
		testingInstance.Fatalf("expected only the required segment, got %q", composed.Text)
	}
	if !composed.Truncated {
		testingInstance.Fatalf("expected truncation to be reported")
	}
	if strings.Join(composed.TruncatedLabels, ",") != "f1" {
		testingInstance.Fatalf("unexpected truncated labels %v", composed.TruncatedLabels)
	}
	if len(composed.IncludedLabels) != 0 {
		testingInstance.Fatalf("unexpected included labels %v", composed.IncludedLabels)
	}
}

// TestComposeOptionalLimitLatch verifies that once an optional segment is
// dropped, later optional segments are dropped without a fit check while a
// later required segment that fits is still appended.
func TestComposeOptionalLimitLatch(testingInstance *testing.T) {
	segments := []compose.Segment{
		{Text: "head:", Required: true},
		{Text: "0123456789", Label: "big"},
		{Text: "x", Label: "tiny"},
		{Text: "tail", Required: true},
	}
	composed := compose.Compose(segments, 10)
	if composed.Text != "head:tail" {
		testingInstance.Fatalf("expected head and tail only, got %q", composed.Text)
	}
	if strings.Join(composed.TruncatedLabels, ",") != "big,tiny" {
		testingInstance.Fatalf("expected both optional labels truncated in order, got %v", composed.TruncatedLabels)
	}
}

// TestComposeExactFit verifies a segment exactly filling the remaining budget
// is included.
func TestComposeExactFit(testingInstance *testing.T) {
	segments := []compose.Segment{
		{Text: "12345", Required: true},
		{Text: "67890", Label: "fit"},
	}
	composed := compose.Compose(segments, 10)
	if composed.Text != "1234567890" {
		testingInstance.Fatalf("expected exact fit, got %q", composed.Text)
	}
	if composed.Truncated {
		testingInstance.Fatalf("exact fit must not report truncation")
	}
	if strings.Join(composed.IncludedLabels, ",") != "fit" {
		testingInstance.Fatalf("unexpected included labels %v", composed.IncludedLabels)
	}
}

// TestComposeBudgetNeverExceeded verifies the emitted length stays within the
// limit across a mix of segment shapes.
func TestComposeBudgetNeverExceeded(testingInstance *testing.T) {
	segments := []compose.Segment{
		{Text: strings.Repeat("r", 7), Required: true},
		{Text: strings.Repeat("o", 9), Label: "opt-one"},
		{Text: strings.Repeat("p", 2), Label: "opt-two"},
		{Text: strings.Repeat("q", 50), Required: true},
	}
	for limit := 1; limit <= 30; limit++ {
		composed := compose.Compose(segments, limit)
		if len(composed.Text) > limit {
			testingInstance.Fatalf("limit %d exceeded: emitted %d characters", limit, len(composed.Text))
		}
	}
}

// TestComposeRequiredSliceKeepsRuneBoundary verifies a sliced required segment
// never splits a multi-byte character.
func TestComposeRequiredSliceKeepsRuneBoundary(testingInstance *testing.T) {
	segments := []compose.Segment{{Text: "héllo wörld", Required: true}}
	composed := compose.Compose(segments, 3)
	if len(composed.Text) > 3 {
		testingInstance.Fatalf("limit exceeded: %q", composed.Text)
	}
	for _, runeValue := range composed.Text {
		if runeValue == '�' {
			testingInstance.Fatalf("sliced output contains a broken rune: %q", composed.Text)
		}
	}
}
