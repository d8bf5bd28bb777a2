package analyze

import (
	"strings"

	"github.com/inkpath/plotline/pkg/story"
)

// CompletenessPolicy decides whether a card counts as finished.
// Incompleteness is advisory - it flags cards for the author, it never blocks
// any other computation.
type CompletenessPolicy func(c story.Card) bool

// DefaultCompleteness is the standard policy: a card is complete when it has
// non-empty trimmed content, an image, and a non-empty trimmed title that is
// not the placeholder default.
func DefaultCompleteness(c story.Card) bool {
	title := strings.TrimSpace(c.Title)
	if title == "" || title == story.DefaultTitle {
		return false
	}
	if strings.TrimSpace(c.Content) == "" {
		return false
	}
	return c.HasImage()
}

// TextOnlyCompleteness is a relaxed policy for stories that do not use
// images: title and content requirements apply, the image requirement is
// dropped.
func TextOnlyCompleteness(c story.Card) bool {
	title := strings.TrimSpace(c.Title)
	if title == "" || title == story.DefaultTitle {
		return false
	}
	return strings.TrimSpace(c.Content) != ""
}
