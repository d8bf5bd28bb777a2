// Package suggest ranks candidate parent cards for an orphaned card.
//
// An orphan - a card with no incoming choice - usually exists because the
// author created it ahead of wiring it in. The recommender scores every other
// card on how suitable it would be as the orphan's parent, using additive,
// independently testable factors: connectivity to the root, content and title
// similarity, branch suitability, creation recency, and a small bonus for the
// root itself.
//
// Each returned suggestion carries its numeric score and the ordered list of
// human-readable reason strings that fired. Reason strings are stable public
// contract - they are shown to end users and asserted by tests.
package suggest

import (
	"slices"

	"github.com/inkpath/plotline/pkg/analyze"
	"github.com/inkpath/plotline/pkg/story"
)

// Reason strings. Stable: treat changes as breaking.
const (
	ReasonConnected      = "Connected to the story"
	ReasonGoodDepth      = "Good depth for branching"
	ReasonSimilarContent = "Similar content"
	ReasonSimilarTitle   = "Similar title"
	ReasonDeadEnd        = "Dead end (needs choices)"
	ReasonOneChoice      = "Has one choice (room for another)"
	ReasonTwoChoices     = "Has two choices"
	ReasonRecent         = "Created around the same time"
	ReasonNearby         = "Created nearby"
	ReasonStoryStart     = "Story start"
)

// Scoring constants. Additive; a candidate's score is the sum of every
// factor that applies.
const (
	scoreConnected     = 30  // candidate reachable from root
	scoreGoodDepth     = 10  // depth in [1,3]: neither trivially shallow nor buried
	scoreOrphanPenalty = -20 // candidate is itself orphaned: poor anchor
	scoreContentMax    = 25  // scaled by content Jaccard similarity
	scoreTitleMax      = 15  // scaled by title overlap
	scoreDeadEnd       = 20  // reachable dead end: converting it to a branch point is ideal
	scoreOneChoice     = 15  // one existing choice: room for exactly one more branch
	scoreTwoChoices    = 5   // two existing choices: getting crowded
	scoreRecent        = 10  // orderIndex within 2 of the orphan
	scoreNearby        = 5   // orderIndex within 5
	scoreRoot          = 5   // candidate is the root itself
)

// similarityReasonThreshold is the minimum similarity at which a similarity
// reason is surfaced to the user.
const similarityReasonThreshold = 0.2

// maxSuggestions caps the number of returned suggestions.
const maxSuggestions = 5

// Suggestion is one ranked candidate parent.
type Suggestion struct {
	CardID  string   `json:"card_id"`
	Title   string   `json:"title"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// Parents scores and ranks candidate parents for the given orphan card.
//
// Candidates already linking directly to the orphan are excluded (connecting
// them again would duplicate a choice), as are candidates with a non-positive
// score or no triggered reasons. Remaining candidates are sorted by score
// descending with ties broken by original card order (stable), and at most
// five are returned. The result is deterministic for a fixed input.
//
// Returns nil if the orphan does not exist in the story.
func Parents(orphanID string, s *story.Story, a *analyze.Analysis) []Suggestion {
	orphan, ok := s.Card(orphanID)
	if !ok {
		return nil
	}

	// Cards that already have a choice pointing at the orphan.
	linksToOrphan := make(map[string]bool)
	for _, ch := range s.Choices {
		if ch.TargetCardID == orphanID {
			linksToOrphan[ch.SourceCardID] = true
		}
	}

	orphanWords := contentWords(orphan.Content)

	var out []Suggestion
	for _, candidate := range s.Cards {
		if candidate.ID == orphanID || linksToOrphan[candidate.ID] {
			continue
		}
		if sg, ok := score(orphan, candidate, orphanWords, a); ok {
			out = append(out, sg)
		}
	}

	// Stable sort preserves card order among equal scores.
	slices.SortStableFunc(out, func(x, y Suggestion) int {
		switch {
		case x.Score > y.Score:
			return -1
		case x.Score < y.Score:
			return 1
		default:
			return 0
		}
	})

	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

// score evaluates one candidate. Returns false when the candidate is
// excluded (non-positive score or no reasons).
func score(orphan, candidate story.Card, orphanWords map[string]bool, a *analyze.Analysis) (Suggestion, bool) {
	var (
		total   float64
		reasons []string
	)

	// Connectivity: a parent that is itself attached to the story keeps the
	// orphan reachable once linked.
	reachable := a.IsReachable(candidate.ID)
	if reachable {
		total += scoreConnected
		reasons = append(reasons, ReasonConnected)
		if d := a.Depth[candidate.ID]; d >= 1 && d <= 3 {
			total += scoreGoodDepth
			reasons = append(reasons, ReasonGoodDepth)
		}
	}
	if a.OrphanCards[candidate.ID] {
		total += scoreOrphanPenalty
	}

	// Content similarity.
	if sim := jaccard(orphanWords, contentWords(candidate.Content)); sim > 0 {
		total += scoreContentMax * sim
		if sim > similarityReasonThreshold {
			reasons = append(reasons, ReasonSimilarContent)
		}
	}

	// Title similarity.
	if sim := titleOverlap(orphan.Title, candidate.Title); sim > 0 {
		total += scoreTitleMax * sim
		if sim > similarityReasonThreshold {
			reasons = append(reasons, ReasonSimilarTitle)
		}
	}

	// Branch suitability.
	switch n := a.ChoiceCount[candidate.ID]; {
	case n == 0 && reachable:
		total += scoreDeadEnd
		reasons = append(reasons, ReasonDeadEnd)
	case n == 1:
		total += scoreOneChoice
		reasons = append(reasons, ReasonOneChoice)
	case n == 2:
		total += scoreTwoChoices
		reasons = append(reasons, ReasonTwoChoices)
	}

	// Recency: cards created close together often belong together.
	switch diff := abs(candidate.OrderIndex - orphan.OrderIndex); {
	case diff <= 2:
		total += scoreRecent
		reasons = append(reasons, ReasonRecent)
	case diff <= 5:
		total += scoreNearby
		reasons = append(reasons, ReasonNearby)
	}

	// Root bonus.
	if candidate.ID == a.RootID && a.RootID != "" {
		total += scoreRoot
		reasons = append(reasons, ReasonStoryStart)
	}

	if total <= 0 || len(reasons) == 0 {
		return Suggestion{}, false
	}
	return Suggestion{
		CardID:  candidate.ID,
		Title:   candidate.Title,
		Score:   total,
		Reasons: reasons,
	}, true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
