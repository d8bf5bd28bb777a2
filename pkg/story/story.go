// Package story defines the data model for branching interactive fiction:
// cards (scenes), choices (directed labeled edges), and the story that owns
// them. The model is a general directed graph - a card may have multiple
// parents, choices may dangle (no target yet), and cycles are legal.
//
// All derived structure (adjacency, parent indices) is recomputed from the
// card and choice lists on demand. Nothing in this package caches state
// between calls, so a Story can be freely mutated by an editor and re-analyzed.
package story

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrInvalidCardID is returned by [Story.AddCard] when the card ID is empty.
	ErrInvalidCardID = errors.New("card ID must not be empty")

	// ErrDuplicateCardID is returned by [Story.AddCard] when a card with the
	// same ID already exists. Card IDs must be unique within a story.
	ErrDuplicateCardID = errors.New("duplicate card ID")

	// ErrInvalidChoiceID is returned by [Story.AddChoice] when the choice ID is empty.
	ErrInvalidChoiceID = errors.New("choice ID must not be empty")

	// ErrUnknownSourceCard is returned by [Story.AddChoice] when the source
	// card does not exist. A choice must always originate from a real card;
	// only its target may dangle.
	ErrUnknownSourceCard = errors.New("unknown source card")
)

// DefaultTitle is the placeholder title assigned to newly created cards.
// A card still carrying this title is considered incomplete by the default
// completeness policy in pkg/analyze.
const DefaultTitle = "New Card"

// Card is a node in the story graph: one scene or unit of narrative content.
type Card struct {
	ID         string `json:"id" bson:"id"`
	Title      string `json:"title" bson:"title"`
	Content    string `json:"content" bson:"content"`
	ImageURL   string `json:"image_url,omitempty" bson:"image_url,omitempty"`
	OrderIndex int    `json:"order_index" bson:"order_index"` // Creation/display order
}

// HasImage reports whether the card has an image attached.
func (c Card) HasImage() bool { return strings.TrimSpace(c.ImageURL) != "" }

// Choice is a directed, labeled edge from one card to another.
// TargetCardID may be empty: a choice the author has written but not yet
// pointed anywhere is "dangling" and is excluded from adjacency structure.
type Choice struct {
	ID           string `json:"id" bson:"id"`
	SourceCardID string `json:"source_card_id" bson:"source_card_id"`
	TargetCardID string `json:"target_card_id,omitempty" bson:"target_card_id,omitempty"`
	Label        string `json:"label" bson:"label"`
	OrderIndex   int    `json:"order_index" bson:"order_index"` // Ordering among siblings from the same source
}

// IsDangling reports whether the choice has no target yet.
func (c Choice) IsDangling() bool { return c.TargetCardID == "" }

// Story is the unit of authorship: a set of cards, the choices connecting
// them, and an optional designated starting card.
//
// The zero value is usable as an empty story. Story is not safe for
// concurrent mutation without external synchronization.
type Story struct {
	ID          string   `json:"id,omitempty" bson:"_id,omitempty"`
	Title       string   `json:"title,omitempty" bson:"title,omitempty"`
	Cards       []Card   `json:"cards" bson:"cards"`
	Choices     []Choice `json:"choices" bson:"choices"`
	FirstCardID string   `json:"first_card_id,omitempty" bson:"first_card_id,omitempty"`
}

// NewCard creates a card with a generated ID, the placeholder title, and the
// given order index.
func NewCard(orderIndex int) Card {
	return Card{
		ID:         uuid.NewString(),
		Title:      DefaultTitle,
		OrderIndex: orderIndex,
	}
}

// NewChoice creates a dangling choice with a generated ID originating from
// the given source card.
func NewChoice(sourceCardID, label string, orderIndex int) Choice {
	return Choice{
		ID:           uuid.NewString(),
		SourceCardID: sourceCardID,
		Label:        label,
		OrderIndex:   orderIndex,
	}
}

// AddCard appends a card to the story.
// Returns ErrInvalidCardID for an empty ID or ErrDuplicateCardID if a card
// with the same ID already exists.
func (s *Story) AddCard(c Card) error {
	if c.ID == "" {
		return ErrInvalidCardID
	}
	for _, existing := range s.Cards {
		if existing.ID == c.ID {
			return ErrDuplicateCardID
		}
	}
	s.Cards = append(s.Cards, c)
	return nil
}

// AddChoice appends a choice to the story.
// Returns ErrInvalidChoiceID for an empty ID or ErrUnknownSourceCard if the
// source card does not exist. The target is deliberately not validated:
// dangling targets and references to since-deleted cards are tolerated
// throughout the engine.
func (s *Story) AddChoice(c Choice) error {
	if c.ID == "" {
		return ErrInvalidChoiceID
	}
	if _, ok := s.Card(c.SourceCardID); !ok {
		return ErrUnknownSourceCard
	}
	s.Choices = append(s.Choices, c)
	return nil
}

// Card returns the card with the given ID and true, or a zero card and false.
func (s *Story) Card(id string) (Card, bool) {
	for _, c := range s.Cards {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}

// CardSet returns the set of existing card IDs.
// Used to detect dangling choice targets in O(1) per lookup.
func (s *Story) CardSet() map[string]bool {
	set := make(map[string]bool, len(s.Cards))
	for _, c := range s.Cards {
		set[c.ID] = true
	}
	return set
}

// ParentRef records one incoming link to a card: the parent card and the
// choice that connects them. A card reached through several choices has
// several ParentRefs.
type ParentRef struct {
	ParentID string
	ChoiceID string
}

// ChildIndex builds the forward adjacency map: sourceCardID -> target card IDs.
// Choices that dangle or point at a non-existent card are skipped - a stale
// reference is treated as dangling, never as an error.
// Targets appear in choice insertion order.
func (s *Story) ChildIndex() map[string][]string {
	exists := s.CardSet()
	children := make(map[string][]string)
	for _, ch := range s.Choices {
		if ch.TargetCardID == "" || !exists[ch.TargetCardID] || !exists[ch.SourceCardID] {
			continue
		}
		children[ch.SourceCardID] = append(children[ch.SourceCardID], ch.TargetCardID)
	}
	return children
}

// ParentIndex builds the reverse adjacency map: targetCardID -> incoming refs.
// Like ChildIndex, it silently skips dangling and stale references.
func (s *Story) ParentIndex() map[string][]ParentRef {
	exists := s.CardSet()
	parents := make(map[string][]ParentRef)
	for _, ch := range s.Choices {
		if ch.TargetCardID == "" || !exists[ch.TargetCardID] || !exists[ch.SourceCardID] {
			continue
		}
		parents[ch.TargetCardID] = append(parents[ch.TargetCardID], ParentRef{
			ParentID: ch.SourceCardID,
			ChoiceID: ch.ID,
		})
	}
	return parents
}

// OutgoingChoices returns the choices originating from the given card,
// including dangling ones, in insertion order.
func (s *Story) OutgoingChoices(cardID string) []Choice {
	var out []Choice
	for _, ch := range s.Choices {
		if ch.SourceCardID == cardID {
			out = append(out, ch)
		}
	}
	return out
}

// CardCount returns the number of cards in the story.
func (s *Story) CardCount() int { return len(s.Cards) }

// ChoiceCount returns the number of choices in the story.
func (s *Story) ChoiceCount() int { return len(s.Choices) }
