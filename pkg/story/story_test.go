package story

import (
	"errors"
	"testing"
)

func TestNewCard(t *testing.T) {
	c := NewCard(3)
	if c.ID == "" {
		t.Error("NewCard should generate an ID")
	}
	if c.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", c.Title, DefaultTitle)
	}
	if c.OrderIndex != 3 {
		t.Errorf("OrderIndex = %d, want 3", c.OrderIndex)
	}
	if NewCard(0).ID == NewCard(0).ID {
		t.Error("IDs should be unique")
	}
}

func TestNewChoice(t *testing.T) {
	ch := NewChoice("src", "Go north", 1)
	if ch.ID == "" {
		t.Error("NewChoice should generate an ID")
	}
	if ch.SourceCardID != "src" || ch.Label != "Go north" || ch.OrderIndex != 1 {
		t.Errorf("unexpected choice: %+v", ch)
	}
	if !ch.IsDangling() {
		t.Error("a new choice should dangle")
	}
}

func TestAddCard(t *testing.T) {
	var s Story

	if err := s.AddCard(Card{ID: "a"}); err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	if err := s.AddCard(Card{}); !errors.Is(err, ErrInvalidCardID) {
		t.Errorf("empty ID error = %v, want ErrInvalidCardID", err)
	}
	if err := s.AddCard(Card{ID: "a"}); !errors.Is(err, ErrDuplicateCardID) {
		t.Errorf("duplicate ID error = %v, want ErrDuplicateCardID", err)
	}
	if s.CardCount() != 1 {
		t.Errorf("CardCount = %d, want 1", s.CardCount())
	}
}

func TestAddChoice(t *testing.T) {
	s := Story{Cards: []Card{{ID: "a"}}}

	// Dangling target is legal
	if err := s.AddChoice(Choice{ID: "c1", SourceCardID: "a"}); err != nil {
		t.Fatalf("AddChoice: %v", err)
	}
	// Target referencing a missing card is legal too (treated as dangling)
	if err := s.AddChoice(Choice{ID: "c2", SourceCardID: "a", TargetCardID: "ghost"}); err != nil {
		t.Fatalf("AddChoice with stale target: %v", err)
	}

	if err := s.AddChoice(Choice{SourceCardID: "a"}); !errors.Is(err, ErrInvalidChoiceID) {
		t.Errorf("empty ID error = %v, want ErrInvalidChoiceID", err)
	}
	if err := s.AddChoice(Choice{ID: "c3", SourceCardID: "nope"}); !errors.Is(err, ErrUnknownSourceCard) {
		t.Errorf("unknown source error = %v, want ErrUnknownSourceCard", err)
	}
}

func TestChildIndexSkipsDanglingAndStale(t *testing.T) {
	s := Story{
		Cards: []Card{{ID: "a"}, {ID: "b"}},
		Choices: []Choice{
			{ID: "c1", SourceCardID: "a", TargetCardID: "b"},
			{ID: "c2", SourceCardID: "a"},                        // dangling
			{ID: "c3", SourceCardID: "a", TargetCardID: "ghost"}, // stale
			{ID: "c4", SourceCardID: "ghost", TargetCardID: "b"}, // stale source
		},
	}

	children := s.ChildIndex()
	if got := children["a"]; len(got) != 1 || got[0] != "b" {
		t.Errorf("children[a] = %v, want [b]", got)
	}
	if len(children) != 1 {
		t.Errorf("ChildIndex = %v, want a single entry", children)
	}
}

func TestParentIndex(t *testing.T) {
	s := Story{
		Cards: []Card{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Choices: []Choice{
			{ID: "c1", SourceCardID: "a", TargetCardID: "c"},
			{ID: "c2", SourceCardID: "b", TargetCardID: "c"},
			{ID: "c3", SourceCardID: "a"}, // dangling
		},
	}

	parents := s.ParentIndex()
	refs := parents["c"]
	if len(refs) != 2 {
		t.Fatalf("parents[c] = %v, want 2 refs", refs)
	}
	// Insertion order is preserved
	if refs[0] != (ParentRef{ParentID: "a", ChoiceID: "c1"}) {
		t.Errorf("refs[0] = %+v", refs[0])
	}
	if refs[1] != (ParentRef{ParentID: "b", ChoiceID: "c2"}) {
		t.Errorf("refs[1] = %+v", refs[1])
	}
}

func TestOutgoingChoices(t *testing.T) {
	s := Story{
		Cards: []Card{{ID: "a"}, {ID: "b"}},
		Choices: []Choice{
			{ID: "c1", SourceCardID: "a", TargetCardID: "b"},
			{ID: "c2", SourceCardID: "a"}, // dangling still counts
			{ID: "c3", SourceCardID: "b", TargetCardID: "a"},
		},
	}

	out := s.OutgoingChoices("a")
	if len(out) != 2 || out[0].ID != "c1" || out[1].ID != "c2" {
		t.Errorf("OutgoingChoices(a) = %v", out)
	}
	if got := s.OutgoingChoices("missing"); got != nil {
		t.Errorf("OutgoingChoices(missing) = %v, want nil", got)
	}
}

func TestCardLookup(t *testing.T) {
	s := Story{Cards: []Card{{ID: "a", Title: "Start"}}}

	card, ok := s.Card("a")
	if !ok || card.Title != "Start" {
		t.Errorf("Card(a) = %+v, %v", card, ok)
	}
	if _, ok := s.Card("b"); ok {
		t.Error("Card(b) should be false")
	}

	set := s.CardSet()
	if !set["a"] || set["b"] {
		t.Errorf("CardSet = %v", set)
	}
}

func TestHasImage(t *testing.T) {
	if (Card{ImageURL: "  "}).HasImage() {
		t.Error("whitespace URL should not count as an image")
	}
	if !(Card{ImageURL: "https://example.com/a.png"}).HasImage() {
		t.Error("URL should count as an image")
	}
}
