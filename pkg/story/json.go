package story

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
)

// =============================================================================
// Story Serialization API
// =============================================================================

// Marshal converts a story to JSON bytes.
// Cards and choices are sorted by order index (then ID) for deterministic output.
func Marshal(s *Story) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeStoryTo(s, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal deserializes JSON bytes into a Story.
func Unmarshal(data []byte) (*Story, error) {
	return readStoryFrom(bytes.NewReader(data))
}

// WriteFile writes a story to a JSON file.
// The file is created with 0644 permissions.
func WriteFile(s *Story, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeStoryTo(s, f)
}

// Write writes a story as JSON to an io.Writer.
// Use Marshal for in-memory serialization or WriteFile for files.
func Write(s *Story, w io.Writer) error {
	return writeStoryTo(s, w)
}

// ReadFile reads a JSON file and returns the decoded story.
func ReadFile(path string) (*Story, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readStoryFrom(f)
}

// Read decodes a JSON story from an io.Reader.
// Use ReadFile for files or pass bytes.NewReader for in-memory data.
func Read(r io.Reader) (*Story, error) {
	return readStoryFrom(r)
}

// =============================================================================
// Internal Implementation
// =============================================================================

func writeStoryTo(s *Story, w io.Writer) error {
	out := *s
	out.Cards = slices.Clone(s.Cards)
	out.Choices = slices.Clone(s.Choices)
	slices.SortStableFunc(out.Cards, func(a, b Card) int {
		if a.OrderIndex != b.OrderIndex {
			return a.OrderIndex - b.OrderIndex
		}
		return compareIDs(a.ID, b.ID)
	})
	slices.SortStableFunc(out.Choices, func(a, b Choice) int {
		if a.OrderIndex != b.OrderIndex {
			return a.OrderIndex - b.OrderIndex
		}
		return compareIDs(a.ID, b.ID)
	})

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func readStoryFrom(r io.Reader) (*Story, error) {
	var s Story
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &s, nil
}

func compareIDs(a, b string) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
