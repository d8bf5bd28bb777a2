package cli

import (
	"context"
	"fmt"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/inkpath/plotline/pkg/analyze"
	"github.com/inkpath/plotline/pkg/navigate"
	"github.com/inkpath/plotline/pkg/pipeline"
	"github.com/inkpath/plotline/pkg/story"
)

// Spacing of the synthetic layout fed to the navigation map. The TUI has no
// real canvas, so positions only need to give each level a stable top-to-
// bottom order.
const (
	layoutColumnWidth = 240.0
	layoutRowHeight   = 80.0
)

// navigateCommand creates the navigate command.
func (c *CLI) navigateCommand() *cobra.Command {
	var (
		rootID  string
		startID string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "navigate [story.json]",
		Short: "Explore a story interactively with the keyboard",
		Long: `Explore a story interactively with the keyboard.

Arrow keys walk the graph: left to a parent, right to a child, up and
down between cards at the same depth. Home jumps to the first card, End
to the deepest one, PgUp/PgDn move a level at a time. The detail pane
shows the selected card's content, its path from the first card, and
progress toward the deepest ending.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runNavigate(cmd.Context(), args[0], rootID, startID, noCache)
		},
	}

	cmd.Flags().StringVar(&rootID, "root", "", "root card ID (defaults to the story's first card)")
	cmd.Flags().StringVar(&startID, "start", "", "card to select initially (defaults to the root)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runNavigate(ctx context.Context, input, rootID, startID string, noCache bool) error {
	s, err := c.loadStory(input)
	if err != nil {
		return err
	}
	if s.CardCount() == 0 {
		return fmt.Errorf("story %s has no cards", input)
	}

	result, err := c.newRunner(noCache).Execute(ctx, s, pipeline.Options{
		RootID: rootID,
		Logger: c.Logger,
	})
	if err != nil {
		return fmt.Errorf("analyze %s: %w", input, err)
	}

	placed := layoutStory(s, result.Analysis)
	nav := navigate.Build(placed, s.Choices, result.Analysis.RootID)

	current := startID
	if current == "" {
		current = result.Analysis.RootID
	}
	if _, ok := s.Card(current); !ok {
		return fmt.Errorf("card %s not found in %s", current, input)
	}

	model := newNavModel(s, result.Analysis, nav, current)
	program := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())
	_, err = program.Run()
	return err
}

// layoutStory assigns each card a synthetic grid position: one column per
// depth level, rows in stable title order. Cards the root cannot reach are
// parked one column past the deepest level so they stay visitable.
func layoutStory(s *story.Story, a *analyze.Analysis) []navigate.Placed {
	orphanDepth := a.MaxDepth() + 1

	cards := slices.Clone(s.Cards)
	slices.SortStableFunc(cards, func(x, y story.Card) int {
		switch {
		case x.OrderIndex != y.OrderIndex:
			return x.OrderIndex - y.OrderIndex
		case x.ID < y.ID:
			return -1
		case x.ID > y.ID:
			return 1
		}
		return 0
	})

	rows := make(map[int]int)
	placed := make([]navigate.Placed, 0, len(cards))
	for _, card := range cards {
		depth, reachable := a.Depth[card.ID]
		if !reachable {
			depth = orphanDepth
		}
		row := rows[depth]
		rows[depth] = row + 1
		placed = append(placed, navigate.Placed{
			ID:    card.ID,
			X:     float64(depth) * layoutColumnWidth,
			Y:     float64(row) * layoutRowHeight,
			Depth: depth,
		})
	}
	return placed
}
