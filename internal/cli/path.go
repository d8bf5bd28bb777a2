package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkpath/plotline/pkg/pipeline"
	"github.com/inkpath/plotline/pkg/story"
	"github.com/inkpath/plotline/pkg/trail"
)

// pathCommand creates the path command.
func (c *CLI) pathCommand() *cobra.Command {
	var (
		rootID  string
		noCache bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "path [story.json] [card-id]",
		Short: "Trace the ancestry and progress of a card",
		Long: `Trace the ancestry and progress of a card.

The path command reconstructs how a reader reaches the given card from
the story's first card, and reports branch depth and progress toward the
deepest ending. Cards with several parents trace through the shortest
route.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPath(cmd.Context(), args[0], args[1], rootID, noCache, asJSON)
		},
	}

	cmd.Flags().StringVar(&rootID, "root", "", "root card ID (defaults to the story's first card)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print machine-readable JSON")

	return cmd
}

// pathReport is the JSON shape printed by path --json.
type pathReport struct {
	CardID      string           `json:"card_id"`
	OrderedPath []string         `json:"ordered_path"`
	Branch      trail.BranchInfo `json:"branch"`
	Progress    trail.Progress   `json:"progress"`
}

func (c *CLI) runPath(ctx context.Context, input, cardID, rootID string, noCache, asJSON bool) error {
	s, err := c.loadStory(input)
	if err != nil {
		return err
	}
	card, ok := s.Card(cardID)
	if !ok {
		return fmt.Errorf("card %s not found in %s", cardID, input)
	}

	result, err := c.newRunner(noCache).Execute(ctx, s, pipeline.Options{
		RootID:    rootID,
		CurrentID: cardID,
		Logger:    c.Logger,
	})
	if err != nil {
		return fmt.Errorf("analyze %s: %w", input, err)
	}

	report := pathReport{
		CardID:      cardID,
		OrderedPath: result.Ancestry.OrderedPath,
		Branch:      result.Branch,
		Progress:    result.Progress,
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Println(StyleTitle.Render(cardTitle(card.Title, cardID)))
	printNewline()

	printKeyValue("Path", formatPath(s, report.OrderedPath))
	printKeyValue("Depth", fmt.Sprintf("%d of %d", report.Branch.CurrentDepth, report.Branch.MaxDepthInBranch))
	printKeyValue("Progress", fmt.Sprintf("%.0f%%", report.Progress.Value*100))
	if report.Branch.IsTerminal {
		printInfo("This card is an ending")
	}
	if len(report.OrderedPath) == 1 && cardID != result.Analysis.RootID {
		printWarning("No path from the first card reaches this card")
	}
	return nil
}

// formatPath renders the path as titles joined by arrows, falling back to IDs
// for untitled cards.
func formatPath(s *story.Story, ids []string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		title := id
		if card, ok := s.Card(id); ok && card.Title != "" {
			title = card.Title
		}
		parts[i] = title
	}
	return strings.Join(parts, " "+iconArrow+" ")
}

func cardTitle(title, id string) string {
	if title != "" {
		return title
	}
	return id
}
