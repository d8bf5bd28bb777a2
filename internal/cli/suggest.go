package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkpath/plotline/pkg/pipeline"
	"github.com/inkpath/plotline/pkg/suggest"
)

// suggestCommand creates the suggest command.
func (c *CLI) suggestCommand() *cobra.Command {
	var (
		rootID  string
		noCache bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "suggest [story.json] [orphan-card-id]",
		Short: "Score candidate parents for an orphaned card",
		Long: `Score candidate parents for an orphaned card.

The suggest command ranks existing cards as places to connect an orphan
back into the story. Candidates earn points for being reachable, sitting
at a good branching depth, sharing content or title vocabulary with the
orphan, and having room for another choice. Each suggestion lists the
reasons behind its score.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSuggest(cmd.Context(), args[0], args[1], rootID, noCache, asJSON)
		},
	}

	cmd.Flags().StringVar(&rootID, "root", "", "root card ID (defaults to the story's first card)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print machine-readable JSON")

	return cmd
}

func (c *CLI) runSuggest(ctx context.Context, input, orphanID, rootID string, noCache, asJSON bool) error {
	s, err := c.loadStory(input)
	if err != nil {
		return err
	}
	orphan, ok := s.Card(orphanID)
	if !ok {
		return fmt.Errorf("card %s not found in %s", orphanID, input)
	}

	result, err := c.newRunner(noCache).Execute(ctx, s, pipeline.Options{
		RootID: rootID,
		Logger: c.Logger,
	})
	if err != nil {
		return fmt.Errorf("analyze %s: %w", input, err)
	}

	suggestions := suggest.Parents(orphanID, s, result.Analysis)

	if asJSON {
		if suggestions == nil {
			suggestions = []suggest.Suggestion{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(suggestions)
	}

	fmt.Println(StyleTitle.Render("Parents for " + cardTitle(orphan.Title, orphanID)))
	printNewline()

	if len(suggestions) == 0 {
		printInfo("No candidate parents found")
		return nil
	}
	for i, sug := range suggestions {
		fmt.Printf("%d. %s %s\n",
			i+1,
			StyleValue.Render(cardTitle(sug.Title, sug.CardID)),
			StyleHighlight.Render(fmt.Sprintf("(%.0f)", sug.Score)))
		printDetail("%s", strings.Join(sug.Reasons, ", "))
	}
	return nil
}
