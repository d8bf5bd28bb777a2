package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/inkpath/plotline/pkg/pipeline"
)

// analyzeCommand creates the analyze command.
func (c *CLI) analyzeCommand() *cobra.Command {
	var (
		rootID  string
		policy  string
		noCache bool
		asJSON  bool
		showAll bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [story.json]",
		Short: "Report structural diagnostics for a story",
		Long: `Report structural diagnostics for a story.

The analyze command classifies every card in the story: orphaned cards
nothing links to, dead ends with no way forward, and cards whose content
is still incomplete. It also reports reachability depth from the first
card.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAnalyze(cmd.Context(), args[0], analyzeParams{
				rootID:  rootID,
				policy:  policy,
				noCache: noCache,
				asJSON:  asJSON,
				showAll: showAll,
			})
		},
	}

	cmd.Flags().StringVar(&rootID, "root", "", "root card ID (defaults to the story's first card)")
	cmd.Flags().StringVar(&policy, "policy", "", "completeness policy: default, text-only")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print machine-readable JSON")
	cmd.Flags().BoolVar(&showAll, "all", false, "list every flagged card instead of counts")

	return cmd
}

type analyzeParams struct {
	rootID  string
	policy  string
	noCache bool
	asJSON  bool
	showAll bool
}

// analyzeReport is the JSON shape printed by analyze --json.
type analyzeReport struct {
	StoryHash         string   `json:"story_hash"`
	RootID            string   `json:"root_id"`
	CardCount         int      `json:"card_count"`
	ChoiceCount       int      `json:"choice_count"`
	MaxDepth          int      `json:"max_depth"`
	OrphanCardIDs     []string `json:"orphan_card_ids"`
	DeadEndCardIDs    []string `json:"dead_end_card_ids"`
	IncompleteCardIDs []string `json:"incomplete_card_ids"`
}

func (c *CLI) runAnalyze(ctx context.Context, input string, params analyzeParams) error {
	s, err := c.loadStory(input)
	if err != nil {
		return err
	}
	if params.policy == "" {
		params.policy = c.Config.Policy
	}

	tracker := newProgress(c.Logger)
	result, err := c.newRunner(params.noCache).Execute(ctx, s, pipeline.Options{
		RootID:  params.rootID,
		Policy:  params.policy,
		Refresh: params.noCache,
		Logger:  c.Logger,
	})
	if err != nil {
		return fmt.Errorf("analyze %s: %w", input, err)
	}
	tracker.done(fmt.Sprintf("Analyzed %d cards", s.CardCount()))

	a := result.Analysis
	report := analyzeReport{
		StoryHash:         result.StoryHash,
		RootID:            a.RootID,
		CardCount:         s.CardCount(),
		ChoiceCount:       s.ChoiceCount(),
		MaxDepth:          a.MaxDepth(),
		OrphanCardIDs:     sortedIDs(a.OrphanCards),
		DeadEndCardIDs:    sortedIDs(a.DeadEndCards),
		IncompleteCardIDs: sortedIDs(a.IncompleteCards),
	}

	if params.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printAnalysis(s.Title, report, params.showAll, result.CacheInfo.AnalysisHit)
	return nil
}

func printAnalysis(title string, report analyzeReport, showAll, cached bool) {
	if title != "" {
		fmt.Println(StyleTitle.Render(title))
	}
	printStats(report.CardCount, report.ChoiceCount, cached)
	printNewline()

	printKeyValue("Root", displayID(report.RootID))
	printKeyValue("Max depth", fmt.Sprintf("%d", report.MaxDepth))
	printNewline()

	printFlagged("Orphaned", report.OrphanCardIDs, showAll)
	printFlagged("Dead ends", report.DeadEndCardIDs, showAll)
	printFlagged("Incomplete", report.IncompleteCardIDs, showAll)

	if len(report.OrphanCardIDs)+len(report.DeadEndCardIDs)+len(report.IncompleteCardIDs) == 0 {
		printSuccess("No structural problems found")
	}
}

func printFlagged(label string, ids []string, showAll bool) {
	if len(ids) == 0 {
		printKeyValue(label, StyleSuccess.Render("none"))
		return
	}
	printKeyValue(label, StyleWarning.Render(fmt.Sprintf("%d", len(ids))))
	if showAll {
		for _, id := range ids {
			printDetail("%s", id)
		}
	}
}

func displayID(id string) string {
	if id == "" {
		return StyleDim.Render("(none)")
	}
	return id
}

func sortedIDs(set map[string]bool) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
