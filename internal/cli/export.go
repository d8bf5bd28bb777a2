package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkpath/plotline/pkg/cache"
	"github.com/inkpath/plotline/pkg/export"
	"github.com/inkpath/plotline/pkg/pipeline"
)

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		format   string
		output   string
		rootID   string
		detailed bool
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "export [story.json]",
		Short: "Export the story graph as DOT or SVG",
		Long: `Export the story graph as DOT or SVG.

The export carries the same status classification the editor shows:
orphaned cards, dead ends, incomplete cards, and the first card are
colored distinctly. Rendered SVGs are cached locally.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !export.ValidFormats[format] {
				return fmt.Errorf("unsupported format %q (must be one of: dot, svg)", format)
			}
			return c.runExport(cmd.Context(), args[0], exportParams{
				format:   format,
				output:   output,
				rootID:   rootID,
				detailed: detailed,
				noCache:  noCache,
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", export.FormatSVG, "output format: svg (default), dot")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (defaults to the story file with a new extension)")
	cmd.Flags().StringVar(&rootID, "root", "", "root card ID (defaults to the story's first card)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include depth and choice counts in node labels")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

type exportParams struct {
	format   string
	output   string
	rootID   string
	detailed bool
	noCache  bool
}

func (c *CLI) runExport(ctx context.Context, input string, params exportParams) error {
	s, err := c.loadStory(input)
	if err != nil {
		return err
	}

	runner := c.newRunner(params.noCache)
	result, err := runner.Execute(ctx, s, pipeline.Options{
		RootID: params.rootID,
		Logger: c.Logger,
	})
	if err != nil {
		return fmt.Errorf("analyze %s: %w", input, err)
	}

	dot := export.ToDOT(result.Nodes, result.Edges, export.Options{
		Detailed: params.detailed,
		Title:    s.Title,
	})

	var data []byte
	cacheHit := false
	switch params.format {
	case export.FormatDOT:
		data = []byte(dot)
	case export.FormatSVG:
		data, cacheHit, err = c.renderSVG(ctx, result.StoryHash, dot, params)
		if err != nil {
			return err
		}
	}

	out := params.output
	if out == "" {
		out = strings.TrimSuffix(input, filepath.Ext(input)) + "." + params.format
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	printSuccess("Exported %s", params.format)
	printFile(out)
	printStats(s.CardCount(), s.ChoiceCount(), cacheHit)
	return nil
}

// renderSVG renders the DOT to SVG, serving repeat renders of an unchanged
// story from the artifact cache.
func (c *CLI) renderSVG(ctx context.Context, storyHash, dot string, params exportParams) ([]byte, bool, error) {
	store := c.newCache(params.noCache)
	keyer := cache.NewDefaultKeyer()
	key := keyer.ArtifactKey(storyHash, cache.ArtifactKeyOpts{
		RootID:   params.rootID,
		Format:   params.format,
		Detailed: params.detailed,
	})

	if data, ok, err := store.Get(ctx, key); err == nil && ok {
		return data, true, nil
	}

	spinner := newSpinner(ctx, "Rendering SVG...")
	spinner.Start()
	data, err := export.RenderSVG(ctx, dot)
	if err != nil {
		spinner.StopWithError("Render failed")
		return nil, false, fmt.Errorf("render svg: %w", err)
	}
	spinner.Stop()

	_ = store.Set(ctx, key, data, cache.ArtifactTTL)
	return data, false, nil
}
