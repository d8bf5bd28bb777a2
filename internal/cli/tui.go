package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/inkpath/plotline/pkg/analyze"
	"github.com/inkpath/plotline/pkg/navigate"
	"github.com/inkpath/plotline/pkg/sched"
	"github.com/inkpath/plotline/pkg/story"
	"github.com/inkpath/plotline/pkg/trail"
)

// trailQuiet is the debounce window for trail recomputation while the user
// holds an arrow key. Selection moves every keypress; the path and progress
// pane settles once keys stop.
const trailQuiet = 60 * time.Millisecond

// Navigator styles
var (
	navSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	navNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	navDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	navBadgeOrphan   = lipgloss.NewStyle().Foreground(colorRed)
	navBadgeDeadEnd  = lipgloss.NewStyle().Foreground(colorYellow)
	navBadgeOnPath   = lipgloss.NewStyle().Foreground(colorGreen)
	navProgressFill  = lipgloss.NewStyle().Foreground(colorCyan)
)

// trailMsg carries the recomputed path state for a selection.
type trailMsg struct {
	current  string
	ancestry trail.Ancestry
	branch   trail.BranchInfo
	progress trail.Progress
}

// navModel is the bubbletea model for interactive story navigation.
type navModel struct {
	story    *story.Story
	analysis *analyze.Analysis
	nav      *navigate.Map

	current   string
	prevDepth int

	trail    trailMsg
	debounce *sched.Debouncer
	trailCh  chan trailMsg

	width  int
	height int
}

// newNavModel creates the navigator model with the trail state of the initial
// selection already computed.
func newNavModel(s *story.Story, a *analyze.Analysis, nav *navigate.Map, current string) navModel {
	m := navModel{
		story:    s,
		analysis: a,
		nav:      nav,
		current:  current,
		debounce: sched.NewDebouncer(trailQuiet),
		trailCh:  make(chan trailMsg, 1),
		height:   24,
		width:    80,
	}
	m.trail = m.computeTrail(current)
	return m
}

func (m navModel) Init() tea.Cmd {
	return m.waitForTrail()
}

// waitForTrail delivers the next debounced trail recomputation.
func (m navModel) waitForTrail() tea.Cmd {
	ch := m.trailCh
	return func() tea.Msg {
		return <-ch
	}
}

func (m navModel) computeTrail(current string) trailMsg {
	return trailMsg{
		current:  current,
		ancestry: trail.AncestryPath(current, m.analysis.RootID, m.story.Choices),
		branch:   trail.BranchDepth(current, m.analysis),
		progress: trail.PathProgress(current, m.prevDepth, m.analysis),
	}
}

func (m navModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.debounce.Cancel()
			return m, tea.Quit
		case "left", "h":
			return m.moveTo(m.nav.Move(m.current, navigate.DirLeft))
		case "right", "l":
			return m.moveTo(m.nav.Move(m.current, navigate.DirRight))
		case "up", "k":
			return m.moveTo(m.nav.Move(m.current, navigate.DirUp))
		case "down", "j":
			return m.moveTo(m.nav.Move(m.current, navigate.DirDown))
		case "home", "g":
			return m.moveTo(m.nav.Jump(m.current, navigate.JumpHome))
		case "end", "G":
			return m.moveTo(m.nav.Jump(m.current, navigate.JumpEnd))
		case "pgup":
			return m.moveTo(m.nav.Jump(m.current, navigate.JumpPageUp))
		case "pgdown":
			return m.moveTo(m.nav.Jump(m.current, navigate.JumpPageDown))
		}
	case trailMsg:
		m.trail = msg
		return m, m.waitForTrail()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

// moveTo applies a resolved movement. Movements with no target are no-ops.
// The selection updates immediately; the trail pane recomputes after the
// debounce window so held-down keys stay responsive.
func (m navModel) moveTo(target string, ok bool) (tea.Model, tea.Cmd) {
	if !ok || target == m.current {
		return m, nil
	}
	m.prevDepth = m.nav.NodeToDepth[m.current]
	m.current = target

	ch := m.trailCh
	next := m.computeTrail(target)
	m.debounce.Call(func() {
		select {
		case ch <- next:
		default:
		}
	})
	return m, nil
}

func (m navModel) View() string {
	var b strings.Builder

	title := m.story.Title
	if title == "" {
		title = "Untitled Story"
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(navDimStyle.Render("←/→ parent/child  ↑/↓ siblings  Home/End first/deepest  PgUp/PgDn level  q quit"))
	b.WriteString("\n\n")

	b.WriteString(m.viewLevels())
	b.WriteString("\n")
	b.WriteString(m.viewCard())
	b.WriteString("\n")
	b.WriteString(m.viewTrail())

	return b.String()
}

// viewLevels renders one line per depth level with the selection highlighted.
func (m navModel) viewLevels() string {
	var b strings.Builder
	maxDepth := m.analysis.MaxDepth() + 1

	for depth := 0; depth <= maxDepth; depth++ {
		level := m.nav.DepthToNodes[depth]
		if len(level) == 0 {
			continue
		}
		label := fmt.Sprintf("%2d ", depth)
		if depth > m.analysis.MaxDepth() {
			label = " ? " // unreachable cards
		}
		b.WriteString(navDimStyle.Render(label))

		for i, id := range level {
			if i > 0 {
				b.WriteString(navDimStyle.Render(" · "))
			}
			name := m.cardLabel(id)
			switch {
			case id == m.current:
				b.WriteString(navSelectedStyle.Render("▸" + name))
			case m.trail.ancestry.PathNodeIDs[id]:
				b.WriteString(navBadgeOnPath.Render(name))
			default:
				b.WriteString(navNormalStyle.Render(name))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// viewCard renders the selected card's content and status badges.
func (m navModel) viewCard() string {
	card, ok := m.story.Card(m.current)
	if !ok {
		return ""
	}

	var badges []string
	if m.current == m.analysis.RootID && m.analysis.RootID != "" {
		badges = append(badges, StyleHighlight.Render("[first]"))
	}
	if m.analysis.OrphanCards[m.current] {
		badges = append(badges, navBadgeOrphan.Render("[orphaned]"))
	}
	if m.analysis.DeadEndCards[m.current] {
		badges = append(badges, navBadgeDeadEnd.Render("[dead end]"))
	}
	if m.analysis.IncompleteCards[m.current] {
		badges = append(badges, navBadgeDeadEnd.Render("[incomplete]"))
	}

	var b strings.Builder
	b.WriteString(navSelectedStyle.Render(cardTitle(card.Title, card.ID)))
	if len(badges) > 0 {
		b.WriteString(" " + strings.Join(badges, " "))
	}
	b.WriteString("\n")

	if content := strings.TrimSpace(card.Content); content != "" {
		b.WriteString(navNormalStyle.Render(truncate(content, m.width*3)))
		b.WriteString("\n")
	}

	choices := m.story.OutgoingChoices(m.current)
	for _, ch := range choices {
		label := ch.Label
		if label == "" {
			label = "(unlabeled)"
		}
		target := navDimStyle.Render("(dangling)")
		if !ch.IsDangling() {
			target = navNormalStyle.Render(m.cardLabel(ch.TargetCardID))
		}
		b.WriteString(navDimStyle.Render("  "+iconArrow+" ") + StyleValue.Render(label) + navDimStyle.Render(" to ") + target + "\n")
	}
	return b.String()
}

// viewTrail renders the breadcrumb path and the progress bar.
func (m navModel) viewTrail() string {
	var b strings.Builder

	crumbs := make([]string, len(m.trail.ancestry.OrderedPath))
	for i, id := range m.trail.ancestry.OrderedPath {
		crumbs[i] = m.cardLabel(id)
	}
	b.WriteString(navDimStyle.Render("path: "))
	b.WriteString(navNormalStyle.Render(strings.Join(crumbs, " "+iconArrow+" ")))
	b.WriteString("\n")

	b.WriteString(navDimStyle.Render("progress: "))
	b.WriteString(renderProgressBar(m.trail.progress.Value, 24))
	b.WriteString(navDimStyle.Render(fmt.Sprintf(" %3.0f%%  depth %d/%d",
		m.trail.progress.Value*100,
		m.trail.branch.CurrentDepth,
		m.trail.branch.MaxDepthInBranch)))
	if m.trail.branch.IsTerminal {
		b.WriteString(navBadgeDeadEnd.Render("  [ending]"))
	}
	return b.String()
}

func (m navModel) cardLabel(id string) string {
	if card, ok := m.story.Card(id); ok && card.Title != "" {
		return truncate(card.Title, 24)
	}
	return truncate(id, 12)
}

func renderProgressBar(value float64, width int) string {
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	filled := int(value * float64(width))
	return navProgressFill.Render(strings.Repeat("█", filled)) +
		navDimStyle.Render(strings.Repeat("░", width-filled))
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
