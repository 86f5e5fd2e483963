package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/notedex/notedex/internal/engine"
	dexerrors "github.com/notedex/notedex/internal/errors"
	"github.com/notedex/notedex/internal/index"
)

// Searcher is the engine surface the interactive screen needs.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]index.Result, error)
	Rebuild(ctx context.Context) (*engine.BuildStats, error)
	Status() *engine.Status
}

var _ Searcher = (*engine.Engine)(nil)

const searchHint = "up/down select · ctrl+r rebuild · esc quit"

// rebuildDoneMsg reports a finished background rebuild.
type rebuildDoneMsg struct {
	stats *engine.BuildStats
	err   error
}

// searchModel is the Bubble Tea model for the interactive search
// screen. The query re-runs on every keystroke; up/down move the
// cursor through the result list and the preview follows it.
type searchModel struct {
	ctx      context.Context
	searcher Searcher
	styles   Styles
	limit    int
	root     string

	input   textinput.Model
	preview viewport.Model
	spin    spinner.Model

	results  []index.Result
	cursor   int
	status   string
	building bool
	docs     int
	chunks   int

	width  int
	height int
	ready  bool
}

func newSearchModel(ctx context.Context, s Searcher, cfg Config) searchModel {
	styles := GetStyles(cfg.NoColor)

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "type to search"
	ti.CharLimit = 256
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Success

	limit := cfg.Limit
	if limit <= 0 {
		limit = index.DefaultTopK
	}

	m := searchModel{
		ctx:      ctx,
		searcher: s,
		styles:   styles,
		limit:    limit,
		root:     cfg.Root,
		input:    ti,
		preview:  viewport.New(0, 0),
		spin:     sp,
	}

	if st := s.Status(); st != nil {
		m.docs = st.Docs
		m.chunks = st.Chunks
	}

	return m
}

// Init implements tea.Model.
func (m searchModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m searchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit

		case tea.KeyEsc:
			// First esc clears the query, second one leaves.
			if strings.TrimSpace(m.input.Value()) == "" {
				return m, tea.Quit
			}
			m.input.SetValue("")
			m.search()
			return m, nil

		case tea.KeyUp:
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.preview.SetContent(m.renderPreview())
			}
			return m, nil

		case tea.KeyDown:
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.preview.SetContent(m.renderPreview())
			}
			return m, nil

		case tea.KeyCtrlR:
			if m.building {
				return m, nil
			}
			m.building = true
			m.status = "rebuilding index"
			return m, tea.Batch(m.spin.Tick, m.rebuildCmd())
		}

		var cmd tea.Cmd
		before := m.input.Value()
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() != before {
			m.search()
		}
		return m, cmd

	case rebuildDoneMsg:
		m.building = false
		if msg.err != nil {
			m.status = "rebuild failed: " + msg.err.Error()
			return m, nil
		}
		m.docs = msg.stats.Docs
		m.chunks = msg.stats.Chunks
		m.status = fmt.Sprintf("indexed %d docs, %d chunks in %s",
			msg.stats.Docs, msg.stats.Chunks, msg.stats.Duration.Round(time.Millisecond))
		m.search()
		return m, nil

	case spinner.TickMsg:
		if !m.building {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m searchModel) View() string {
	if !m.ready {
		return "loading..."
	}

	header := m.styles.Header.Render("notedex")
	if m.root != "" {
		header += "  " + m.styles.Dim.Render(m.root)
	}
	if m.docs > 0 {
		header += "  " + m.styles.Label.Render(fmt.Sprintf("%d docs / %d chunks", m.docs, m.chunks))
	}

	panel := m.styles.Panel.Width(m.preview.Width + 2)

	footer := m.styles.Dim.Render(searchHint)
	if m.status != "" {
		status := m.status
		if m.building {
			status = m.spin.View() + " " + status
		}
		footer = m.styles.Label.Render(status) + "  " + footer
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		panel.Render(m.input.View()),
		panel.Render(m.renderResults()),
		panel.Render(m.preview.View()),
		footer,
	)
}

// search re-runs the current query and refreshes results and preview.
func (m *searchModel) search() {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		m.results = nil
		m.cursor = 0
		m.status = ""
		m.preview.SetContent(m.renderPreview())
		return
	}

	results, err := m.searcher.Search(m.ctx, query, m.limit)
	if err != nil {
		m.results = nil
		m.cursor = 0
		m.status = "search failed: " + err.Error()
		m.preview.SetContent(m.renderPreview())
		return
	}

	m.results = results
	m.cursor = 0
	switch len(results) {
	case 0:
		m.status = "no matches"
	case 1:
		m.status = "1 match"
	default:
		m.status = fmt.Sprintf("%d matches", len(results))
	}
	m.preview.SetContent(m.renderPreview())
}

// layout recomputes component sizes after a terminal resize. The input
// and result panels have fixed heights; the preview takes the rest.
func (m *searchModel) layout() {
	fw, fh := m.styles.Panel.GetFrameSize()

	// header + footer + input panel + result rows + preview frame
	reserved := 2 + (1 + fh) + (m.limit + fh) + fh
	vh := m.height - reserved
	if vh < 3 {
		vh = 3
	}

	vw := m.width - fw
	if vw < 20 {
		vw = 20
	}

	m.preview.Width = vw
	m.preview.Height = vh
	m.input.Width = vw - len(m.input.Prompt)
	m.preview.SetContent(m.renderPreview())
}

func (m searchModel) renderResults() string {
	if len(m.results) == 0 {
		if strings.TrimSpace(m.input.Value()) == "" {
			return m.styles.Dim.Render("start typing to search your notes")
		}
		return m.styles.Dim.Render("no matches")
	}

	var b strings.Builder
	for i, res := range m.results {
		line := fmt.Sprintf("%.2f  %s", res.Score, resultTitle(res))
		if i == m.cursor {
			b.WriteString(m.styles.Selected.Render("> " + line))
		} else {
			b.WriteString(m.styles.Label.Render("  " + line))
		}
		if i < len(m.results)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m searchModel) renderPreview() string {
	if len(m.results) == 0 {
		return m.styles.Dim.Render("nothing selected")
	}

	res := m.results[m.cursor]

	var b strings.Builder
	b.WriteString(m.styles.Header.Render(resultTitle(res)))
	b.WriteByte('\n')

	meta := res.Chunk.Href
	if res.Chunk.Date != "" {
		meta += "  " + res.Chunk.Date
	}
	b.WriteString(m.styles.Dim.Render(meta))
	for _, tag := range res.Chunk.Tags {
		b.WriteString(" " + m.styles.Tag.Render("#"+tag))
	}
	b.WriteString("\n\n")

	snippet := res.Chunk.Snippet
	if m.preview.Width > 0 {
		snippet = lipgloss.NewStyle().Width(m.preview.Width).Render(snippet)
	}
	b.WriteString(snippet)

	return b.String()
}

func (m searchModel) rebuildCmd() tea.Cmd {
	return func() tea.Msg {
		stats, err := m.searcher.Rebuild(m.ctx)
		return rebuildDoneMsg{stats: stats, err: err}
	}
}

// RunTUI runs the interactive search screen until the user quits. The
// searcher should already hold a built index; rebuilds can be triggered
// from inside the screen with ctrl+r.
func RunTUI(ctx context.Context, s Searcher, cfg Config) error {
	if s == nil {
		return dexerrors.ValidationError("searcher is required", nil)
	}

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if cfg.Output != nil {
		opts = append(opts, tea.WithOutput(cfg.Output))
	}

	p := tea.NewProgram(newSearchModel(ctx, s, cfg), opts...)
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return dexerrors.InternalError("terminal ui failed", err)
	}
	return nil
}
