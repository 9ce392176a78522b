// Package tui is the interactive terminal viewer for uploaded profiles.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/okian/profiles/internal/app"
	"github.com/okian/profiles/pkg/logger"
)

const (
	nameWidth   = 28
	urlWidth    = 48
	scoreWidth  = 8
	tableHeight = 11 // a default page; larger pages scroll
)

// Messages produced by the viewer's commands.
type (
	uploadDoneMsg   struct{ err error }
	downloadDoneMsg struct {
		path string
		err  error
	}
)

// Model is the bubbletea model of the viewer. It renders one session:
// a spinner while the selected file uploads, then the current page.
type Model struct {
	ctx     context.Context
	sess    *app.Session
	saveDir string
	logger  logger.Logger

	spinner spinner.Model
	table   table.Model
	styles  Styles

	loading bool
	status  string
	failed  bool
}

// New builds a viewer over sess, whose file must already be selected.
// Downloads are saved into saveDir ("" for the working directory).
func New(ctx context.Context, sess *app.Session, saveDir string, l logger.Logger) Model {
	if l == nil {
		l = logger.Nop()
	}
	styles := DefaultStyles()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Full Name", Width: nameWidth},
			{Title: "LinkedIn URL", Width: urlWidth},
			{Title: "Score", Width: scoreWidth},
		}),
		table.WithFocused(true),
		table.WithHeight(tableHeight),
	)

	return Model{
		ctx:     ctx,
		sess:    sess,
		saveDir: saveDir,
		logger:  l,
		spinner: sp,
		table:   t,
		styles:  styles,
		loading: true,
	}
}

// Init starts the upload and the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.upload())
}

func (m Model) upload() tea.Cmd {
	return func() tea.Msg {
		return uploadDoneMsg{err: m.sess.Upload(m.ctx)}
	}
}

func (m Model) download() tea.Cmd {
	return func() tea.Msg {
		path, err := m.sess.SaveDownload(m.ctx, m.saveDir)
		return downloadDoneMsg{path: path, err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case uploadDoneMsg:
		m.loading = false
		if msg.err != nil {
			m.setStatus("no profiles loaded", false)
		} else {
			m.setStatus(fmt.Sprintf("loaded %d profiles", m.sess.Snapshot().Total), false)
		}
		m.refresh()
		return m, nil

	case downloadDoneMsg:
		switch {
		case msg.err != nil:
			m.setStatus(fmt.Sprintf("download failed: %v", msg.err), true)
		case msg.path == "":
			m.setStatus("nothing to download yet", false)
		default:
			m.setStatus("saved "+msg.path, false)
		}
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		if m.loading {
			return m, nil
		}
		switch msg.String() {
		case "s":
			order := m.sess.ToggleSort()
			m.setStatus("sorted "+strings.ToLower(order.Title()), false)
			m.refresh()
			return m, nil
		case "right", "l":
			m.turnPage(1)
			return m, nil
		case "left", "h":
			m.turnPage(-1)
			return m, nil
		case "d":
			m.setStatus("downloading...", false)
			return m, m.download()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) turnPage(delta int) {
	page := m.sess.Snapshot().Page + delta
	if err := m.sess.SetPage(page); err != nil {
		m.logger.Debug(m.ctx, "page change ignored", logger.Int("page", page), logger.Error(err))
		return
	}
	m.refresh()
}

func (m *Model) setStatus(s string, failed bool) {
	m.status = s
	m.failed = failed
}

// refresh copies the current page into the table widget.
func (m *Model) refresh() {
	snap := m.sess.Snapshot()
	rows := make([]table.Row, 0, len(snap.Rows))
	for _, p := range snap.Rows {
		rows = append(rows, table.Row{p.FullName, p.URL, strconv.FormatFloat(p.Score, 'f', -1, 64)})
	}
	m.table.SetRows(rows)
	m.table.SetCursor(0)
}

// View renders the viewer.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Profile Scores"))
	b.WriteString("\n")

	if m.loading {
		b.WriteString(m.spinner.View() + " Uploading " + m.sess.Uploader().Selected() + "...\n")
		return b.String()
	}

	snap := m.sess.Snapshot()
	if snap.Total > 0 {
		b.WriteString(fmt.Sprintf("Sort by Score (%s)\n", snap.Order.Title()))
		b.WriteString(m.table.View())
		b.WriteString("\n")
		for _, l := range snap.Labels {
			if l.Clickable() && l.Page == snap.Page {
				b.WriteString(m.styles.CurrentPage.Render(l.String()))
				continue
			}
			b.WriteString(m.styles.Page.Render(l.String()))
		}
		b.WriteString("\n")
	}

	if m.status != "" {
		style := m.styles.Status
		if m.failed {
			style = m.styles.Error
		}
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Help.Render("s sort • ←/h →/l page • d download • q quit"))
	b.WriteString("\n")
	return b.String()
}
