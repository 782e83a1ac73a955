// Package tui is a terminal front end for the query controller and the
// detail loader.
package tui

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

	"moviefind/internal/model"
)

// trendingShown caps the trending strip.
const trendingShown = 10

// Controller is the part of the query controller the UI drives.
type Controller interface {
	Start()
	SetSearchText(text string)
	SetPage(delta int) bool
	Refresh()
	State() model.QueryState
}

// DetailLoader fetches one movie's detail view.
type DetailLoader interface {
	Load(ctx context.Context, id int) model.DetailView
}

// StateMsg carries a controller snapshot into the program.
type StateMsg model.QueryState

// detailMsg is the result of a detail load.
type detailMsg struct {
	id   int
	view model.DetailView
}

type screen int

const (
	screenList screen = iota
	screenDetail
)

type focus int

const (
	focusInput focus = iota
	focusList
)

// Model is the bubbletea model.
type Model struct {
	ctrl      Controller
	loader    DetailLoader
	imageBase string
	genres    model.GenreNamer

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model

	state  model.QueryState
	cards  []model.Card
	cursor int
	screen screen
	focus  focus

	detailID      int
	detailLoading bool
	detail        *model.DetailView

	width  int
	height int
}

// New creates the model. Call ctrl.Start from Init, not before the program
// runs.
func New(ctrl Controller, loader DetailLoader, imageBase string, genres model.GenreNamer) Model {
	ti := textinput.New()
	ti.Placeholder = "Search through thousands of movies"
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 50

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(primaryColor)

	m := Model{
		ctrl:      ctrl,
		loader:    loader,
		imageBase: imageBase,
		genres:    genres,
		input:     ti,
		spinner:   sp,
		viewport:  viewport.New(80, 20),
		width:     80,
		height:    24,
	}
	m.setState(ctrl.State())
	return m
}

// Init starts the controller and the spinner.
func (m Model) Init() tea.Cmd {
	ctrl := m.ctrl
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		func() tea.Msg {
			ctrl.Start()
			return StateMsg(ctrl.State())
		},
	)
}

func (m *Model) setState(st model.QueryState) {
	m.state = st
	m.cards = model.NewCards(st.Results, m.imageBase, m.genres)
	if m.cursor >= len(m.cards) {
		m.cursor = max(len(m.cards)-1, 0)
	}
}

// Update handles messages and user input
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 5)
		return m, nil

	case StateMsg:
		// snapshots can arrive out of order
		if msg.Version < m.state.Version {
			return m, nil
		}
		m.setState(model.QueryState(msg))
		return m, nil

	case detailMsg:
		if m.screen != screenDetail || msg.id != m.detailID {
			return m, nil
		}
		m.detailLoading = false
		view := msg.view
		m.detail = &view
		m.viewport.SetContent(m.renderDetail())
		m.viewport.GotoTop()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.screen == screenDetail {
			return m.updateDetail(msg)
		}
		return m.updateList(msg)
	}

	return m, nil
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace", "q":
		m.screen = screenList
		m.detail = nil
		m.detailLoading = false
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		if m.focus == focusInput {
			m.focus = focusList
			m.input.Blur()
			return m, nil
		}
		m.focus = focusInput
		return m, m.input.Focus()
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down":
		if m.cursor < len(m.cards)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		return m.openDetail()
	case "ctrl+r":
		m.ctrl.Refresh()
		return m, nil
	}

	if m.focus == focusList {
		switch msg.String() {
		case "left", "h":
			m.ctrl.SetPage(-1)
		case "right", "l":
			m.ctrl.SetPage(1)
		case "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "j":
			if m.cursor < len(m.cards)-1 {
				m.cursor++
			}
		case "q":
			return m, tea.Quit
		}
		return m, nil
	}

	prev := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != prev {
		m.ctrl.SetSearchText(v)
	}
	return m, cmd
}

func (m Model) openDetail() (tea.Model, tea.Cmd) {
	if len(m.cards) == 0 || m.state.IsLoading || m.state.ErrorMessage != "" {
		return m, nil
	}
	id := m.cards[m.cursor].ID
	m.screen = screenDetail
	m.detailID = id
	m.detailLoading = true
	m.detail = nil

	loader := m.loader
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return detailMsg{id: id, view: loader.Load(ctx, id)}
	}
}

// View renders the current screen.
func (m Model) View() string {
	if m.screen == screenDetail {
		if m.detailLoading {
			return m.spinner.View() + " Loading movie details..."
		}
		return m.viewport.View() + "\n" + helpStyle.Render("↑/↓ scroll • esc back • ctrl+c quit")
	}
	return m.renderList()
}

func (m Model) renderList() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("🎬 Find Movies You'll Enjoy Without the Hassle"))
	b.WriteString("\n")

	box := inputStyle
	if m.focus == focusInput {
		box = focusedInputStyle
	}
	b.WriteString(box.Render(m.input.View()))
	b.WriteString("\n\n")

	b.WriteString(m.renderTrending())

	switch m.state.Mode {
	case model.ModeSearching:
		b.WriteString(sectionStyle.Render(fmt.Sprintf("Results for %q", m.state.DebouncedSearchText)))
	default:
		b.WriteString(sectionStyle.Render("All Movies"))
	}
	b.WriteString("\n")

	switch {
	case m.state.IsLoading:
		b.WriteString(m.spinner.View() + " Loading...")
	case m.state.ErrorMessage != "":
		b.WriteString(errorStyle.Render(m.state.ErrorMessage))
		b.WriteString("\n" + dimStyle.Render("ctrl+r to retry"))
	case len(m.cards) == 0:
		b.WriteString(dimStyle.Render("No movies found."))
	default:
		for i, c := range m.cards {
			line := fmt.Sprintf("%s  %s  %s • %s", c.Title, ratingStyle.Render("★ "+c.Rating), c.Genre, c.Year)
			if i == m.cursor {
				b.WriteString(selectedItemStyle.Render("▸ " + line))
			} else {
				b.WriteString(itemStyle.Render(line))
			}
			b.WriteString("\n")
		}
	}

	if m.state.Mode == model.ModeBrowsing {
		b.WriteString("\n" + dimStyle.Render(fmt.Sprintf("← page %d →", m.state.Page)))
	}

	help := "tab focus list • enter details • ctrl+r retry • ctrl+c quit"
	if m.focus == focusList {
		help = "↑/↓ select • ←/→ page • enter details • tab search • q quit"
	}
	b.WriteString("\n" + helpStyle.Render(help))
	return b.String()
}

func (m Model) renderTrending() string {
	if m.state.TrendingLoading && len(m.state.Trending) == 0 {
		return sectionStyle.Render("Trending") + " " + m.spinner.View() + "\n\n"
	}
	if len(m.state.Trending) == 0 {
		return ""
	}
	n := min(len(m.state.Trending), trendingShown)
	titles := make([]string, 0, n)
	for i, mv := range m.state.Trending[:n] {
		titles = append(titles, fmt.Sprintf("%d. %s", i+1, mv.Title))
	}
	return sectionStyle.Render("Trending") + "\n" + dimStyle.Render(strings.Join(titles, "  ")) + "\n\n"
}

func (m Model) renderDetail() string {
	if m.detail == nil {
		return ""
	}
	if m.detail.Error != "" {
		return errorStyle.Render(m.detail.Error)
	}

	f := m.detail.Fields(m.imageBase)
	if f == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(f.Title))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s  %d votes • %s • %s • %s\n\n",
		ratingStyle.Render("★ "+f.Rating), f.VoteCount, f.Year, f.Certification, f.Runtime))

	if f.TrailerURL != "" {
		b.WriteString("Trailer: " + f.TrailerURL + "\n")
	} else {
		b.WriteString(dimStyle.Render(f.TrailerText) + "\n")
	}
	for _, n := range m.detail.Notices {
		b.WriteString(noticeStyle.Render(n.Message) + "\n")
	}
	b.WriteString("\n" + f.Overview + "\n\n")

	rows := [][2]string{
		{"Genres", f.Genres},
		{"Main actors", f.MainActors},
		{"Release date", f.ReleaseDate},
		{"Countries", f.Countries},
		{"Status", f.Status},
		{"Languages", f.Languages},
		{"Budget", f.Budget},
		{"Revenue", f.Revenue},
		{"Production", f.Companies},
		{"Homepage", f.Homepage},
		{"Poster", f.PosterURL},
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		b.WriteString(sectionStyle.Render(r[0]+": ") + r[1] + "\n")
	}
	return b.String()
}
