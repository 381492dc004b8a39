package ui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/desertthunder/plx/internal/tasks"
)

// TargetStepMB is the amount the +/- keys change the target size by.
const TargetStepMB = 10

const maxBarWidth = 60

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	ConfirmView
	TruncateView
	ResultView
)

// PlaylistSource lists the playlists offered for truncation.
type PlaylistSource interface {
	List(ctx context.Context) ([]models.Playlist, error)
}

// Truncator starts background truncations.
type Truncator interface {
	StartTruncate(ctx context.Context, nameOrID string, opts tasks.TruncateOpts) *tasks.Task
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	source       PlaylistSource
	engine       Truncator
	opts         tasks.TruncateOpts
	preselect    string
	width        int
	height       int
	playlistList list.Model
	playlists    []models.Playlist
	removedList  list.Model
	selected     *models.Playlist
	task         *tasks.Task
	progress     tasks.ProgressUpdate
	fraction     float64
	bar          progress.Model
	canceling    bool
	result       *tasks.TruncateResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model. opts holds the initial target size, seed and dry run setting.
func NewModel(ctx context.Context, source PlaylistSource, engine Truncator, opts tasks.TruncateOpts) *Model {
	playlistList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	playlistList.Title = "Playlists"

	removedList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	removedList.Title = "Removed tracks"
	removedList.SetFilteringEnabled(false)

	return &Model{
		ctx:          ctx,
		view:         PlaylistListView,
		source:       source,
		engine:       engine,
		opts:         opts,
		playlistList: playlistList,
		removedList:  removedList,
		bar:          progress.New(progress.WithDefaultGradient(), progress.WithWidth(maxBarWidth)),
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Select skips the playlist list and opens the confirmation for the named playlist.
func (m *Model) Select(nameOrID string) *Model {
	m.preselect = nameOrID
	return m
}

// Result returns the outcome of the last truncation, if any.
func (m *Model) Result() (*tasks.TruncateResult, error) {
	return m.result, m.err
}

// Init initializes the TUI by loading the playlists.
func (m *Model) Init() tea.Cmd {
	return m.fetchPlaylists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlistList.SetSize(max(0, msg.Width-4), max(0, msg.Height-8))
		m.removedList.SetSize(max(0, msg.Width-4), max(0, msg.Height-14))
		m.bar.Width = max(10, min(msg.Width-4, maxBarWidth))
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case TruncateView:
			return m.handleTruncateKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsFetched:
		data := msg.data.(playlistsFetched)
		if data.err != nil {
			m.err = data.err
			return m, tea.Quit
		}
		m.setPlaylists(data.playlists)
		if m.preselect == "" {
			return m, nil
		}

		name := m.preselect
		m.preselect = ""
		for i := range m.playlists {
			if m.playlists[i].ID == name || m.playlists[i].Name == name {
				m.selected = &m.playlists[i]
				m.view = ConfirmView
				return m, nil
			}
		}
		m.err = fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, name)
		return m, tea.Quit

	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.progress = update
		switch update.Phase {
		case tasks.PruneTracks:
			if p, ok := update.Data.(tasks.PruneProgress); ok {
				m.fraction = p.Fraction
			}
		case tasks.ApplyRemovals:
			m.fraction = 1
		}
		return m, m.waitForProgress()

	case MsgTruncateComplete:
		data := msg.data.(truncateComplete)
		m.result = data.result
		m.err = data.err
		m.task = nil
		m.canceling = false
		m.view = ResultView
		if data.result != nil {
			m.fraction = 1
			items := make([]list.Item, len(data.result.Removed))
			for i, track := range data.result.Removed {
				items[i] = trackItem{track: track}
			}
			m.removedList.SetItems(items)
		}
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case ConfirmView:
		return m.renderConfirm()
	case TruncateView:
		return m.renderTruncate()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) setPlaylists(playlists []models.Playlist) {
	m.playlists = playlists
	items := make([]list.Item, len(playlists))
	for i, pl := range playlists {
		items[i] = playlistItem{playlist: pl}
	}
	m.playlistList.SetItems(items)
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlistList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			selected := pl.playlist
			m.selected = &selected
			m.view = ConfirmView
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.no):
		m.view = PlaylistListView
		m.selected = nil
	case key.Matches(msg, m.keys.grow):
		if m.opts.TargetMB <= math.MaxInt64-TargetStepMB {
			m.opts.TargetMB += TargetStepMB
		}
	case key.Matches(msg, m.keys.shrink):
		m.opts.TargetMB = max(0, m.opts.TargetMB-TargetStepMB)
	case key.Matches(msg, m.keys.yes):
		return m, m.startTruncate()
	}
	return m, nil
}

func (m *Model) handleTruncateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) && m.task != nil {
		m.canceling = true
		m.task.Cancel()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = PlaylistListView
		m.selected = nil
		m.result = nil
		m.err = nil
		m.fraction = 0
		m.progress = tasks.ProgressUpdate{}
		m.removedList.SetItems(nil)
		return m, m.fetchPlaylists()
	}

	var cmd tea.Cmd
	m.removedList, cmd = m.removedList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case ResultView:
		m.removedList, cmd = m.removedList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.source.List(m.ctx)
		return playlistsFetchedMsg(playlists, err)
	}
}

func (m *Model) startTruncate() tea.Cmd {
	m.view = TruncateView
	m.fraction = 0
	m.task = m.engine.StartTruncate(m.ctx, m.selected.ID, m.opts)
	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	task := m.task
	return func() tea.Msg {
		if task == nil {
			return truncateCompleteMsg(nil, nil)
		}

		update, ok := <-task.Progress()
		if !ok {
			result, err := task.Wait()
			return truncateCompleteMsg(result, err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	pl := m.selected
	title := styles.title.Render(fmt.Sprintf("Truncate '%s'?", pl.Name))
	target := shared.MegabytesToBytes(m.opts.TargetMB)

	var b strings.Builder
	b.WriteString(row("Tracks", fmt.Sprintf("%d", pl.TrackCount)))
	b.WriteString(row("Size", shared.FormatSize(pl.Size)))
	b.WriteString(row("Target", fmt.Sprintf("%d MB (%s)", m.opts.TargetMB, shared.FormatSize(target))))
	b.WriteString(row("Seed", seedLabel(m.opts.Seed)))
	if m.opts.DryRun {
		b.WriteString(row("Mode", styles.As("dry run, playlist is left unchanged", lipgloss.Color("#FFA500"))))
	}
	if pl.Size <= target {
		b.WriteString("\n" + styles.warn.Render("Playlist already fits the target, nothing will be removed.") + "\n")
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.grow, m.keys.shrink, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, b.String(), helpView)
}

func (m *Model) renderTruncate() string {
	title := styles.title.Render(fmt.Sprintf("Truncating '%s'", m.selected.Name))

	var phase string
	switch m.progress.Phase {
	case tasks.LoadPlaylist:
		phase = "Loading playlist..."
	case tasks.PruneTracks:
		phase = fmt.Sprintf("Removing tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.ApplyRemovals:
		phase = "Saving playlist..."
	default:
		phase = "Starting..."
	}

	status := m.progress.Message
	if m.canceling {
		status = styles.warn.Render("Canceling...")
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s\n\n%s\n%s\n%s\n\n%s", title, phase, m.bar.ViewAs(m.fraction), status, helpView)
}

func (m *Model) renderResult() string {
	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	if m.err != nil {
		if errors.Is(m.err, context.Canceled) {
			return styles.warn.Render("Truncation canceled, the playlist was not changed.") + "\n\n" + helpView
		}
		return styles.err.Render(fmt.Sprintf("Truncation failed: %v", m.err)) + "\n\n" + helpView
	}

	if m.result == nil {
		return styles.err.Render("No result available") + "\n\n" + helpView
	}

	res := m.result
	title := styles.ok.Render("✓ Truncation Complete!")
	if res.DryRun {
		title = styles.ok.Render("✓ Dry Run Complete") + " " + styles.On(" DRY RUN ", lipgloss.Color("#FFA500"))
	}

	var b strings.Builder
	b.WriteString(row("Playlist", res.Playlist.Name))
	b.WriteString(row("Size", fmt.Sprintf("%s → %s", shared.FormatSize(res.InitialSize), shared.FormatSize(res.FinalSize))))
	b.WriteString(row("Target", shared.FormatSize(res.TargetSize)))
	b.WriteString(row("Removed", fmt.Sprintf("%d tracks (%d entries)", len(res.Removed), res.EntriesRemoved)))
	b.WriteString(row("Seed", fmt.Sprintf("%d", res.Seed)))

	removed := ""
	if len(res.Removed) > 0 {
		removed = "\n" + m.removedList.View()
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, b.String(), removed, helpView)
}

func row(label, value string) string {
	return styles.label.Render(label) + value + "\n"
}

func seedLabel(seed uint64) string {
	if seed == 0 {
		return styles.help.Render("random")
	}
	return fmt.Sprintf("%d", seed)
}
