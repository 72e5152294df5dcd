package ui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/wallboxctl/internal/logstore"
	"github.com/five82/wallboxctl/internal/prefs"
	"github.com/five82/wallboxctl/internal/state"
	"github.com/five82/wallboxctl/internal/wallbox"
)

// Actions runs charger commands on behalf of the operator.
type Actions interface {
	Do(ctx context.Context, action wallbox.Action) (*wallbox.ActionResult, error)
}

// LogStore is the slice of the log store the panel needs.
type LogStore interface {
	Entries() []logstore.Entry
	Clear()
	Download() string
	DownloadTo(saver logstore.Saver) string
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Actions   Actions
	Store     *state.Store
	Logs      LogStore
	Controls  wallbox.ControlSet
	APIURL    string
	ExportDir string
	PollTick  time.Duration
	ThemeName string
	LogLevel  string
	PrefsPath string

	// Updates signals that the poller finished a refresh. When set, action
	// completion waits for it instead of re-reading the store at once.
	Updates <-chan struct{}

	// Clipboard receives the export on y. Nil uses the system clipboard.
	Clipboard logstore.Saver
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	actions   Actions
	store     *state.Store
	logs      LogStore
	controls  wallbox.ControlSet
	apiURL    string
	exportDir string
	clipboard logstore.Saver
	prefsPath string
	updates   <-chan struct{}
	pollTick  time.Duration
	keys      keyMap

	// UI state
	theme    Theme
	width    int
	height   int
	ready    bool
	showHelp bool

	// Data state
	snapshot state.Snapshot
	entries  []logstore.Entry

	// Action state
	pending   *wallbox.Action
	actionErr string
	notice    string
	noticeAt  time.Time

	// Log state
	logViewport  viewport.Model
	minLevel     logstore.Level
	follow       bool
	clearPending time.Time
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = DefaultThemeName
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	minLevel, err := logstore.ParseLevel(opts.LogLevel)
	if err != nil || opts.LogLevel == "" {
		minLevel = logstore.LevelDebug
	}

	controls := opts.Controls
	if controls == "" {
		controls = wallbox.ControlsRestricted
	}

	clip := opts.Clipboard
	if clip == nil {
		clip = logstore.ClipboardSaver{}
	}

	return Model{
		ctx:       ctx,
		actions:   opts.Actions,
		store:     opts.Store,
		logs:      opts.Logs,
		controls:  controls,
		apiURL:    opts.APIURL,
		exportDir: opts.ExportDir,
		clipboard: clip,
		prefsPath: prefsPath,
		updates:   opts.Updates,
		pollTick:  pollTick,
		keys:      DefaultKeyMap(),
		theme:     GetTheme(themeName),
		minLevel:  minLevel,
		follow:    true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(m.pollTick), m.refreshCmd(), waitForUpdate(m.ctx, m.updates))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.initLogViewport()
		}
		m.ready = true
		m.resizeLogViewport()
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case refreshMsg:
		m.snapshot = msg.snapshot
		m.setEntries(msg.entries)
		return m, nil

	case polledMsg:
		return m, tea.Batch(m.refreshCmd(), waitForUpdate(m.ctx, m.updates))

	case actionDoneMsg:
		return m.handleActionDone(msg)
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if !key.Matches(msg, m.keys.Clear) {
		m.clearPending = time.Time{}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.CycleLevel):
		m.minLevel = nextLevel(m.minLevel)
		m.savePrefs()
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Download):
		m.downloadLogs()
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		m.copyLogs()
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		m.clearLogs()
		return m, nil
	}

	for _, a := range wallbox.AllActions() {
		if key.Matches(msg, m.keys.actionBinding(a)) {
			return m.startAction(a)
		}
	}

	return m.handleLogsKey(msg)
}

// handleTick processes the polling tick.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	if m.notice != "" && now.Sub(m.noticeAt) > NoticeTTL {
		m.notice = ""
	}
	if !m.clearPending.IsZero() && now.Sub(m.clearPending) > ClearConfirmWindow {
		m.clearPending = time.Time{}
	}
	return m, tea.Batch(m.refreshCmd(), tickCmd(m.pollTick))
}

// actionState reports whether a is usable right now and, if not, why.
func (m Model) actionState(a wallbox.Action) (bool, string) {
	switch {
	case !m.controls.Permits(a):
		return false, titleCase(a.Name()) + " is not available"
	case m.pending != nil:
		return false, titleCase(m.pending.Name()) + " is in progress"
	case !m.snapshot.HasStatus || !m.snapshot.Connected:
		return false, "Cannot reach wallbox controller"
	case !a.Allowed(m.snapshot.Status):
		return false, fmt.Sprintf("Cannot %s while %s", a.Name(), strings.ToLower(m.snapshot.Status.State))
	}
	return true, ""
}

func (m Model) startAction(a wallbox.Action) (tea.Model, tea.Cmd) {
	if ok, reason := m.actionState(a); !ok {
		m.setNotice(reason)
		return m, nil
	}
	if m.actions == nil {
		return m, nil
	}
	action := a
	m.pending = &action
	m.notice = ""
	return m, actionCmd(m.ctx, m.actions, a)
}

func (m Model) handleActionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	m.pending = nil
	if msg.err != nil {
		m.actionErr = msg.err.Error()
		if errors.Is(msg.err, context.Canceled) {
			m.actionErr = ""
		}
	} else {
		m.actionErr = ""
		message := titleCase(msg.action.Name()) + " succeeded"
		if msg.result != nil && msg.result.Message != "" {
			message = msg.result.Message
		}
		m.setNotice(message)
	}
	if m.updates != nil {
		// The controller triggered a re-poll; its polledMsg brings fresh status.
		return m, nil
	}
	return m, m.refreshCmd()
}

func (m *Model) downloadLogs() {
	if m.logs == nil {
		return
	}
	name := m.logs.Download()
	if name == "" {
		m.actionErr = "Failed to download logs"
		return
	}
	m.actionErr = ""
	path := name
	if m.exportDir != "" {
		path = filepath.Join(m.exportDir, name)
	}
	m.setNotice("Saved " + truncateMiddle(path, 60))
}

func (m *Model) copyLogs() {
	if m.logs == nil {
		return
	}
	if m.logs.DownloadTo(m.clipboard) == "" {
		m.actionErr = "Failed to copy logs to clipboard"
		return
	}
	m.actionErr = ""
	m.setNotice(fmt.Sprintf("Copied %d log entries to clipboard", len(m.logs.Entries())))
}

// clearLogs needs C twice within ClearConfirmWindow.
func (m *Model) clearLogs() {
	if m.logs == nil {
		return
	}
	if m.clearPending.IsZero() {
		m.clearPending = time.Now()
		m.setNotice("Press C again to clear all logs")
		return
	}
	m.clearPending = time.Time{}
	m.logs.Clear()
	m.setEntries(m.logs.Entries())
	m.setNotice("Logs cleared")
}

func (m *Model) setNotice(text string) {
	m.notice = text
	m.noticeAt = time.Now()
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, LogLevel: string(m.minLevel)})
}

func (m Model) refreshCmd() tea.Cmd {
	if m.store == nil && m.logs == nil {
		return nil
	}
	return fetchCmd(m.store, m.logs)
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderBanner())
	b.WriteString("\n")
	b.WriteString(m.renderStatusPanel())
	b.WriteString("\n")
	b.WriteString(m.renderControls())
	b.WriteString("\n")
	b.WriteString(m.renderMessage())
	b.WriteString("\n")
	b.WriteString(m.renderLogs())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())

	return b.String()
}

// Messages

type tickMsg time.Time

// polledMsg reports that the poller wrote a new snapshot.
type polledMsg struct{}

type refreshMsg struct {
	snapshot state.Snapshot
	entries  []logstore.Entry
}

type actionDoneMsg struct {
	action wallbox.Action
	result *wallbox.ActionResult
	err    error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchCmd(store *state.Store, logs LogStore) tea.Cmd {
	return func() tea.Msg {
		var msg refreshMsg
		if store != nil {
			msg.snapshot = store.Snapshot()
		}
		if logs != nil {
			msg.entries = logs.Entries()
		}
		return msg
	}
}

// waitForUpdate blocks until the poller signals or ctx ends.
func waitForUpdate(ctx context.Context, updates <-chan struct{}) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-updates:
			return polledMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func actionCmd(ctx context.Context, actions Actions, a wallbox.Action) tea.Cmd {
	return func() tea.Msg {
		result, err := actions.Do(ctx, a)
		return actionDoneMsg{action: a, result: result, err: err}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
