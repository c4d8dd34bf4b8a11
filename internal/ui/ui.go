package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/upskiller-xyz/daylight-tui/internal/analysis"
	"github.com/upskiller-xyz/daylight-tui/internal/heatmap"
	"github.com/upskiller-xyz/daylight-tui/internal/inference"
	"github.com/upskiller-xyz/daylight-tui/internal/report"
	"github.com/upskiller-xyz/daylight-tui/internal/settings"
	"github.com/upskiller-xyz/daylight-tui/internal/store"
	"github.com/upskiller-xyz/daylight-tui/internal/util"
)

const (
	viewMainMenu = "main_menu"
	viewSettings = "settings"
	viewRooms    = "rooms"
	viewRunning  = "running"
	viewReport   = "report"
	viewHelp     = "help"
)

// Settings form field order, top to bottom.
const (
	fieldWallMode = iota
	fieldTransmission
	fieldGroundLevel
	fieldExecMode
	fieldWriteResults
	fieldCount
)

type model struct {
	ctx     context.Context
	db      *store.DB
	cfg     util.Config
	version string

	view   string
	width  int
	height int

	theme  palette
	styles struct {
		title  lipgloss.Style
		box    lipgloss.Style
		cursor lipgloss.Style
		muted  lipgloss.Style
		warn   lipgloss.Style
		ok     lipgloss.Style
	}

	// settings form
	sett       settings.Settings
	transInput string
	levels     []store.Level
	levelIdx   int // index into levels; -1 when nothing selected
	fieldIdx   int
	formStatus string

	// room picker
	rooms   []store.Room
	roomIdx int

	// analysis
	predictorFor func(settings.ExecutionMode) analysis.Predictor
	runStatus    string
	outcome      *analysis.Outcome
	rendered     string
	scroll       int
}

type analysisDoneMsg struct {
	outcome *analysis.Outcome
	err     error
}

type prepareDoneMsg struct {
	markdown string
	err      error
}

func initialModel(ctx context.Context, db *store.DB, cfg util.Config, version string) model {
	m := model{
		ctx:      ctx,
		db:       db,
		cfg:      cfg,
		version:  version,
		view:     viewMainMenu,
		sett:     settings.Defaults(),
		levelIdx: -1,
	}
	m.theme = paletteFor(cfg.Theme)
	m.styles.title = lipgloss.NewStyle().Bold(true).Foreground(m.theme.Accent)
	m.styles.box = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(m.theme.Border).Padding(1, 2)
	m.styles.cursor = lipgloss.NewStyle().Bold(true).Foreground(m.theme.AccentAlt)
	m.styles.muted = lipgloss.NewStyle().Foreground(m.theme.Muted)
	m.styles.warn = lipgloss.NewStyle().Foreground(m.theme.Warning)
	m.styles.ok = lipgloss.NewStyle().Foreground(m.theme.Success)
	m.predictorFor = func(mode settings.ExecutionMode) analysis.Predictor {
		return inference.NewClient(inference.BaseURLFor(mode, cfg.WebBaseURL, cfg.LocalBaseURL))
	}
	return m
}

// openSettings loads the settings file and the level list, then shows the form.
func (m *model) openSettings() {
	s, err := settings.Load(m.cfg.SettingsPath)
	if err != nil {
		m.formStatus = "Could not read settings; defaults loaded"
	} else {
		m.formStatus = ""
	}
	m.sett = s
	m.transInput = fmt.Sprintf("%d", s.TransmissionPercent)
	m.fieldIdx = 0
	m.refreshLevels()
	m.view = viewSettings
}

func (m *model) refreshLevels() {
	m.levels = nil
	m.levelIdx = -1
	if m.db == nil {
		return
	}
	lr := store.NewLevelRepo(m.db)
	levels, err := lr.List(m.ctx)
	if err != nil {
		m.formStatus = "Could not load levels: " + err.Error()
		return
	}
	m.levels = levels
	m.selectStoredLevel()
}

// selectStoredLevel points the picker at the stored ground level, falling
// back to the first level when the stored reference is gone.
func (m *model) selectStoredLevel() {
	m.levelIdx = -1
	for i, l := range m.levels {
		if l.ID.String() == m.sett.GroundLevelID {
			m.levelIdx = i
			return
		}
	}
	if len(m.levels) == 0 {
		return
	}
	m.levelIdx = 0
	if m.sett.GroundLevelID != "" {
		m.formStatus = "Stored ground level is not in the model; first level selected"
	}
}

// saveSettings validates the form and persists the whole record.
func (m *model) saveSettings() {
	var trans int
	if _, err := fmt.Sscanf(strings.TrimSpace(m.transInput), "%d", &trans); err != nil {
		m.formStatus = fmt.Sprintf("Invalid transmission value %q: enter an integer between 0 and 100", m.transInput)
		return
	}
	s := m.sett
	s.TransmissionPercent = trans
	if m.levelIdx >= 0 && m.levelIdx < len(m.levels) {
		s.GroundLevelID = m.levels[m.levelIdx].ID.String()
	}
	if s.GroundLevelID == "" {
		m.formStatus = "Please select a ground floor level"
		return
	}
	if err := settings.Save(m.cfg.SettingsPath, s); err != nil {
		if err == settings.ErrTransmissionRange {
			m.formStatus = fmt.Sprintf("Invalid transmission value %d: must be between 0 and 100", trans)
		} else {
			m.formStatus = "Save failed: " + err.Error()
		}
		return
	}
	m.sett = s
	m.view = viewMainMenu
}

func (m *model) openRooms() {
	m.rooms = nil
	m.roomIdx = 0
	if m.db == nil {
		m.runStatus = "No model database connected"
		return
	}
	rr := store.NewRoomRepo(m.db)
	rooms, err := rr.List(m.ctx, uuid.Nil)
	if err != nil {
		m.runStatus = "Could not load rooms: " + err.Error()
		return
	}
	m.rooms = rooms
	m.view = viewRooms
}

func (m *model) startAnalysis(room store.Room) tea.Cmd {
	s, err := settings.Load(m.cfg.SettingsPath)
	if err == nil {
		m.sett = s
	}
	runner := &analysis.Runner{
		Model:         analysis.NewStoreModel(m.db),
		Predictor:     m.predictorFor(m.sett.ExecutionMode),
		Settings:      m.sett,
		GridSpacingMM: m.cfg.GridSpacing,
		OutDir:        filepath.Join(filepath.Dir(m.cfg.SettingsPath), "heatmaps"),
	}
	m.view = viewRunning
	m.runStatus = fmt.Sprintf("Analyzing %s via %s ...", roomLabel(room), m.sett.ExecutionMode)
	ctx := m.ctx
	return func() tea.Msg {
		out, err := runner.Analyze(ctx, room.ID)
		return analysisDoneMsg{outcome: out, err: err}
	}
}

func (m *model) startPrepare() tea.Cmd {
	if m.db == nil {
		m.runStatus = "No model database connected"
		return nil
	}
	m.view = viewRunning
	m.runStatus = "Preparing analysis parameters ..."
	ctx := m.ctx
	pr := store.NewParamRepo(m.db)
	return func() tea.Msg {
		created, err := pr.EnsureDefaults(ctx)
		if err != nil {
			return prepareDoneMsg{err: err}
		}
		all, err := pr.List(ctx)
		if err != nil {
			return prepareDoneMsg{err: err}
		}
		return prepareDoneMsg{markdown: report.PrepareSummary(created, all)}
	}
}

func (m *model) showReport(md string) {
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		m.rendered = md
	} else if out, err := renderer.Render(md); err == nil {
		m.rendered = out
	} else {
		m.rendered = md
	}
	m.scroll = 0
	m.view = viewReport
}

// tea.Model implementation ---------------------------------------------------

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case analysisDoneMsg:
		if msg.err != nil {
			m.runStatus = "Analysis failed: " + msg.err.Error()
			return m, nil
		}
		m.outcome = msg.outcome
		md := msg.outcome.Markdown
		m.showReport(md)
		return m, nil

	case prepareDoneMsg:
		if msg.err != nil {
			m.runStatus = "Prepare failed: " + msg.err.Error()
			return m, nil
		}
		m.outcome = nil
		m.showReport(msg.markdown)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m model) handleKey(k string) (tea.Model, tea.Cmd) {
	if k == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.view {
	case viewMainMenu:
		switch k {
		case "1":
			m.openSettings()
		case "2":
			return m, m.startPrepare()
		case "3":
			m.openRooms()
		case "4", "?":
			m.view = viewHelp
		case "q":
			return m, tea.Quit
		}
		return m, nil

	case viewSettings:
		return m.handleSettingsKey(k)

	case viewRooms:
		switch k {
		case "up", "k":
			if m.roomIdx > 0 {
				m.roomIdx--
			}
		case "down", "j":
			if m.roomIdx < len(m.rooms)-1 {
				m.roomIdx++
			}
		case "enter":
			if m.roomIdx >= 0 && m.roomIdx < len(m.rooms) {
				return m, m.startAnalysis(m.rooms[m.roomIdx])
			}
		case "esc", "q":
			m.view = viewMainMenu
		}
		return m, nil

	case viewRunning:
		if k == "esc" || k == "q" {
			m.view = viewMainMenu
		}
		return m, nil

	case viewReport:
		switch k {
		case "pgdown", "ctrl+f":
			m.scroll += 8
		case "pgup", "ctrl+b":
			m.scroll -= 8
		case "down", "j":
			m.scroll += 3
		case "up", "k":
			m.scroll -= 3
		case "home":
			m.scroll = 0
		case "end":
			m.scroll = 1 << 30
		case "esc", "q":
			m.view = viewMainMenu
		}
		if m.scroll < 0 {
			m.scroll = 0
		}
		return m, nil

	case viewHelp:
		if k == "esc" || k == "q" || k == "?" {
			m.view = viewMainMenu
		}
		return m, nil
	}
	return m, nil
}

func (m model) handleSettingsKey(k string) (tea.Model, tea.Cmd) {
	switch k {
	case "up":
		if m.fieldIdx > 0 {
			m.fieldIdx--
		}
	case "down", "tab":
		if m.fieldIdx < fieldCount-1 {
			m.fieldIdx++
		}
	case "left", "right", " ", "enter":
		m.cycleField(k == "left")
	case "backspace":
		if m.fieldIdx == fieldTransmission && len(m.transInput) > 0 {
			m.transInput = m.transInput[:len(m.transInput)-1]
		}
	case "s":
		m.saveSettings()
	case "esc":
		m.view = viewMainMenu
	default:
		if m.fieldIdx == fieldTransmission && len(k) == 1 && k[0] >= '0' && k[0] <= '9' && len(m.transInput) < 3 {
			m.transInput += k
		}
	}
	return m, nil
}

func (m *model) cycleField(backwards bool) {
	switch m.fieldIdx {
	case fieldWallMode:
		if m.sett.WallMode == settings.WallSingle {
			m.sett.WallMode = settings.WallMultiple
		} else {
			m.sett.WallMode = settings.WallSingle
		}
	case fieldGroundLevel:
		if len(m.levels) == 0 {
			return
		}
		step := 1
		if backwards {
			step = -1
		}
		m.levelIdx = (m.levelIdx + step + len(m.levels)) % len(m.levels)
	case fieldExecMode:
		if m.sett.ExecutionMode == settings.ModeWebServer {
			m.sett.ExecutionMode = settings.ModeLocalServer
		} else {
			m.sett.ExecutionMode = settings.ModeWebServer
		}
	case fieldWriteResults:
		m.sett.WriteResults = !m.sett.WriteResults
	}
}

// Rendering ------------------------------------------------------------------

func (m model) View() string {
	switch m.view {
	case viewMainMenu:
		return m.renderMainMenu()
	case viewSettings:
		return m.renderSettingsForm()
	case viewRooms:
		return m.renderRooms()
	case viewRunning:
		return m.renderRunning()
	case viewReport:
		return m.renderReport()
	case viewHelp:
		return m.renderHelp()
	}
	return ""
}

func (m model) renderMainMenu() string {
	content := m.styles.title.Render("DAYLIGHT FACTOR — "+m.version) + "\n\n" +
		"[1] Configure Settings\n" +
		"[2] Prepare Analysis Parameters\n" +
		"[3] Run Analysis on a Room\n" +
		"[4] Help\n\n" +
		m.styles.muted.Render("Q Quit")
	if m.runStatus != "" {
		content += "\n\n" + m.styles.warn.Render(m.runStatus)
	}
	return m.styles.box.Width(52).Render(content)
}

func (m model) renderSettingsForm() string {
	rows := []string{
		fmt.Sprintf("Facade walls      %s", enumChoice(string(m.sett.WallMode), string(settings.WallSingle), string(settings.WallMultiple))),
		fmt.Sprintf("Transmission (%%)  [%s]", m.transInput),
		fmt.Sprintf("Ground level      %s", m.levelLabel()),
		fmt.Sprintf("Execution mode    %s", enumChoice(string(m.sett.ExecutionMode), string(settings.ModeWebServer), string(settings.ModeLocalServer))),
		fmt.Sprintf("Write results     %s", yesNo(m.sett.WriteResults)),
	}
	var b strings.Builder
	b.WriteString(m.styles.title.Render("DAYLIGHT SETTINGS") + "\n\n")
	for i, row := range rows {
		cursor := "  "
		if i == m.fieldIdx {
			cursor = m.styles.cursor.Render("> ")
		}
		b.WriteString(cursor + row + "\n")
	}
	b.WriteString("\n" + m.styles.muted.Render("↑/↓ field  ←/→/space change  digits edit  [S] save  [Esc] cancel"))
	if m.formStatus != "" {
		b.WriteString("\n" + m.styles.warn.Render(m.formStatus))
	}
	return m.styles.box.Width(64).Render(b.String())
}

func (m model) levelLabel() string {
	if len(m.levels) == 0 {
		if m.sett.GroundLevelID != "" {
			return m.sett.GroundLevelID
		}
		return "(no levels in model)"
	}
	if m.levelIdx < 0 || m.levelIdx >= len(m.levels) {
		return "(none)"
	}
	l := m.levels[m.levelIdx]
	return fmt.Sprintf("%s (%.0f mm)", l.Name, l.ElevationMM)
}

func (m model) renderRooms() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render("SELECT ROOM") + "\n\n")
	if len(m.rooms) == 0 {
		b.WriteString("(no rooms in model)\n")
	}
	for i, r := range m.rooms {
		cursor := "  "
		if i == m.roomIdx {
			cursor = m.styles.cursor.Render("> ")
		}
		b.WriteString(fmt.Sprintf("%s%-24s %6.1f m²\n", cursor, roomLabel(r), r.Boundary.AreaM2()))
	}
	b.WriteString("\n" + m.styles.muted.Render("↑/↓ select  [Enter] analyze  [Esc] back"))
	return m.styles.box.Width(52).Render(b.String())
}

func (m model) renderRunning() string {
	body := m.runStatus
	if body == "" {
		body = "Working ..."
	}
	return m.styles.box.Width(64).Render(m.styles.title.Render("ANALYSIS") + "\n\n" + body + "\n\n" + m.styles.muted.Render("[Esc] back"))
}

func (m model) renderReport() string {
	title := m.styles.title.Render("RESULTS") + "  " + m.styles.muted.Render("(↑/↓ scroll, Esc back)")
	body := m.rendered
	if m.outcome != nil {
		preview := heatmap.TerminalPreview(m.outcome.Response, heatmap.Options{}, maxInt(20, m.width-4))
		body += "\n" + preview
	}
	lines := strings.Split(body, "\n")
	avail := m.height - 3
	if avail < 5 {
		avail = len(lines)
	}
	start := m.scroll
	maxStart := len(lines) - avail
	if maxStart < 0 {
		maxStart = 0
	}
	if start > maxStart {
		start = maxStart
	}
	end := start + avail
	if end > len(lines) {
		end = len(lines)
	}
	return title + "\n" + strings.Join(lines[start:end], "\n")
}

func (m model) renderHelp() string {
	return m.styles.box.Width(72).Render(m.styles.title.Render("HELP") + "\n\n" +
		"This tool configures and runs room-level daylight factor estimation.\n" +
		"The prediction model runs on an external server; pick between the\n" +
		"hosted web server and a locally started one in the settings.\n\n" +
		"1. Configure Settings — wall mode, glazing transmission (0-100),\n" +
		"   ground floor level, execution mode, and whether computed metrics\n" +
		"   are written back onto the model.\n" +
		"2. Prepare Analysis Parameters — creates the shared result\n" +
		"   parameters in the model database (idempotent).\n" +
		"3. Run Analysis — sends the room boundary to the inference server\n" +
		"   and shows the daylight factor heatmap and EN 17037 verdict.\n\n" +
		"Themes: "+strings.Join(themeNames(), ", ")+" (--theme flag)\n\n" +
		m.styles.muted.Render("[Esc] back"))
}

// Helpers --------------------------------------------------------------------

func enumChoice(current string, options ...string) string {
	parts := make([]string, len(options))
	for i, o := range options {
		if o == current {
			parts[i] = "(•) " + o
		} else {
			parts[i] = "( ) " + o
		}
	}
	return strings.Join(parts, "  ")
}

func yesNo(v bool) string {
	if v {
		return enumChoice("yes", "yes", "no")
	}
	return enumChoice("no", "yes", "no")
}

func roomLabel(r store.Room) string {
	if r.Number != "" {
		return r.Number + " " + r.Name
	}
	return r.Name
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
