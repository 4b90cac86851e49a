package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/story-export/internal/handlers"
	"github.com/jwebster45206/story-export/pkg/dialog"
	"github.com/jwebster45206/story-export/pkg/export"
	"github.com/jwebster45206/story-export/pkg/exporterr"
	queuePkg "github.com/jwebster45206/story-export/pkg/queue"
	"github.com/jwebster45206/story-export/pkg/storage"
)

// modes are cycled with tab, function first
var modes = []string{handlers.ModeFunction, handlers.ModeAction, handlers.ModePreview}

// copyToClipboard is swapped in tests
var copyToClipboard = clipboard.WriteAll

// ConsoleUI is the BubbleTea model that browses the export of a fixture's dialogs.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	fixture      *storage.Fixture
	dialog       *dialog.Graph
	codeViewport viewport.Model
	metaViewport viewport.Model
	ready        bool
	width        int
	height       int
	err          error
	status       string
	loading      bool

	selectedNode int
	mode         int
	result       *handlers.RenderResponse
	export       *export.DialogExport

	// Dialog selection state
	showDialogModal bool
	selectedDialog  int

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type renderMsg struct {
	nodeID string
	mode   string
	resp   *handlers.RenderResponse
	err    error
}

type exportQueuedMsg struct {
	job *queuePkg.Job
	err error
}

type jobMsg struct {
	job *queuePkg.Job
	err error
}

type progressTickMsg struct{}

var (
	codePanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(2)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	nodeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	selectedNodeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	codeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client, fixture *storage.Fixture) ConsoleUI {
	codeVp := viewport.New(60, 20)
	codeVp.MouseWheelEnabled = true

	metaVp := viewport.New(30, 20)

	return ConsoleUI{
		config:          cfg,
		client:          client,
		fixture:         fixture,
		codeViewport:    codeVp,
		metaViewport:    metaVp,
		showDialogModal: true,
	}
}

// openDialog selects the dialog with the given id and closes the selection modal
func (m ConsoleUI) openDialog(id string) (ConsoleUI, error) {
	for i, g := range m.fixture.Dialogs {
		if g.ID == id {
			m.selectedDialog = i
			m.dialog = g
			m.selectedNode = 0
			m.result = nil
			m.export = nil
			m.showDialogModal = false
			return m, nil
		}
	}
	return m, fmt.Errorf("dialog %q not found in fixture", id)
}

func (m ConsoleUI) currentNode() *dialog.Node {
	if m.dialog == nil || m.selectedNode >= len(m.dialog.Nodes) {
		return nil
	}
	return &m.dialog.Nodes[m.selectedNode]
}

func (m ConsoleUI) currentMode() string {
	return modes[m.mode]
}

func (m ConsoleUI) Init() tea.Cmd {
	if m.showDialogModal {
		return nil
	}
	return m.renderCurrent()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showDialogModal {
		return m.updateDialogModal(msg)
	}

	var (
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.codeViewport, vpCmd = m.codeViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.ready = true
		m.writeContent()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyUp:
			if m.selectedNode > 0 {
				m.selectedNode--
				return m.startRender()
			}
			return m, nil
		case tea.KeyDown:
			if m.dialog != nil && m.selectedNode < len(m.dialog.Nodes)-1 {
				m.selectedNode++
				return m.startRender()
			}
			return m, nil
		case tea.KeyTab:
			m.mode = (m.mode + 1) % len(modes)
			return m.startRender()
		}

		switch msg.String() {
		case "e":
			if m.loading {
				return m, nil
			}
			m.loading = true
			m.progressTick = 0
			m.status = "Export queued..."
			m.writeContent()
			return m, tea.Batch(m.enqueueExport(), progressTick())
		case "c":
			m.copyCurrent()
			m.writeMeta()
			return m, nil
		case "d":
			m.showDialogModal = true
			return m, nil
		}

	case renderMsg:
		node := m.currentNode()
		if node == nil || node.ID != msg.nodeID || m.currentMode() != msg.mode {
			// stale response, the selection moved on
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		m.result = msg.resp
		m.export = nil
		m.writeContent()
		return m, nil

	case exportQueuedMsg:
		if msg.err != nil {
			m.loading = false
			m.err = msg.err
			m.status = ""
			m.writeContent()
			return m, nil
		}
		return m, m.pollJob(msg.job.RequestID)

	case jobMsg:
		if msg.err != nil {
			m.loading = false
			m.err = msg.err
			m.status = ""
			m.writeContent()
			return m, nil
		}
		switch msg.job.Status {
		case queuePkg.StatusCompleted:
			m.loading = false
			m.err = nil
			m.export = msg.job.Dialog
			m.status = fmt.Sprintf("Exported by %s", msg.job.WorkerID)
		case queuePkg.StatusFailed:
			m.loading = false
			m.err = fmt.Errorf("export failed: %s", msg.job.Error)
			m.status = ""
		default:
			m.status = fmt.Sprintf("Export %s...", msg.job.Status)
			m.writeContent()
			return m, m.pollJob(msg.job.RequestID)
		}
		m.writeContent()
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeContent()
			return m, progressTick()
		}
	}

	m.codeViewport, vpCmd = m.codeViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(vpCmd, mvCmd)
}

func (m *ConsoleUI) resize(width, height int) {
	m.width = width
	m.height = height
	codeWidth := int(float64(m.width)*0.7) - 2
	metaWidth := m.width - codeWidth - 4
	m.codeViewport.Width = codeWidth - 2
	m.codeViewport.Height = m.height - 2
	m.metaViewport.Width = metaWidth
	m.metaViewport.Height = m.height - 2
}

// startRender marks the model loading and returns the command rendering the selected node
func (m ConsoleUI) startRender() (tea.Model, tea.Cmd) {
	m.loading = true
	m.progressTick = 0
	m.writeContent()
	return m, tea.Batch(m.renderCurrent(), progressTick())
}

func (m *ConsoleUI) copyCurrent() {
	text := m.currentText()
	if text == "" {
		m.status = "Nothing to copy"
		return
	}
	if err := copyToClipboard(text); err != nil {
		m.status = "Copy failed: " + err.Error()
		return
	}
	m.status = "Copied to clipboard"
}

// currentText is what c copies: the whole export when one is shown, else the render
func (m ConsoleUI) currentText() string {
	if m.export != nil {
		return exportText(m.export)
	}
	if m.result == nil {
		return ""
	}
	if m.currentMode() == handlers.ModePreview {
		return m.result.Preview
	}
	return m.result.Text
}

func exportText(e *export.DialogExport) string {
	var parts []string
	for _, f := range e.Functions {
		parts = append(parts, f.Text)
	}
	parts = append(parts, e.LanguageFile.Text)
	return strings.Join(parts, "\n\n")
}

func (m *ConsoleUI) writeContent() {
	m.codeViewport.SetContent(m.writeCode(m.codeViewport.Width))
	m.writeMeta()
}

func (m *ConsoleUI) writeMeta() {
	m.metaViewport.SetContent(writeMetadata(m.dialog, m.selectedNode, m.currentMode(), m.status))
}

func (m ConsoleUI) writeCode(width int) string {
	var content strings.Builder
	if width < 20 {
		width = 20
	}

	switch {
	case m.export != nil:
		content.WriteString(titleStyle.Render("EXPORT "+m.export.DialogID) + "\n\n")
		for _, f := range m.export.Functions {
			content.WriteString(promptStyle.Render("// "+f.Name) + "\n")
			content.WriteString(codeStyle.Render(f.Text) + "\n")
			content.WriteString(formatProblems(f.NodeID, f.Errors, width))
			content.WriteString("\n")
		}
		content.WriteString(promptStyle.Render("// language file") + "\n")
		content.WriteString(m.export.LanguageFile.Text + "\n")
		content.WriteString(formatProblems("language file", m.export.LanguageFile.Errors, width))

	case m.currentNode() != nil:
		node := m.currentNode()
		content.WriteString(titleStyle.Render(fmt.Sprintf("%s · %s", node.ID, m.currentMode())) + "\n\n")
		if m.result != nil {
			if m.currentMode() == handlers.ModePreview {
				content.WriteString(wordwrap.String(m.result.Preview, width) + "\n")
			} else {
				content.WriteString(codeStyle.Render(m.result.Text) + "\n")
			}
			content.WriteString("\n")
			content.WriteString(formatProblems(node.ID, m.result.Errors, width))
		}
	}

	if m.err != nil {
		content.WriteString("\n" + errorStyle.Render(wordwrap.String("Error: "+m.err.Error(), width)) + "\n")
	}
	if m.loading {
		content.WriteString("\n" + m.renderProgressBar())
	}
	return content.String()
}

// formatProblems lists the collected render problems, one wrapped line each
func formatProblems(nodeID string, errs []exporterr.RenderError, width int) string {
	var content strings.Builder
	for _, e := range errs {
		line := wordwrap.String(fmt.Sprintf("%s: %s: %s", e.Severity, nodeID, e.Message), width)
		if e.Severity == exporterr.SeverityError {
			content.WriteString(errorStyle.Render(line) + "\n")
		} else {
			content.WriteString(warningStyle.Render(line) + "\n")
		}
	}
	return content.String()
}

func writeMetadata(g *dialog.Graph, selected int, mode, status string) string {
	var content strings.Builder
	if g == nil {
		return ""
	}
	content.WriteString(titleStyle.Render("DIALOG "+g.ID) + "\n\n")

	for i, n := range g.Nodes {
		label := fmt.Sprintf("%s (%s)", n.ID, n.Type)
		if n.ActionType != "" {
			label = fmt.Sprintf("%s (%s)", n.ID, n.ActionType)
		}
		if i == selected {
			content.WriteString(selectedNodeStyle.Render("▶ "+label) + "\n")
		} else {
			content.WriteString(nodeStyle.Render("  "+label) + "\n")
		}
	}

	content.WriteString("\nMode:\n")
	content.WriteString(mode + "\n")
	if status != "" {
		content.WriteString("\n" + promptStyle.Render(status) + "\n")
	}

	content.WriteString("\n")
	content.WriteString("Commands:\n")
	content.WriteString("• ↑/↓: Node\n")
	content.WriteString("• Tab: Mode\n")
	content.WriteString("• e: Export dialog\n")
	content.WriteString("• c: Copy\n")
	content.WriteString("• d: Dialogs\n")
	content.WriteString("• Ctrl+C: Quit\n")

	return content.String()
}

func (m ConsoleUI) renderCurrent() tea.Cmd {
	node := m.currentNode()
	if node == nil {
		return nil
	}
	nodeID, mode := node.ID, m.currentMode()
	projectID, g := m.fixture.ProjectID, m.dialog
	return func() tea.Msg {
		resp, err := renderNode(m.client, m.config.APIBaseURL, projectID, g, nodeID, mode)
		return renderMsg{nodeID: nodeID, mode: mode, resp: resp, err: err}
	}
}

func (m ConsoleUI) enqueueExport() tea.Cmd {
	projectID, g := m.fixture.ProjectID, m.dialog
	return func() tea.Msg {
		job, err := enqueueExport(m.client, m.config.APIBaseURL, projectID, g)
		return exportQueuedMsg{job, err}
	}
}

func (m ConsoleUI) pollJob(requestID string) tea.Cmd {
	return tea.Tick(m.config.PollInterval, func(time.Time) tea.Msg {
		job, err := getJob(m.client, m.config.APIBaseURL, requestID)
		return jobMsg{job, err}
	})
}

func (m ConsoleUI) updateDialogModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.showQuitModal = true
		case tea.KeyEsc:
			if m.dialog != nil {
				m.showDialogModal = false
			} else {
				m.showQuitModal = true
			}
		case tea.KeyUp:
			if m.selectedDialog > 0 {
				m.selectedDialog--
			}
		case tea.KeyDown:
			if m.selectedDialog < len(m.fixture.Dialogs)-1 {
				m.selectedDialog++
			}
		case tea.KeyEnter:
			opened, err := m.openDialog(m.fixture.Dialogs[m.selectedDialog].ID)
			if err != nil {
				m.err = err
				return m, nil
			}
			opened.ready = opened.width > 0
			return opened.startRender()
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderDialogModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Select a Dialog"))
	content.WriteString("\n\n")

	for i, g := range m.fixture.Dialogs {
		label := fmt.Sprintf("%s (%d nodes)", g.ID, len(g.Nodes))
		if i == m.selectedDialog {
			content.WriteString(selectedNodeStyle.Render("▶ " + label))
		} else {
			content.WriteString(nodeStyle.Render("  " + label))
		}
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.showDialogModal {
		return m.renderDialogModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	codeWidth := int(float64(m.width)*0.7) - 2
	metaWidth := m.width - codeWidth - 4

	codePanel := codePanelStyle.Width(codeWidth).Height(m.height - 1).Render(m.codeViewport.View())
	separator := separatorStyle.Render(strings.Repeat("│\n", max(m.height-1, 1)))
	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 1).Render(m.metaViewport.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, codePanel, separator, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.codeViewport.Width - 4
	if usable > 60 {
		usable = 60
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓") // Blinking effect at the progress point
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
