package cli

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/pipeline"
)

// maxActiveShown caps the in-flight document lines under the progress bar.
const maxActiveShown = 6

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
	ProgressBg lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray
}

// Style functions for dynamic theming
func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// stageMsg reports a document entering a stage.
type stageMsg struct {
	document string
	stage    string
}

// finishedMsg reports a document's terminal outcome.
type finishedMsg struct {
	document string
	outcome  pipeline.Outcome
}

// batchDoneMsg is sent once RunBatch returns.
type batchDoneMsg struct {
	err error
}

// progressModel is the bubbletea model for a running batch.
type progressModel struct {
	runID      string
	total      int
	finished   int
	failed     int
	active     map[string]string // document -> current stage
	admitted   []string          // admission order, for stable rendering
	progress   progress.Model
	theme      Theme
	cancel     func()
	cancelling bool
	done       bool
	err        error
	started    time.Time
}

// newProgressModel creates a new progress model.
func newProgressModel(runID string, total int, cancel func()) progressModel {
	// Create progress bar with color blend
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		runID:    runID,
		total:    total,
		active:   make(map[string]string),
		progress: prog,
		theme:    defaultTheme,
		cancel:   cancel,
		started:  time.Now(),
	}
}

// Init returns the initial command.
func (m progressModel) Init() tea.Cmd {
	return m.progress.Init()
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// Admission stops; in-flight documents drain before the batch returns.
			if !m.cancelling && m.cancel != nil {
				m.cancel()
			}
			m.cancelling = true
		}

	case stageMsg:
		if _, ok := m.active[msg.document]; !ok {
			m.admitted = append(m.admitted, msg.document)
		}
		m.active[msg.document] = msg.stage

	case finishedMsg:
		m.finished++
		if !msg.outcome.OK() {
			m.failed++
		}
		delete(m.active, msg.document)
		m.admitted = slices.DeleteFunc(m.admitted, func(d string) bool { return d == msg.document })

	case batchDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		// Update progress bar animation
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m progressModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	var pct float64
	if m.total > 0 {
		pct = float64(m.finished) / float64(m.total)
	}

	label := "running"
	if m.cancelling {
		label = "draining"
	}
	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", label))
	counts := fmt.Sprintf("%d/%d documents", m.finished, m.total)
	if m.failed > 0 {
		counts += m.theme.errorStyle().Render(fmt.Sprintf(" (%d failed)", m.failed))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", status, m.progress.ViewAs(pct), counts)
	for i, doc := range m.admitted {
		if i == maxActiveShown {
			fmt.Fprintf(&b, "  … %d more\n", len(m.admitted)-maxActiveShown)
			break
		}
		fmt.Fprintf(&b, "  %-14s %s\n", m.active[doc], doc)
	}

	hint := "Press Ctrl+C to stop admitting documents"
	if m.cancelling {
		hint = "Waiting for in-flight documents to finish their current stage"
	}
	b.WriteString(m.theme.hintStyle().Render(hint) + "\n")
	return b.String()
}

// finalView renders the completion message.
func (m progressModel) finalView() string {
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Run %s failed: %s\n", m.runID, m.err))
	}
	elapsed := time.Since(m.started).Round(time.Millisecond)
	msg := fmt.Sprintf("✓ Run %s finished in %s: %d completed, %d failed\n",
		m.runID, elapsed, m.finished-m.failed, m.failed)
	if m.cancelling {
		return m.theme.hintStyle().Render("Batch cancelled. ") + msg
	}
	return m.theme.completedStyle().Render(msg)
}

// progressUI drives a progressModel from orchestrator events.
type progressUI struct {
	pipeline.NopObserver
	program *tea.Program
	cancel  func()
}

func newProgressUI(runID string, documents []string, cancel func()) *progressUI {
	return &progressUI{
		program: tea.NewProgram(newProgressModel(runID, len(documents), cancel)),
		cancel:  cancel,
	}
}

// StageStarted implements pipeline.Observer.
func (u *progressUI) StageStarted(document, stage string) {
	u.program.Send(stageMsg{document: document, stage: stage})
}

// DocumentFinished implements pipeline.Observer.
func (u *progressUI) DocumentFinished(document string, outcome pipeline.Outcome) {
	u.program.Send(finishedMsg{document: document, outcome: outcome})
}

// Run executes batch while the display is shown and returns its result.
// If the display fails the batch is cancelled and drained.
func (u *progressUI) Run(batch func() (*pipeline.Report, error)) (*pipeline.Report, error) {
	var report *pipeline.Report
	var batchErr error
	done := make(chan struct{})

	go func() {
		defer close(done)
		report, batchErr = batch()
		u.program.Send(batchDoneMsg{err: batchErr})
	}()

	if _, err := u.program.Run(); err != nil {
		logger.Warn("progress display failed", "error", err)
		u.cancel()
	}
	<-done
	return report, batchErr
}
