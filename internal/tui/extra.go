package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"quiz-gauntlet/internal/app"
	"quiz-gauntlet/internal/domain"
)

// EventMsg carries one run event into the model.
type EventMsg app.Event

type eventsClosedMsg struct{}

type registeredMsg struct{ out app.RegisterOutcome }

type certificateMsg struct {
	cert app.Certificate
	err  error
}

func waitForEvent(ch <-chan app.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return EventMsg(ev)
	}
}

// ExtraStageModel plays one extra-stage run and shows its result screen.
type ExtraStageModel struct {
	ctx       context.Context
	run       *app.ExtraStageRun
	presenter *app.ResultPresenter
	events    <-chan app.Event
	cancel    func()
	styles    Styles
	input     textinput.Model

	current app.Event
	cursor  int
	status  string
	failed  bool
	result  *app.Presentation
}

func NewExtraStage(ctx context.Context, run *app.ExtraStageRun, presenter *app.ResultPresenter) ExtraStageModel {
	events, cancel := run.Subscribe()
	ti := textinput.New()
	ti.Placeholder = "type your answer"
	ti.CharLimit = 64
	ti.Width = 40
	return ExtraStageModel{
		ctx:       ctx,
		run:       run,
		presenter: presenter,
		events:    events,
		cancel:    cancel,
		styles:    DefaultStyles(),
		input:     ti,
	}
}

func (m ExtraStageModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.events))
}

// Presentation is the result screen content once the run is over.
func (m ExtraStageModel) Presentation() (app.Presentation, bool) {
	if m.result == nil {
		return app.Presentation{}, false
	}
	return *m.result, true
}

func (m ExtraStageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case EventMsg:
		return m.applyEvent(app.Event(msg))
	case eventsClosedMsg:
		return m, nil
	case registeredMsg:
		m.status, m.failed = describeRegistration(msg.out)
		return m, nil
	case certificateMsg:
		switch {
		case errors.Is(msg.err, domain.ErrNicknameRequired):
			m.status, m.failed = "Set a nickname first: quiz-gauntlet nickname set <name>", true
		case msg.err != nil && msg.cert.Key == "":
			m.status, m.failed = "Certificate could not be issued: "+msg.err.Error(), true
		case msg.err != nil:
			m.status, m.failed = "Certificate recorded, but the image could not be created.", true
		case msg.cert.ImageRef != "":
			m.status, m.failed = "Certificate saved to "+msg.cert.ImageRef, false
		default:
			m.status, m.failed = "Certificate recorded.", false
		}
		return m, nil
	case tea.KeyMsg:
		if m.result != nil {
			return m.updateResult(msg)
		}
		return m.updatePlaying(msg)
	}
	return m, nil
}

func (m ExtraStageModel) applyEvent(ev app.Event) (tea.Model, tea.Cmd) {
	next := waitForEvent(m.events)
	switch ev.Kind {
	case app.EventQuestion:
		if m.current.Kind == "" || ev.Index != m.current.Index {
			m.cursor = 0
			m.input.SetValue("")
		}
		m.current = ev
		if ev.Question != nil && ev.Question.SelectionType == domain.SelectionInput {
			return m, tea.Batch(m.input.Focus(), next)
		}
		m.input.Blur()
	case app.EventTick:
		m.current.Remaining = ev.Remaining
		m.current.Warning = ev.Warning
	case app.EventSelection:
		m.current.Selected = ev.Selected
	case app.EventJudged:
		if ev.Correct {
			m.status, m.failed = "Correct!", false
		} else {
			m.status, m.failed = "Wrong answer.", true
		}
	case app.EventFinished:
		if ev.Result == nil {
			return m, next
		}
		pr := m.presenter.Present(m.ctx, *ev.Result)
		m.result = &pr
		m.status = ""
		m.cancel()
	case app.EventAbandoned:
		m.cancel()
		return m, tea.Quit
	}
	return m, next
}

func (m ExtraStageModel) updatePlaying(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.run.Abandon()
		m.cancel()
		return m, tea.Quit
	}
	q := m.current.Question
	if q == nil {
		return m, nil
	}

	if q.SelectionType == domain.SelectionInput {
		if msg.Type == tea.KeyEnter {
			if _, err := m.run.Submit(domain.SingleAnswer(m.input.Value())); err != nil {
				m.status, m.failed = describeError(err), true
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	key := msg.String()
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(q.Choices)-1 {
			m.cursor++
		}
		return m, nil
	case "1", "2", "3", "4":
		i := int(key[0] - '1')
		if i >= len(q.Choices) {
			return m, nil
		}
		m.cursor = i
		return m.choose(q, q.Choices[i])
	case " ":
		if q.SelectionType == domain.SelectionMultiple && len(q.Choices) > 0 {
			return m.choose(q, q.Choices[m.cursor])
		}
	case "enter":
		var err error
		switch {
		case q.SelectionType == domain.SelectionMultiple:
			_, err = m.run.Confirm()
		case len(q.Choices) > 0:
			_, err = m.run.Submit(domain.SingleAnswer(q.Choices[m.cursor]))
		}
		if err != nil {
			m.status, m.failed = describeError(err), true
		}
	}
	return m, nil
}

// choose toggles a multi-select choice or submits a single-select one.
func (m ExtraStageModel) choose(q *domain.QuestionView, choice string) (tea.Model, tea.Cmd) {
	var err error
	if q.SelectionType == domain.SelectionMultiple {
		_, err = m.run.Select(choice)
	} else {
		_, err = m.run.Submit(domain.SingleAnswer(choice))
	}
	if err != nil {
		m.status, m.failed = describeError(err), true
	}
	return m, nil
}

func (m ExtraStageModel) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pr := *m.result
	switch msg.String() {
	case "q", "esc", "ctrl+c", "enter":
		return m, tea.Quit
	case "r", "R":
		remote := msg.String() == "R"
		m.status, m.failed = "Registering...", false
		return m, func() tea.Msg {
			return registeredMsg{out: m.presenter.RegisterBest(m.ctx, pr, remote)}
		}
	case "c":
		if !pr.CertificateEligible {
			return m, nil
		}
		m.status, m.failed = "Issuing certificate...", false
		return m, func() tea.Msg {
			cert, err := m.presenter.IssueExtraCertificate(m.ctx, pr)
			return certificateMsg{cert: cert, err: err}
		}
	}
	return m, nil
}

func (m ExtraStageModel) View() string {
	if m.result != nil {
		return m.resultView()
	}
	s := m.styles
	var b strings.Builder
	b.WriteString(s.Header.Render("EXTRA STAGE"))
	b.WriteString("\n\n")

	q := m.current.Question
	if q == nil {
		b.WriteString(s.Muted.Render("Loading questions..."))
		return b.String()
	}

	timer := s.Timer
	if m.current.Warning {
		timer = s.TimerWarning
	}
	fmt.Fprintf(&b, "%s   %s\n\n",
		s.Title.UnsetMarginBottom().Render(fmt.Sprintf("Question %d/%d", m.current.Index+1, m.current.Total)),
		timer.Render(fmt.Sprintf("%ds", m.current.Remaining)),
	)
	b.WriteString(s.Prompt.Render(promptText(*q)))
	b.WriteString("\n")

	if q.SelectionType == domain.SelectionInput {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	} else {
		b.WriteString(renderChoices(s, q.Choices, m.cursor, m.current.Selected, q.SelectionType == domain.SelectionMultiple))
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle(s, m.failed).Render(m.status))
		b.WriteString("\n")
	}

	help := "1-4 answer • ↑/↓ move • enter submit • esc quit"
	switch q.SelectionType {
	case domain.SelectionMultiple:
		help = "1-4/space toggle • ↑/↓ move • enter confirm • esc quit"
	case domain.SelectionInput:
		help = "enter submit • esc quit"
	}
	b.WriteString(s.Footer.Render(help))
	return b.String()
}

func (m ExtraStageModel) resultView() string {
	s := m.styles
	pr := *m.result
	res := pr.Result
	var b strings.Builder
	b.WriteString(s.Header.Render("EXTRA STAGE RESULT"))
	b.WriteString("\n\n")

	switch {
	case res.Outcome == domain.OutcomePassed:
		b.WriteString(s.Success.Render("ALL CLEAR!"))
	case res.TimedOut:
		b.WriteString(s.Error.Render("TIME UP"))
	default:
		b.WriteString(s.Error.Render("GAME OVER"))
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Correct: %d/%d\n", res.CorrectCount, res.Total)
	fmt.Fprintf(&b, "Time:    %s\n", app.FormatElapsed(res.Elapsed))
	if pr.PreviousBest != nil {
		fmt.Fprintf(&b, "Best:    %d correct in %s\n", pr.PreviousBest.CorrectCount, app.FormatElapsed(msDuration(pr.PreviousBest.ElapsedTimeMs)))
	}
	if pr.IsNewBest {
		b.WriteString(s.Success.Render("New best!"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(pr.ShareText)
	b.WriteString("\n")
	b.WriteString(s.Muted.Render(pr.ShareURL))
	b.WriteString("\n")

	for _, w := range pr.Warnings {
		b.WriteString(s.Error.Render("! " + w))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle(s, m.failed).Render(m.status))
		b.WriteString("\n")
	}

	help := "r save best • R save + leaderboard"
	if pr.CertificateEligible {
		help += " • c certificate"
	}
	b.WriteString(s.Footer.Render(help + " • q quit"))
	return b.String()
}

func describeRegistration(out app.RegisterOutcome) (string, bool) {
	var parts []string
	failed := false
	switch {
	case out.LocalErr != nil:
		parts = append(parts, "Best score could not be saved on this device.")
		failed = true
	case out.SavedLocal:
		parts = append(parts, "Best score saved.")
	default:
		parts = append(parts, "This run does not beat your saved best.")
	}
	switch {
	case out.RemoteErr != nil:
		parts = append(parts, "Leaderboard registration failed: "+out.RemoteErr.Error())
		failed = true
	case out.SubmittedRemote:
		parts = append(parts, "Registered on the leaderboard.")
	}
	return strings.Join(parts, " "), failed
}
