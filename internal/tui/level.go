package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"quiz-gauntlet/internal/app"
	"quiz-gauntlet/internal/domain"
)

type judgedMsg struct {
	res app.LevelResult
	err error
}

// LevelModel lets the player answer a standard-mode level in any order and
// submit the whole batch for judging.
type LevelModel struct {
	ctx     context.Context
	service *app.LevelService
	run     *app.LevelRun
	styles  Styles
	input   textinput.Model

	cursor  int
	status  string
	failed  bool
	judging bool
	result  *app.LevelResult
}

func NewLevel(ctx context.Context, service *app.LevelService, run *app.LevelRun) LevelModel {
	ti := textinput.New()
	ti.Placeholder = "type your answer"
	ti.CharLimit = 64
	ti.Width = 40
	m := LevelModel{ctx: ctx, service: service, run: run, styles: DefaultStyles(), input: ti}
	m.enter()
	return m
}

func (m LevelModel) Init() tea.Cmd { return textinput.Blink }

// Result is the judged outcome once the batch has been submitted.
func (m LevelModel) Result() (app.LevelResult, bool) {
	if m.result == nil {
		return app.LevelResult{}, false
	}
	return *m.result, true
}

// enter prepares the widgets for the question under the run's cursor.
func (m *LevelModel) enter() {
	m.cursor = 0
	q := m.run.Current()
	if q.SelectionType != domain.SelectionInput {
		m.input.Blur()
		return
	}
	a := m.run.AnswerAt(m.run.Cursor())
	m.input.SetValue("")
	if !a.Empty() {
		m.input.SetValue(a.Values[0])
	}
	m.input.Focus()
}

func (m LevelModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case judgedMsg:
		m.judging = false
		if msg.err != nil {
			m.status, m.failed = describeError(msg.err), true
			return m, nil
		}
		m.result = &msg.res
		m.status = ""
		return m, nil
	case tea.KeyMsg:
		if m.result != nil {
			switch msg.String() {
			case "q", "esc", "ctrl+c", "enter":
				return m, tea.Quit
			}
			return m, nil
		}
		if m.judging {
			return m, nil
		}
		return m.updateAnswering(msg)
	}
	return m, nil
}

func (m LevelModel) updateAnswering(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	q := m.run.Current()
	key := msg.String()
	switch key {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab":
		if m.run.Next() {
			m.enter()
		}
		return m, nil
	case "shift+tab":
		if m.run.Previous() {
			m.enter()
		}
		return m, nil
	case "ctrl+s":
		if !m.run.AllAnswered() {
			m.status, m.failed = describeError(domain.ErrIncomplete), true
			return m, nil
		}
		m.judging = true
		m.status, m.failed = "Judging...", false
		return m, func() tea.Msg {
			res, err := m.service.Submit(m.ctx, m.run)
			return judgedMsg{res: res, err: err}
		}
	}

	if q.SelectionType == domain.SelectionInput {
		if msg.Type == tea.KeyEnter {
			if err := m.run.Input(m.input.Value()); err != nil {
				m.status, m.failed = describeError(err), true
				return m, nil
			}
			m.status = ""
			if m.run.Next() {
				m.enter()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	choices := q.Choices()
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(choices)-1 {
			m.cursor++
		}
	case "left", "h":
		if m.run.Previous() {
			m.enter()
		}
	case "right", "l":
		if m.run.Next() {
			m.enter()
		}
	case "1", "2", "3", "4":
		i := int(key[0] - '1')
		if i < len(choices) {
			m.cursor = i
			m.pick(choices[i])
		}
	case " ", "enter":
		if len(choices) > 0 {
			m.pick(choices[m.cursor])
		}
	}
	return m, nil
}

func (m *LevelModel) pick(choice string) {
	if err := m.run.Select(choice); err != nil {
		m.status, m.failed = describeError(err), true
		return
	}
	m.status = ""
}

func (m LevelModel) View() string {
	if m.result != nil {
		return m.resultView()
	}
	s := m.styles
	q := m.run.Current()
	answered := 0
	for i := 0; i < m.run.Total(); i++ {
		if m.run.Answered(i) {
			answered++
		}
	}

	var b strings.Builder
	b.WriteString(s.Header.Render(strings.ToUpper(m.run.Genre + " / " + m.run.Level)))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s   %s\n\n",
		s.Title.UnsetMarginBottom().Render(fmt.Sprintf("Question %d/%d", m.run.Cursor()+1, m.run.Total())),
		s.Muted.Render(fmt.Sprintf("answered %d/%d", answered, m.run.Total())),
	)
	b.WriteString(s.Prompt.Render(promptText(q.View())))
	b.WriteString("\n")
	if q.SelectionType == domain.SelectionInput {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	} else {
		b.WriteString(renderChoices(s, q.Choices(), m.cursor, m.run.AnswerAt(m.run.Cursor()).Values, q.IsMultiple()))
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle(s, m.failed).Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(s.Footer.Render("1-4/enter answer • tab/shift+tab move • ctrl+s submit • esc quit"))
	return b.String()
}

func (m LevelModel) resultView() string {
	s := m.styles
	res := *m.result
	var b strings.Builder
	b.WriteString(s.Header.Render(strings.ToUpper(res.Genre + " / " + res.Level + " RESULT")))
	b.WriteString("\n\n")
	if res.Passed {
		b.WriteString(s.Success.Render("PASSED"))
	} else {
		b.WriteString(s.Error.Render("NOT YET"))
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Correct: %d/%d\n", res.CorrectCount, res.Total)

	if len(res.WrongAnswers) > 0 {
		b.WriteString("\nReview:\n")
		for _, w := range res.WrongAnswers {
			fmt.Fprintf(&b, "  Q%d %s\n", w.QuestionNumber, w.Question)
			fmt.Fprintf(&b, "     your answer: %s\n", w.UserAnswer)
			if w.HintText != "" {
				fmt.Fprintf(&b, "     hint: %s\n", w.HintText)
			}
			if w.HintURL != "" {
				b.WriteString("     " + s.Muted.Render(w.HintURL) + "\n")
			}
		}
	}
	if res.NextLevel != "" {
		fmt.Fprintf(&b, "\n%s unlocked!\n", res.NextLevel)
	}
	if res.Certificate != nil && res.Certificate.ImageRef != "" {
		fmt.Fprintf(&b, "Certificate saved to %s\n", res.Certificate.ImageRef)
	}
	b.WriteString("\n")
	b.WriteString(res.ShareText)
	b.WriteString("\n")
	b.WriteString(s.Muted.Render(res.ShareURL))
	b.WriteString("\n")
	for _, w := range res.Warnings {
		b.WriteString(s.Error.Render("! " + w))
		b.WriteString("\n")
	}
	b.WriteString(s.Footer.Render("q quit"))
	return b.String()
}
