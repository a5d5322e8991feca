package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"quiz-gauntlet/internal/domain"
)

func renderChoices(s Styles, choices []string, cursor int, selected []string, multiple bool) string {
	picked := make(map[string]bool, len(selected))
	for _, c := range selected {
		picked[c] = true
	}
	var b strings.Builder
	for i, c := range choices {
		pointer := "  "
		if i == cursor {
			pointer = s.Cursor.Render("> ")
		}
		mark := fmt.Sprintf("%d.", i+1)
		if multiple {
			mark = "[ ]"
			if picked[c] {
				mark = "[x]"
			}
		}
		line := fmt.Sprintf("%s %s", mark, c)
		if picked[c] {
			line = s.Selected.Render(line)
		}
		b.WriteString(s.Choice.Render(pointer + line))
		b.WriteString("\n")
	}
	return b.String()
}

func promptText(q domain.QuestionView) string {
	if q.DisplayType == domain.DisplayImage {
		return "[image] " + q.Prompt
	}
	return q.Prompt
}

func statusStyle(s Styles, failed bool) lipgloss.Style {
	if failed {
		return s.Error
	}
	return s.Success
}

func describeError(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyAnswer):
		return "Enter an answer first."
	case errors.Is(err, domain.ErrUnknownChoice):
		return "That is not one of the choices."
	case errors.Is(err, domain.ErrIncomplete):
		return "Answer every question before submitting."
	case errors.Is(err, domain.ErrSessionFinished):
		return "This run is already over."
	default:
		return err.Error()
	}
}

func msDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
