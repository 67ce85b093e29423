package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/lipgloss"
)

const inputPlaceholder = "Say something, /roll 2d6, /me waves, /campaign <name>"

func newInputModel() textarea.Model {
	input := textarea.New()
	input.CharLimit = 0
	input.ShowLineNumbers = false
	input.Placeholder = inputPlaceholder
	input.SetPromptFunc(2, func(line int) string {
		if line > 0 {
			return "  "
		}
		return "› "
	})
	input.FocusedStyle = inputStyle(lipgloss.Color("252"))
	input.BlurredStyle = inputStyle(metaColor)
	input.Focus()
	return input
}

// inputStyle paints every textarea part on the input background.
func inputStyle(fg lipgloss.Color) textarea.Style {
	bg := lipgloss.NewStyle().Background(inputBg)
	return textarea.Style{
		Base:        bg.Foreground(fg),
		Text:        bg.Foreground(fg),
		Prompt:      bg.Foreground(caretColor),
		Placeholder: bg.Foreground(metaColor).Italic(true),
		CursorLine:  bg,
		EndOfBuffer: bg,
	}
}

// normalizeNewlines folds pasted CRLF and CR line endings to LF.
func normalizeNewlines(value string) string {
	return strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(value)
}
