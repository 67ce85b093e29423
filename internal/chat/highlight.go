package chat

import (
	"bytes"
	"os"
	"strings"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/formatters"
	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/styles"
)

const codeStyle = "dracula"

// fence describes an opening ``` or ~~~ line.
type fence struct {
	marker string
	lang   string
}

func openFence(line string) (fence, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if len(trimmed) < 3 || (trimmed[0] != '`' && trimmed[0] != '~') {
		return fence{}, false
	}
	n := len(trimmed) - len(strings.TrimLeft(trimmed, trimmed[:1]))
	if n < 3 {
		return fence{}, false
	}
	f := fence{marker: trimmed[:n]}
	if rest := strings.Fields(trimmed[n:]); len(rest) > 0 {
		f.lang = rest[0]
	}
	return f, true
}

func (f fence) closes(line string) bool {
	trimmed := strings.TrimSpace(line)
	return len(trimmed) >= len(f.marker) && strings.Trim(trimmed, f.marker[:1]) == ""
}

// highlightCodeBlocks colors fenced blocks in a message body, e.g. stat
// blocks or macros pasted by players. Unterminated fences are left alone.
func highlightCodeBlocks(body string) string {
	if !strings.Contains(body, "```") && !strings.Contains(body, "~~~") {
		return body
	}
	if os.Getenv("NO_COLOR") != "" {
		return body
	}

	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		f, ok := openFence(lines[i])
		if !ok {
			out = append(out, lines[i])
			continue
		}
		end := -1
		for j := i + 1; j < len(lines); j++ {
			if f.closes(lines[j]) {
				end = j
				break
			}
		}
		if end == -1 {
			out = append(out, lines[i])
			continue
		}
		out = append(out, lines[i])
		if code := strings.Join(lines[i+1:end], "\n"); code != "" {
			out = append(out, highlightCode(code, f.lang))
		}
		out = append(out, lines[end])
		i = end
	}
	return strings.Join(out, "\n")
}

func highlightCode(code, lang string) string {
	var lexer chroma.Lexer
	if lang != "" {
		lexer = lexers.Get(strings.ToLower(lang))
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}

	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return code
	}
	style := styles.Get(codeStyle)
	if style == nil {
		style = styles.Fallback
	}
	var buf bytes.Buffer
	if err := formatters.TTY256.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
