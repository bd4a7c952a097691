package main

import (
	"fmt"
	"io"
	"sync"

	"webstarter-backend/internal/chatclient"
	"webstarter-backend/internal/model"

	"github.com/charmbracelet/lipgloss"
)

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#22D3EE")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A78BFA")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF"))

	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#34D399"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)
)

// streamPrinter writes assistant replies as they grow. Session callbacks
// arrive on the sending goroutine, notices may come from the signal handler.
type streamPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	entryID string
	printed int
}

func newStreamPrinter(out io.Writer) *streamPrinter {
	return &streamPrinter{out: out}
}

func (p *streamPrinter) Update(e chatclient.Entry) {
	if e.Role != model.RoleAssistant {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if e.ID != p.entryID {
		p.entryID = e.ID
		p.printed = 0
		fmt.Fprint(p.out, assistantStyle.Render(modelLabel(e.Model)+"> "))
	}
	if len(e.Content) > p.printed {
		fmt.Fprint(p.out, e.Content[p.printed:])
		p.printed = len(e.Content)
	}
}

// EndReply terminates the reply line, if one was started.
func (p *streamPrinter) EndReply() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.entryID != "" {
		fmt.Fprintln(p.out)
		p.entryID = ""
		p.printed = 0
	}
}

func (p *streamPrinter) Notice(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.entryID != "" {
		fmt.Fprintln(p.out)
		p.entryID = ""
		p.printed = 0
	}
	fmt.Fprintln(p.out, warningStyle.Render("["+msg+"]"))
}

func modelLabel(id string) string {
	if m, ok := model.GetModelByID(id); ok {
		return m.Name
	}
	if id == "" {
		return "assistant"
	}
	return id
}

func printTranscript(out io.Writer, entries []chatclient.Entry) {
	for _, e := range entries {
		switch e.Role {
		case model.RoleUser:
			fmt.Fprintln(out, promptStyle.Render("you> ")+e.Content)
		default:
			fmt.Fprintln(out, assistantStyle.Render(modelLabel(e.Model)+"> ")+e.Content)
		}
	}
}
