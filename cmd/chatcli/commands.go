package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"webstarter-backend/internal/chatclient"
	"webstarter-backend/internal/model"
	"webstarter-backend/internal/storage"

	"github.com/google/uuid"
)

var errUnknownCommand = errors.New("unknown command, try /help")

// repl holds what the slash commands act on.
type repl struct {
	session *chatclient.Session
	store   storage.Storage
	out     io.Writer

	convID    string
	createdAt time.Time
	title     string
}

func newREPL(session *chatclient.Session, store storage.Storage, out io.Writer) *repl {
	r := &repl{session: session, store: store, out: out}
	r.resetConversation()
	return r
}

func (r *repl) resetConversation() {
	r.convID = uuid.NewString()
	r.createdAt = time.Now()
	r.title = ""
}

// handleCommand runs one slash command and reports whether the loop goes on.
func (r *repl) handleCommand(input string) (bool, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return true, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "/quit", "/exit", "/q":
		return false, nil

	case "/help", "/?":
		r.printHelp()

	case "/models":
		models := model.FreeModels()
		if len(args) > 0 {
			category := model.ModelCategory(args[0])
			if !model.IsValidCategory(category) {
				return true, fmt.Errorf("unknown category %q", args[0])
			}
			models = model.GetModelsByCategory(category)
		}
		current := r.session.Model().ID
		for _, m := range models {
			marker := "  "
			if m.ID == current {
				marker = "* "
			}
			fmt.Fprintf(r.out, "%s%s %s\n", marker, commandStyle.Render(m.ID), infoStyle.Render(fmt.Sprintf("%s (%s, %s)", m.Name, m.Provider, m.Category)))
		}

	case "/model":
		if len(args) == 0 {
			m := r.session.Model()
			fmt.Fprintf(r.out, "%s %s\n", infoStyle.Render("Current model:"), commandStyle.Render(m.ID))
			return true, nil
		}
		if err := r.session.SelectModel(args[0]); err != nil {
			return true, err
		}
		fmt.Fprintf(r.out, "%s %s\n", infoStyle.Render("Switched to"), commandStyle.Render(r.session.Model().Name))

	case "/clear":
		r.session.Clear()
		r.resetConversation()

	case "/save":
		if len(args) > 0 {
			r.title = strings.Join(args, " ")
		}
		conv := r.conversation()
		if err := r.store.Save(conv); err != nil {
			return true, err
		}
		fmt.Fprintf(r.out, "%s %s\n", infoStyle.Render("Saved"), commandStyle.Render(conv.ID))

	case "/sessions":
		convs, err := r.store.List()
		if err != nil {
			return true, err
		}
		if len(convs) == 0 {
			fmt.Fprintln(r.out, infoStyle.Render("No saved conversations"))
		}
		for _, c := range convs {
			fmt.Fprintf(r.out, "%s %s %s\n", commandStyle.Render(c.ID), c.Title, infoStyle.Render(c.UpdatedAt.Format(time.RFC822)))
		}

	case "/load":
		if len(args) == 0 {
			return true, errors.New("usage: /load <id>")
		}
		conv, err := r.store.Get(args[0])
		if err != nil {
			return true, err
		}
		if err := r.session.Restore(conv); err != nil {
			return true, err
		}
		r.convID, r.createdAt, r.title = conv.ID, conv.CreatedAt, conv.Title
		printTranscript(r.out, r.session.Entries())

	case "/delete":
		if len(args) == 0 {
			return true, errors.New("usage: /delete <id>")
		}
		if err := r.store.Delete(args[0]); err != nil {
			return true, err
		}

	case "/backup":
		b, ok := r.store.(storage.Backuper)
		if !ok {
			return true, fmt.Errorf("%w, start with --data-dir", storage.ErrBackupUnsupported)
		}
		dir, err := b.Backup()
		if err != nil {
			return true, err
		}
		fmt.Fprintf(r.out, "%s %s\n", infoStyle.Render("Backup written to"), commandStyle.Render(dir))

	default:
		return true, errUnknownCommand
	}
	return true, nil
}

func (r *repl) conversation() *model.Conversation {
	entries := r.session.Entries()
	title := r.title
	if title == "" {
		title = defaultTitle(entries)
	}
	return &model.Conversation{
		ID:        r.convID,
		Title:     title,
		Model:     r.session.Model().ID,
		Entries:   entries,
		CreatedAt: r.createdAt,
		UpdatedAt: time.Now(),
	}
}

// defaultTitle is the first user turn, shortened.
func defaultTitle(entries []chatclient.Entry) string {
	const maxTitle = 40
	for _, e := range entries {
		if e.Role != model.RoleUser {
			continue
		}
		title := []rune(strings.TrimSpace(e.Content))
		if len(title) > maxTitle {
			return string(title[:maxTitle]) + "..."
		}
		return string(title)
	}
	return "New chat"
}

func (r *repl) printHelp() {
	for _, line := range [][2]string{
		{"/models [category]", "list catalog models"},
		{"/model [id]", "show or switch the model"},
		{"/clear", "start a new conversation"},
		{"/save [title]", "save the conversation"},
		{"/sessions", "list saved conversations"},
		{"/load <id>", "restore a saved conversation"},
		{"/delete <id>", "delete a saved conversation"},
		{"/backup", "snapshot the saved conversations"},
		{"/quit", "exit"},
	} {
		fmt.Fprintf(r.out, "  %-20s %s\n", commandStyle.Render(line[0]), infoStyle.Render(line[1]))
	}
	fmt.Fprintln(r.out, infoStyle.Render("Ctrl-C stops a reply in progress."))
}
