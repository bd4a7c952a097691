package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"webstarter-backend/internal/chatclient"
	"webstarter-backend/internal/storage"
	"webstarter-backend/internal/utils"
	"webstarter-backend/pkg/logger"

	"github.com/jessevdk/go-flags"
	"github.com/peterh/liner"
)

type options struct {
	Endpoint string        `long:"endpoint" short:"e" default:"http://localhost:8080/api/ai" description:"Chat endpoint of the server"`
	Model    string        `long:"model" short:"m" description:"Catalog model id to start with"`
	Token    string        `long:"token" env:"CHAT_TOKEN" description:"Bearer token when the server requires auth"`
	DataDir  string        `long:"data-dir" description:"Directory for saved conversations; memory only when empty"`
	History  string        `long:"history" description:"Input history file (default: <user config dir>/webstarter/chat_history)"`
	Timeout  time.Duration `long:"timeout" default:"5m" description:"Overall limit for one reply"`
	LogLevel string        `long:"log-level" default:"warn" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Log level (logs go to stderr)"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.Parse(); err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("[Error]"), err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if err := logger.InitWithOutput(opts.LogLevel, "text", os.Stderr); err != nil {
		return err
	}

	store, err := openStore(opts.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	out := os.Stdout
	printer := newStreamPrinter(out)
	session := chatclient.NewSession(chatclient.Config{
		Endpoint:   opts.Endpoint,
		HTTPClient: utils.NewHTTPClient(opts.Timeout),
		Token:      opts.Token,
		OnUpdate:   printer.Update,
		OnNotice:   printer.Notice,
	})
	if opts.Model != "" {
		if err := session.SelectModel(opts.Model); err != nil {
			return err
		}
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyFile := opts.History
	if historyFile == "" {
		historyFile = defaultHistoryFile()
	}
	loadHistory(line, historyFile)
	defer saveHistory(line, historyFile)

	// Ctrl-C outside the prompt stops the reply being generated.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			session.Stop()
		}
	}()

	r := newREPL(session, store, out)
	fmt.Fprintf(out, "%s %s\n", promptStyle.Render("Chatting with"), commandStyle.Render(session.Model().Name))
	fmt.Fprintln(out, infoStyle.Render("Type /help for commands."))

	for {
		input, err := line.Prompt("you> ")
		if err != nil {
			// Ctrl-C at the prompt, Ctrl-D, or a closed stdin
			fmt.Fprintln(out)
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			keepGoing, err := r.handleCommand(input)
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render("[Error]"), err)
			}
			if !keepGoing {
				return nil
			}
			continue
		}

		err = session.Send(context.Background(), input)
		printer.EndReply()
		if err != nil && !errors.Is(err, chatclient.ErrAborted) {
			logger.WithError(err).Debug("send failed")
		}
	}
}

func openStore(dataDir string) (storage.Storage, error) {
	var store storage.Storage = storage.NewMemoryStorage()
	if dataDir != "" {
		store = storage.NewDiskStorage(dataDir, 0)
	}
	if err := store.Init(); err != nil {
		return nil, err
	}
	return store, nil
}

func defaultHistoryFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "webstarter", "chat_history")
}

func loadHistory(line *liner.State, path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := line.ReadHistory(f); err != nil {
		logger.WithError(err).Warn("read input history")
	}
}

func saveHistory(line *liner.State, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := line.WriteHistory(f); err != nil {
		logger.WithError(err).Warn("write input history")
	}
}
