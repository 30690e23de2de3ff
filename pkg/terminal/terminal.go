package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/derekparker/trie"
	"github.com/go-delve/liner"

	"github.com/fdbdbg/fdb/pkg/config"
	"github.com/fdbdbg/fdb/service"
	"github.com/fdbdbg/fdb/service/api"
)

// Term represents the terminal running fdb.
type Term struct {
	client   service.Client
	conf     *config.Config
	prompt   string
	line     *liner.State
	cmds     *Commands
	complete *trie.Trie
	dumb     bool
	stdout   io.Writer
	stderr   io.Writer

	// InitFile is a file of commands executed before the first prompt.
	InitFile string
	// ContinueOnStart resumes the target before the first prompt.
	ContinueOnStart bool

	quittingMutex sync.Mutex
	quitting      bool
}

// New returns a new Term.
func New(client service.Client, conf *config.Config) *Term {
	if conf == nil {
		conf = &config.Config{}
	}
	cmds := DebugCommands(client)
	if conf.Aliases != nil {
		cmds.Merge(conf.Aliases)
	}

	dumb := isDumbTerminal()
	var w io.Writer
	if dumb {
		w = os.Stdout
	} else {
		w = getColorableWriter()
	}

	prompt := "(fdb) "
	if !dumb && validColor(conf.PromptColor) {
		prompt = fmt.Sprintf(terminalHighlightEscapeCode, conf.PromptColor) + "(fdb)" + terminalResetEscapeCode + " "
	}

	return &Term{
		client:   client,
		conf:     conf,
		prompt:   prompt,
		cmds:     cmds,
		complete: cmds.completionTrie(),
		dumb:     dumb,
		stdout:   w,
		stderr:   os.Stderr,
	}
}

// Close returns the terminal to its previous mode.
func (t *Term) Close() {
	if t.line != nil {
		t.line.Close()
	}
}

func (t *Term) sigintGuard(ch <-chan os.Signal) {
	for range ch {
		fmt.Fprintf(t.stdout, "received SIGINT, stopping process (will not forward signal)\n")
		if err := t.client.Halt(); err != nil {
			fmt.Fprintf(t.stderr, "%v\n", err)
		}
	}
}

// completer returns the commands starting with line. Only the command
// name is completed.
func (t *Term) completer(line string) []string {
	if strings.ContainsAny(line, " \t") {
		return nil
	}
	c := t.complete.PrefixSearch(strings.ToLower(line))
	sort.Strings(c)
	return c
}

// Run begins running fdb in the terminal. It returns the exit code of the
// debugger.
func (t *Term) Run() (int, error) {
	t.line = liner.NewLiner()
	defer t.Close()

	// Send the debugger a halt command on SIGINT
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT)
	defer signal.Stop(ch)
	go t.sigintGuard(ch)

	t.line.SetCompleter(t.completer)
	t.loadHistory()

	if t.InitFile != "" {
		if err := t.cmds.executeFile(t, t.InitFile); err != nil {
			if errors.As(err, &ExitRequestError{}) {
				return t.handleExit()
			}
			fmt.Fprintf(t.stderr, "Error executing init file: %s\n", err)
		}
	}

	if t.ContinueOnStart {
		if err := t.cmds.Call("continue", t); err != nil {
			fmt.Fprintln(t.stderr, err)
		}
		if s := t.client.State(false); s.Exited {
			return t.handleExit()
		}
	}

	fmt.Fprintln(t.stdout, "Type 'help' for list of commands.")

	for {
		cmdstr, err := t.promptForInput()
		if err != nil {
			if err == io.EOF {
				fmt.Fprintln(t.stdout, "exit")
				return t.handleExit()
			}
			return 1, fmt.Errorf("prompt for input failed: %w", err)
		}

		if err := t.cmds.Call(cmdstr, t); err != nil {
			if errors.As(err, &ExitRequestError{}) {
				return t.handleExit()
			}
			t.quittingMutex.Lock()
			quitting := t.quitting
			t.quittingMutex.Unlock()
			if quitting {
				return t.handleExit()
			}
			fmt.Fprintf(t.stderr, "Command failed: %s\n", err)
		}
	}
}

func (t *Term) loadHistory() {
	fullHistoryFile, err := config.HistoryFilePath()
	if err != nil {
		fmt.Fprintf(t.stderr, "Unable to load history file: %v.\n", err)
		return
	}
	f, err := os.Open(fullHistoryFile)
	if err != nil {
		return
	}
	t.line.ReadHistory(f)
	f.Close()
}

func (t *Term) saveHistory() {
	fullHistoryFile, err := config.HistoryFilePath()
	if err != nil {
		fmt.Fprintln(t.stderr, "Error saving history file:", err)
		return
	}
	f, err := os.OpenFile(fullHistoryFile, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	if _, err := t.line.WriteHistory(f); err != nil {
		fmt.Fprintln(t.stderr, "readline history error:", err)
	}
	f.Close()
}

func (t *Term) promptForInput() (string, error) {
	l, err := t.line.Prompt(t.prompt)
	if err != nil {
		return "", err
	}

	l = strings.TrimSuffix(l, "\n")
	if l != "" {
		t.line.AppendHistory(l)
	}

	return l, nil
}

// handleExit ends the session. A process that is still there is killed if
// the debugger launched it and released otherwise.
func (t *Term) handleExit() (int, error) {
	if t.line != nil {
		t.saveHistory()
	}

	s := t.client.State(false)
	if !s.Exited && s.State != "detached" {
		if err := t.client.Detach(t.client.Launched()); err != nil {
			return 1, err
		}
	}
	return exitCode(s), nil
}

// exitCode maps the final state of the target to the exit code of the
// debugger.
func exitCode(s *api.DebuggerState) int {
	switch s.StopReason.Kind {
	case "exited":
		return s.StopReason.ExitCode
	case "terminated":
		return 128 + s.StopReason.Signal
	}
	return 0
}
