// Package shell implements the top-level read-parse-dispatch loop:
// spec §4's "Top-level loop" component. It reads lines the same way
// the teacher's repl.Run does — a plain bufio.Reader over os.Stdin,
// controlling terminal left in its normal cooked mode — wires the job
// table, signal layer, launcher, and builtin dispatcher together, and
// tags each run with a session id for log correlation.
//
// Cooked mode matters here, not just style: putting the tty into raw
// mode clears ISIG, so the kernel would stop translating Ctrl-C/Ctrl-Z
// into SIGINT/SIGTSTP at all, and clears OPOST, which would garble
// every writer on the device (shell and children alike) for the
// session's whole duration. Job control in this shell depends on the
// kernel still doing both, so the terminal is never put in raw mode.
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"stsh/internal/builtins"
	"stsh/internal/config"
	"stsh/internal/job"
	"stsh/internal/parser"
	"stsh/internal/pipeline"
	"stsh/internal/signals"
)

// Shell is the assembled top-level loop and its collaborators.
type Shell struct {
	cfg config.Config
	log *logrus.Entry

	reader  *bufio.Reader
	history *History

	table      *job.Table
	sig        *signals.Layer
	launcher   *pipeline.Launcher
	dispatcher *builtins.Dispatcher
}

// New assembles a Shell from cfg. It requires stdin to be a terminal
// but never changes its mode — see the package comment for why.
func New(cfg config.Config) (*Shell, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if cfg.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}
	session := uuid.New().String()
	log := logger.WithField("session", session)

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("stdin is not a terminal")
	}

	hist := &History{}
	loadHistory(hist, cfg.HistoryFile, log)

	table := job.NewTable()
	sig := signals.New(table, log)
	sig.Install()

	s := &Shell{
		cfg:        cfg,
		log:        log,
		reader:     bufio.NewReader(os.Stdin),
		history:    hist,
		table:      table,
		sig:        sig,
		launcher:   pipeline.New(table, sig, log),
		dispatcher: builtins.New(table, sig, hist),
	}
	return s, nil
}

// Close persists history. There is no terminal mode to restore: the
// shell never changed it.
func (s *Shell) Close() {
	saveHistory(s.history, s.cfg.HistoryFile, s.log)
}

// Run is the top-level loop: read one line, parse it, hand it to the
// builtin dispatcher or the pipeline launcher, repeat until
// end-of-input or quit/exit.
func (s *Shell) Run() error {
	defer s.Close()

	for {
		fmt.Print(s.cfg.Prompt)

		line, err := s.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return fmt.Errorf("shell: read line: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.history.Add(line)

		spec, err := parser.Parse(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			continue
		}

		if name := spec.Commands[0].Name; name == "quit" || name == "exit" {
			// quit/exit end the process inside Dispatch, so the deferred
			// Close never runs; persist history first.
			s.Close()
		}

		if err := s.dispatcher.Dispatch(spec); err == nil {
			continue
		} else if !errors.Is(err, builtins.ErrNotBuiltin) {
			s.log.WithError(err).Fatal("internal dispatcher error")
		}

		if err := s.launcher.Launch(spec); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
		}
	}
}

func loadHistory(h *History, path string, log *logrus.Entry) {
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	for _, l := range lines {
		if l != "" {
			h.Add(l)
		}
	}
	log.WithField("count", len(lines)).Debug("loaded history")
}

func saveHistory(h *History, path string, log *logrus.Entry) {
	if path == "" {
		return
	}
	lines := h.All()
	out := strings.Join(lines, "\n")
	if len(lines) > 0 {
		out += "\n"
	}
	if err := os.WriteFile(path, []byte(out), 0600); err != nil {
		log.WithError(err).Warn("failed to persist history")
	}
}
