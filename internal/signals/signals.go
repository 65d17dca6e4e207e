// Package signals installs the shell's signal handlers and provides
// the reaper and the waitForForeground suspend primitive described in
// spec §4.2/§4.3. Go delivers signals to a dedicated runtime goroutine
// via os/signal rather than interrupting arbitrary code the way a
// POSIX sa_handler does, so the "block child-status notifications
// during a critical section" discipline of spec §5 is rendered here as
// a mutex on the job table (see job.Table.Lock/Unlock) taken both by
// the reaper goroutine and by any non-handler code that mutates the
// table — the two can never run the critical section concurrently,
// which is the property spec §5 actually requires.
package signals

import (
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"stsh/internal/job"
)

// Layer owns the job table and mediates the foreground slot: it
// installs the shell's signal handlers, reaps child-status
// notifications, and exposes WaitForForeground for the launcher to
// block on.
type Layer struct {
	Table    *job.Table
	ShellPID int

	log  *logrus.Entry
	wake chan struct{}
	sig  chan os.Signal
}

// New constructs a Layer bound to table. Call Install to start
// handling signals.
func New(table *job.Table, log *logrus.Entry) *Layer {
	return &Layer{
		Table:    table,
		ShellPID: unix.Getpid(),
		log:      log,
		wake:     make(chan struct{}, 1),
		sig:      make(chan os.Signal, 16),
	}
}

// Install registers the shell's signal handlers: SIGCHLD drives the
// reaper, SIGINT/SIGTSTP forward to the foreground group, SIGQUIT
// terminates the shell, and SIGTTIN/SIGTTOU are ignored so the shell
// itself is never stopped by its own tty-control ioctls (see
// TransferForeground).
func (l *Layer) Install() {
	signal.Notify(l.sig,
		unix.SIGCHLD,
		unix.SIGINT,
		unix.SIGTSTP,
		unix.SIGQUIT,
	)
	signal.Ignore(unix.SIGTTIN, unix.SIGTTOU)

	go l.loop()
}

func (l *Layer) loop() {
	for s := range l.sig {
		switch s {
		case unix.SIGCHLD:
			l.Reap()
		case unix.SIGINT, unix.SIGTSTP:
			l.forwardToForeground(s.(unix.Signal))
		case unix.SIGQUIT:
			os.Exit(0)
		}
	}
}

func (l *Layer) forwardToForeground(sig unix.Signal) {
	l.Table.Lock()
	fg, ok := l.Table.ForegroundJob()
	pgid := 0
	if ok {
		pgid = fg.PGID
	}
	l.Table.Unlock()

	if pgid > 0 {
		if err := unix.Kill(-pgid, sig); err != nil {
			l.log.WithError(err).WithField("pgid", pgid).Warn("failed to forward signal to foreground group")
		}
	}
}

// TransferForeground makes pgid the controlling terminal's foreground
// process group. Failure is a terminal-control error per spec §7: it
// is returned to the caller, which reports it and decides whether the
// current action must be abandoned.
func (l *Layer) TransferForeground(pgid int) error {
	return unix.IoctlSetInt(int(os.Stdin.Fd()), unix.TIOCSPGRP, pgid)
}

// ReclaimShell returns the controlling terminal to the shell's own
// process group.
func (l *Layer) ReclaimShell() error {
	return l.TransferForeground(unix.Getpgrp())
}

func (l *Layer) wakeWaiters() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// WaitForForeground blocks until the job table no longer has a
// foreground job — the Go rendition of the sigsuspend-based suspend
// primitive in spec §4.2, since Go has no equivalent of atomically
// unmasking signals while blocking.
func (l *Layer) WaitForForeground() {
	for {
		l.Table.Lock()
		hasFg := l.Table.HasForegroundJob()
		l.Table.Unlock()
		if !hasFg {
			return
		}
		<-l.wake
	}
}
