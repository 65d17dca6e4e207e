// Package builtins implements the shell's job-control commands: jobs,
// fg, bg, slay, halt, cont, quit, exit — spec §4.5. Every builtin other
// than quit/exit catches its own errors and prints them to standard
// error without disturbing the top-level loop.
package builtins

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"golang.org/x/sys/unix"

	"stsh/internal/job"
	"stsh/internal/pipeline"
	"stsh/internal/signals"
)

// ErrNotBuiltin signals that the first command of a spec does not name
// a recognized builtin; the caller should hand the spec to the
// launcher instead.
var ErrNotBuiltin = errors.New("not a builtin")

var supported = map[string]bool{
	"quit": true, "exit": true, "jobs": true,
	"fg": true, "bg": true, "slay": true, "halt": true, "cont": true,
	"history": true,
}

// HistorySource supplies recorded input lines for the history builtin.
// shell.History satisfies this.
type HistorySource interface {
	All() []string
}

// Dispatcher resolves and executes builtin commands against the job
// table and signal layer.
type Dispatcher struct {
	Table   *job.Table
	Signals *signals.Layer
	History HistorySource
	Out     io.Writer
	Err     io.Writer
}

// New returns a Dispatcher writing to stdout/stderr.
func New(table *job.Table, sig *signals.Layer, history HistorySource) *Dispatcher {
	return &Dispatcher{Table: table, Signals: sig, History: history, Out: os.Stdout, Err: os.Stderr}
}

// IsBuiltin reports whether name is one of the recognized builtins.
func IsBuiltin(name string) bool {
	return supported[name]
}

// Dispatch executes spec's first command as a builtin. It returns
// ErrNotBuiltin if the first command does not name one; every other
// error returned here is a bug, since builtins handle their own
// user-facing errors (usage/semantic errors are printed to d.Err, not
// returned).
func (d *Dispatcher) Dispatch(spec pipeline.Spec) error {
	if len(spec.Commands) == 0 {
		return ErrNotBuiltin
	}
	cmd := spec.Commands[0]
	if !IsBuiltin(cmd.Name) {
		return ErrNotBuiltin
	}

	switch cmd.Name {
	case "quit", "exit":
		os.Exit(0)
	case "jobs":
		d.jobs()
	case "fg":
		d.fg(cmd.Args)
	case "bg":
		d.bg(cmd.Args)
	case "slay":
		d.signalTarget(cmd.Args, "slay", unix.SIGKILL)
	case "halt":
		d.signalTarget(cmd.Args, "halt", unix.SIGSTOP)
	case "cont":
		d.signalTarget(cmd.Args, "cont", unix.SIGCONT)
	case "history":
		d.history()
	}
	return nil
}

func (d *Dispatcher) jobs() {
	d.Table.Lock()
	defer d.Table.Unlock()
	d.Table.Print(d.Out)
}

// history lists recorded input lines, oldest first, one per line
// prefixed with its 1-based position — spec §9's supplemented feature.
func (d *Dispatcher) history() {
	if d.History == nil {
		return
	}
	for i, line := range d.History.All() {
		fmt.Fprintf(d.Out, "%5d  %s\n", i+1, line)
	}
}

func (d *Dispatcher) fg(args []string) {
	num, ok := parseSingleJobID(args)
	if !ok {
		fmt.Fprintln(d.Err, "Usage: fg <jobid>.")
		return
	}

	d.Table.Lock()
	j, found := d.Table.GetJob(num)
	if !found {
		d.Table.Unlock()
		fmt.Fprintf(d.Err, "fg %d: No such job.\n", num)
		return
	}
	d.Table.SetClassification(j, job.Foreground)
	pgid := j.PGID
	d.Table.Unlock()

	if err := unix.Kill(-pgid, unix.SIGCONT); err != nil {
		fmt.Fprintf(d.Err, "fg: failed to continue job %d: %v\n", num, err)
	}
	if err := d.Signals.TransferForeground(pgid); err != nil {
		fmt.Fprintf(d.Err, "fg: failed to transfer controlling terminal: %v\n", err)
		return
	}
	d.Signals.WaitForForeground()
}

func (d *Dispatcher) bg(args []string) {
	num, ok := parseSingleJobID(args)
	if !ok {
		fmt.Fprintln(d.Err, "Usage: bg <jobid>.")
		return
	}

	d.Table.Lock()
	j, found := d.Table.GetJob(num)
	if !found {
		d.Table.Unlock()
		fmt.Fprintf(d.Err, "bg %d: No such job.\n", num)
		return
	}
	d.Table.SetClassification(j, job.Background)
	pgid := j.PGID
	d.Table.Unlock()

	if err := unix.Kill(-pgid, unix.SIGCONT); err != nil {
		fmt.Fprintf(d.Err, "bg: failed to continue job %d: %v\n", num, err)
	}
}

// signalTarget implements slay/halt/cont: both accept either a bare
// pid or a (jobid, index) pair, and in both forms the signal is
// pid-directed, never group-directed — spec §9's resolution of the
// "sometimes kills the leader, sometimes the negated group" ambiguity
// in the source reserves group-directed signals for fg/bg alone.
func (d *Dispatcher) signalTarget(args []string, name string, sig unix.Signal) {
	usage := fmt.Sprintf("Usage: %s <pid> or %s <jobid> <index>.", name, name)

	var pid int
	switch len(args) {
	case 1:
		n, ok := parseNonNegative(args[0])
		if !ok {
			fmt.Fprintln(d.Err, usage)
			return
		}
		pid = n

		d.Table.Lock()
		exists := d.Table.ContainsProcess(pid)
		d.Table.Unlock()
		if !exists {
			fmt.Fprintf(d.Err, "No process with pid %d.\n", pid)
			return
		}
	case 2:
		jobNum, ok1 := parseNonNegative(args[0])
		index, ok2 := parseNonNegative(args[1])
		if !ok1 || !ok2 || jobNum < 1 {
			fmt.Fprintln(d.Err, usage)
			return
		}

		d.Table.Lock()
		j, found := d.Table.GetJob(jobNum)
		if !found {
			d.Table.Unlock()
			fmt.Fprintf(d.Err, "No job with id %d.\n", jobNum)
			return
		}
		if index < 0 || index >= len(j.Processes) {
			d.Table.Unlock()
			fmt.Fprintf(d.Err, "Job %d doesn't have a process at index %d.\n", jobNum, index)
			return
		}
		pid = j.Processes[index].PID
		d.Table.Unlock()
	default:
		fmt.Fprintln(d.Err, usage)
		return
	}

	if err := unix.Kill(pid, sig); err != nil {
		fmt.Fprintf(d.Err, "%s: failed to signal pid %d: %v\n", name, pid, err)
	}
}

func parseSingleJobID(args []string) (int, bool) {
	if len(args) != 1 {
		return 0, false
	}
	n, ok := parseNonNegative(args[0])
	if !ok || n < 1 {
		return 0, false
	}
	return n, true
}

func parseNonNegative(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
