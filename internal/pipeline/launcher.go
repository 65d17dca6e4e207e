package pipeline

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"stsh/internal/job"
	"stsh/internal/signals"
)

// Launcher constructs multi-process pipelines: it forks, pipes,
// redirects, sets process groups, transfers terminal ownership,
// registers processes with the job table, and waits if the pipeline is
// in the foreground — spec §4.4.
type Launcher struct {
	Table   *job.Table
	Signals *signals.Layer
	log     *logrus.Entry
}

// New returns a Launcher bound to table and the signal layer that
// mediates the foreground slot.
func New(table *job.Table, sig *signals.Layer, log *logrus.Entry) *Launcher {
	return &Launcher{Table: table, Signals: sig, log: log}
}

// Launch runs spec: it builds the job, starts every stage of the
// pipeline wired left to right, and either returns immediately (for a
// background pipeline, after announcing it) or blocks until the
// foreground job is no longer foreground (completed or stopped).
func (l *Launcher) Launch(spec Spec) error {
	if len(spec.Commands) == 0 {
		return nil
	}

	n := len(spec.Commands)
	pipes := make([]pipePair, n-1)
	for i := range pipes {
		r, w, err := os.Pipe()
		if err != nil {
			return fmt.Errorf("pipeline: create pipe: %w", err)
		}
		pipes[i] = pipePair{r: r, w: w}
	}

	classification := job.Foreground
	if spec.Background {
		classification = job.Background
	}

	l.Table.Lock()
	j := l.Table.AddJob(classification)
	l.Table.Unlock()
	l.log.WithFields(logrus.Fields{"job": j.Num, "background": spec.Background}).Debug("job created")

	var leaderPID int

	// abort tears down a pipeline that failed partway through launch.
	// It only ever signals already-started children; it must never
	// wait(2) on them itself — the reaper is the sole caller of wait4
	// (spec §5's "sole synchronization primitive" extends to sole
	// reaper of child state, not just sole table mutator), so a
	// SIGKILL here is cleaned up the ordinary way once SIGCHLD
	// arrives. It also demotes j out of the foreground slot itself: the
	// reaper won't clear that until the SIGKILL is delivered and
	// reaped, and a stale Foreground classification until then would
	// let the next Launch call create a second foreground job.
	abort := func(err error) error {
		closeAll(pipes)
		l.Table.Lock()
		if j.PGID != 0 {
			l.Table.SetClassification(j, job.Background)
		}
		l.Table.Synchronize(j)
		l.Table.Unlock()
		if j.PGID != 0 {
			_ = unix.Kill(-j.PGID, unix.SIGKILL)
		}
		return err
	}

	for i, c := range spec.Commands {
		cmd := exec.Command(c.Name, c.Args...)
		cmd.SysProcAttr = &unix.SysProcAttr{Setpgid: true}
		if i > 0 {
			cmd.SysProcAttr.Pgid = leaderPID
		}

		if err := l.wireStdin(cmd, spec, i, pipes); err != nil {
			return abort(err)
		}
		if err := l.wireStdout(cmd, spec, i, n, pipes); err != nil {
			return abort(err)
		}
		cmd.Stderr = os.Stderr

		// The table stays locked from Start through AddProcess so the
		// reaper can never observe this pid's SIGCHLD and reap it before
		// it's registered — a fast-exiting child would otherwise have its
		// one-time exit record consumed and silently dropped, leaving a
		// registered process that will never signal again.
		l.Table.Lock()
		if err := cmd.Start(); err != nil {
			l.Table.Unlock()
			fmt.Fprintf(os.Stderr, "%s: Command not found.\n", c.Name)
			l.log.WithError(err).WithField("command", c.Name).Warn("launch error")
			return abort(nil)
		}

		if i == 0 {
			leaderPID = cmd.Process.Pid
		}

		l.Table.AddProcess(j, &job.Process{
			PID:   cmd.Process.Pid,
			Name:  c.Name,
			Argv:  c.Args,
			State: job.Running,
		})
		l.Table.Unlock()

		if i == 0 && classification == job.Foreground {
			if err := l.Signals.TransferForeground(j.PGID); err != nil {
				l.log.WithError(err).Error("failed to transfer controlling terminal")
			} else {
				l.log.WithFields(logrus.Fields{"job": j.Num, "pgid": j.PGID}).Debug("foreground transferred")
			}
		}

		closeConsumedEnds(pipes, i, n)
	}

	closeAll(pipes)

	if spec.Background {
		announce(j)
		return nil
	}

	l.Signals.WaitForForeground()
	return nil
}

func announce(j *job.Job) {
	fmt.Printf("[%d]", j.Num)
	for _, p := range j.Processes {
		fmt.Printf(" %d", p.PID)
	}
	fmt.Println()
}

type pipePair struct {
	r, w *os.File
}

func (l *Launcher) wireStdin(cmd *exec.Cmd, spec Spec, i int, pipes []pipePair) error {
	switch {
	case i == 0 && spec.Input != "":
		f, err := os.Open(spec.Input)
		if err != nil {
			return fmt.Errorf("input redirect: %w", err)
		}
		cmd.Stdin = f
	case i == 0:
		cmd.Stdin = os.Stdin
	default:
		cmd.Stdin = pipes[i-1].r
	}
	return nil
}

func (l *Launcher) wireStdout(cmd *exec.Cmd, spec Spec, i, n int, pipes []pipePair) error {
	switch {
	case i == n-1 && spec.Output != "":
		f, err := os.OpenFile(spec.Output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("output redirect: %w", err)
		}
		cmd.Stdout = f
	case i == n-1:
		cmd.Stdout = os.Stdout
	default:
		cmd.Stdout = pipes[i].w
	}
	return nil
}

// closeConsumedEnds closes the pipe ends this stage duplicated onto
// its own stdio, mirroring the teacher's progressive-close style so no
// read end is left open past the writer that should signal EOF on it.
func closeConsumedEnds(pipes []pipePair, i, n int) {
	if i > 0 && pipes[i-1].r != nil {
		pipes[i-1].r.Close()
		pipes[i-1].r = nil
	}
	if i < n-1 && pipes[i].w != nil {
		pipes[i].w.Close()
		pipes[i].w = nil
	}
}

func closeAll(pipes []pipePair) {
	for _, p := range pipes {
		if p.r != nil {
			p.r.Close()
		}
		if p.w != nil {
			p.w.Close()
		}
	}
}
