package signals

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"stsh/internal/job"
)

// Reap drains every pending child-status notification (non-blocking,
// including stopped and continued reports) until none remain, updating
// the job table for each and reclaiming the controlling terminal
// whenever the foreground slot empties — spec §4.3.
func (l *Layer) Reap() {
	l.Table.Lock()
	defer l.Table.Unlock()

	for {
		var status unix.WaitStatus
		pid, err := unix.Wait4(-1, &status, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		if pid <= 0 || err != nil {
			break
		}
		l.handleStatus(pid, status)
	}

	l.wakeWaiters()
}

func (l *Layer) handleStatus(pid int, status unix.WaitStatus) {
	j, ok := l.Table.GetJobWithProcess(pid)
	if !ok {
		return
	}
	p, ok := j.Process(pid)
	if !ok {
		return
	}

	wasForeground := j.Classification == job.Foreground

	switch {
	case status.Exited() || status.Signaled():
		p.State = job.Terminated
		l.Table.Synchronize(j)
		l.log.WithFields(logrus.Fields{"job": j.Num, "pid": pid}).Debug("process reaped")
		if wasForeground && !l.Table.ContainsJob(j.Num) {
			l.reclaimQuiet()
		}
	case status.Stopped():
		p.State = job.Stopped
		l.log.WithFields(logrus.Fields{"job": j.Num, "pid": pid}).Debug("process stopped")
		if wasForeground {
			l.reclaimQuiet()
			l.Table.SetClassification(j, job.Background)
		}
	case status.Continued():
		p.State = job.Running
		l.log.WithFields(logrus.Fields{"job": j.Num, "pid": pid}).Debug("process continued")
	}
}

func (l *Layer) reclaimQuiet() {
	if err := l.ReclaimShell(); err != nil {
		l.log.WithError(err).Error("failed to reclaim controlling terminal")
		return
	}
	l.log.Debug("controlling terminal reclaimed by shell")
}
