package job

// Classification distinguishes the at-most-one foreground job from
// every background job in the table.
type Classification int

const (
	Foreground Classification = iota
	Background
)

func (c Classification) String() string {
	if c == Foreground {
		return "Foreground"
	}
	return "Background"
}

// Job is an ordered group of processes sharing a process group id, a
// job number unique within the table while the job is in it (numbers
// of removed jobs are reused), and a foreground or background
// classification.
type Job struct {
	Num            int
	PGID           int
	Processes      []*Process
	Classification Classification
}

// Leader returns the job's first process, the one whose pid equals the
// job's process group id. A freshly-allocated job with no processes yet
// has no leader.
func (j *Job) Leader() *Process {
	if len(j.Processes) == 0 {
		return nil
	}
	return j.Processes[0]
}

// AddProcess appends a process to the job. The first process appended
// defines the job's process group id.
func (j *Job) AddProcess(p *Process) {
	if len(j.Processes) == 0 {
		j.PGID = p.PID
	}
	j.Processes = append(j.Processes, p)
}

// ContainsProcess reports whether pid names one of the job's processes.
func (j *Job) ContainsProcess(pid int) bool {
	_, ok := j.process(pid)
	return ok
}

// Process returns the process in the job with the given pid, if any.
func (j *Job) Process(pid int) (*Process, bool) {
	return j.process(pid)
}

func (j *Job) process(pid int) (*Process, bool) {
	for _, p := range j.Processes {
		if p.PID == pid {
			return p, true
		}
	}
	return nil, false
}

// Live reports whether at least one process in the job has not
// terminated.
func (j *Job) Live() bool {
	for _, p := range j.Processes {
		if p.State != Terminated {
			return true
		}
	}
	return false
}

// Stopped reports whether every live process in the job is stopped —
// the job as a whole is considered stopped once none of its processes
// are running.
func (j *Job) Stopped() bool {
	sawLive := false
	for _, p := range j.Processes {
		if p.State == Terminated {
			continue
		}
		sawLive = true
		if p.State != Stopped {
			return false
		}
	}
	return sawLive
}
