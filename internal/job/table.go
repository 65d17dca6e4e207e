package job

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// Table is the ordered collection of active jobs: the mapping from job
// number to job, plus a reverse index from pid to job number for the
// reaper's O(1) lookups. It is the shell's sole mutable shared state —
// see the signals package doc for the locking discipline callers must
// observe (hold Lock around every access performed outside the
// reaper). Table itself performs no internal locking around
// individual calls; Lock/Unlock bracket whole critical sections (a
// multi-step launch, a single reaper drain) the way spec §5 requires,
// rather than serializing each call independently.
type Table struct {
	mu      sync.Mutex
	jobs    map[int]*Job
	byPID   map[int]int // pid -> job number
	nextNum int
}

// Lock begins a critical section across which the job table may be
// mutated or inspected without interleaving from the reaper goroutine.
func (t *Table) Lock() { t.mu.Lock() }

// Unlock ends a critical section begun with Lock.
func (t *Table) Unlock() { t.mu.Unlock() }

// NewTable returns an empty job table.
func NewTable() *Table {
	return &Table{
		jobs:    make(map[int]*Job),
		byPID:   make(map[int]int),
		nextNum: 1,
	}
}

// AddJob allocates the smallest unused job number, inserts an empty job
// with that classification, and returns it for the caller to populate
// via AddProcess.
func (t *Table) AddJob(c Classification) *Job {
	num := t.allocNum()
	j := &Job{Num: num, Classification: c}
	t.jobs[num] = j
	return j
}

func (t *Table) allocNum() int {
	for n := 1; ; n++ {
		if _, ok := t.jobs[n]; !ok {
			return n
		}
	}
}

// AddProcess appends a process to job and indexes it by pid.
func (t *Table) AddProcess(j *Job, p *Process) {
	j.AddProcess(p)
	t.byPID[p.PID] = j.Num
}

// ContainsJob reports whether num names a job currently in the table.
func (t *Table) ContainsJob(num int) bool {
	_, ok := t.jobs[num]
	return ok
}

// GetJob returns the job numbered num, failing if absent.
func (t *Table) GetJob(num int) (*Job, bool) {
	j, ok := t.jobs[num]
	return j, ok
}

// ContainsProcess reports whether pid names a process in any job.
func (t *Table) ContainsProcess(pid int) bool {
	_, ok := t.byPID[pid]
	return ok
}

// GetJobWithProcess performs the reverse lookup from pid to the job
// that contains it.
func (t *Table) GetJobWithProcess(pid int) (*Job, bool) {
	num, ok := t.byPID[pid]
	if !ok {
		return nil, false
	}
	j, ok := t.jobs[num]
	return j, ok
}

// HasForegroundJob reports whether any job is currently classified
// foreground.
func (t *Table) HasForegroundJob() bool {
	_, ok := t.ForegroundJob()
	return ok
}

// ForegroundJob returns the at-most-one foreground job.
func (t *Table) ForegroundJob() (*Job, bool) {
	for _, j := range t.jobs {
		if j.Classification == Foreground {
			return j, true
		}
	}
	return nil, false
}

// SetClassification reclassifies a job and enforces the at-most-one
// foreground invariant by demoting any job currently holding it.
func (t *Table) SetClassification(j *Job, c Classification) {
	if c == Foreground {
		if fg, ok := t.ForegroundJob(); ok && fg != j {
			fg.Classification = Background
		}
	}
	j.Classification = c
}

// Synchronize removes job from the table if every one of its processes
// has terminated; otherwise it is left in place. Callers invoke this
// after mutating a process's state.
func (t *Table) Synchronize(j *Job) {
	if j.Live() {
		return
	}
	delete(t.jobs, j.Num)
	for _, p := range j.Processes {
		delete(t.byPID, p.PID)
	}
}

// Jobs returns the table's jobs ordered by job number, for stable
// iteration (used by Print and by tests).
func (t *Table) Jobs() []*Job {
	out := make([]*Job, 0, len(t.jobs))
	for _, j := range t.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Num < out[k].Num })
	return out
}

// Print writes a human-readable listing: one line per job showing job
// number and classification, then one line per process showing pid,
// state, and command.
func (t *Table) Print(w io.Writer) {
	for _, j := range t.Jobs() {
		fmt.Fprintf(w, "[%d] %s\n", j.Num, j.Classification)
		for _, p := range j.Processes {
			fmt.Fprintf(w, "\t%d\t%-10s %s\n", p.PID, p.State, p.Command())
		}
	}
}
