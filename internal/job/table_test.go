package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddJobAllocatesSmallestUnusedNumber(t *testing.T) {
	tbl := NewTable()
	j1 := tbl.AddJob(Background)
	j2 := tbl.AddJob(Background)
	assert.Equal(t, 1, j1.Num)
	assert.Equal(t, 2, j2.Num)

	tbl.AddProcess(j1, &Process{PID: 100, Name: "sleep", State: Terminated})
	tbl.Synchronize(j1)
	require.False(t, tbl.ContainsJob(1))

	j3 := tbl.AddJob(Background)
	assert.Equal(t, 1, j3.Num, "freed job numbers must be reused")
}

func TestAddProcessSetsGroupIDFromLeader(t *testing.T) {
	tbl := NewTable()
	j := tbl.AddJob(Foreground)
	tbl.AddProcess(j, &Process{PID: 42, Name: "cat", State: Running})
	tbl.AddProcess(j, &Process{PID: 43, Name: "wc", Argv: []string{"-l"}, State: Running})

	assert.Equal(t, 42, j.PGID)
	for _, p := range j.Processes {
		assert.Equal(t, j.PGID, j.Leader().PID)
		_ = p
	}
}

func TestReverseIndexConsistency(t *testing.T) {
	tbl := NewTable()
	j := tbl.AddJob(Background)
	tbl.AddProcess(j, &Process{PID: 7, Name: "sleep", State: Running})

	require.True(t, tbl.ContainsProcess(7))
	found, ok := tbl.GetJobWithProcess(7)
	require.True(t, ok)
	assert.Equal(t, j, found)

	tbl.AddProcess(j, &Process{PID: 8, Name: "sleep", State: Terminated})
	j.Processes[0].State = Terminated
	tbl.Synchronize(j)
	assert.False(t, tbl.ContainsProcess(7))
	assert.False(t, tbl.ContainsProcess(8))
}

func TestAtMostOneForegroundJob(t *testing.T) {
	tbl := NewTable()
	a := tbl.AddJob(Foreground)
	b := tbl.AddJob(Background)

	tbl.SetClassification(b, Foreground)

	assert.Equal(t, Background, a.Classification)
	assert.Equal(t, Foreground, b.Classification)

	fg, ok := tbl.ForegroundJob()
	require.True(t, ok)
	assert.Equal(t, b, fg)
}

func TestSynchronizeLeavesLiveJobInPlace(t *testing.T) {
	tbl := NewTable()
	j := tbl.AddJob(Background)
	tbl.AddProcess(j, &Process{PID: 1, State: Running})
	tbl.AddProcess(j, &Process{PID: 2, State: Terminated})

	tbl.Synchronize(j)
	assert.True(t, tbl.ContainsJob(j.Num), "job with a live process must survive synchronize")
}

func TestJobStopped(t *testing.T) {
	j := &Job{Processes: []*Process{
		{PID: 1, State: Stopped},
		{PID: 2, State: Terminated},
	}}
	assert.True(t, j.Stopped())

	j.Processes = append(j.Processes, &Process{PID: 3, State: Running})
	assert.False(t, j.Stopped())
}
