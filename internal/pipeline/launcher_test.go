package pipeline

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stsh/internal/job"
	"stsh/internal/signals"
)

func newTestLauncher(t *testing.T) (*Launcher, *job.Table) {
	t.Helper()
	tbl := job.NewTable()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	log := logger.WithField("test", t.Name())
	sig := signals.New(tbl, log)
	sig.Install()
	return New(tbl, sig, log), tbl
}

func makePipes(t *testing.T, n int) []pipePair {
	t.Helper()
	pipes := make([]pipePair, n)
	for i := range pipes {
		r, w, err := os.Pipe()
		require.NoError(t, err)
		pipes[i] = pipePair{r: r, w: w}
		t.Cleanup(func() {
			if pipes[i].r != nil {
				pipes[i].r.Close()
			}
			if pipes[i].w != nil {
				pipes[i].w.Close()
			}
		})
	}
	return pipes
}

func TestWireStdinFirstStageNoRedirectUsesOSStdin(t *testing.T) {
	l := &Launcher{}
	cmd := exec.Command("true")
	require.NoError(t, l.wireStdin(cmd, Spec{}, 0, nil))
	assert.Equal(t, os.Stdin, cmd.Stdin)
}

func TestWireStdinFirstStageWithRedirectOpensFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "in")
	require.NoError(t, err)
	f.Close()

	l := &Launcher{}
	cmd := exec.Command("true")
	require.NoError(t, l.wireStdin(cmd, Spec{Input: f.Name()}, 0, nil))
	assert.NotNil(t, cmd.Stdin)
}

func TestWireStdinLaterStageReadsFromPreviousPipe(t *testing.T) {
	pipes := makePipes(t, 1)
	l := &Launcher{}
	cmd := exec.Command("true")
	require.NoError(t, l.wireStdin(cmd, Spec{}, 1, pipes))
	assert.Equal(t, pipes[0].r, cmd.Stdin)
}

func TestWireStdoutLastStageNoRedirectUsesOSStdout(t *testing.T) {
	l := &Launcher{}
	cmd := exec.Command("true")
	require.NoError(t, l.wireStdout(cmd, Spec{}, 0, 1, nil))
	assert.Equal(t, os.Stdout, cmd.Stdout)
}

func TestWireStdoutMiddleStageWritesToOwnPipe(t *testing.T) {
	pipes := makePipes(t, 1)
	l := &Launcher{}
	cmd := exec.Command("true")
	require.NoError(t, l.wireStdout(cmd, Spec{}, 0, 2, pipes))
	assert.Equal(t, pipes[0].w, cmd.Stdout)
}

func TestCloseConsumedEndsClosesPriorReadAndOwnWrite(t *testing.T) {
	pipes := makePipes(t, 2)
	closeConsumedEnds(pipes, 1, 3)
	assert.Nil(t, pipes[0].r)
	assert.Nil(t, pipes[1].w)
}

func TestCloseAllClosesEveryEndWithoutClearingFields(t *testing.T) {
	pipes := makePipes(t, 2)
	closeAll(pipes)
	for _, p := range pipes {
		assert.NotNil(t, p.r) // closeAll doesn't nil the struct fields, only closes the fds
		assert.ErrorIs(t, p.r.Close(), os.ErrClosed)
		assert.ErrorIs(t, p.w.Close(), os.ErrClosed)
	}
}

// TestLaunchForegroundFastExitingCommandDoesNotHang guards against the
// race where the reaper reaps a child's one-time exit record before
// Launch has registered it in the job table: if that happened, the
// process would be dropped silently and WaitForForeground would block
// forever on an ordinary command.
func TestLaunchForegroundFastExitingCommandDoesNotHang(t *testing.T) {
	l, tbl := newTestLauncher(t)

	done := make(chan error, 1)
	go func() { done <- l.Launch(Spec{Commands: []Command{{Name: "true"}}}) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Launch did not return for a fast-exiting foreground command")
	}

	assert.Empty(t, tbl.Jobs())
}

func TestLaunchBackgroundJobIsRegisteredAndReturnsImmediately(t *testing.T) {
	l, tbl := newTestLauncher(t)

	err := l.Launch(Spec{Commands: []Command{{Name: "sleep", Args: []string{"0.2"}}}, Background: true})
	require.NoError(t, err)

	jobs := tbl.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, job.Background, jobs[0].Classification)

	time.Sleep(400 * time.Millisecond) // let the reaper clear it before the test exits
}

// TestLaunchAbortOnCommandNotFoundClearsForeground guards against the
// abort path leaving a failed launch classified Foreground forever,
// which would let a subsequent Launch create a second foreground job.
func TestLaunchAbortOnCommandNotFoundClearsForeground(t *testing.T) {
	l, tbl := newTestLauncher(t)

	err := l.Launch(Spec{Commands: []Command{{Name: "this-command-does-not-exist-xyz"}}})
	require.NoError(t, err)

	_, hasForeground := tbl.ForegroundJob()
	assert.False(t, hasForeground, "a failed launch must not leave a dangling foreground job")
	assert.Empty(t, tbl.Jobs())
}
