package runner

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/repofetch-go/internal/domain"
)

func taskFixture(branch string) domain.CloneTask {
	return domain.CloneTask{
		Name:    "ESP-IDF",
		RepoURL: "https://example/repo.git",
		Branch:  branch,
	}
}

// recordingSink captures progress updates for assertions.
type recordingSink struct {
	mu      sync.Mutex
	reports [][2]string
}

func (s *recordingSink) Report(message, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, [2]string{message, detail})
}

func (s *recordingSink) all() [][2]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][2]string(nil), s.reports...)
}

// fakeGit writes a shell script that stands in for the git binary and
// returns a task pointing at it.
func fakeGit(t *testing.T, script string) domain.CloneTask {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub scripts require a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "git")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))

	task := taskFixture("release/v5.0")
	task.GitPath = path
	task.WorkDir = dir
	return task
}

// wait receives the completion value with a timeout. ok is false when the
// channel was closed without a value (cancellation).
func wait(t *testing.T, done <-chan error, timeout time.Duration) (error, bool) {
	t.Helper()
	select {
	case err, ok := <-done:
		return err, ok
	case <-time.After(timeout):
		t.Fatal("completion channel did not resolve in time")
		return nil, false
	}
}

func TestRunnerSuccess(t *testing.T) {
	sink := &recordingSink{}
	r := New(Options{Sink: sink})
	task := fakeGit(t, `
echo "Cloning into 'repo'..." >&2
sleep 0.3
echo "Receiving objects: 10% ... 55% ... 99%" >&2
exit 0
`)

	done, err := r.Start(task)
	require.NoError(t, err)

	res, ok := wait(t, done, 10*time.Second)
	assert.True(t, ok)
	assert.NoError(t, res)

	reports := sink.all()
	require.NotEmpty(t, reports)
	assert.True(t, strings.HasPrefix(reports[0][0], " Cloning into"),
		"detail message must carry exactly one leading space, got %q", reports[0][0])
	last := reports[len(reports)-1]
	assert.Equal(t, "Downloading 99%", last[0])
	assert.Equal(t, "99%", last[1])
}

func TestRunnerNonZeroExit(t *testing.T) {
	r := New(Options{})
	task := fakeGit(t, "exit 7\n")

	done, err := r.Start(task)
	require.NoError(t, err)

	res, ok := wait(t, done, 10*time.Second)
	require.True(t, ok)
	require.Error(t, res)
	assert.Contains(t, res.Error(), "ESP-IDF")
	assert.Contains(t, res.Error(), "7")

	var cloneErr *domain.CloneError
	require.ErrorAs(t, res, &cloneErr)
	assert.Equal(t, 7, cloneErr.ExitCode)
}

func TestRunnerErrorMarker(t *testing.T) {
	r := New(Options{})
	task := fakeGit(t, `
echo "remote: Error while fetching pack" >&2
sleep 0.3
echo "remote: Error second marker" >&2
exit 1
`)

	done, err := r.Start(task)
	require.NoError(t, err)

	res, ok := wait(t, done, 10*time.Second)
	require.True(t, ok)
	require.Error(t, res)
	assert.Contains(t, res.Error(), "Error while fetching pack")

	// Exactly one resolution: the channel is closed after the first value.
	_, ok = <-done
	assert.False(t, ok)
}

func TestRunnerSpawnFailure(t *testing.T) {
	r := New(Options{})
	task := taskFixture("main")
	task.GitPath = filepath.Join(t.TempDir(), "no-such-binary")

	done, err := r.Start(task)
	require.NoError(t, err)

	res, ok := wait(t, done, 5*time.Second)
	require.True(t, ok)
	require.Error(t, res)

	var cloneErr *domain.CloneError
	assert.ErrorAs(t, res, &cloneErr)
}

func TestRunnerRefusesConcurrentClone(t *testing.T) {
	r := New(Options{})
	task := fakeGit(t, "sleep 30\n")

	done, err := r.Start(task)
	require.NoError(t, err)
	defer r.Cancel()

	_, err = r.Start(task)
	assert.ErrorIs(t, err, domain.ErrCloneInProgress)

	r.Cancel()
	_, ok := wait(t, done, 10*time.Second)
	assert.False(t, ok)
}

func TestRunnerCancel(t *testing.T) {
	r := New(Options{})
	task := fakeGit(t, "sleep 30\n")

	done, err := r.Start(task)
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)
	r.Cancel()

	// Cancellation does not resolve the completion channel with an error;
	// it is closed without a value once the process is reaped.
	res, ok := wait(t, done, 10*time.Second)
	assert.False(t, ok)
	assert.NoError(t, res)
}

func TestRunnerCancelIdempotent(t *testing.T) {
	r := New(Options{})

	// Nothing running: no-op, no panic.
	r.Cancel()

	task := fakeGit(t, "sleep 30\n")
	done, err := r.Start(task)
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)
	r.Cancel()
	r.Cancel()

	_, ok := wait(t, done, 10*time.Second)
	assert.False(t, ok)

	// Runner is reusable after cancellation.
	task2 := fakeGit(t, "exit 0\n")
	done2, err := r.Start(task2)
	require.NoError(t, err)
	res, ok := wait(t, done2, 10*time.Second)
	assert.True(t, ok)
	assert.NoError(t, res)
}

func TestRunnerNoProgressAfterResolution(t *testing.T) {
	sink := &recordingSink{}
	r := New(Options{Sink: sink})
	task := fakeGit(t, `
echo "remote: Error broken" >&2
sleep 0.3
echo "Receiving objects: 50%" >&2
exit 1
`)

	done, err := r.Start(task)
	require.NoError(t, err)

	res, ok := wait(t, done, 10*time.Second)
	require.True(t, ok)
	require.Error(t, res)

	// Drain until the channel closes, then check no progress was emitted
	// after the rejection.
	<-done
	for _, rep := range sink.all() {
		assert.NotContains(t, rep[0], "Downloading")
	}
}
