// Package runner supervises a single git clone subprocess: it streams the
// process output, derives progress and error signals from it, and resolves
// a single-resolution completion channel.
package runner

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/quantmind-br/repofetch-go/internal/domain"
	"github.com/quantmind-br/repofetch-go/internal/utils"
)

// readBufferSize is the chunk size for stream reads. Git emits progress as
// carriage-return terminated fragments, so chunks rarely approach this.
const readBufferSize = 4096

// Runner owns at most one clone subprocess at a time. Starting a new clone
// while one is active is refused; callers must serialize.
type Runner struct {
	logger *utils.Logger
	sink   domain.ProgressSink

	mu        sync.Mutex
	proc      *os.Process
	running   bool
	cancelled bool
}

// Options contains options for creating a Runner.
type Options struct {
	Logger *utils.Logger
	Sink   domain.ProgressSink
}

// New creates a Runner. A nil logger discards log output and a nil sink
// discards progress updates.
func New(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	sink := opts.Sink
	if sink == nil {
		sink = nopSink{}
	}
	return &Runner{
		logger: logger.WithComponent("runner"),
		sink:   sink,
	}
}

type nopSink struct{}

func (nopSink) Report(message, detail string) {}

// streamChunk is one chunk of raw output from stdout or stderr.
type streamChunk struct {
	stream string
	text   string
}

// CloneArgs returns the git argument vector for a task.
func CloneArgs(task domain.CloneTask) []string {
	args := []string{"clone", "--recursive", "--progress"}
	if task.Branch != "" {
		args = append(args, "-b", task.Branch)
	}
	return append(args, task.RepoURL)
}

// Start spawns the clone subprocess for task and returns a completion
// channel that receives exactly one value: nil on success or the failure
// error. The channel is closed afterwards. After Cancel the channel is
// closed without a value; cancellation is reported through the mechanism
// that initiated it, never through the completion channel.
//
// Start returns a synchronous error only when a clone is already running.
// OS-level spawn failures are delivered on the completion channel.
func (r *Runner) Start(task domain.CloneTask) (<-chan error, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil, domain.ErrCloneInProgress
	}

	done := make(chan error, 1)
	log := r.logger.WithTask(task.Name)

	cmd := exec.Command(task.Git(), CloneArgs(task)...)
	cmd.Dir = task.WorkDir
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		done <- domain.NewSpawnError(task.Name, err)
		close(done)
		return done, nil
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		done <- domain.NewSpawnError(task.Name, err)
		close(done)
		return done, nil
	}

	if err := cmd.Start(); err != nil {
		log.Error().Err(err).Msg("failed to spawn git")
		done <- domain.NewSpawnError(task.Name, err)
		close(done)
		return done, nil
	}

	r.proc = cmd.Process
	r.running = true
	r.cancelled = false

	log.Info().
		Str("repo", task.RepoURL).
		Str("branch", task.Branch).
		Str("dir", task.WorkDir).
		Int("pid", cmd.Process.Pid).
		Msg("clone started")

	// stdout, stderr and exit are three event sources fanned into the
	// supervise goroutine, which is the sole owner of resolution state.
	chunks := make(chan streamChunk, 16)
	var readers sync.WaitGroup
	readers.Add(2)
	go r.readStream("stdout", stdout, chunks, &readers)
	go r.readStream("stderr", stderr, chunks, &readers)
	go func() {
		readers.Wait()
		close(chunks)
	}()
	go r.supervise(task, cmd, chunks, done)

	return done, nil
}

// readStream forwards raw chunks as received, without line reassembly.
func (r *Runner) readStream(name string, src io.Reader, chunks chan<- streamChunk, wg *sync.WaitGroup) {
	defer wg.Done()
	buf := make([]byte, readBufferSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			chunks <- streamChunk{stream: name, text: string(buf[:n])}
		}
		if err != nil {
			return
		}
	}
}

// supervise consumes stream chunks until both pipes close, then reaps the
// process. It alone resolves the completion channel, so the exactly-once
// guarantee needs no lock.
func (r *Runner) supervise(task domain.CloneTask, cmd *exec.Cmd, chunks <-chan streamChunk, done chan<- error) {
	log := r.logger.WithTask(task.Name)
	resolved := false
	resolve := func(err error) {
		if resolved {
			return
		}
		resolved = true
		done <- err
	}

	for c := range chunks {
		log.RawOutput(c.stream, c.text)
		if resolved {
			// Late chunks are logged only; they must not re-trigger
			// failure or emit progress past resolution.
			continue
		}
		switch cl := Classify(c.text); cl.Kind {
		case KindError:
			log.Error().Str("stream", c.stream).Msg(c.text)
			resolve(domain.NewOutputError(task.Name, c.text))
			// The marker means the clone is lost; reap the whole tree
			// instead of letting a dead task's process linger.
			r.killTree()
		case KindProgress:
			r.sink.Report("Downloading "+cl.Percent, cl.Percent)
		case KindDetail:
			r.sink.Report(" "+cl.Text, "")
		}
	}

	err := cmd.Wait()

	r.mu.Lock()
	cancelled := r.cancelled
	r.proc = nil
	r.running = false
	r.mu.Unlock()

	if cancelled {
		// Cancellation owns resolution. Close without a value so waiters
		// unblock; the cancelling side reports the abort.
		log.Info().Msg("clone process reaped after cancellation")
		close(done)
		return
	}

	switch {
	case err == nil:
		log.Info().Msg("clone finished")
		resolve(nil)
	default:
		if exitErr, ok := err.(*exec.ExitError); ok {
			log.Error().Int("exit_code", exitErr.ExitCode()).Msg("clone failed")
			resolve(domain.NewExitError(task.Name, exitErr.ExitCode()))
		} else {
			resolve(fmt.Errorf("waiting for git: %w", err))
		}
	}
	close(done)
}

// Cancel forcefully terminates the running clone and its whole process
// tree (recursive clones spawn child processes). Idempotent: calling it
// with nothing running is a no-op. The completion channel is not failed
// here; the exit handler sees the cancelled flag and closes it unresolved.
func (r *Runner) Cancel() {
	r.mu.Lock()
	proc := r.proc
	if proc != nil {
		r.cancelled = true
		r.proc = nil
	}
	r.mu.Unlock()

	if proc == nil {
		return
	}

	r.logger.Info().Int("pid", proc.Pid).Msg("cancelling clone, killing process tree")
	if err := killProcessTree(proc); err != nil {
		r.logger.Warn().Err(err).Msg("failed to kill process tree")
	}
}

// killTree kills the current process tree without marking the runner
// cancelled; used when an error marker makes the clone unrecoverable.
func (r *Runner) killTree() {
	r.mu.Lock()
	proc := r.proc
	r.mu.Unlock()

	if proc == nil {
		return
	}
	if err := killProcessTree(proc); err != nil {
		r.logger.Warn().Err(err).Msg("failed to kill process tree")
	}
}
