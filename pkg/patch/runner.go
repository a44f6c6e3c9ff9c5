package patch

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/srcpack/pkg/logging"
)

// Output holds what a command wrote.
type Output struct {
	Stdout string
	Stderr string
}

// Combined returns stdout followed by stderr.
func (o Output) Combined() string {
	switch {
	case o.Stdout == "":
		return o.Stderr
	case o.Stderr == "":
		return o.Stdout
	default:
		return o.Stdout + "\n" + o.Stderr
	}
}

// Runner runs an external command in a working directory.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (Output, error)
}

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	logger zerolog.Logger
}

// NewExecRunner creates a runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{logger: logging.GetLogger("patch.runner")}
}

// Run executes name with args in dir and captures its output. The process
// is killed when ctx is cancelled.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (Output, error) {
	logging.LogCommand(r.logger, name, args)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}

	if out.Stdout != "" {
		r.logger.Debug().Str("output", out.Stdout).Msg("Command stdout")
	}
	if out.Stderr != "" {
		r.logger.Debug().Str("output", out.Stderr).Msg("Command stderr")
	}
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("command", name).
			Strs("args", args).
			Str("dir", dir).
			Msg("Command execution failed")
	}
	return out, err
}
