// pkg/execute/execute.go

package execute

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/cephkeys_err"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/telemetry"
)

// Package execute is the only place that touches os/exec. Everything above
// it talks to the Runner interface so tests can substitute a scripted fake
// without spawning real subprocesses.

// Options describes one subprocess invocation.
type Options struct {
	Command string
	Args    []string

	// Timeout bounds the whole invocation; zero means the default.
	Timeout time.Duration

	// Stdout, when set, receives the subprocess's standard output directly
	// (used to stream credential material into a staging file). When nil,
	// stdout is captured into Result.Output.
	Stdout io.Writer

	Logger *zap.Logger
}

// Result is the explicit outcome of a subprocess run. A non-zero exit is
// data, not an error: classification is the caller's job.
type Result struct {
	// Output is captured stdout, empty when Options.Stdout was set.
	Output string

	// Stderr is always captured, for diagnostics only.
	Stderr string

	ExitCode int
}

// Runner runs subprocesses. The returned error is reserved for failures to
// run at all (binary missing, context cancelled); an abnormal exit comes
// back as Result.ExitCode.
type Runner interface {
	Run(ctx context.Context, opts Options) (*Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, opts Options) (*Result, error)

func (f RunnerFunc) Run(ctx context.Context, opts Options) (*Result, error) {
	return f(ctx, opts)
}

// Exec is the real Runner backed by exec.CommandContext.
type Exec struct{}

func (Exec) Run(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.L()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cmdStr := buildCommandString(opts.Command, opts.Args...)

	rctx, cancel := context.WithTimeout(ctx, defaultTimeout(opts.Timeout))
	defer cancel()

	rctx, span := telemetry.Start(rctx, "execute.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("command", opts.Command),
		attribute.String("args", strings.Join(opts.Args, " ")),
	)

	logger.Debug("Starting execution", zap.String("command", cmdStr))

	cmd := exec.CommandContext(rctx, opts.Command, opts.Args...)

	var stdout, stderr bytes.Buffer
	if opts.Stdout != nil {
		cmd.Stdout = opts.Stdout
	} else {
		cmd.Stdout = &stdout
	}
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{
		Output: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !cerr.As(err, &exitErr) {
			span.RecordError(err)
			logger.Debug("Execution could not start",
				zap.String("command", cmdStr),
				zap.Error(err))
			return nil, cerr.Wrapf(err, "failed to run %s", opts.Command)
		}
		res.ExitCode = exitErr.ExitCode()
		logger.Debug("Execution exited abnormally",
			zap.String("command", cmdStr),
			zap.Int("exit_code", res.ExitCode),
			zap.String("summary", cephkeys_err.ExtractSummary(res.Stderr, 2)))
		return res, nil
	}

	logger.Debug("Execution succeeded", zap.String("command", cmdStr))
	return res, nil
}

func defaultTimeout(t time.Duration) time.Duration {
	if t > 0 {
		return t
	}
	return 30 * time.Second
}

func buildCommandString(command string, args ...string) string {
	return command + " " + strings.Join(args, " ")
}
