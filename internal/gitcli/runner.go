package gitcli

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Runner executes git with args inside dir and returns stdout
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
}

// ExecRunner runs the git binary found on PATH
type ExecRunner struct {
	Binary  string
	Timeout time.Duration // per invocation, zero means none
}

// NewExecRunner returns a runner for the git on PATH
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Binary: "git", Timeout: timeout}
}

func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrapf(ctx.Err(), "git %s", strings.Join(args, " "))
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, errors.Wrapf(err, "git %s", strings.Join(args, " "))
		}
		return nil, errors.Wrapf(err, "git %s: %s", strings.Join(args, " "), msg)
	}

	return stdout.Bytes(), nil
}
