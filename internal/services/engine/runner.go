package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"go.uber.org/zap"
)

const maxOutputTail = 2048

// Runner invokes one external executable.
type Runner struct {
	name    string
	path    string
	timeout time.Duration
	logger  *zap.Logger
}

func NewRunner(name, path string, timeout time.Duration, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{name: name, path: path, timeout: timeout, logger: logger}
}

func (r *Runner) Name() string { return r.name }

// Available reports whether the executable can be found.
func (r *Runner) Available() bool {
	_, err := exec.LookPath(r.path)
	return err == nil
}

// Run executes the engine and returns its stdout. Failures carry the tail of
// the combined output.
func (r *Runner) Run(ctx context.Context, args ...string) ([]byte, error) {
	if !r.Available() {
		return nil, apperrors.New(apperrors.KindExternalEngine, "ENGINE_UNAVAILABLE",
			fmt.Sprintf("%s is not installed or not on PATH", r.name), nil)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r.logger.Debug("Engine finished",
		zap.String("engine", r.name),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apperrors.ExternalEngine(r.name, fmt.Errorf("%w: %v", ctxErr, err))
		}
		return nil, apperrors.ExternalEngine(r.name, fmt.Errorf("%v: %s", err, tail(stderr.String()+stdout.String())))
	}
	return stdout.Bytes(), nil
}

// Workspace creates a scratch directory. The returned func removes it.
func Workspace(prefix string) (string, func(), error) {
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxOutputTail {
		return "..." + s[len(s)-maxOutputTail:]
	}
	return s
}
