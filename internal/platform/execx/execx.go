// Package execx wraps os/exec behind a small interface so that everything
// that shells out to host tooling (lsblk, lvm, mkfs, systemctl, ...) can be
// faked in tests.
package execx

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Result holds stdout/stderr of a completed command.
type Result struct {
	Stdout []byte
	Stderr []byte
}

// Runner executes host commands.
type Runner interface {
	// Run executes name with args and returns its output.
	// A non-zero exit status is returned as an error that includes
	// trailing stderr for diagnostics.
	Run(ctx context.Context, name string, args ...string) (Result, error)

	// LookPath reports whether name resolves to an executable in PATH.
	LookPath(name string) bool
}

// System is the real Runner backed by os/exec.
type System struct{}

// NewRunner returns a Runner that executes commands on the host.
func NewRunner() *System { return &System{} }

// Run implements Runner.
func (*System) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		return res, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, tail(stderr.String()))
	}
	return res, nil
}

// LookPath implements Runner.
func (*System) LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// tail returns the last non-empty line of s, trimmed.
func tail(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
