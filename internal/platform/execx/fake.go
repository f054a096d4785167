package execx

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Fake is a scripted Runner for tests. Responses are keyed by the full
// command line ("name arg1 arg2 ..."); unscripted commands fail.
type Fake struct {
	mu        sync.Mutex
	Responses map[string]FakeResponse
	Missing   map[string]bool // binaries LookPath should report as absent
	Calls     []string
}

// FakeResponse is the scripted outcome for one command line.
type FakeResponse struct {
	Stdout string
	Err    error
}

// NewFake returns an empty scripted runner.
func NewFake() *Fake {
	return &Fake{Responses: map[string]FakeResponse{}, Missing: map[string]bool{}}
}

// On scripts a response for the given command line.
func (f *Fake) On(cmdline string, stdout string, err error) {
	f.Responses[cmdline] = FakeResponse{Stdout: stdout, Err: err}
}

// Run implements Runner.
func (f *Fake) Run(_ context.Context, name string, args ...string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	line := strings.TrimSpace(name + " " + strings.Join(args, " "))
	f.Calls = append(f.Calls, line)
	resp, ok := f.Responses[line]
	if !ok {
		return Result{}, fmt.Errorf("unscripted command: %q", line)
	}
	return Result{Stdout: []byte(resp.Stdout)}, resp.Err
}

// LookPath implements Runner.
func (f *Fake) LookPath(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.Missing[name]
}

// CalledWith reports whether any recorded call has the given prefix.
func (f *Fake) CalledWith(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}
