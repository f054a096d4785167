// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command
// definitions in the commands package. Handlers are framework-agnostic and
// can be tested independently of the CLI framework.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/imamik/nodeprep/internal/boothook"
	"github.com/imamik/nodeprep/internal/config"
	"github.com/imamik/nodeprep/internal/node"
	"github.com/imamik/nodeprep/internal/platform/execx"
	"github.com/imamik/nodeprep/internal/provisioning"
	"github.com/imamik/nodeprep/internal/state"
	"github.com/imamik/nodeprep/internal/storage"
	"github.com/imamik/nodeprep/internal/ui"
	"github.com/imamik/nodeprep/internal/util/prerequisites"
)

// ErrPreflight marks environment problems no retry can fix.
var ErrPreflight = errors.New("preflight check failed")

// ProvisionOptions carries the provision command's flags.
type ProvisionOptions struct {
	ConfigPath string
	Yes        bool // automated mode, no prompts
	Resume     bool // continue after a reboot
	FromHook   bool // invoked by the boot hook or a parent orchestrator
	Device     string
	Pool       string
}

// Factory function variables - replaced in tests for dependency injection.
var (
	newRunner = func() execx.Runner { return execx.NewRunner() }

	newHook = func() provisioning.Hook { return boothook.New() }

	newObserver = func(host, eventLogPath string) (provisioning.Observer, func(), error) {
		obs, err := provisioning.NewLogObserver(host, eventLogPath)
		if err != nil {
			return nil, nil, err
		}
		return obs, func() { _ = obs.Close() }, nil
	}

	newDeps = func(ctx *provisioning.Context, interactive bool) node.Deps {
		var choose storage.ChooseFunc
		var confirm storage.ConfirmFunc
		if interactive {
			choose = ui.ChooseCandidate
			confirm = ui.Confirm
		}
		return node.DefaultDeps(ctx, interactive, choose, confirm)
	}

	confirmReboot = func() (bool, error) {
		return ui.Confirm("The GPU driver stage requires a reboot. Reboot now?")
	}

	isTerminal = ui.IsTerminal

	checkPreflight = defaultPreflight
)

// defaultPreflight rejects unsupported platforms, unprivileged runs and
// hosts missing the tools the stages shell out to.
func defaultPreflight() error {
	if runtime.GOOS != "linux" {
		return fmt.Errorf("%w: %s is not supported, nodeprep provisions Linux hosts", ErrPreflight, runtime.GOOS)
	}
	if os.Geteuid() != 0 {
		return fmt.Errorf("%w: nodeprep must run as root", ErrPreflight)
	}
	if err := prerequisites.CheckBase().Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrPreflight, err)
	}
	return nil
}

// Provision runs the provisioning pipeline: acquire the run lock, execute
// incomplete stages in order, and stop at the first reboot boundary or
// failure. Safe to re-invoke at any time; completed work is never repeated.
func Provision(ctx context.Context, opts ProvisionOptions) error {
	cfg, err := config.LoadFile(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.Device != "" {
		cfg.PinnedDevice = opts.Device
		cfg.PinnedPool = ""
	}
	if opts.Pool != "" {
		cfg.PinnedPool = opts.Pool
		cfg.PinnedDevice = ""
	}

	if err := checkPreflight(); err != nil {
		return err
	}

	// Exclusive, non-blocking: a concurrent invocation exits immediately
	// without touching any record.
	lock, err := state.Acquire(cfg.LockPath())
	if err != nil {
		return err
	}
	defer lock.Release()

	obs, closeObs, err := newObserver(cfg.Hostname, cfg.EventLogPath())
	if err != nil {
		return err
	}
	defer closeObs()

	pctx := provisioning.NewContext(ctx, cfg, state.NewStore(cfg), newRunner(), obs)
	pctx.Interactive = !opts.Yes && !opts.FromHook && isTerminal()
	pctx.FromHook = opts.FromHook

	deps := newDeps(pctx, pctx.Interactive)
	runner := provisioning.NewRunner(newHook(), node.Stages(deps)...)

	err = runner.Run(pctx, opts.Resume || opts.FromHook)
	if errors.Is(err, provisioning.ErrRebootRequired) {
		return handleReboot(pctx)
	}
	return err
}

// handleReboot triggers the reboot a completed stage demands. Interactive
// runs confirm first; hook-driven and automated runs proceed unattended.
// Declining leaves the resume hook armed, so a later manual reboot still
// continues provisioning.
func handleReboot(pctx *provisioning.Context) error {
	if pctx.Interactive {
		ok, err := confirmReboot()
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Reboot postponed. Provisioning resumes automatically after the next boot.")
			return nil
		}
	}
	if _, err := pctx.Runner.Run(pctx, "systemctl", "reboot"); err != nil {
		return fmt.Errorf("requesting reboot: %w", err)
	}
	return nil
}
