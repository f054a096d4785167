// Package provisioning contains the resumable provisioning core: the stage
// orchestrator, the phase engine and the structured event contract.
//
// A run iterates stages in declared order, skipping completed ones. A stage
// that requires a reboot persists its completion and stops the run; the boot
// resume hook re-invokes the orchestrator on the next boot, purely from
// persisted records plus live environment probes. There is no in-memory
// continuation across the reboot boundary.
package provisioning

import (
	"errors"
	"fmt"

	"github.com/imamik/nodeprep/internal/state"
)

// ErrRebootRequired is returned by Run when a completed stage needs the host
// to reboot before later stages may proceed. The caller arms nothing further;
// the resume hook is already installed.
var ErrRebootRequired = errors.New("reboot required to continue provisioning")

// Stage is a top-level unit of provisioning.
type Stage interface {
	// Name identifies the stage in records and events.
	Name() string

	// RequiresReboot reports whether completing this stage forces a reboot.
	RequiresReboot() bool

	// Ready probes the live environment for the stage's post-completion
	// readiness. Stages without a reboot requirement return true.
	Ready(ctx *Context) (bool, error)

	// Provision executes the stage body, typically via the phase engine.
	Provision(ctx *Context) error
}

// Hook arms and disarms the boot-time continuation trigger.
type Hook interface {
	// Install arms the hook. Idempotent.
	Install(ctx *Context) error

	// Uninstall disarms the hook. Idempotent, absent hook is a no-op.
	Uninstall(ctx *Context) error
}

// Runner sequences stages and owns their persisted records.
type Runner struct {
	Stages []Stage
	Hook   Hook
}

// NewRunner builds a Runner over the given stages.
func NewRunner(hook Hook, stages ...Stage) *Runner {
	return &Runner{Stages: stages, Hook: hook}
}

// Run executes all incomplete stages in order. resume marks an invocation
// that continues after a reboot (hook-fired or operator-requested).
//
// Returns nil when every stage is complete, ErrRebootRequired when the run
// must stop for a reboot, or the failing stage's error.
func (r *Runner) Run(ctx *Context, resume bool) error {
	if ctx.Store.SentinelExists() {
		if err := r.Hook.Uninstall(ctx); err != nil {
			ctx.Observer.Warnf("resume hook removal: %v", err)
		}
		ctx.Observer.Event(Event{Type: EventRunCompleted, Severity: SeverityInfo, Unit: "run", Message: "already complete, nothing to do"})
		return nil
	}

	// Armed up front so that any reboot mid-run resumes unattended.
	if err := r.Hook.Install(ctx); err != nil {
		return fmt.Errorf("installing resume hook: %w", err)
	}

	for _, stage := range r.Stages {
		rec, err := ctx.Store.Stage(stage.Name())
		if err != nil {
			return fmt.Errorf("stage %s: read record: %w", stage.Name(), err)
		}

		if rec.Status == state.StageComplete {
			if err := r.verifyCompleted(ctx, stage, resume); err != nil {
				return err
			}
			ctx.Observer.Event(Event{Type: EventStageSkipped, Unit: stage.Name(), Severity: SeverityInfo, Message: "already complete, skipped"})
			continue
		}

		if err := r.runStage(ctx, stage); err != nil {
			return err
		}

		if stage.RequiresReboot() {
			ctx.Observer.Event(Event{Type: EventRebootRequired, Unit: stage.Name(), Severity: SeverityInfo, Message: "stage complete, reboot required before continuing"})
			return ErrRebootRequired
		}
	}

	if err := ctx.Store.CreateSentinel(); err != nil {
		return fmt.Errorf("writing completion marker: %w", err)
	}
	if err := r.Hook.Uninstall(ctx); err != nil {
		ctx.Observer.Warnf("resume hook removal: %v", err)
	}
	ctx.Observer.Event(Event{Type: EventRunCompleted, Severity: SeverityInfo, Unit: "run", Message: "all stages complete"})
	return nil
}

// verifyCompleted distinguishes a reboot-requiring stage whose reboot really
// happened from one that was interrupted before rebooting.
//
// In a resumed invocation the hook has fired, so the reboot is known to have
// occurred: a failing readiness probe is then a permanent failure surfaced to
// the operator (deliberate policy, no second reboot). In a fresh manual
// invocation a failing probe means the reboot never happened, so the run
// stops again with ErrRebootRequired.
func (r *Runner) verifyCompleted(ctx *Context, stage Stage, resume bool) error {
	if !stage.RequiresReboot() {
		return nil
	}
	ready, err := stage.Ready(ctx)
	if err != nil {
		return fmt.Errorf("stage %s: readiness probe: %w", stage.Name(), err)
	}
	if ready {
		return nil
	}
	if resume {
		ctx.Observer.Event(Event{Type: EventStageFailed, Unit: stage.Name(), Severity: SeverityError,
			Message: fmt.Sprintf("readiness probe failed after reboot; manual intervention required (see %s)", ctx.Config.EventLogPath())})
		return fmt.Errorf("stage %s: readiness probe failed after reboot", stage.Name())
	}
	ctx.Observer.Event(Event{Type: EventRebootRequired, Unit: stage.Name(), Severity: SeverityWarn, Message: "completed but host has not rebooted yet"})
	return ErrRebootRequired
}

// runStage executes one stage body with durable status tracking.
func (r *Runner) runStage(ctx *Context, stage Stage) error {
	if err := ctx.Store.SetStage(stage.Name(), state.StageRunning); err != nil {
		return fmt.Errorf("stage %s: persist: %w", stage.Name(), err)
	}
	ctx.Observer.Event(Event{Type: EventStageStarted, Unit: stage.Name(), Severity: SeverityInfo, Message: "starting"})

	if err := stage.Provision(ctx); err != nil {
		if perr := ctx.Store.SetStage(stage.Name(), state.StageFailed); perr != nil {
			ctx.Observer.Warnf("stage %s: recording failure: %v", stage.Name(), perr)
		}
		ctx.Observer.Event(Event{Type: EventStageFailed, Unit: stage.Name(), Severity: SeverityError,
			Message: fmt.Sprintf("%v (details: %s)", err, ctx.Config.EventLogPath())})
		return fmt.Errorf("stage %s failed: %w", stage.Name(), err)
	}

	if err := ctx.Store.SetStage(stage.Name(), state.StageComplete); err != nil {
		return fmt.Errorf("stage %s: persist: %w", stage.Name(), err)
	}
	ctx.Observer.Event(Event{Type: EventStageCompleted, Unit: stage.Name(), Severity: SeverityInfo, Message: "completed"})
	return nil
}
