package provisioning

import (
	"fmt"

	"github.com/imamik/nodeprep/internal/state"
)

// Phase is one idempotent sub-step of a stage.
type Phase struct {
	// Name identifies the phase within its owning stage.
	Name string

	// SkipIf probes the live environment; true means the phase's outcome is
	// already in place and the body need not run. Consulted only when no
	// record exists, so a crash that left a running record always re-runs.
	SkipIf func(ctx *Context) (bool, error)

	// Body performs the work.
	Body func(ctx *Context) error
}

// RunPhases executes phases strictly in declared order within stage.
// The first failure aborts the remainder and propagates to the caller.
func RunPhases(ctx *Context, stage string, phases []Phase) error {
	for _, p := range phases {
		if err := RunPhase(ctx, stage, p); err != nil {
			return err
		}
	}
	return nil
}

// RunPhase executes one phase with durable progress tracking. The record is
// persisted to running before the body executes and to its terminal status
// after, so an interruption is always visible as running on the next run.
func RunPhase(ctx *Context, stage string, p Phase) error {
	unit := stage + "/" + p.Name

	rec, err := ctx.Store.Phase(stage, p.Name)
	if err != nil {
		return fmt.Errorf("phase %s: read record: %w", unit, err)
	}

	if rec.Status == state.PhaseComplete {
		ctx.Observer.Event(Event{Type: EventPhaseSkipped, Unit: unit, Severity: SeverityInfo, Message: "already complete, skipped"})
		return nil
	}

	// With no record at all, an environment probe may prove the work is
	// already done (state lost or reset, target already in desired shape).
	if rec.Status == state.PhaseAbsent && p.SkipIf != nil {
		satisfied, err := p.SkipIf(ctx)
		if err != nil {
			return fmt.Errorf("phase %s: probe: %w", unit, err)
		}
		if satisfied {
			if err := ctx.Store.SetPhase(stage, p.Name, state.PhaseComplete); err != nil {
				return fmt.Errorf("phase %s: persist: %w", unit, err)
			}
			ctx.Observer.Event(Event{Type: EventPhaseSkipped, Unit: unit, Severity: SeverityInfo, Message: "already satisfied, skipped"})
			return nil
		}
	}

	if err := ctx.Store.SetPhase(stage, p.Name, state.PhaseRunning); err != nil {
		return fmt.Errorf("phase %s: persist: %w", unit, err)
	}
	ctx.Observer.Event(Event{Type: EventPhaseStarted, Unit: unit, Severity: SeverityInfo, Message: "starting"})

	if err := p.Body(ctx); err != nil {
		if perr := ctx.Store.SetPhase(stage, p.Name, state.PhaseFailed); perr != nil {
			ctx.Observer.Warnf("phase %s: recording failure: %v", unit, perr)
		}
		ctx.Observer.Event(Event{Type: EventPhaseFailed, Unit: unit, Severity: SeverityError, Message: err.Error()})
		return fmt.Errorf("phase %s failed: %w", p.Name, err)
	}

	if err := ctx.Store.SetPhase(stage, p.Name, state.PhaseComplete); err != nil {
		return fmt.Errorf("phase %s: persist: %w", unit, err)
	}
	ctx.Observer.Event(Event{Type: EventPhaseCompleted, Unit: unit, Severity: SeverityInfo, Message: "completed"})
	return nil
}
